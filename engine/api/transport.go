package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/turbinefl/turbine/aggregator"
	"github.com/turbinefl/turbine/engine"
	"github.com/turbinefl/turbine/modelsync"
	"github.com/turbinefl/turbine/pkg/api"
)

const maxBodySize = 1024 * 1024 * 100

func MakeHandler(svc engine.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.LoggingErrorEncoder(logger, encodeError)),
	}

	mux.Route("/rounds", func(r chi.Router) {
		r.Post("/aggregate", otelhttp.NewHandler(kithttp.NewServer(
			aggregateEndpoint(svc),
			decodeAggregateReq,
			api.EncodeResponse,
			opts...,
		), "aggregate").ServeHTTP)
	})

	mux.Route("/model", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			getModelEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-model").ServeHTTP)
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			receiveModelEndpoint(svc),
			decodeReceiveModelReq,
			api.EncodeResponse,
			opts...,
		), "receive-model").ServeHTTP)
		r.Get("/version", otelhttp.NewHandler(kithttp.NewServer(
			getVersionEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-model-version").ServeHTTP)
		r.Post("/rollback", otelhttp.NewHandler(kithttp.NewServer(
			rollbackEndpoint(svc),
			decodeRollbackReq,
			api.EncodeResponse,
			opts...,
		), "rollback-model").ServeHTTP)
	})

	mux.Route("/sync", func(r chi.Router) {
		r.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
			getSyncStatusEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-sync-status").ServeHTTP)
		r.Post("/conflicts/resolve", otelhttp.NewHandler(kithttp.NewServer(
			resolveConflictsEndpoint(svc),
			decodeResolveConflictsReq,
			api.EncodeResponse,
			opts...,
		), "resolve-conflicts").ServeHTTP)
	})

	mux.Get("/strategies/stats", otelhttp.NewHandler(kithttp.NewServer(
		strategyStatsEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "strategy-stats").ServeHTTP)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", api.ContentType)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":      "pass",
			"service":     "aggregator",
			"instance_id": instanceID,
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// decodeBody reads the request body and unmarshals it as JSON, or CBOR when
// the content type says so. Model payloads can be large, so the limit is
// generous.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), api.ContentTypeCBOR) {
		return cbor.Unmarshal(body, v)
	}

	return json.Unmarshal(body, v)
}

func decodeAggregateReq(_ context.Context, r *http.Request) (any, error) {
	var req aggregateReq
	if err := decodeBody(r, &req.AggregationRequest); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeReceiveModelReq(_ context.Context, r *http.Request) (any, error) {
	var req receiveModelReq
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeRollbackReq(_ context.Context, r *http.Request) (any, error) {
	var req rollbackReq
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeResolveConflictsReq(_ context.Context, r *http.Request) (any, error) {
	var req resolveConflictsReq
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, aggregator.ErrUnknownMethod),
		errors.Is(err, modelsync.ErrUnknownStrategy):
		w.Header().Set("Content-Type", api.ContentType)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	case errors.Is(err, modelsync.ErrMergeUnsupported):
		w.Header().Set("Content-Type", api.ContentType)
		w.WriteHeader(http.StatusNotImplemented)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	case errors.Is(err, modelsync.ErrVersionNotRetained):
		w.Header().Set("Content-Type", api.ContentType)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	default:
		api.EncodeError(ctx, err, w)
	}
}
