package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/turbinefl/turbine/engine"
	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/modelsync"
)

var _ engine.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    engine.Service
}

func Tracing(tracer trace.Tracer, svc engine.Service) engine.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Aggregate(ctx context.Context, req engine.AggregationRequest) (model.AggregationResult, error) {
	ctx, span := tm.tracer.Start(ctx, "aggregate", trace.WithAttributes(
		attribute.String("method", req.Method),
		attribute.Int("updates", len(req.Updates)),
	))
	defer span.End()

	return tm.svc.Aggregate(ctx, req)
}

func (tm *tracing) ReceiveGlobalModel(ctx context.Context, m model.GlobalModel, source string) (bool, error) {
	ctx, span := tm.tracer.Start(ctx, "receive-global-model", trace.WithAttributes(
		attribute.Int("version", m.Version),
		attribute.String("source", source),
	))
	defer span.End()

	return tm.svc.ReceiveGlobalModel(ctx, m, source)
}

func (tm *tracing) GetCurrentModel(ctx context.Context) (model.GlobalModel, error) {
	ctx, span := tm.tracer.Start(ctx, "get-current-model")
	defer span.End()

	return tm.svc.GetCurrentModel(ctx)
}

func (tm *tracing) GetModelVersion(ctx context.Context) (int, error) {
	ctx, span := tm.tracer.Start(ctx, "get-model-version")
	defer span.End()

	return tm.svc.GetModelVersion(ctx)
}

func (tm *tracing) GetSyncStatus(ctx context.Context) (modelsync.State, error) {
	ctx, span := tm.tracer.Start(ctx, "get-sync-status")
	defer span.End()

	return tm.svc.GetSyncStatus(ctx)
}

func (tm *tracing) Rollback(ctx context.Context, version int) error {
	ctx, span := tm.tracer.Start(ctx, "rollback", trace.WithAttributes(
		attribute.Int("version", version),
	))
	defer span.End()

	return tm.svc.Rollback(ctx, version)
}

func (tm *tracing) ResolveConflicts(ctx context.Context, conflicts []modelsync.Conflict, strategy modelsync.ResolutionStrategy) error {
	ctx, span := tm.tracer.Start(ctx, "resolve-conflicts", trace.WithAttributes(
		attribute.Int("conflicts", len(conflicts)),
		attribute.String("strategy", string(strategy)),
	))
	defer span.End()

	return tm.svc.ResolveConflicts(ctx, conflicts, strategy)
}

func (tm *tracing) StrategyStats(ctx context.Context) (engine.StrategyStats, error) {
	ctx, span := tm.tracer.Start(ctx, "strategy-stats")
	defer span.End()

	return tm.svc.StrategyStats(ctx)
}
