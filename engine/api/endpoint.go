package api

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/turbinefl/turbine/engine"
	pkgerrors "github.com/turbinefl/turbine/pkg/errors"
)

func aggregateEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(aggregateReq)
		if !ok {
			return aggregateResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return aggregateResponse{}, err
		}

		result, err := svc.Aggregate(ctx, req.AggregationRequest)
		if err != nil {
			return aggregateResponse{}, err
		}

		return aggregateResponse{
			AggregationResult: result,
		}, nil
	}
}

func receiveModelEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(receiveModelReq)
		if !ok {
			return receiveModelResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return receiveModelResponse{}, errors.Join(pkgerrors.ErrInvalidData, err)
		}

		adopted, err := svc.ReceiveGlobalModel(ctx, req.Model, req.Source)
		if err != nil {
			return receiveModelResponse{}, err
		}

		version, err := svc.GetModelVersion(ctx)
		if err != nil {
			return receiveModelResponse{}, err
		}

		return receiveModelResponse{
			Adopted: adopted,
			Version: version,
		}, nil
	}
}

func getModelEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		m, err := svc.GetCurrentModel(ctx)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{
			GlobalModel: m,
		}, nil
	}
}

func getVersionEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		version, err := svc.GetModelVersion(ctx)
		if err != nil {
			return versionResponse{}, err
		}

		return versionResponse{
			Version: version,
		}, nil
	}
}

func getSyncStatusEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		state, err := svc.GetSyncStatus(ctx)
		if err != nil {
			return syncStatusResponse{}, err
		}

		return syncStatusResponse{
			State: state,
		}, nil
	}
}

func rollbackEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(rollbackReq)
		if !ok {
			return rollbackResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return rollbackResponse{}, errors.Join(pkgerrors.ErrInvalidData, err)
		}

		if err := svc.Rollback(ctx, req.Version); err != nil {
			return rollbackResponse{}, err
		}

		return rollbackResponse{
			Version: req.Version,
		}, nil
	}
}

func resolveConflictsEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(resolveConflictsReq)
		if !ok {
			return resolveConflictsResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return resolveConflictsResponse{}, errors.Join(pkgerrors.ErrInvalidData, err)
		}

		if err := svc.ResolveConflicts(ctx, req.Conflicts, req.Strategy); err != nil {
			return resolveConflictsResponse{}, err
		}

		return resolveConflictsResponse{
			Resolved: len(req.Conflicts),
		}, nil
	}
}

func strategyStatsEndpoint(svc engine.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		stats, err := svc.StrategyStats(ctx)
		if err != nil {
			return statsResponse{}, err
		}

		return statsResponse{
			StrategyStats: stats,
		}, nil
	}
}
