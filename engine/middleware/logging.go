package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/turbinefl/turbine/engine"
	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/modelsync"
)

var _ engine.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    engine.Service
}

func Logging(logger *slog.Logger, svc engine.Service) engine.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Aggregate(ctx context.Context, req engine.AggregationRequest) (resp model.AggregationResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("round",
				slog.String("method", req.Method),
				slog.Int("updates", len(req.Updates)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Aggregate round failed", args...)

			return
		}
		args = append(args,
			slog.Bool("success", resp.Success),
			slog.Int("accepted", resp.UpdatesAccepted),
			slog.Int("rejected", resp.UpdatesRejected),
		)
		lm.logger.Info("Aggregate round completed", args...)
	}(time.Now())

	return lm.svc.Aggregate(ctx, req)
}

func (lm *loggingMiddleware) ReceiveGlobalModel(ctx context.Context, m model.GlobalModel, source string) (adopted bool, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("model",
				slog.Int("version", m.Version),
				slog.String("source", source),
			),
			slog.Bool("adopted", adopted),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Receive global model failed", args...)

			return
		}
		lm.logger.Info("Receive global model completed", args...)
	}(time.Now())

	return lm.svc.ReceiveGlobalModel(ctx, m, source)
}

func (lm *loggingMiddleware) GetCurrentModel(ctx context.Context) (resp model.GlobalModel, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get current model failed", args...)

			return
		}
		lm.logger.Info("Get current model completed successfully", args...)
	}(time.Now())

	return lm.svc.GetCurrentModel(ctx)
}

func (lm *loggingMiddleware) GetModelVersion(ctx context.Context) (version int, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("version", version),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get model version failed", args...)

			return
		}
		lm.logger.Info("Get model version completed successfully", args...)
	}(time.Now())

	return lm.svc.GetModelVersion(ctx)
}

func (lm *loggingMiddleware) GetSyncStatus(ctx context.Context) (resp modelsync.State, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("status", string(resp.Status)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get sync status failed", args...)

			return
		}
		lm.logger.Info("Get sync status completed successfully", args...)
	}(time.Now())

	return lm.svc.GetSyncStatus(ctx)
}

func (lm *loggingMiddleware) Rollback(ctx context.Context, version int) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("version", version),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Rollback failed", args...)

			return
		}
		lm.logger.Info("Rollback completed successfully", args...)
	}(time.Now())

	return lm.svc.Rollback(ctx, version)
}

func (lm *loggingMiddleware) ResolveConflicts(ctx context.Context, conflicts []modelsync.Conflict, strategy modelsync.ResolutionStrategy) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("conflicts", len(conflicts)),
			slog.String("strategy", string(strategy)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Resolve conflicts failed", args...)

			return
		}
		lm.logger.Info("Resolve conflicts completed successfully", args...)
	}(time.Now())

	return lm.svc.ResolveConflicts(ctx, conflicts, strategy)
}

func (lm *loggingMiddleware) StrategyStats(ctx context.Context) (resp engine.StrategyStats, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get strategy stats failed", args...)

			return
		}
		lm.logger.Info("Get strategy stats completed successfully", args...)
	}(time.Now())

	return lm.svc.StrategyStats(ctx)
}
