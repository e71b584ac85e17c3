package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/turbinefl/turbine/engine"
	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/modelsync"
)

var _ engine.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     engine.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc engine.Service) engine.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Aggregate(ctx context.Context, req engine.AggregationRequest) (model.AggregationResult, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "aggregate").Add(1)
		mm.latency.With("method", "aggregate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Aggregate(ctx, req)
}

func (mm *metricsMiddleware) ReceiveGlobalModel(ctx context.Context, m model.GlobalModel, source string) (bool, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "receive-global-model").Add(1)
		mm.latency.With("method", "receive-global-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ReceiveGlobalModel(ctx, m, source)
}

func (mm *metricsMiddleware) GetCurrentModel(ctx context.Context) (model.GlobalModel, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-current-model").Add(1)
		mm.latency.With("method", "get-current-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetCurrentModel(ctx)
}

func (mm *metricsMiddleware) GetModelVersion(ctx context.Context) (int, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-model-version").Add(1)
		mm.latency.With("method", "get-model-version").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetModelVersion(ctx)
}

func (mm *metricsMiddleware) GetSyncStatus(ctx context.Context) (modelsync.State, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-sync-status").Add(1)
		mm.latency.With("method", "get-sync-status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetSyncStatus(ctx)
}

func (mm *metricsMiddleware) Rollback(ctx context.Context, version int) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "rollback").Add(1)
		mm.latency.With("method", "rollback").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Rollback(ctx, version)
}

func (mm *metricsMiddleware) ResolveConflicts(ctx context.Context, conflicts []modelsync.Conflict, strategy modelsync.ResolutionStrategy) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "resolve-conflicts").Add(1)
		mm.latency.With("method", "resolve-conflicts").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ResolveConflicts(ctx, conflicts, strategy)
}

func (mm *metricsMiddleware) StrategyStats(ctx context.Context) (engine.StrategyStats, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "strategy-stats").Add(1)
		mm.latency.With("method", "strategy-stats").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.StrategyStats(ctx)
}
