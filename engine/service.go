// Package engine ties the aggregation strategies and the model synchronizer
// into one service consumed by the HTTP API: it routes each round to the
// requested strategy, feeds successful results into the synchronizer, and
// exposes the sync and strategy state.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/turbinefl/turbine/aggregator"
	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/modelsync"
	pkgerrors "github.com/turbinefl/turbine/pkg/errors"
)

// AggregationRequest is one finalized round handed to the engine: the
// ordered list of accepted updates plus the strategy to run them through.
// An empty method selects the adaptive strategy.
type AggregationRequest struct {
	Method  string            `json:"method,omitempty"`
	Config  aggregator.Config `json:"config,omitempty"`
	Updates []model.Update    `json:"updates"`
}

// StrategyStats aggregates the running counters of the stateful strategies.
type StrategyStats struct {
	SelectorUsage       map[string]float64                   `json:"selector_usage"`
	Selections          []aggregator.Selection               `json:"selections"`
	EnhancedKrum        *aggregator.EnhancedKrumStats        `json:"enhanced_krum,omitempty"`
	AdaptiveTrimmedMean *aggregator.AdaptiveTrimmedMeanStats `json:"adaptive_trimmed_mean,omitempty"`
}

type Service interface {
	// Aggregate runs one round through the requested strategy. A failed
	// round is reported in the result, not as an error; errors are reserved
	// for configuration problems such as an unknown method name.
	Aggregate(ctx context.Context, req AggregationRequest) (model.AggregationResult, error)

	// ReceiveGlobalModel ingests a model received from a peer. It reports
	// whether the model was adopted.
	ReceiveGlobalModel(ctx context.Context, m model.GlobalModel, source string) (bool, error)

	GetCurrentModel(ctx context.Context) (model.GlobalModel, error)
	GetModelVersion(ctx context.Context) (int, error)
	GetSyncStatus(ctx context.Context) (modelsync.State, error)

	// Rollback restores a retained historical model by exact version.
	Rollback(ctx context.Context, version int) error

	// ResolveConflicts applies a resolution strategy to previously detected
	// conflicts.
	ResolveConflicts(ctx context.Context, conflicts []modelsync.Conflict, strategy modelsync.ResolutionStrategy) error

	StrategyStats(ctx context.Context) (StrategyStats, error)
}

// localSource labels models produced by this engine's own aggregation, as
// opposed to models received over the network.
const localSource = "local"

type service struct {
	synchronizer *modelsync.Synchronizer
	selector     *aggregator.AdaptiveSelector
	logger       *slog.Logger

	// Strategy instances are cached per method name so that the stateful
	// strategies keep their running counters across rounds.
	mu         sync.Mutex
	strategies map[string]aggregator.Aggregator
}

func NewService(logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		synchronizer: modelsync.NewSynchronizer(logger),
		selector:     aggregator.NewAdaptiveSelector(0, 0),
		logger:       logger,
		strategies:   make(map[string]aggregator.Aggregator),
	}
}

func (s *service) Aggregate(ctx context.Context, req AggregationRequest) (model.AggregationResult, error) {
	agg, err := s.strategyFor(req.Method, req.Config)
	if err != nil {
		return model.AggregationResult{}, err
	}

	var previous *model.GlobalModel
	if current, ok := s.synchronizer.GetCurrentModel(); ok {
		previous = &current
	}

	result := agg.Aggregate(ctx, req.Updates, previous)
	if result.Success && result.GlobalModel != nil {
		s.synchronizer.ReceiveGlobalModel(*result.GlobalModel, localSource)
	}

	return result, nil
}

func (s *service) strategyFor(method string, cfg aggregator.Config) (aggregator.Aggregator, error) {
	if method == "" || method == "adaptive" {
		return s.selector, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if agg, ok := s.strategies[method]; ok {
		return agg, nil
	}

	agg, err := aggregator.NewSecure(method, cfg)
	if err != nil {
		return nil, err
	}
	s.strategies[method] = agg

	return agg, nil
}

func (s *service) ReceiveGlobalModel(_ context.Context, m model.GlobalModel, source string) (bool, error) {
	return s.synchronizer.ReceiveGlobalModel(m, source), nil
}

func (s *service) GetCurrentModel(_ context.Context) (model.GlobalModel, error) {
	current, ok := s.synchronizer.GetCurrentModel()
	if !ok {
		return model.GlobalModel{}, pkgerrors.ErrNotFound
	}

	return current, nil
}

func (s *service) GetModelVersion(_ context.Context) (int, error) {
	return s.synchronizer.GetModelVersion(), nil
}

func (s *service) GetSyncStatus(_ context.Context) (modelsync.State, error) {
	return s.synchronizer.Snapshot(), nil
}

func (s *service) Rollback(_ context.Context, version int) error {
	return s.synchronizer.Rollback(version)
}

func (s *service) ResolveConflicts(_ context.Context, conflicts []modelsync.Conflict, strategy modelsync.ResolutionStrategy) error {
	return s.synchronizer.ResolveConflicts(conflicts, strategy)
}

func (s *service) StrategyStats(_ context.Context) (StrategyStats, error) {
	stats := StrategyStats{
		SelectorUsage: s.selector.UsageStats(),
		Selections:    s.selector.History(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, agg := range s.strategies {
		switch a := agg.(type) {
		case *aggregator.EnhancedKrum:
			v := a.Stats()
			stats.EnhancedKrum = &v
		case *aggregator.AdaptiveTrimmedMean:
			v := a.Stats()
			stats.AdaptiveTrimmedMean = &v
		}
	}

	return stats, nil
}
