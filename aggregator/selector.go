package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/stats"
)

const (
	defVarianceThreshold = 1.0
	defSampleDims        = 100
)

// Selection records one per-round strategy choice.
type Selection struct {
	Strategy    string    `json:"strategy"`
	RoundNumber int       `json:"round_number"`
	ChosenAt    time.Time `json:"chosen_at"`
}

// AdaptiveSelector is a meta-strategy that picks FedAvg, Krum(f=1) or
// TrimmedMean(β=0.1) per round from cohort size and cross-update variance
// over a sampled prefix of dimensions.
type AdaptiveSelector struct {
	fedavg            Aggregator
	krum              Aggregator
	trimmed           Aggregator
	varianceThreshold float64
	sampleDims        int

	mu      sync.Mutex
	history []Selection
}

func NewAdaptiveSelector(varianceThreshold float64, sampleDims int) *AdaptiveSelector {
	if varianceThreshold <= 0 {
		varianceThreshold = defVarianceThreshold
	}
	if sampleDims <= 0 {
		sampleDims = defSampleDims
	}

	return &AdaptiveSelector{
		fedavg:            NewFedAvg(),
		krum:              NewKrum(1, false, 1),
		trimmed:           NewTrimmedMean(0.1),
		varianceThreshold: varianceThreshold,
		sampleDims:        sampleDims,
	}
}

func (s *AdaptiveSelector) Aggregate(ctx context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult {
	start := time.Now()

	if len(updates) == 0 {
		return failure(start, "no updates to aggregate")
	}

	vectors, err := flatVectors(updates)
	if err != nil {
		return failure(start, err.Error())
	}

	name, strategy := s.selectStrategy(len(updates), vectors)

	round := 0
	for _, u := range updates {
		if u.RoundNumber > round {
			round = u.RoundNumber
		}
	}
	s.mu.Lock()
	s.history = append(s.history, Selection{Strategy: name, RoundNumber: round, ChosenAt: time.Now().UTC()})
	s.mu.Unlock()

	result := strategy.Aggregate(ctx, updates, previous)
	if result.Success {
		if result.Diagnostics == nil {
			result.Diagnostics = &model.Diagnostics{}
		}
		result.Diagnostics.SelectedStrategy = name
	}

	return result
}

// selectStrategy: high variance with a viable cohort favors trimming, larger
// cohorts are assumed to carry more Byzantine risk and get Krum, everything
// else averages.
func (s *AdaptiveSelector) selectStrategy(n int, vectors [][]float64) (string, Aggregator) {
	if n >= 3 && stats.MeanVariance(vectors, s.sampleDims) > s.varianceThreshold {
		return "trimmed_mean", s.trimmed
	}
	if n >= 5 {
		return "krum", s.krum
	}

	return "fedavg", s.fedavg
}

// History returns a copy of every selection made so far.
func (s *AdaptiveSelector) History() []Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Selection(nil), s.history...)
}

// UsageStats returns the fraction of rounds each strategy was chosen.
func (s *AdaptiveSelector) UsageStats() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage := make(map[string]float64)
	if len(s.history) == 0 {
		return usage
	}
	for _, sel := range s.history {
		usage[sel.Strategy]++
	}
	total := float64(len(s.history))
	for k := range usage {
		usage[k] /= total
	}

	return usage
}
