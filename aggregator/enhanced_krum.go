package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/stats"
)

// EnhancedKrumConfig configures the adaptive Krum variant. TrustScores maps
// node ids to [0,1] trust; absent nodes default to full trust.
type EnhancedKrumConfig struct {
	F           int
	MultiKrum   bool
	M           int
	AdaptiveF   bool
	TrustScores map[string]float64
}

// EnhancedKrumStats is a snapshot of the accumulated cross-call statistics.
type EnhancedKrumStats struct {
	ByzantineDetected  int     `json:"byzantine_detected"`
	TotalRounds        int     `json:"total_rounds"`
	AvgAggregationTime float64 `json:"avg_aggregation_time"`
}

// EnhancedKrum adds a vectorized distance backend and adaptive f selection on
// top of Krum. The running stats accumulator is the one piece of shared
// mutable state and is guarded by its own mutex.
type EnhancedKrum struct {
	cfg     EnhancedKrumConfig
	backend stats.DistanceBackend

	mu    sync.Mutex
	stats EnhancedKrumStats
}

func NewEnhancedKrum(cfg EnhancedKrumConfig) *EnhancedKrum {
	if cfg.F < 1 {
		cfg.F = 1
	}
	if cfg.M < 1 {
		cfg.M = 1
	}

	return &EnhancedKrum{cfg: cfg, backend: stats.NewBackend()}
}

func (a *EnhancedKrum) Aggregate(_ context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult {
	start := time.Now()
	n := len(updates)

	minRequired := 2*a.cfg.F + 3
	if n < minRequired {
		return failure(start, fmt.Sprintf("krum requires at least %d updates, got %d", minRequired, n))
	}

	f := a.cfg.F
	if a.cfg.AdaptiveF {
		f = a.adaptiveF(n, updates)
	}

	result := krumAggregate(start, a.backend, updates, previous, f, a.cfg.MultiKrum, a.cfg.M, fmt.Sprintf("enhanced_krum_f%d", f))

	if result.Success {
		a.mu.Lock()
		a.stats.ByzantineDetected += len(result.SuspectedByzantine)
		a.stats.TotalRounds++
		rounds := float64(a.stats.TotalRounds)
		a.stats.AvgAggregationTime = (a.stats.AvgAggregationTime*(rounds-1) + result.AggregationTimeSeconds) / rounds
		a.mu.Unlock()

		result.Diagnostics = &model.Diagnostics{AdaptedF: f}
	}

	return result
}

// adaptiveF lowers f toward 1 when average trust is high and raises it toward
// (n-3)/2 when trust is low. Nodes without a score count as fully trusted.
func (a *EnhancedKrum) adaptiveF(n int, updates []model.Update) int {
	var total float64
	for _, u := range updates {
		trust, ok := a.cfg.TrustScores[u.NodeID]
		if !ok {
			trust = 1.0
		}
		total += trust
	}
	avgTrust := total / float64(len(updates))

	switch {
	case avgTrust > 0.8:
		if f := a.cfg.F - 1; f >= 1 {
			return f
		}

		return 1
	case avgTrust < 0.5:
		if f := a.cfg.F + 1; f <= (n-3)/2 {
			return f
		}

		return (n - 3) / 2
	default:
		return a.cfg.F
	}
}

func (a *EnhancedKrum) Stats() EnhancedKrumStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.stats
}
