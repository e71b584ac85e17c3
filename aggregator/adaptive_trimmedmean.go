package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/stats"
)

// AdaptiveTrimmedMeanConfig configures the adaptive trimmed-mean variant.
type AdaptiveTrimmedMeanConfig struct {
	Beta          float64
	AdaptiveBeta  bool
	OutlierMethod stats.OutlierMethod
}

// AdaptiveTrimmedMeanStats is a snapshot of the accumulated cross-call
// statistics.
type AdaptiveTrimmedMeanStats struct {
	TotalRounds      int     `json:"total_rounds"`
	AvgTrimmed       float64 `json:"avg_trimmed"`
	OutliersDetected int     `json:"outliers_detected"`
}

// AdaptiveTrimmedMean adapts beta to the cross-update variance and pre-filters
// detected outlier updates before trimming.
type AdaptiveTrimmedMean struct {
	cfg AdaptiveTrimmedMeanConfig

	mu    sync.Mutex
	stats AdaptiveTrimmedMeanStats
}

func NewAdaptiveTrimmedMean(cfg AdaptiveTrimmedMeanConfig) *AdaptiveTrimmedMean {
	cfg.Beta = clampBeta(cfg.Beta)
	if cfg.OutlierMethod == "" {
		cfg.OutlierMethod = stats.OutlierIQR
	}

	return &AdaptiveTrimmedMean{cfg: cfg}
}

func (a *AdaptiveTrimmedMean) Aggregate(_ context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult {
	start := time.Now()
	n := len(updates)

	if n < 3 {
		return failure(start, "trimmed mean requires at least 3 updates")
	}

	vectors, err := flatVectors(updates)
	if err != nil {
		return failure(start, err.Error())
	}

	beta := a.cfg.Beta
	var variance float64
	if a.cfg.AdaptiveBeta {
		variance = stats.MeanVariance(vectors, 0)
		beta = adaptBeta(beta, variance)
	}

	outliers := stats.DetectOutliers(vectors, a.cfg.OutlierMethod)
	outlierSet := make(map[int]struct{}, len(outliers))
	for _, i := range outliers {
		outlierSet[i] = struct{}{}
	}

	trimCount := int(float64(n) * beta)
	dim := len(vectors[0])

	result := make([]float64, dim)
	for d := 0; d < dim; d++ {
		column := make([]float64, 0, n)
		for i, v := range vectors {
			if _, isOutlier := outlierSet[i]; !isOutlier {
				column = append(column, v[d])
			}
		}
		// Too few survivors for this coordinate: fall back to the unfiltered set.
		if len(column) < 2 {
			column = column[:0]
			for _, v := range vectors {
				column = append(column, v[d])
			}
		}
		sort.Float64s(column)
		if trimCount > 0 && len(column) > 2*trimCount {
			column = column[trimCount : len(column)-trimCount]
		}

		var sum float64
		for _, v := range column {
			sum += v
		}
		result[d] = sum / float64(len(column))
	}

	newWeights, err := rebuild(updates[0].Weights, result)
	if err != nil {
		return failure(start, err.Error())
	}

	accepted := n - 2*trimCount
	gm := newGlobalModel(updates, previous, newWeights, accepted, fmt.Sprintf("adaptive_trimmed_mean_b%.2f", beta))

	a.mu.Lock()
	a.stats.OutliersDetected += len(outliers)
	a.stats.TotalRounds++
	rounds := float64(a.stats.TotalRounds)
	a.stats.AvgTrimmed = (a.stats.AvgTrimmed*(rounds-1) + float64(2*trimCount)) / rounds
	a.mu.Unlock()

	return model.AggregationResult{
		Success:                true,
		GlobalModel:            &gm,
		UpdatesReceived:        n,
		UpdatesAccepted:        accepted,
		UpdatesRejected:        2 * trimCount,
		AggregationTimeSeconds: time.Since(start).Seconds(),
		Diagnostics: &model.Diagnostics{
			MeanVariance: variance,
			AdaptedBeta:  beta,
			OutlierCount: len(outliers),
		},
	}
}

// adaptBeta raises beta toward 0.3 under high cross-update variance and
// lowers it toward 0.05 when the cohort is tight.
func adaptBeta(beta, variance float64) float64 {
	switch {
	case variance > 1.0:
		if b := beta * 1.5; b < 0.3 {
			return b
		}

		return 0.3
	case variance < 0.1:
		if b := beta * 0.5; b > 0.05 {
			return b
		}

		return 0.05
	default:
		return beta
	}
}

func (a *AdaptiveTrimmedMean) Stats() AdaptiveTrimmedMeanStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.stats
}
