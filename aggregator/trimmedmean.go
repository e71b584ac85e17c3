package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/stats"
)

// TrimmedMean drops the top and bottom beta fraction of values per coordinate
// and averages the remainder.
type TrimmedMean struct {
	beta float64
}

// NewTrimmedMean clamps beta into [0.0, 0.49] regardless of input.
func NewTrimmedMean(beta float64) Aggregator {
	return &TrimmedMean{beta: clampBeta(beta)}
}

func clampBeta(beta float64) float64 {
	if beta < 0.0 {
		return 0.0
	}
	if beta > 0.49 {
		return 0.49
	}

	return beta
}

func (a *TrimmedMean) Beta() float64 {
	return a.beta
}

func (a *TrimmedMean) Aggregate(_ context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult {
	start := time.Now()
	n := len(updates)

	if n < 3 {
		return failure(start, "trimmed mean requires at least 3 updates")
	}

	vectors, err := flatVectors(updates)
	if err != nil {
		return failure(start, err.Error())
	}

	trimCount := int(float64(n) * a.beta)
	dim := len(vectors[0])

	result := make([]float64, dim)
	column := make([]float64, n)
	for d := 0; d < dim; d++ {
		for i, v := range vectors {
			column[i] = v[d]
		}
		result[d] = stats.TrimmedMean(column, trimCount)
	}

	newWeights, err := rebuild(updates[0].Weights, result)
	if err != nil {
		return failure(start, err.Error())
	}

	accepted := n - 2*trimCount
	gm := newGlobalModel(updates, previous, newWeights, accepted, fmt.Sprintf("trimmed_mean_b%g", a.beta))

	return model.AggregationResult{
		Success:                true,
		GlobalModel:            &gm,
		UpdatesReceived:        n,
		UpdatesAccepted:        accepted,
		UpdatesRejected:        2 * trimCount,
		AggregationTimeSeconds: time.Since(start).Seconds(),
	}
}
