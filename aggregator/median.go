package aggregator

import (
	"context"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/stats"
)

// Median computes the coordinate-wise median. It is the most
// breakdown-resistant baseline strategy and accepts every update.
type Median struct{}

func NewMedian() Aggregator {
	return &Median{}
}

func (a *Median) Aggregate(_ context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult {
	start := time.Now()
	n := len(updates)

	if n == 0 {
		return failure(start, "no updates to aggregate")
	}

	vectors, err := flatVectors(updates)
	if err != nil {
		return failure(start, err.Error())
	}

	dim := len(vectors[0])
	result := make([]float64, dim)
	column := make([]float64, n)
	for d := 0; d < dim; d++ {
		for i, v := range vectors {
			column[i] = v[d]
		}
		result[d] = stats.Median(column)
	}

	newWeights, err := rebuild(updates[0].Weights, result)
	if err != nil {
		return failure(start, err.Error())
	}

	gm := newGlobalModel(updates, previous, newWeights, n, "median")

	return model.AggregationResult{
		Success:                true,
		GlobalModel:            &gm,
		UpdatesReceived:        n,
		UpdatesAccepted:        n,
		AggregationTimeSeconds: time.Since(start).Seconds(),
	}
}
