package aggregator

import (
	"context"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/stats"
)

// FedAvg is standard sample-weighted averaging. It is efficient but not
// Byzantine-robust: a single adversarial update distorts the result without
// bound, which is the documented behavior, not a defect.
//
// Reference: "Communication-Efficient Learning" (McMahan et al., 2017).
type FedAvg struct{}

func NewFedAvg() Aggregator {
	return &FedAvg{}
}

func (a *FedAvg) Aggregate(_ context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult {
	start := time.Now()

	if len(updates) == 0 {
		return failure(start, "no updates to aggregate")
	}

	vectors, err := flatVectors(updates)
	if err != nil {
		return failure(start, err.Error())
	}

	weights := make([]float64, len(updates))
	for i, u := range updates {
		weights[i] = u.SampleWeight()
	}

	avg, err := stats.WeightedAverage(vectors, weights)
	if err != nil {
		return failure(start, err.Error())
	}

	newWeights, err := rebuild(updates[0].Weights, avg)
	if err != nil {
		return failure(start, err.Error())
	}

	gm := newGlobalModel(updates, previous, newWeights, len(updates), "fedavg")

	return model.AggregationResult{
		Success:                true,
		GlobalModel:            &gm,
		UpdatesReceived:        len(updates),
		UpdatesAccepted:        len(updates),
		AggregationTimeSeconds: time.Since(start).Seconds(),
	}
}
