// Package aggregator implements the Byzantine-robust aggregation strategies
// that combine node updates into a new global model: FedAvg, Krum/Multi-Krum,
// trimmed mean and coordinate-wise median, plus adaptive and
// privacy-preserving variants.
//
// Reference: "Machine Learning with Adversaries" (Blanchard et al., 2017).
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/turbinefl/turbine/model"
	pkgerrors "github.com/turbinefl/turbine/pkg/errors"
)

// Aggregator combines an ordered list of updates into a new global model.
// Implementations are deterministic for identical ordered input; score ties
// are broken by original list index. Calls for different rounds are safe to
// run concurrently; the only cross-call state is explicit, mutex-guarded
// running-stats accumulators on the adaptive variants.
type Aggregator interface {
	Aggregate(ctx context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult
}

// flatVectors flattens every update and checks all vectors share a dimension.
func flatVectors(updates []model.Update) ([][]float64, error) {
	vectors := make([][]float64, len(updates))
	for i, u := range updates {
		vectors[i] = u.Weights.Flatten()
		if i > 0 && len(vectors[i]) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: update %d has %d values, want %d",
				pkgerrors.ErrDimensionMismatch, i, len(vectors[i]), len(vectors[0]))
		}
	}

	return vectors, nil
}

// rebuild shapes a flat result vector like the template update's weights.
func rebuild(template model.Weights, flat []float64) (model.Weights, error) {
	if len(template.Layers) == 0 {
		return model.FlatWeights(flat), nil
	}

	return model.Reconstruct(flat, template.Shapes())
}

// newGlobalModel assembles and seals the model produced by a strategy.
// Version is previous.Version+1, or 1 when there is no previous model, and
// PreviousHash chains to the previous model's weights hash.
func newGlobalModel(updates []model.Update, previous *model.GlobalModel, weights model.Weights, contributors int, method string) model.GlobalModel {
	version := 1
	previousHash := ""
	if previous != nil {
		version = previous.Version + 1
		previousHash = previous.WeightsHash
	}

	n := float64(len(updates))
	round, totalSamples := 0, 0
	var trainLoss, valLoss float64
	for _, u := range updates {
		if u.RoundNumber > round {
			round = u.RoundNumber
		}
		totalSamples += int(u.SampleWeight())
		trainLoss += u.TrainingLoss
		valLoss += u.ValidationLoss
	}

	return model.GlobalModel{
		Version:           version,
		RoundNumber:       round,
		Weights:           weights,
		NumContributors:   contributors,
		TotalSamples:      totalSamples,
		AggregationMethod: method,
		AvgTrainingLoss:   trainLoss / n,
		AvgValidationLoss: valLoss / n,
		PreviousHash:      previousHash,
	}.Seal()
}

func failure(start time.Time, msg string) model.AggregationResult {
	return model.AggregationResult{
		Success:                false,
		ErrorMessage:           msg,
		AggregationTimeSeconds: time.Since(start).Seconds(),
	}
}
