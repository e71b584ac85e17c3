package aggregator_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbinefl/turbine/aggregator"
	"github.com/turbinefl/turbine/model"
)

func update(node string, round int, vec []float64, samples int) model.Update {
	return model.Update{
		NodeID:      node,
		RoundNumber: round,
		Weights:     model.FlatWeights(vec),
		NumSamples:  samples,
	}
}

// honestCohort returns n updates with weights near [i, i].
func honestCohort(n, round int) []model.Update {
	updates := make([]model.Update, n)
	for i := 0; i < n; i++ {
		v := float64(i)
		updates[i] = update(fmt.Sprintf("node-%d", i), round, []float64{v, v}, 10)
	}

	return updates
}

func TestFedAvgEqualSamplesIsPlainMean(t *testing.T) {
	t.Parallel()

	updates := []model.Update{
		update("a", 1, []float64{0, 0}, 10),
		update("b", 1, []float64{10, 20}, 10),
		update("c", 1, []float64{20, 40}, 10),
	}

	result := aggregator.NewFedAvg().Aggregate(context.Background(), updates, nil)
	require.True(t, result.Success)
	require.NotNil(t, result.GlobalModel)

	flat := result.GlobalModel.Weights.Flatten()
	assert.InDelta(t, 10.0, flat[0], 1e-9)
	assert.InDelta(t, 20.0, flat[1], 1e-9)
	assert.Equal(t, 3, result.UpdatesAccepted)
	assert.Equal(t, "fedavg", result.GlobalModel.AggregationMethod)
	assert.Greater(t, result.AggregationTimeSeconds, 0.0)
}

func TestFedAvgSampleWeighting(t *testing.T) {
	t.Parallel()

	updates := []model.Update{
		update("a", 1, []float64{10, 10}, 900),
		update("b", 1, []float64{0, 0}, 100),
	}

	result := aggregator.NewFedAvg().Aggregate(context.Background(), updates, nil)
	require.True(t, result.Success)

	flat := result.GlobalModel.Weights.Flatten()
	assert.InDelta(t, 9.0, flat[0], 0.01)
	assert.InDelta(t, 9.0, flat[1], 0.01)
}

func TestFedAvgEmptyUpdatesFails(t *testing.T) {
	t.Parallel()

	result := aggregator.NewFedAvg().Aggregate(context.Background(), nil, nil)
	assert.False(t, result.Success)
	assert.Nil(t, result.GlobalModel)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestFedAvgDimensionMismatchFails(t *testing.T) {
	t.Parallel()

	updates := []model.Update{
		update("a", 1, []float64{1, 2}, 10),
		update("b", 1, []float64{1}, 10),
	}

	result := aggregator.NewFedAvg().Aggregate(context.Background(), updates, nil)
	assert.False(t, result.Success)
	assert.Nil(t, result.GlobalModel)
}

func TestFedAvgChainsToPrevious(t *testing.T) {
	t.Parallel()

	agg := aggregator.NewFedAvg()
	first := agg.Aggregate(context.Background(), honestCohort(3, 1), nil)
	require.True(t, first.Success)
	assert.Equal(t, 1, first.GlobalModel.Version)
	assert.Empty(t, first.GlobalModel.PreviousHash)

	second := agg.Aggregate(context.Background(), honestCohort(3, 2), first.GlobalModel)
	require.True(t, second.Success)
	assert.Equal(t, 2, second.GlobalModel.Version)
	assert.Equal(t, first.GlobalModel.WeightsHash, second.GlobalModel.PreviousHash)
	assert.Equal(t, 2, second.GlobalModel.RoundNumber)
}

func TestFedAvgLayeredWeightsPreserveShape(t *testing.T) {
	t.Parallel()

	layered := func(scale float64) model.Weights {
		return model.Weights{
			Layers: map[string][]float64{
				"dense": {scale, scale * 2},
			},
			Biases: map[string][]float64{
				"dense": {scale * 3},
			},
		}
	}
	updates := []model.Update{
		{NodeID: "a", RoundNumber: 1, Weights: layered(1), NumSamples: 10},
		{NodeID: "b", RoundNumber: 1, Weights: layered(3), NumSamples: 10},
	}

	result := aggregator.NewFedAvg().Aggregate(context.Background(), updates, nil)
	require.True(t, result.Success)

	w := result.GlobalModel.Weights
	assert.InDelta(t, 2.0, w.Layers["dense"][0], 1e-9)
	assert.InDelta(t, 4.0, w.Layers["dense"][1], 1e-9)
	assert.InDelta(t, 6.0, w.Biases["dense"][0], 1e-9)
}
