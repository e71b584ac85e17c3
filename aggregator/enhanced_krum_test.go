package aggregator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbinefl/turbine/aggregator"
	"github.com/turbinefl/turbine/model"
)

func TestEnhancedKrumByzantineScenario(t *testing.T) {
	t.Parallel()

	updates := make([]model.Update, 0, 6)
	for i := 0; i < 5; i++ {
		v := float64(i)
		updates = append(updates, update(nodeName(i), 1, []float64{v, v}, 10))
	}
	updates = append(updates, update("byzantine", 1, []float64{1000, 2000}, 10))

	agg := aggregator.NewEnhancedKrum(aggregator.EnhancedKrumConfig{
		F:         1,
		MultiKrum: true,
		M:         3,
	})

	result := agg.Aggregate(context.Background(), updates, nil)
	require.True(t, result.Success)
	assert.Equal(t, 3, result.UpdatesAccepted)
	assert.Contains(t, result.SuspectedByzantine, "byzantine")

	// None of the accepted contributions can come from the Byzantine node:
	// the averaged result stays inside the honest coordinate range.
	flat := result.GlobalModel.Weights.Flatten()
	assert.Less(t, flat[0], 5.0)
	assert.Less(t, flat[1], 5.0)
}

func nodeName(i int) string {
	return string(rune('a' + i))
}

func TestEnhancedKrumAdaptiveF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		f           int
		trustScores map[string]float64
		expectedF   int
	}{
		{
			name:      "high trust lowers f",
			f:         2,
			expectedF: 1, // all nodes default to full trust
		},
		{
			name: "low trust raises f",
			f:    1,
			trustScores: map[string]float64{
				"a": 0.1, "b": 0.2, "c": 0.3, "d": 0.2, "e": 0.1, "f": 0.3, "g": 0.2, "h": 0.1, "i": 0.2,
			},
			expectedF: 2,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			agg := aggregator.NewEnhancedKrum(aggregator.EnhancedKrumConfig{
				F:           tt.f,
				AdaptiveF:   true,
				TrustScores: tt.trustScores,
			})

			updates := make([]model.Update, 9)
			for i := range updates {
				v := float64(i)
				updates[i] = update(nodeName(i), 1, []float64{v, v}, 10)
			}

			result := agg.Aggregate(context.Background(), updates, nil)
			require.True(t, result.Success)
			require.NotNil(t, result.Diagnostics)
			assert.Equal(t, tt.expectedF, result.Diagnostics.AdaptedF)
			assert.Len(t, result.SuspectedByzantine, tt.expectedF)
		})
	}
}

func TestEnhancedKrumStatsAccumulate(t *testing.T) {
	t.Parallel()

	agg := aggregator.NewEnhancedKrum(aggregator.EnhancedKrumConfig{F: 1})
	updates := honestCohort(6, 1)

	for i := 0; i < 3; i++ {
		result := agg.Aggregate(context.Background(), updates, nil)
		require.True(t, result.Success)
	}

	stats := agg.Stats()
	assert.Equal(t, 3, stats.TotalRounds)
	assert.Equal(t, 3, stats.ByzantineDetected) // f=1 suspicion per round
	assert.Greater(t, stats.AvgAggregationTime, 0.0)
}

func TestEnhancedKrumQuorumUsesBaseF(t *testing.T) {
	t.Parallel()

	agg := aggregator.NewEnhancedKrum(aggregator.EnhancedKrumConfig{F: 2, AdaptiveF: true})
	result := agg.Aggregate(context.Background(), honestCohort(6, 1), nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "at least 7")
}

func TestAdaptiveTrimmedMeanFiltersOutliers(t *testing.T) {
	t.Parallel()

	updates := []model.Update{
		update("a", 1, []float64{1.0, 1.0}, 10),
		update("b", 1, []float64{1.1, 0.9}, 10),
		update("c", 1, []float64{0.9, 1.1}, 10),
		update("d", 1, []float64{1.05, 0.95}, 10),
		update("byzantine", 1, []float64{1000, 2000}, 10),
	}

	agg := aggregator.NewAdaptiveTrimmedMean(aggregator.AdaptiveTrimmedMeanConfig{
		Beta:          0.1,
		OutlierMethod: "iqr",
	})

	result := agg.Aggregate(context.Background(), updates, nil)
	require.True(t, result.Success)
	require.NotNil(t, result.Diagnostics)
	assert.Equal(t, 1, result.Diagnostics.OutlierCount)

	// The filtered mean excludes the Byzantine vector entirely.
	flat := result.GlobalModel.Weights.Flatten()
	assert.Less(t, flat[0], 2.0)
	assert.Less(t, flat[1], 2.0)
}

func TestAdaptiveTrimmedMeanBetaAdaptation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		updates      []model.Update
		expectedBeta float64
	}{
		{
			name: "high variance raises beta",
			updates: []model.Update{
				update("a", 1, []float64{0}, 10),
				update("b", 1, []float64{100}, 10),
				update("c", 1, []float64{-100}, 10),
				update("d", 1, []float64{50}, 10),
			},
			expectedBeta: 0.15, // 0.1 * 1.5
		},
		{
			name: "low variance lowers beta",
			updates: []model.Update{
				update("a", 1, []float64{1.0}, 10),
				update("b", 1, []float64{1.01}, 10),
				update("c", 1, []float64{0.99}, 10),
				update("d", 1, []float64{1.0}, 10),
			},
			expectedBeta: 0.05, // 0.1 * 0.5 floored at 0.05
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			agg := aggregator.NewAdaptiveTrimmedMean(aggregator.AdaptiveTrimmedMeanConfig{
				Beta:         0.1,
				AdaptiveBeta: true,
			})

			result := agg.Aggregate(context.Background(), tt.updates, nil)
			require.True(t, result.Success)
			require.NotNil(t, result.Diagnostics)
			assert.InDelta(t, tt.expectedBeta, result.Diagnostics.AdaptedBeta, 1e-9)
		})
	}
}

func TestAdaptiveTrimmedMeanStatsAccumulate(t *testing.T) {
	t.Parallel()

	agg := aggregator.NewAdaptiveTrimmedMean(aggregator.AdaptiveTrimmedMeanConfig{Beta: 0.2})

	for i := 0; i < 2; i++ {
		result := agg.Aggregate(context.Background(), honestCohort(5, 1), nil)
		require.True(t, result.Success)
	}

	stats := agg.Stats()
	assert.Equal(t, 2, stats.TotalRounds)
	assert.InDelta(t, 2.0, stats.AvgTrimmed, 1e-9) // trim 1 per side on n=5
}
