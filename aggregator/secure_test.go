package aggregator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbinefl/turbine/aggregator"
	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/privacy"
)

func TestSecureFedAvgSpendsBudget(t *testing.T) {
	t.Parallel()

	cfg := privacy.Config{
		TargetEpsilon: 1.0,
		MaxRounds:     10,
	}
	agg := aggregator.NewSecureFedAvg(cfg, true, 42)

	updates := []model.Update{
		update("a", 1, []float64{1, 2}, 100),
		update("b", 1, []float64{2, 1}, 100),
	}

	result := agg.Aggregate(context.Background(), updates, nil)
	require.True(t, result.Success)
	require.NotNil(t, result.PrivacyEpsilonSpent)
	require.NotNil(t, result.PrivacyBudgetRemaining)
	assert.InDelta(t, 0.1, *result.PrivacyEpsilonSpent, 1e-9)
	assert.InDelta(t, 0.9, *result.PrivacyBudgetRemaining, 1e-9)

	// Remaining budget shrinks monotonically round over round.
	prev := *result.PrivacyBudgetRemaining
	for i := 0; i < 9; i++ {
		r := agg.Aggregate(context.Background(), updates, nil)
		require.True(t, r.Success)
		assert.Less(t, *r.PrivacyBudgetRemaining, prev+1e-12)
		prev = *r.PrivacyBudgetRemaining
	}

	assert.False(t, agg.CanContinueTraining())
	assert.Equal(t, 10, agg.Budget().RoundsParticipated())
}

func TestSecureFedAvgWithoutDP(t *testing.T) {
	t.Parallel()

	agg := aggregator.NewSecureFedAvg(privacy.Config{}, false, 42)

	updates := []model.Update{
		update("a", 1, []float64{1, 2}, 100),
		update("b", 1, []float64{2, 1}, 100),
	}

	result := agg.Aggregate(context.Background(), updates, nil)
	require.True(t, result.Success)
	assert.Nil(t, result.PrivacyEpsilonSpent)
	assert.Nil(t, result.PrivacyBudgetRemaining)
	assert.True(t, agg.CanContinueTraining())
	assert.Equal(t, 0.0, agg.Budget().EpsilonSpent())
}

func TestSecureAggregationClipsGradients(t *testing.T) {
	t.Parallel()

	// DP off still clips; with two identical oversized updates the result is
	// the clipped vector itself.
	agg := aggregator.NewSecureFedAvg(privacy.Config{MaxGradNorm: 1.0}, false, 42)

	updates := []model.Update{
		update("a", 1, []float64{30, 40}, 100),
		update("b", 1, []float64{30, 40}, 100),
	}

	result := agg.Aggregate(context.Background(), updates, nil)
	require.True(t, result.Success)

	flat := result.GlobalModel.Weights.Flatten()
	assert.InDelta(t, 0.6, flat[0], 1e-9)
	assert.InDelta(t, 0.8, flat[1], 1e-9)
	assert.InDelta(t, 1.0, agg.Engine().Clipper().ClipRate(), 1e-9)
}

func TestSecureKrumKeepsRobustness(t *testing.T) {
	t.Parallel()

	// Clipping bounds every vector to the same norm, but Krum still runs its
	// selection on the prepared updates and succeeds at quorum.
	agg := aggregator.NewSecureKrum(1, false, 1, privacy.Config{}, false, 42)

	result := agg.Aggregate(context.Background(), honestCohort(5, 1), nil)
	require.True(t, result.Success)
	assert.Len(t, result.SuspectedByzantine, 1)

	short := agg.Aggregate(context.Background(), honestCohort(4, 1), nil)
	assert.False(t, short.Success)
	assert.Contains(t, short.ErrorMessage, "at least")
}

func TestSecureDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	updates := []model.Update{
		update("a", 1, []float64{1, 2}, 100),
		update("b", 1, []float64{2, 1}, 100),
	}

	r1 := aggregator.NewSecureFedAvg(privacy.Config{}, true, 42).Aggregate(context.Background(), updates, nil)
	r2 := aggregator.NewSecureFedAvg(privacy.Config{}, true, 42).Aggregate(context.Background(), updates, nil)
	require.True(t, r1.Success)
	require.True(t, r2.Success)
	assert.Equal(t, r1.GlobalModel.Weights.Flatten(), r2.GlobalModel.Weights.Flatten())
}

func TestSecureEmptyUpdatesFails(t *testing.T) {
	t.Parallel()

	result := aggregator.NewSecureFedAvg(privacy.Config{}, true, 42).Aggregate(context.Background(), nil, nil)
	assert.False(t, result.Success)
	assert.Nil(t, result.PrivacyEpsilonSpent)
}
