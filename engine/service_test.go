package engine_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbinefl/turbine/aggregator"
	"github.com/turbinefl/turbine/engine"
	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/modelsync"
	pkgerrors "github.com/turbinefl/turbine/pkg/errors"
)

func updates(n, round int) []model.Update {
	out := make([]model.Update, n)
	for i := 0; i < n; i++ {
		v := float64(i + round)
		out[i] = model.Update{
			NodeID:      fmt.Sprintf("node-%d", i),
			RoundNumber: round,
			Weights:     model.FlatWeights([]float64{v, v}),
			NumSamples:  10,
		}
	}

	return out
}

func TestServiceAggregateAdoptsResult(t *testing.T) {
	t.Parallel()

	svc := engine.NewService(nil)
	ctx := context.Background()

	_, err := svc.GetCurrentModel(ctx)
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)

	result, err := svc.Aggregate(ctx, engine.AggregationRequest{
		Method:  "fedavg",
		Updates: updates(3, 1),
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	version, err := svc.GetModelVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	current, err := svc.GetCurrentModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.GlobalModel.WeightsHash, current.WeightsHash)

	// The next round chains off the adopted model.
	second, err := svc.Aggregate(ctx, engine.AggregationRequest{
		Method:  "fedavg",
		Updates: updates(3, 2),
	})
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.Equal(t, 2, second.GlobalModel.Version)
	assert.Equal(t, result.GlobalModel.WeightsHash, second.GlobalModel.PreviousHash)
}

func TestServiceFailedRoundLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	svc := engine.NewService(nil)
	ctx := context.Background()

	result, err := svc.Aggregate(ctx, engine.AggregationRequest{
		Method:  "krum",
		Config:  aggregator.Config{F: 1},
		Updates: updates(3, 1), // below the 2f+3 quorum
	})
	require.NoError(t, err)
	assert.False(t, result.Success)

	version, err := svc.GetModelVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestServiceUnknownMethodIsError(t *testing.T) {
	t.Parallel()

	svc := engine.NewService(nil)

	_, err := svc.Aggregate(context.Background(), engine.AggregationRequest{
		Method:  "bogus",
		Updates: updates(3, 1),
	})
	require.ErrorIs(t, err, aggregator.ErrUnknownMethod)
}

func TestServiceAdaptiveDefault(t *testing.T) {
	t.Parallel()

	svc := engine.NewService(nil)

	result, err := svc.Aggregate(context.Background(), engine.AggregationRequest{
		Updates: updates(2, 1),
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.Diagnostics)
	assert.Equal(t, "fedavg", result.Diagnostics.SelectedStrategy)

	stats, err := svc.StrategyStats(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, stats.SelectorUsage["fedavg"], 1e-9)
	assert.Len(t, stats.Selections, 1)
}

func TestServiceStatefulStrategiesKeepCounters(t *testing.T) {
	t.Parallel()

	svc := engine.NewService(nil)
	ctx := context.Background()

	for round := 1; round <= 2; round++ {
		result, err := svc.Aggregate(ctx, engine.AggregationRequest{
			Method:  "enhanced_krum",
			Config:  aggregator.Config{F: 1},
			Updates: updates(6, round),
		})
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	stats, err := svc.StrategyStats(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats.EnhancedKrum)
	assert.Equal(t, 2, stats.EnhancedKrum.TotalRounds)
}

func TestServiceReceiveAndRollback(t *testing.T) {
	t.Parallel()

	svc := engine.NewService(nil)
	ctx := context.Background()

	m1 := model.GlobalModel{Version: 1, Weights: model.FlatWeights([]float64{1})}.Seal()
	m2 := model.GlobalModel{Version: 2, Weights: model.FlatWeights([]float64{2})}.Seal()

	adopted, err := svc.ReceiveGlobalModel(ctx, m1, "peer")
	require.NoError(t, err)
	assert.True(t, adopted)

	adopted, err = svc.ReceiveGlobalModel(ctx, m2, "peer")
	require.NoError(t, err)
	assert.True(t, adopted)

	// Stale delivery is rejected without error.
	adopted, err = svc.ReceiveGlobalModel(ctx, m1, "peer")
	require.NoError(t, err)
	assert.False(t, adopted)

	require.NoError(t, svc.Rollback(ctx, 1))
	version, err := svc.GetModelVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	require.ErrorIs(t, svc.Rollback(ctx, 42), modelsync.ErrVersionNotRetained)

	state, err := svc.GetSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, modelsync.StatusActive, state.Status)
	assert.Equal(t, 2, state.NodeVersions["peer"])
}

func TestServiceResolveConflicts(t *testing.T) {
	t.Parallel()

	svc := engine.NewService(nil)
	ctx := context.Background()

	err := svc.ResolveConflicts(ctx, nil, modelsync.Merge)
	require.ErrorIs(t, err, modelsync.ErrMergeUnsupported)

	require.NoError(t, svc.ResolveConflicts(ctx, nil, modelsync.PreferGlobal))
}
