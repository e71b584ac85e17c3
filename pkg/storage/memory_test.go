package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbinefl/turbine/model"
	pkgerrors "github.com/turbinefl/turbine/pkg/errors"
	"github.com/turbinefl/turbine/pkg/storage"
)

func pushModel(h storage.History, version int) {
	h.Push(model.GlobalModel{
		Version: version,
		Weights: model.FlatWeights([]float64{float64(version)}),
	}.Seal())
}

func TestHistoryPushAndGet(t *testing.T) {
	t.Parallel()

	h := storage.NewInMemoryHistory(5)
	assert.Equal(t, 0, h.Len())

	_, err := h.Latest()
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)

	for v := 1; v <= 3; v++ {
		pushModel(h, v)
	}

	got, err := h.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	latest, err := h.Latest()
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)

	_, err = h.Get(42)
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestHistoryEvictsOldest(t *testing.T) {
	t.Parallel()

	h := storage.NewInMemoryHistory(3)
	for v := 1; v <= 5; v++ {
		pushModel(h, v)
	}

	assert.Equal(t, 3, h.Len())
	_, err := h.Get(1)
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
	_, err = h.Get(3)
	require.NoError(t, err)

	models := h.List()
	require.Len(t, models, 3)
	assert.Equal(t, 3, models[0].Version)
	assert.Equal(t, 5, models[2].Version)
}

func TestHistoryStoresClones(t *testing.T) {
	t.Parallel()

	h := storage.NewInMemoryHistory(3)
	m := model.GlobalModel{
		Version: 1,
		Weights: model.FlatWeights([]float64{1}),
	}.Seal()
	h.Push(m)

	// Mutating the caller's copy must not leak into retained history.
	m.Weights.Layers["flat"][0] = 99
	got, err := h.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, got.Weights.Flatten())
}
