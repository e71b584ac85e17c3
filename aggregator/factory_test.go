package aggregator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbinefl/turbine/aggregator"
)

func TestFactoryConstructsByName(t *testing.T) {
	t.Parallel()

	base := []string{"fedavg", "krum", "trimmed_mean", "median"}
	for _, method := range base {
		agg, err := aggregator.New(method, aggregator.Config{})
		require.NoError(t, err, method)
		require.NotNil(t, agg, method)
	}

	enhanced := append([]string{"enhanced_krum", "adaptive_trimmed_mean"}, base...)
	for _, method := range enhanced {
		agg, err := aggregator.NewEnhanced(method, aggregator.Config{})
		require.NoError(t, err, method)
		require.NotNil(t, agg, method)
	}

	secure := append([]string{"secure_fedavg", "secure_krum"}, enhanced...)
	for _, method := range secure {
		agg, err := aggregator.NewSecure(method, aggregator.Config{})
		require.NoError(t, err, method)
		require.NotNil(t, agg, method)
	}
}

func TestFactoryUnknownMethodFailsFast(t *testing.T) {
	t.Parallel()

	_, err := aggregator.New("bogus", aggregator.Config{})
	require.ErrorIs(t, err, aggregator.ErrUnknownMethod)

	_, err = aggregator.NewEnhanced("bogus", aggregator.Config{})
	require.ErrorIs(t, err, aggregator.ErrUnknownMethod)

	_, err = aggregator.NewSecure("bogus", aggregator.Config{})
	require.ErrorIs(t, err, aggregator.ErrUnknownMethod)
}

func TestFactoryPassesParameters(t *testing.T) {
	t.Parallel()

	beta := 0.6
	agg, err := aggregator.New("trimmed_mean", aggregator.Config{Beta: &beta})
	require.NoError(t, err)
	assert.Equal(t, 0.49, agg.(*aggregator.TrimmedMean).Beta())

	// Default beta applies when unset.
	agg, err = aggregator.New("trimmed_mean", aggregator.Config{})
	require.NoError(t, err)
	assert.Equal(t, 0.1, agg.(*aggregator.TrimmedMean).Beta())

	// Krum f is wired through to the quorum requirement.
	krum, err := aggregator.New("krum", aggregator.Config{F: 2})
	require.NoError(t, err)
	result := krum.Aggregate(context.Background(), honestCohort(6, 1), nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "at least 7")
}
