package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turbinefl/turbine/pkg/stats"
)

func TestDetectOutliers(t *testing.T) {
	t.Parallel()

	honest := [][]float64{
		{1.0, 1.0},
		{1.1, 0.9},
		{0.9, 1.1},
		{1.05, 0.95},
		{0.95, 1.05},
	}
	withOutlier := append(append([][]float64{}, honest...), []float64{1000, 2000})

	tests := []struct {
		name    string
		vectors [][]float64
		method  stats.OutlierMethod
		want    []int
	}{
		{name: "iqr flags extreme vector", vectors: withOutlier, method: stats.OutlierIQR, want: []int{5}},
		{name: "mad flags extreme vector", vectors: withOutlier, method: stats.OutlierMAD, want: []int{5}},
		{name: "iqr clean cohort", vectors: honest, method: stats.OutlierIQR, want: []int{}},
		{name: "too few vectors", vectors: honest[:2], method: stats.OutlierIQR, want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := stats.DetectOutliers(tt.vectors, tt.method)
			if len(tt.want) == 0 {
				assert.Empty(t, got)

				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectOutliersZScoreResistsSinglePoint(t *testing.T) {
	t.Parallel()

	// With only six points one extreme value inflates the standard deviation,
	// so the z-score rule is the least sensitive of the three. It must still
	// never flag an honest member of a tight cohort.
	vectors := [][]float64{
		{1.0}, {1.1}, {0.9}, {1.05}, {0.95}, {1000},
	}
	got := stats.DetectOutliers(vectors, stats.OutlierZScore)
	for _, idx := range got {
		assert.Equal(t, 5, idx)
	}
}
