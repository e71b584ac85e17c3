package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	pkgerrors "github.com/turbinefl/turbine/pkg/errors"
)

// DistanceBackend computes a symmetric pairwise Euclidean distance matrix.
// Capability is resolved once at construction; strategies hold a concrete
// backend instead of branching inside aggregation loops.
type DistanceBackend interface {
	Pairwise(vectors [][]float64) ([][]float64, error)
}

// NewBackend returns the vectorized gonum backend.
func NewBackend() DistanceBackend {
	return gonumBackend{}
}

// LoopBackend is the plain O(n²) reference implementation and the fallback
// when the vectorized path cannot serve.
type LoopBackend struct{}

func (LoopBackend) Pairwise(vectors [][]float64) ([][]float64, error) {
	n := len(vectors)
	distances := newMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := Euclidean(vectors[i], vectors[j])
			if err != nil {
				return nil, err
			}
			distances[i][j] = d
			distances[j][i] = d
		}
	}

	return distances, nil
}

type gonumBackend struct{}

func (gonumBackend) Pairwise(vectors [][]float64) ([][]float64, error) {
	n := len(vectors)
	distances := newMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if len(vectors[i]) != len(vectors[j]) {
				return nil, fmt.Errorf("%w: %d != %d", pkgerrors.ErrDimensionMismatch, len(vectors[i]), len(vectors[j]))
			}
			d := floats.Distance(vectors[i], vectors[j], 2)
			distances[i][j] = d
			distances[j][i] = d
		}
	}

	return distances, nil
}

func newMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}

	return m
}

// Euclidean returns the L2 distance between two equal-length vectors.
func Euclidean(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", pkgerrors.ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Sqrt(sum), nil
}

// WeightedAverage averages vectors by the given weights, normalizing by the
// total weight. A zero total weight is floored at 1 so the call never divides
// by zero.
func WeightedAverage(vectors [][]float64, weights []float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, pkgerrors.ErrEmptyUpdates
	}
	if len(vectors) != len(weights) {
		return nil, fmt.Errorf("%w: %d vectors, %d weights", pkgerrors.ErrDimensionMismatch, len(vectors), len(weights))
	}

	total := floats.Sum(weights)
	if total == 0 {
		total = 1.0
	}

	dim := len(vectors[0])
	result := make([]float64, dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d values, want %d", pkgerrors.ErrDimensionMismatch, i, len(vec), dim)
		}
		floats.AddScaled(result, weights[i]/total, vec)
	}

	return result, nil
}

// Median returns the coordinate median: the middle value, or the average of
// the two middle values for even input.
func Median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}

// TrimmedMean sorts the values, drops trim entries from each end and averages
// the remainder. With trim <= 0 it is the plain mean.
func TrimmedMean(values []float64, trim int) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if trim > 0 && len(sorted) > 2*trim {
		sorted = sorted[trim : len(sorted)-trim]
	}

	return stat.Mean(sorted, nil)
}

// MeanVariance returns the mean per-coordinate variance across vectors,
// computed over at most sampleDims leading dimensions. sampleDims <= 0 means
// all dimensions.
func MeanVariance(vectors [][]float64, sampleDims int) float64 {
	if len(vectors) < 2 {
		return 0
	}
	dim := len(vectors[0])
	if sampleDims > 0 && sampleDims < dim {
		dim = sampleDims
	}
	if dim == 0 {
		return 0
	}

	column := make([]float64, len(vectors))
	var sum float64
	for d := 0; d < dim; d++ {
		for i, v := range vectors {
			column[i] = v[d]
		}
		sum += stat.Variance(column, nil)
	}

	return sum / float64(dim)
}
