package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// OutlierMethod selects the detection rule applied per coordinate.
type OutlierMethod string

const (
	OutlierIQR    OutlierMethod = "iqr"
	OutlierZScore OutlierMethod = "zscore"
	OutlierMAD    OutlierMethod = "mad"
)

const madEpsilon = 1e-8

// DetectOutliers flags vectors with any coordinate outside the chosen rule's
// bounds. It returns sorted unique indices; fewer than 3 vectors yield none.
func DetectOutliers(vectors [][]float64, method OutlierMethod) []int {
	n := len(vectors)
	if n < 3 {
		return nil
	}

	flagged := make(map[int]struct{})
	dim := len(vectors[0])
	column := make([]float64, n)

	for d := 0; d < dim; d++ {
		for i, v := range vectors {
			column[i] = v[d]
		}

		switch method {
		case OutlierZScore:
			mean := stat.Mean(column, nil)
			std := stat.StdDev(column, nil)
			for i, v := range column {
				if math.Abs(v-mean)/(std+madEpsilon) > 3.0 {
					flagged[i] = struct{}{}
				}
			}
		case OutlierMAD:
			med := Median(column)
			devs := make([]float64, n)
			for i, v := range column {
				devs[i] = math.Abs(v - med)
			}
			mad := Median(devs)
			for i := range column {
				if devs[i]/(mad+madEpsilon) > 3.0 {
					flagged[i] = struct{}{}
				}
			}
		default: // IQR
			sorted := append([]float64(nil), column...)
			sort.Float64s(sorted)
			q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
			q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
			iqr := q3 - q1
			lower, upper := q1-1.5*iqr, q3+1.5*iqr
			for i, v := range column {
				if v < lower || v > upper {
					flagged[i] = struct{}{}
				}
			}
		}
	}

	out := make([]int, 0, len(flagged))
	for i := range flagged {
		out = append(out, i)
	}
	sort.Ints(out)

	return out
}
