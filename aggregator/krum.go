package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/stats"
)

// Krum selects the update closest to its k nearest neighbors, tolerating up
// to f Byzantine nodes given n >= 2f+3 participants. With multiKrum enabled
// it sample-weight-averages the m lowest-scored updates instead.
type Krum struct {
	f         int
	multiKrum bool
	m         int
	backend   stats.DistanceBackend
}

func NewKrum(f int, multiKrum bool, m int) Aggregator {
	if f < 1 {
		f = 1
	}
	if m < 1 {
		m = 1
	}

	return &Krum{f: f, multiKrum: multiKrum, m: m, backend: stats.LoopBackend{}}
}

func (a *Krum) Aggregate(_ context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult {
	start := time.Now()

	return krumAggregate(start, a.backend, updates, previous, a.f, a.multiKrum, a.m, fmt.Sprintf("krum_f%d", a.f))
}

type scoredUpdate struct {
	score float64
	index int
}

// krumScores sums, for each update, its k = n-f-2 smallest distances to the
// others. The returned slice is sorted ascending with ties broken by index.
func krumScores(distances [][]float64, f int) []scoredUpdate {
	n := len(distances)
	k := n - f - 2

	scores := make([]scoredUpdate, n)
	for i := 0; i < n; i++ {
		dists := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if i != j {
				dists = append(dists, distances[i][j])
			}
		}
		sort.Float64s(dists)

		var score float64
		for _, d := range dists[:k] {
			score += d
		}
		scores[i] = scoredUpdate{score: score, index: i}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score < scores[j].score
		}

		return scores[i].index < scores[j].index
	})

	return scores
}

// krumAggregate is shared by Krum and EnhancedKrum; only the distance backend
// and the effective f differ.
func krumAggregate(start time.Time, backend stats.DistanceBackend, updates []model.Update, previous *model.GlobalModel, f int, multiKrum bool, m int, method string) model.AggregationResult {
	n := len(updates)

	minRequired := 2*f + 3
	if n < minRequired {
		return failure(start, fmt.Sprintf("krum requires at least %d updates, got %d", minRequired, n))
	}

	vectors, err := flatVectors(updates)
	if err != nil {
		return failure(start, err.Error())
	}

	distances, err := backend.Pairwise(vectors)
	if err != nil {
		// The vectorized backend shares the loop backend's error conditions,
		// but fall back anyway so a backend fault never sinks the round.
		if distances, err = (stats.LoopBackend{}).Pairwise(vectors); err != nil {
			return failure(start, err.Error())
		}
	}

	scores := krumScores(distances, f)

	// The f highest-scored updates are the most distant from the cohort.
	suspected := make([]string, 0, f)
	for i := 0; i < f; i++ {
		suspected = append(suspected, updates[scores[n-1-i].index].NodeID)
	}

	var avg []float64
	var accepted int
	if multiKrum {
		selectCount := m
		if max := n - f; selectCount > max {
			selectCount = max
		}
		selectedVectors := make([][]float64, selectCount)
		selectedWeights := make([]float64, selectCount)
		for i := 0; i < selectCount; i++ {
			idx := scores[i].index
			selectedVectors[i] = vectors[idx]
			selectedWeights[i] = updates[idx].SampleWeight()
		}
		if avg, err = stats.WeightedAverage(selectedVectors, selectedWeights); err != nil {
			return failure(start, err.Error())
		}
		accepted = selectCount
	} else {
		avg = vectors[scores[0].index]
		accepted = 1
	}

	newWeights, err := rebuild(updates[0].Weights, avg)
	if err != nil {
		return failure(start, err.Error())
	}

	gm := newGlobalModel(updates, previous, newWeights, accepted, method)

	return model.AggregationResult{
		Success:                true,
		GlobalModel:            &gm,
		UpdatesReceived:        n,
		UpdatesAccepted:        accepted,
		UpdatesRejected:        n - accepted,
		SuspectedByzantine:     suspected,
		AggregationTimeSeconds: time.Since(start).Seconds(),
	}
}
