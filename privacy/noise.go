package privacy

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"sync"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidPrivacyParams = errors.New("epsilon and delta must be positive")

// GaussianNoise draws zero-mean Gaussian noise from a seedable source, so a
// fixed seed makes the whole privatization path deterministic.
type GaussianNoise struct {
	mu   sync.Mutex
	dist distuv.Normal
}

// NewGaussianNoise builds a generator with the given standard deviation. A
// zero seed draws one from crypto/rand, the non-deterministic production
// default.
func NewGaussianNoise(sigma float64, seed uint64) *GaussianNoise {
	if seed == 0 {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err == nil {
			seed = binary.BigEndian.Uint64(buf[:])
		}
	}

	return &GaussianNoise{
		dist: distuv.Normal{Mu: 0, Sigma: sigma, Src: exprand.NewSource(seed)},
	}
}

// Add returns a copy of v with noise added, scaled by the extra factor on top
// of the generator's base sigma.
func (g *GaussianNoise) Add(v []float64, scale float64) []float64 {
	out := append([]float64(nil), v...)

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range out {
		out[i] += g.dist.Rand() * scale
	}

	return out
}

// CalibrateNoise returns the Gaussian sigma satisfying (epsilon, delta)-DP for
// the given L2 sensitivity. Sigma decreases as epsilon grows: stronger privacy
// demands more noise.
func CalibrateNoise(sensitivity, epsilon, delta float64) (float64, error) {
	if epsilon <= 0 || delta <= 0 {
		return 0, ErrInvalidPrivacyParams
	}

	return sensitivity * math.Sqrt(2*math.Log(1.25/delta)) / epsilon, nil
}
