package privacy

import (
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Clipper bounds the L2 norm of gradient vectors by rescaling, never by
// truncation. It tracks the fraction of calls that actually clipped.
type Clipper struct {
	mu      sync.Mutex
	maxNorm float64
	calls   int
	clipped int
}

func NewClipper(maxNorm float64) *Clipper {
	if maxNorm <= 0 {
		maxNorm = 1.0
	}

	return &Clipper{maxNorm: maxNorm}
}

// Clip returns a copy of v with L2 norm at most the configured bound, along
// with the original norm for reporting.
func (c *Clipper) Clip(v []float64) ([]float64, float64) {
	out := append([]float64(nil), v...)
	norm := floats.Norm(out, 2)

	c.mu.Lock()
	c.calls++
	if norm > c.maxNorm {
		c.clipped++
	}
	c.mu.Unlock()

	if norm > c.maxNorm {
		floats.Scale(c.maxNorm/norm, out)
	}

	return out, norm
}

func (c *Clipper) MaxNorm() float64 {
	return c.maxNorm
}

// ClipRate is the fraction of Clip calls that rescaled their input.
func (c *Clipper) ClipRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.calls == 0 {
		return 0
	}

	return float64(c.clipped) / float64(c.calls)
}
