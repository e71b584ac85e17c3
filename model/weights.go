package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	pkgerrors "github.com/turbinefl/turbine/pkg/errors"
)

// Weights holds per-layer weight and bias vectors. Flattening always walks
// layer names in lexicographic order, weights before biases per layer, so the
// resulting vector and its hash are deterministic for equal content.
type Weights struct {
	Layers   map[string][]float64 `json:"layers" cbor:"layers"`
	Biases   map[string][]float64 `json:"biases,omitempty" cbor:"biases,omitempty"`
	Metadata map[string]string    `json:"metadata,omitempty" cbor:"metadata,omitempty"`
}

// LayerShape is the per-layer size table required to reconstruct a flat vector.
type LayerShape struct {
	Weights int `json:"weights" cbor:"weights"`
	Biases  int `json:"biases" cbor:"biases"`
}

type Shapes map[string]LayerShape

func (w Weights) LayerNames() []string {
	names := make([]string, 0, len(w.Layers))
	for name := range w.Layers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Flatten serializes all layers into a single vector, lexicographic layer
// order, weights then biases.
func (w Weights) Flatten() []float64 {
	flat := make([]float64, 0, w.Dim())
	for _, name := range w.LayerNames() {
		flat = append(flat, w.Layers[name]...)
		flat = append(flat, w.Biases[name]...)
	}

	return flat
}

// Dim returns the length of the flattened vector.
func (w Weights) Dim() int {
	n := 0
	for _, v := range w.Layers {
		n += len(v)
	}
	for _, b := range w.Biases {
		n += len(b)
	}

	return n
}

// Shapes returns the size table needed to reconstruct a flattened copy.
func (w Weights) Shapes() Shapes {
	shapes := make(Shapes, len(w.Layers))
	for name, v := range w.Layers {
		shapes[name] = LayerShape{Weights: len(v), Biases: len(w.Biases[name])}
	}

	return shapes
}

// Reconstruct rebuilds Weights from a flat vector and the size table used to
// flatten it. Any dimension mismatch is a hard error, never a truncation.
func Reconstruct(flat []float64, shapes Shapes) (Weights, error) {
	names := make([]string, 0, len(shapes))
	total := 0
	for name, s := range shapes {
		names = append(names, name)
		total += s.Weights + s.Biases
	}
	if total != len(flat) {
		return Weights{}, fmt.Errorf("%w: shapes require %d values, vector has %d", pkgerrors.ErrDimensionMismatch, total, len(flat))
	}
	sort.Strings(names)

	w := Weights{
		Layers: make(map[string][]float64, len(shapes)),
		Biases: make(map[string][]float64),
	}
	idx := 0
	for _, name := range names {
		s := shapes[name]
		w.Layers[name] = append([]float64(nil), flat[idx:idx+s.Weights]...)
		idx += s.Weights
		if s.Biases > 0 {
			w.Biases[name] = append([]float64(nil), flat[idx:idx+s.Biases]...)
			idx += s.Biases
		}
	}

	return w, nil
}

// FlatWeights wraps a bare vector into a single-layer Weights value.
func FlatWeights(flat []float64) Weights {
	return Weights{Layers: map[string][]float64{"flat": append([]float64(nil), flat...)}}
}

// Hash returns the hex SHA-256 of the flattened content encoded as fixed-width
// big-endian IEEE-754 floats. It changes iff any float changes and is used for
// both result verification and model-chain integrity.
func (w Weights) Hash() string {
	h := sha256.New()
	var buf [8]byte
	for _, v := range w.Flatten() {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}

	return hex.EncodeToString(h.Sum(nil))
}

func (w Weights) Clone() Weights {
	c := Weights{}
	if w.Layers != nil {
		c.Layers = make(map[string][]float64, len(w.Layers))
		for k, v := range w.Layers {
			c.Layers[k] = append([]float64(nil), v...)
		}
	}
	if w.Biases != nil {
		c.Biases = make(map[string][]float64, len(w.Biases))
		for k, v := range w.Biases {
			c.Biases[k] = append([]float64(nil), v...)
		}
	}
	if w.Metadata != nil {
		c.Metadata = make(map[string]string, len(w.Metadata))
		for k, v := range w.Metadata {
			c.Metadata[k] = v
		}
	}

	return c
}

func (w Weights) IsEmpty() bool {
	return w.Dim() == 0
}
