package model

import "time"

// Update is one node's local model update for a round. Updates are immutable
// once built; clipped or noised variants are produced with WithWeights.
type Update struct {
	NodeID           string    `json:"node_id" cbor:"node_id"`
	RoundNumber      int       `json:"round_number" cbor:"round_number"`
	Weights          Weights   `json:"weights" cbor:"weights"`
	NumSamples       int       `json:"num_samples" cbor:"num_samples"`
	TrainingLoss     float64   `json:"training_loss" cbor:"training_loss"`
	ValidationLoss   float64   `json:"validation_loss" cbor:"validation_loss"`
	GradientNorm     float64   `json:"gradient_norm,omitempty" cbor:"gradient_norm,omitempty"`
	GradientVariance float64   `json:"gradient_variance,omitempty" cbor:"gradient_variance,omitempty"`
	NoiseScale       float64   `json:"noise_scale,omitempty" cbor:"noise_scale,omitempty"`
	ClipNorm         float64   `json:"clip_norm,omitempty" cbor:"clip_norm,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitzero" cbor:"timestamp,omitempty"`
}

// SampleWeight is the averaging weight of this update. Every divisor use of
// num_samples across the module goes through this floor.
func (u Update) SampleWeight() float64 {
	if u.NumSamples < 1 {
		return 1
	}

	return float64(u.NumSamples)
}

// WithWeights returns a copy of the update carrying new weights.
func (u Update) WithWeights(w Weights) Update {
	u.Weights = w

	return u
}
