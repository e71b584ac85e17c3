package model

import "time"

// GlobalModel is one immutable snapshot per successful aggregation event.
// WeightsHash chains to the next model's PreviousHash, forming a
// tamper-evident version chain.
type GlobalModel struct {
	Version           int       `json:"version" cbor:"version"`
	RoundNumber       int       `json:"round_number" cbor:"round_number"`
	Weights           Weights   `json:"weights" cbor:"weights"`
	NumContributors   int       `json:"num_contributors" cbor:"num_contributors"`
	TotalSamples      int       `json:"total_samples" cbor:"total_samples"`
	AggregationMethod string    `json:"aggregation_method" cbor:"aggregation_method"`
	AvgTrainingLoss   float64   `json:"avg_training_loss" cbor:"avg_training_loss"`
	AvgValidationLoss float64   `json:"avg_validation_loss" cbor:"avg_validation_loss"`
	WeightsHash       string    `json:"weights_hash" cbor:"weights_hash"`
	PreviousHash      string    `json:"previous_hash,omitempty" cbor:"previous_hash,omitempty"`
	CreatedAt         time.Time `json:"created_at,omitzero" cbor:"created_at,omitempty"`
}

// Seal fills in the weights hash and creation time when absent. Aggregation
// strategies call it on every model they produce.
func (g GlobalModel) Seal() GlobalModel {
	if g.WeightsHash == "" {
		g.WeightsHash = g.Weights.Hash()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	return g
}

// VerifyHash reports whether the stored weights hash matches the weights. A
// model without a stored hash is vacuously consistent.
func (g GlobalModel) VerifyHash() bool {
	if g.WeightsHash == "" {
		return true
	}

	return g.WeightsHash == g.Weights.Hash()
}

func (g GlobalModel) Clone() GlobalModel {
	g.Weights = g.Weights.Clone()

	return g
}
