package model

// Diagnostics carries optional strategy-produced metrics on a result. The
// schema is fixed; strategies populate the fields they compute.
type Diagnostics struct {
	MeanVariance     float64 `json:"mean_variance,omitempty" cbor:"mean_variance,omitempty"`
	SelectedStrategy string  `json:"selected_strategy,omitempty" cbor:"selected_strategy,omitempty"`
	AdaptedF         int     `json:"adapted_f,omitempty" cbor:"adapted_f,omitempty"`
	AdaptedBeta      float64 `json:"adapted_beta,omitempty" cbor:"adapted_beta,omitempty"`
	OutlierCount     int     `json:"outlier_count,omitempty" cbor:"outlier_count,omitempty"`
}

// AggregationResult is the outcome of a single aggregation call. On failure it
// carries only the error message, never a partial model.
type AggregationResult struct {
	Success                bool         `json:"success" cbor:"success"`
	GlobalModel            *GlobalModel `json:"global_model,omitempty" cbor:"global_model,omitempty"`
	UpdatesReceived        int          `json:"updates_received" cbor:"updates_received"`
	UpdatesAccepted        int          `json:"updates_accepted" cbor:"updates_accepted"`
	UpdatesRejected        int          `json:"updates_rejected" cbor:"updates_rejected"`
	SuspectedByzantine     []string     `json:"suspected_byzantine,omitempty" cbor:"suspected_byzantine,omitempty"`
	ErrorMessage           string       `json:"error_message,omitempty" cbor:"error_message,omitempty"`
	AggregationTimeSeconds float64      `json:"aggregation_time_seconds" cbor:"aggregation_time_seconds"`
	PrivacyEpsilonSpent    *float64     `json:"privacy_epsilon_spent,omitempty" cbor:"privacy_epsilon_spent,omitempty"`
	PrivacyBudgetRemaining *float64     `json:"privacy_budget_remaining,omitempty" cbor:"privacy_budget_remaining,omitempty"`
	Diagnostics            *Diagnostics `json:"diagnostics,omitempty" cbor:"diagnostics,omitempty"`
}
