package aggregator

import (
	"context"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/privacy"
)

// secureWrapper implements the shared clip→noise→delegate→spend flow of the
// privacy-preserving strategies. Disabling DP skips noising and budget
// accounting entirely; clipping still bounds sensitivity.
//
// Reference: "Deep Learning with Differential Privacy" (Abadi et al., 2016).
type secureWrapper struct {
	base     Aggregator
	engine   *privacy.Engine
	enableDP bool
}

// NewSecureFedAvg wraps FedAvg with gradient clipping, calibrated Gaussian
// noise and privacy-budget accounting.
func NewSecureFedAvg(cfg privacy.Config, enableDP bool, seed uint64) *SecureAggregator {
	return newSecure(NewFedAvg(), cfg, enableDP, seed)
}

// NewSecureKrum combines Byzantine-robust selection with differential privacy.
func NewSecureKrum(f int, multiKrum bool, m int, cfg privacy.Config, enableDP bool, seed uint64) *SecureAggregator {
	return newSecure(NewKrum(f, multiKrum, m), cfg, enableDP, seed)
}

// SecureAggregator is the concrete privacy-preserving wrapper type. It
// exposes the underlying engine so callers can check the advisory budget
// before starting a round.
type SecureAggregator struct {
	secureWrapper
}

func newSecure(base Aggregator, cfg privacy.Config, enableDP bool, seed uint64) *SecureAggregator {
	return &SecureAggregator{secureWrapper{
		base:     base,
		engine:   privacy.NewEngine(cfg, seed),
		enableDP: enableDP,
	}}
}

func (a *SecureAggregator) Aggregate(ctx context.Context, updates []model.Update, previous *model.GlobalModel) model.AggregationResult {
	start := time.Now()

	if len(updates) == 0 {
		return failure(start, "no updates to aggregate")
	}

	prepared := make([]model.Update, len(updates))
	for i, u := range updates {
		flat := u.Weights.Flatten()

		var originalNorm float64
		if a.enableDP {
			flat, originalNorm = a.engine.Privatize(flat, u.NumSamples)
		} else {
			flat, originalNorm = a.engine.Clipper().Clip(flat)
		}

		w, err := rebuild(u.Weights, flat)
		if err != nil {
			return failure(start, err.Error())
		}
		prepared[i] = u.WithWeights(w)
		prepared[i].GradientNorm = originalNorm
		prepared[i].ClipNorm = a.engine.Clipper().MaxNorm()
		if a.enableDP {
			prepared[i].NoiseScale = a.engine.Config().NoiseMultiplier
		}
	}

	result := a.base.Aggregate(ctx, prepared, previous)

	if a.enableDP && result.Success {
		spent := a.engine.RecordRound()
		remaining := a.engine.Budget().Remaining(a.engine.Config().TargetEpsilon)
		result.PrivacyEpsilonSpent = &spent
		result.PrivacyBudgetRemaining = &remaining
	}

	return result
}

// CanContinueTraining is advisory: it flips to false once the budget is
// exhausted, but aggregation itself keeps functioning.
func (a *SecureAggregator) CanContinueTraining() bool {
	if !a.enableDP {
		return true
	}

	return a.engine.CanContinueTraining()
}

func (a *SecureAggregator) Budget() *privacy.Budget {
	return a.engine.Budget()
}

func (a *SecureAggregator) Engine() *privacy.Engine {
	return a.engine
}
