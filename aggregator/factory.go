package aggregator

import (
	"errors"
	"fmt"

	"github.com/turbinefl/turbine/pkg/stats"
	"github.com/turbinefl/turbine/privacy"
)

// ErrUnknownMethod is returned for unrecognized aggregation method names.
// Construction fails fast; there is no silent default.
var ErrUnknownMethod = errors.New("unknown aggregation method")

// Config carries the union of strategy parameters for name-keyed
// construction. Zero values take the strategy defaults (f=1, m=1, β=0.1).
type Config struct {
	F             int                 `json:"f,omitempty"`
	MultiKrum     bool                `json:"multi_krum,omitempty"`
	M             int                 `json:"m,omitempty"`
	Beta          *float64            `json:"beta,omitempty"`
	AdaptiveF     bool                `json:"adaptive_f,omitempty"`
	AdaptiveBeta  bool                `json:"adaptive_beta,omitempty"`
	OutlierMethod stats.OutlierMethod `json:"outlier_method,omitempty"`
	TrustScores   map[string]float64  `json:"trust_scores,omitempty"`
	DP            privacy.Config      `json:"dp,omitempty"`
	EnableDP      bool                `json:"enable_dp,omitempty"`
	NoiseSeed     uint64              `json:"noise_seed,omitempty"`
}

func (c Config) beta() float64 {
	if c.Beta == nil {
		return 0.1
	}

	return *c.Beta
}

// New constructs a base strategy by name: fedavg, krum, trimmed_mean, median.
func New(method string, cfg Config) (Aggregator, error) {
	switch method {
	case "fedavg":
		return NewFedAvg(), nil
	case "krum":
		return NewKrum(cfg.F, cfg.MultiKrum, cfg.M), nil
	case "trimmed_mean":
		return NewTrimmedMean(cfg.beta()), nil
	case "median":
		return NewMedian(), nil
	default:
		return nil, fmt.Errorf("%w: %q (available: fedavg, krum, trimmed_mean, median)", ErrUnknownMethod, method)
	}
}

// NewEnhanced constructs an enhanced strategy by name, falling back to the
// base set for base names.
func NewEnhanced(method string, cfg Config) (Aggregator, error) {
	switch method {
	case "enhanced_krum":
		return NewEnhancedKrum(EnhancedKrumConfig{
			F:           cfg.F,
			MultiKrum:   cfg.MultiKrum,
			M:           cfg.M,
			AdaptiveF:   cfg.AdaptiveF,
			TrustScores: cfg.TrustScores,
		}), nil
	case "adaptive_trimmed_mean":
		return NewAdaptiveTrimmedMean(AdaptiveTrimmedMeanConfig{
			Beta:          cfg.beta(),
			AdaptiveBeta:  cfg.AdaptiveBeta,
			OutlierMethod: cfg.OutlierMethod,
		}), nil
	default:
		return New(method, cfg)
	}
}

// NewSecure constructs a privacy-preserving strategy by name, falling back to
// the enhanced and base sets for other names.
func NewSecure(method string, cfg Config) (Aggregator, error) {
	switch method {
	case "secure_fedavg":
		return NewSecureFedAvg(cfg.DP, cfg.EnableDP, cfg.NoiseSeed), nil
	case "secure_krum":
		return NewSecureKrum(cfg.F, cfg.MultiKrum, cfg.M, cfg.DP, cfg.EnableDP, cfg.NoiseSeed), nil
	default:
		return NewEnhanced(method, cfg)
	}
}
