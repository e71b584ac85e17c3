package privacy

// Config holds the differential-privacy parameters of a training run.
type Config struct {
	TargetEpsilon   float64 `json:"target_epsilon"`
	TargetDelta     float64 `json:"target_delta"`
	MaxGradNorm     float64 `json:"max_grad_norm"`
	NoiseMultiplier float64 `json:"noise_multiplier"`
	MaxRounds       int     `json:"max_rounds"`
}

func DefaultConfig() Config {
	return Config{
		TargetEpsilon:   1.0,
		TargetDelta:     1e-5,
		MaxGradNorm:     1.0,
		NoiseMultiplier: 1.1,
		MaxRounds:       100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TargetEpsilon <= 0 {
		c.TargetEpsilon = def.TargetEpsilon
	}
	if c.TargetDelta <= 0 {
		c.TargetDelta = def.TargetDelta
	}
	if c.MaxGradNorm <= 0 {
		c.MaxGradNorm = def.MaxGradNorm
	}
	if c.NoiseMultiplier <= 0 {
		c.NoiseMultiplier = def.NoiseMultiplier
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = def.MaxRounds
	}

	return c
}

// PerRoundEpsilon splits the target budget evenly across the configured
// maximum rounds.
func (c Config) PerRoundEpsilon() float64 {
	rounds := c.MaxRounds
	if rounds < 1 {
		rounds = 1
	}

	return c.TargetEpsilon / float64(rounds)
}

// Engine composes clipping and calibrated Gaussian noise per call and records
// spend into an append-only budget. Exhaustion is advisory: the engine keeps
// functioning, callers check CanContinueTraining before starting a round.
type Engine struct {
	cfg     Config
	clipper *Clipper
	noise   *GaussianNoise
	budget  *Budget
}

// NewEngine resolves the noise source once at construction. Pass a non-zero
// seed for deterministic noise.
func NewEngine(cfg Config, seed uint64) *Engine {
	cfg = cfg.withDefaults()

	return &Engine{
		cfg:     cfg,
		clipper: NewClipper(cfg.MaxGradNorm),
		noise:   NewGaussianNoise(cfg.NoiseMultiplier*cfg.MaxGradNorm, seed),
		budget:  NewBudget(),
	}
}

// Privatize clips the gradient and adds noise scaled down by the sample count
// (floored at 1). It returns the noised vector and the pre-clip norm.
func (e *Engine) Privatize(grad []float64, numSamples int) ([]float64, float64) {
	clipped, originalNorm := e.clipper.Clip(grad)
	if numSamples < 1 {
		numSamples = 1
	}

	return e.noise.Add(clipped, 1/float64(numSamples)), originalNorm
}

// RecordRound appends one round's per-round epsilon spend to the ledger.
func (e *Engine) RecordRound() float64 {
	eps := e.cfg.PerRoundEpsilon()
	e.budget.AddRound(eps, e.cfg.NoiseMultiplier)

	return eps
}

func (e *Engine) CanContinueTraining() bool {
	return !e.budget.IsExhausted(e.cfg.TargetEpsilon)
}

// PrivacySpent returns the cumulative (epsilon, delta) spend so far.
func (e *Engine) PrivacySpent() (float64, float64) {
	return e.budget.EpsilonSpent(), e.cfg.TargetDelta
}

func (e *Engine) Budget() *Budget {
	return e.budget
}

func (e *Engine) Clipper() *Clipper {
	return e.clipper
}

func (e *Engine) Config() Config {
	return e.cfg
}
