package privacy

import (
	"sync"
	"time"
)

// LedgerEntry records one round's privacy spend.
type LedgerEntry struct {
	Epsilon    float64   `json:"epsilon"`
	NoiseScale float64   `json:"noise_scale"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Budget is an append-only ledger of cumulative epsilon spend. It only grows;
// Remaining and IsExhausted are pure queries over it.
type Budget struct {
	mu     sync.Mutex
	spent  float64
	rounds int
	ledger []LedgerEntry
}

func NewBudget() *Budget {
	return &Budget{}
}

func (b *Budget) AddRound(epsilon, noiseScale float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.spent += epsilon
	b.rounds++
	b.ledger = append(b.ledger, LedgerEntry{
		Epsilon:    epsilon,
		NoiseScale: noiseScale,
		RecordedAt: time.Now().UTC(),
	})
}

func (b *Budget) EpsilonSpent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.spent
}

func (b *Budget) RoundsParticipated() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.rounds
}

// Remaining never increases after a round.
func (b *Budget) Remaining(maxEpsilon float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rem := maxEpsilon - b.spent; rem > 0 {
		return rem
	}

	return 0
}

func (b *Budget) IsExhausted(maxEpsilon float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.spent >= maxEpsilon
}

func (b *Budget) Ledger() []LedgerEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]LedgerEntry(nil), b.ledger...)
}
