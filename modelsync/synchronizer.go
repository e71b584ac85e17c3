// Package modelsync maintains the authoritative local copy of the global
// model: version-chain validation of received models, conflict detection and
// resolution, and bounded rollback history.
package modelsync

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/turbinefl/turbine/model"
	"github.com/turbinefl/turbine/pkg/storage"
)

type Status string

const (
	StatusPending      Status = "pending"
	StatusDistributing Status = "distributing"
	StatusActive       Status = "active"
	StatusDeprecated   Status = "deprecated"
)

const defHistoryLimit = 10

// State is a read-only snapshot of the synchronizer.
type State struct {
	ModelVersion int            `json:"model_version"`
	Status       Status         `json:"status"`
	NodeVersions map[string]int `json:"node_versions"`
	LastSyncTime time.Time      `json:"last_sync_time,omitzero"`
}

// Synchronizer is a single-writer structure: every mutation runs under one
// exclusive lock per instance, and reads hand out clones, never aliases.
type Synchronizer struct {
	mu           sync.Mutex
	current      *model.GlobalModel
	status       Status
	nodeVersions map[string]int
	lastSync     time.Time
	history      storage.History
	conflictLog  []Conflict
	logger       *slog.Logger
}

func NewSynchronizer(logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Synchronizer{
		status:       StatusPending,
		nodeVersions: make(map[string]int),
		history:      storage.NewInMemoryHistory(defHistoryLimit),
		logger:       logger,
	}
}

// ReceiveGlobalModel validates and adopts a model produced locally or
// received from a peer. Invalid or stale models are rejected with a log
// entry and leave the current state untouched.
func (s *Synchronizer) ReceiveGlobalModel(m model.GlobalModel, source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Weights.IsEmpty() {
		s.logger.Warn("Rejected global model with empty weights", "source", source, "version", m.Version)

		return false
	}
	if m.Version < 0 {
		s.logger.Warn("Rejected global model with negative version", "source", source, "version", m.Version)

		return false
	}
	if !m.VerifyHash() {
		s.logger.Warn("Rejected global model with inconsistent weights hash", "source", source, "version", m.Version)

		return false
	}
	if s.current != nil && m.Version <= s.current.Version {
		s.logger.Info("Ignored stale global model",
			"source", source,
			"received_version", m.Version,
			"current_version", s.current.Version)

		return false
	}

	if s.current != nil {
		s.history.Push(*s.current)
	}

	adopted := m.Clone()
	s.current = &adopted
	s.status = StatusActive
	s.lastSync = time.Now().UTC()
	s.nodeVersions[source] = m.Version

	s.logger.Info("Adopted global model", "source", source, "version", m.Version, "round", m.RoundNumber)

	return true
}

// CheckForConflicts reports divergences between a local and a received model
// and appends them to the conflict log.
func (s *Synchronizer) CheckForConflicts(local, global model.GlobalModel) []Conflict {
	conflicts := detectConflicts(local, global)

	s.mu.Lock()
	s.conflictLog = append(s.conflictLog, conflicts...)
	s.mu.Unlock()

	return conflicts
}

// ResolveConflicts applies the strategy to every conflict. prefer_global and
// prefer_local succeed trivially by keeping one side; merge fails loudly.
func (s *Synchronizer) ResolveConflicts(conflicts []Conflict, strategy ResolutionStrategy) error {
	switch strategy {
	case PreferGlobal, PreferLocal:
	case Merge:
		return ErrMergeUnsupported
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range conflicts {
		for i := range s.conflictLog {
			if s.conflictLog[i].ID == c.ID {
				s.conflictLog[i].Resolved = true
				s.conflictLog[i].Resolution = string(strategy)
			}
		}
	}

	return nil
}

// Rollback restores the retained historical model with the exact target
// version, or fails if it is no longer retained.
func (s *Synchronizer) Rollback(targetVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.history.Get(targetVersion)
	if err != nil {
		return fmt.Errorf("%w: version %d", ErrVersionNotRetained, targetVersion)
	}

	s.current = &m
	s.status = StatusActive
	s.lastSync = time.Now().UTC()
	s.logger.Info("Rolled back global model", "version", targetVersion)

	return nil
}

// GetCurrentModel returns a clone of the current model, or false when no
// model has been adopted yet.
func (s *Synchronizer) GetCurrentModel() (model.GlobalModel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return model.GlobalModel{}, false
	}

	return s.current.Clone(), true
}

func (s *Synchronizer) GetModelVersion() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return 0
	}

	return s.current.Version
}

func (s *Synchronizer) GetSyncStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// BeginDistribution marks the current model as being pushed out to nodes.
func (s *Synchronizer) BeginDistribution() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusDistributing
}

// Deprecate marks the current model as superseded without adopting another.
func (s *Synchronizer) Deprecate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusDeprecated
}

func (s *Synchronizer) ConflictLog() []Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Conflict(nil), s.conflictLog...)
}

// Snapshot returns the observable sync state.
func (s *Synchronizer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := make(map[string]int, len(s.nodeVersions))
	for k, v := range s.nodeVersions {
		versions[k] = v
	}

	version := 0
	if s.current != nil {
		version = s.current.Version
	}

	return State{
		ModelVersion: version,
		Status:       s.status,
		NodeVersions: versions,
		LastSyncTime: s.lastSync,
	}
}

// HistoryLen reports how many historical models are retained for rollback.
func (s *Synchronizer) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.history.Len()
}
