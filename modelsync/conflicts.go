package modelsync

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/turbinefl/turbine/model"
)

type ConflictType string

const (
	ConflictVersionMismatch ConflictType = "version_mismatch"
	ConflictRoundMismatch   ConflictType = "round_mismatch"
	ConflictWeightsHash     ConflictType = "weights_hash_mismatch"
)

type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ResolutionStrategy string

const (
	PreferGlobal ResolutionStrategy = "prefer_global"
	PreferLocal  ResolutionStrategy = "prefer_local"
	// Merge is named in the protocol but has no defined semantics; resolving
	// with it always fails loudly.
	Merge ResolutionStrategy = "merge"
)

var (
	ErrMergeUnsupported   = errors.New("merge conflict resolution is not implemented")
	ErrUnknownStrategy    = errors.New("unknown conflict resolution strategy")
	ErrVersionNotRetained = errors.New("target version not retained in history")
)

// Conflict is one detected divergence between a local and a received global
// model.
type Conflict struct {
	ID            string       `json:"id"`
	Type          ConflictType `json:"type"`
	Severity      Severity     `json:"severity"`
	LocalVersion  int          `json:"local_version"`
	GlobalVersion int          `json:"global_version"`
	Description   string       `json:"description"`
	DetectedAt    time.Time    `json:"detected_at"`
	Resolved      bool         `json:"resolved"`
	Resolution    string       `json:"resolution,omitempty"`
}

func detectConflicts(local, global model.GlobalModel) []Conflict {
	var conflicts []Conflict

	add := func(t ConflictType, sev Severity, desc string) {
		conflicts = append(conflicts, Conflict{
			ID:            uuid.NewString(),
			Type:          t,
			Severity:      sev,
			LocalVersion:  local.Version,
			GlobalVersion: global.Version,
			Description:   desc,
			DetectedAt:    time.Now().UTC(),
		})
	}

	if local.Version != global.Version {
		add(ConflictVersionMismatch, SeverityMedium, "local and global model versions differ")
	}
	if local.RoundNumber != global.RoundNumber {
		add(ConflictRoundMismatch, SeverityHigh, "local and global round numbers differ")
	}
	if local.WeightsHash != "" && global.WeightsHash != "" && local.WeightsHash != global.WeightsHash {
		add(ConflictWeightsHash, SeverityCritical, "model weight hashes diverge")
	}

	return conflicts
}
