// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"time"
)

// StrategyType selects how much of the dataset a cycle compares.
type StrategyType int

const (
	// StrategyFull compares every entity on both sides.
	StrategyFull StrategyType = 1

	// StrategyIncremental pre-filters by metadata changed since the
	// last successful cycle, falling back to a periodic full pass.
	StrategyIncremental StrategyType = 2
)

// String implements fmt.Stringer for log output.
func (s StrategyType) String() string {
	switch s {
	case StrategyFull:
		return "full"
	case StrategyIncremental:
		return "incremental"
	default:
		return "unknown"
	}
}

// ParseStrategyType maps a configuration string to a StrategyType.
func ParseStrategyType(v string) (StrategyType, error) {
	switch v {
	case "full":
		return StrategyFull, nil
	case "incremental":
		return StrategyIncremental, nil
	default:
		return 0, fmt.Errorf("unknown sync strategy %q", v)
	}
}

// ConflictPolicy is the configured rule applied to every conflicting
// entity of a cycle.
type ConflictPolicy int

const (
	// PolicyUseLocal resolves every conflict in favor of the local copy.
	PolicyUseLocal ConflictPolicy = 1

	// PolicyUseRemote resolves every conflict in favor of the remote copy.
	PolicyUseRemote ConflictPolicy = 2

	// PolicyMerge resolves conflicts by field-level merge.
	PolicyMerge ConflictPolicy = 3

	// PolicySkip leaves both sides untouched for this cycle.
	PolicySkip ConflictPolicy = 4

	// PolicyManual resolves nothing: conflicts are surfaced to the
	// caller and the cycle stops without committing.
	PolicyManual ConflictPolicy = 5
)

// String implements fmt.Stringer for log output.
func (p ConflictPolicy) String() string {
	switch p {
	case PolicyUseLocal:
		return "use_local"
	case PolicyUseRemote:
		return "use_remote"
	case PolicyMerge:
		return "merge"
	case PolicySkip:
		return "skip"
	case PolicyManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseConflictPolicy maps a configuration string to a ConflictPolicy.
func ParseConflictPolicy(v string) (ConflictPolicy, error) {
	switch v {
	case "use_local":
		return PolicyUseLocal, nil
	case "use_remote":
		return PolicyUseRemote, nil
	case "merge":
		return PolicyMerge, nil
	case "skip":
		return PolicySkip, nil
	case "manual":
		return PolicyManual, nil
	default:
		return 0, fmt.Errorf("unknown conflict policy %q", v)
	}
}

// SyncStrategy is the per-cycle plan the engine runs under. Assembled
// by the configuration provider, persisted fields (LastSyncTime) come
// from the sync-state store.
type SyncStrategy struct {
	// Type selects full or incremental comparison. Incremental without
	// a valid LastSyncTime falls back to full.
	Type StrategyType `json:"type"`

	// LastSyncTime is the reconciliation baseline: the completion time
	// of the last successful cycle. Nil before the first one.
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`

	// ConflictPolicy is applied to every conflicting entity.
	ConflictPolicy ConflictPolicy `json:"conflict_policy"`

	// Merge configures the merger for NeedsMerge and merged conflicts.
	Merge MergeConfig `json:"merge"`

	// Compress enables snappy compression of transported blobs.
	Compress bool `json:"compress"`

	// MaxFileSize is the per-entity encoded size cap in bytes. Entities
	// above it are skipped individually, never failing the cycle.
	// Zero means no cap.
	MaxFileSize int64 `json:"max_file_size"`

	// ReconcileEvery forces a full pass every Nth cycle when the type
	// is incremental. Zero disables the fallback.
	ReconcileEvery int64 `json:"reconcile_every"`
}

// EffectiveType returns the comparison mode the cycle actually runs:
// incremental degrades to full when no baseline exists or the periodic
// reconciliation counter fires.
func (s SyncStrategy) EffectiveType(cycleCount int64) StrategyType {
	if s.Type != StrategyIncremental {
		return StrategyFull
	}
	if s.LastSyncTime == nil || s.LastSyncTime.IsZero() {
		return StrategyFull
	}
	if s.ReconcileEvery > 0 && cycleCount > 0 && cycleCount%s.ReconcileEvery == 0 {
		return StrategyFull
	}
	return StrategyIncremental
}
