// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// CycleStage names one state of the sync cycle state machine. Stage
// transitions are logged and the failing stage is reported to callers.
type CycleStage int

const (
	StageIdle CycleStage = iota
	StageDeterminingStrategy
	StageFetchingRemote
	StageComparing
	StageResolving
	StageMerging
	StageValidating
	StageAuditingIntegrity
	StageCommitting
	StageDone
	StagePendingManual
	StageFailed
)

// String implements fmt.Stringer for log output.
func (s CycleStage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageDeterminingStrategy:
		return "determining_strategy"
	case StageFetchingRemote:
		return "fetching_remote"
	case StageComparing:
		return "comparing"
	case StageResolving:
		return "resolving"
	case StageMerging:
		return "merging"
	case StageValidating:
		return "validating"
	case StageAuditingIntegrity:
		return "auditing_integrity"
	case StageCommitting:
		return "committing"
	case StageDone:
		return "done"
	case StagePendingManual:
		return "pending_manual_resolution"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stage ends a cycle.
func (s CycleStage) Terminal() bool {
	return s == StageDone || s == StagePendingManual || s == StageFailed
}

// CycleStatus is the overall outcome of one sync cycle.
type CycleStatus int

const (
	// CycleCompleted: the cycle committed and persisted its baseline.
	CycleCompleted CycleStatus = 1

	// CyclePendingManual: conflicts await an out-of-band decision;
	// nothing was committed.
	CyclePendingManual CycleStatus = 2

	// CycleFailed: the cycle aborted at Stage with Err; no partial
	// commit took place.
	CycleFailed CycleStatus = 3
)

// String implements fmt.Stringer for log output.
func (s CycleStatus) String() string {
	switch s {
	case CycleCompleted:
		return "completed"
	case CyclePendingManual:
		return "pending_manual_resolution"
	case CycleFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CycleResult is what one RunCycle call hands back to the caller.
type CycleResult struct {
	// Status is the overall outcome.
	Status CycleStatus `json:"status"`

	// Applied is the number of entities written to the local datastore.
	Applied int `json:"applied"`

	// Merged is the number of entities that went through the merger.
	Merged int `json:"merged"`

	// Skipped counts entities left untouched this cycle: size-cap
	// skips plus skip-policy resolutions.
	Skipped int `json:"skipped"`

	// Counts describes the committed dataset per collection.
	Counts CollectionCounts `json:"counts"`

	// Conflicts lists entity ids awaiting manual resolution.
	// Populated only for CyclePendingManual.
	Conflicts []string `json:"conflicts,omitempty"`

	// Stage is the state machine stage the cycle stopped in:
	// StageDone, StagePendingManual, or the stage that failed.
	Stage CycleStage `json:"stage"`

	// Err is the failure cause for CycleFailed, nil otherwise.
	Err error `json:"-"`
}

// CompletedResult builds the result of a successfully committed cycle.
func CompletedResult(applied, merged, skipped int, counts CollectionCounts) CycleResult {
	return CycleResult{
		Status:  CycleCompleted,
		Applied: applied,
		Merged:  merged,
		Skipped: skipped,
		Counts:  counts,
		Stage:   StageDone,
	}
}

// PendingResult builds the result of a cycle suspended on manual
// conflicts. The id list keeps the comparator's deterministic order.
func PendingResult(conflicts []string) CycleResult {
	return CycleResult{
		Status:    CyclePendingManual,
		Conflicts: conflicts,
		Stage:     StagePendingManual,
	}
}

// FailedResult builds the result of an aborted cycle.
func FailedResult(stage CycleStage, err error) CycleResult {
	return CycleResult{
		Status: CycleFailed,
		Stage:  stage,
		Err:    err,
	}
}
