package models

import "fmt"

// MergePriority selects the winning side when the merger meets two
// divergent copies of one entity.
type MergePriority int

const (
	// PriorityLocalFirst: the local copy wins unconditionally.
	PriorityLocalFirst MergePriority = 1

	// PriorityRemoteFirst: the remote copy wins unconditionally.
	PriorityRemoteFirst MergePriority = 2

	// PriorityTimestampFirst: the later-modified copy wins; on an exact
	// tie the local copy wins.
	PriorityTimestampFirst MergePriority = 3
)

// String implements fmt.Stringer for log output.
func (p MergePriority) String() string {
	switch p {
	case PriorityLocalFirst:
		return "local_first"
	case PriorityRemoteFirst:
		return "remote_first"
	case PriorityTimestampFirst:
		return "timestamp_first"
	default:
		return "unknown"
	}
}

// ParseMergePriority maps a configuration string to a MergePriority.
func ParseMergePriority(v string) (MergePriority, error) {
	switch v {
	case "local_first":
		return PriorityLocalFirst, nil
	case "remote_first":
		return PriorityRemoteFirst, nil
	case "timestamp_first":
		return PriorityTimestampFirst, nil
	default:
		return 0, fmt.Errorf("unknown merge priority %q", v)
	}
}

// MergeConfig configures the merger for one cycle.
type MergeConfig struct {
	// Deduplicate collapses entities with identical content hash but
	// different ids into the lexicographically smaller id.
	Deduplicate bool `json:"deduplicate"`

	// Priority selects the winning side for divergent pairs.
	Priority MergePriority `json:"priority"`
}

// MergeAction names what the merger did to one entity.
type MergeAction int

const (
	// MergeActionUnion: the entity existed on one side only and was kept.
	MergeActionUnion MergeAction = 1

	// MergeActionKeptLocal: the local copy won a divergent pair.
	MergeActionKeptLocal MergeAction = 2

	// MergeActionKeptRemote: the remote copy won a divergent pair.
	MergeActionKeptRemote MergeAction = 3

	// MergeActionMergedFields: the winner was back-filled from the
	// loser's non-conflicting fields.
	MergeActionMergedFields MergeAction = 4

	// MergeActionDeduplicated: the entity was collapsed into a
	// surviving id with identical content.
	MergeActionDeduplicated MergeAction = 5
)

// String implements fmt.Stringer for log output.
func (a MergeAction) String() string {
	switch a {
	case MergeActionUnion:
		return "union"
	case MergeActionKeptLocal:
		return "kept_local"
	case MergeActionKeptRemote:
		return "kept_remote"
	case MergeActionMergedFields:
		return "merged_fields"
	case MergeActionDeduplicated:
		return "deduplicated"
	default:
		return "unknown"
	}
}

// MergeAuditEntry records one merger decision. The log is ordered and
// kept for traceability, not for replay.
type MergeAuditEntry struct {
	// EntityID is the record the action applied to.
	EntityID string `json:"entity_id"`

	// Action names the decision.
	Action MergeAction `json:"action"`

	// Into is the surviving id for deduplicated entries, empty otherwise.
	// Callers use it to remap references to the collapsed id.
	Into string `json:"into,omitempty"`
}
