package models

// ConflictResolution is the decision applied to one conflicting entity.
type ConflictResolution int

const (
	// ResolutionUseLocal keeps the local copy.
	ResolutionUseLocal ConflictResolution = 1

	// ResolutionUseRemote keeps the remote copy.
	ResolutionUseRemote ConflictResolution = 2

	// ResolutionMerge keeps the field-level merge of both copies.
	ResolutionMerge ConflictResolution = 3

	// ResolutionSkip leaves both sides untouched; the entity is not
	// committed this cycle.
	ResolutionSkip ConflictResolution = 4

	// ResolutionPending defers the decision to the caller. Produced
	// only under the manual policy; the cycle stops without committing.
	ResolutionPending ConflictResolution = 5
)

// String implements fmt.Stringer for log output.
func (r ConflictResolution) String() string {
	switch r {
	case ResolutionUseLocal:
		return "use_local"
	case ResolutionUseRemote:
		return "use_remote"
	case ResolutionMerge:
		return "merge"
	case ResolutionSkip:
		return "skip"
	case ResolutionPending:
		return "pending"
	default:
		return "unknown"
	}
}
