package service

import (
	"fmt"

	"github.com/MKhiriev/go-life-tracker/models"
)

type conflictResolver struct {
	merger   DataMerger
	mergeCfg models.MergeConfig
}

// NewConflictResolver builds the resolver. The merge policy delegates
// to the merger with the configured merge settings; every other policy
// is decided right here.
func NewConflictResolver(merger DataMerger, mergeCfg models.MergeConfig) ConflictResolver {
	return &conflictResolver{
		merger:   merger,
		mergeCfg: mergeCfg,
	}
}

// Resolve applies the policy to one conflicting pair. No side effects:
// the caller applies whatever is returned. A nil entity with
// ResolutionSkip means leave both sides alone; with ResolutionPending
// it means the decision is deferred to the user and nothing may be
// committed this cycle.
func (r *conflictResolver) Resolve(local, remote models.Entity, policy models.ConflictPolicy) (models.Entity, models.ConflictResolution, error) {
	switch policy {
	case models.PolicyUseLocal:
		return local, models.ResolutionUseLocal, nil

	case models.PolicyUseRemote:
		return remote, models.ResolutionUseRemote, nil

	case models.PolicyMerge:
		merged, _, err := r.merger.MergePair(local, remote, r.mergeCfg)
		if err != nil {
			return nil, 0, err
		}
		return merged, models.ResolutionMerge, nil

	case models.PolicySkip:
		return nil, models.ResolutionSkip, nil

	case models.PolicyManual:
		return nil, models.ResolutionPending, nil

	default:
		return nil, 0, fmt.Errorf("unknown conflict policy %d", int(policy))
	}
}
