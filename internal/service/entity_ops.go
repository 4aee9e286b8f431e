package service

import (
	"time"

	"github.com/MKhiriev/go-life-tracker/models"
)

// Bookkeeping mutations over the Entity interface. Entities travel as
// values, so every helper returns the updated copy; collections are
// rebuilt from those copies, the caller's originals stay intact.

// withSyncInfo applies one mutation to the entity's bookkeeping block.
func withSyncInfo(e models.Entity, mutate func(*models.SyncInfo)) models.Entity {
	switch v := e.(type) {
	case models.Task:
		mutate(&v.SyncInfo)
		return v
	case models.Category:
		mutate(&v.SyncInfo)
		return v
	case models.TimeEntry:
		mutate(&v.SyncInfo)
		return v
	case models.Account:
		mutate(&v.SyncInfo)
		return v
	case models.Transaction:
		mutate(&v.SyncInfo)
		return v
	default:
		return e
	}
}

// touchEntity stamps the modification time, in UTC.
func touchEntity(e models.Entity, now time.Time) models.Entity {
	return withSyncInfo(e, func(s *models.SyncInfo) { s.UpdatedAt = now.UTC() })
}

// tombstoneEntity marks the entity deleted and stamps the modification
// time so the deletion propagates like any other change.
func tombstoneEntity(e models.Entity, now time.Time) models.Entity {
	return withSyncInfo(e, func(s *models.SyncInfo) {
		s.Deleted = true
		s.UpdatedAt = now.UTC()
	})
}

// markEntitySynced tags the entity as exchanged with the remote store.
func markEntitySynced(e models.Entity) models.Entity {
	return withSyncInfo(e, func(s *models.SyncInfo) { s.MarkSynced() })
}

// setEntityHash records the freshly computed content hash.
func setEntityHash(e models.Entity, hash string) models.Entity {
	return withSyncInfo(e, func(s *models.SyncInfo) { s.Hash = hash })
}

// remapEntityRefs rewrites every reference pointing at from into to.
// Used after deduplication so nothing keeps pointing at a collapsed id.
// Reports whether the entity changed.
func remapEntityRefs(e models.Entity, from, to string) (models.Entity, bool) {
	switch v := e.(type) {
	case models.Task:
		if v.CategoryID != nil && *v.CategoryID == from {
			v.CategoryID = strRef(to)
			return v, true
		}
	case models.Category:
		if v.ParentID != nil && *v.ParentID == from {
			v.ParentID = strRef(to)
			return v, true
		}
	case models.TimeEntry:
		if v.TaskID == from {
			v.TaskID = to
			return v, true
		}
	case models.Transaction:
		changed := false
		if v.AccountID == from {
			v.AccountID = to
			changed = true
		}
		if v.CategoryID != nil && *v.CategoryID == from {
			v.CategoryID = strRef(to)
			changed = true
		}
		if changed {
			return v, true
		}
	}

	return e, false
}

func strRef(s string) *string { return &s }
