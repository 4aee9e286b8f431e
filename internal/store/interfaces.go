package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-life-tracker/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// EntityRepository is the low-level local datastore for synced entities.
// All reads include tombstones; deletions propagate through sync, so a
// soft-deleted record is still a record.
type EntityRepository interface {
	// LoadAll returns every record of every collection.
	LoadAll(ctx context.Context) (models.Collections, error)

	// LoadChangedSince returns records whose updated_at is at or after
	// the given instant. The boundary is inclusive so a record written
	// in the same moment the baseline was taken is never lost; callers
	// re-compare by hash, so loading a little extra is harmless.
	LoadChangedSince(ctx context.Context, since time.Time) (models.Collections, error)

	// Commit upserts the given collections inside a single transaction.
	// Either every record lands or none does.
	Commit(ctx context.Context, cols models.Collections) error

	// Counts returns per-collection record counts, tombstones included.
	Counts(ctx context.Context) (models.CollectionCounts, error)
}

// SyncStateStore persists the single cross-cycle record: device identity,
// the last successful sync time and the mirrored remote index.
type SyncStateStore interface {
	// Load reads the persisted state. A missing state file is not an
	// error; it yields the zero state of a never-synced installation.
	Load(ctx context.Context) (models.SyncState, error)

	// Save atomically replaces the persisted state. Called exactly once
	// per successful cycle, after both local and remote commits.
	Save(ctx context.Context, state models.SyncState) error
}
