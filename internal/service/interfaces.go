// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service implements the data synchronization engine: the
// serializer, comparator, resolver, merger and integrity checker the
// cycle is assembled from, and the SyncEngine state machine driving
// them. Components are plain interfaces wired by constructor injection
// so each one is testable in isolation.
package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-life-tracker/models"
)

// DataSerializer converts entities and snapshots between their in-memory
// form and the bytes exchanged with the remote store. Marshaling is
// deterministic: identical logical input yields byte-identical output
// (collections sorted by id, fixed field order, UTC timestamps), which
// keeps content hashes and remote artifacts stable across devices.
//
// The marshal/unmarshal pair handles the versioned JSON core; the
// EncodeBlob/DecodeBlob pair wraps those bytes into the transport
// envelope, applying optional snappy compression and optional AES-GCM
// sealing as flagged layers. Content hashes are computed over the
// semantic payload, before any envelope layer, so compression and
// sealing settings never influence comparison.
type DataSerializer interface {
	// MarshalSnapshot encodes a full-dataset snapshot. The snapshot's
	// collections are sorted by id on an internal copy; the caller's
	// data is left untouched.
	MarshalSnapshot(snap models.Snapshot) ([]byte, error)

	// UnmarshalSnapshot decodes a snapshot produced by MarshalSnapshot.
	// Returns ErrSchemaVersionMismatch when the blob was written by a
	// newer schema than this build reads, ErrMalformedBlob when the
	// bytes are structurally invalid.
	UnmarshalSnapshot(raw []byte) (models.Snapshot, error)

	// MarshalEntity encodes one entity into its self-describing wire
	// form (schema version and kind ride in the envelope).
	MarshalEntity(e models.Entity) ([]byte, error)

	// UnmarshalEntity decodes an entity blob produced by MarshalEntity,
	// dispatching on the kind recorded in the envelope. Same error
	// contract as UnmarshalSnapshot.
	UnmarshalEntity(raw []byte) (models.Entity, error)

	// HashEntity computes the deterministic content hash of the entity's
	// semantic payload: sha256 hex over the payload fields only, so a
	// bookkeeping touch never changes the hash while a tombstone flip
	// does.
	HashEntity(e models.Entity) (string, error)

	// EncodeBlob wraps marshaled bytes for transport: optional snappy
	// compression, optional sealing, layer flags in a fixed header.
	EncodeBlob(raw []byte) ([]byte, error)

	// DecodeBlob reverses EncodeBlob, honoring the layer flags recorded
	// in the header rather than this serializer's own settings, so blobs
	// written under different compression settings stay readable.
	DecodeBlob(blob []byte) ([]byte, error)
}

// DataValidator runs field-level structural checks over entities:
// required fields present, timestamps ordered, enum values in range,
// numeric fields domain-sane. It never follows references between
// entities; that is the integrity checker's job.
type DataValidator interface {
	// ValidateEntity checks one entity and returns an ErrValidation-
	// wrapped error naming the entity, or nil.
	ValidateEntity(ctx context.Context, e models.Entity) error

	// ValidateAll checks every record of every collection and collects
	// violations into a report. Counts are populated regardless of
	// validity.
	ValidateAll(ctx context.Context, cols models.Collections) *models.DataIntegrityReport
}

// DataComparator classifies the divergence of entities between the
// local and remote side. Comparison works on lightweight EntityState
// descriptors, not full records; the engine fills in missing remote
// hashes before comparing.
type DataComparator interface {
	// Compare classifies one entity. Either side may be nil when the
	// record exists on one side only. lastSync is the completion time of
	// the last successful cycle; the zero time means never synced.
	Compare(local, remote *models.EntityState, lastSync time.Time) models.ComparisonResult

	// CompareAll classifies the union of both id sets, fanning out over
	// a bounded worker group. The result is ordered by entity id so
	// every downstream artifact of the cycle is deterministic. Returns
	// an error only when ctx is cancelled.
	CompareAll(ctx context.Context, local, remote []models.EntityState, lastSync time.Time) ([]models.Comparison, error)
}

// ConflictResolver applies the configured policy to one conflicting
// pair. Resolution is pure: identical input yields the identical
// decision on every call, and no side effects happen here; the engine
// applies the outcome.
type ConflictResolver interface {
	// Resolve decides one conflict. The returned entity is the copy to
	// keep on both sides, nil for ResolutionSkip and ResolutionPending.
	// The merge policy delegates to the merger's pair merge.
	Resolve(local, remote models.Entity, policy models.ConflictPolicy) (models.Entity, models.ConflictResolution, error)
}

// DataMerger combines two divergent datasets without losing records.
// Entities present on one side only are unioned in unconditionally;
// same-id divergent pairs are settled by the configured priority and
// back-filled from the losing copy where the winner's field is zero.
// Every decision lands in an ordered audit log.
type DataMerger interface {
	// Merge merges two collections. The returned collections are sorted
	// by id; the audit log lists decisions in the order they were made.
	Merge(local, remote models.Collections, cfg models.MergeConfig) (models.Collections, []models.MergeAuditEntry, error)

	// MergePair settles one divergent pair of the same entity and
	// reports which action was taken (kept local, kept remote, or
	// merged fields when back-filling changed the winner).
	MergePair(local, remote models.Entity, cfg models.MergeConfig) (models.Entity, models.MergeAction, error)
}

// DataIntegrityChecker audits cross-entity references of a dataset:
// every transaction resolves its account and optional category, every
// time entry resolves its task, category parent chains are acyclic.
// Tombstoned entities count as absent targets. The engine uses the
// report as the commit gate.
type DataIntegrityChecker interface {
	// Check audits the dataset and reports every violation found, in
	// input order. Counts are populated regardless of validity.
	Check(ctx context.Context, cols models.Collections) *models.DataIntegrityReport
}

// SyncEngine runs one full synchronization cycle: strategy selection,
// remote fetch, comparison, conflict resolution, merge, validation,
// integrity audit, commit, baseline persistence. At most one cycle is
// in flight per engine; a concurrent call is rejected with
// ErrCycleInFlight.
type SyncEngine interface {
	// RunCycle executes one cycle and reports its outcome. The result
	// carries the terminal stage; for failed cycles the same error is
	// returned and recorded in the result. Cancellation is honored at
	// stage boundaries.
	RunCycle(ctx context.Context) (models.CycleResult, error)
}

// SyncJob periodically runs the engine in the background. The job is
// idle until Start is called.
type SyncJob interface {
	// Start launches the background loop, running one cycle every
	// interval (a non-positive interval falls back to the default). Any
	// previously running job is stopped first. The loop exits when ctx
	// is cancelled or Stop is called.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background loop to exit and blocks until it has
	// fully terminated. Safe to call when the job is not running.
	Stop()
}
