// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// EntityKind identifies which synced collection a record belongs to.
type EntityKind int

const (
	// KindTask is a to-do or diary task record.
	KindTask EntityKind = 1

	// KindCategory is a grouping node shared by tasks and transactions.
	KindCategory EntityKind = 2

	// KindTimeEntry is a tracked interval of work against a task.
	KindTimeEntry EntityKind = 3

	// KindAccount is a money account (wallet, bank, cash).
	KindAccount EntityKind = 4

	// KindTransaction is a single money movement on an account.
	KindTransaction EntityKind = 5
)

// String returns the singular lower-case name of the kind.
func (k EntityKind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindCategory:
		return "category"
	case KindTimeEntry:
		return "time_entry"
	case KindAccount:
		return "account"
	case KindTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// RemoteDir returns the remote directory prefix entities of this kind
// are stored under.
func (k EntityKind) RemoteDir() string {
	switch k {
	case KindTask:
		return "tasks"
	case KindCategory:
		return "categories"
	case KindTimeEntry:
		return "time_entries"
	case KindAccount:
		return "accounts"
	case KindTransaction:
		return "transactions"
	default:
		return "unknown"
	}
}

// KindFromRemoteDir maps a remote directory prefix back to its kind.
// Returns false when the prefix names no known collection.
func KindFromRemoteDir(dir string) (EntityKind, bool) {
	switch dir {
	case "tasks":
		return KindTask, true
	case "categories":
		return KindCategory, true
	case "time_entries":
		return KindTimeEntry, true
	case "accounts":
		return KindAccount, true
	case "transactions":
		return KindTransaction, true
	default:
		return 0, false
	}
}

// Kinds lists every synced collection kind in canonical order.
// Iteration over collections must follow this order so that derived
// artifacts (snapshots, reports, audit logs) stay deterministic.
func Kinds() []EntityKind {
	return []EntityKind{KindTask, KindCategory, KindTimeEntry, KindAccount, KindTransaction}
}

// Entity is implemented by every synced domain record.
//
// EntityID is stable across devices for the lifetime of the record.
// State exposes the lightweight descriptor the comparator works on.
// Payload returns the semantic fields that participate in the content
// hash; bookkeeping (id, timestamps, origin) stays out of it so that a
// metadata-only touch never produces a spurious difference, while the
// tombstone flag is included so that deletions do propagate.
type Entity interface {
	EntityID() string
	Kind() EntityKind
	State() EntityState
	Payload() any
}

// SyncInfo carries the bookkeeping every synced record shares.
// It is embedded into each concrete entity type.
type SyncInfo struct {
	// ID is the globally unique identifier of the record,
	// stable across devices. UUIDv7, assigned at creation.
	ID string `json:"id"`

	// CreatedAt is the timestamp when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last modification.
	// All timestamps are stored in UTC.
	UpdatedAt time.Time `json:"updated_at"`

	// Hash is the deterministic content hash of the record's payload,
	// recomputed by the sync cycle before comparison.
	Hash string `json:"hash"`

	// Origin tags the provenance of the local copy.
	Origin DataOrigin `json:"origin"`

	// Deleted marks the record as a tombstone. Tombstones are kept and
	// synced so that deletions propagate to other devices.
	Deleted bool `json:"deleted"`
}

// EntityID returns the stable unique identifier of the record.
func (s SyncInfo) EntityID() string {
	return s.ID
}

// MarkSynced tags the record as known to the remote store.
// Called after a successful commit for every entity the cycle touched.
func (s *SyncInfo) MarkSynced() {
	s.Origin = OriginBasedOnRemote
}

// state builds the comparator-facing descriptor for the given kind.
func (s SyncInfo) state(kind EntityKind) EntityState {
	return EntityState{
		ID:       s.ID,
		Kind:     kind,
		Hash:     s.Hash,
		Modified: s.UpdatedAt,
		Origin:   s.Origin,
		Deleted:  s.Deleted,
	}
}

// EntityState is the lightweight per-record descriptor used for
// comparison. Local states are derived from stored entities, remote
// states from SyncMetadata listings; hash and modification time are
// enough to decide whether a full fetch or push is needed.
type EntityState struct {
	ID       string     `json:"id"`
	Kind     EntityKind `json:"kind"`
	Hash     string     `json:"hash"`
	Modified time.Time  `json:"modified"`
	Origin   DataOrigin `json:"origin"`
	Deleted  bool       `json:"deleted"`

	// Size is the encoded blob size in bytes. Populated for remote
	// states from the metadata listing; zero until encoding for local.
	Size int64 `json:"size,omitempty"`
}
