package models

import "time"

// SchemaVersion is the snapshot schema this build reads and writes.
// Decoding a blob whose version exceeds it must fail rather than guess.
const SchemaVersion = 1

// Snapshot is an immutable, versioned aggregate of all entity
// collections at one point in time. A snapshot belongs to the sync
// cycle that produced it and is never mutated in place; a new snapshot
// replaces it.
type Snapshot struct {
	// Version is the schema version the snapshot was encoded with.
	Version int `json:"version"`

	// TakenAt is the moment the snapshot was assembled, in UTC.
	TakenAt time.Time `json:"taken_at"`

	// DeviceID identifies the device that assembled the snapshot.
	DeviceID string `json:"device_id"`

	// Data holds every entity collection, each sorted by id.
	Data Collections `json:"data"`
}
