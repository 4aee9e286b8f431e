package models

import "time"

// SyncState is the only record that survives across cycles. It is
// written exactly once per successful cycle, atomically, after both the
// local commit and the remote push went through.
type SyncState struct {
	// DeviceID identifies this installation, assigned on first run.
	DeviceID string `json:"device_id"`

	// LastSyncTime is the completion time of the last successful
	// cycle, the reconciliation baseline. Nil before the first one.
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`

	// CycleCount is the number of successfully completed cycles.
	// Drives the periodic full-pass fallback of incremental sync.
	CycleCount int64 `json:"cycle_count"`

	// RemoteIndex mirrors the remote metadata listing as of the last
	// successful cycle, keyed by artifact path. Incremental cycles use
	// it to pre-filter unchanged artifacts.
	RemoteIndex map[string]SyncMetadata `json:"remote_index,omitempty"`
}
