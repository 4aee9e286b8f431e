package service

import "errors"

// Failure taxonomy of the sync cycle. Errors returned by the services
// wrap one of these sentinels, usually alongside a more specific one
// ("%w: %w"), so callers branch with errors.Is. Which sentinel wraps an
// error decides how the engine reacts: serialization, validation and
// integrity failures abort the cycle before anything is committed;
// transport failures are retried first; size-cap and unresolved-conflict
// cases are not failures at all and surface through the cycle result.
var (
	// ErrSerialization marks any encode/decode failure of the blob
	// pipeline. Fatal; the cycle aborts untouched.
	ErrSerialization = errors.New("serialization failed")

	// ErrSchemaVersionMismatch: a blob was written by a newer schema than
	// this build reads. Wrapped together with ErrSerialization.
	ErrSchemaVersionMismatch = errors.New("snapshot schema version not supported")

	// ErrMalformedBlob: a blob is structurally invalid (bad envelope,
	// broken compression, failed authentication of a sealed blob).
	// Wrapped together with ErrSerialization.
	ErrMalformedBlob = errors.New("malformed blob")

	// ErrValidation marks a field-level validation failure of either the
	// outgoing local set or the fetched remote set. Fatal before commit.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity marks a referential integrity failure of the merged
	// dataset. The commit gate: nothing is written when it fires.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrTransport marks a remote store failure that survived retrying.
	ErrTransport = errors.New("transport failed")

	// ErrSizeLimitExceeded: an encoded entity is over the configured cap.
	// Never fatal; the entity is skipped and counted for the cycle result.
	ErrSizeLimitExceeded = errors.New("encoded entity exceeds size limit")

	// ErrConflictUnresolved: conflicts await a manual decision. Not a
	// failure; the cycle ends in PendingManualResolution without
	// committing.
	ErrConflictUnresolved = errors.New("conflicts unresolved")

	// ErrCycleInFlight: another cycle holds the engine. The second caller
	// is rejected, never queued.
	ErrCycleInFlight = errors.New("sync cycle already in flight")
)
