// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// blob server handlers and middleware.
//
// All Msg* constants are human-readable message strings that are written into
// HTTP response bodies or log entries to describe the outcome of an operation.
// Keeping them in one place ensures consistent wording throughout the API.
package app

const (
	// MsgArtifactNotFound is returned when a read or delete targets a path
	// with no stored artifact.
	MsgArtifactNotFound = "artifact not found"

	// MsgInvalidArtifactPath is returned when the requested artifact path
	// is empty, absolute, or tries to escape the storage root.
	MsgInvalidArtifactPath = "invalid artifact path"

	// MsgErrorListingArtifacts is returned when the artifact listing cannot
	// be produced.
	MsgErrorListingArtifacts = "error listing artifacts"

	// MsgErrorLoadingArtifact is returned when a stored artifact cannot be
	// read back.
	MsgErrorLoadingArtifact = "error loading artifact"

	// MsgErrorStoringArtifact is returned when an uploaded artifact cannot
	// be persisted.
	MsgErrorStoringArtifact = "error storing artifact"

	// MsgErrorDeletingArtifact is returned when a stored artifact cannot be
	// removed.
	MsgErrorDeletingArtifact = "error deleting artifact"

	// MsgIntegrityCheckFailed is returned when the keyed hash attached to a
	// request body does not match the body the server received.
	MsgIntegrityCheckFailed = "integrity check failed"

	// MsgTokenIsExpired is returned when a device bearer token is
	// syntactically valid but its expiry time has passed.
	MsgTokenIsExpired = "token is expired"

	// MsgInternalServerError is returned when an unexpected server-side
	// failure occurs that the client cannot resolve.
	MsgInternalServerError = "internal server error"
)
