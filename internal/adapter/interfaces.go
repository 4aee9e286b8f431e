// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides transport-layer access to the remote artifact
// store the sync engine replicates against.
//
// The primary abstraction is [RemoteTransport], which decouples the sync
// services from the storage protocol. Two implementations ship with the
// package: an HTTP/REST blob client ([NewHTTPRemoteTransport]) talking to
// the bundled blob server, and an S3 client ([NewS3RemoteTransport]) for
// S3-compatible object stores. [NewRemoteTransport] selects between them
// based on the configured provider.
//
// Error values defined in errors.go are mapped from transport responses so
// that callers can use [errors.Is] for protocol-agnostic error handling
// (e.g. [ErrNotFound] for a missing artifact). Every returned error
// additionally wraps either [ErrTransient] or [ErrPermanent]; the sync
// engine retries only transient failures.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-life-tracker/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/remote_transport_mock.go -package=mock

// RemoteTransport defines protocol-agnostic access to the remote artifact
// store. Artifacts are opaque blobs addressed by the canonical entity path
// produced by [models.RemotePath] ("tasks/<id>.json"). Implementations are
// responsible for authentication, payload integrity and mapping
// transport-level errors to the sentinel values defined in this package.
type RemoteTransport interface {
	// ListMetadata returns the metadata descriptor of every artifact
	// currently held by the remote store. Descriptors may omit the entity
	// content hash when the backing store cannot report one; callers fall
	// back to their persisted mirror or fetch the artifact in that case.
	ListMetadata(ctx context.Context) ([]models.SyncMetadata, error)

	// Get downloads the blob stored at path. Returns [ErrNotFound]
	// (wrapped) when no artifact exists there.
	Get(ctx context.Context, path string) ([]byte, error)

	// Put uploads blob to path, overwriting any previous artifact. hash is
	// the content hash of the entity the blob encodes; stores that keep an
	// artifact index record it and echo it in listings. Returns the stored
	// artifact's authoritative metadata so the caller can mirror it
	// without a follow-up listing.
	Put(ctx context.Context, path string, blob []byte, hash string) (models.SyncMetadata, error)

	// Delete removes the artifact at path. Deleting a missing artifact is
	// not an error; implementations swallow not-found responses so the
	// operation stays idempotent.
	Delete(ctx context.Context, path string) error
}
