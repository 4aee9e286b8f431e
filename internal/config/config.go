// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// go-life-tracker application. It aggregates all sub-configurations and is
// populated by merging values from environment variables, command-line flags,
// and an optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds application-level settings such as token parameters and
	// the integrity hash key shared between client and blob server.
	App App `envPrefix:"APP_"`

	// Storage holds configuration for all persistence backends: the local
	// SQLite database, the server-side blob directory, and the sync-state
	// directory.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds network address and timeout settings for the blob
	// server.
	Server Server `envPrefix:"SERVER_"`

	// Remote holds settings for the remote store the sync client talks
	// to: provider selection plus per-provider connection parameters.
	Remote Remote `envPrefix:"REMOTE_"`

	// Sync holds the knobs of the synchronization engine: strategy,
	// conflict policy, merge behavior, retry and size limits.
	Sync Sync `envPrefix:"SYNC_"`

	// Workers holds configuration for background worker processes.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged under the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds application-level configuration values that control security
// and token lifecycle.
type App struct {
	// TokenSignKey is the secret key used to sign and verify JWT tokens.
	// Shared between the sync client and the blob server.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim embedded in every issued JWT token,
	// validated on every authenticated request.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration specifies how long a JWT token remains valid after
	// issuance (e.g. "1h", "30m").
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`

	// HashKey is the HMAC key used for request integrity checking
	// between client and blob server (the HashSHA256 header).
	// Env: APP_HASH_KEY
	HashKey string `env:"HASH_KEY"`

	// Version is the semantic version string of the running application.
	// Env: APP_VERSION
	Version string `env:"VERSION"`
}

// Storage groups the configuration for all storage backends used by the
// application.
type Storage struct {
	// DB holds the local database connection settings.
	DB DB `envPrefix:"DB_"`

	// Files holds the file-system storage settings of the blob server.
	Files Files `envPrefix:"FILES_"`

	// State holds the sync-state directory settings of the client.
	State State `envPrefix:"STATE_"`
}

// DB holds connection settings for the client's local SQLite database.
type DB struct {
	// DSN is the SQLite file path (optionally with connection options,
	// e.g. "file:tracker.db?_fk=1") the client datastore opens.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Files holds file-system settings for the blob server's artifact store.
type Files struct {
	// BlobDataDir is the root directory entity blobs are stored under.
	// Env: STORAGE_FILES_BLOB_DATA_DIR
	BlobDataDir string `env:"BLOB_DATA_DIR"`
}

// State holds file-system settings for the client's persisted sync state.
type State struct {
	// Dir is the directory holding the sync-state file and the
	// cross-process lock file.
	// Env: STORAGE_STATE_DIR
	Dir string `env:"DIR"`
}

// Server holds network and timeout settings for the blob server.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens,
	// in "host:port" format (e.g. "0.0.0.0:8080").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration allowed for a single inbound
	// request before the server cancels it (e.g. "30s", "1m").
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Remote selects and configures the remote store of the sync client.
type Remote struct {
	// Provider selects the transport implementation: "http" for the
	// blob server, "s3" for an S3-compatible bucket.
	// Env: REMOTE_PROVIDER
	Provider string `env:"PROVIDER"`

	// HTTPAddress is the base address of the blob server for the "http"
	// provider, in "host:port" or full URL form.
	// Env: REMOTE_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the default timeout for outbound remote calls.
	// Env: REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// S3 holds settings for the "s3" provider.
	S3 S3 `envPrefix:"S3_"`
}

// S3 holds connection settings for an S3-compatible remote store.
type S3 struct {
	// Bucket is the bucket entity blobs are stored in.
	// Env: REMOTE_S3_BUCKET
	Bucket string `env:"BUCKET"`

	// Region is the bucket region.
	// Env: REMOTE_S3_REGION
	Region string `env:"REGION"`

	// Endpoint overrides the S3 endpoint, for minio-style deployments.
	// Env: REMOTE_S3_ENDPOINT
	Endpoint string `env:"ENDPOINT"`

	// AccessKeyID and SecretAccessKey are static credentials. When both
	// are empty the default AWS credential chain is used.
	// Env: REMOTE_S3_ACCESS_KEY_ID / REMOTE_S3_SECRET_ACCESS_KEY
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`

	// Prefix is an optional key prefix under which all artifacts live.
	// Env: REMOTE_S3_PREFIX
	Prefix string `env:"PREFIX"`

	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible dev servers.
	// Env: REMOTE_S3_USE_PATH_STYLE
	UsePathStyle bool `env:"USE_PATH_STYLE"`
}

// Sync holds the knobs of the synchronization engine.
type Sync struct {
	// Strategy is "full" or "incremental".
	// Env: SYNC_STRATEGY
	Strategy string `env:"STRATEGY"`

	// ConflictPolicy is "use_local", "use_remote", "merge", "skip" or
	// "manual".
	// Env: SYNC_CONFLICT_POLICY
	ConflictPolicy string `env:"CONFLICT_POLICY"`

	// MergePriority is "local_first", "remote_first" or "timestamp_first".
	// Env: SYNC_MERGE_PRIORITY
	MergePriority string `env:"MERGE_PRIORITY"`

	// Deduplicate collapses same-content entities during merges.
	// Env: SYNC_DEDUPLICATE
	Deduplicate bool `env:"DEDUPLICATE"`

	// Compress enables snappy compression of transported blobs.
	// Env: SYNC_COMPRESS
	Compress bool `env:"COMPRESS"`

	// MaxFileSize is the per-entity encoded size cap in bytes; zero
	// disables the cap.
	// Env: SYNC_MAX_FILE_SIZE
	MaxFileSize int64 `env:"MAX_FILE_SIZE"`

	// ReconcileEvery forces a full comparison pass every Nth cycle when
	// the strategy is incremental; zero disables the fallback.
	// Env: SYNC_RECONCILE_EVERY
	ReconcileEvery int64 `env:"RECONCILE_EVERY"`

	// RetryAttempts caps transport retries per operation.
	// Env: SYNC_RETRY_ATTEMPTS
	RetryAttempts int `env:"RETRY_ATTEMPTS"`

	// RetryBaseDelay is the initial backoff delay between retries.
	// Env: SYNC_RETRY_BASE_DELAY
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY"`

	// Parallelism bounds concurrent per-entity fetch/compare work.
	// Env: SYNC_PARALLELISM
	Parallelism int `env:"PARALLELISM"`

	// EncryptionPassphrase, when non-empty, seals transported blobs with
	// a key derived from it. Both sides of a sync must share it.
	// Env: SYNC_ENCRYPTION_PASSPHRASE
	EncryptionPassphrase string `env:"ENCRYPTION_PASSPHRASE"`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// SyncInterval defines how often the background sync job runs.
	// Env: WORKERS_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// Once makes the client run a single sync cycle and exit instead of
	// starting the background job. An invocation mode, so it is taken
	// from flags and env only, never from the JSON file.
	// Env: WORKERS_ONCE
	Once bool `env:"ONCE"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (first non-zero source wins per field):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
