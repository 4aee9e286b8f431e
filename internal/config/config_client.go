package config

import (
	"fmt"
	"time"

	"github.com/MKhiriev/go-life-tracker/models"
)

// Defaults applied by GetClientConfig when the corresponding setting is
// absent from every configuration source.
const (
	DefaultRemoteProvider = "http"
	DefaultSyncStrategy   = "incremental"
	DefaultConflictPolicy = "manual"
	DefaultMergePriority  = "timestamp_first"
)

// Remote provider names accepted by the client transport layer.
const (
	ProviderHTTP = "http"
	ProviderS3   = "s3"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// TokenSignKey is the shared secret the client signs its device token with.
	TokenSignKey string
	// TokenIssuer is the "iss" claim of issued device tokens.
	TokenIssuer string
	// TokenDuration is the validity window of issued device tokens.
	TokenDuration time.Duration
	// HashKey is the HMAC key used by the client for payload integrity checks.
	HashKey string
}

// ClientS3 contains S3 remote store settings for the client transport.
type ClientS3 struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UsePathStyle    bool
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// Provider selects the remote transport: "http" or "s3".
	Provider string
	// HTTPAddress is the blob server address used by the http provider.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
	// S3 holds s3 provider settings.
	S3 ClientS3
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite connection string used by the client.
	DSN string
}

// ClientState contains sync-state persistence settings for the client.
type ClientState struct {
	// Dir is the directory holding the sync-state file and lock file.
	Dir string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
	// State holds sync-state persistence settings.
	State ClientState
}

// ClientSync holds the parsed synchronization engine settings.
type ClientSync struct {
	// Strategy selects full or incremental comparison.
	Strategy models.StrategyType
	// ConflictPolicy is applied to every conflicting entity.
	ConflictPolicy models.ConflictPolicy
	// Merge configures deduplication and the divergent-pair priority.
	Merge models.MergeConfig
	// Compress enables snappy compression of transported blobs.
	Compress bool
	// MaxFileSize caps the encoded size of a single entity; zero disables.
	MaxFileSize int64
	// ReconcileEvery forces a full pass every Nth incremental cycle.
	ReconcileEvery int64
	// RetryAttempts caps transport retries per operation.
	RetryAttempts int
	// RetryBaseDelay is the initial backoff delay between retries.
	RetryBaseDelay time.Duration
	// Parallelism bounds concurrent per-entity sync work.
	Parallelism int
	// EncryptionPassphrase seals transported blobs when non-empty.
	EncryptionPassphrase string
}

// ClientWorkers contains client background worker settings.
type ClientWorkers struct {
	// SyncInterval defines how often client sync workers should run.
	SyncInterval time.Duration

	// RunOnce runs a single sync cycle and exits instead of starting
	// the background job.
	RunOnce bool
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains client transport addresses and timeouts.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Sync contains the parsed engine settings.
	Sync ClientSync
	// Workers contains background job settings.
	Workers ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, parses the sync enum settings (applying
// defaults where absent), and validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return newClientConfig(cfg)
}

func newClientConfig(cfg *StructuredConfig) (*ClientConfig, error) {
	syncCfg, err := parseSyncSettings(cfg.Sync)
	if err != nil {
		return nil, fmt.Errorf("error parsing sync configs: %w", err)
	}

	provider := cfg.Remote.Provider
	if provider == "" {
		provider = DefaultRemoteProvider
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			TokenSignKey:  cfg.App.TokenSignKey,
			TokenIssuer:   cfg.App.TokenIssuer,
			TokenDuration: cfg.App.TokenDuration,
			HashKey:       cfg.App.HashKey,
		},
		Adapter: ClientAdapter{
			Provider:       provider,
			HTTPAddress:    cfg.Remote.HTTPAddress,
			RequestTimeout: cfg.Remote.RequestTimeout,
			S3: ClientS3{
				Bucket:          cfg.Remote.S3.Bucket,
				Region:          cfg.Remote.S3.Region,
				Endpoint:        cfg.Remote.S3.Endpoint,
				AccessKeyID:     cfg.Remote.S3.AccessKeyID,
				SecretAccessKey: cfg.Remote.S3.SecretAccessKey,
				Prefix:          cfg.Remote.S3.Prefix,
				UsePathStyle:    cfg.Remote.S3.UsePathStyle,
			},
		},
		Storage: ClientStorage{
			DB: ClientDB{
				DSN: cfg.Storage.DB.DSN,
			},
			State: ClientState{
				Dir: cfg.Storage.State.Dir,
			},
		},
		Sync: syncCfg,
		Workers: ClientWorkers{
			SyncInterval: cfg.Workers.SyncInterval,
			RunOnce:      cfg.Workers.Once,
		},
	}

	return clientCfg, clientCfg.validate()
}

// parseSyncSettings converts raw sync configuration strings to their model
// types. Empty strings fall back to defaults; invalid values are errors.
func parseSyncSettings(raw Sync) (ClientSync, error) {
	strategyName := raw.Strategy
	if strategyName == "" {
		strategyName = DefaultSyncStrategy
	}
	strategy, err := models.ParseStrategyType(strategyName)
	if err != nil {
		return ClientSync{}, err
	}

	policyName := raw.ConflictPolicy
	if policyName == "" {
		policyName = DefaultConflictPolicy
	}
	policy, err := models.ParseConflictPolicy(policyName)
	if err != nil {
		return ClientSync{}, err
	}

	priorityName := raw.MergePriority
	if priorityName == "" {
		priorityName = DefaultMergePriority
	}
	priority, err := models.ParseMergePriority(priorityName)
	if err != nil {
		return ClientSync{}, err
	}

	return ClientSync{
		Strategy:       strategy,
		ConflictPolicy: policy,
		Merge: models.MergeConfig{
			Deduplicate: raw.Deduplicate,
			Priority:    priority,
		},
		Compress:             raw.Compress,
		MaxFileSize:          raw.MaxFileSize,
		ReconcileEvery:       raw.ReconcileEvery,
		RetryAttempts:        raw.RetryAttempts,
		RetryBaseDelay:       raw.RetryBaseDelay,
		Parallelism:          raw.Parallelism,
		EncryptionPassphrase: raw.EncryptionPassphrase,
	}, nil
}
