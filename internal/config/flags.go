package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d database DSN
//	-f blob storage path
//	-state-dir sync state directory
//	-c/-config json file path with configs
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-token-duration token duration (e.g., "1h", "30m")
//	-request-timeout server request timeout (e.g., "30s", "1m")
//	-hash-key security hash key
//	-remote-provider remote store provider ("http" or "s3")
//	-remote-address remote store address for the http provider
//	-remote-timeout remote request timeout
//	-s3-bucket, -s3-region, -s3-endpoint, -s3-prefix s3 provider settings
//	-sync-strategy sync strategy ("full" or "incremental")
//	-conflict-policy conflict policy ("use_local", "use_remote", "merge", "skip", "manual")
//	-merge-priority merge priority ("local_first", "remote_first", "timestamp_first")
//	-dedup deduplicate same-content entities during merges
//	-compress compress transported blobs
//	-max-file-size per-entity encoded size cap in bytes
//	-reconcile-every full comparison pass every Nth incremental cycle
//	-retry-attempts transport retry cap
//	-retry-base-delay initial retry backoff delay
//	-parallelism concurrent per-entity sync work bound
//	-sync-interval background sync job period
//	-once run a single sync cycle and exit
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var databaseDSN string
	var blobStoragePath string
	var stateDir string
	var jsonConfigPath string
	var tokenSignKey string
	var tokenIssuer string
	var tokenDuration time.Duration
	var requestTimeout time.Duration
	var hashKey string
	var remoteProvider string
	var remoteAddress string
	var remoteTimeout time.Duration
	var s3Bucket, s3Region, s3Endpoint, s3Prefix string
	var syncStrategy string
	var conflictPolicy string
	var mergePriority string
	var deduplicate bool
	var compress bool
	var maxFileSize int64
	var reconcileEvery int64
	var retryAttempts int
	var retryBaseDelay time.Duration
	var parallelism int
	var syncInterval time.Duration
	var runOnce bool

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&blobStoragePath, "f", "", "Blob storage path")
	flag.StringVar(&stateDir, "state-dir", "", "Sync state directory")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 1h, 30m)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.StringVar(&hashKey, "hash-key", "", "Security hash key")
	flag.StringVar(&remoteProvider, "remote-provider", "", "Remote store provider (http or s3)")
	flag.StringVar(&remoteAddress, "remote-address", "", "Remote store address")
	flag.DurationVar(&remoteTimeout, "remote-timeout", 0, "Remote request timeout (e.g., 30s, 1m)")
	flag.StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket name")
	flag.StringVar(&s3Region, "s3-region", "", "S3 region")
	flag.StringVar(&s3Endpoint, "s3-endpoint", "", "S3 endpoint override")
	flag.StringVar(&s3Prefix, "s3-prefix", "", "S3 key prefix")
	flag.StringVar(&syncStrategy, "sync-strategy", "", "Sync strategy (full or incremental)")
	flag.StringVar(&conflictPolicy, "conflict-policy", "", "Conflict policy")
	flag.StringVar(&mergePriority, "merge-priority", "", "Merge priority")
	flag.BoolVar(&deduplicate, "dedup", false, "Deduplicate same-content entities during merges")
	flag.BoolVar(&compress, "compress", false, "Compress transported blobs")
	flag.Int64Var(&maxFileSize, "max-file-size", 0, "Per-entity encoded size cap in bytes")
	flag.Int64Var(&reconcileEvery, "reconcile-every", 0, "Full comparison pass every Nth incremental cycle")
	flag.IntVar(&retryAttempts, "retry-attempts", 0, "Transport retry cap")
	flag.DurationVar(&retryBaseDelay, "retry-base-delay", 0, "Initial retry backoff delay")
	flag.IntVar(&parallelism, "parallelism", 0, "Concurrent per-entity sync work bound")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync job period")
	flag.BoolVar(&runOnce, "once", false, "Run a single sync cycle and exit")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			TokenSignKey:  tokenSignKey,
			TokenIssuer:   tokenIssuer,
			TokenDuration: tokenDuration,
			HashKey:       hashKey,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
			Files: Files{
				BlobDataDir: blobStoragePath,
			},
			State: State{
				Dir: stateDir,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Remote: Remote{
			Provider:       remoteProvider,
			HTTPAddress:    remoteAddress,
			RequestTimeout: remoteTimeout,
			S3: S3{
				Bucket:   s3Bucket,
				Region:   s3Region,
				Endpoint: s3Endpoint,
				Prefix:   s3Prefix,
			},
		},
		Sync: Sync{
			Strategy:       syncStrategy,
			ConflictPolicy: conflictPolicy,
			MergePriority:  mergePriority,
			Deduplicate:    deduplicate,
			Compress:       compress,
			MaxFileSize:    maxFileSize,
			ReconcileEvery: reconcileEvery,
			RetryAttempts:  retryAttempts,
			RetryBaseDelay: retryBaseDelay,
			Parallelism:    parallelism,
		},
		Workers: Workers{
			SyncInterval: syncInterval,
			Once:         runOnce,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
