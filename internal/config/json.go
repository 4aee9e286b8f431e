package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		TokenSignKey  string   `json:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer"`
		TokenDuration Duration `json:"token_duration"`
		HashKey       string   `json:"hash_key"`
		Version       string   `json:"version"`
	} `json:"app,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`

		Files struct {
			BlobDataDir string `json:"blob_data_dir"`
		} `json:"files,omitempty"`

		State struct {
			Dir string `json:"dir"`
		} `json:"state,omitempty"`
	} `json:"storage,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`

	Remote struct {
		Provider       string   `json:"provider"`
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`

		S3 struct {
			Bucket          string `json:"bucket"`
			Region          string `json:"region"`
			Endpoint        string `json:"endpoint"`
			AccessKeyID     string `json:"access_key_id"`
			SecretAccessKey string `json:"secret_access_key"`
			Prefix          string `json:"prefix"`
			UsePathStyle    bool   `json:"use_path_style"`
		} `json:"s3,omitempty"`
	} `json:"remote,omitempty"`

	Sync struct {
		Strategy             string   `json:"strategy"`
		ConflictPolicy       string   `json:"conflict_policy"`
		MergePriority        string   `json:"merge_priority"`
		Deduplicate          bool     `json:"deduplicate"`
		Compress             bool     `json:"compress"`
		MaxFileSize          int64    `json:"max_file_size"`
		ReconcileEvery       int64    `json:"reconcile_every"`
		RetryAttempts        int      `json:"retry_attempts"`
		RetryBaseDelay       Duration `json:"retry_base_delay"`
		Parallelism          int      `json:"parallelism"`
		EncryptionPassphrase string   `json:"encryption_passphrase"`
	} `json:"sync,omitempty"`

	Workers struct {
		SyncInterval Duration `json:"sync_interval"`
	} `json:"workers,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			TokenSignKey:  jsonCfg.App.TokenSignKey,
			TokenIssuer:   jsonCfg.App.TokenIssuer,
			TokenDuration: time.Duration(jsonCfg.App.TokenDuration),
			HashKey:       jsonCfg.App.HashKey,
			Version:       jsonCfg.App.Version,
		},
		Storage: Storage{
			DB: DB{
				DSN: jsonCfg.Storage.DB.DSN,
			},
			Files: Files{
				BlobDataDir: jsonCfg.Storage.Files.BlobDataDir,
			},
			State: State{
				Dir: jsonCfg.Storage.State.Dir,
			},
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
		Remote: Remote{
			Provider:       jsonCfg.Remote.Provider,
			HTTPAddress:    jsonCfg.Remote.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Remote.RequestTimeout),
			S3: S3{
				Bucket:          jsonCfg.Remote.S3.Bucket,
				Region:          jsonCfg.Remote.S3.Region,
				Endpoint:        jsonCfg.Remote.S3.Endpoint,
				AccessKeyID:     jsonCfg.Remote.S3.AccessKeyID,
				SecretAccessKey: jsonCfg.Remote.S3.SecretAccessKey,
				Prefix:          jsonCfg.Remote.S3.Prefix,
				UsePathStyle:    jsonCfg.Remote.S3.UsePathStyle,
			},
		},
		Sync: Sync{
			Strategy:             jsonCfg.Sync.Strategy,
			ConflictPolicy:       jsonCfg.Sync.ConflictPolicy,
			MergePriority:        jsonCfg.Sync.MergePriority,
			Deduplicate:          jsonCfg.Sync.Deduplicate,
			Compress:             jsonCfg.Sync.Compress,
			MaxFileSize:          jsonCfg.Sync.MaxFileSize,
			ReconcileEvery:       jsonCfg.Sync.ReconcileEvery,
			RetryAttempts:        jsonCfg.Sync.RetryAttempts,
			RetryBaseDelay:       time.Duration(jsonCfg.Sync.RetryBaseDelay),
			Parallelism:          jsonCfg.Sync.Parallelism,
			EncryptionPassphrase: jsonCfg.Sync.EncryptionPassphrase,
		},
		Workers: Workers{
			SyncInterval: time.Duration(jsonCfg.Workers.SyncInterval),
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
