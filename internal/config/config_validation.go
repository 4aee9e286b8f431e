// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "strings"

// validate checks that the final merged [StructuredConfig] satisfies all
// invariants shared by every binary before it is used at startup.
//
// Role-specific rules live on the derived views: the client runtime
// validates through [ClientConfig.validate], the blob server checks its
// storage and address settings at construction time.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if cfg.Storage.State.Dir == "" {
		return ErrInvalidStorageConfigs
	}

	switch cfg.Adapter.Provider {
	case ProviderHTTP:
		if cfg.Adapter.HTTPAddress == "" || cfg.Adapter.RequestTimeout == 0 {
			return ErrInvalidAdapterConfigs
		}
		if cfg.App.HashKey == "" || cfg.App.TokenSignKey == "" {
			return ErrInvalidAppConfigs
		}
	case ProviderS3:
		if cfg.Adapter.S3.Bucket == "" {
			return ErrInvalidAdapterConfigs
		}
	default:
		return ErrInvalidAdapterConfigs
	}

	if cfg.Workers.SyncInterval == 0 && !cfg.Workers.RunOnce {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Sync.MaxFileSize < 0 || cfg.Sync.ReconcileEvery < 0 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Sync.RetryAttempts < 0 || cfg.Sync.RetryBaseDelay < 0 || cfg.Sync.Parallelism < 0 {
		return ErrInvalidSyncConfigs
	}

	return nil
}
