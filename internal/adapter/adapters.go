package adapter

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
)

// NewRemoteTransport builds the [RemoteTransport] selected by
// adapterCfg.Provider. An empty provider falls back to the HTTP blob
// client; unknown providers are configuration errors.
//
// deviceID identifies this installation to the remote store and must be
// resolved from the persisted sync state before the transport is built.
func NewRemoteTransport(ctx context.Context, adapterCfg config.ClientAdapter, appCfg config.ClientApp, deviceID string, logger *logger.Logger) (RemoteTransport, error) {
	switch adapterCfg.Provider {
	case config.ProviderS3:
		transport, err := NewS3RemoteTransport(ctx, adapterCfg.S3, logger)
		if err != nil {
			return nil, fmt.Errorf("s3 remote transport: %w", err)
		}
		return transport, nil
	case config.ProviderHTTP, "":
		transport, err := NewHTTPRemoteTransport(adapterCfg, appCfg, deviceID, logger)
		if err != nil {
			return nil, fmt.Errorf("http remote transport: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unknown remote provider %q", adapterCfg.Provider)
	}
}
