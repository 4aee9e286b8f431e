package handler

import (
	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/handler/http"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/store"
)

// Handlers aggregates the transport handlers of the blob server.
// Only HTTP is served today; the struct keeps room for additional
// transports without touching the server wiring.
type Handlers struct {
	HTTP *http.Handler
}

// NewHandlers builds transport handlers for every configured listen
// address. A configuration that enables no transport at all is a fatal
// startup misconfiguration.
func NewHandlers(blobs store.BlobStore, appCfg config.App, serverCfg config.Server, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	handlers := &Handlers{}

	if serverCfg.HTTPAddress != "" {
		handlers.HTTP = http.NewHandler(blobs, appCfg, logger)
	}

	if handlers.HTTP == nil {
		return nil, errNoHandlersAreCreated
	}

	return handlers, nil
}
