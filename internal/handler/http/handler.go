package http

import (
	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/store"
)

type Handler struct {
	blobs store.BlobStore
	cfg   config.App

	logger *logger.Logger
}

func NewHandler(blobs store.BlobStore, cfg config.App, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		blobs:  blobs,
		cfg:    cfg,
		logger: logger,
	}
}
