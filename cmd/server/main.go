package main

import (
	"fmt"

	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/handler"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/server"
	"github.com/MKhiriev/go-life-tracker/internal/store"
	"github.com/MKhiriev/go-life-tracker/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	fmt.Println(buildInfo)

	log := logger.NewLogger("life-tracker-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	// The version endpoint reports the linker-injected version unless the
	// config overrides it.
	if cfg.App.Version == "" {
		cfg.App.Version = buildInfo.Version
	}

	blobs, err := store.NewBlobStore(nil, cfg.Storage.Files, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating blob store")
	}

	handlers, err := handler.NewHandlers(blobs, cfg.App, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating handlers")
	}

	srv, err := server.NewServer(handlers, cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}
