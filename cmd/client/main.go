package main

import (
	"fmt"

	"github.com/MKhiriev/go-life-tracker/internal/client"
	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	fmt.Println(models.NewAppBuildInfo(buildVersion, buildDate, buildCommit))

	log := logger.NewClientLogger("life-tracker-sync")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	app, err := client.NewApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init sync agent error")
	}

	if err = app.Run(); err != nil {
		log.Fatal().Err(err).Msg("sync agent run error")
	}
}
