package client

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/MKhiriev/go-life-tracker/internal/adapter"
	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/crypto"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/service"
	"github.com/MKhiriev/go-life-tracker/internal/store"
	"github.com/MKhiriev/go-life-tracker/internal/utils"
	"github.com/MKhiriev/go-life-tracker/internal/workers"
	"github.com/MKhiriev/go-life-tracker/models"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
)

// App is the headless sync agent. It owns the wired service graph and the
// background workers that drive periodic synchronization cycles.
type App struct {
	services *service.Services
	workers  *workers.Workers
	logger   *logger.Logger
	runOnce  bool
}

// NewApp assembles the client runtime: local storage, the remote transport
// bound to this installation's device id, and the sync services on top of
// them.
func NewApp(cfg *config.ClientConfig, log *logger.Logger) (*App, error) {
	ctx := context.Background()

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create storages: %w", err)
	}

	// The transport authenticates every request as this device, so the id
	// has to exist before the transport does.
	deviceID, err := resolveDeviceID(ctx, storages.SyncState, log)
	if err != nil {
		return nil, fmt.Errorf("resolve device id: %w", err)
	}

	transport, err := adapter.NewRemoteTransport(ctx, cfg.Adapter, cfg.App, deviceID, log)
	if err != nil {
		return nil, fmt.Errorf("create remote transport: %w", err)
	}

	sealer := crypto.NewBlobSealer()
	var sealKey []byte
	if cfg.Sync.EncryptionPassphrase != "" {
		sealKey = sealer.DeriveKey(cfg.Sync.EncryptionPassphrase, []byte(crypto.SealingSalt))
	}

	settings := service.EngineSettings{
		Strategy: models.SyncStrategy{
			Type:           cfg.Sync.Strategy,
			ConflictPolicy: cfg.Sync.ConflictPolicy,
			Merge:          cfg.Sync.Merge,
			Compress:       cfg.Sync.Compress,
			MaxFileSize:    cfg.Sync.MaxFileSize,
			ReconcileEvery: cfg.Sync.ReconcileEvery,
		},
		RetryAttempts:  cfg.Sync.RetryAttempts,
		RetryBaseDelay: cfg.Sync.RetryBaseDelay,
		Parallelism:    cfg.Sync.Parallelism,
	}

	var stateLock *flock.Flock
	if cfg.Storage.State.Dir != "" {
		stateLock = flock.New(filepath.Join(cfg.Storage.State.Dir, "sync.lock"))
	}

	services := service.NewServices(
		storages.Entities,
		storages.SyncState,
		transport,
		sealer,
		sealKey,
		settings,
		clockwork.NewRealClock(),
		stateLock,
	)

	syncWorkers := workers.New(workers.NewSyncWorker(services.Job, cfg.Workers.SyncInterval))

	return &App{
		services: services,
		workers:  syncWorkers,
		logger:   log,
		runOnce:  cfg.Workers.RunOnce,
	}, nil
}

// Run executes a single cycle in one-shot mode, or starts the periodic sync
// workers and blocks until the process receives a termination signal.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if a.runOnce {
		return a.runSingleCycle(ctx)
	}

	a.workers.Run(ctx)
	a.logger.Info().Msg("sync agent started")

	<-ctx.Done()

	a.workers.Stop()
	a.logger.Info().Msg("sync agent stopped gracefully")

	return nil
}

// runSingleCycle drives one synchronization cycle, for cron-style
// invocations and manual runs.
func (a *App) runSingleCycle(ctx context.Context) error {
	result, err := a.services.Engine.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("run cycle: %w", err)
	}
	if result.Status == models.CycleFailed {
		return fmt.Errorf("cycle failed at stage %s: %w", result.Stage, result.Err)
	}

	a.logger.Info().
		Str("status", result.Status.String()).
		Int("applied", result.Applied).
		Int("merged", result.Merged).
		Int("skipped", result.Skipped).
		Msg("single cycle finished")

	return nil
}

// resolveDeviceID returns the installation's device id, minting and
// persisting a fresh one on first run.
func resolveDeviceID(ctx context.Context, states store.SyncStateStore, log *logger.Logger) (string, error) {
	state, err := states.Load(ctx)
	if err != nil {
		return "", err
	}
	if state.DeviceID != "" {
		return state.DeviceID, nil
	}

	state.DeviceID = utils.NewUUIDGenerator().Generate()
	if err := states.Save(ctx, state); err != nil {
		return "", err
	}
	log.Info().Str("device_id", state.DeviceID).Msg("device id assigned")

	return state.DeviceID, nil
}
