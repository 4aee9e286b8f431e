package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/MKhiriev/go-life-tracker/internal/config"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/models"
)

// syncStateFileName is the state file inside the configured state dir.
const syncStateFileName = "sync_state.json"

// syncStateStore is the file-backed implementation of [SyncStateStore].
//
// The state is a single small JSON document. Writes go through an
// atomic rename so a crash mid-write leaves the previous state intact;
// the baseline must never be half-updated, or the next cycle would
// reconcile against garbage.
type syncStateStore struct {
	path   string
	logger *logger.Logger
}

// NewSyncStateStore constructs a [SyncStateStore] persisting into the
// configured state directory.
func NewSyncStateStore(cfg config.ClientState, logger *logger.Logger) SyncStateStore {
	return &syncStateStore{
		path:   filepath.Join(cfg.Dir, syncStateFileName),
		logger: logger,
	}
}

// Load reads the persisted sync state. A missing file yields the zero
// state of a never-synced installation and no error.
func (s *syncStateStore) Load(ctx context.Context) (models.SyncState, error) {
	log := logger.FromContext(ctx)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().
				Str("func", "syncStateStore.Load").
				Str("path", s.path).
				Msg("no sync state file found, starting from zero state")
			return models.SyncState{}, nil
		}
		log.Err(err).
			Str("func", "syncStateStore.Load").
			Str("path", s.path).
			Msg("failed to read sync state file")
		return models.SyncState{}, fmt.Errorf("read sync state file: %w", err)
	}

	var state models.SyncState
	if err = json.Unmarshal(data, &state); err != nil {
		log.Err(err).
			Str("func", "syncStateStore.Load").
			Str("path", s.path).
			Msg("failed to decode sync state file")
		return models.SyncState{}, fmt.Errorf("%w: %w", ErrSyncStateCorrupt, err)
	}

	return state, nil
}

// Save atomically replaces the persisted sync state.
func (s *syncStateStore) Save(ctx context.Context, state models.SyncState) error {
	log := logger.FromContext(ctx)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Err(err).
				Str("func", "syncStateStore.Save").
				Str("path", s.path).
				Msg("failed to create sync state dir")
			return fmt.Errorf("create sync state dir: %w", err)
		}
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Err(err).
			Str("func", "syncStateStore.Save").
			Msg("failed to encode sync state")
		return fmt.Errorf("encode sync state: %w", err)
	}

	if err = atomic.WriteFile(s.path, bytes.NewReader(payload)); err != nil {
		log.Err(err).
			Str("func", "syncStateStore.Save").
			Str("path", s.path).
			Msg("failed to write sync state file")
		return fmt.Errorf("write sync state file: %w", err)
	}

	log.Debug().
		Str("func", "syncStateStore.Save").
		Str("path", s.path).
		Int64("cycle_count", state.CycleCount).
		Msg("sync state persisted")

	return nil
}
