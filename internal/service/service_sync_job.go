package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/models"
)

// defaultSyncInterval is used when Start receives a non-positive interval.
const defaultSyncInterval = 5 * time.Minute

type syncJob struct {
	engine SyncEngine
	clock  clockwork.Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob builds the periodic runner around the engine. A nil clock
// falls back to the wall clock.
func NewSyncJob(engine SyncEngine, clock clockwork.Clock) SyncJob {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &syncJob{engine: engine, clock: clock}
}

// Start launches the periodic loop. A previous loop, if any, is stopped
// first, so Start doubles as a restart with a new interval.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		log := logger.FromContext(jobCtx)
		log.Info().Dur("interval", interval).Msg("periodic sync started")

		ticker := j.clock.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-jobCtx.Done():
				log.Info().Msg("periodic sync stopped")
				return
			case <-ticker.Chan():
				j.runOnce(jobCtx)
			}
		}
	}()
}

// runOnce executes one cycle and reports the outcome. A tick landing
// while the previous cycle still runs is skipped, not queued.
func (j *syncJob) runOnce(ctx context.Context) {
	log := logger.FromContext(ctx)

	res, err := j.engine.RunCycle(ctx)
	switch {
	case errors.Is(err, ErrCycleInFlight):
		log.Debug().Msg("sync tick skipped, cycle still in flight")
	case err != nil:
		log.Err(err).Str("stage", res.Stage.String()).Msg("periodic sync cycle failed")
	case res.Status == models.CyclePendingManual:
		log.Info().
			Int("conflicts", len(res.Conflicts)).
			Msg("periodic sync suspended, conflicts await manual resolution")
	default:
		log.Debug().
			Int("applied", res.Applied).
			Int("merged", res.Merged).
			Int("skipped", res.Skipped).
			Msg("periodic sync cycle completed")
	}
}

// Stop cancels the loop and waits for the in-flight cycle, if any, to
// finish. Safe to call repeatedly and without a prior Start.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}
