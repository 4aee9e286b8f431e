// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-life-tracker/internal/adapter"
	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/internal/metrics"
	"github.com/MKhiriev/go-life-tracker/internal/store"
	"github.com/MKhiriev/go-life-tracker/internal/utils"
	"github.com/MKhiriev/go-life-tracker/models"
)

const (
	// snapshotPath is the remote location of the full-dataset snapshot
	// artifact, refreshed after cycles that moved data.
	snapshotPath = "snapshot.json"

	// maxRetryDelay caps the exponential backoff between transport
	// retries.
	maxRetryDelay = 30 * time.Second

	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultParallelism    = 4
)

// EngineDeps bundles the stores, the transport and the sub-services one
// engine drives.
type EngineDeps struct {
	Repo       store.EntityRepository
	StateStore store.SyncStateStore
	Transport  adapter.RemoteTransport

	Serializer DataSerializer
	Validator  DataValidator
	Comparator DataComparator
	Resolver   ConflictResolver
	Merger     DataMerger
	Integrity  DataIntegrityChecker
}

// EngineSettings carries the tunables one engine instance runs under.
type EngineSettings struct {
	// Strategy is the per-cycle plan template; the baseline fields are
	// filled from the persisted sync state at the start of each cycle.
	Strategy models.SyncStrategy

	// RetryAttempts bounds transport retries per operation.
	RetryAttempts int

	// RetryBaseDelay is the first backoff step; subsequent steps grow
	// exponentially up to a fixed cap.
	RetryBaseDelay time.Duration

	// Parallelism bounds the comparison and fetch worker groups.
	Parallelism int
}

type syncEngine struct {
	repo       store.EntityRepository
	stateStore store.SyncStateStore
	transport  adapter.RemoteTransport

	serializer DataSerializer
	validator  DataValidator
	comparator DataComparator
	resolver   ConflictResolver
	merger     DataMerger
	integrity  DataIntegrityChecker

	strategy       models.SyncStrategy
	retryAttempts  int
	retryBaseDelay time.Duration
	parallelism    int

	clock clockwork.Clock
	uuid  *utils.UUIDGenerator

	// stateLock guards the sync state against a second process syncing
	// the same profile directory. Nil disables cross-process exclusion.
	stateLock *flock.Flock

	// mu enforces at most one cycle in flight per engine. A concurrent
	// RunCycle is rejected, never queued.
	mu sync.Mutex
}

// NewSyncEngine builds the cycle state machine. Zero settings fall back
// to defaults; a nil clock falls back to the wall clock.
func NewSyncEngine(deps EngineDeps, settings EngineSettings, clock clockwork.Clock, stateLock *flock.Flock) SyncEngine {
	if settings.RetryAttempts < 1 {
		settings.RetryAttempts = defaultRetryAttempts
	}
	if settings.RetryBaseDelay <= 0 {
		settings.RetryBaseDelay = defaultRetryBaseDelay
	}
	if settings.Parallelism < 1 {
		settings.Parallelism = defaultParallelism
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &syncEngine{
		repo:       deps.Repo,
		stateStore: deps.StateStore,
		transport:  deps.Transport,

		serializer: deps.Serializer,
		validator:  deps.Validator,
		comparator: deps.Comparator,
		resolver:   deps.Resolver,
		merger:     deps.Merger,
		integrity:  deps.Integrity,

		strategy:       settings.Strategy,
		retryAttempts:  settings.RetryAttempts,
		retryBaseDelay: settings.RetryBaseDelay,
		parallelism:    settings.Parallelism,

		clock:     clock,
		uuid:      utils.NewUUIDGenerator(),
		stateLock: stateLock,
	}
}

// cycleRun is the working state of one cycle, handed from stage to stage.
type cycleRun struct {
	state     models.SyncState
	strategy  models.SyncStrategy
	effective models.StrategyType
	lastSync  time.Time

	localCols   models.Collections
	localByID   map[string]models.Entity
	localHashes map[string]string

	remoteByPath map[string]models.SyncMetadata
	remoteStates map[string]models.EntityState
	fetched      map[string]models.Entity

	// candidates narrows the comparison to changed ids; nil compares
	// everything (full strategy).
	candidates map[string]struct{}

	comparisons []models.Comparison
	needsMerge  []string
	pendingIDs  []string

	changeset     map[string]models.Entity
	pushSet       map[string]struct{}
	remoteDeletes map[string]struct{}
	putMetas      map[string]models.SyncMetadata

	applied int
	merged  int
	skipped int
	counts  models.CollectionCounts
}

// RunCycle executes one synchronization cycle.
//
// The cycle walks a fixed stage order; cancellation is honored at stage
// boundaries, a started stage runs to its end. Any stage error aborts
// the cycle with nothing committed, except a failure during Committing
// after the local write: the local datastore is then already consistent
// and the next cycle re-converges the remote side from it.
func (e *syncEngine) RunCycle(ctx context.Context) (models.CycleResult, error) {
	if !e.mu.TryLock() {
		return models.CycleResult{}, ErrCycleInFlight
	}
	defer e.mu.Unlock()

	if e.stateLock != nil {
		locked, err := e.stateLock.TryLock()
		if err != nil {
			return e.fail(ctx, models.StageIdle, fmt.Errorf("acquire state lock: %w", err))
		}
		if !locked {
			return models.CycleResult{}, fmt.Errorf("%w: state lock held by another process", ErrCycleInFlight)
		}
		defer func() { _ = e.stateLock.Unlock() }()
	}

	log := logger.FromContext(ctx)
	cycleStart := e.clock.Now()
	run := &cycleRun{
		fetched:       make(map[string]models.Entity),
		changeset:     make(map[string]models.Entity),
		pushSet:       make(map[string]struct{}),
		remoteDeletes: make(map[string]struct{}),
		putMetas:      make(map[string]models.SyncMetadata),
	}

	stages := []struct {
		stage models.CycleStage
		fn    func(context.Context, *cycleRun) error
	}{
		{models.StageDeterminingStrategy, e.determineStrategy},
		{models.StageFetchingRemote, e.fetchRemote},
		{models.StageComparing, e.compare},
		{models.StageResolving, e.resolve},
		{models.StageMerging, e.merge},
		{models.StageValidating, e.validate},
		{models.StageAuditingIntegrity, e.auditIntegrity},
		{models.StageCommitting, e.commit},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, s.stage, err)
		}

		log.Debug().Str("stage", s.stage.String()).Msg("sync stage started")
		start := e.clock.Now()
		err := s.fn(ctx, run)
		metrics.ReportStageDuration(s.stage.String(), e.clock.Now().Sub(start))

		if err != nil {
			if errors.Is(err, ErrConflictUnresolved) {
				log.Info().
					Int("conflicts", len(run.pendingIDs)).
					Msg("sync cycle suspended, conflicts await manual resolution")
				metrics.ReportCycle(models.CyclePendingManual.String())
				return models.PendingResult(run.pendingIDs), nil
			}
			return e.fail(ctx, s.stage, err)
		}
	}

	result := models.CompletedResult(run.applied, run.merged, run.skipped, run.counts)
	log.Info().
		Str("device", run.state.DeviceID).
		Str("strategy", run.effective.String()).
		Int("applied", result.Applied).
		Int("merged", result.Merged).
		Int("skipped", result.Skipped).
		Dur("took", e.clock.Now().Sub(cycleStart)).
		Msg("sync cycle completed")
	metrics.ReportCycle(models.CycleCompleted.String())

	return result, nil
}

func (e *syncEngine) fail(ctx context.Context, stage models.CycleStage, err error) (models.CycleResult, error) {
	logger.FromContext(ctx).Err(err).Str("stage", stage.String()).Msg("sync cycle failed")
	metrics.ReportCycle(models.CycleFailed.String())
	return models.FailedResult(stage, err), err
}

// ── Stage: determining strategy ─────────────────────────────────────────

func (e *syncEngine) determineStrategy(ctx context.Context, run *cycleRun) error {
	state, err := e.stateStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}
	if state.DeviceID == "" {
		state.DeviceID = e.uuid.Generate()
		logger.FromContext(ctx).Info().Str("device", state.DeviceID).Msg("device id assigned")
	}
	run.state = state

	run.strategy = e.strategy
	run.strategy.LastSyncTime = state.LastSyncTime
	run.effective = run.strategy.EffectiveType(state.CycleCount)
	if state.LastSyncTime != nil {
		run.lastSync = *state.LastSyncTime
	}

	logger.FromContext(ctx).Debug().
		Str("strategy", run.effective.String()).
		Str("policy", run.strategy.ConflictPolicy.String()).
		Int64("cycle", state.CycleCount).
		Time("last_sync", run.lastSync).
		Msg("sync strategy determined")

	return nil
}

// ── Stage: fetching remote ──────────────────────────────────────────────

func (e *syncEngine) fetchRemote(ctx context.Context, run *cycleRun) error {
	// The local dataset loads in full regardless of strategy: the
	// integrity audit needs the whole reference graph.
	cols, err := e.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load local dataset: %w", err)
	}
	run.localCols = cols
	run.localByID = cols.ByID()

	// Content hashes are recomputed every cycle, never trusted from
	// storage: a stale stored hash must not suppress a real difference.
	run.localHashes = make(map[string]string, len(run.localByID))
	for id, ent := range run.localByID {
		h, err := e.serializer.HashEntity(ent)
		if err != nil {
			return err
		}
		run.localHashes[id] = h
	}

	var metas []models.SyncMetadata
	err = e.withRetry(ctx, "list", func(ctx context.Context) error {
		var lerr error
		metas, lerr = e.transport.ListMetadata(ctx)
		return lerr
	})
	if err != nil {
		return fmt.Errorf("%w: list remote metadata: %w", ErrTransport, err)
	}

	run.remoteByPath = make(map[string]models.SyncMetadata, len(metas))
	states := make(map[string]models.EntityState)
	for _, m := range metas {
		if m.IsDir {
			continue
		}
		run.remoteByPath[m.Path] = m
		if st, ok := m.EntityState(); ok {
			states[st.ID] = st
		}
	}

	// Listings may omit content hashes; the mirror from the previous
	// cycle fills them in when size and mtime still match. The filled
	// hash is written back into the path index so the rebuilt mirror
	// keeps it for the next cycle.
	for id, st := range states {
		if st.Hash != "" {
			continue
		}
		path := models.RemotePath(st.Kind, id)
		if prev, ok := run.state.RemoteIndex[path]; ok && prev.Hash != "" &&
			prev.Size == st.Size && prev.Modified.Equal(st.Modified) {
			st.Hash = prev.Hash
			states[id] = st
			run.setKnownHash(path, prev.Hash)
		}
	}

	if run.effective == models.StrategyIncremental {
		if err := e.narrowCandidates(ctx, run, states); err != nil {
			return err
		}
	}

	if err := e.fetchUnknownHashes(ctx, run, states); err != nil {
		return err
	}
	run.remoteStates = states

	logger.FromContext(ctx).Debug().
		Int("local", len(run.localByID)).
		Int("remote", len(states)).
		Int("candidates", len(run.candidates)).
		Msg("datasets loaded")

	return nil
}

// narrowCandidates builds the incremental compare set: local entities
// changed since the baseline, remote artifacts whose metadata moved
// against the mirror, and mirrored artifacts that vanished remotely.
func (e *syncEngine) narrowCandidates(ctx context.Context, run *cycleRun, states map[string]models.EntityState) error {
	changed, err := e.repo.LoadChangedSince(ctx, run.lastSync)
	if err != nil {
		return fmt.Errorf("load changed entities: %w", err)
	}

	candidates := make(map[string]struct{})
	for _, ent := range changed.All() {
		candidates[ent.EntityID()] = struct{}{}
	}

	for id, st := range states {
		path := models.RemotePath(st.Kind, id)
		prev, ok := run.state.RemoteIndex[path]
		if !ok || prev.Size != st.Size || !prev.Modified.Equal(st.Modified) {
			candidates[id] = struct{}{}
		}
	}

	for path := range run.state.RemoteIndex {
		if _, stillThere := run.remoteByPath[path]; stillThere {
			continue
		}
		if _, id, err := models.SplitRemotePath(path); err == nil {
			candidates[id] = struct{}{}
		}
	}

	run.candidates = candidates
	return nil
}

// fetchUnknownHashes downloads the candidate artifacts whose content
// hash is still unknown and recomputes it from the decoded entity. The
// carried hash of a foreign blob is never trusted.
func (e *syncEngine) fetchUnknownHashes(ctx context.Context, run *cycleRun, states map[string]models.EntityState) error {
	var toFetch []string
	for id, st := range states {
		if st.Hash != "" {
			continue
		}
		if run.candidates != nil {
			if _, ok := run.candidates[id]; !ok {
				continue
			}
		}
		toFetch = append(toFetch, id)
	}
	if len(toFetch) == 0 {
		return nil
	}
	sort.Strings(toFetch)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for _, id := range toFetch {
		st := states[id]
		g.Go(func() error {
			ent, err := e.fetchEntity(gctx, st.Kind, id)
			if err != nil {
				return err
			}
			h, err := e.serializer.HashEntity(ent)
			if err != nil {
				return err
			}

			mu.Lock()
			run.fetched[id] = ent
			st.Hash = h
			states[id] = st
			run.setKnownHash(models.RemotePath(st.Kind, id), h)
			mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}

// fetchEntity downloads and decodes one remote entity blob.
func (e *syncEngine) fetchEntity(ctx context.Context, kind models.EntityKind, id string) (models.Entity, error) {
	path := models.RemotePath(kind, id)

	var blob []byte
	err := e.withRetry(ctx, "get", func(ctx context.Context) error {
		var gerr error
		blob, gerr = e.transport.Get(ctx, path)
		return gerr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrTransport, path, err)
	}

	raw, err := e.serializer.DecodeBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	ent, err := e.serializer.UnmarshalEntity(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}

	return ent, nil
}

// remoteEntity returns the remote copy of id, fetching it on demand.
func (e *syncEngine) remoteEntity(ctx context.Context, run *cycleRun, id string) (models.Entity, error) {
	if ent, ok := run.fetched[id]; ok {
		return ent, nil
	}
	st, ok := run.remoteStates[id]
	if !ok {
		return nil, fmt.Errorf("no remote copy of %s", id)
	}

	ent, err := e.fetchEntity(ctx, st.Kind, id)
	if err != nil {
		return nil, err
	}
	run.fetched[id] = ent
	return ent, nil
}

// ── Stage: comparing ────────────────────────────────────────────────────

func (e *syncEngine) compare(ctx context.Context, run *cycleRun) error {
	local := make([]models.EntityState, 0, len(run.localByID))
	for id, ent := range run.localByID {
		if !run.inScope(id) {
			continue
		}
		st := ent.State()
		st.Hash = run.localHashes[id]
		local = append(local, st)
	}

	remote := make([]models.EntityState, 0, len(run.remoteStates))
	for id, st := range run.remoteStates {
		if !run.inScope(id) {
			continue
		}
		remote = append(remote, st)
	}

	comparisons, err := e.comparator.CompareAll(ctx, local, remote, run.lastSync)
	if err != nil {
		return err
	}
	run.comparisons = comparisons

	perResult := make(map[string]int)
	for _, cmp := range comparisons {
		perResult[cmp.Result.String()]++
	}
	logger.FromContext(ctx).Debug().
		Int("compared", len(comparisons)).
		Any("results", perResult).
		Msg("comparison finished")

	return nil
}

// inScope reports whether the id belongs to this cycle's compare set.
func (r *cycleRun) inScope(id string) bool {
	if r.candidates == nil {
		return true
	}
	_, ok := r.candidates[id]
	return ok
}

// setKnownHash records a learned content hash on the path index entry.
func (r *cycleRun) setKnownHash(path, hash string) {
	if m, ok := r.remoteByPath[path]; ok {
		m.Hash = hash
		r.remoteByPath[path] = m
	}
}

// ── Stage: resolving ────────────────────────────────────────────────────

func (e *syncEngine) resolve(ctx context.Context, run *cycleRun) error {
	for _, cmp := range run.comparisons {
		switch cmp.Result {
		case models.ComparisonSame:
			// Self-heal: a fresh local copy whose content already exists
			// remotely only needs its provenance recorded.
			local, hasLocal := run.localByID[cmp.ID]
			_, hasRemote := run.remoteStates[cmp.ID]
			if hasLocal && hasRemote && local.State().Origin != models.OriginBasedOnRemote {
				if err := e.stageLocal(run, markEntitySynced(local)); err != nil {
					return err
				}
			}

		case models.ComparisonLocalNewer:
			run.pushSet[cmp.ID] = struct{}{}

		case models.ComparisonRemoteNewer:
			if _, ok := run.remoteStates[cmp.ID]; !ok {
				// Previously synced artifact vanished remotely: the
				// removal flows down as a local tombstone.
				if local := run.localByID[cmp.ID]; !local.State().Deleted {
					if err := e.stageLocal(run, tombstoneEntity(local, e.clock.Now())); err != nil {
						return err
					}
				}
				continue
			}
			remote, err := e.remoteEntity(ctx, run, cmp.ID)
			if err != nil {
				return err
			}
			if err := e.stageLocal(run, remote); err != nil {
				return err
			}

		case models.ComparisonConflict:
			if err := e.resolveConflict(ctx, run, cmp.ID); err != nil {
				return err
			}

		case models.ComparisonNeedsMerge:
			run.needsMerge = append(run.needsMerge, cmp.ID)
		}
	}

	if len(run.pendingIDs) > 0 {
		return fmt.Errorf("%w: %d entities await manual resolution", ErrConflictUnresolved, len(run.pendingIDs))
	}

	return nil
}

func (e *syncEngine) resolveConflict(ctx context.Context, run *cycleRun, id string) error {
	local := run.localByID[id]
	remote, err := e.remoteEntity(ctx, run, id)
	if err != nil {
		return err
	}

	resolved, resolution, err := e.resolver.Resolve(local, remote, run.strategy.ConflictPolicy)
	if err != nil {
		return err
	}
	metrics.ReportConflicts(resolution.String(), 1)
	logger.FromContext(ctx).Debug().
		Str("id", id).
		Str("resolution", resolution.String()).
		Msg("conflict settled")

	switch resolution {
	case models.ResolutionUseLocal:
		run.pushSet[id] = struct{}{}

	case models.ResolutionUseRemote:
		return e.stageLocal(run, resolved)

	case models.ResolutionMerge:
		// The merged copy is a new edit: stamp it and converge both sides.
		if err := e.stageLocal(run, touchEntity(resolved, e.clock.Now())); err != nil {
			return err
		}
		run.pushSet[id] = struct{}{}
		run.merged++

	case models.ResolutionSkip:
		run.skipped++

	case models.ResolutionPending:
		run.pendingIDs = append(run.pendingIDs, id)
	}

	return nil
}

// ── Stage: merging ──────────────────────────────────────────────────────

func (e *syncEngine) merge(ctx context.Context, run *cycleRun) error {
	if err := e.mergeCollidingPairs(ctx, run); err != nil {
		return err
	}
	if run.strategy.Merge.Deduplicate {
		return e.collapseDuplicates(ctx, run)
	}
	return nil
}

// mergeCollidingPairs settles id collisions of independently created
// records: both copies are merged, the result converges on both sides.
func (e *syncEngine) mergeCollidingPairs(ctx context.Context, run *cycleRun) error {
	if len(run.needsMerge) == 0 {
		return nil
	}

	var localSub, remoteSub models.Collections
	for _, id := range run.needsMerge {
		localSub.Put(run.localByID[id])
		remote, err := e.remoteEntity(ctx, run, id)
		if err != nil {
			return err
		}
		remoteSub.Put(remote)
	}

	// Deduplication has its own pass over the final dataset below.
	cfg := run.strategy.Merge
	cfg.Deduplicate = false

	merged, audit, err := e.merger.Merge(localSub, remoteSub, cfg)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	for _, entry := range audit {
		log.Debug().
			Str("id", entry.EntityID).
			Str("action", entry.Action.String()).
			Msg("merge decision")
	}

	now := e.clock.Now()
	for _, ent := range merged.All() {
		id := ent.EntityID()
		h, err := e.serializer.HashEntity(ent)
		if err != nil {
			return err
		}
		if h != run.localHashes[id] {
			ent = touchEntity(ent, now)
		}
		if err := e.stageLocal(run, ent); err != nil {
			return err
		}
		run.pushSet[id] = struct{}{}
		run.merged++
	}

	return nil
}

// collapseDuplicates runs the merger's deduplication over the final
// dataset, then tombstones the collapsed ids, removes their remote
// artifacts and remaps every reference to the surviving id.
func (e *syncEngine) collapseDuplicates(ctx context.Context, run *cycleRun) error {
	_, audit, err := e.merger.Merge(e.finalDataset(run), models.Collections{}, run.strategy.Merge)
	if err != nil {
		return err
	}

	var losers []models.MergeAuditEntry
	for _, entry := range audit {
		if entry.Action == models.MergeActionDeduplicated {
			losers = append(losers, entry)
		}
	}
	if len(losers) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)
	now := e.clock.Now()

	for _, entry := range losers {
		log.Info().
			Str("id", entry.EntityID).
			Str("into", entry.Into).
			Msg("duplicate collapsed")

		loser := e.finalEntity(run, entry.EntityID)
		if loser == nil || loser.State().Deleted {
			continue
		}
		if err := e.stageLocal(run, tombstoneEntity(loser, now)); err != nil {
			return err
		}
		run.remoteDeletes[entry.EntityID] = struct{}{}
		delete(run.pushSet, entry.EntityID)
	}

	// Second pass: nothing may keep pointing at a collapsed id.
	final := e.finalDataset(run)
	for _, ent := range final.All() {
		if ent.State().Deleted {
			continue
		}

		cur, changed := ent, false
		for _, l := range losers {
			next, ch := remapEntityRefs(cur, l.EntityID, l.Into)
			if ch {
				cur = next
				changed = true
			}
		}
		if !changed {
			continue
		}

		if err := e.stageLocal(run, touchEntity(cur, now)); err != nil {
			return err
		}
		run.pushSet[cur.EntityID()] = struct{}{}
	}

	return nil
}

// ── Stage: validating ───────────────────────────────────────────────────

// validate checks every entity the cycle is about to write or upload.
// Records untouched by the cycle are not re-validated; a historic local
// oddity must not wedge synchronization of unrelated changes.
func (e *syncEngine) validate(ctx context.Context, run *cycleRun) error {
	touched := make(map[string]struct{}, len(run.changeset)+len(run.pushSet))
	for id := range run.changeset {
		touched[id] = struct{}{}
	}
	for id := range run.pushSet {
		touched[id] = struct{}{}
	}

	var cols models.Collections
	for _, id := range sortedIDs(touched) {
		if ent := e.finalEntity(run, id); ent != nil {
			cols.Put(ent)
		}
	}

	report := e.validator.ValidateAll(ctx, cols)
	if !report.Valid {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(report.Errors, "; "))
	}

	return nil
}

// ── Stage: auditing integrity ───────────────────────────────────────────

// auditIntegrity is the commit gate: the dataset that would exist after
// the commit must hold referentially, otherwise nothing is written.
func (e *syncEngine) auditIntegrity(ctx context.Context, run *cycleRun) error {
	report := e.integrity.Check(ctx, e.finalDataset(run))
	run.counts = report.Counts

	if !report.Valid {
		return fmt.Errorf("%w: %s", ErrIntegrity, strings.Join(report.Errors, "; "))
	}

	return nil
}

// ── Stage: committing ───────────────────────────────────────────────────

func (e *syncEngine) commit(ctx context.Context, run *cycleRun) error {
	log := logger.FromContext(ctx)

	// 1. All-or-nothing local write of everything staged.
	if len(run.changeset) > 0 {
		var batch models.Collections
		for _, id := range sortedIDs(run.changeset) {
			ent := run.changeset[id]
			if _, willPush := run.pushSet[id]; !willPush {
				// Entities arriving from the remote side are recorded as
				// exchanged right away; pushed ones flip only after
				// their upload went through.
				ent = markEntitySynced(ent)
				run.changeset[id] = ent
			}
			batch.Put(ent)
		}
		if err := e.repo.Commit(ctx, batch); err != nil {
			return fmt.Errorf("commit local changes: %w", err)
		}
		run.applied = batch.Len()
		metrics.ReportPulled(run.applied)
		log.Debug().Int("applied", run.applied).Msg("local changes committed")
	}

	// 2. Remote convergence, serialized in ascending id order.
	pushed := make([]models.Entity, 0, len(run.pushSet))
	for _, id := range sortedIDs(run.pushSet) {
		ent := e.finalEntity(run, id)
		if ent == nil {
			continue
		}
		ok, err := e.pushEntity(ctx, run, ent)
		if err != nil {
			return err
		}
		if ok {
			pushed = append(pushed, ent)
		}
	}
	metrics.ReportPushed(len(pushed))

	for _, id := range sortedIDs(run.remoteDeletes) {
		ent := e.finalEntity(run, id)
		if ent == nil {
			continue
		}
		path := models.RemotePath(ent.Kind(), id)
		if _, listed := run.remoteByPath[path]; !listed {
			continue
		}
		if err := e.withRetry(ctx, "delete", func(ctx context.Context) error {
			return e.transport.Delete(ctx, path)
		}); err != nil {
			return fmt.Errorf("%w: delete %s: %w", ErrTransport, path, err)
		}
		delete(run.remoteByPath, path)
		log.Debug().Str("path", path).Msg("remote artifact removed")
	}

	// 3. Snapshot artifact, refreshed only when the cycle moved data, so
	// an idle cycle performs zero uploads. Snapshot failures do not fail
	// the cycle: per-entity state is already consistent.
	if len(run.changeset) > 0 || len(pushed) > 0 || len(run.remoteDeletes) > 0 {
		if err := e.pushSnapshot(ctx, run); err != nil {
			log.Warn().Err(err).Msg("snapshot upload failed")
		}
	}

	// 4. Provenance flip for pushed entities, a second small write. If
	// the process dies between the upload and this write the entity is
	// re-pushed next cycle, which is harmless; flipping before the
	// upload would instead risk mistaking an unpushed record for a
	// remote deletion.
	var flips models.Collections
	for _, ent := range pushed {
		if ent.State().Origin == models.OriginBasedOnRemote {
			continue
		}
		flips.Put(markEntitySynced(ent))
	}
	if flips.Len() > 0 {
		if err := e.repo.Commit(ctx, flips); err != nil {
			return fmt.Errorf("record pushed entities: %w", err)
		}
	}

	// 5. The new baseline, written exactly once per successful cycle.
	syncTime := e.clock.Now().UTC()
	newState := run.state
	newState.LastSyncTime = &syncTime
	newState.CycleCount++
	newState.RemoteIndex = e.rebuildRemoteIndex(run)

	if err := e.stateStore.Save(ctx, newState); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	run.state = newState

	return nil
}

// pushEntity uploads one entity blob. Returns false when the encoded
// blob exceeds the size cap; the skip is per entity and never fails the
// cycle.
func (e *syncEngine) pushEntity(ctx context.Context, run *cycleRun, ent models.Entity) (bool, error) {
	id := ent.EntityID()
	path := models.RemotePath(ent.Kind(), id)

	raw, err := e.serializer.MarshalEntity(ent)
	if err != nil {
		return false, err
	}
	blob, err := e.serializer.EncodeBlob(raw)
	if err != nil {
		return false, err
	}

	if limit := run.strategy.MaxFileSize; limit > 0 && int64(len(blob)) > limit {
		logger.FromContext(ctx).Warn().
			Err(fmt.Errorf("%w: %s is %d bytes, limit %d", ErrSizeLimitExceeded, path, len(blob), limit)).
			Msg("entity skipped this cycle")
		metrics.ReportOversizeSkip()
		run.skipped++
		return false, nil
	}

	var meta models.SyncMetadata
	if err := e.withRetry(ctx, "put", func(ctx context.Context) error {
		var perr error
		meta, perr = e.transport.Put(ctx, path, blob, run.localHashes[id])
		return perr
	}); err != nil {
		return false, fmt.Errorf("%w: push %s: %w", ErrTransport, path, err)
	}

	run.putMetas[path] = meta
	return true, nil
}

// pushSnapshot uploads the full-dataset snapshot artifact.
func (e *syncEngine) pushSnapshot(ctx context.Context, run *cycleRun) error {
	snap := models.Snapshot{
		Version:  models.SchemaVersion,
		TakenAt:  e.clock.Now().UTC(),
		DeviceID: run.state.DeviceID,
		Data:     e.finalDataset(run),
	}

	raw, err := e.serializer.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	blob, err := e.serializer.EncodeBlob(raw)
	if err != nil {
		return err
	}
	if limit := run.strategy.MaxFileSize; limit > 0 && int64(len(blob)) > limit {
		return fmt.Errorf("%w: snapshot is %d bytes, limit %d", ErrSizeLimitExceeded, len(blob), limit)
	}

	if err := e.withRetry(ctx, "put", func(ctx context.Context) error {
		_, perr := e.transport.Put(ctx, snapshotPath, blob, "")
		return perr
	}); err != nil {
		return fmt.Errorf("%w: push snapshot: %w", ErrTransport, err)
	}

	return nil
}

// ── Shared plumbing ─────────────────────────────────────────────────────

// stageLocal stamps the entity's recomputed content hash and stages it
// for the local commit.
func (e *syncEngine) stageLocal(run *cycleRun, ent models.Entity) error {
	h, err := e.serializer.HashEntity(ent)
	if err != nil {
		return err
	}
	ent = setEntityHash(ent, h)

	id := ent.EntityID()
	run.changeset[id] = ent
	run.localHashes[id] = h
	return nil
}

// finalEntity returns the post-cycle copy of id: the staged one when
// present, otherwise the loaded local one with its recomputed hash.
func (e *syncEngine) finalEntity(run *cycleRun, id string) models.Entity {
	if ent, ok := run.changeset[id]; ok {
		return ent
	}
	if ent, ok := run.localByID[id]; ok {
		return setEntityHash(ent, run.localHashes[id])
	}
	return nil
}

// finalDataset overlays the staged changeset on the loaded dataset,
// sorted by id.
func (e *syncEngine) finalDataset(run *cycleRun) models.Collections {
	var out models.Collections
	for id := range run.localByID {
		out.Put(e.finalEntity(run, id))
	}
	for id, ent := range run.changeset {
		if _, alreadyIn := run.localByID[id]; !alreadyIn {
			out.Put(ent)
		}
	}
	out.SortByID()
	return out
}

// rebuildRemoteIndex assembles the new metadata mirror: the fresh
// listing overlaid with this cycle's authoritative upload results.
// Deleted paths were already dropped during the commit.
func (e *syncEngine) rebuildRemoteIndex(run *cycleRun) map[string]models.SyncMetadata {
	idx := make(map[string]models.SyncMetadata, len(run.remoteByPath)+len(run.putMetas))
	for path, m := range run.remoteByPath {
		idx[path] = m
	}
	for path, m := range run.putMetas {
		idx[path] = m
	}
	return idx
}

// withRetry runs op under capped exponential backoff with jitter.
// Only transient transport failures are retried; permanent rejections
// and every other error class surface immediately.
func (e *syncEngine) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	b := retry.NewExponential(e.retryBaseDelay)
	b = retry.WithJitter(e.retryBaseDelay/2, b)
	b = retry.WithCappedDuration(maxRetryDelay, b)
	b = retry.WithMaxRetries(uint64(e.retryAttempts), b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, adapter.ErrTransient) {
			metrics.ReportTransportRetry(op)
			return retry.RetryableError(err)
		}
		return err
	})
}

// sortedIDs returns the map's keys in ascending order.
func sortedIDs[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
