package service

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MKhiriev/go-life-tracker/models"
)

type dataComparator struct {
	parallelism int
}

// NewDataComparator builds the comparator. parallelism bounds the
// worker group CompareAll fans out over; values below 1 fall back to
// serial comparison.
func NewDataComparator(parallelism int) DataComparator {
	if parallelism < 1 {
		parallelism = 1
	}
	return &dataComparator{parallelism: parallelism}
}

// Compare classifies one entity by hash, provenance and modification
// times relative to lastSync. The outcome is pure: no clock reads, no
// side effects, same input gives the same answer.
func (c *dataComparator) Compare(local, remote *models.EntityState, lastSync time.Time) models.ComparisonResult {
	switch {
	case local == nil && remote == nil:
		return models.ComparisonSame
	case remote == nil:
		return c.compareLocalOnly(local, lastSync)
	case local == nil:
		// Record exists remotely only → pull it. A remote tombstone is
		// pulled like any record so the deletion keeps propagating.
		return models.ComparisonRemoteNewer
	}

	if local.Hash == remote.Hash {
		return models.ComparisonSame
	}

	// Same id, different content, local copy never exchanged with the
	// remote store: two devices created the record independently. Not a
	// conflict of edits, a collision of creations → union both.
	if local.Origin == models.OriginFresh {
		return models.ComparisonNeedsMerge
	}

	localChanged := local.Modified.After(lastSync)
	remoteChanged := remote.Modified.After(lastSync)

	switch {
	case localChanged && remoteChanged:
		return models.ComparisonConflict
	case localChanged:
		return models.ComparisonLocalNewer
	case remoteChanged:
		return models.ComparisonRemoteNewer
	}

	// Neither side changed since lastSync yet contents differ: a stale
	// mirror. The later edit wins, a tie keeps the local copy.
	if remote.Modified.After(local.Modified) {
		return models.ComparisonRemoteNewer
	}
	return models.ComparisonLocalNewer
}

// compareLocalOnly classifies a record absent from the remote listing.
func (c *dataComparator) compareLocalOnly(local *models.EntityState, lastSync time.Time) models.ComparisonResult {
	// Never exchanged with the remote store → push.
	if local.Origin != models.OriginBasedOnRemote {
		return models.ComparisonLocalNewer
	}

	// Previously synced record vanished remotely. A local edit made
	// after lastSync outranks the disappearance → push it back up.
	if local.Modified.After(lastSync) {
		return models.ComparisonLocalNewer
	}

	// Otherwise the remote absence is treated as an intentional removal
	// and flows down as a deletion.
	return models.ComparisonRemoteNewer
}

// CompareAll classifies the union of both id sets in ascending id order,
// fanning the per-entity work out over a bounded group. Per-id results
// land by index, so output order never depends on scheduling.
func (c *dataComparator) CompareAll(ctx context.Context, local, remote []models.EntityState, lastSync time.Time) ([]models.Comparison, error) {
	localByID := statesByID(local)
	remoteByID := statesByID(remote)

	ids := make([]string, 0, len(localByID)+len(remoteByID))
	for id := range localByID {
		ids = append(ids, id)
	}
	for id := range remoteByID {
		if _, ok := localByID[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	results := make([]models.Comparison, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var l, r *models.EntityState
			if s, ok := localByID[id]; ok {
				l = &s
			}
			if s, ok := remoteByID[id]; ok {
				r = &s
			}

			results[i] = models.Comparison{ID: id, Kind: stateKind(l, r), Result: c.Compare(l, r, lastSync)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func statesByID(states []models.EntityState) map[string]models.EntityState {
	out := make(map[string]models.EntityState, len(states))
	for _, s := range states {
		out[s.ID] = s
	}
	return out
}

func stateKind(l, r *models.EntityState) models.EntityKind {
	if l != nil {
		return l.Kind
	}
	if r != nil {
		return r.Kind
	}
	return 0
}
