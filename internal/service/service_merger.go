package service

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"dario.cat/mergo"

	"github.com/MKhiriev/go-life-tracker/models"
)

type dataMerger struct{}

// NewDataMerger builds the merger. It is stateless; the per-cycle
// behavior comes entirely from the MergeConfig passed to each call.
func NewDataMerger() DataMerger {
	return &dataMerger{}
}

// Merge combines two datasets id by id in ascending id order. One-sided
// records are unioned in, identical pairs keep the local copy silently,
// divergent pairs go through MergePair. With cfg.Deduplicate set,
// same-content records under different ids are collapsed afterwards.
func (m *dataMerger) Merge(local, remote models.Collections, cfg models.MergeConfig) (models.Collections, []models.MergeAuditEntry, error) {
	localByID := local.ByID()
	remoteByID := remote.ByID()

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

	var (
		out   models.Collections
		audit []models.MergeAuditEntry
	)

	for _, id := range ids {
		l, hasLocal := localByID[id]
		r, hasRemote := remoteByID[id]

		switch {
		case hasLocal && !hasRemote:
			out.Put(l)
			audit = append(audit, models.MergeAuditEntry{EntityID: id, Action: models.MergeActionUnion})

		case !hasLocal && hasRemote:
			out.Put(r)
			audit = append(audit, models.MergeAuditEntry{EntityID: id, Action: models.MergeActionUnion})

		default:
			// Identical content → the local copy passes through, nothing
			// worth auditing happened. Empty hashes prove nothing and
			// fall through to the pair merge.
			if l.State().Hash != "" && l.State().Hash == r.State().Hash {
				out.Put(l)
				continue
			}

			merged, action, err := m.MergePair(l, r, cfg)
			if err != nil {
				return models.Collections{}, nil, err
			}
			out.Put(merged)
			audit = append(audit, models.MergeAuditEntry{EntityID: id, Action: action})
		}
	}

	if cfg.Deduplicate {
		var dedupAudit []models.MergeAuditEntry
		out, dedupAudit = m.deduplicate(out)
		audit = append(audit, dedupAudit...)
	}

	out.SortByID()

	return out, audit, nil
}

// MergePair settles one divergent pair. The configured priority picks
// the winner, then the winner's empty semantic fields are back-filled
// from the loser. Bookkeeping never crosses over: the loser's SyncInfo
// is blanked before the back-fill, so a losing tombstone flag or origin
// cannot leak into the survivor.
func (m *dataMerger) MergePair(local, remote models.Entity, cfg models.MergeConfig) (models.Entity, models.MergeAction, error) {
	if local.Kind() != remote.Kind() {
		return nil, 0, fmt.Errorf("merge %s: kind mismatch: %s vs %s", local.EntityID(), local.Kind(), remote.Kind())
	}

	winner, loser, action := pickWinner(local, remote, cfg.Priority)

	var (
		merged  models.Entity
		changed bool
		err     error
	)
	switch w := winner.(type) {
	case models.Task:
		l := loser.(models.Task)
		l.SyncInfo = models.SyncInfo{}
		merged, changed, err = backfill(w, l)
	case models.Category:
		l := loser.(models.Category)
		l.SyncInfo = models.SyncInfo{}
		merged, changed, err = backfill(w, l)
	case models.TimeEntry:
		l := loser.(models.TimeEntry)
		l.SyncInfo = models.SyncInfo{}
		merged, changed, err = backfill(w, l)
	case models.Account:
		l := loser.(models.Account)
		l.SyncInfo = models.SyncInfo{}
		merged, changed, err = backfill(w, l)
	case models.Transaction:
		l := loser.(models.Transaction)
		l.SyncInfo = models.SyncInfo{}
		merged, changed, err = backfill(w, l)
	default:
		return nil, 0, fmt.Errorf("merge %s: unsupported entity type %T", local.EntityID(), winner)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("merge %s: %w", local.EntityID(), err)
	}

	if changed {
		action = models.MergeActionMergedFields
	}

	return merged, action, nil
}

// pickWinner applies the priority to a divergent pair.
func pickWinner(local, remote models.Entity, priority models.MergePriority) (winner, loser models.Entity, action models.MergeAction) {
	switch priority {
	case models.PriorityRemoteFirst:
		return remote, local, models.MergeActionKeptRemote
	case models.PriorityTimestampFirst:
		if remote.State().Modified.After(local.State().Modified) {
			return remote, local, models.MergeActionKeptRemote
		}
		// On an exact tie the local copy wins.
		return local, remote, models.MergeActionKeptLocal
	default:
		return local, remote, models.MergeActionKeptLocal
	}
}

// backfill fills the winner's zero fields from the loser and reports
// whether anything actually moved.
func backfill[T any](winner, loser T) (models.Entity, bool, error) {
	merged := winner
	if err := mergo.Merge(&merged, loser, mergo.WithTransformers(timeBackfill{})); err != nil {
		return nil, false, err
	}

	e, ok := any(merged).(models.Entity)
	if !ok {
		return nil, false, fmt.Errorf("unsupported merge type %T", merged)
	}

	return e, !reflect.DeepEqual(merged, winner), nil
}

// timeBackfill teaches mergo to treat time.Time as a scalar: a zero
// timestamp on the winner is replaced by the loser's value instead of
// being merged field by field (time.Time has only unexported fields,
// the default deep merge would leave it untouched).
type timeBackfill struct{}

func (timeBackfill) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf(time.Time{}) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && dst.Interface().(time.Time).IsZero() {
			dst.Set(src)
		}
		return nil
	}
}

// dedupKey identifies content duplicates within one collection kind.
type dedupKey struct {
	kind models.EntityKind
	hash string
}

// deduplicate collapses records with identical content hash inside one
// kind into the lexicographically smallest id. Losers are dropped from
// the result; the audit names the surviving id so callers can remap
// references to it.
func (m *dataMerger) deduplicate(cols models.Collections) (models.Collections, []models.MergeAuditEntry) {
	// Id-sorted walk makes the first occurrence the smallest id.
	cols.SortByID()

	survivors := make(map[dedupKey]string)
	drop := make(map[string]struct{})

	var audit []models.MergeAuditEntry
	for _, e := range cols.All() {
		st := e.State()
		if st.Hash == "" {
			// Without a hash a duplicate cannot be proven.
			continue
		}

		key := dedupKey{kind: st.Kind, hash: st.Hash}
		if into, ok := survivors[key]; ok {
			drop[st.ID] = struct{}{}
			audit = append(audit, models.MergeAuditEntry{EntityID: st.ID, Action: models.MergeActionDeduplicated, Into: into})
			continue
		}
		survivors[key] = st.ID
	}

	if len(drop) == 0 {
		return cols, nil
	}

	var out models.Collections
	for _, e := range cols.All() {
		if _, dropped := drop[e.EntityID()]; dropped {
			continue
		}
		out.Put(e)
	}

	return out, audit
}
