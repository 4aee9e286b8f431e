package service

import (
	"context"

	"github.com/MKhiriev/go-life-tracker/models"
)

type dataIntegrityChecker struct{}

// NewDataIntegrityChecker builds the referential integrity checker.
func NewDataIntegrityChecker() DataIntegrityChecker {
	return &dataIntegrityChecker{}
}

// Check audits every cross-entity reference of the dataset. A reference
// target that is absent or tombstoned counts as missing; tombstoned
// source records are skipped entirely, their references stopped
// mattering when they were deleted. Violations are reported in input
// order, collections in canonical kind order. The input is never
// mutated.
func (c *dataIntegrityChecker) Check(ctx context.Context, cols models.Collections) *models.DataIntegrityReport {
	report := models.NewDataIntegrityReport(cols.Counts())

	liveTasks := make(map[string]struct{}, len(cols.Tasks))
	for _, t := range cols.Tasks {
		if !t.Deleted {
			liveTasks[t.ID] = struct{}{}
		}
	}

	liveAccounts := make(map[string]struct{}, len(cols.Accounts))
	for _, a := range cols.Accounts {
		if !a.Deleted {
			liveAccounts[a.ID] = struct{}{}
		}
	}

	// Categories keep their records, the parent chain walk needs them.
	liveCategories := make(map[string]models.Category, len(cols.Categories))
	for _, cat := range cols.Categories {
		if !cat.Deleted {
			liveCategories[cat.ID] = cat
		}
	}

	for _, t := range cols.Tasks {
		if t.Deleted {
			continue
		}
		if t.CategoryID != nil {
			if _, ok := liveCategories[*t.CategoryID]; !ok {
				report.AddError("task %s references missing category %s", t.ID, *t.CategoryID)
			}
		}
	}

	for _, cat := range cols.Categories {
		if cat.Deleted {
			continue
		}
		if cat.ParentID != nil {
			if _, ok := liveCategories[*cat.ParentID]; !ok {
				report.AddError("category %s references missing parent %s", cat.ID, *cat.ParentID)
			}
		}
		if hasParentCycle(cat, liveCategories) {
			report.AddError("category %s parent chain contains a cycle", cat.ID)
		}
	}

	for _, e := range cols.TimeEntries {
		if e.Deleted {
			continue
		}
		if _, ok := liveTasks[e.TaskID]; !ok {
			report.AddError("time entry %s references missing task %s", e.ID, e.TaskID)
		}
	}

	for _, tr := range cols.Transactions {
		if tr.Deleted {
			continue
		}
		if _, ok := liveAccounts[tr.AccountID]; !ok {
			report.AddError("transaction %s references missing account %s", tr.ID, tr.AccountID)
		}
		if tr.CategoryID != nil {
			if _, ok := liveCategories[*tr.CategoryID]; !ok {
				report.AddError("transaction %s references missing category %s", tr.ID, *tr.CategoryID)
			}
		}
	}

	return report
}

// hasParentCycle reports whether following the parent chain from start
// ever revisits a category. A chain broken by a missing parent is not a
// cycle, the missing reference is reported separately.
func hasParentCycle(start models.Category, live map[string]models.Category) bool {
	seen := map[string]struct{}{start.ID: {}}

	cur := start
	for cur.ParentID != nil {
		next, ok := live[*cur.ParentID]
		if !ok {
			return false
		}
		if _, visited := seen[next.ID]; visited {
			return true
		}
		seen[next.ID] = struct{}{}
		cur = next
	}

	return false
}
