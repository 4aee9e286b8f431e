// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Column lists double as SELECT projections and as the scan-order
// contract of the row scanners in repository_entities.go. The first six
// columns are the shared sync bookkeeping; the rest are per-kind fields.
var (
	taskColumns = []string{
		"id", "created_at", "updated_at", "hash", "origin", "deleted",
		"title", "notes", "category_id", "status", "due_date",
	}
	categoryColumns = []string{
		"id", "created_at", "updated_at", "hash", "origin", "deleted",
		"name", "parent_id", "budget_minor", "color",
	}
	timeEntryColumns = []string{
		"id", "created_at", "updated_at", "hash", "origin", "deleted",
		"task_id", "started_at", "ended_at", "comment",
	}
	accountColumns = []string{
		"id", "created_at", "updated_at", "hash", "origin", "deleted",
		"name", "currency", "opening_balance_minor", "archived",
	}
	transactionColumns = []string{
		"id", "created_at", "updated_at", "hash", "origin", "deleted",
		"account_id", "category_id", "amount_minor", "booked_at", "payee", "memo",
	}
)

// Upsert statements keep created_at from the insert untouched on
// conflict; everything else follows the incoming record.
const (
	upsertTask = `
		INSERT INTO tasks (
			id,
			created_at,
			updated_at,
			hash,
			origin,
			deleted,
			title,
			notes,
			category_id,
			status,
			due_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at  = excluded.updated_at,
			hash        = excluded.hash,
			origin      = excluded.origin,
			deleted     = excluded.deleted,
			title       = excluded.title,
			notes       = excluded.notes,
			category_id = excluded.category_id,
			status      = excluded.status,
			due_date    = excluded.due_date;`

	upsertCategory = `
		INSERT INTO categories (
			id,
			created_at,
			updated_at,
			hash,
			origin,
			deleted,
			name,
			parent_id,
			budget_minor,
			color
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at   = excluded.updated_at,
			hash         = excluded.hash,
			origin       = excluded.origin,
			deleted      = excluded.deleted,
			name         = excluded.name,
			parent_id    = excluded.parent_id,
			budget_minor = excluded.budget_minor,
			color        = excluded.color;`

	upsertTimeEntry = `
		INSERT INTO time_entries (
			id,
			created_at,
			updated_at,
			hash,
			origin,
			deleted,
			task_id,
			started_at,
			ended_at,
			comment
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			hash       = excluded.hash,
			origin     = excluded.origin,
			deleted    = excluded.deleted,
			task_id    = excluded.task_id,
			started_at = excluded.started_at,
			ended_at   = excluded.ended_at,
			comment    = excluded.comment;`

	upsertAccount = `
		INSERT INTO accounts (
			id,
			created_at,
			updated_at,
			hash,
			origin,
			deleted,
			name,
			currency,
			opening_balance_minor,
			archived
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at            = excluded.updated_at,
			hash                  = excluded.hash,
			origin                = excluded.origin,
			deleted               = excluded.deleted,
			name                  = excluded.name,
			currency              = excluded.currency,
			opening_balance_minor = excluded.opening_balance_minor,
			archived              = excluded.archived;`

	upsertTransaction = `
		INSERT INTO transactions (
			id,
			created_at,
			updated_at,
			hash,
			origin,
			deleted,
			account_id,
			category_id,
			amount_minor,
			booked_at,
			payee,
			memo
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at   = excluded.updated_at,
			hash         = excluded.hash,
			origin       = excluded.origin,
			deleted      = excluded.deleted,
			account_id   = excluded.account_id,
			category_id  = excluded.category_id,
			amount_minor = excluded.amount_minor,
			booked_at    = excluded.booked_at,
			payee        = excluded.payee,
			memo         = excluded.memo;`
)

// buildSelectEntitiesQuery builds the full-table load for one collection,
// ordered by id so loads are deterministic.
func buildSelectEntitiesQuery(table string, columns []string) (string, []any, error) {
	return sq.Select(columns...).
		From(table).
		OrderBy("id").
		ToSql()
}

// buildSelectChangedSinceQuery builds the incremental load for one
// collection. The boundary is inclusive: a record written in the same
// instant the baseline was taken must still be picked up.
func buildSelectChangedSinceQuery(table string, columns []string, since time.Time) (string, []any, error) {
	return sq.Select(columns...).
		From(table).
		Where(sq.GtOrEq{"updated_at": since}).
		OrderBy("id").
		ToSql()
}

// buildCountQuery builds the row count for one collection.
func buildCountQuery(table string) (string, []any, error) {
	return sq.Select("COUNT(*)").From(table).ToSql()
}
