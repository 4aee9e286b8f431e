package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/models"
)

// entityRepository is the SQLite-backed implementation of
// [EntityRepository]. It executes all collection reads and the
// all-or-nothing commit against the five entity tables using the
// embedded [*DB] connection.
//
// Every public method obtains a context-scoped logger via
// [logger.FromContext] so that all database interactions are traced
// with structured fields (table, entity id, record counts).
type entityRepository struct {
	*DB
	logger *logger.Logger
}

// NewEntityRepository constructs an [EntityRepository] backed by the
// provided database connection and logger.
//
// The logger parameter is stored for fallback logging; most methods prefer
// the context-scoped logger obtained via [logger.FromContext].
func NewEntityRepository(db *DB, logger *logger.Logger) EntityRepository {
	return &entityRepository{
		DB:     db,
		logger: logger,
	}
}

// LoadAll returns every record of every collection, tombstones included.
func (r *entityRepository) LoadAll(ctx context.Context) (models.Collections, error) {
	return r.load(ctx, nil)
}

// LoadChangedSince returns records of every collection whose updated_at
// is at or after the given instant, tombstones included.
func (r *entityRepository) LoadChangedSince(ctx context.Context, since time.Time) (models.Collections, error) {
	return r.load(ctx, &since)
}

// load runs the per-collection loaders in canonical kind order. A nil
// since pointer means a full load.
func (r *entityRepository) load(ctx context.Context, since *time.Time) (models.Collections, error) {
	var cols models.Collections
	var err error

	if cols.Tasks, err = r.loadTasks(ctx, since); err != nil {
		return models.Collections{}, err
	}
	if cols.Categories, err = r.loadCategories(ctx, since); err != nil {
		return models.Collections{}, err
	}
	if cols.TimeEntries, err = r.loadTimeEntries(ctx, since); err != nil {
		return models.Collections{}, err
	}
	if cols.Accounts, err = r.loadAccounts(ctx, since); err != nil {
		return models.Collections{}, err
	}
	if cols.Transactions, err = r.loadTransactions(ctx, since); err != nil {
		return models.Collections{}, err
	}

	return cols, nil
}

// buildEntitySelect picks the full or incremental select for one table.
func buildEntitySelect(table string, columns []string, since *time.Time) (string, []any, error) {
	if since != nil {
		return buildSelectChangedSinceQuery(table, columns, *since)
	}
	return buildSelectEntitiesQuery(table, columns)
}

func (r *entityRepository) loadTasks(ctx context.Context, since *time.Time) ([]models.Task, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildEntitySelect(models.Task{}.TableName(), taskColumns, since)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.loadTasks").
			Msg("failed to create query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, queryErr := r.DB.QueryContext(ctx, query, args...)
	if queryErr != nil {
		log.Err(queryErr).
			Str("func", "entityRepository.loadTasks").
			Msg("failed to execute query for loading tasks")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, queryErr)
	}
	defer rows.Close()

	items := make([]models.Task, 0, 50)

	for rows.Next() {
		var item models.Task

		scanErr := rows.Scan(
			&item.ID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Hash,
			&item.Origin,
			&item.Deleted,
			&item.Title,
			&item.Notes,
			&item.CategoryID,
			&item.Status,
			&item.DueDate,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "entityRepository.loadTasks").
				Msg("failed to scan task row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "entityRepository.loadTasks").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

func (r *entityRepository) loadCategories(ctx context.Context, since *time.Time) ([]models.Category, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildEntitySelect(models.Category{}.TableName(), categoryColumns, since)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.loadCategories").
			Msg("failed to create query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, queryErr := r.DB.QueryContext(ctx, query, args...)
	if queryErr != nil {
		log.Err(queryErr).
			Str("func", "entityRepository.loadCategories").
			Msg("failed to execute query for loading categories")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, queryErr)
	}
	defer rows.Close()

	items := make([]models.Category, 0, 50)

	for rows.Next() {
		var item models.Category

		scanErr := rows.Scan(
			&item.ID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Hash,
			&item.Origin,
			&item.Deleted,
			&item.Name,
			&item.ParentID,
			&item.BudgetMinor,
			&item.Color,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "entityRepository.loadCategories").
				Msg("failed to scan category row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "entityRepository.loadCategories").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

func (r *entityRepository) loadTimeEntries(ctx context.Context, since *time.Time) ([]models.TimeEntry, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildEntitySelect(models.TimeEntry{}.TableName(), timeEntryColumns, since)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.loadTimeEntries").
			Msg("failed to create query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, queryErr := r.DB.QueryContext(ctx, query, args...)
	if queryErr != nil {
		log.Err(queryErr).
			Str("func", "entityRepository.loadTimeEntries").
			Msg("failed to execute query for loading time entries")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, queryErr)
	}
	defer rows.Close()

	items := make([]models.TimeEntry, 0, 50)

	for rows.Next() {
		var item models.TimeEntry

		scanErr := rows.Scan(
			&item.ID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Hash,
			&item.Origin,
			&item.Deleted,
			&item.TaskID,
			&item.StartedAt,
			&item.EndedAt,
			&item.Comment,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "entityRepository.loadTimeEntries").
				Msg("failed to scan time entry row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "entityRepository.loadTimeEntries").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

func (r *entityRepository) loadAccounts(ctx context.Context, since *time.Time) ([]models.Account, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildEntitySelect(models.Account{}.TableName(), accountColumns, since)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.loadAccounts").
			Msg("failed to create query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, queryErr := r.DB.QueryContext(ctx, query, args...)
	if queryErr != nil {
		log.Err(queryErr).
			Str("func", "entityRepository.loadAccounts").
			Msg("failed to execute query for loading accounts")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, queryErr)
	}
	defer rows.Close()

	items := make([]models.Account, 0, 50)

	for rows.Next() {
		var item models.Account

		scanErr := rows.Scan(
			&item.ID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Hash,
			&item.Origin,
			&item.Deleted,
			&item.Name,
			&item.Currency,
			&item.OpeningBalanceMinor,
			&item.Archived,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "entityRepository.loadAccounts").
				Msg("failed to scan account row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "entityRepository.loadAccounts").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

func (r *entityRepository) loadTransactions(ctx context.Context, since *time.Time) ([]models.Transaction, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildEntitySelect(models.Transaction{}.TableName(), transactionColumns, since)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.loadTransactions").
			Msg("failed to create query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, queryErr := r.DB.QueryContext(ctx, query, args...)
	if queryErr != nil {
		log.Err(queryErr).
			Str("func", "entityRepository.loadTransactions").
			Msg("failed to execute query for loading transactions")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, queryErr)
	}
	defer rows.Close()

	items := make([]models.Transaction, 0, 50)

	for rows.Next() {
		var item models.Transaction

		scanErr := rows.Scan(
			&item.ID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Hash,
			&item.Origin,
			&item.Deleted,
			&item.AccountID,
			&item.CategoryID,
			&item.AmountMinor,
			&item.BookedAt,
			&item.Payee,
			&item.Memo,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "entityRepository.loadTransactions").
				Msg("failed to scan transaction row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}

		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "entityRepository.loadTransactions").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

// Commit upserts every record of the given collections inside a single
// transaction.
//
// The transaction is rolled back automatically (via defer) if any
// individual upsert fails; the commit is attempted only after all
// collections have been processed. A successful return therefore means
// every record landed; an error means the local database is untouched.
func (r *entityRepository) Commit(ctx context.Context, cols models.Collections) error {
	log := logger.FromContext(ctx)

	if cols.Len() == 0 {
		log.Debug().
			Str("func", "entityRepository.Commit").
			Msg("nothing to commit")
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.Commit").
			Int("records", cols.Len()).
			Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if err := r.upsertTasks(ctx, tx, cols.Tasks); err != nil {
		return err
	}
	if err := r.upsertCategories(ctx, tx, cols.Categories); err != nil {
		return err
	}
	if err := r.upsertTimeEntries(ctx, tx, cols.TimeEntries); err != nil {
		return err
	}
	if err := r.upsertAccounts(ctx, tx, cols.Accounts); err != nil {
		return err
	}
	if err := r.upsertTransactions(ctx, tx, cols.Transactions); err != nil {
		return err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "entityRepository.Commit").
			Int("records", cols.Len()).
			Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	counts := cols.Counts()
	log.Info().
		Str("func", "entityRepository.Commit").
		Int("tasks", counts.Tasks).
		Int("categories", counts.Categories).
		Int("time_entries", counts.TimeEntries).
		Int("accounts", counts.Accounts).
		Int("transactions", counts.Transactions).
		Msg("successfully committed collections")

	return nil
}

// upsertTasks writes the task batch through a prepared statement reused
// for every record.
func (r *entityRepository) upsertTasks(ctx context.Context, tx *sql.Tx, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)

	stmt, err := tx.PrepareContext(ctx, upsertTask)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.upsertTasks").
			Int("count", len(tasks)).
			Msg("failed to prepare statement")
		return fmt.Errorf("%w: %w", ErrPreparingStatement, err)
	}
	defer stmt.Close()

	for _, item := range tasks {
		_, execErr := stmt.ExecContext(ctx,
			item.ID,
			item.CreatedAt,
			item.UpdatedAt,
			item.Hash,
			item.Origin,
			item.Deleted,
			item.Title,
			item.Notes,
			item.CategoryID,
			item.Status,
			item.DueDate,
		)
		if execErr != nil {
			log.Err(execErr).
				Str("func", "entityRepository.upsertTasks").
				Str("id", item.ID).
				Msg("failed to execute upsert for task")
			return fmt.Errorf("failed to upsert task (id=%s): %w", item.ID, execErr)
		}
	}

	return nil
}

// upsertCategories writes the category batch through a prepared statement
// reused for every record.
func (r *entityRepository) upsertCategories(ctx context.Context, tx *sql.Tx, categories []models.Category) error {
	if len(categories) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)

	stmt, err := tx.PrepareContext(ctx, upsertCategory)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.upsertCategories").
			Int("count", len(categories)).
			Msg("failed to prepare statement")
		return fmt.Errorf("%w: %w", ErrPreparingStatement, err)
	}
	defer stmt.Close()

	for _, item := range categories {
		_, execErr := stmt.ExecContext(ctx,
			item.ID,
			item.CreatedAt,
			item.UpdatedAt,
			item.Hash,
			item.Origin,
			item.Deleted,
			item.Name,
			item.ParentID,
			item.BudgetMinor,
			item.Color,
		)
		if execErr != nil {
			log.Err(execErr).
				Str("func", "entityRepository.upsertCategories").
				Str("id", item.ID).
				Msg("failed to execute upsert for category")
			return fmt.Errorf("failed to upsert category (id=%s): %w", item.ID, execErr)
		}
	}

	return nil
}

// upsertTimeEntries writes the time-entry batch through a prepared
// statement reused for every record.
func (r *entityRepository) upsertTimeEntries(ctx context.Context, tx *sql.Tx, entries []models.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)

	stmt, err := tx.PrepareContext(ctx, upsertTimeEntry)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.upsertTimeEntries").
			Int("count", len(entries)).
			Msg("failed to prepare statement")
		return fmt.Errorf("%w: %w", ErrPreparingStatement, err)
	}
	defer stmt.Close()

	for _, item := range entries {
		_, execErr := stmt.ExecContext(ctx,
			item.ID,
			item.CreatedAt,
			item.UpdatedAt,
			item.Hash,
			item.Origin,
			item.Deleted,
			item.TaskID,
			item.StartedAt,
			item.EndedAt,
			item.Comment,
		)
		if execErr != nil {
			log.Err(execErr).
				Str("func", "entityRepository.upsertTimeEntries").
				Str("id", item.ID).
				Msg("failed to execute upsert for time entry")
			return fmt.Errorf("failed to upsert time entry (id=%s): %w", item.ID, execErr)
		}
	}

	return nil
}

// upsertAccounts writes the account batch through a prepared statement
// reused for every record.
func (r *entityRepository) upsertAccounts(ctx context.Context, tx *sql.Tx, accounts []models.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)

	stmt, err := tx.PrepareContext(ctx, upsertAccount)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.upsertAccounts").
			Int("count", len(accounts)).
			Msg("failed to prepare statement")
		return fmt.Errorf("%w: %w", ErrPreparingStatement, err)
	}
	defer stmt.Close()

	for _, item := range accounts {
		_, execErr := stmt.ExecContext(ctx,
			item.ID,
			item.CreatedAt,
			item.UpdatedAt,
			item.Hash,
			item.Origin,
			item.Deleted,
			item.Name,
			item.Currency,
			item.OpeningBalanceMinor,
			item.Archived,
		)
		if execErr != nil {
			log.Err(execErr).
				Str("func", "entityRepository.upsertAccounts").
				Str("id", item.ID).
				Msg("failed to execute upsert for account")
			return fmt.Errorf("failed to upsert account (id=%s): %w", item.ID, execErr)
		}
	}

	return nil
}

// upsertTransactions writes the transaction batch through a prepared
// statement reused for every record.
func (r *entityRepository) upsertTransactions(ctx context.Context, tx *sql.Tx, transactions []models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)

	stmt, err := tx.PrepareContext(ctx, upsertTransaction)
	if err != nil {
		log.Err(err).
			Str("func", "entityRepository.upsertTransactions").
			Int("count", len(transactions)).
			Msg("failed to prepare statement")
		return fmt.Errorf("%w: %w", ErrPreparingStatement, err)
	}
	defer stmt.Close()

	for _, item := range transactions {
		_, execErr := stmt.ExecContext(ctx,
			item.ID,
			item.CreatedAt,
			item.UpdatedAt,
			item.Hash,
			item.Origin,
			item.Deleted,
			item.AccountID,
			item.CategoryID,
			item.AmountMinor,
			item.BookedAt,
			item.Payee,
			item.Memo,
		)
		if execErr != nil {
			log.Err(execErr).
				Str("func", "entityRepository.upsertTransactions").
				Str("id", item.ID).
				Msg("failed to execute upsert for transaction")
			return fmt.Errorf("failed to upsert transaction (id=%s): %w", item.ID, execErr)
		}
	}

	return nil
}

// Counts returns per-collection record counts, tombstones included.
func (r *entityRepository) Counts(ctx context.Context) (models.CollectionCounts, error) {
	log := logger.FromContext(ctx)

	var counts models.CollectionCounts

	for _, c := range []struct {
		table string
		dst   *int
	}{
		{models.Task{}.TableName(), &counts.Tasks},
		{models.Category{}.TableName(), &counts.Categories},
		{models.TimeEntry{}.TableName(), &counts.TimeEntries},
		{models.Account{}.TableName(), &counts.Accounts},
		{models.Transaction{}.TableName(), &counts.Transactions},
	} {
		query, args, err := buildCountQuery(c.table)
		if err != nil {
			log.Err(err).
				Str("func", "entityRepository.Counts").
				Str("table", c.table).
				Msg("failed to create query")
			return models.CollectionCounts{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}

		if scanErr := r.DB.QueryRowContext(ctx, query, args...).Scan(c.dst); scanErr != nil {
			log.Err(scanErr).
				Str("func", "entityRepository.Counts").
				Str("table", c.table).
				Msg("failed to count rows")
			return models.CollectionCounts{}, fmt.Errorf("%w: %w", ErrExecutingQuery, scanErr)
		}
	}

	return counts, nil
}
