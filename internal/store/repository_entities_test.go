package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-life-tracker/internal/logger"
	"github.com/MKhiriev/go-life-tracker/models"
)

const (
	testTaskID        = "0198c3ac-7df2-7cc0-8a6d-0242ac120001"
	testCategoryID    = "0198c3ac-7df2-7cc0-8a6d-0242ac120002"
	testTimeEntryID   = "0198c3ac-7df2-7cc0-8a6d-0242ac120003"
	testAccountID     = "0198c3ac-7df2-7cc0-8a6d-0242ac120004"
	testTransactionID = "0198c3ac-7df2-7cc0-8a6d-0242ac120005"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// newDBFromSQL создаёт DB из существующего *sql.DB (для тестов).
func newDBFromSQL(db *sql.DB) *DB {
	return &DB{
		DB:     db,
		logger: logger.Nop(),
	}
}

func newTestRepo(t *testing.T, db *sql.DB) EntityRepository {
	t.Helper()
	storeDB := newDBFromSQL(db)
	log := logger.Nop()
	return NewEntityRepository(storeDB, log)
}

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

func testSyncInfo(id string) models.SyncInfo {
	return models.SyncInfo{
		ID:        id,
		CreatedAt: testTime,
		UpdatedAt: testTime,
		Hash:      "a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1",
		Origin:    models.OriginFresh,
	}
}

// selectQueryFor derives the expected SQL straight from the builder so
// tests cannot drift from the repository.
func selectQueryFor(t *testing.T, table string, columns []string, since *time.Time) string {
	t.Helper()
	query, _, err := buildEntitySelect(table, columns, since)
	require.NoError(t, err)
	return query
}

// expectEmptyLoads registers empty result sets for all collection loads
// except the listed tables.
func expectEmptyLoads(t *testing.T, mock sqlmock.Sqlmock, since *time.Time, skip ...string) {
	t.Helper()

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	plans := []struct {
		table   string
		columns []string
	}{
		{"tasks", taskColumns},
		{"categories", categoryColumns},
		{"time_entries", timeEntryColumns},
		{"accounts", accountColumns},
		{"transactions", transactionColumns},
	}
	for _, p := range plans {
		if skipped[p.table] {
			continue
		}
		mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, p.table, p.columns, since))).
			WillReturnRows(sqlmock.NewRows(p.columns))
	}
}

func TestLoadAll_Success(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	taskRows := sqlmock.NewRows(taskColumns).AddRow(
		testTaskID, testTime, testTime, "hash-task", int64(models.OriginFresh), false,
		"write sync tests", "table-driven", nil, int64(models.TaskStatusInProgress), nil,
	)
	categoryRows := sqlmock.NewRows(categoryColumns).AddRow(
		testCategoryID, testTime, testTime, "hash-cat", int64(models.OriginBasedOnRemote), false,
		"Deep Work", nil, int64(120000), "#3366ff",
	)
	timeEntryRows := sqlmock.NewRows(timeEntryColumns).AddRow(
		testTimeEntryID, testTime, testTime, "hash-entry", int64(models.OriginFresh), false,
		testTaskID, testTime, testTime.Add(90*time.Minute), "morning block",
	)
	accountRows := sqlmock.NewRows(accountColumns).AddRow(
		testAccountID, testTime, testTime, "hash-acc", int64(models.OriginBasedOnRemote), false,
		"Checking", "EUR", int64(250000), false,
	)
	transactionRows := sqlmock.NewRows(transactionColumns).AddRow(
		testTransactionID, testTime, testTime, "hash-tx", int64(models.OriginFresh), true,
		testAccountID, testCategoryID, int64(-4990), testTime, "Grocer", "weekly shop",
	)

	mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, "tasks", taskColumns, nil))).
		WillReturnRows(taskRows)
	mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, "categories", categoryColumns, nil))).
		WillReturnRows(categoryRows)
	mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, "time_entries", timeEntryColumns, nil))).
		WillReturnRows(timeEntryRows)
	mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, "accounts", accountColumns, nil))).
		WillReturnRows(accountRows)
	mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, "transactions", transactionColumns, nil))).
		WillReturnRows(transactionRows)

	cols, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, cols.Tasks, 1)
	task := cols.Tasks[0]
	assert.Equal(t, testTaskID, task.ID)
	assert.Equal(t, "write sync tests", task.Title)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.Nil(t, task.CategoryID)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, models.OriginFresh, task.Origin)
	assert.False(t, task.Deleted)

	require.Len(t, cols.Categories, 1)
	category := cols.Categories[0]
	assert.Equal(t, "Deep Work", category.Name)
	assert.Nil(t, category.ParentID)
	require.NotNil(t, category.BudgetMinor)
	assert.Equal(t, int64(120000), *category.BudgetMinor)

	require.Len(t, cols.TimeEntries, 1)
	entry := cols.TimeEntries[0]
	assert.Equal(t, testTaskID, entry.TaskID)
	require.NotNil(t, entry.EndedAt)
	assert.Equal(t, testTime.Add(90*time.Minute), entry.EndedAt.UTC())

	require.Len(t, cols.Accounts, 1)
	account := cols.Accounts[0]
	assert.Equal(t, "EUR", account.Currency)
	assert.Equal(t, int64(250000), account.OpeningBalanceMinor)

	require.Len(t, cols.Transactions, 1)
	tx := cols.Transactions[0]
	assert.Equal(t, testAccountID, tx.AccountID)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, testCategoryID, *tx.CategoryID)
	assert.Equal(t, int64(-4990), tx.AmountMinor)
	assert.True(t, tx.Deleted, "tombstones must survive a load")
}

func TestLoadAll_QueryError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, "tasks", taskColumns, nil))).
		WillReturnError(errors.New("disk I/O error"))

	_, err := repo.LoadAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutingQuery)
	assert.Contains(t, err.Error(), "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAll_ScanError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	// Wrong column count breaks the scanner on the first row.
	badRows := sqlmock.NewRows([]string{"id", "created_at"}).
		AddRow(testTaskID, testTime)

	mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, "tasks", taskColumns, nil))).
		WillReturnRows(badRows)

	_, err := repo.LoadAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScanningRow)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAll_RowsIterationError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	rows := sqlmock.NewRows(taskColumns).
		AddRow(
			testTaskID, testTime, testTime, "hash-task", int64(models.OriginFresh), false,
			"interrupted", "", nil, int64(models.TaskStatusOpen), nil,
		).
		RowError(0, errors.New("network interruption"))

	mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, "tasks", taskColumns, nil))).
		WillReturnRows(rows)

	_, err := repo.LoadAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScanningRows)
	assert.Contains(t, err.Error(), "network interruption")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadChangedSince_PassesBoundary(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	since := testTime.Add(-24 * time.Hour)

	plans := []struct {
		table   string
		columns []string
	}{
		{"tasks", taskColumns},
		{"categories", categoryColumns},
		{"time_entries", timeEntryColumns},
		{"accounts", accountColumns},
		{"transactions", transactionColumns},
	}
	for _, p := range plans {
		mock.ExpectQuery(regexp.QuoteMeta(selectQueryFor(t, p.table, p.columns, &since))).
			WithArgs(since).
			WillReturnRows(sqlmock.NewRows(p.columns))
	}

	cols, err := repo.LoadChangedSince(ctx, since)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, cols.Len())
}

func TestCommit_Success(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	task := models.Task{
		SyncInfo: testSyncInfo(testTaskID),
		Title:    "review budget",
		Status:   models.TaskStatusOpen,
	}
	account := models.Account{
		SyncInfo: testSyncInfo(testAccountID),
		Name:     "Cash",
		Currency: "EUR",
	}
	cols := models.Collections{
		Tasks:    []models.Task{task},
		Accounts: []models.Account{account},
	}

	mock.ExpectBegin()

	taskPrep := mock.ExpectPrepare(regexp.QuoteMeta(upsertTask))
	taskPrep.ExpectExec().
		WithArgs(
			task.ID, task.CreatedAt, task.UpdatedAt, task.Hash,
			int64(task.Origin), task.Deleted,
			task.Title, task.Notes, nil, int64(task.Status), nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	accountPrep := mock.ExpectPrepare(regexp.QuoteMeta(upsertAccount))
	accountPrep.ExpectExec().
		WithArgs(
			account.ID, account.CreatedAt, account.UpdatedAt, account.Hash,
			int64(account.Origin), account.Deleted,
			account.Name, account.Currency, account.OpeningBalanceMinor, account.Archived,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	err := repo.Commit(ctx, cols)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_EmptyCollections(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	// No transaction should even be opened.
	err := repo.Commit(ctx, models.Collections{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_BeginError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	err := repo.Commit(ctx, models.Collections{
		Tasks: []models.Task{{SyncInfo: testSyncInfo(testTaskID), Title: "x"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBeginningTransaction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_ExecErrorRollsBack(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	task := models.Task{SyncInfo: testSyncInfo(testTaskID), Title: "doomed"}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(upsertTask))
	prep.ExpectExec().
		WithArgs(
			task.ID, task.CreatedAt, task.UpdatedAt, task.Hash,
			int64(task.Origin), task.Deleted,
			task.Title, task.Notes, nil, int64(task.Status), nil,
		).
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := repo.Commit(ctx, models.Collections{Tasks: []models.Task{task}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert task")
	assert.Contains(t, err.Error(), testTaskID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_PrepareErrorRollsBack(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta(upsertTask)).
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := repo.Commit(ctx, models.Collections{
		Tasks: []models.Task{{SyncInfo: testSyncInfo(testTaskID), Title: "x"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPreparingStatement)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_CommitError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	task := models.Task{SyncInfo: testSyncInfo(testTaskID), Title: "almost there"}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(upsertTask))
	prep.ExpectExec().
		WithArgs(
			task.ID, task.CreatedAt, task.UpdatedAt, task.Hash,
			int64(task.Origin), task.Deleted,
			task.Title, task.Notes, nil, int64(task.Status), nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err := repo.Commit(ctx, models.Collections{Tasks: []models.Task{task}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommitingTransaction)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCounts_Success(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	wantCounts := []int{3, 1, 4, 1, 5}
	for i, table := range []string{"tasks", "categories", "time_entries", "accounts", "transactions"} {
		query, _, err := buildCountQuery(table)
		require.NoError(t, err)
		mock.ExpectQuery(regexp.QuoteMeta(query)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(wantCounts[i])))
	}

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, models.CollectionCounts{
		Tasks:        3,
		Categories:   1,
		TimeEntries:  4,
		Accounts:     1,
		Transactions: 5,
	}, counts)
	assert.Equal(t, 14, counts.Total())
}

func TestCounts_QueryError(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	query, _, err := buildCountQuery("tasks")
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WillReturnError(errors.New("no such table"))

	_, countErr := repo.Counts(ctx)
	require.Error(t, countErr)
	assert.ErrorIs(t, countErr, ErrExecutingQuery)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAll_EmptyDatabase(t *testing.T) {
	db, mock := newTestDB(t)
	repo := newTestRepo(t, db)
	ctx := testContext()

	expectEmptyLoads(t, mock, nil)

	cols, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Zero(t, cols.Len())
	assert.Empty(t, cols.All())
}
