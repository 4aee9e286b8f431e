package service

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-life-tracker/models"
)

// Общие фабрики тестовых сущностей. Хеши не проставляются автоматически:
// тесты, где хеш важен, считают его явно через mustHash.

var testBase = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

// ts сдвигает базовое тестовое время на offset минут.
func ts(offset int) time.Time {
	return testBase.Add(time.Duration(offset) * time.Minute)
}

// uid возвращает детерминированный валидный UUID с заданным хвостом.
// Лексикографический порядок uid(n) совпадает с числовым порядком n.
func uid(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

func strPtr(s string) *string { return &s }

func i64Ptr(v int64) *int64 { return &v }

func newTask(id, title string, modified time.Time) models.Task {
	return models.Task{
		SyncInfo: models.SyncInfo{ID: id, CreatedAt: testBase, UpdatedAt: modified, Origin: models.OriginFresh},
		Title:    title,
		Status:   models.TaskStatusOpen,
	}
}

func newCategory(id, name string, modified time.Time) models.Category {
	return models.Category{
		SyncInfo: models.SyncInfo{ID: id, CreatedAt: testBase, UpdatedAt: modified, Origin: models.OriginFresh},
		Name:     name,
	}
}

func newTimeEntry(id, taskID string, modified time.Time) models.TimeEntry {
	return models.TimeEntry{
		SyncInfo:  models.SyncInfo{ID: id, CreatedAt: testBase, UpdatedAt: modified, Origin: models.OriginFresh},
		TaskID:    taskID,
		StartedAt: ts(-60),
	}
}

func newAccount(id, name string, modified time.Time) models.Account {
	return models.Account{
		SyncInfo: models.SyncInfo{ID: id, CreatedAt: testBase, UpdatedAt: modified, Origin: models.OriginFresh},
		Name:     name,
		Currency: "EUR",
	}
}

func newTransaction(id, accountID string, amountMinor int64, modified time.Time) models.Transaction {
	return models.Transaction{
		SyncInfo:    models.SyncInfo{ID: id, CreatedAt: testBase, UpdatedAt: modified, Origin: models.OriginFresh},
		AccountID:   accountID,
		AmountMinor: amountMinor,
		BookedAt:    ts(-30),
	}
}

// mustHash считает контент-хеш сущности так же, как его считает цикл.
func mustHash(t *testing.T, e models.Entity) string {
	t.Helper()

	h, err := NewDataSerializer(false, nil, nil).HashEntity(e)
	require.NoError(t, err)

	return h
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	return raw
}
