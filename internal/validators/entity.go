package validators

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-life-tracker/internal/utils"
	"github.com/MKhiriev/go-life-tracker/models"
)

// Field name constants used to specify which fields should be validated.
// These constants are passed to Validate or internal validation methods
// to restrict validation to a subset of fields (field-level scoping).
const (
	// FieldID targets the globally unique identifier of a record.
	FieldID = "id"

	// FieldHash targets the deterministic content hash of a record.
	FieldHash = "hash"

	// FieldTimestamps targets the creation/modification timestamp pair
	// (both set, modification never before creation).
	FieldTimestamps = "timestamps"

	// FieldOrigin targets the provenance tag of the local copy.
	FieldOrigin = "origin"

	// FieldTitle targets the short name of a task.
	FieldTitle = "title"

	// FieldStatus targets the lifecycle state of a task.
	FieldStatus = "status"

	// FieldName targets the name of a category or account.
	FieldName = "name"

	// FieldBudget targets the optional budget allocation of a category.
	FieldBudget = "budget"

	// FieldParentID targets the optional parent reference of a category.
	FieldParentID = "parent_id"

	// FieldCategoryID targets the optional category reference of a task
	// or transaction.
	FieldCategoryID = "category_id"

	// FieldTaskID targets the task reference of a time entry.
	FieldTaskID = "task_id"

	// FieldInterval targets the started/ended timestamp pair of a time
	// entry (start set, end never before start).
	FieldInterval = "interval"

	// FieldCurrency targets the ISO 4217 currency code of an account.
	FieldCurrency = "currency"

	// FieldAccountID targets the account reference of a transaction.
	FieldAccountID = "account_id"

	// FieldAmount targets the signed minor-unit amount of a transaction.
	FieldAmount = "amount"

	// FieldBookedAt targets the booking date of a transaction.
	FieldBookedAt = "booked_at"
)

// allowedTaskStatuses is the exhaustive set of TaskStatus values accepted by
// the validator. Any status not present in this slice is considered invalid.
var allowedTaskStatuses = []models.TaskStatus{
	models.TaskStatusOpen,
	models.TaskStatusInProgress,
	models.TaskStatusDone,
}

// allowedOrigins is the exhaustive set of DataOrigin values accepted by
// the validator.
var allowedOrigins = []models.DataOrigin{
	models.OriginUnknown,
	models.OriginFresh,
	models.OriginBasedOnRemote,
}

// EntityValidator implements the Validator interface for all synced domain
// models: Task, Category, TimeEntry, Account, Transaction, and whole
// Collections.
//
// It supports both value and pointer receivers for every model type
// and allows optional field-level scoping via variadic field name arguments.
type EntityValidator struct {
}

// NewEntityValidator constructs a new EntityValidator
// and returns it as the Validator interface.
func NewEntityValidator() Validator {
	return &EntityValidator{}
}

// Validate dispatches validation to the appropriate type-specific method
// based on the dynamic type of obj. Both value and pointer forms of each
// supported model are accepted.
//
// Supported types:
//   - models.Task / *models.Task
//   - models.Category / *models.Category
//   - models.TimeEntry / *models.TimeEntry
//   - models.Account / *models.Account
//   - models.Transaction / *models.Transaction
//   - models.Collections / *models.Collections
//
// Returns ErrUnsupportedType if obj does not match any known model.
// Optional fields restrict validation to the named subset; when omitted,
// a default set is validated. For tombstoned records the default set
// shrinks to the bookkeeping fields, since the semantic payload of a
// deleted record no longer carries meaning.
func (v *EntityValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Task:
		return v.validateTask(ctx, value, fields...)
	case *models.Task:
		return v.validateTask(ctx, *value, fields...)

	case models.Category:
		return v.validateCategory(ctx, value, fields...)
	case *models.Category:
		return v.validateCategory(ctx, *value, fields...)

	case models.TimeEntry:
		return v.validateTimeEntry(ctx, value, fields...)
	case *models.TimeEntry:
		return v.validateTimeEntry(ctx, *value, fields...)

	case models.Account:
		return v.validateAccount(ctx, value, fields...)
	case *models.Account:
		return v.validateAccount(ctx, *value, fields...)

	case models.Transaction:
		return v.validateTransaction(ctx, value, fields...)
	case *models.Transaction:
		return v.validateTransaction(ctx, *value, fields...)

	case models.Collections:
		return v.validateCollections(ctx, &value, fields...)
	case *models.Collections:
		return v.validateCollections(ctx, value, fields...)

	default:
		return ErrUnsupportedType
	}
}

// isValidTaskStatus reports whether st is one of the recognized TaskStatus
// values defined in allowedTaskStatuses.
func isValidTaskStatus(st models.TaskStatus) bool {
	for _, s := range allowedTaskStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// isValidOrigin reports whether o is one of the recognized DataOrigin values.
func isValidOrigin(o models.DataOrigin) bool {
	for _, a := range allowedOrigins {
		if o == a {
			return true
		}
	}
	return false
}

// isValidContentHash reports whether h looks like a SHA-256 content hash:
// exactly 64 lower-case hexadecimal characters.
func isValidContentHash(h string) bool {
	if len(h) != 64 {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// isValidCurrency reports whether code is a three-letter upper-case
// currency code (ISO 4217 shape; the list itself is not enforced).
func isValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// bookkeepingFields is the default field set for tombstoned records.
func bookkeepingFields() []string {
	return []string{FieldID, FieldHash, FieldTimestamps, FieldOrigin}
}

// validateSyncInfo checks one bookkeeping field shared by every record.
// Returns false when f names no bookkeeping field, leaving it to the
// caller's type-specific switch.
func validateSyncInfo(info models.SyncInfo, f string) (bool, error) {
	switch f {
	case FieldID:
		if !utils.IsValidUUID(info.ID) {
			return true, ErrInvalidID
		}
	case FieldHash:
		if !isValidContentHash(info.Hash) {
			return true, ErrInvalidHash
		}
	case FieldTimestamps:
		if info.CreatedAt.IsZero() || info.UpdatedAt.IsZero() || info.UpdatedAt.Before(info.CreatedAt) {
			return true, ErrInvalidTimestamps
		}
	case FieldOrigin:
		if !isValidOrigin(info.Origin) {
			return true, ErrInvalidOrigin
		}
	default:
		return false, nil
	}

	return true, nil
}

// validateTask validates a single Task model.
//
// Default validated fields: ID, Hash, Timestamps, Origin, Title, Status,
// CategoryID. Tombstoned tasks default to the bookkeeping fields only.
//
// Returns the first encountered validation error or nil.
func (v *EntityValidator) validateTask(ctx context.Context, task models.Task, fields ...string) error {
	if len(fields) == 0 {
		fields = append(bookkeepingFields(), FieldTitle, FieldStatus, FieldCategoryID)
		if task.Deleted {
			fields = bookkeepingFields()
		}
	}

	for _, f := range fields {
		if handled, err := validateSyncInfo(task.SyncInfo, f); handled {
			if err != nil {
				return err
			}
			continue
		}

		switch f {
		case FieldTitle:
			if task.Title == "" {
				return ErrEmptyTitle
			}
		case FieldStatus:
			if !isValidTaskStatus(task.Status) {
				return ErrInvalidStatus
			}
		case FieldCategoryID:
			if task.CategoryID != nil && !utils.IsValidUUID(*task.CategoryID) {
				return ErrInvalidCategoryID
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateCategory validates a single Category model.
//
// Default validated fields: ID, Hash, Timestamps, Origin, Name, Budget,
// ParentID. A category referencing itself as parent is invalid.
func (v *EntityValidator) validateCategory(ctx context.Context, category models.Category, fields ...string) error {
	if len(fields) == 0 {
		fields = append(bookkeepingFields(), FieldName, FieldBudget, FieldParentID)
		if category.Deleted {
			fields = bookkeepingFields()
		}
	}

	for _, f := range fields {
		if handled, err := validateSyncInfo(category.SyncInfo, f); handled {
			if err != nil {
				return err
			}
			continue
		}

		switch f {
		case FieldName:
			if category.Name == "" {
				return ErrEmptyName
			}
		case FieldBudget:
			if category.BudgetMinor != nil && *category.BudgetMinor < 0 {
				return ErrNegativeBudget
			}
		case FieldParentID:
			if category.ParentID != nil {
				if !utils.IsValidUUID(*category.ParentID) || *category.ParentID == category.ID {
					return ErrInvalidParentID
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateTimeEntry validates a single TimeEntry model.
//
// Default validated fields: ID, Hash, Timestamps, Origin, TaskID, Interval.
// An open entry (nil EndedAt) is valid; a closed one must not end before
// it started, so the tracked duration is never negative.
func (v *EntityValidator) validateTimeEntry(ctx context.Context, entry models.TimeEntry, fields ...string) error {
	if len(fields) == 0 {
		fields = append(bookkeepingFields(), FieldTaskID, FieldInterval)
		if entry.Deleted {
			fields = bookkeepingFields()
		}
	}

	for _, f := range fields {
		if handled, err := validateSyncInfo(entry.SyncInfo, f); handled {
			if err != nil {
				return err
			}
			continue
		}

		switch f {
		case FieldTaskID:
			if !utils.IsValidUUID(entry.TaskID) {
				return ErrInvalidTaskID
			}
		case FieldInterval:
			if entry.StartedAt.IsZero() {
				return ErrInvalidInterval
			}
			if entry.EndedAt != nil && entry.EndedAt.Before(entry.StartedAt) {
				return ErrInvalidInterval
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateAccount validates a single Account model.
//
// Default validated fields: ID, Hash, Timestamps, Origin, Name, Currency.
// The opening balance may carry any sign (overdrafts are a thing).
func (v *EntityValidator) validateAccount(ctx context.Context, account models.Account, fields ...string) error {
	if len(fields) == 0 {
		fields = append(bookkeepingFields(), FieldName, FieldCurrency)
		if account.Deleted {
			fields = bookkeepingFields()
		}
	}

	for _, f := range fields {
		if handled, err := validateSyncInfo(account.SyncInfo, f); handled {
			if err != nil {
				return err
			}
			continue
		}

		switch f {
		case FieldName:
			if account.Name == "" {
				return ErrEmptyName
			}
		case FieldCurrency:
			if !isValidCurrency(account.Currency) {
				return ErrInvalidCurrency
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateTransaction validates a single Transaction model.
//
// Default validated fields: ID, Hash, Timestamps, Origin, AccountID,
// CategoryID, Amount, BookedAt. The amount is signed and must be non-zero.
func (v *EntityValidator) validateTransaction(ctx context.Context, tr models.Transaction, fields ...string) error {
	if len(fields) == 0 {
		fields = append(bookkeepingFields(), FieldAccountID, FieldCategoryID, FieldAmount, FieldBookedAt)
		if tr.Deleted {
			fields = bookkeepingFields()
		}
	}

	for _, f := range fields {
		if handled, err := validateSyncInfo(tr.SyncInfo, f); handled {
			if err != nil {
				return err
			}
			continue
		}

		switch f {
		case FieldAccountID:
			if !utils.IsValidUUID(tr.AccountID) {
				return ErrInvalidAccountID
			}
		case FieldCategoryID:
			if tr.CategoryID != nil && !utils.IsValidUUID(*tr.CategoryID) {
				return ErrInvalidCategoryID
			}
		case FieldAmount:
			if tr.AmountMinor == 0 {
				return ErrZeroAmount
			}
		case FieldBookedAt:
			if tr.BookedAt.IsZero() {
				return ErrInvalidBookedAt
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

// validateCollections validates every record of every collection, in
// canonical kind order. The optional field scoping is passed through to
// each record unchanged.
//
// Returns a wrapped error naming the kind and id of the first invalid
// record, or nil when all records pass.
func (v *EntityValidator) validateCollections(ctx context.Context, cols *models.Collections, fields ...string) error {
	for _, e := range cols.All() {
		if err := v.Validate(ctx, e, fields...); err != nil {
			return fmt.Errorf("validation error for %s %s: %w", e.Kind(), e.EntityID(), err)
		}
	}

	return nil
}
