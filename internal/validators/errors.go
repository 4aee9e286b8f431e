package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidID         = errors.New("invalid entity id")
	ErrInvalidHash       = errors.New("invalid content hash")
	ErrInvalidTimestamps = errors.New("invalid timestamps")
	ErrInvalidOrigin     = errors.New("invalid data origin")

	ErrEmptyTitle        = errors.New("title is required")
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrEmptyName         = errors.New("name is required")
	ErrNegativeBudget    = errors.New("budget allocation cannot be negative")
	ErrInvalidParentID   = errors.New("invalid parent category id")
	ErrInvalidCategoryID = errors.New("invalid category id")
	ErrInvalidTaskID     = errors.New("invalid task id")
	ErrInvalidInterval   = errors.New("invalid time interval")
	ErrInvalidCurrency   = errors.New("currency must be a three-letter code")
	ErrInvalidAccountID  = errors.New("invalid account id")
	ErrZeroAmount        = errors.New("transaction amount cannot be zero")
	ErrInvalidBookedAt   = errors.New("booking date is required")
)
