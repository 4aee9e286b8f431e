package models

import "time"

// Transaction is a single money movement on an account.
// Expenses carry a negative amount, income a positive one.
type Transaction struct {
	SyncInfo

	// AccountID references the account the movement happened on. Required.
	AccountID string `json:"account_id"`

	// CategoryID is an optional reference to a Category.
	CategoryID *string `json:"category_id,omitempty"`

	// AmountMinor is the signed amount in minor currency units. Non-zero.
	AmountMinor int64 `json:"amount_minor"`

	// BookedAt is the timestamp the movement is booked under, in UTC.
	BookedAt time.Time `json:"booked_at"`

	// Payee is the counterparty, free-form.
	Payee string `json:"payee,omitempty"`

	// Memo is an optional free-form annotation.
	Memo string `json:"memo,omitempty"`
}

// Kind returns KindTransaction.
func (t Transaction) Kind() EntityKind {
	return KindTransaction
}

// State returns the comparator-facing descriptor of the transaction.
func (t Transaction) State() EntityState {
	return t.state(KindTransaction)
}

// Payload returns the semantic fields participating in the content hash.
func (t Transaction) Payload() any {
	return struct {
		AccountID   string    `json:"account_id"`
		CategoryID  *string   `json:"category_id"`
		AmountMinor int64     `json:"amount_minor"`
		BookedAt    time.Time `json:"booked_at"`
		Payee       string    `json:"payee"`
		Memo        string    `json:"memo"`
		Deleted     bool      `json:"deleted"`
	}{t.AccountID, t.CategoryID, t.AmountMinor, t.BookedAt.UTC(), t.Payee, t.Memo, t.Deleted}
}

// TableName returns the name of the database table
// associated with the Transaction model.
func (t Transaction) TableName() string {
	return "transactions"
}
