package models

// Account represents a money account: a wallet, a bank account, cash.
type Account struct {
	SyncInfo

	// Name is the human-readable display name of the account.
	Name string `json:"name"`

	// Currency is the ISO 4217 alphabetic code of the account currency.
	Currency string `json:"currency"`

	// OpeningBalanceMinor is the starting balance in minor currency
	// units. May be negative (an account opened in debt).
	OpeningBalanceMinor int64 `json:"opening_balance_minor"`

	// Archived hides the account from day-to-day views without
	// breaking references from historical transactions.
	Archived bool `json:"archived"`
}

// Kind returns KindAccount.
func (a Account) Kind() EntityKind {
	return KindAccount
}

// State returns the comparator-facing descriptor of the account.
func (a Account) State() EntityState {
	return a.state(KindAccount)
}

// Payload returns the semantic fields participating in the content hash.
func (a Account) Payload() any {
	return struct {
		Name                string `json:"name"`
		Currency            string `json:"currency"`
		OpeningBalanceMinor int64  `json:"opening_balance_minor"`
		Archived            bool   `json:"archived"`
		Deleted             bool   `json:"deleted"`
	}{a.Name, a.Currency, a.OpeningBalanceMinor, a.Archived, a.Deleted}
}

// TableName returns the name of the database table
// associated with the Account model.
func (a Account) TableName() string {
	return "accounts"
}
