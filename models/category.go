// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Category is a grouping node shared by tasks and transactions.
// Categories form a forest: ParentID, when set, must reference another
// category and the chain must stay acyclic.
type Category struct {
	SyncInfo

	// Name is the human-readable display name of the category.
	Name string `json:"name"`

	// ParentID is an optional reference to the parent category.
	ParentID *string `json:"parent_id,omitempty"`

	// BudgetMinor is an optional monthly budget allocation in minor
	// currency units. Never negative.
	BudgetMinor *int64 `json:"budget_minor,omitempty"`

	// Color is an optional presentation hint (hex RGB).
	Color string `json:"color,omitempty"`
}

// Kind returns KindCategory.
func (c Category) Kind() EntityKind {
	return KindCategory
}

// State returns the comparator-facing descriptor of the category.
func (c Category) State() EntityState {
	return c.state(KindCategory)
}

// Payload returns the semantic fields participating in the content hash.
func (c Category) Payload() any {
	return struct {
		Name        string  `json:"name"`
		ParentID    *string `json:"parent_id"`
		BudgetMinor *int64  `json:"budget_minor"`
		Color       string  `json:"color"`
		Deleted     bool    `json:"deleted"`
	}{c.Name, c.ParentID, c.BudgetMinor, c.Color, c.Deleted}
}

// TableName returns the name of the database table
// associated with the Category model.
func (c Category) TableName() string {
	return "categories"
}
