package models

import "sort"

// Collections aggregates every synced entity collection. It is the unit
// the serializer, merger, validator, and datastore exchange.
type Collections struct {
	Tasks        []Task        `json:"tasks"`
	Categories   []Category    `json:"categories"`
	TimeEntries  []TimeEntry   `json:"time_entries"`
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
}

// CollectionCounts holds per-collection record counts. Populated on
// every integrity report and cycle result regardless of validity.
type CollectionCounts struct {
	Tasks        int `json:"tasks"`
	Categories   int `json:"categories"`
	TimeEntries  int `json:"time_entries"`
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
}

// Total returns the sum over all collections.
func (c CollectionCounts) Total() int {
	return c.Tasks + c.Categories + c.TimeEntries + c.Accounts + c.Transactions
}

// Counts returns per-collection record counts.
func (c *Collections) Counts() CollectionCounts {
	return CollectionCounts{
		Tasks:        len(c.Tasks),
		Categories:   len(c.Categories),
		TimeEntries:  len(c.TimeEntries),
		Accounts:     len(c.Accounts),
		Transactions: len(c.Transactions),
	}
}

// Len returns the total number of records across all collections.
func (c *Collections) Len() int {
	return c.Counts().Total()
}

// SortByID orders every collection by entity id. Serialization relies
// on this to keep encoded snapshots byte-identical for equal input.
func (c *Collections) SortByID() {
	sort.Slice(c.Tasks, func(i, j int) bool { return c.Tasks[i].ID < c.Tasks[j].ID })
	sort.Slice(c.Categories, func(i, j int) bool { return c.Categories[i].ID < c.Categories[j].ID })
	sort.Slice(c.TimeEntries, func(i, j int) bool { return c.TimeEntries[i].ID < c.TimeEntries[j].ID })
	sort.Slice(c.Accounts, func(i, j int) bool { return c.Accounts[i].ID < c.Accounts[j].ID })
	sort.Slice(c.Transactions, func(i, j int) bool { return c.Transactions[i].ID < c.Transactions[j].ID })
}

// All returns every record flattened into one slice, collections in
// canonical kind order, records in their current slice order.
func (c *Collections) All() []Entity {
	out := make([]Entity, 0, c.Len())
	for _, t := range c.Tasks {
		out = append(out, t)
	}
	for _, cat := range c.Categories {
		out = append(out, cat)
	}
	for _, e := range c.TimeEntries {
		out = append(out, e)
	}
	for _, a := range c.Accounts {
		out = append(out, a)
	}
	for _, tr := range c.Transactions {
		out = append(out, tr)
	}
	return out
}

// Put appends the entity to the collection matching its concrete type.
// Entities are passed by value; pointers are not accepted.
func (c *Collections) Put(e Entity) {
	switch v := e.(type) {
	case Task:
		c.Tasks = append(c.Tasks, v)
	case Category:
		c.Categories = append(c.Categories, v)
	case TimeEntry:
		c.TimeEntries = append(c.TimeEntries, v)
	case Account:
		c.Accounts = append(c.Accounts, v)
	case Transaction:
		c.Transactions = append(c.Transactions, v)
	}
}

// ByID indexes every record by its entity id. Ids are globally unique
// across collections, so one flat map is enough.
func (c *Collections) ByID() map[string]Entity {
	out := make(map[string]Entity, c.Len())
	for _, e := range c.All() {
		out[e.EntityID()] = e
	}
	return out
}

// States returns the comparator-facing descriptors of every record.
func (c *Collections) States() []EntityState {
	all := c.All()
	out := make([]EntityState, 0, len(all))
	for _, e := range all {
		out = append(out, e.State())
	}
	return out
}
