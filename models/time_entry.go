package models

import "time"

// TimeEntry is a tracked interval of work against a task.
type TimeEntry struct {
	SyncInfo

	// TaskID references the task this interval was spent on. Required.
	TaskID string `json:"task_id"`

	// StartedAt is the interval start, stored in UTC.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is the interval end. Nil while the timer is running;
	// when set it must not precede StartedAt.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// Comment is an optional free-form annotation.
	Comment string `json:"comment,omitempty"`
}

// Kind returns KindTimeEntry.
func (e TimeEntry) Kind() EntityKind {
	return KindTimeEntry
}

// State returns the comparator-facing descriptor of the entry.
func (e TimeEntry) State() EntityState {
	return e.state(KindTimeEntry)
}

// Payload returns the semantic fields participating in the content hash.
func (e TimeEntry) Payload() any {
	return struct {
		TaskID    string     `json:"task_id"`
		StartedAt time.Time  `json:"started_at"`
		EndedAt   *time.Time `json:"ended_at"`
		Comment   string     `json:"comment"`
		Deleted   bool       `json:"deleted"`
	}{e.TaskID, e.StartedAt.UTC(), utcPtr(e.EndedAt), e.Comment, e.Deleted}
}

// TableName returns the name of the database table
// associated with the TimeEntry model.
func (e TimeEntry) TableName() string {
	return "time_entries"
}
