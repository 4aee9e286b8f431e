package models

import "time"

// TaskStatus defines the lifecycle state of a task.
type TaskStatus int

const (
	// TaskStatusOpen is a task not yet started.
	TaskStatusOpen TaskStatus = 1

	// TaskStatusInProgress is a task being worked on.
	TaskStatusInProgress TaskStatus = 2

	// TaskStatusDone is a finished task.
	TaskStatusDone TaskStatus = 3
)

// Task represents a to-do item with optional diary-style notes.
type Task struct {
	SyncInfo

	// Title is the short human-readable name of the task.
	Title string `json:"title"`

	// Notes contains free-form text attached to the task.
	Notes string `json:"notes,omitempty"`

	// CategoryID is an optional reference to a Category.
	CategoryID *string `json:"category_id,omitempty"`

	// Status is the lifecycle state of the task.
	Status TaskStatus `json:"status"`

	// DueDate is an optional deadline, stored in UTC.
	DueDate *time.Time `json:"due_date,omitempty"`
}

// Kind returns KindTask.
func (t Task) Kind() EntityKind {
	return KindTask
}

// State returns the comparator-facing descriptor of the task.
func (t Task) State() EntityState {
	return t.state(KindTask)
}

// Payload returns the semantic fields participating in the content hash.
func (t Task) Payload() any {
	return struct {
		Title      string     `json:"title"`
		Notes      string     `json:"notes"`
		CategoryID *string    `json:"category_id"`
		Status     TaskStatus `json:"status"`
		DueDate    *time.Time `json:"due_date"`
		Deleted    bool       `json:"deleted"`
	}{t.Title, t.Notes, t.CategoryID, t.Status, utcPtr(t.DueDate), t.Deleted}
}

// TableName returns the name of the database table
// associated with the Task model.
func (t Task) TableName() string {
	return "tasks"
}

// utcPtr normalizes an optional timestamp to UTC so payload bytes do not
// depend on the zone the record was written in.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
