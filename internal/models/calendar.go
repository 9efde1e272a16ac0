package models

import "time"

// CalendarEntryType categorises manual calendar entries.
type CalendarEntryType string

const (
	CalendarEntryExam       CalendarEntryType = "EXAM"
	CalendarEntryAssignment CalendarEntryType = "ASSIGNMENT"
	CalendarEntryEvent      CalendarEntryType = "EVENT"
	CalendarEntryOther      CalendarEntryType = "OTHER"
)

// CalendarEntry is a user-owned manual calendar item, optionally linked
// to a subject.
type CalendarEntry struct {
	ID          string            `db:"id" json:"id"`
	UserID      string            `db:"user_id" json:"user_id"`
	SubjectID   *string           `db:"subject_id" json:"subject_id,omitempty"`
	Type        CalendarEntryType `db:"type" json:"type"`
	Title       string            `db:"title" json:"title"`
	Description *string           `db:"description" json:"description,omitempty"`
	DueAt       time.Time         `db:"due_at" json:"due_at"`
	Active      bool              `db:"active" json:"active"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

// CalendarItemSource identifies where a projected calendar item came from.
type CalendarItemSource string

const (
	CalendarSourceEntry CalendarItemSource = "ENTRY"
	CalendarSourceEvent CalendarItemSource = "EVENT"
)

// CalendarItem is one row of the read-only calendar projection merging
// manual entries with approved events.
type CalendarItem struct {
	ID          string             `json:"id"`
	Source      CalendarItemSource `json:"source"`
	Title       string             `json:"title"`
	Description *string            `json:"description,omitempty"`
	SubjectID   *string            `json:"subject_id,omitempty"`
	SubjectName *string            `json:"subject_name,omitempty"`
	At          time.Time          `json:"at"`
}
