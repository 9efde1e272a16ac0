package models

import "time"

// EventStatus is the moderation state of an event. Approved and
// Rejected are terminal for the feed, though an admin overwriting the
// status of a terminal event is accepted and idempotent.
type EventStatus string

const (
	EventStatusPending  EventStatus = "PENDING"
	EventStatusApproved EventStatus = "APPROVED"
	EventStatusRejected EventStatus = "REJECTED"
)

// Event is a campus event submitted for moderation.
type Event struct {
	ID          string      `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description *string     `db:"description" json:"description,omitempty"`
	Location    *string     `db:"location" json:"location,omitempty"`
	StartsAt    time.Time   `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time   `db:"ends_at" json:"ends_at"`
	CourseID    *string     `db:"course_id" json:"course_id,omitempty"`
	CreatorID   string      `db:"creator_id" json:"creator_id"`
	Status      EventStatus `db:"status" json:"status"`
	Active      bool        `db:"active" json:"active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// EventDetail enriches Event with names and the attendee count.
type EventDetail struct {
	Event
	CreatorName   string  `db:"creator_name" json:"creator_name"`
	CourseName    *string `db:"course_name" json:"course_name,omitempty"`
	AttendeeCount int     `db:"attendee_count" json:"attendee_count"`
}

// AttendanceStatus is a user's RSVP answer.
type AttendanceStatus string

const (
	AttendanceInterested AttendanceStatus = "INTERESTED"
	AttendanceConfirmed  AttendanceStatus = "CONFIRMED"
	AttendanceDeclined   AttendanceStatus = "DECLINED"
)

// Attendee is the unique (event, user) RSVP row. Create-once: updating
// an existing RSVP is not supported by this surface.
type Attendee struct {
	ID           string           `db:"id" json:"id"`
	EventID      string           `db:"event_id" json:"event_id"`
	UserID       string           `db:"user_id" json:"user_id"`
	Status       AttendanceStatus `db:"status" json:"status"`
	ResponseDate time.Time        `db:"response_date" json:"response_date"`
}
