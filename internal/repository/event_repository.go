package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

// EventRepository handles persistence of events and RSVPs.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create persists a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.Active = true
	const query = `INSERT INTO events (id, title, description, location, starts_at, ends_at, course_id, creator_id, status, active, created_at)
        VALUES (:id, :title, :description, :location, :starts_at, :ends_at, :course_id, :creator_id, :status, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindByID returns an event by its ID.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `SELECT id, title, description, location, starts_at, ends_at, course_id, creator_id, status, active, created_at
        FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateStatus overwrites the moderation status. Overwriting a terminal
// status is allowed; the write is idempotent.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status models.EventStatus) error {
	const query = `UPDATE events SET status = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListApproved returns the public feed: approved, active events ordered
// by start time ascending, with attendee counts.
func (r *EventRepository) ListApproved(ctx context.Context) ([]models.EventDetail, error) {
	const query = `SELECT e.id, e.title, e.description, e.location, e.starts_at, e.ends_at, e.course_id, e.creator_id, e.status, e.active, e.created_at,
        u.full_name AS creator_name, c.name AS course_name,
        (SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) AS attendee_count
        FROM events e
        JOIN users u ON u.id = e.creator_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.status = $1 AND e.active
        ORDER BY e.starts_at`
	var events []models.EventDetail
	if err := r.db.SelectContext(ctx, &events, query, models.EventStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved events: %w", err)
	}
	return events, nil
}

// ListByStatus returns active events in the given moderation state,
// newest submissions first. Used by the admin moderation queue.
func (r *EventRepository) ListByStatus(ctx context.Context, status models.EventStatus) ([]models.EventDetail, error) {
	const query = `SELECT e.id, e.title, e.description, e.location, e.starts_at, e.ends_at, e.course_id, e.creator_id, e.status, e.active, e.created_at,
        u.full_name AS creator_name, c.name AS course_name,
        (SELECT COUNT(*) FROM event_attendees a WHERE a.event_id = e.id) AS attendee_count
        FROM events e
        JOIN users u ON u.id = e.creator_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.status = $1 AND e.active
        ORDER BY e.created_at DESC`
	var events []models.EventDetail
	if err := r.db.SelectContext(ctx, &events, query, status); err != nil {
		return nil, fmt.Errorf("list events by status: %w", err)
	}
	return events, nil
}

// ListApprovedBetween returns approved events overlapping the window,
// used by the calendar projection.
func (r *EventRepository) ListApprovedBetween(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	const query = `SELECT id, title, description, location, starts_at, ends_at, course_id, creator_id, status, active, created_at
        FROM events
        WHERE status = $1 AND active AND starts_at >= $2 AND starts_at < $3
        ORDER BY starts_at`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, models.EventStatusApproved, from, to); err != nil {
		return nil, fmt.Errorf("list events in window: %w", err)
	}
	return events, nil
}

// AttendeeExists reports whether an RSVP row exists for the pair.
func (r *EventRepository) AttendeeExists(ctx context.Context, eventID, userID string) (bool, error) {
	const query = `SELECT 1 FROM event_attendees WHERE event_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, eventID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check attendee: %w", err)
	}
	return true, nil
}

// CreateAttendee inserts an RSVP row. The (event_id, user_id) unique
// constraint turns a racing duplicate into ErrDuplicateRSVP.
func (r *EventRepository) CreateAttendee(ctx context.Context, attendee *models.Attendee) error {
	if attendee.ID == "" {
		attendee.ID = uuid.NewString()
	}
	if attendee.ResponseDate.IsZero() {
		attendee.ResponseDate = time.Now().UTC()
	}
	const query = `INSERT INTO event_attendees (id, event_id, user_id, status, response_date)
        VALUES (:id, :event_id, :user_id, :status, :response_date)`
	if _, err := r.db.NamedExecContext(ctx, query, attendee); err != nil {
		if isUniqueViolation(err) {
			return appErrors.ErrDuplicateRSVP
		}
		return fmt.Errorf("create attendee: %w", err)
	}
	return nil
}
