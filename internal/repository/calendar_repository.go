package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unishare/unishare-api/internal/models"
)

// CalendarRepository handles persistence of manual calendar entries.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs the repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Create persists a new calendar entry.
func (r *CalendarRepository) Create(ctx context.Context, entry *models.CalendarEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Active = true
	const query = `INSERT INTO calendar_entries (id, user_id, subject_id, type, title, description, due_at, active, created_at)
        VALUES (:id, :user_id, :subject_id, :type, :title, :description, :due_at, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create calendar entry: %w", err)
	}
	return nil
}

// FindByID returns a calendar entry by its ID.
func (r *CalendarRepository) FindByID(ctx context.Context, id string) (*models.CalendarEntry, error) {
	const query = `SELECT id, user_id, subject_id, type, title, description, due_at, active, created_at
        FROM calendar_entries WHERE id = $1`
	var entry models.CalendarEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update overwrites the mutable fields of an entry.
func (r *CalendarRepository) Update(ctx context.Context, entry *models.CalendarEntry) error {
	const query = `UPDATE calendar_entries SET subject_id = $2, type = $3, title = $4, description = $5, due_at = $6 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.SubjectID, entry.Type, entry.Title, entry.Description, entry.DueAt); err != nil {
		return fmt.Errorf("update calendar entry: %w", err)
	}
	return nil
}

// Deactivate soft-deletes an entry.
func (r *CalendarRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE calendar_entries SET active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate calendar entry: %w", err)
	}
	return nil
}

// ListUpcoming returns the user's active entries in the window with the
// linked subject name, ordered by due time.
func (r *CalendarRepository) ListUpcoming(ctx context.Context, userID string, from, to time.Time) ([]models.CalendarItem, error) {
	const query = `SELECT e.id, e.title, e.description, e.subject_id, s.name AS subject_name, e.due_at
        FROM calendar_entries e
        LEFT JOIN subjects s ON s.id = e.subject_id
        WHERE e.user_id = $1 AND e.active AND e.due_at >= $2 AND e.due_at < $3
        ORDER BY e.due_at`
	rows, err := r.db.QueryxContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list calendar entries: %w", err)
	}
	defer rows.Close()

	var items []models.CalendarItem
	for rows.Next() {
		var row struct {
			ID          string     `db:"id"`
			Title       string     `db:"title"`
			Description *string    `db:"description"`
			SubjectID   *string    `db:"subject_id"`
			SubjectName *string    `db:"subject_name"`
			DueAt       time.Time  `db:"due_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan calendar entry: %w", err)
		}
		items = append(items, models.CalendarItem{
			ID:          row.ID,
			Source:      models.CalendarSourceEntry,
			Title:       row.Title,
			Description: row.Description,
			SubjectID:   row.SubjectID,
			SubjectName: row.SubjectName,
			At:          row.DueAt,
		})
	}
	return items, rows.Err()
}
