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

// EnrollmentRepository handles persistence of subject enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Exists reports whether a (user, subject) enrollment row exists. This
// is the single source of truth for enrollment-gated access.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM subject_enrollments WHERE user_id = $1 AND subject_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, subject_id, enrollment_date, grade, completed, completion_date
        FROM subject_enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByUserAndSubject returns the enrollment row for the pair, if any.
func (r *EnrollmentRepository) FindByUserAndSubject(ctx context.Context, userID, subjectID string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, subject_id, enrollment_date, grade, completed, completion_date
        FROM subject_enrollments WHERE user_id = $1 AND subject_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, subjectID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create persists a new enrollment. A concurrent duplicate insert trips
// the (user_id, subject_id) unique constraint and surfaces as ErrConflict
// for the caller to treat as an idempotent no-op.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = time.Now().UTC()
	}
	const query = `INSERT INTO subject_enrollments (id, user_id, subject_id, enrollment_date, grade, completed, completion_date)
        VALUES (:id, :user_id, :subject_id, :enrollment_date, :grade, :completed, :completion_date)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "already enrolled")
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes the enrollment row outright. Unenroll is the one
// hard-delete in the system; it reports whether a row was removed.
func (r *EnrollmentRepository) Delete(ctx context.Context, userID, subjectID string) (bool, error) {
	const query = `DELETE FROM subject_enrollments WHERE user_id = $1 AND subject_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, subjectID)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	return affected > 0, nil
}

// Complete marks an enrollment as completed with the given grade.
// Re-completing overwrites the previous grade and completion date.
func (r *EnrollmentRepository) Complete(ctx context.Context, id string, grade float64, completedAt time.Time) error {
	const query = `UPDATE subject_enrollments SET completed = TRUE, grade = $2, completion_date = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grade, completedAt); err != nil {
		return fmt.Errorf("complete enrollment: %w", err)
	}
	return nil
}

// ListByUser returns a user's enrollments with subject context, ordered
// the way the subject catalog is browsed.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.subject_id, e.enrollment_date, e.grade, e.completed, e.completion_date,
        s.name AS subject_name, s.code AS subject_code, s.ects AS subject_ects, c.name AS course_name
        FROM subject_enrollments e
        JOIN subjects s ON s.id = e.subject_id
        JOIN courses c ON c.id = s.course_id
        WHERE e.user_id = $1
        ORDER BY s.year, s.semester, s.name`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// SubjectIDsByUser returns the IDs of subjects the user is enrolled in.
func (r *EnrollmentRepository) SubjectIDsByUser(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT subject_id FROM subject_enrollments WHERE user_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list enrolled subject ids: %w", err)
	}
	return ids, nil
}

// Progress aggregates a user's completion state for the dashboard.
func (r *EnrollmentRepository) Progress(ctx context.Context, userID string) (*models.Progress, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE e.completed) AS completed,
        COALESCE(AVG(e.grade) FILTER (WHERE e.completed), 0) AS average_grade,
        COALESCE(SUM(s.ects) FILTER (WHERE e.completed), 0) AS completed_ects
        FROM subject_enrollments e
        JOIN subjects s ON s.id = e.subject_id
        WHERE e.user_id = $1`
	var row struct {
		Total         int     `db:"total"`
		Completed     int     `db:"completed"`
		AverageGrade  float64 `db:"average_grade"`
		CompletedECTS int     `db:"completed_ects"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, fmt.Errorf("aggregate progress: %w", err)
	}
	return &models.Progress{
		TotalSubjects:     row.Total,
		CompletedSubjects: row.Completed,
		AverageGrade:      row.AverageGrade,
		CompletedECTS:     row.CompletedECTS,
	}, nil
}
