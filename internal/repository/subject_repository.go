package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/unishare/unishare-api/internal/models"
)

// SubjectRepository reads the subject catalog. The collaboration core
// never writes here; catalog maintenance is a separate admin surface.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns a subject by its ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, description, code, ects, semester, year, course_id, professor_id, active, created_at
        FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByCourse returns the course's active subjects in catalog order.
func (r *SubjectRepository) ListByCourse(ctx context.Context, courseID string) ([]models.SubjectDetail, error) {
	const query = `SELECT s.id, s.name, s.description, s.code, s.ects, s.semester, s.year, s.course_id, s.professor_id, s.active, s.created_at,
        c.name AS course_name, u.full_name AS professor_name
        FROM subjects s
        JOIN courses c ON c.id = s.course_id
        LEFT JOIN users u ON u.id = s.professor_id
        WHERE s.course_id = $1 AND s.active
        ORDER BY s.year, s.semester, s.name`
	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query, courseID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}
