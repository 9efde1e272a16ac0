package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unishare/unishare-api/internal/models"
)

// NewsRepository handles persistence of announcements.
type NewsRepository struct {
	db *sqlx.DB
}

// NewNewsRepository constructs the repository.
func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// Create persists an announcement.
func (r *NewsRepository) Create(ctx context.Context, item *models.News) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.PublishedAt.IsZero() {
		item.PublishedAt = time.Now().UTC()
	}
	item.Active = true
	const query = `INSERT INTO news (id, title, content, course_id, author_id, published_at, featured, active)
        VALUES (:id, :title, :content, :course_id, :author_id, :published_at, :featured, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create news: %w", err)
	}
	return nil
}

// ListActive returns active announcements, featured first then newest.
func (r *NewsRepository) ListActive(ctx context.Context, limit int) ([]models.NewsDetail, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT n.id, n.title, n.content, n.course_id, n.author_id, n.published_at, n.featured, n.active,
        u.full_name AS author_name, c.name AS course_name
        FROM news n
        JOIN users u ON u.id = n.author_id
        LEFT JOIN courses c ON c.id = n.course_id
        WHERE n.active
        ORDER BY n.featured DESC, n.published_at DESC
        LIMIT $1`
	var items []models.NewsDetail
	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return items, nil
}

// Deactivate soft-deletes an announcement.
func (r *NewsRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE news SET active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate news: %w", err)
	}
	return nil
}
