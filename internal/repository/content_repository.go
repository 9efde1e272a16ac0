package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unishare/unishare-api/internal/models"
)

// ContentRepository handles persistence of subject posts and comments.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// CreatePost persists a new subject post.
func (r *ContentRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.Active = true
	const query = `INSERT INTO posts (id, subject_id, author_id, content, type, link_url, attachment, active, created_at, updated_at)
        VALUES (:id, :subject_id, :author_id, :content, :type, :link_url, :attachment, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// FindPostByID returns a post by its ID.
func (r *ContentRepository) FindPostByID(ctx context.Context, id string) (*models.Post, error) {
	const query = `SELECT id, subject_id, author_id, content, type, link_url, attachment, active, created_at, updated_at
        FROM posts WHERE id = $1`
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPostsBySubject returns a page of the subject's active posts,
// newest first, each with its active comments in chronological order.
func (r *ContentRepository) ListPostsBySubject(ctx context.Context, subjectID string, page, pageSize int) ([]models.PostDetail, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	const postsQuery = `SELECT p.id, p.subject_id, p.author_id, p.content, p.type, p.link_url, p.attachment, p.active, p.created_at, p.updated_at,
        u.full_name AS author_name
        FROM posts p
        JOIN users u ON u.id = p.author_id
        WHERE p.subject_id = $1 AND p.active
        ORDER BY p.created_at DESC
        LIMIT $2 OFFSET $3`
	var posts []models.PostDetail
	if err := r.db.SelectContext(ctx, &posts, postsQuery, subjectID, pageSize, offset); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		posts[i].Comments = []models.CommentDetail{}
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
	}

	commentsQuery, args, err := sqlx.In(`SELECT c.id, c.post_id, c.author_id, c.content, c.active, c.created_at,
        u.full_name AS author_name
        FROM comments c
        JOIN users u ON u.id = c.author_id
        WHERE c.post_id IN (?) AND c.active
        ORDER BY c.created_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("build comments query: %w", err)
	}
	var comments []models.CommentDetail
	if err := r.db.SelectContext(ctx, &comments, r.db.Rebind(commentsQuery), args...); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	for _, comment := range comments {
		if i, ok := index[comment.PostID]; ok {
			posts[i].Comments = append(posts[i].Comments, comment)
		}
	}
	return posts, nil
}

// CreateComment persists a new comment under a post.
func (r *ContentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	comment.Active = true
	const query = `INSERT INTO comments (id, post_id, author_id, content, active, created_at)
        VALUES (:id, :post_id, :author_id, :content, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// DeactivatePost soft-deletes a post.
func (r *ContentRepository) DeactivatePost(ctx context.Context, id string) error {
	const query = `UPDATE posts SET active = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate post: %w", err)
	}
	return nil
}
