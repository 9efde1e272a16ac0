package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unishare/unishare-api/internal/models"
)

// MessageRepository handles persistence of group messages and video
// call sessions. Delivery is store-then-poll; nothing here pushes.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a new group message.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	message.Active = true
	const query = `INSERT INTO messages (id, group_id, author_id, content, type, active, created_at)
        VALUES (:id, :group_id, :author_id, :content, :type, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListByGroup returns the group's active messages in chronological order.
func (r *MessageRepository) ListByGroup(ctx context.Context, groupID string, limit int) ([]models.MessageDetail, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `SELECT m.id, m.group_id, m.author_id, m.content, m.type, m.active, m.created_at,
        u.full_name AS author_name
        FROM messages m
        JOIN users u ON u.id = m.author_id
        WHERE m.group_id = $1 AND m.active
        ORDER BY m.created_at
        LIMIT $2`
	var messages []models.MessageDetail
	if err := r.db.SelectContext(ctx, &messages, query, groupID, limit); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// CreateVideoCall records a call session for a group.
func (r *MessageRepository) CreateVideoCall(ctx context.Context, call *models.VideoCall) error {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now().UTC()
	}
	call.Active = true
	const query = `INSERT INTO video_calls (id, group_id, initiator_id, session_link, started_at, ended_at, active)
        VALUES (:id, :group_id, :initiator_id, :session_link, :started_at, :ended_at, :active)`
	if _, err := r.db.NamedExecContext(ctx, query, call); err != nil {
		return fmt.Errorf("create video call: %w", err)
	}
	return nil
}
