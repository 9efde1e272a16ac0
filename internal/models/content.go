package models

import "time"

// PostType distinguishes the payload carried by a subject post.
type PostType string

const (
	PostTypeText     PostType = "TEXT"
	PostTypeDocument PostType = "DOCUMENT"
	PostTypeLink     PostType = "LINK"
)

// Post is subject-scoped content, visible only to enrolled users.
type Post struct {
	ID         string     `db:"id" json:"id"`
	SubjectID  string     `db:"subject_id" json:"subject_id"`
	AuthorID   string     `db:"author_id" json:"author_id"`
	Content    string     `db:"content" json:"content"`
	Type       PostType   `db:"type" json:"type"`
	LinkURL    *string    `db:"link_url" json:"link_url,omitempty"`
	Attachment *string    `db:"attachment" json:"attachment,omitempty"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// PostDetail enriches Post with the author name and its comments.
type PostDetail struct {
	Post
	AuthorName string          `db:"author_name" json:"author_name"`
	Comments   []CommentDetail `json:"comments"`
}

// Comment is post-scoped content, gated by the post's subject enrollment.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CommentDetail enriches Comment with the author name.
type CommentDetail struct {
	Comment
	AuthorName string `db:"author_name" json:"author_name"`
}

// MessageType distinguishes group chat payloads.
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeFile   MessageType = "FILE"
	MessageTypeSystem MessageType = "SYSTEM"
)

// Message is group-scoped content; delivery is store-then-poll.
type Message struct {
	ID        string      `db:"id" json:"id"`
	GroupID   string      `db:"group_id" json:"group_id"`
	AuthorID  string      `db:"author_id" json:"author_id"`
	Content   string      `db:"content" json:"content"`
	Type      MessageType `db:"type" json:"type"`
	Active    bool        `db:"active" json:"active"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// MessageDetail enriches Message with the author name.
type MessageDetail struct {
	Message
	AuthorName string `db:"author_name" json:"author_name"`
}

// VideoCall records a call session initiated inside a study group.
type VideoCall struct {
	ID          string     `db:"id" json:"id"`
	GroupID     string     `db:"group_id" json:"group_id"`
	InitiatorID string     `db:"initiator_id" json:"initiator_id"`
	SessionLink string     `db:"session_link" json:"session_link"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	EndedAt     *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	Active      bool       `db:"active" json:"active"`
}
