package models

import "time"

// News is an announcement published to a course or campus-wide.
type News struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	CourseID    *string   `db:"course_id" json:"course_id,omitempty"`
	AuthorID    string    `db:"author_id" json:"author_id"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	Featured    bool      `db:"featured" json:"featured"`
	Active      bool      `db:"active" json:"active"`
}

// NewsDetail enriches News with author and course names.
type NewsDetail struct {
	News
	AuthorName string  `db:"author_name" json:"author_name"`
	CourseName *string `db:"course_name" json:"course_name,omitempty"`
}
