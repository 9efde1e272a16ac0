package models

import "time"

// Course is a degree programme owning many subjects. Read-only to the
// collaboration core; catalog maintenance is an admin surface.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	TotalECTS int       `db:"total_ects" json:"total_ects"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject belongs to one course and optionally has a professor owner.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Code        string    `db:"code" json:"code"`
	ECTS        int       `db:"ects" json:"ects"`
	Semester    int       `db:"semester" json:"semester"`
	Year        int       `db:"year" json:"year"`
	CourseID    string    `db:"course_id" json:"course_id"`
	ProfessorID *string   `db:"professor_id" json:"professor_id,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SubjectDetail enriches Subject with course and professor names.
type SubjectDetail struct {
	Subject
	CourseName    string  `db:"course_name" json:"course_name"`
	ProfessorName *string `db:"professor_name" json:"professor_name,omitempty"`
}
