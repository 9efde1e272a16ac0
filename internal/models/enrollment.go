package models

import "time"

// Enrollment captures a user's registration to a subject. The
// (user_id, subject_id) pair is unique; unenrolling removes the row
// outright instead of flipping an active flag.
type Enrollment struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	SubjectID      string     `db:"subject_id" json:"subject_id"`
	EnrollmentDate time.Time  `db:"enrollment_date" json:"enrollment_date"`
	Grade          *float64   `db:"grade" json:"grade,omitempty"`
	Completed      bool       `db:"completed" json:"completed"`
	CompletionDate *time.Time `db:"completion_date" json:"completion_date,omitempty"`
}

// EnrollmentDetail enriches Enrollment with subject and course info.
type EnrollmentDetail struct {
	Enrollment
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	SubjectECTS int    `db:"subject_ects" json:"subject_ects"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// Progress summarises a user's academic standing for the dashboard.
type Progress struct {
	TotalSubjects     int     `json:"total_subjects"`
	CompletedSubjects int     `json:"completed_subjects"`
	AverageGrade      float64 `json:"average_grade"`
	CompletedECTS     int     `json:"completed_ects"`
}
