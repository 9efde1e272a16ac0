package models

// Dashboard aggregates the signed-in user's home screen data.
type Dashboard struct {
	Progress    *Progress          `json:"progress"`
	Enrollments []EnrollmentDetail `json:"enrollments"`
	News        []NewsDetail       `json:"news"`
}
