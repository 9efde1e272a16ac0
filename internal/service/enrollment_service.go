package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type enrollmentRepository interface {
	Exists(ctx context.Context, userID, subjectID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByUserAndSubject(ctx context.Context, userID, subjectID string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, userID, subjectID string) (bool, error)
	Complete(ctx context.Context, id string, grade float64, completedAt time.Time) error
	ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
	Progress(ctx context.Context, userID string) (*models.Progress, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EnrollRequest describes an enrollment creation payload.
type EnrollRequest struct {
	UserID    string `json:"-" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// CompleteRequest describes a subject completion payload.
type CompleteRequest struct {
	EnrollmentID string  `json:"-" validate:"required"`
	RequesterID  string  `json:"-" validate:"required"`
	Grade        float64 `json:"grade"`
}

// EnrollmentService orchestrates subject enrollment, completion and the
// enrollment predicate consulted by every gated operation.
type EnrollmentService struct {
	repo      enrollmentRepository
	subjects  subjectReader
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, subjects subjectReader, users userReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, subjects: subjects, users: users, validator: validate, logger: logger}
}

// Enroll registers the user in a subject. Enrolling twice is a no-op
// returning the existing enrollment. The subject must belong to the
// user's declared course.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !subject.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.CourseID == nil || *user.CourseID != subject.CourseID {
		return nil, appErrors.ErrCourseMismatch
	}

	existing, err := s.repo.FindByUserAndSubject(ctx, req.UserID, req.SubjectID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if existing != nil {
		return existing, nil
	}

	enrollment := &models.Enrollment{
		UserID:         req.UserID,
		SubjectID:      req.SubjectID,
		EnrollmentDate: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, appErrors.ErrConflict) {
			// Lost the race against a concurrent enroll. The unique
			// constraint guarantees a row exists, so surface it.
			return s.repo.FindByUserAndSubject(ctx, req.UserID, req.SubjectID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("user enrolled",
		zap.String("user_id", req.UserID),
		zap.String("subject_id", req.SubjectID))
	return enrollment, nil
}

// Unenroll removes the enrollment row. Absence is not an error.
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, subjectID string) error {
	removed, err := s.repo.Delete(ctx, userID, subjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll")
	}
	if removed {
		s.logger.Info("user unenrolled",
			zap.String("user_id", userID),
			zap.String("subject_id", subjectID))
	}
	return nil
}

// Complete marks the enrollment completed with a grade. Re-completing
// overwrites the previous grade and completion date.
func (s *EnrollmentService) Complete(ctx context.Context, req CompleteRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}
	if req.Grade < 0 || req.Grade > 20 {
		return nil, appErrors.ErrInvalidGrade
	}

	enrollment, err := s.repo.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.UserID != req.RequesterID {
		return nil, appErrors.ErrForbidden
	}

	completedAt := time.Now().UTC()
	if err := s.repo.Complete(ctx, enrollment.ID, req.Grade, completedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete subject")
	}

	grade := req.Grade
	enrollment.Completed = true
	enrollment.Grade = &grade
	enrollment.CompletionDate = &completedAt
	return enrollment, nil
}

// IsEnrolled reports whether the user holds an enrollment in the subject.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, userID, subjectID string) (bool, error) {
	enrolled, err := s.repo.Exists(ctx, userID, subjectID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	return enrolled, nil
}

// ListMine returns the user's enrollments with subject details.
func (s *EnrollmentService) ListMine(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// Progress aggregates the user's academic standing.
func (s *EnrollmentService) Progress(ctx context.Context, userID string) (*models.Progress, error) {
	progress, err := s.repo.Progress(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute progress")
	}
	return progress, nil
}
