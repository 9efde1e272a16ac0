package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type calendarRepository interface {
	Create(ctx context.Context, entry *models.CalendarEntry) error
	FindByID(ctx context.Context, id string) (*models.CalendarEntry, error)
	Update(ctx context.Context, entry *models.CalendarEntry) error
	Deactivate(ctx context.Context, id string) error
	ListUpcoming(ctx context.Context, userID string, from, to time.Time) ([]models.CalendarItem, error)
}

type eventWindowReader interface {
	ListApprovedBetween(ctx context.Context, from, to time.Time) ([]models.Event, error)
}

type enrollmentSubjectsReader interface {
	SubjectIDsByUser(ctx context.Context, userID string) ([]string, error)
}

// CalendarEntryRequest describes a manual calendar entry payload.
type CalendarEntryRequest struct {
	SubjectID   *string                  `json:"subject_id,omitempty"`
	Type        models.CalendarEntryType `json:"type" validate:"required,oneof=EXAM ASSIGNMENT EVENT OTHER"`
	Title       string                   `json:"title" validate:"required,max=200"`
	Description *string                  `json:"description,omitempty"`
	DueAt       time.Time                `json:"due_at" validate:"required"`
}

// CalendarService owns manual calendar entries and the read-only
// projection merging them with approved events. Entries linked to a
// subject require the owner's enrollment, both on write and on read.
type CalendarService struct {
	repo        calendarRepository
	events      eventWindowReader
	enrollments enrollmentSubjectsReader
	users       userReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCalendarService constructs CalendarService.
func NewCalendarService(repo calendarRepository, events eventWindowReader, enrollments enrollmentSubjectsReader, users userReader, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		repo:        repo,
		events:      events,
		enrollments: enrollments,
		users:       users,
		validator:   validate,
		logger:      logger,
	}
}

// CreateEntry adds a manual entry to the caller's calendar.
func (s *CalendarService) CreateEntry(ctx context.Context, principal access.Principal, req CalendarEntryRequest) (*models.CalendarEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar entry payload")
	}
	if err := s.checkSubjectLink(ctx, principal, req.SubjectID); err != nil {
		return nil, err
	}

	entry := &models.CalendarEntry{
		UserID:      principal.UserID,
		SubjectID:   req.SubjectID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create calendar entry")
	}
	return entry, nil
}

// UpdateEntry overwrites an entry. Only the owner may update.
func (s *CalendarService) UpdateEntry(ctx context.Context, principal access.Principal, entryID string, req CalendarEntryRequest) (*models.CalendarEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar entry payload")
	}

	entry, err := s.loadOwnedEntry(ctx, principal, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSubjectLink(ctx, principal, req.SubjectID); err != nil {
		return nil, err
	}

	entry.SubjectID = req.SubjectID
	entry.Type = req.Type
	entry.Title = req.Title
	entry.Description = req.Description
	entry.DueAt = req.DueAt
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update calendar entry")
	}
	return entry, nil
}

// DeleteEntry soft-deletes an entry. Only the owner may delete.
func (s *CalendarService) DeleteEntry(ctx context.Context, principal access.Principal, entryID string) error {
	if _, err := s.loadOwnedEntry(ctx, principal, entryID); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, entryID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete calendar entry")
	}
	return nil
}

// Upcoming projects the caller's obligations for the window: manual
// entries merged with approved events, ordered by time. Entries linked
// to subjects the user is no longer enrolled in are filtered out, and
// course-scoped events are limited to the user's course.
func (s *CalendarService) Upcoming(ctx context.Context, principal access.Principal, from, to time.Time) ([]models.CalendarItem, error) {
	if !to.After(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "window must end after it starts")
	}

	entries, err := s.repo.ListUpcoming(ctx, principal.UserID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendar entries")
	}

	subjectIDs, err := s.enrollments.SubjectIDsByUser(ctx, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	enrolled := make(map[string]struct{}, len(subjectIDs))
	for _, id := range subjectIDs {
		enrolled[id] = struct{}{}
	}

	items := make([]models.CalendarItem, 0, len(entries))
	for _, item := range entries {
		if item.SubjectID != nil {
			if _, ok := enrolled[*item.SubjectID]; !ok {
				continue
			}
		}
		items = append(items, item)
	}

	events, err := s.events.ListApprovedBetween(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	for _, event := range events {
		if event.CourseID != nil {
			if user == nil || user.CourseID == nil || *user.CourseID != *event.CourseID {
				continue
			}
		}
		items = append(items, models.CalendarItem{
			ID:          event.ID,
			Source:      models.CalendarSourceEvent,
			Title:       event.Title,
			Description: event.Description,
			At:          event.StartsAt,
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].At.Before(items[j].At) })
	return items, nil
}

func (s *CalendarService) checkSubjectLink(ctx context.Context, principal access.Principal, subjectID *string) error {
	if subjectID == nil {
		return nil
	}
	ids, err := s.enrollments.SubjectIDsByUser(ctx, principal.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	for _, id := range ids {
		if id == *subjectID {
			return nil
		}
	}
	return appErrors.ErrNotEnrolled
}

func (s *CalendarService) loadOwnedEntry(ctx context.Context, principal access.Principal, entryID string) (*models.CalendarEntry, error) {
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar entry")
	}
	if !entry.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar entry not found")
	}
	if entry.UserID != principal.UserID {
		return nil, appErrors.ErrForbidden
	}
	return entry, nil
}
