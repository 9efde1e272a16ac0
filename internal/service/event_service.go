package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

const eventFeedCacheKey = "events:feed"

type eventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	UpdateStatus(ctx context.Context, id string, status models.EventStatus) error
	ListApproved(ctx context.Context) ([]models.EventDetail, error)
	ListByStatus(ctx context.Context, status models.EventStatus) ([]models.EventDetail, error)
	AttendeeExists(ctx context.Context, eventID, userID string) (bool, error)
	CreateAttendee(ctx context.Context, attendee *models.Attendee) error
}

type feedCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SubmitEventRequest describes an event submission payload.
type SubmitEventRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
	CourseID    *string   `json:"course_id,omitempty"`
}

// RSVPRequest describes an attendance payload.
type RSVPRequest struct {
	EventID string                  `json:"-" validate:"required"`
	Status  models.AttendanceStatus `json:"status" validate:"required,oneof=INTERESTED CONFIRMED DECLINED"`
}

// EventService runs the event moderation workflow and the RSVP surface.
// The approved feed is cached in Redis and invalidated on every
// moderation decision.
type EventService struct {
	repo      eventRepository
	guard     accessGuard
	cache     feedCache
	cacheTTL  time.Duration
	useCache  bool
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs EventService. Passing a nil cache disables
// feed caching.
func NewEventService(repo eventRepository, guard accessGuard, cache feedCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &EventService{
		repo:      repo,
		guard:     guard,
		cache:     cache,
		cacheTTL:  cacheTTL,
		useCache:  cache != nil,
		validator: validate,
		logger:    logger,
	}
}

// Submit creates an event in the pending state. Events always enter
// moderation regardless of who submits them.
func (s *EventService) Submit(ctx context.Context, principal access.Principal, req SubmitEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event must end after it starts")
	}

	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CourseID:    req.CourseID,
		CreatorID:   principal.UserID,
		Status:      models.EventStatusPending,
		Active:      true,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit event")
	}

	s.logger.Info("event submitted",
		zap.String("event_id", event.ID),
		zap.String("creator_id", principal.UserID))
	return event, nil
}

// Approve transitions the event to approved. Deciding an already
// decided event overwrites the status rather than failing.
func (s *EventService) Approve(ctx context.Context, principal access.Principal, eventID string) (*models.Event, error) {
	return s.decide(ctx, principal, eventID, models.EventStatusApproved)
}

// Reject transitions the event to rejected.
func (s *EventService) Reject(ctx context.Context, principal access.Principal, eventID string) (*models.Event, error) {
	return s.decide(ctx, principal, eventID, models.EventStatusRejected)
}

func (s *EventService) decide(ctx context.Context, principal access.Principal, eventID string, status models.EventStatus) (*models.Event, error) {
	if err := s.guard.CanAccess(ctx, principal, access.ActionModerateEvent, access.Resource{}); err != nil {
		return nil, err
	}

	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if err := s.repo.UpdateStatus(ctx, eventID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}
	event.Status = status

	s.invalidateFeed(ctx)
	s.logger.Info("event moderated",
		zap.String("event_id", eventID),
		zap.String("status", string(status)),
		zap.String("moderator_id", principal.UserID))
	return event, nil
}

// RSVP records attendance for an approved event. A second RSVP for the
// same event is rejected; this surface does not update existing answers.
func (s *EventService) RSVP(ctx context.Context, principal access.Principal, req RSVPRequest) (*models.Attendee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	event, err := s.repo.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !event.Active || event.Status != models.EventStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}

	exists, err := s.repo.AttendeeExists(ctx, req.EventID, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}
	if exists {
		return nil, appErrors.ErrDuplicateRSVP
	}

	attendee := &models.Attendee{
		EventID:      req.EventID,
		UserID:       principal.UserID,
		Status:       req.Status,
		ResponseDate: time.Now().UTC(),
	}
	if err := s.repo.CreateAttendee(ctx, attendee); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateRSVP) {
			return nil, appErrors.ErrDuplicateRSVP
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return attendee, nil
}

// Feed returns approved, active events ordered by start time.
func (s *EventService) Feed(ctx context.Context) ([]models.EventDetail, error) {
	if s.useCache {
		var cached []models.EventDetail
		if err := s.cache.Get(ctx, eventFeedCacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("event feed cache read failed", zap.Error(err))
		}
	}

	events, err := s.repo.ListApproved(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	if s.useCache {
		if err := s.cache.Set(ctx, eventFeedCacheKey, events, s.cacheTTL); err != nil {
			s.logger.Warn("event feed cache write failed", zap.Error(err))
		}
	}
	return events, nil
}

// Get returns one event. Pending and rejected events are visible only
// to their creator and admins.
func (s *EventService) Get(ctx context.Context, principal access.Principal, eventID string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.Status != models.EventStatusApproved {
		if err := s.guard.CanAccess(ctx, principal, access.ActionViewPendingEvent, access.Resource{OwnerID: event.CreatorID}); err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
	}
	return event, nil
}

// ModerationQueue lists events awaiting a decision.
func (s *EventService) ModerationQueue(ctx context.Context, principal access.Principal) ([]models.EventDetail, error) {
	if err := s.guard.CanAccess(ctx, principal, access.ActionModerateEvent, access.Resource{}); err != nil {
		return nil, err
	}
	events, err := s.repo.ListByStatus(ctx, models.EventStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending events")
	}
	return events, nil
}

func (s *EventService) invalidateFeed(ctx context.Context) {
	if !s.useCache {
		return
	}
	if err := s.cache.Delete(ctx, eventFeedCacheKey); err != nil {
		s.logger.Warn("event feed cache invalidation failed", zap.Error(err))
	}
}
