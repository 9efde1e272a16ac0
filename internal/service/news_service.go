package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type newsRepository interface {
	Create(ctx context.Context, item *models.News) error
	ListActive(ctx context.Context, limit int) ([]models.NewsDetail, error)
	Deactivate(ctx context.Context, id string) error
}

// PublishNewsRequest describes an announcement payload.
type PublishNewsRequest struct {
	Title    string  `json:"title" validate:"required,max=200"`
	Content  string  `json:"content" validate:"required"`
	CourseID *string `json:"course_id,omitempty"`
	Featured bool    `json:"featured"`
}

// NewsService manages campus announcements. Publishing is restricted to
// admins and professors; reading is open to any authenticated user.
type NewsService struct {
	repo      newsRepository
	guard     accessGuard
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNewsService constructs NewsService.
func NewNewsService(repo newsRepository, guard accessGuard, validate *validator.Validate, logger *zap.Logger) *NewsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsService{repo: repo, guard: guard, validator: validate, logger: logger}
}

// Publish creates an announcement.
func (s *NewsService) Publish(ctx context.Context, principal access.Principal, req PublishNewsRequest) (*models.News, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid news payload")
	}
	if err := s.guard.CanAccess(ctx, principal, access.ActionManageNews, access.Resource{}); err != nil {
		return nil, err
	}

	item := &models.News{
		Title:       req.Title,
		Content:     req.Content,
		CourseID:    req.CourseID,
		AuthorID:    principal.UserID,
		PublishedAt: time.Now().UTC(),
		Featured:    req.Featured,
		Active:      true,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish news")
	}

	s.logger.Info("news published",
		zap.String("news_id", item.ID),
		zap.String("author_id", principal.UserID))
	return item, nil
}

// List returns active announcements, featured first.
func (s *NewsService) List(ctx context.Context, limit int) ([]models.NewsDetail, error) {
	items, err := s.repo.ListActive(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list news")
	}
	return items, nil
}

// Unpublish soft-deletes an announcement.
func (s *NewsService) Unpublish(ctx context.Context, principal access.Principal, newsID string) error {
	if err := s.guard.CanAccess(ctx, principal, access.ActionManageNews, access.Resource{}); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, newsID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unpublish news")
	}
	return nil
}
