package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

const dashboardCacheTTL = 2 * time.Minute

type progressReader interface {
	Progress(ctx context.Context, userID string) (*models.Progress, error)
	ListByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
}

type newsFeedReader interface {
	ListActive(ctx context.Context, limit int) ([]models.NewsDetail, error)
}

// DashboardService assembles the home screen: academic progress, the
// user's enrollments and the latest announcements. The assembled view
// is cached per user for a short window.
type DashboardService struct {
	enrollments progressReader
	news        newsFeedReader
	cache       feedCache
	logger      *zap.Logger
}

// NewDashboardService constructs DashboardService. A nil cache disables
// caching.
func NewDashboardService(enrollments progressReader, news newsFeedReader, cache feedCache, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{enrollments: enrollments, news: news, cache: cache, logger: logger}
}

// Overview returns the user's dashboard.
func (s *DashboardService) Overview(ctx context.Context, userID string) (*models.Dashboard, error) {
	key := fmt.Sprintf("dashboard:%s", userID)
	if s.cache != nil {
		var cached models.Dashboard
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	progress, err := s.enrollments.Progress(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute progress")
	}
	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	news, err := s.news.ListActive(ctx, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list news")
	}

	dashboard := &models.Dashboard{
		Progress:    progress,
		Enrollments: enrollments,
		News:        news,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dashboard, dashboardCacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return dashboard, nil
}
