package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	SetActive(ctx context.Context, id string, active bool) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// UserService covers the admin user management surface.
type UserService struct {
	repo   userRepository
	guard  accessGuard
	audits *AuditService
	logger *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo userRepository, guard accessGuard, audits *AuditService, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, guard: guard, audits: audits, logger: logger}
}

// Get returns a user profile.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users matching the filter. Admin only.
func (s *UserService) List(ctx context.Context, principal access.Principal, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if err := s.guard.CanAccess(ctx, principal, access.ActionManageUsers, access.Resource{}); err != nil {
		return nil, nil, err
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Disable soft-deactivates an account and revokes its sessions. Admin only.
func (s *UserService) Disable(ctx context.Context, principal access.Principal, userID string) error {
	if err := s.guard.CanAccess(ctx, principal, access.ActionManageUsers, access.Resource{}); err != nil {
		return err
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, userID, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to disable user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions of disabled user",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	if s.audits != nil {
		s.audits.Record(models.AuditLog{
			UserID:     &principal.UserID,
			Action:     models.AuditActionUserDisable,
			Resource:   "users",
			ResourceID: &userID,
		})
	}

	s.logger.Info("user disabled",
		zap.String("user_id", userID),
		zap.String("admin_id", principal.UserID))
	return nil
}

// Enable reactivates an account. Admin only.
func (s *UserService) Enable(ctx context.Context, principal access.Principal, userID string) error {
	if err := s.guard.CanAccess(ctx, principal, access.ActionManageUsers, access.Resource{}); err != nil {
		return err
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, userID, true); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enable user")
	}
	return nil
}
