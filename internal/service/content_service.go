package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type contentRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	FindPostByID(ctx context.Context, id string) (*models.Post, error)
	ListPostsBySubject(ctx context.Context, subjectID string, page, pageSize int) ([]models.PostDetail, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	DeactivatePost(ctx context.Context, id string) error
}

// CreatePostRequest describes a subject post payload.
type CreatePostRequest struct {
	SubjectID  string          `json:"subject_id" validate:"required"`
	Content    string          `json:"content" validate:"required,max=8000"`
	Type       models.PostType `json:"type" validate:"omitempty,oneof=TEXT DOCUMENT LINK"`
	LinkURL    *string         `json:"link_url,omitempty" validate:"omitempty,url"`
	Attachment *string         `json:"attachment,omitempty"`
}

// CreateCommentRequest describes a comment payload.
type CreateCommentRequest struct {
	PostID  string `json:"-" validate:"required"`
	Content string `json:"content" validate:"required,max=4000"`
}

// ContentService orchestrates subject-scoped posts and comments. Every
// read and write is gated on the caller's enrollment in the subject.
type ContentService struct {
	repo      contentRepository
	guard     accessGuard
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContentService constructs ContentService.
func NewContentService(repo contentRepository, guard accessGuard, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{repo: repo, guard: guard, validator: validate, logger: logger}
}

// CreatePost publishes a post under a subject.
func (s *ContentService) CreatePost(ctx context.Context, principal access.Principal, req CreatePostRequest) (*models.Post, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	if err := s.guard.CanAccess(ctx, principal, access.ActionWriteSubjectContent, access.Resource{SubjectID: req.SubjectID}); err != nil {
		return nil, err
	}

	postType := req.Type
	if postType == "" {
		postType = models.PostTypeText
	}
	post := &models.Post{
		SubjectID:  req.SubjectID,
		AuthorID:   principal.UserID,
		Content:    req.Content,
		Type:       postType,
		LinkURL:    req.LinkURL,
		Attachment: req.Attachment,
		Active:     true,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	return post, nil
}

// ListPosts returns the subject's posts with comments, newest first.
// The caller must be enrolled; handlers translate the denial into a
// neutral empty listing.
func (s *ContentService) ListPosts(ctx context.Context, principal access.Principal, subjectID string, page, pageSize int) ([]models.PostDetail, error) {
	if err := s.guard.CanAccess(ctx, principal, access.ActionReadSubjectContent, access.Resource{SubjectID: subjectID}); err != nil {
		return nil, err
	}
	posts, err := s.repo.ListPostsBySubject(ctx, subjectID, page, pageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return posts, nil
}

// CreateComment adds a comment to a post. The gate is the enrollment in
// the post's subject.
func (s *ContentService) CreateComment(ctx context.Context, principal access.Principal, req CreateCommentRequest) (*models.Comment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}

	post, err := s.loadActivePost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanAccess(ctx, principal, access.ActionWriteSubjectContent, access.Resource{SubjectID: post.SubjectID}); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: principal.UserID,
		Content:  req.Content,
		Active:   true,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return comment, nil
}

// DeletePost soft-deletes a post. Only the author or an admin may do so.
func (s *ContentService) DeletePost(ctx context.Context, principal access.Principal, postID string) error {
	post, err := s.loadActivePost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != principal.UserID && principal.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if err := s.repo.DeactivatePost(ctx, postID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete post")
	}
	s.logger.Info("post deleted",
		zap.String("post_id", postID),
		zap.String("user_id", principal.UserID))
	return nil
}

func (s *ContentService) loadActivePost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.repo.FindPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	if !post.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}
	return post, nil
}
