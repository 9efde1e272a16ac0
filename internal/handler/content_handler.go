package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/middleware"
	"github.com/unishare/unishare-api/internal/models"
	"github.com/unishare/unishare-api/internal/service"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
	"github.com/unishare/unishare-api/pkg/response"
)

type contentService interface {
	ListPosts(ctx context.Context, principal access.Principal, subjectID string, page, pageSize int) ([]models.PostDetail, error)
	CreatePost(ctx context.Context, principal access.Principal, req service.CreatePostRequest) (*models.Post, error)
	CreateComment(ctx context.Context, principal access.Principal, req service.CreateCommentRequest) (*models.Comment, error)
	DeletePost(ctx context.Context, principal access.Principal, postID string) error
}

// ContentHandler wires HTTP endpoints to the content service.
type ContentHandler struct {
	service contentService
}

// NewContentHandler creates a new handler.
func NewContentHandler(svc contentService) *ContentHandler {
	return &ContentHandler{service: svc}
}

// ListPosts godoc
// @Summary List posts of a subject
// @Description Callers not enrolled in the subject receive an empty listing.
// @Tags Content
// @Produce json
// @Param id path string true "Subject ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /subjects/{id}/posts [get]
func (h *ContentHandler) ListPosts(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	posts, err := h.service.ListPosts(c.Request.Context(), principal, c.Param("id"), page, pageSize)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotEnrolled) {
			response.JSON(c, http.StatusOK, []models.PostDetail{}, nil)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, nil)
}

// CreatePost godoc
// @Summary Publish a post under a subject
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.CreatePostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /subjects/{id}/posts [post]
func (h *ContentHandler) CreatePost(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	req.SubjectID = c.Param("id")

	post, err := h.service.CreatePost(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// CreateComment godoc
// @Summary Comment on a post
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body service.CreateCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (h *ContentHandler) CreateComment(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}
	req.PostID = c.Param("id")

	comment, err := h.service.CreateComment(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// DeletePost godoc
// @Summary Delete a post
// @Tags Content
// @Produce json
// @Param id path string true "Post ID"
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (h *ContentHandler) DeletePost(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeletePost(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
