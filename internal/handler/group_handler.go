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

type groupService interface {
	Create(ctx context.Context, principal access.Principal, req service.CreateGroupRequest) (*models.StudyGroup, error)
	ListBySubject(ctx context.Context, principal access.Principal, subjectID string) ([]models.StudyGroupDetail, error)
	Join(ctx context.Context, principal access.Principal, groupID string) (*models.Membership, error)
	Leave(ctx context.Context, principal access.Principal, groupID string) error
	AddExternalMember(ctx context.Context, principal access.Principal, groupID, userID string) (*models.Membership, error)
	ListMembers(ctx context.Context, principal access.Principal, groupID string) ([]models.MembershipDetail, error)
	ListMessages(ctx context.Context, principal access.Principal, groupID string, limit int) ([]models.MessageDetail, error)
	SendMessage(ctx context.Context, principal access.Principal, groupID string, req service.SendMessageRequest) (*models.Message, error)
	StartVideoCall(ctx context.Context, principal access.Principal, groupID string) (*models.VideoCall, error)
	MyGroups(ctx context.Context, userID string) ([]models.StudyGroupDetail, error)
}

// GroupHandler wires HTTP endpoints to the group service.
type GroupHandler struct {
	service groupService
}

// NewGroupHandler creates a new handler.
func NewGroupHandler(svc groupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// Create godoc
// @Summary Create a study group under a subject
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /subjects/{id}/groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}
	req.SubjectID = c.Param("id")

	group, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// ListBySubject godoc
// @Summary List study groups of a subject
// @Description Callers not enrolled in the subject receive an empty listing.
// @Tags Groups
// @Produce json
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /subjects/{id}/groups [get]
func (h *GroupHandler) ListBySubject(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	groups, err := h.service.ListBySubject(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		if errors.Is(err, appErrors.ErrNotEnrolled) {
			response.JSON(c, http.StatusOK, []models.StudyGroupDetail{}, nil)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Join godoc
// @Summary Join a study group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id}/join [post]
func (h *GroupHandler) Join(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	membership, err := h.service.Join(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, membership, nil)
}

// Leave godoc
// @Summary Leave a study group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /groups/{id}/leave [post]
func (h *GroupHandler) Leave(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Leave(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type addMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AddMember godoc
// @Summary Invite a user into the group
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body addMemberRequest true "Member payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid member payload"))
		return
	}

	membership, err := h.service.AddExternalMember(c.Request.Context(), principal, c.Param("id"), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, membership)
}

// ListMembers godoc
// @Summary List group members
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id}/members [get]
func (h *GroupHandler) ListMembers(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// ListMessages godoc
// @Summary List group messages in chronological order
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Param limit query int false "Message limit"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id}/messages [get]
func (h *GroupHandler) ListMessages(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	messages, err := h.service.ListMessages(c.Request.Context(), principal, c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// SendMessage godoc
// @Summary Send a message into the group chat
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id}/messages [post]
func (h *GroupHandler) SendMessage(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	message, err := h.service.SendMessage(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, message)
}

// StartCall godoc
// @Summary Start a video call in the group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /groups/{id}/calls [post]
func (h *GroupHandler) StartCall(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	call, err := h.service.StartVideoCall(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, call)
}

// MyGroups godoc
// @Summary List my study groups
// @Tags Groups
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/groups [get]
func (h *GroupHandler) MyGroups(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	groups, err := h.service.MyGroups(c.Request.Context(), principal.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}
