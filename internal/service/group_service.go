package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type groupRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudyGroup, error)
	CreateWithModerator(ctx context.Context, group *models.StudyGroup) error
	Join(ctx context.Context, groupID, userID string) (*models.Membership, error)
	Deactivate(ctx context.Context, groupID, userID string) (bool, error)
	HasActiveMembership(ctx context.Context, groupID, userID string) (bool, error)
	HasAnyMembership(ctx context.Context, groupID, userID string) (bool, error)
	InsertMember(ctx context.Context, membership *models.Membership) error
	ListMembers(ctx context.Context, groupID string) ([]models.MembershipDetail, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.StudyGroupDetail, error)
	ListByUser(ctx context.Context, userID string) ([]models.StudyGroupDetail, error)
}

type messageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByGroup(ctx context.Context, groupID string, limit int) ([]models.MessageDetail, error)
	CreateVideoCall(ctx context.Context, call *models.VideoCall) error
}

type accessGuard interface {
	CanAccess(ctx context.Context, principal access.Principal, action access.Action, resource access.Resource) error
}

// CreateGroupRequest describes a study group creation payload.
type CreateGroupRequest struct {
	SubjectID   string  `json:"subject_id" validate:"required"`
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty"`
	MaxMembers  int     `json:"max_members" validate:"omitempty,min=2,max=200"`
}

// SendMessageRequest describes a group message payload.
type SendMessageRequest struct {
	Content string             `json:"content" validate:"required,max=4000"`
	Type    models.MessageType `json:"type" validate:"omitempty,oneof=TEXT FILE"`
}

// GroupService orchestrates study group membership and group-scoped
// content. Capacity and membership uniqueness are enforced inside the
// repository transaction; this layer owns the policy checks around them.
type GroupService struct {
	repo            groupRepository
	messages        messageRepository
	guard           accessGuard
	users           userReader
	defaultCapacity int
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewGroupService constructs GroupService.
func NewGroupService(repo groupRepository, messages messageRepository, guard accessGuard, users userReader, defaultCapacity int, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCapacity <= 0 {
		defaultCapacity = 20
	}
	return &GroupService{
		repo:            repo,
		messages:        messages,
		guard:           guard,
		users:           users,
		defaultCapacity: defaultCapacity,
		validator:       validate,
		logger:          logger,
	}
}

// Create opens a study group under a subject. The creator must be
// enrolled and becomes the group's moderator in the same transaction
// that creates the group.
func (s *GroupService) Create(ctx context.Context, principal access.Principal, req CreateGroupRequest) (*models.StudyGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if err := s.guard.CanAccess(ctx, principal, access.ActionCreateGroup, access.Resource{SubjectID: req.SubjectID}); err != nil {
		return nil, err
	}

	capacity := req.MaxMembers
	if capacity <= 0 {
		capacity = s.defaultCapacity
	}

	group := &models.StudyGroup{
		Name:        req.Name,
		Description: req.Description,
		SubjectID:   req.SubjectID,
		CreatorID:   principal.UserID,
		MaxMembers:  capacity,
		Active:      true,
	}
	if err := s.repo.CreateWithModerator(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create study group")
	}

	s.logger.Info("study group created",
		zap.String("group_id", group.ID),
		zap.String("subject_id", group.SubjectID),
		zap.String("creator_id", principal.UserID))
	return group, nil
}

// Join adds the user to the group. Rejoining after leaving reactivates
// the old membership row; joining while already active is a no-op.
func (s *GroupService) Join(ctx context.Context, principal access.Principal, groupID string) (*models.Membership, error) {
	group, err := s.loadActiveGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CanAccess(ctx, principal, access.ActionJoinGroup, access.Resource{SubjectID: group.SubjectID}); err != nil {
		return nil, err
	}

	membership, err := s.repo.Join(ctx, groupID, principal.UserID)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrGroupFull.Code || appErr.Code == appErrors.ErrDuplicateMember.Code {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join group")
	}

	s.logger.Info("user joined group",
		zap.String("group_id", groupID),
		zap.String("user_id", principal.UserID))
	return membership, nil
}

// Leave deactivates the caller's membership. Leaving a group the user
// never joined is a no-op. A moderator leaving does not promote anyone.
func (s *GroupService) Leave(ctx context.Context, principal access.Principal, groupID string) error {
	left, err := s.repo.Deactivate(ctx, groupID, principal.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave group")
	}
	if left {
		s.logger.Info("user left group",
			zap.String("group_id", groupID),
			zap.String("user_id", principal.UserID))
	}
	return nil
}

// AddExternalMember lets an active member invite a user who is not
// subject to the enrollment gate, such as a professor. Any prior
// membership row, active or not, rejects the invite.
func (s *GroupService) AddExternalMember(ctx context.Context, principal access.Principal, groupID, targetUserID string) (*models.Membership, error) {
	if _, err := s.loadActiveGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if err := s.guard.CanAccess(ctx, principal, access.ActionWriteGroupMessage, access.Resource{GroupID: groupID}); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, targetUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	exists, err := s.repo.HasAnyMembership(ctx, groupID, targetUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if exists {
		return nil, appErrors.ErrDuplicateMember
	}

	membership := &models.Membership{
		GroupID:  groupID,
		UserID:   targetUserID,
		Role:     models.GroupRoleMember,
		Active:   true,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertMember(ctx, membership); err != nil {
		if errors.Is(err, appErrors.ErrDuplicateMember) {
			return nil, appErrors.ErrDuplicateMember
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}

	s.logger.Info("external member added",
		zap.String("group_id", groupID),
		zap.String("target_user_id", targetUserID),
		zap.String("requester_id", principal.UserID))
	return membership, nil
}

// SendMessage posts a message into the group chat. Only active members
// may write.
func (s *GroupService) SendMessage(ctx context.Context, principal access.Principal, groupID string, req SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if err := s.guard.CanAccess(ctx, principal, access.ActionWriteGroupMessage, access.Resource{GroupID: groupID}); err != nil {
		return nil, err
	}

	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	message := &models.Message{
		GroupID:  groupID,
		AuthorID: principal.UserID,
		Content:  req.Content,
		Type:     msgType,
		Active:   true,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	return message, nil
}

// ListMessages returns the group chat in chronological order. Only
// active members may read.
func (s *GroupService) ListMessages(ctx context.Context, principal access.Principal, groupID string, limit int) ([]models.MessageDetail, error) {
	if err := s.guard.CanAccess(ctx, principal, access.ActionReadGroupMessages, access.Resource{GroupID: groupID}); err != nil {
		return nil, err
	}
	messages, err := s.messages.ListByGroup(ctx, groupID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, nil
}

// StartVideoCall opens a call session for the group and announces it in
// the chat.
func (s *GroupService) StartVideoCall(ctx context.Context, principal access.Principal, groupID string) (*models.VideoCall, error) {
	if err := s.guard.CanAccess(ctx, principal, access.ActionStartVideoCall, access.Resource{GroupID: groupID}); err != nil {
		return nil, err
	}

	call := &models.VideoCall{
		GroupID:     groupID,
		InitiatorID: principal.UserID,
		SessionLink: fmt.Sprintf("https://meet.unishare.app/%s", uuid.NewString()),
		StartedAt:   time.Now().UTC(),
		Active:      true,
	}
	if err := s.messages.CreateVideoCall(ctx, call); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start video call")
	}

	announcement := &models.Message{
		GroupID:  groupID,
		AuthorID: principal.UserID,
		Content:  call.SessionLink,
		Type:     models.MessageTypeSystem,
		Active:   true,
	}
	if err := s.messages.Create(ctx, announcement); err != nil {
		s.logger.Warn("failed to announce video call",
			zap.String("group_id", groupID),
			zap.Error(err))
	}
	return call, nil
}

// ListMembers returns the group roster. Only active members may read it.
func (s *GroupService) ListMembers(ctx context.Context, principal access.Principal, groupID string) ([]models.MembershipDetail, error) {
	if err := s.guard.CanAccess(ctx, principal, access.ActionReadGroupMessages, access.Resource{GroupID: groupID}); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return members, nil
}

// ListBySubject returns the subject's groups. The caller must be
// enrolled; handlers translate the denial into a neutral empty listing.
func (s *GroupService) ListBySubject(ctx context.Context, principal access.Principal, subjectID string) ([]models.StudyGroupDetail, error) {
	if err := s.guard.CanAccess(ctx, principal, access.ActionReadSubjectContent, access.Resource{SubjectID: subjectID}); err != nil {
		return nil, err
	}
	groups, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// MyGroups returns groups where the user holds an active membership.
func (s *GroupService) MyGroups(ctx context.Context, userID string) ([]models.StudyGroupDetail, error) {
	groups, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

func (s *GroupService) loadActiveGroup(ctx context.Context, groupID string) (*models.StudyGroup, error) {
	group, err := s.repo.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if !group.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "study group not found")
	}
	return group, nil
}
