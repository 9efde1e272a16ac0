// Package access implements the policy decisions gating content reads
// and writes. It owns no storage; every decision is derived from the
// acting principal's role and the enrollment and membership state
// exposed by the repositories.
package access

import (
	"context"
	"fmt"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

// Action identifies an operation subject to a policy decision.
type Action string

const (
	ActionReadSubjectContent  Action = "subject_content:read"
	ActionWriteSubjectContent Action = "subject_content:write"
	ActionCreateGroup         Action = "group:create"
	ActionJoinGroup           Action = "group:join"
	ActionReadGroupMessages   Action = "group_messages:read"
	ActionWriteGroupMessage   Action = "group_messages:write"
	ActionStartVideoCall      Action = "video_call:start"
	ActionModerateEvent       Action = "event:moderate"
	ActionViewPendingEvent    Action = "event:view_pending"
	ActionManageNews          Action = "news:manage"
	ActionManageCourses       Action = "courses:manage"
	ActionManageUsers         Action = "users:manage"
)

// Principal is the acting user as resolved from the access token.
type Principal struct {
	UserID string
	Role   models.UserRole
}

// Resource names the target of an action. Only the fields relevant to
// the action need to be set.
type Resource struct {
	SubjectID string
	GroupID   string
	OwnerID   string
}

// EnrollmentReader reports whether a user holds an enrollment in a subject.
type EnrollmentReader interface {
	Exists(ctx context.Context, userID, subjectID string) (bool, error)
}

// MembershipReader reports whether a user holds an active group membership.
type MembershipReader interface {
	HasActiveMembership(ctx context.Context, groupID, userID string) (bool, error)
}

// Guard evaluates access decisions. It is safe for concurrent use.
type Guard struct {
	enrollments EnrollmentReader
	memberships MembershipReader
}

// NewGuard constructs a guard over the given state readers.
func NewGuard(enrollments EnrollmentReader, memberships MembershipReader) *Guard {
	return &Guard{enrollments: enrollments, memberships: memberships}
}

// CanAccess returns nil when the principal may perform the action on the
// resource. Denials are reported as ErrNotEnrolled for missing subject
// enrollment and ErrForbidden for everything else, so callers can decide
// between an explicit denial and a neutral empty listing.
func (g *Guard) CanAccess(ctx context.Context, principal Principal, action Action, resource Resource) error {
	switch action {
	case ActionReadSubjectContent, ActionWriteSubjectContent, ActionCreateGroup, ActionJoinGroup:
		return g.requireEnrollment(ctx, principal, resource.SubjectID)
	case ActionReadGroupMessages, ActionWriteGroupMessage, ActionStartVideoCall:
		return g.requireActiveMembership(ctx, principal, resource.GroupID)
	case ActionModerateEvent, ActionManageUsers:
		if principal.Role != models.RoleAdmin {
			return appErrors.ErrForbidden
		}
		return nil
	case ActionManageNews, ActionManageCourses:
		if principal.Role != models.RoleAdmin && principal.Role != models.RoleProfessor {
			return appErrors.ErrForbidden
		}
		return nil
	case ActionViewPendingEvent:
		if principal.Role == models.RoleAdmin || principal.UserID == resource.OwnerID {
			return nil
		}
		return appErrors.ErrForbidden
	default:
		return appErrors.ErrForbidden
	}
}

func (g *Guard) requireEnrollment(ctx context.Context, principal Principal, subjectID string) error {
	if principal.Role == models.RoleAdmin {
		return nil
	}
	if subjectID == "" {
		return appErrors.ErrForbidden
	}
	enrolled, err := g.enrollments.Exists(ctx, principal.UserID, subjectID)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return appErrors.ErrNotEnrolled
	}
	return nil
}

func (g *Guard) requireActiveMembership(ctx context.Context, principal Principal, groupID string) error {
	if principal.Role == models.RoleAdmin {
		return nil
	}
	if groupID == "" {
		return appErrors.ErrForbidden
	}
	member, err := g.memberships.HasActiveMembership(ctx, groupID, principal.UserID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return appErrors.ErrForbidden
	}
	return nil
}
