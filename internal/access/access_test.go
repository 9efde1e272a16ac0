package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type stubEnrollments struct {
	enrolled bool
	err      error
}

func (s *stubEnrollments) Exists(_ context.Context, _, _ string) (bool, error) {
	return s.enrolled, s.err
}

type stubMemberships struct {
	member bool
	err    error
}

func (s *stubMemberships) HasActiveMembership(_ context.Context, _, _ string) (bool, error) {
	return s.member, s.err
}

func TestGuardSubjectContent(t *testing.T) {
	tests := []struct {
		name      string
		principal Principal
		enrolled  bool
		wantErr   error
	}{
		{
			name:      "enrolled student may read",
			principal: Principal{UserID: "u1", Role: models.RoleStudent},
			enrolled:  true,
		},
		{
			name:      "unenrolled student is denied",
			principal: Principal{UserID: "u1", Role: models.RoleStudent},
			wantErr:   appErrors.ErrNotEnrolled,
		},
		{
			name:      "unenrolled professor is denied",
			principal: Principal{UserID: "p1", Role: models.RoleProfessor},
			wantErr:   appErrors.ErrNotEnrolled,
		},
		{
			name:      "admin bypasses enrollment",
			principal: Principal{UserID: "a1", Role: models.RoleAdmin},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			guard := NewGuard(&stubEnrollments{enrolled: tc.enrolled}, &stubMemberships{})
			err := guard.CanAccess(context.Background(), tc.principal, ActionReadSubjectContent, Resource{SubjectID: "s1"})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestGuardGroupMessages(t *testing.T) {
	tests := []struct {
		name      string
		principal Principal
		member    bool
		action    Action
		wantErr   error
	}{
		{
			name:      "active member may send",
			principal: Principal{UserID: "u1", Role: models.RoleStudent},
			member:    true,
			action:    ActionWriteGroupMessage,
		},
		{
			name:      "non-member is denied",
			principal: Principal{UserID: "u2", Role: models.RoleStudent},
			action:    ActionReadGroupMessages,
			wantErr:   appErrors.ErrForbidden,
		},
		{
			name:      "non-member cannot start a call",
			principal: Principal{UserID: "u2", Role: models.RoleStudent},
			action:    ActionStartVideoCall,
			wantErr:   appErrors.ErrForbidden,
		},
		{
			name:      "admin bypasses membership",
			principal: Principal{UserID: "a1", Role: models.RoleAdmin},
			action:    ActionReadGroupMessages,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			guard := NewGuard(&stubEnrollments{}, &stubMemberships{member: tc.member})
			err := guard.CanAccess(context.Background(), tc.principal, tc.action, Resource{GroupID: "g1"})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestGuardAdministrativeActions(t *testing.T) {
	guard := NewGuard(&stubEnrollments{}, &stubMemberships{})
	ctx := context.Background()

	student := Principal{UserID: "u1", Role: models.RoleStudent}
	professor := Principal{UserID: "p1", Role: models.RoleProfessor}
	admin := Principal{UserID: "a1", Role: models.RoleAdmin}

	require.ErrorIs(t, guard.CanAccess(ctx, student, ActionModerateEvent, Resource{}), appErrors.ErrForbidden)
	require.ErrorIs(t, guard.CanAccess(ctx, professor, ActionModerateEvent, Resource{}), appErrors.ErrForbidden)
	require.NoError(t, guard.CanAccess(ctx, admin, ActionModerateEvent, Resource{}))

	require.ErrorIs(t, guard.CanAccess(ctx, student, ActionManageNews, Resource{}), appErrors.ErrForbidden)
	require.NoError(t, guard.CanAccess(ctx, professor, ActionManageNews, Resource{}))
	require.NoError(t, guard.CanAccess(ctx, admin, ActionManageCourses, Resource{}))

	require.ErrorIs(t, guard.CanAccess(ctx, professor, ActionManageUsers, Resource{}), appErrors.ErrForbidden)
	require.NoError(t, guard.CanAccess(ctx, admin, ActionManageUsers, Resource{}))
}

func TestGuardPendingEventVisibility(t *testing.T) {
	guard := NewGuard(&stubEnrollments{}, &stubMemberships{})
	ctx := context.Background()
	resource := Resource{OwnerID: "creator"}

	require.NoError(t, guard.CanAccess(ctx, Principal{UserID: "creator", Role: models.RoleStudent}, ActionViewPendingEvent, resource))
	require.NoError(t, guard.CanAccess(ctx, Principal{UserID: "a1", Role: models.RoleAdmin}, ActionViewPendingEvent, resource))
	require.ErrorIs(t, guard.CanAccess(ctx, Principal{UserID: "other", Role: models.RoleStudent}, ActionViewPendingEvent, resource), appErrors.ErrForbidden)
}

func TestGuardPropagatesReaderFailures(t *testing.T) {
	boom := errors.New("store down")
	guard := NewGuard(&stubEnrollments{err: boom}, &stubMemberships{err: boom})
	ctx := context.Background()
	principal := Principal{UserID: "u1", Role: models.RoleStudent}

	err := guard.CanAccess(ctx, principal, ActionWriteSubjectContent, Resource{SubjectID: "s1"})
	require.ErrorIs(t, err, boom)

	err = guard.CanAccess(ctx, principal, ActionWriteGroupMessage, Resource{GroupID: "g1"})
	require.ErrorIs(t, err, boom)
}

func TestGuardUnknownActionDenied(t *testing.T) {
	guard := NewGuard(&stubEnrollments{enrolled: true}, &stubMemberships{member: true})
	err := guard.CanAccess(context.Background(), Principal{UserID: "u1", Role: models.RoleStudent}, Action("bogus"), Resource{})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
