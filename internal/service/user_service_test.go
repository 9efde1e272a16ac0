package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type mockUserAdminRepo struct {
	users     map[string]*models.User
	activeSet map[string]bool
	revoked   []string
}

func (m *mockUserAdminRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserAdminRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var list []models.User
	for _, u := range m.users {
		list = append(list, *u)
	}
	return list, len(list), nil
}

func (m *mockUserAdminRepo) SetActive(ctx context.Context, id string, active bool) error {
	if m.activeSet == nil {
		m.activeSet = make(map[string]bool)
	}
	m.activeSet[id] = active
	return nil
}

func (m *mockUserAdminRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func testUserAdminFixtures() *mockUserAdminRepo {
	return &mockUserAdminRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "ana@uni.pt", Role: models.RoleStudent, Active: true},
	}}
}

func TestUserServiceDisable(t *testing.T) {
	repo := testUserAdminFixtures()
	queue := &mockAuditQueue{}
	audits := NewAuditService(queue, zap.NewNop())
	svc := NewUserService(repo, &mockGuard{}, audits, zap.NewNop())

	err := svc.Disable(context.Background(), access.Principal{UserID: "admin", Role: models.RoleAdmin}, "u1")
	require.NoError(t, err)
	assert.False(t, repo.activeSet["u1"])
	assert.Contains(t, repo.revoked, "u1")
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.AuditActionUserDisable, queue.jobs[0].Type)
}

func TestUserServiceDisableDenied(t *testing.T) {
	repo := testUserAdminFixtures()
	guard := &mockGuard{err: appErrors.ErrForbidden}
	svc := NewUserService(repo, guard, nil, zap.NewNop())

	err := svc.Disable(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent}, "u1")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Empty(t, repo.activeSet)
}

func TestUserServiceDisableMissing(t *testing.T) {
	repo := testUserAdminFixtures()
	svc := NewUserService(repo, &mockGuard{}, nil, zap.NewNop())

	err := svc.Disable(context.Background(), access.Principal{UserID: "admin", Role: models.RoleAdmin}, "ghost")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserServiceEnable(t *testing.T) {
	repo := testUserAdminFixtures()
	svc := NewUserService(repo, &mockGuard{}, nil, zap.NewNop())

	err := svc.Enable(context.Background(), access.Principal{UserID: "admin", Role: models.RoleAdmin}, "u1")
	require.NoError(t, err)
	assert.True(t, repo.activeSet["u1"])
}

func TestUserServiceList(t *testing.T) {
	repo := testUserAdminFixtures()
	svc := NewUserService(repo, &mockGuard{}, nil, zap.NewNop())

	users, pagination, err := svc.List(context.Background(), access.Principal{UserID: "admin", Role: models.RoleAdmin}, models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 1, pagination.TotalCount)
}
