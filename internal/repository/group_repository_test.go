package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

func groupRows(id string, maxMembers int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "subject_id", "creator_id", "max_members", "active", "created_at"}).
		AddRow(id, "Study crew", nil, "sub1", "u1", maxMembers, true, time.Now())
}

func membershipColumns() []string {
	return []string{"id", "group_id", "user_id", "role", "active", "joined_at"}
}

func TestGroupRepositoryCreateWithModerator(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO study_groups").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO study_group_members").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	group := &models.StudyGroup{Name: "Study crew", SubjectID: "sub1", CreatorID: "u1", MaxMembers: 5}
	err := repo.CreateWithModerator(context.Background(), group)
	require.NoError(t, err)
	require.NotEmpty(t, group.ID)
	require.True(t, group.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryJoinNewMember(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM study_groups WHERE id = (.+) FOR UPDATE").
		WithArgs("g1").
		WillReturnRows(groupRows("g1", 5))
	mock.ExpectQuery("SELECT (.+) FROM study_group_members WHERE group_id = (.+) AND user_id").
		WithArgs("g1", "u2").
		WillReturnRows(sqlmock.NewRows(membershipColumns()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM study_group_members WHERE group_id = $1 AND active")).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO study_group_members").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	membership, err := repo.Join(context.Background(), "g1", "u2")
	require.NoError(t, err)
	require.Equal(t, models.GroupRoleMember, membership.Role)
	require.True(t, membership.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryJoinFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM study_groups WHERE id = (.+) FOR UPDATE").
		WithArgs("g1").
		WillReturnRows(groupRows("g1", 2))
	mock.ExpectQuery("SELECT (.+) FROM study_group_members WHERE group_id = (.+) AND user_id").
		WithArgs("g1", "u2").
		WillReturnRows(sqlmock.NewRows(membershipColumns()))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	_, err := repo.Join(context.Background(), "g1", "u2")
	require.ErrorIs(t, err, appErrors.ErrGroupFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryJoinAlreadyActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	joined := time.Now().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM study_groups WHERE id = (.+) FOR UPDATE").
		WithArgs("g1").
		WillReturnRows(groupRows("g1", 5))
	mock.ExpectQuery("SELECT (.+) FROM study_group_members WHERE group_id = (.+) AND user_id").
		WithArgs("g1", "u2").
		WillReturnRows(sqlmock.NewRows(membershipColumns()).
			AddRow("m1", "g1", "u2", models.GroupRoleMember, true, joined))
	mock.ExpectCommit()

	membership, err := repo.Join(context.Background(), "g1", "u2")
	require.NoError(t, err)
	require.Equal(t, "m1", membership.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryJoinReactivates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	joined := time.Now().Add(-48 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM study_groups WHERE id = (.+) FOR UPDATE").
		WithArgs("g1").
		WillReturnRows(groupRows("g1", 5))
	mock.ExpectQuery("SELECT (.+) FROM study_group_members WHERE group_id = (.+) AND user_id").
		WithArgs("g1", "u2").
		WillReturnRows(sqlmock.NewRows(membershipColumns()).
			AddRow("m1", "g1", "u2", models.GroupRoleMember, false, joined))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE study_group_members SET active = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	membership, err := repo.Join(context.Background(), "g1", "u2")
	require.NoError(t, err)
	require.Equal(t, "m1", membership.ID)
	require.True(t, membership.Active)
	require.True(t, membership.JoinedAt.After(joined))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryJoinRaceDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM study_groups WHERE id = (.+) FOR UPDATE").
		WithArgs("g1").
		WillReturnRows(groupRows("g1", 5))
	mock.ExpectQuery("SELECT (.+) FROM study_group_members WHERE group_id = (.+) AND user_id").
		WithArgs("g1", "u2").
		WillReturnRows(sqlmock.NewRows(membershipColumns()))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO study_group_members").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Join(context.Background(), "g1", "u2")
	require.ErrorIs(t, err, appErrors.ErrDuplicateMember)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectExec("UPDATE study_group_members SET active = FALSE").
		WithArgs("g1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	left, err := repo.Deactivate(context.Background(), "g1", "u2")
	require.NoError(t, err)
	require.True(t, left)

	mock.ExpectExec("UPDATE study_group_members SET active = FALSE").
		WithArgs("g1", "stranger").
		WillReturnResult(sqlmock.NewResult(0, 0))

	left, err = repo.Deactivate(context.Background(), "g1", "stranger")
	require.NoError(t, err)
	require.False(t, left)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryHasAnyMembership(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectQuery("SELECT 1 FROM study_group_members WHERE group_id = (.+) AND user_id = (.+) LIMIT 1").
		WithArgs("g1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.HasAnyMembership(context.Background(), "g1", "u2")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryInsertMemberDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectExec("INSERT INTO study_group_members").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.InsertMember(context.Background(), &models.Membership{GroupID: "g1", UserID: "u2", Role: models.GroupRoleMember, Active: true})
	require.ErrorIs(t, err, appErrors.ErrDuplicateMember)
	require.NoError(t, mock.ExpectationsWereMet())
}
