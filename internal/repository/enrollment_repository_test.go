package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

func newTestEnrollment(userID, subjectID string) *models.Enrollment {
	return &models.Enrollment{UserID: userID, SubjectID: subjectID}
}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM subject_enrollments WHERE user_id = $1 AND subject_id = $2 LIMIT 1")).
		WithArgs("u1", "sub1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "u1", "sub1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM subject_enrollments").
		WithArgs("u1", "sub9").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.Exists(context.Background(), "u1", "sub9")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO subject_enrollments").
		WillReturnError(&pq.Error{Code: "23505"})

	enrollment := newTestEnrollment("u1", "sub1")
	err := repo.Create(context.Background(), enrollment)
	require.ErrorIs(t, err, appErrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO subject_enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := newTestEnrollment("u1", "sub1")
	err := repo.Create(context.Background(), enrollment)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.False(t, enrollment.EnrollmentDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_enrollments WHERE user_id = $1 AND subject_id = $2")).
		WithArgs("u1", "sub1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.Delete(context.Background(), "u1", "sub1")
	require.NoError(t, err)
	require.True(t, removed)

	mock.ExpectExec("DELETE FROM subject_enrollments").
		WithArgs("u1", "sub9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err = repo.Delete(context.Background(), "u1", "sub9")
	require.NoError(t, err)
	require.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	completedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE subject_enrollments SET completed = TRUE, grade = $2, completion_date = $3 WHERE id = $1")).
		WithArgs("e1", 17.5, completedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Complete(context.Background(), "e1", 17.5, completedAt)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryProgress(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"total", "completed", "average_grade", "completed_ects"}).
		AddRow(6, 4, 14.5, 24)
	mock.ExpectQuery("SELECT COUNT").WithArgs("u1").WillReturnRows(rows)

	progress, err := repo.Progress(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 6, progress.TotalSubjects)
	require.Equal(t, 4, progress.CompletedSubjects)
	require.Equal(t, 14.5, progress.AverageGrade)
	require.Equal(t, 24, progress.CompletedECTS)
	require.NoError(t, mock.ExpectationsWereMet())
}
