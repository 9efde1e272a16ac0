package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

func TestEventRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET status = $2 WHERE id = $1")).
		WithArgs("ev1", models.EventStatusApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "ev1", models.EventStatusApproved)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateStatusMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("UPDATE events SET status").
		WithArgs("ghost", models.EventStatusRejected).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "ghost", models.EventStatusRejected)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateAttendeeDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("INSERT INTO event_attendees").
		WillReturnError(&pq.Error{Code: "23505"})

	attendee := &models.Attendee{EventID: "ev1", UserID: "u1", Status: models.AttendanceConfirmed}
	err := repo.CreateAttendee(context.Background(), attendee)
	require.ErrorIs(t, err, appErrors.ErrDuplicateRSVP)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListApprovedBetween(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	from := time.Now().UTC()
	to := from.Add(72 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "title", "description", "location", "starts_at", "ends_at", "course_id", "creator_id", "status", "active", "created_at"}).
		AddRow("ev1", "Hackathon", nil, nil, from.Add(time.Hour), from.Add(6*time.Hour), nil, "u1", models.EventStatusApproved, true, from)
	mock.ExpectQuery("SELECT (.+) FROM events WHERE status = (.+) AND active AND starts_at").
		WithArgs(models.EventStatusApproved, from, to).
		WillReturnRows(rows)

	events, err := repo.ListApprovedBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Hackathon", events[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}
