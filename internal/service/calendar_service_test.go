package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/access"
	"github.com/unishare/unishare-api/internal/models"
	appErrors "github.com/unishare/unishare-api/pkg/errors"
)

type mockCalendarRepo struct {
	entries     map[string]models.CalendarEntry
	upcoming    []models.CalendarItem
	created     *models.CalendarEntry
	updated     *models.CalendarEntry
	deactivated []string
}

func (m *mockCalendarRepo) Create(ctx context.Context, entry *models.CalendarEntry) error {
	if entry.ID == "" {
		entry.ID = "new-entry"
	}
	m.created = entry
	return nil
}

func (m *mockCalendarRepo) FindByID(ctx context.Context, id string) (*models.CalendarEntry, error) {
	if e, ok := m.entries[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCalendarRepo) Update(ctx context.Context, entry *models.CalendarEntry) error {
	m.updated = entry
	return nil
}

func (m *mockCalendarRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func (m *mockCalendarRepo) ListUpcoming(ctx context.Context, userID string, from, to time.Time) ([]models.CalendarItem, error) {
	return m.upcoming, nil
}

type mockEventWindow struct {
	events []models.Event
}

func (m *mockEventWindow) ListApprovedBetween(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	return m.events, nil
}

func testCalendarFixtures() (*mockCalendarRepo, *mockEventWindow, *mockEnrollmentRepo, *mockUserReader) {
	repo := &mockCalendarRepo{entries: map[string]models.CalendarEntry{
		"ce1": {ID: "ce1", UserID: "u1", Type: models.CalendarEntryExam, Title: "Midterm", DueAt: time.Now().Add(48 * time.Hour), Active: true},
	}}
	events := &mockEventWindow{}
	enrollments := &mockEnrollmentRepo{subjectIDs: []string{"sub1"}}
	users := &mockUserReader{users: map[string]*models.User{
		"u1": {ID: "u1", CourseID: strPtr("c1"), Role: models.RoleStudent, Active: true},
	}}
	return repo, events, enrollments, users
}

func TestCalendarServiceCreateEntry(t *testing.T) {
	repo, events, enrollments, users := testCalendarFixtures()
	svc := NewCalendarService(repo, events, enrollments, users, validator.New(), zap.NewNop())

	entry, err := svc.CreateEntry(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent},
		CalendarEntryRequest{Type: models.CalendarEntryAssignment, Title: "Essay", DueAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "u1", entry.UserID)
}

func TestCalendarServiceCreateEntryUnenrolledSubject(t *testing.T) {
	repo, events, enrollments, users := testCalendarFixtures()
	svc := NewCalendarService(repo, events, enrollments, users, validator.New(), zap.NewNop())

	_, err := svc.CreateEntry(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent},
		CalendarEntryRequest{SubjectID: strPtr("sub9"), Type: models.CalendarEntryExam, Title: "Final", DueAt: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, appErrors.ErrNotEnrolled)
	assert.Nil(t, repo.created)
}

func TestCalendarServiceUpdateEntryNotOwner(t *testing.T) {
	repo, events, enrollments, users := testCalendarFixtures()
	svc := NewCalendarService(repo, events, enrollments, users, validator.New(), zap.NewNop())

	_, err := svc.UpdateEntry(context.Background(), access.Principal{UserID: "u2", Role: models.RoleStudent}, "ce1",
		CalendarEntryRequest{Type: models.CalendarEntryExam, Title: "Hijack", DueAt: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestCalendarServiceDeleteEntry(t *testing.T) {
	repo, events, enrollments, users := testCalendarFixtures()
	svc := NewCalendarService(repo, events, enrollments, users, validator.New(), zap.NewNop())

	err := svc.DeleteEntry(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent}, "ce1")
	require.NoError(t, err)
	assert.Contains(t, repo.deactivated, "ce1")

	err = svc.DeleteEntry(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent}, "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCalendarServiceUpcomingMergesAndSorts(t *testing.T) {
	repo, events, enrollments, users := testCalendarFixtures()
	now := time.Now().UTC()
	repo.upcoming = []models.CalendarItem{
		{ID: "ce1", Source: models.CalendarSourceEntry, Title: "Midterm", At: now.Add(48 * time.Hour)},
	}
	events.events = []models.Event{
		{ID: "ev1", Title: "Hackathon", StartsAt: now.Add(24 * time.Hour), Status: models.EventStatusApproved, Active: true},
	}
	svc := NewCalendarService(repo, events, enrollments, users, validator.New(), zap.NewNop())

	items, err := svc.Upcoming(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent}, now, now.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "ev1", items[0].ID)
	assert.Equal(t, "ce1", items[1].ID)
}

func TestCalendarServiceUpcomingFiltersStaleSubjectEntries(t *testing.T) {
	repo, events, enrollments, users := testCalendarFixtures()
	now := time.Now().UTC()
	repo.upcoming = []models.CalendarItem{
		{ID: "kept", Source: models.CalendarSourceEntry, Title: "Exam", SubjectID: strPtr("sub1"), At: now.Add(time.Hour)},
		{ID: "stale", Source: models.CalendarSourceEntry, Title: "Old exam", SubjectID: strPtr("dropped"), At: now.Add(2 * time.Hour)},
		{ID: "free", Source: models.CalendarSourceEntry, Title: "Dentist", At: now.Add(3 * time.Hour)},
	}
	svc := NewCalendarService(repo, events, enrollments, users, validator.New(), zap.NewNop())

	items, err := svc.Upcoming(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent}, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "kept", items[0].ID)
	assert.Equal(t, "free", items[1].ID)
}

func TestCalendarServiceUpcomingFiltersForeignCourseEvents(t *testing.T) {
	repo, events, enrollments, users := testCalendarFixtures()
	now := time.Now().UTC()
	events.events = []models.Event{
		{ID: "mine", Title: "Course talk", CourseID: strPtr("c1"), StartsAt: now.Add(time.Hour), Status: models.EventStatusApproved, Active: true},
		{ID: "foreign", Title: "Other course talk", CourseID: strPtr("c2"), StartsAt: now.Add(2 * time.Hour), Status: models.EventStatusApproved, Active: true},
		{ID: "campus", Title: "Campus wide", StartsAt: now.Add(3 * time.Hour), Status: models.EventStatusApproved, Active: true},
	}
	svc := NewCalendarService(repo, events, enrollments, users, validator.New(), zap.NewNop())

	items, err := svc.Upcoming(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent}, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "mine", items[0].ID)
	assert.Equal(t, "campus", items[1].ID)
}

func TestCalendarServiceUpcomingInvalidWindow(t *testing.T) {
	repo, events, enrollments, users := testCalendarFixtures()
	now := time.Now().UTC()
	svc := NewCalendarService(repo, events, enrollments, users, validator.New(), zap.NewNop())

	_, err := svc.Upcoming(context.Background(), access.Principal{UserID: "u1", Role: models.RoleStudent}, now, now)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
