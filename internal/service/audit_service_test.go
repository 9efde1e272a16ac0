package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/models"
	"github.com/unishare/unishare-api/pkg/jobs"
)

type mockAuditQueue struct {
	jobs []jobs.Job
	err  error
}

func (m *mockAuditQueue) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type mockAuditWriter struct {
	written []*models.AuditLog
	err     error
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, log)
	return nil
}

func TestAuditServiceRecord(t *testing.T) {
	queue := &mockAuditQueue{}
	svc := NewAuditService(queue, zap.NewNop())

	userID := "u1"
	svc.Record(models.AuditLog{UserID: &userID, Action: models.AuditActionGroupJoin, Resource: "groups"})
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.AuditActionGroupJoin, queue.jobs[0].Type)
	assert.NotEmpty(t, queue.jobs[0].ID)
}

func TestAuditServiceRecordNilQueue(t *testing.T) {
	svc := NewAuditService(nil, zap.NewNop())
	svc.Record(models.AuditLog{Action: models.AuditActionEnroll})
}

func TestAuditServiceRecordQueueFull(t *testing.T) {
	queue := &mockAuditQueue{err: errors.New("queue full")}
	svc := NewAuditService(queue, zap.NewNop())

	// Enqueue failures must never propagate.
	svc.Record(models.AuditLog{Action: models.AuditActionEnroll})
}

func TestAuditWorkerHandle(t *testing.T) {
	writer := &mockAuditWriter{}
	worker := NewAuditWorker(writer, zap.NewNop())

	entry := models.AuditLog{ID: "a1", Action: models.AuditActionUserDisable, Resource: "users"}
	err := worker.Handle(context.Background(), jobs.Job{ID: "a1", Type: entry.Action, Payload: entry})
	require.NoError(t, err)
	require.Len(t, writer.written, 1)
	assert.Equal(t, models.AuditActionUserDisable, writer.written[0].Action)
}

func TestAuditWorkerHandleBadPayload(t *testing.T) {
	worker := NewAuditWorker(&mockAuditWriter{}, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "a1", Payload: "not an audit log"})
	require.Error(t, err)
}
