package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unishare/unishare-api/internal/models"
	"github.com/unishare/unishare-api/pkg/jobs"
)

type auditQueue interface {
	Enqueue(job jobs.Job) error
}

type auditLogWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditService records audit events without blocking the request path.
// Entries are handed to a background queue and persisted by AuditWorker.
type AuditService struct {
	queue  auditQueue
	logger *zap.Logger
}

// NewAuditService constructs AuditService. A nil queue disables auditing.
func NewAuditService(queue auditQueue, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{queue: queue, logger: logger}
}

// Record enqueues an audit entry. Failures are logged, never surfaced;
// auditing must not fail the operation it describes.
func (s *AuditService) Record(entry models.AuditLog) {
	if s.queue == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	job := jobs.Job{ID: entry.ID, Type: entry.Action, Payload: entry}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue audit entry",
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

// AuditWorker persists queued audit entries.
type AuditWorker struct {
	repo   auditLogWriter
	logger *zap.Logger
}

// NewAuditWorker constructs AuditWorker.
func NewAuditWorker(repo auditLogWriter, logger *zap.Logger) *AuditWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditWorker{repo: repo, logger: logger}
}

// Handle writes one audit entry to storage.
func (w *AuditWorker) Handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	if err := w.repo.CreateAuditLog(ctx, &entry); err != nil {
		return fmt.Errorf("persist audit entry: %w", err)
	}
	return nil
}
