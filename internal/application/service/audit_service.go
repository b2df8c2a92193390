package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

// AuditService persists audit events and serves them back for inspection. It
// implements port.AuditSink; callers treat Record as fire-and-forget and
// swallow its error.
type AuditService interface {
	port.AuditSink
	History(ctx context.Context, entityName, entityID string) ([]*entity.AuditEvent, error)
}

type auditServiceImpl struct {
	repo   port.AuditRepository
	logger Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo port.AuditRepository, logger Logger) AuditService {
	return &auditServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

// Record persists one audit event. The write intentionally runs outside any
// caller transaction so a sink failure cannot roll back the workflow.
func (s *auditServiceImpl) Record(ctx context.Context, event *entity.AuditEvent) error {
	if event.ID == "" {
		event.ID = newEventID()
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

// History returns the recorded events for one entity, oldest first.
func (s *auditServiceImpl) History(ctx context.Context, entityName, entityID string) ([]*entity.AuditEvent, error) {
	events, err := s.repo.ListByEntity(ctx, entityName, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

func newEventID() string {
	return uuid.NewString()
}
