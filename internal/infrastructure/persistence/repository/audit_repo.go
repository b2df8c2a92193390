package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	"github.com/jamiehall/expenseflow/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sqlite.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new audit event
func (r *AuditRepository) Create(ctx context.Context, event *entity.AuditEvent) error {
	query := `
		INSERT INTO audit_logs (id, entity, entity_id, action, actor, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		event.ID,
		event.Entity,
		event.EntityID,
		event.Action,
		event.Actor,
		event.Snapshot,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create audit event",
			zap.String("entity_id", event.EntityID),
			zap.String("action", event.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

// ListByEntity returns the recorded events for one entity, oldest first
func (r *AuditRepository) ListByEntity(ctx context.Context, entityName, entityID string) ([]*entity.AuditEvent, error) {
	query := `
		SELECT id, entity, entity_id, action, actor, snapshot, created_at
		FROM audit_logs
		WHERE entity = ? AND entity_id = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, entityName, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*entity.AuditEvent
	for rows.Next() {
		var event entity.AuditEvent
		if err := rows.Scan(
			&event.ID,
			&event.Entity,
			&event.EntityID,
			&event.Action,
			&event.Actor,
			&event.Snapshot,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
