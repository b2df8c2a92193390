package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	"github.com/jamiehall/expenseflow/internal/infrastructure/persistence/sqlite"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *sqlite.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

const stepColumns = `
	id, expense_id, approver_id, sequence_index, status,
	action_by, action_at, comments, created_at, updated_at`

// CreateBatch inserts the full step set for a submission. The unique index
// on (expense_id, approver_id) rejects duplicate approvers.
func (r *StepRepository) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	query := `
		INSERT INTO approval_steps (` + stepColumns + `)
		VALUES (?, ?, ?, ?, ?, NULL, NULL, NULL, ?, ?)
	`
	exec := r.db.Executor(ctx)
	for _, step := range steps {
		_, err := exec.ExecContext(ctx, query,
			step.ID,
			step.ExpenseID,
			step.ApproverID,
			step.SequenceIndex,
			step.Status,
			step.CreatedAt,
			step.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create step",
				zap.String("id", step.ID),
				zap.String("expense_id", step.ExpenseID),
				zap.Error(err))
			return fmt.Errorf("failed to create step: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a step by ID, or nil when it does not exist
func (r *StepRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE id = ?`
	step, err := scanStep(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %w", err)
	}
	return step, nil
}

// ListByExpense returns the full step snapshot for an expense, ordered by
// sequence index then creation
func (r *StepRepository) ListByExpense(ctx context.Context, expenseID string) ([]*entity.ApprovalStep, error) {
	query := `SELECT ` + stepColumns + ` FROM approval_steps WHERE expense_id = ? ORDER BY sequence_index ASC, created_at ASC`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.ApprovalStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// DecideIfPending performs the conditional PENDING -> decision update. The
// status guard in the WHERE clause is the at-most-once primitive: under a
// race on the same step exactly one update affects a row, the loser affects
// zero and reports false.
func (r *StepRepository) DecideIfPending(ctx context.Context, id string, status entity.StepStatus, actorID string, actionAt time.Time, comments *string) (bool, error) {
	query := `
		UPDATE approval_steps
		SET status = ?, action_by = ?, action_at = ?, comments = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		status,
		actorID,
		actionAt,
		comments,
		actionAt,
		id,
		entity.StepStatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to decide step", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to decide step: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func scanStep(row rowScanner) (*entity.ApprovalStep, error) {
	var (
		step     entity.ApprovalStep
		actionBy sql.NullString
		actionAt sql.NullTime
		comments sql.NullString
	)

	err := row.Scan(
		&step.ID,
		&step.ExpenseID,
		&step.ApproverID,
		&step.SequenceIndex,
		&step.Status,
		&actionBy,
		&actionAt,
		&comments,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if actionBy.Valid {
		step.ActionBy = &actionBy.String
	}
	if actionAt.Valid {
		step.ActionAt = &actionAt.Time
	}
	if comments.Valid {
		step.Comments = &comments.String
	}
	return &step, nil
}
