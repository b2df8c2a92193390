// Package repository contains the sqlite implementations of the persistence
// ports. All statements run through the executor resolved from the context,
// so repositories transparently join the caller's transaction.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	"github.com/jamiehall/expenseflow/internal/infrastructure/persistence/sqlite"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sqlite.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `
	id, company_id, submitter_id, category, description,
	original_currency, original_amount,
	converted_amount, conversion_rate, rate_timestamp,
	status, submitted_at,
	applied_rule_id, applied_rule_type, applied_threshold_percent, applied_specific_approver,
	created_at, updated_at`

// Create inserts a new DRAFT expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL, ?, NULL, NULL, NULL, NULL, NULL, ?, ?)
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		expense.ID,
		expense.CompanyID,
		expense.SubmitterID,
		expense.Category,
		expense.Description,
		expense.OriginalCurrency,
		expense.OriginalAmount.String(),
		expense.Status,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.String("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID, or nil when it does not exist
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`
	row := r.db.Executor(ctx).QueryRowContext(ctx, query, id)
	expense, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// ListByCompany returns a page of the company's expenses, newest first
func (r *ExpenseRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + `
		FROM expenses WHERE company_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

// UpdateDraft persists draft-time edits; it only touches DRAFT rows
func (r *ExpenseRepository) UpdateDraft(ctx context.Context, expense *entity.Expense) error {
	query := `
		UPDATE expenses
		SET category = ?, description = ?, original_currency = ?, original_amount = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		expense.Category,
		expense.Description,
		expense.OriginalCurrency,
		expense.OriginalAmount.String(),
		time.Now(),
		expense.ID,
		entity.ExpenseStatusDraft,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	return nil
}

// MarkSubmitted freezes the conversion and rule snapshot and moves the row to
// WAITING_APPROVAL, guarded on the row still being DRAFT. The guard makes the
// frozen fields write-once: a second submission attempt affects zero rows.
func (r *ExpenseRepository) MarkSubmitted(ctx context.Context, expense *entity.Expense) (bool, error) {
	query := `
		UPDATE expenses
		SET status = ?,
			converted_amount = ?, conversion_rate = ?, rate_timestamp = ?,
			submitted_at = ?,
			applied_rule_id = ?, applied_rule_type = ?, applied_threshold_percent = ?, applied_specific_approver = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entity.ExpenseStatusWaitingApproval,
		decimalPtrString(expense.ConvertedAmount),
		decimalPtrString(expense.ConversionRate),
		expense.RateTimestamp,
		expense.SubmittedAt,
		expense.AppliedRuleID,
		ruleTypePtrString(expense.AppliedRuleType),
		expense.AppliedThresholdPct,
		expense.AppliedSpecificApprover,
		time.Now(),
		expense.ID,
		entity.ExpenseStatusDraft,
	)
	if err != nil {
		r.logger.Error("Failed to mark expense submitted", zap.String("id", expense.ID), zap.Error(err))
		return false, fmt.Errorf("failed to mark expense submitted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// CloseIfWaiting writes a terminal status guarded on the row still being
// WAITING_APPROVAL, so a terminal status is never overwritten.
func (r *ExpenseRepository) CloseIfWaiting(ctx context.Context, id string, status entity.ExpenseStatus, closedAt time.Time) (bool, error) {
	query := `
		UPDATE expenses
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		status,
		closedAt,
		id,
		entity.ExpenseStatusWaitingApproval,
	)
	if err != nil {
		r.logger.Error("Failed to close expense", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to close expense: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var (
		expense          entity.Expense
		originalAmount   string
		convertedAmount  sql.NullString
		conversionRate   sql.NullString
		rateTimestamp    sql.NullTime
		submittedAt      sql.NullTime
		appliedRuleID    sql.NullString
		appliedRuleType  sql.NullString
		appliedThreshold sql.NullInt64
		appliedApprover  sql.NullString
	)

	err := row.Scan(
		&expense.ID,
		&expense.CompanyID,
		&expense.SubmitterID,
		&expense.Category,
		&expense.Description,
		&expense.OriginalCurrency,
		&originalAmount,
		&convertedAmount,
		&conversionRate,
		&rateTimestamp,
		&expense.Status,
		&submittedAt,
		&appliedRuleID,
		&appliedRuleType,
		&appliedThreshold,
		&appliedApprover,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	expense.OriginalAmount, err = decimal.NewFromString(originalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid original_amount %q: %w", originalAmount, err)
	}
	if expense.ConvertedAmount, err = nullDecimal(convertedAmount); err != nil {
		return nil, err
	}
	if expense.ConversionRate, err = nullDecimal(conversionRate); err != nil {
		return nil, err
	}
	if rateTimestamp.Valid {
		expense.RateTimestamp = &rateTimestamp.Time
	}
	if submittedAt.Valid {
		expense.SubmittedAt = &submittedAt.Time
	}
	if appliedRuleID.Valid {
		expense.AppliedRuleID = &appliedRuleID.String
	}
	if appliedRuleType.Valid {
		ruleType := entity.RuleType(appliedRuleType.String)
		expense.AppliedRuleType = &ruleType
	}
	if appliedThreshold.Valid {
		pct := int(appliedThreshold.Int64)
		expense.AppliedThresholdPct = &pct
	}
	if appliedApprover.Valid {
		expense.AppliedSpecificApprover = &appliedApprover.String
	}
	return &expense, nil
}

func nullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", v.String, err)
	}
	return &d, nil
}

func decimalPtrString(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func ruleTypePtrString(t *entity.RuleType) interface{} {
	if t == nil {
		return nil
	}
	return string(*t)
}
