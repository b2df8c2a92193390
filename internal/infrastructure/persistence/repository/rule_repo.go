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

// RuleRepository implements port.RuleRepository
type RuleRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sqlite.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

const ruleColumns = `
	id, company_id, name, rule_type, threshold_percent, specific_approver_id,
	applies_to_category, min_amount, max_amount, priority, is_active,
	created_at, updated_at`

// Create inserts a new approval rule
func (r *RuleRepository) Create(ctx context.Context, rule *entity.ApprovalRule) error {
	query := `INSERT INTO approval_rules (` + ruleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rule.ID,
		rule.CompanyID,
		rule.Name,
		rule.RuleType,
		rule.ThresholdPercent,
		rule.SpecificApproverID,
		rule.AppliesToCategory,
		decimalPtrString(rule.MinAmount),
		decimalPtrString(rule.MaxAmount),
		rule.Priority,
		rule.IsActive,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create rule", zap.String("id", rule.ID), zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// GetByID retrieves a rule by ID, or nil when it does not exist
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_rules WHERE id = ?`
	rule, err := scanRule(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// ListByCompany returns every rule configured for a company
func (r *RuleRepository) ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_rules WHERE company_id = ? ORDER BY priority DESC, created_at ASC`
	return r.queryRules(ctx, query, companyID)
}

// ListActiveByCompany returns active rules ordered by priority descending,
// ties broken by earliest creation
func (r *RuleRepository) ListActiveByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM approval_rules WHERE company_id = ? AND is_active = 1 ORDER BY priority DESC, created_at ASC`
	return r.queryRules(ctx, query, companyID)
}

// Deactivate retires a rule without touching steps created from it
func (r *RuleRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE approval_rules SET is_active = 0, updated_at = ? WHERE id = ?`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, time.Now(), id); err != nil {
		r.logger.Error("Failed to deactivate rule", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to deactivate rule: %w", err)
	}
	return nil
}

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]*entity.ApprovalRule, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.ApprovalRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(row rowScanner) (*entity.ApprovalRule, error) {
	var (
		rule             entity.ApprovalRule
		thresholdPercent sql.NullInt64
		specificApprover sql.NullString
		category         sql.NullString
		minAmount        sql.NullString
		maxAmount        sql.NullString
	)

	err := row.Scan(
		&rule.ID,
		&rule.CompanyID,
		&rule.Name,
		&rule.RuleType,
		&thresholdPercent,
		&specificApprover,
		&category,
		&minAmount,
		&maxAmount,
		&rule.Priority,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if thresholdPercent.Valid {
		pct := int(thresholdPercent.Int64)
		rule.ThresholdPercent = &pct
	}
	if specificApprover.Valid {
		rule.SpecificApproverID = &specificApprover.String
	}
	if category.Valid {
		rule.AppliesToCategory = &category.String
	}
	if rule.MinAmount, err = nullDecimal(minAmount); err != nil {
		return nil, err
	}
	if rule.MaxAmount, err = nullDecimal(maxAmount); err != nil {
		return nil, err
	}
	return &rule, nil
}
