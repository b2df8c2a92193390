// Package rules selects the single governing approval rule for an expense.
package rules

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

// Matcher selects the highest-ranked active rule governing an expense
// context. A nil result with a nil error means no rule governs the expense
// and the workflow auto-approves with zero steps.
type Matcher struct {
	rules  port.RuleRepository
	logger *zap.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(rules port.RuleRepository, logger *zap.Logger) *Matcher {
	return &Matcher{
		rules:  rules,
		logger: logger,
	}
}

// Match returns the governing rule for the given company, category and
// amount. Candidates are active rules whose category is unset or equal and
// whose optional amount bounds include the amount; they rank by priority
// descending, ties broken by earliest creation.
func (m *Matcher) Match(ctx context.Context, companyID, category string, amount decimal.Decimal) (*entity.ApprovalRule, error) {
	active, err := m.rules.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	var candidates []*entity.ApprovalRule
	for _, rule := range active {
		if rule.Matches(category, amount) {
			candidates = append(candidates, rule)
		}
	}
	if len(candidates) == 0 {
		m.logger.Debug("No governing rule for expense context",
			zap.String("company_id", companyID),
			zap.String("category", category),
			zap.String("amount", amount.String()))
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	governing := candidates[0]
	m.logger.Debug("Matched governing rule",
		zap.String("rule_id", governing.ID),
		zap.String("rule_type", governing.RuleType.String()),
		zap.Int("priority", governing.Priority))
	return governing, nil
}
