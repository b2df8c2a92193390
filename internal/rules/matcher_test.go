package rules

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

type mockRuleRepo struct {
	rules []*entity.ApprovalRule
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *entity.ApprovalRule) error { return nil }
func (m *mockRuleRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalRule, error) {
	for _, r := range m.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}
func (m *mockRuleRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error) {
	return m.rules, nil
}
func (m *mockRuleRepo) ListActiveByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error) {
	var active []*entity.ApprovalRule
	for _, r := range m.rules {
		if r.IsActive && r.CompanyID == companyID {
			active = append(active, r)
		}
	}
	return active, nil
}
func (m *mockRuleRepo) Deactivate(ctx context.Context, id string) error { return nil }

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func testRule(id string, priority int, createdAt time.Time, mutate func(*entity.ApprovalRule)) *entity.ApprovalRule {
	rule := &entity.ApprovalRule{
		ID:        id,
		CompanyID: "co-1",
		Name:      id,
		RuleType:  entity.RuleTypeParallel,
		Priority:  priority,
		IsActive:  true,
		CreatedAt: createdAt,
	}
	if mutate != nil {
		mutate(rule)
	}
	return rule
}

func TestMatchPicksHighestPriority(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRuleRepo{rules: []*entity.ApprovalRule{
		testRule("low", 1, base, nil),
		testRule("high", 10, base, nil),
		testRule("mid", 5, base, nil),
	}}
	matcher := NewMatcher(repo, zap.NewNop())

	rule, err := matcher.Match(context.Background(), "co-1", "TRAVEL", dec("100"))
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "high", rule.ID)
}

func TestMatchTieBreaksByEarliestCreation(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRuleRepo{rules: []*entity.ApprovalRule{
		testRule("newer", 5, base.Add(time.Hour), nil),
		testRule("older", 5, base, nil),
	}}
	matcher := NewMatcher(repo, zap.NewNop())

	rule, err := matcher.Match(context.Background(), "co-1", "TRAVEL", dec("100"))
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "older", rule.ID)
}

func TestMatchFiltersCategoryAndBounds(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRuleRepo{rules: []*entity.ApprovalRule{
		testRule("meals-only", 10, base, func(r *entity.ApprovalRule) {
			r.AppliesToCategory = strPtr("MEALS")
		}),
		testRule("big-only", 9, base, func(r *entity.ApprovalRule) {
			r.MinAmount = decPtr("1000")
		}),
		testRule("small-only", 8, base, func(r *entity.ApprovalRule) {
			r.MaxAmount = decPtr("50")
		}),
		testRule("catch-all", 1, base, nil),
	}}
	matcher := NewMatcher(repo, zap.NewNop())

	rule, err := matcher.Match(context.Background(), "co-1", "TRAVEL", dec("100"))
	require.NoError(t, err)
	require.NotNil(t, rule)
	// Category excludes meals-only, bounds exclude big-only and small-only.
	assert.Equal(t, "catch-all", rule.ID)
}

func TestMatchBoundsAreInclusive(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRuleRepo{rules: []*entity.ApprovalRule{
		testRule("banded", 1, base, func(r *entity.ApprovalRule) {
			r.MinAmount = decPtr("100")
			r.MaxAmount = decPtr("200")
		}),
	}}
	matcher := NewMatcher(repo, zap.NewNop())

	for _, amount := range []string{"100", "150", "200"} {
		rule, err := matcher.Match(context.Background(), "co-1", "TRAVEL", dec(amount))
		require.NoError(t, err)
		assert.NotNil(t, rule, "amount %s should match", amount)
	}
	for _, amount := range []string{"99.99", "200.01"} {
		rule, err := matcher.Match(context.Background(), "co-1", "TRAVEL", dec(amount))
		require.NoError(t, err)
		assert.Nil(t, rule, "amount %s should not match", amount)
	}
}

func TestMatchNeverReturnsInactiveRule(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockRuleRepo{rules: []*entity.ApprovalRule{
		testRule("inactive", 10, base, func(r *entity.ApprovalRule) {
			r.IsActive = false
		}),
	}}
	matcher := NewMatcher(repo, zap.NewNop())

	rule, err := matcher.Match(context.Background(), "co-1", "TRAVEL", dec("100"))
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestMatchNoCandidateReturnsNil(t *testing.T) {
	matcher := NewMatcher(&mockRuleRepo{}, zap.NewNop())

	rule, err := matcher.Match(context.Background(), "co-1", "TRAVEL", dec("100"))
	require.NoError(t, err)
	assert.Nil(t, rule)
}
