// Package workflow expands a matched approval rule into the set of pending
// approval steps for a submitted expense.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	domainwf "github.com/jamiehall/expenseflow/internal/domain/workflow"
)

// maxChainDepth caps the manager-chain walk. Organisational data with a
// reporting chain deeper than this is treated as corrupt.
const maxChainDepth = 32

// Builder expands a governing rule into approval steps, all created PENDING.
type Builder struct {
	org   port.OrgDirectory
	users port.UserRepository
	now   func() time.Time
}

// NewBuilder creates a Builder.
func NewBuilder(org port.OrgDirectory, users port.UserRepository) *Builder {
	return &Builder{
		org:   org,
		users: users,
		now:   time.Now,
	}
}

// Build returns the steps a rule expands into for the given expense. A nil
// rule produces zero steps (no configured governance means no gate). Callers
// persist the steps in the same transaction that submits the expense.
func (b *Builder) Build(ctx context.Context, expense *entity.Expense, rule *entity.ApprovalRule) ([]*entity.ApprovalStep, error) {
	if rule == nil {
		return nil, nil
	}

	switch rule.RuleType {
	case entity.RuleTypeSequential:
		return b.buildSequential(ctx, expense)
	case entity.RuleTypeParallel, entity.RuleTypePercentage:
		return b.buildParallel(ctx, expense, 0, nil)
	case entity.RuleTypeSpecific:
		return b.buildSpecific(ctx, expense, rule)
	case entity.RuleTypeHybrid:
		return b.buildHybrid(ctx, expense, rule)
	default:
		return nil, fmt.Errorf("%w: unknown rule type %q", domainwf.ErrInvalidRuleConfig, rule.RuleType)
	}
}

// buildSequential walks the submitter's manager chain upward. The walk is
// bounded by a visited set and a depth cap so cyclic manager links terminate
// instead of looping; a revisited user ends the chain.
func (b *Builder) buildSequential(ctx context.Context, expense *entity.Expense) ([]*entity.ApprovalStep, error) {
	visited := map[string]bool{expense.SubmitterID: true}
	var steps []*entity.ApprovalStep

	current := expense.SubmitterID
	for depth := 0; depth < maxChainDepth; depth++ {
		manager, err := b.org.ManagerOf(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("resolve manager of %s: %w", current, err)
		}
		if manager == nil || visited[manager.ID] {
			break
		}
		visited[manager.ID] = true
		steps = append(steps, b.newStep(expense.ID, manager.ID, len(steps)))
		current = manager.ID
	}

	return steps, nil
}

// buildParallel creates one step per active manager/admin in the company,
// excluding the submitter and any explicitly excluded approver, all at the
// same sequence index.
func (b *Builder) buildParallel(ctx context.Context, expense *entity.Expense, sequenceIndex int, exclude *string) ([]*entity.ApprovalStep, error) {
	roster, err := b.org.RosterOf(ctx, expense.CompanyID, entity.ApprovalRoles)
	if err != nil {
		return nil, fmt.Errorf("resolve company roster: %w", err)
	}

	var steps []*entity.ApprovalStep
	for _, user := range roster {
		if user.ID == expense.SubmitterID {
			continue
		}
		if exclude != nil && user.ID == *exclude {
			continue
		}
		steps = append(steps, b.newStep(expense.ID, user.ID, sequenceIndex))
	}
	return steps, nil
}

func (b *Builder) buildSpecific(ctx context.Context, expense *entity.Expense, rule *entity.ApprovalRule) ([]*entity.ApprovalStep, error) {
	approver, err := b.specificApprover(ctx, expense, rule)
	if err != nil {
		return nil, err
	}
	return []*entity.ApprovalStep{b.newStep(expense.ID, approver.ID, 0)}, nil
}

// buildHybrid places the specific approver at sequence 0 and the parallel
// cohort at sequence 1, with the specific approver deduplicated out of the
// cohort.
func (b *Builder) buildHybrid(ctx context.Context, expense *entity.Expense, rule *entity.ApprovalRule) ([]*entity.ApprovalStep, error) {
	approver, err := b.specificApprover(ctx, expense, rule)
	if err != nil {
		return nil, err
	}

	steps := []*entity.ApprovalStep{b.newStep(expense.ID, approver.ID, 0)}
	cohort, err := b.buildParallel(ctx, expense, 1, &approver.ID)
	if err != nil {
		return nil, err
	}
	return append(steps, cohort...), nil
}

// specificApprover validates the rule's designated approver: it must be set,
// exist, be active and belong to the expense's company.
func (b *Builder) specificApprover(ctx context.Context, expense *entity.Expense, rule *entity.ApprovalRule) (*entity.User, error) {
	if rule.SpecificApproverID == nil || *rule.SpecificApproverID == "" {
		return nil, fmt.Errorf("%w: rule %s has no specific approver", domainwf.ErrInvalidRuleConfig, rule.ID)
	}
	approver, err := b.users.GetByID(ctx, *rule.SpecificApproverID)
	if err != nil {
		return nil, fmt.Errorf("resolve specific approver: %w", err)
	}
	if approver == nil {
		return nil, fmt.Errorf("%w: specific approver %s not found", domainwf.ErrInvalidRuleConfig, *rule.SpecificApproverID)
	}
	if !approver.IsActive {
		return nil, fmt.Errorf("%w: specific approver %s is inactive", domainwf.ErrInvalidRuleConfig, approver.ID)
	}
	if approver.CompanyID != expense.CompanyID {
		return nil, fmt.Errorf("%w: specific approver %s belongs to another company", domainwf.ErrInvalidRuleConfig, approver.ID)
	}
	return approver, nil
}

func (b *Builder) newStep(expenseID, approverID string, sequenceIndex int) *entity.ApprovalStep {
	now := b.now()
	return &entity.ApprovalStep{
		ID:            uuid.NewString(),
		ExpenseID:     expenseID,
		ApproverID:    approverID,
		SequenceIndex: sequenceIndex,
		Status:        entity.StepStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
