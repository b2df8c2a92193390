package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	domainwf "github.com/jamiehall/expenseflow/internal/domain/workflow"
)

// CreateRuleInput carries the admin-supplied fields for a new approval rule.
type CreateRuleInput struct {
	CompanyID          string           `json:"company_id"`
	Name               string           `json:"name"`
	RuleType           entity.RuleType  `json:"rule_type"`
	ThresholdPercent   *int             `json:"threshold_percent,omitempty"`
	SpecificApproverID *string          `json:"specific_approver_id,omitempty"`
	AppliesToCategory  *string          `json:"applies_to_category,omitempty"`
	MinAmount          *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount          *decimal.Decimal `json:"max_amount,omitempty"`
	Priority           int              `json:"priority"`
}

// RuleService manages the admin-facing approval rule store. Rule changes
// never touch steps already created from a rule.
type RuleService interface {
	Create(ctx context.Context, input CreateRuleInput) (*entity.ApprovalRule, error)
	Get(ctx context.Context, id string) (*entity.ApprovalRule, error)
	List(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error)
	Deactivate(ctx context.Context, id string) error
}

type ruleServiceImpl struct {
	rules  port.RuleRepository
	users  port.UserRepository
	logger Logger
	now    func() time.Time
}

// NewRuleService creates a new RuleService.
func NewRuleService(rules port.RuleRepository, users port.UserRepository, logger Logger) RuleService {
	return &ruleServiceImpl{
		rules:  rules,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates and persists a new active rule.
func (s *ruleServiceImpl) Create(ctx context.Context, input CreateRuleInput) (*entity.ApprovalRule, error) {
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	now := s.now()
	rule := &entity.ApprovalRule{
		ID:                 uuid.NewString(),
		CompanyID:          input.CompanyID,
		Name:               input.Name,
		RuleType:           input.RuleType,
		ThresholdPercent:   input.ThresholdPercent,
		SpecificApproverID: input.SpecificApproverID,
		AppliesToCategory:  input.AppliesToCategory,
		MinAmount:          input.MinAmount,
		MaxAmount:          input.MaxAmount,
		Priority:           input.Priority,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}

	s.logger.Info("Approval rule created",
		"rule_id", rule.ID,
		"company_id", rule.CompanyID,
		"rule_type", rule.RuleType.String(),
		"priority", rule.Priority)
	return rule, nil
}

func (s *ruleServiceImpl) validate(ctx context.Context, input CreateRuleInput) error {
	if input.CompanyID == "" || input.Name == "" {
		return fmt.Errorf("%w: company_id and name are required", domainwf.ErrInvalidRuleConfig)
	}
	if !input.RuleType.IsValid() {
		return fmt.Errorf("%w: unknown rule type %q", domainwf.ErrInvalidRuleConfig, input.RuleType)
	}
	if input.ThresholdPercent != nil && (*input.ThresholdPercent < 1 || *input.ThresholdPercent > 100) {
		return fmt.Errorf("%w: threshold_percent must be within 1..100", domainwf.ErrInvalidRuleConfig)
	}
	if input.RuleType == entity.RuleTypePercentage && input.ThresholdPercent == nil {
		return fmt.Errorf("%w: PERCENTAGE rule requires threshold_percent", domainwf.ErrInvalidRuleConfig)
	}
	if input.MinAmount != nil && input.MaxAmount != nil && input.MinAmount.GreaterThan(*input.MaxAmount) {
		return fmt.Errorf("%w: min_amount exceeds max_amount", domainwf.ErrInvalidRuleConfig)
	}

	needsApprover := input.RuleType == entity.RuleTypeSpecific || input.RuleType == entity.RuleTypeHybrid
	if needsApprover {
		if input.SpecificApproverID == nil || *input.SpecificApproverID == "" {
			return fmt.Errorf("%w: %s rule requires specific_approver_id", domainwf.ErrInvalidRuleConfig, input.RuleType)
		}
		approver, err := s.users.GetByID(ctx, *input.SpecificApproverID)
		if err != nil {
			return fmt.Errorf("resolve specific approver: %w", err)
		}
		if approver == nil || !approver.IsActive || approver.CompanyID != input.CompanyID {
			return fmt.Errorf("%w: specific approver %s is not an active member of company %s",
				domainwf.ErrInvalidRuleConfig, *input.SpecificApproverID, input.CompanyID)
		}
	}
	return nil
}

func (s *ruleServiceImpl) Get(ctx context.Context, id string) (*entity.ApprovalRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	if rule == nil {
		return nil, fmt.Errorf("rule %s: %w", id, domainwf.ErrNotFound)
	}
	return rule, nil
}

func (s *ruleServiceImpl) List(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error) {
	rules, err := s.rules.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// Deactivate retires a rule. In-flight workflows keep their frozen snapshot.
func (s *ruleServiceImpl) Deactivate(ctx context.Context, id string) error {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get rule: %w", err)
	}
	if rule == nil {
		return fmt.Errorf("rule %s: %w", id, domainwf.ErrNotFound)
	}
	if err := s.rules.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}
	s.logger.Info("Approval rule deactivated", "rule_id", id)
	return nil
}
