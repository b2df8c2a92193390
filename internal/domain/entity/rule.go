package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalRule is a company-configured policy selecting a rule type and
// approver set for matching expenses. Rules are admin-managed and independent
// of in-flight workflows: editing or deactivating a rule never touches steps
// that were already created from it.
type ApprovalRule struct {
	ID                 string           `json:"id"`
	CompanyID          string           `json:"company_id"`
	Name               string           `json:"name"`
	RuleType           RuleType         `json:"rule_type"`
	ThresholdPercent   *int             `json:"threshold_percent,omitempty"`
	SpecificApproverID *string          `json:"specific_approver_id,omitempty"`
	AppliesToCategory  *string          `json:"applies_to_category,omitempty"`
	MinAmount          *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount          *decimal.Decimal `json:"max_amount,omitempty"`
	Priority           int              `json:"priority"`
	IsActive           bool             `json:"is_active"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Matches reports whether the rule governs an expense with the given
// category and amount. Unset bounds and an unset category are wildcards.
func (r *ApprovalRule) Matches(category string, amount decimal.Decimal) bool {
	if !r.IsActive {
		return false
	}
	if r.AppliesToCategory != nil && *r.AppliesToCategory != category {
		return false
	}
	if r.MinAmount != nil && amount.LessThan(*r.MinAmount) {
		return false
	}
	if r.MaxAmount != nil && amount.GreaterThan(*r.MaxAmount) {
		return false
	}
	return true
}
