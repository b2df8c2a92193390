package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense represents a reimbursement claim moving through the approval
// workflow. The conversion fields (ConvertedAmount, ConversionRate,
// RateTimestamp) are written exactly once, at submission, and are immutable
// afterwards. The Applied* fields are a point-in-time snapshot of the
// governing rule taken at submission so that later rule edits never change
// how an in-flight workflow settles.
type Expense struct {
	ID               string           `json:"id"`
	CompanyID        string           `json:"company_id"`
	SubmitterID      string           `json:"submitter_id"`
	Category         string           `json:"category"`
	Description      string           `json:"description,omitempty"`
	OriginalCurrency string           `json:"original_currency"`
	OriginalAmount   decimal.Decimal  `json:"original_amount"`
	ConvertedAmount  *decimal.Decimal `json:"converted_amount,omitempty"`
	ConversionRate   *decimal.Decimal `json:"conversion_rate,omitempty"`
	RateTimestamp    *time.Time       `json:"rate_timestamp,omitempty"`
	Status           ExpenseStatus    `json:"status"`
	SubmittedAt      *time.Time       `json:"submitted_at,omitempty"`

	AppliedRuleID          *string   `json:"applied_rule_id,omitempty"`
	AppliedRuleType        *RuleType `json:"applied_rule_type,omitempty"`
	AppliedThresholdPct    *int      `json:"applied_threshold_percent,omitempty"`
	AppliedSpecificApprover *string  `json:"applied_specific_approver,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyRule records the governing rule snapshot on the expense.
func (e *Expense) ApplyRule(rule *ApprovalRule) {
	if rule == nil {
		return
	}
	e.AppliedRuleID = &rule.ID
	ruleType := rule.RuleType
	e.AppliedRuleType = &ruleType
	if rule.ThresholdPercent != nil {
		pct := *rule.ThresholdPercent
		e.AppliedThresholdPct = &pct
	}
	if rule.SpecificApproverID != nil {
		approver := *rule.SpecificApproverID
		e.AppliedSpecificApprover = &approver
	}
}
