package entity

// ExpenseStatus is the lifecycle status of an expense.
type ExpenseStatus string

const (
	ExpenseStatusDraft           ExpenseStatus = "DRAFT"
	ExpenseStatusWaitingApproval ExpenseStatus = "WAITING_APPROVAL"
	ExpenseStatusApproved        ExpenseStatus = "APPROVED"
	ExpenseStatusRejected        ExpenseStatus = "REJECTED"
)

var terminalExpenseStatuses = map[ExpenseStatus]bool{
	ExpenseStatusApproved: true,
	ExpenseStatusRejected: true,
}

// IsTerminal returns true if no further transitions are allowed from the status.
func (s ExpenseStatus) IsTerminal() bool {
	return terminalExpenseStatuses[s]
}

// String returns the string representation of the status.
func (s ExpenseStatus) String() string {
	return string(s)
}

// StepStatus is the decision status of a single approval step.
type StepStatus string

const (
	StepStatusPending  StepStatus = "PENDING"
	StepStatusApproved StepStatus = "APPROVED"
	StepStatusRejected StepStatus = "REJECTED"
)

// IsDecided returns true once the step has been approved or rejected.
func (s StepStatus) IsDecided() bool {
	return s == StepStatusApproved || s == StepStatusRejected
}

// String returns the string representation of the status.
func (s StepStatus) String() string {
	return string(s)
}

// RuleType selects how an approval rule expands into steps and how the
// resulting workflow settles.
type RuleType string

const (
	RuleTypeSequential RuleType = "SEQUENTIAL"
	RuleTypeParallel   RuleType = "PARALLEL"
	RuleTypePercentage RuleType = "PERCENTAGE"
	RuleTypeSpecific   RuleType = "SPECIFIC"
	RuleTypeHybrid     RuleType = "HYBRID"
)

var validRuleTypes = map[RuleType]bool{
	RuleTypeSequential: true,
	RuleTypeParallel:   true,
	RuleTypePercentage: true,
	RuleTypeSpecific:   true,
	RuleTypeHybrid:     true,
}

// IsValid returns true if the rule type is one of the known variants.
func (t RuleType) IsValid() bool {
	return validRuleTypes[t]
}

// String returns the string representation of the rule type.
func (t RuleType) String() string {
	return string(t)
}

// Role is an organisational role within a company.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// ApprovalRoles are the roles eligible for parallel approval cohorts.
var ApprovalRoles = []Role{RoleManager, RoleAdmin}

// Audit action constants.
const (
	AuditActionRuleApplied  = "RULE_APPLIED"
	AuditActionAutoApproved = "AUTO_APPROVED"
	AuditActionStepDecided  = "STEP_DECIDED"
	AuditActionClosed       = "WORKFLOW_CLOSED"
)
