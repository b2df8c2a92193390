package entity

import "time"

// ApprovalStep is one approver's checkpoint within a specific expense's
// workflow instance. A step transitions PENDING to APPROVED or REJECTED
// exactly once and never reverses. At most one step exists per
// (expense, approver) pair.
type ApprovalStep struct {
	ID            string     `json:"id"`
	ExpenseID     string     `json:"expense_id"`
	ApproverID    string     `json:"approver_id"`
	SequenceIndex int        `json:"sequence_index"`
	Status        StepStatus `json:"status"`
	ActionBy      *string    `json:"action_by,omitempty"`
	ActionAt      *time.Time `json:"action_at,omitempty"`
	Comments      *string    `json:"comments,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
