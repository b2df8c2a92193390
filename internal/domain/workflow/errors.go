package workflow

import "errors"

var (
	// ErrNotFound is returned when a referenced expense, step or rule does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when an actor is not the step's assigned approver
	ErrUnauthorized = errors.New("actor is not the assigned approver")

	// ErrAlreadyDecided is returned when a step has already been approved or rejected
	ErrAlreadyDecided = errors.New("step already decided")

	// ErrWorkflowClosed is returned when the owning expense is no longer awaiting approval
	ErrWorkflowClosed = errors.New("workflow already closed")

	// ErrAlreadySubmitted is returned when a non-draft expense is submitted again
	ErrAlreadySubmitted = errors.New("expense already submitted")

	// ErrInvalidRuleConfig is returned when a rule's configuration cannot produce steps
	ErrInvalidRuleConfig = errors.New("invalid rule configuration")

	// ErrInvalidDecision is returned when a decision is neither APPROVED nor REJECTED
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrValidation is returned for malformed caller input; no state changes
	ErrValidation = errors.New("validation failed")
)
