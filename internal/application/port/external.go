package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

// OrgDirectory resolves manager chains and company rosters. Both operations
// only see active users.
type OrgDirectory interface {
	// ManagerOf returns the manager one link above the user, or nil when the
	// user has no manager or the manager is inactive.
	ManagerOf(ctx context.Context, userID string) (*entity.User, error)
	// RosterOf returns every active user in the company holding one of the
	// given roles, in a stable order.
	RosterOf(ctx context.Context, companyID string, roles []entity.Role) ([]*entity.User, error)
}

// RateSource provides live spot rates. It is fallible and carries no retry;
// retrying is the caller's responsibility.
type RateSource interface {
	SpotRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// AuditSink records workflow facts. It is fire-and-forget: callers log and
// swallow the returned error, a sink failure never blocks or rolls back the
// workflow.
type AuditSink interface {
	Record(ctx context.Context, event *entity.AuditEvent) error
}

// NotificationDispatcher delivers best-effort workflow notifications.
// Failures never affect workflow correctness.
type NotificationDispatcher interface {
	StepCreated(ctx context.Context, step *entity.ApprovalStep, expense *entity.Expense) error
	ExpenseApproved(ctx context.Context, expense *entity.Expense) error
	ExpenseRejected(ctx context.Context, expense *entity.Expense) error
}
