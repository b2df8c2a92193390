package port

import (
	"context"
	"time"

	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

// ExpenseRepository defines persistence operations for Expense.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id string) (*entity.Expense, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Expense, error)
	// UpdateDraft persists draft-time edits. It only touches DRAFT rows.
	UpdateDraft(ctx context.Context, expense *entity.Expense) error
	// MarkSubmitted writes the frozen conversion fields, the applied-rule
	// snapshot and the WAITING_APPROVAL status in one statement guarded on
	// the row still being DRAFT. It returns false when the guard misses.
	MarkSubmitted(ctx context.Context, expense *entity.Expense) (bool, error)
	// CloseIfWaiting writes a terminal status guarded on the row still being
	// WAITING_APPROVAL, so a terminal status is never overwritten. It
	// returns false when the guard misses.
	CloseIfWaiting(ctx context.Context, id string, status entity.ExpenseStatus, closedAt time.Time) (bool, error)
}

// RuleRepository defines persistence operations for ApprovalRule.
type RuleRepository interface {
	Create(ctx context.Context, rule *entity.ApprovalRule) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalRule, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error)
	// ListActiveByCompany returns active rules ordered by priority descending,
	// ties broken by earliest creation.
	ListActiveByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error)
	Deactivate(ctx context.Context, id string) error
}

// StepRepository defines persistence operations for ApprovalStep.
type StepRepository interface {
	CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalStep, error)
	ListByExpense(ctx context.Context, expenseID string) ([]*entity.ApprovalStep, error)
	// DecideIfPending performs the conditional PENDING -> status update.
	// Exactly one of two racing calls observes true; the loser's write is a
	// no-op and it observes false.
	DecideIfPending(ctx context.Context, id string, status entity.StepStatus, actorID string, actionAt time.Time, comments *string) (bool, error)
}

// RateCacheRepository is the persisted, append-only exchange rate cache.
type RateCacheRepository interface {
	// Append inserts a new cache entry. Entries are never updated or deleted.
	Append(ctx context.Context, rate *entity.ExchangeRate) error
	// Latest returns the newest entry for (from, to) fetched at or after
	// notBefore, or nil when there is none.
	Latest(ctx context.Context, from, to string, notBefore time.Time) (*entity.ExchangeRate, error)
}

// UserRepository defines persistence operations for User.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// CompanyRepository defines persistence operations for Company.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}

// AuditRepository defines persistence operations for AuditEvent.
type AuditRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
	ListByEntity(ctx context.Context, entityName, entityID string) ([]*entity.AuditEvent, error)
}

// TransactionManager runs a function within a database transaction. The
// transaction travels in the context; nested calls reuse the outer
// transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
