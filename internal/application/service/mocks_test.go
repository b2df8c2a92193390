package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jamiehall/expenseflow/internal/domain/entity"
	"github.com/jamiehall/expenseflow/pkg/utils"
)

// The composition root wires this adapter in for every service logger.
var _ Logger = (*utils.KeyValueLogger)(nil)

// In-memory fakes mirroring the repository guard semantics, mutex-guarded so
// concurrency tests can race them.

type memExpenseRepo struct {
	mu       sync.Mutex
	expenses map[string]*entity.Expense
}

func newMemExpenseRepo() *memExpenseRepo {
	return &memExpenseRepo{expenses: map[string]*entity.Expense{}}
}

func (r *memExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *expense
	r.expenses[expense.ID] = &cp
	return nil
}

func (r *memExpenseRepo) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *memExpenseRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Expense
	for _, e := range r.expenses {
		if e.CompanyID == companyID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memExpenseRepo) UpdateDraft(ctx context.Context, expense *entity.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.expenses[expense.ID]; ok && stored.Status == entity.ExpenseStatusDraft {
		cp := *expense
		r.expenses[expense.ID] = &cp
	}
	return nil
}

func (r *memExpenseRepo) MarkSubmitted(ctx context.Context, expense *entity.Expense) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.expenses[expense.ID]
	if !ok || stored.Status != entity.ExpenseStatusDraft {
		return false, nil
	}
	cp := *expense
	cp.Status = entity.ExpenseStatusWaitingApproval
	r.expenses[expense.ID] = &cp
	return true, nil
}

func (r *memExpenseRepo) CloseIfWaiting(ctx context.Context, id string, status entity.ExpenseStatus, closedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.expenses[id]
	if !ok || stored.Status != entity.ExpenseStatusWaitingApproval {
		return false, nil
	}
	stored.Status = status
	stored.UpdatedAt = closedAt
	return true, nil
}

type memStepRepo struct {
	mu    sync.Mutex
	steps map[string]*entity.ApprovalStep
}

func newMemStepRepo() *memStepRepo {
	return &memStepRepo{steps: map[string]*entity.ApprovalStep{}}
}

func (r *memStepRepo) CreateBatch(ctx context.Context, steps []*entity.ApprovalStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range steps {
		cp := *s
		r.steps[s.ID] = &cp
	}
	return nil
}

func (r *memStepRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.steps[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memStepRepo) ListByExpense(ctx context.Context, expenseID string) ([]*entity.ApprovalStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ApprovalStep
	for _, s := range r.steps {
		if s.ExpenseID == expenseID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memStepRepo) DecideIfPending(ctx context.Context, id string, status entity.StepStatus, actorID string, actionAt time.Time, comments *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.steps[id]
	if !ok || stored.Status != entity.StepStatusPending {
		return false, nil
	}
	stored.Status = status
	stored.ActionBy = &actorID
	stored.ActionAt = &actionAt
	stored.Comments = comments
	return true, nil
}

type memRuleRepo struct {
	rules []*entity.ApprovalRule
}

func (r *memRuleRepo) Create(ctx context.Context, rule *entity.ApprovalRule) error {
	r.rules = append(r.rules, rule)
	return nil
}

func (r *memRuleRepo) GetByID(ctx context.Context, id string) (*entity.ApprovalRule, error) {
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, nil
}

func (r *memRuleRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error) {
	var out []*entity.ApprovalRule
	for _, rule := range r.rules {
		if rule.CompanyID == companyID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRuleRepo) ListActiveByCompany(ctx context.Context, companyID string) ([]*entity.ApprovalRule, error) {
	var out []*entity.ApprovalRule
	for _, rule := range r.rules {
		if rule.CompanyID == companyID && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRuleRepo) Deactivate(ctx context.Context, id string) error {
	for _, rule := range r.rules {
		if rule.ID == id {
			rule.IsActive = false
		}
	}
	return nil
}

type memCompanyRepo struct {
	companies map[string]*entity.Company
}

func (r *memCompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	r.companies[company.ID] = company
	return nil
}

func (r *memCompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	return r.companies[id], nil
}

type memUserRepo struct {
	users  map[string]*entity.User
	roster []*entity.User
}

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.users[id], nil
}

func (r *memUserRepo) ManagerOf(ctx context.Context, userID string) (*entity.User, error) {
	u, ok := r.users[userID]
	if !ok || u.ManagerID == nil {
		return nil, nil
	}
	manager, ok := r.users[*u.ManagerID]
	if !ok || !manager.IsActive {
		return nil, nil
	}
	return manager, nil
}

func (r *memUserRepo) RosterOf(ctx context.Context, companyID string, roles []entity.Role) ([]*entity.User, error) {
	return r.roster, nil
}

type memRateCache struct {
	mu      sync.Mutex
	entries []*entity.ExchangeRate
}

func (r *memRateCache) Append(ctx context.Context, rate *entity.ExchangeRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, rate)
	return nil
}

func (r *memRateCache) Latest(ctx context.Context, from, to string, notBefore time.Time) (*entity.ExchangeRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.ExchangeRate
	for _, e := range r.entries {
		if e.FromCurrency != from || e.ToCurrency != to || e.FetchedAt.Before(notBefore) {
			continue
		}
		if latest == nil || e.FetchedAt.After(latest.FetchedAt) {
			latest = e
		}
	}
	return latest, nil
}

type stubRateSource struct {
	rate decimal.Decimal
	err  error
}

func (s *stubRateSource) SpotRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

// passthroughTx runs the function directly; the in-memory repos apply writes
// immediately, which matches the guard semantics the services rely on.
type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memAuditSink struct {
	mu     sync.Mutex
	events []*entity.AuditEvent
}

func (s *memAuditSink) Record(ctx context.Context, event *entity.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memAuditSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

type memNotifier struct {
	mu           sync.Mutex
	stepsCreated int
	approved     int
	rejected     int
}

func (n *memNotifier) StepCreated(ctx context.Context, step *entity.ApprovalStep, expense *entity.Expense) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stepsCreated++
	return nil
}

func (n *memNotifier) ExpenseApproved(ctx context.Context, expense *entity.Expense) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved++
	return nil
}

func (n *memNotifier) ExpenseRejected(ctx context.Context, expense *entity.Expense) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected++
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
