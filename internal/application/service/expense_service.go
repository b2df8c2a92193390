package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	domainwf "github.com/jamiehall/expenseflow/internal/domain/workflow"
	"github.com/jamiehall/expenseflow/pkg/utils"
)

// CreateExpenseInput carries the submitter-supplied fields for a new draft.
type CreateExpenseInput struct {
	CompanyID        string          `json:"company_id"`
	SubmitterID      string          `json:"submitter_id"`
	Category         string          `json:"category"`
	Description      string          `json:"description,omitempty"`
	OriginalCurrency string          `json:"original_currency"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
}

// ExpenseService manages the draft side of the expense lifecycle. Drafts are
// mutable only by their submitter; everything after submission belongs to
// SubmissionService and DecisionService.
type ExpenseService interface {
	Create(ctx context.Context, input CreateExpenseInput) (*entity.Expense, error)
	Get(ctx context.Context, id string) (*entity.Expense, error)
	List(ctx context.Context, companyID string, limit, offset int) ([]*entity.Expense, error)
	Steps(ctx context.Context, expenseID string) ([]*entity.ApprovalStep, error)
}

type expenseServiceImpl struct {
	expenses  port.ExpenseRepository
	steps     port.StepRepository
	companies port.CompanyRepository
	users     port.UserRepository
	logger    Logger
	now       func() time.Time
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(
	expenses port.ExpenseRepository,
	steps port.StepRepository,
	companies port.CompanyRepository,
	users port.UserRepository,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenses:  expenses,
		steps:     steps,
		companies: companies,
		users:     users,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates and persists a new DRAFT expense.
func (s *expenseServiceImpl) Create(ctx context.Context, input CreateExpenseInput) (*entity.Expense, error) {
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	now := s.now()
	expense := &entity.Expense{
		ID:               uuid.NewString(),
		CompanyID:        input.CompanyID,
		SubmitterID:      input.SubmitterID,
		Category:         strings.TrimSpace(input.Category),
		Description:      utils.SanitizeString(input.Description),
		OriginalCurrency: strings.ToUpper(input.OriginalCurrency),
		OriginalAmount:   input.OriginalAmount,
		Status:           entity.ExpenseStatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.logger.Info("Expense draft created",
		"expense_id", expense.ID,
		"company_id", expense.CompanyID,
		"submitter_id", expense.SubmitterID,
		"amount", expense.OriginalAmount.String(),
		"currency", expense.OriginalCurrency)
	return expense, nil
}

func (s *expenseServiceImpl) validate(ctx context.Context, input CreateExpenseInput) error {
	if err := utils.ValidateCurrencyCode(input.OriginalCurrency); err != nil {
		return fmt.Errorf("%w: %v", domainwf.ErrValidation, err)
	}
	if err := utils.ValidateAmount(input.OriginalAmount); err != nil {
		return fmt.Errorf("%w: %v", domainwf.ErrValidation, err)
	}
	if strings.TrimSpace(input.Category) == "" {
		return fmt.Errorf("%w: category is required", domainwf.ErrValidation)
	}

	company, err := s.companies.GetByID(ctx, input.CompanyID)
	if err != nil {
		return fmt.Errorf("get company: %w", err)
	}
	if company == nil {
		return fmt.Errorf("company %s: %w", input.CompanyID, domainwf.ErrNotFound)
	}
	submitter, err := s.users.GetByID(ctx, input.SubmitterID)
	if err != nil {
		return fmt.Errorf("get submitter: %w", err)
	}
	if submitter == nil || submitter.CompanyID != input.CompanyID {
		return fmt.Errorf("submitter %s: %w", input.SubmitterID, domainwf.ErrNotFound)
	}
	return nil
}

func (s *expenseServiceImpl) Get(ctx context.Context, id string) (*entity.Expense, error) {
	expense, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %s: %w", id, domainwf.ErrNotFound)
	}
	return expense, nil
}

func (s *expenseServiceImpl) List(ctx context.Context, companyID string, limit, offset int) ([]*entity.Expense, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	expenses, err := s.expenses.ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Steps returns the current step snapshot for an expense.
func (s *expenseServiceImpl) Steps(ctx context.Context, expenseID string) ([]*entity.ApprovalStep, error) {
	expense, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %s: %w", expenseID, domainwf.ErrNotFound)
	}
	steps, err := s.steps.ListByExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	return steps, nil
}
