package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jamiehall/expenseflow/internal/application/port"
	appwf "github.com/jamiehall/expenseflow/internal/application/workflow"
	"github.com/jamiehall/expenseflow/internal/currency"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	domainwf "github.com/jamiehall/expenseflow/internal/domain/workflow"
	"github.com/jamiehall/expenseflow/internal/rules"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SubmissionResult is the outcome of submitting a draft expense.
type SubmissionResult struct {
	Status          entity.ExpenseStatus `json:"status"`
	ConvertedAmount decimal.Decimal      `json:"converted_amount"`
	Rate            decimal.Decimal      `json:"rate"`
	StepsCreated    int                  `json:"steps_created"`
}

// SubmissionService runs the submission pipeline: freeze the currency
// conversion, select the governing rule, expand it into steps and move the
// expense to WAITING_APPROVAL, all as one unit of work. Any failure leaves
// the expense DRAFT with zero steps persisted.
type SubmissionService interface {
	Submit(ctx context.Context, expenseID, actorID string) (*SubmissionResult, error)
}

type submissionServiceImpl struct {
	expenses  port.ExpenseRepository
	steps     port.StepRepository
	companies port.CompanyRepository
	converter *currency.Converter
	matcher   *rules.Matcher
	builder   *appwf.Builder
	txManager port.TransactionManager
	audit     port.AuditSink
	notifier  port.NotificationDispatcher
	logger    Logger
	now       func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	expenses port.ExpenseRepository,
	steps port.StepRepository,
	companies port.CompanyRepository,
	converter *currency.Converter,
	matcher *rules.Matcher,
	builder *appwf.Builder,
	txManager port.TransactionManager,
	audit port.AuditSink,
	notifier port.NotificationDispatcher,
	logger Logger,
) SubmissionService {
	return &submissionServiceImpl{
		expenses:  expenses,
		steps:     steps,
		companies: companies,
		converter: converter,
		matcher:   matcher,
		builder:   builder,
		txManager: txManager,
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit moves a draft expense into the approval workflow.
func (s *submissionServiceImpl) Submit(ctx context.Context, expenseID, actorID string) (*SubmissionResult, error) {
	expense, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %s: %w", expenseID, domainwf.ErrNotFound)
	}
	if expense.SubmitterID != actorID {
		return nil, fmt.Errorf("expense %s: %w", expenseID, domainwf.ErrUnauthorized)
	}
	if expense.Status != entity.ExpenseStatusDraft {
		return nil, fmt.Errorf("expense %s is %s: %w", expenseID, expense.Status, domainwf.ErrAlreadySubmitted)
	}

	company, err := s.companies.GetByID(ctx, expense.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("company %s: %w", expense.CompanyID, domainwf.ErrNotFound)
	}

	// Freeze the conversion before the transaction: the rate fetch blocks on
	// an external source and must not hold the write lock. The cache append
	// it may perform is append-only and harmless if submission later fails.
	conversion, err := s.converter.Convert(ctx, expense.OriginalCurrency, company.DefaultCurrency, expense.OriginalAmount)
	if err != nil {
		return nil, err
	}

	rule, err := s.matcher.Match(ctx, expense.CompanyID, expense.Category, conversion.ConvertedAmount)
	if err != nil {
		return nil, fmt.Errorf("match rule: %w", err)
	}

	steps, err := s.builder.Build(ctx, expense, rule)
	if err != nil {
		return nil, err
	}

	submittedAt := s.now()
	expense.ConvertedAmount = &conversion.ConvertedAmount
	expense.ConversionRate = &conversion.Rate
	expense.RateTimestamp = &conversion.Timestamp
	expense.SubmittedAt = &submittedAt
	expense.ApplyRule(rule)

	status := domainwf.Evaluate(domainwf.PolicyOf(expense), steps)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		submitted, err := s.expenses.MarkSubmitted(txCtx, expense)
		if err != nil {
			return fmt.Errorf("mark submitted: %w", err)
		}
		if !submitted {
			return fmt.Errorf("expense %s: %w", expenseID, domainwf.ErrAlreadySubmitted)
		}
		if len(steps) > 0 {
			if err := s.steps.CreateBatch(txCtx, steps); err != nil {
				return fmt.Errorf("create steps: %w", err)
			}
		}
		if status.IsTerminal() {
			if _, err := s.expenses.CloseIfWaiting(txCtx, expense.ID, status, submittedAt); err != nil {
				return fmt.Errorf("close expense: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	expense.Status = status

	s.recordSubmissionAudit(ctx, expense, rule, actorID, status)
	s.notifySubmission(ctx, expense, steps, status)

	s.logger.Info("Expense submitted",
		"expense_id", expense.ID,
		"status", status.String(),
		"steps_created", len(steps),
		"rate", conversion.Rate.String())

	return &SubmissionResult{
		Status:          status,
		ConvertedAmount: conversion.ConvertedAmount,
		Rate:            conversion.Rate,
		StepsCreated:    len(steps),
	}, nil
}

// recordSubmissionAudit emits audit events after commit; sink failures are
// logged and swallowed.
func (s *submissionServiceImpl) recordSubmissionAudit(ctx context.Context, expense *entity.Expense, rule *entity.ApprovalRule, actorID string, status entity.ExpenseStatus) {
	if rule != nil {
		s.record(ctx, "approval_rule", rule.ID, entity.AuditActionRuleApplied, actorID, rule)
	}
	if status == entity.ExpenseStatusApproved {
		s.record(ctx, "expense", expense.ID, entity.AuditActionAutoApproved, actorID, expense)
	}
}

func (s *submissionServiceImpl) record(ctx context.Context, entityName, entityID, action, actor string, snapshot interface{}) {
	event := &entity.AuditEvent{
		ID:        newEventID(),
		Entity:    entityName,
		EntityID:  entityID,
		Action:    action,
		Actor:     actor,
		Snapshot:  marshalSnapshot(snapshot),
		CreatedAt: s.now(),
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error("Audit record failed", "error", err, "entity_id", entityID, "action", action)
	}
}

func (s *submissionServiceImpl) notifySubmission(ctx context.Context, expense *entity.Expense, steps []*entity.ApprovalStep, status entity.ExpenseStatus) {
	for _, step := range steps {
		if err := s.notifier.StepCreated(ctx, step, expense); err != nil {
			s.logger.Error("Step notification failed", "error", err, "step_id", step.ID)
		}
	}
	if status == entity.ExpenseStatusApproved {
		if err := s.notifier.ExpenseApproved(ctx, expense); err != nil {
			s.logger.Error("Approval notification failed", "error", err, "expense_id", expense.ID)
		}
	}
}

func marshalSnapshot(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
