package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	domainwf "github.com/jamiehall/expenseflow/internal/domain/workflow"
)

// DecisionResult is the outcome of one approver's decision.
type DecisionResult struct {
	StepStatus    entity.StepStatus    `json:"step_status"`
	ExpenseStatus entity.ExpenseStatus `json:"expense_status"`
}

// DecisionService records one approver's decision with at-most-once
// semantics and re-evaluates the overall workflow status in the same unit of
// work.
type DecisionService interface {
	Decide(ctx context.Context, stepID, actorID string, decision entity.StepStatus, comments *string) (*DecisionResult, error)
}

type decisionServiceImpl struct {
	expenses  port.ExpenseRepository
	steps     port.StepRepository
	txManager port.TransactionManager
	audit     port.AuditSink
	notifier  port.NotificationDispatcher
	logger    Logger
	now       func() time.Time
}

// NewDecisionService creates a new DecisionService.
func NewDecisionService(
	expenses port.ExpenseRepository,
	steps port.StepRepository,
	txManager port.TransactionManager,
	audit port.AuditSink,
	notifier port.NotificationDispatcher,
	logger Logger,
) DecisionService {
	return &decisionServiceImpl{
		expenses:  expenses,
		steps:     steps,
		txManager: txManager,
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Decide applies one approver's decision to a step. The PENDING -> decision
// write is a single conditional update guarded on the current status still
// being PENDING; when two requests race on the same step exactly one commits
// and the loser observes ErrAlreadyDecided. Evaluation runs inside the same
// transaction, so concurrent decisions on different steps of the same
// expense serialise on the write lock and a terminal status is written
// exactly once.
func (s *decisionServiceImpl) Decide(ctx context.Context, stepID, actorID string, decision entity.StepStatus, comments *string) (*DecisionResult, error) {
	if decision != entity.StepStatusApproved && decision != entity.StepStatusRejected {
		return nil, fmt.Errorf("%w: %q", domainwf.ErrInvalidDecision, decision)
	}

	var (
		expense *entity.Expense
		step    *entity.ApprovalStep
		status  entity.ExpenseStatus
		closed  bool
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		step, err = s.steps.GetByID(txCtx, stepID)
		if err != nil {
			return fmt.Errorf("get step: %w", err)
		}
		if step == nil {
			return fmt.Errorf("step %s: %w", stepID, domainwf.ErrNotFound)
		}
		if step.ApproverID != actorID {
			return fmt.Errorf("step %s: %w", stepID, domainwf.ErrUnauthorized)
		}

		expense, err = s.expenses.GetByID(txCtx, step.ExpenseID)
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		if expense == nil {
			return fmt.Errorf("expense %s: %w", step.ExpenseID, domainwf.ErrNotFound)
		}
		if step.Status != entity.StepStatusPending {
			return fmt.Errorf("step %s: %w", stepID, domainwf.ErrAlreadyDecided)
		}
		if expense.Status != entity.ExpenseStatusWaitingApproval {
			return fmt.Errorf("expense %s is %s: %w", expense.ID, expense.Status, domainwf.ErrWorkflowClosed)
		}

		actionAt := s.now()
		won, err := s.steps.DecideIfPending(txCtx, stepID, decision, actorID, actionAt, comments)
		if err != nil {
			return fmt.Errorf("decide step: %w", err)
		}
		if !won {
			return fmt.Errorf("step %s: %w", stepID, domainwf.ErrAlreadyDecided)
		}
		step.Status = decision
		step.ActionBy = &actorID
		step.ActionAt = &actionAt
		step.Comments = comments

		snapshot, err := s.steps.ListByExpense(txCtx, expense.ID)
		if err != nil {
			return fmt.Errorf("list steps: %w", err)
		}

		status = domainwf.Evaluate(domainwf.PolicyOf(expense), snapshot)
		if status.IsTerminal() {
			closed, err = s.expenses.CloseIfWaiting(txCtx, expense.ID, status, actionAt)
			if err != nil {
				return fmt.Errorf("close expense: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	expense.Status = status

	s.record(ctx, "approval_step", step.ID, entity.AuditActionStepDecided, actorID, step)
	if closed {
		s.record(ctx, "expense", expense.ID, entity.AuditActionClosed, actorID, expense)
		s.notifyClosed(ctx, expense, status)
	}

	s.logger.Info("Step decided",
		"step_id", step.ID,
		"decision", decision.String(),
		"expense_id", expense.ID,
		"expense_status", status.String())

	return &DecisionResult{
		StepStatus:    decision,
		ExpenseStatus: status,
	}, nil
}

func (s *decisionServiceImpl) record(ctx context.Context, entityName, entityID, action, actor string, snapshot interface{}) {
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

func (s *decisionServiceImpl) notifyClosed(ctx context.Context, expense *entity.Expense, status entity.ExpenseStatus) {
	var err error
	switch status {
	case entity.ExpenseStatusApproved:
		err = s.notifier.ExpenseApproved(ctx, expense)
	case entity.ExpenseStatusRejected:
		err = s.notifier.ExpenseRejected(ctx, expense)
	}
	if err != nil {
		s.logger.Error("Terminal notification failed", "error", err, "expense_id", expense.ID)
	}
}
