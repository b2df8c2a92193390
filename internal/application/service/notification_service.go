package service

import (
	"context"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

// loggingDispatcher is the default NotificationDispatcher: it logs each
// event. Deployments with a real channel (chat, email) swap in their own
// implementation of the port.
type loggingDispatcher struct {
	logger Logger
}

// NewLoggingDispatcher creates a NotificationDispatcher that logs events.
func NewLoggingDispatcher(logger Logger) port.NotificationDispatcher {
	return &loggingDispatcher{logger: logger}
}

func (d *loggingDispatcher) StepCreated(ctx context.Context, step *entity.ApprovalStep, expense *entity.Expense) error {
	d.logger.Info("Notification: step created",
		"step_id", step.ID,
		"approver_id", step.ApproverID,
		"expense_id", expense.ID,
		"sequence_index", step.SequenceIndex)
	return nil
}

func (d *loggingDispatcher) ExpenseApproved(ctx context.Context, expense *entity.Expense) error {
	d.logger.Info("Notification: expense approved",
		"expense_id", expense.ID,
		"submitter_id", expense.SubmitterID)
	return nil
}

func (d *loggingDispatcher) ExpenseRejected(ctx context.Context, expense *entity.Expense) error {
	d.logger.Info("Notification: expense rejected",
		"expense_id", expense.ID,
		"submitter_id", expense.SubmitterID)
	return nil
}
