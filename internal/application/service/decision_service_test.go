package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamiehall/expenseflow/internal/domain/entity"
	domainwf "github.com/jamiehall/expenseflow/internal/domain/workflow"
)

type decisionFixture struct {
	expenses *memExpenseRepo
	steps    *memStepRepo
	audit    *memAuditSink
	notifier *memNotifier
	svc      DecisionService
}

func newDecisionFixture(t *testing.T) *decisionFixture {
	t.Helper()

	f := &decisionFixture{
		expenses: newMemExpenseRepo(),
		steps:    newMemStepRepo(),
		audit:    &memAuditSink{},
		notifier: &memNotifier{},
	}
	f.svc = NewDecisionService(f.expenses, f.steps, passthroughTx{}, f.audit, f.notifier, nopLogger{})
	return f
}

// seedWaiting stores a WAITING_APPROVAL expense carrying the given rule-type
// snapshot plus one pending step per approver.
func (f *decisionFixture) seedWaiting(ruleType entity.RuleType, thresholdPct *int, approvers ...string) {
	f.expenses.expenses["exp-1"] = &entity.Expense{
		ID:                  "exp-1",
		CompanyID:           "co-1",
		SubmitterID:         "emp",
		Status:              entity.ExpenseStatusWaitingApproval,
		AppliedRuleID:       strPtr("rule-1"),
		AppliedRuleType:     &ruleType,
		AppliedThresholdPct: thresholdPct,
	}
	for i, approver := range approvers {
		id := "step-" + approver
		f.steps.steps[id] = &entity.ApprovalStep{
			ID:            id,
			ExpenseID:     "exp-1",
			ApproverID:    approver,
			SequenceIndex: i,
			Status:        entity.StepStatusPending,
		}
	}
}

func TestDecide_ApproveLastStep_ClosesApproved(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1")

	result, err := f.svc.Decide(context.Background(), "step-m1", "m1", entity.StepStatusApproved, nil)

	require.NoError(t, err)
	assert.Equal(t, entity.StepStatusApproved, result.StepStatus)
	assert.Equal(t, entity.ExpenseStatusApproved, result.ExpenseStatus)

	stored, _ := f.expenses.GetByID(context.Background(), "exp-1")
	assert.Equal(t, entity.ExpenseStatusApproved, stored.Status)

	actions := f.audit.actions()
	assert.Contains(t, actions, entity.AuditActionStepDecided)
	assert.Contains(t, actions, entity.AuditActionClosed)
	assert.Equal(t, 1, f.notifier.approved)
}

func TestDecide_Reject_SettlesImmediately(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1", "m2")

	result, err := f.svc.Decide(context.Background(), "step-m1", "m1", entity.StepStatusRejected, strPtr("missing receipt"))

	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusRejected, result.ExpenseStatus)

	stored, _ := f.expenses.GetByID(context.Background(), "exp-1")
	assert.Equal(t, entity.ExpenseStatusRejected, stored.Status)
	assert.Equal(t, 1, f.notifier.rejected)

	// The other step stays pending; the workflow is settled regardless.
	other, _ := f.steps.GetByID(context.Background(), "step-m2")
	assert.Equal(t, entity.StepStatusPending, other.Status)
}

func TestDecide_SequentialMidChain_StaysWaiting(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1", "m2")

	result, err := f.svc.Decide(context.Background(), "step-m1", "m1", entity.StepStatusApproved, nil)

	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusWaitingApproval, result.ExpenseStatus)
	assert.Equal(t, 0, f.notifier.approved)
}

func TestDecide_PercentageThreshold_CrossesOnSecondApproval(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypePercentage, intPtr(60), "m1", "m2", "m3")

	first, err := f.svc.Decide(context.Background(), "step-m1", "m1", entity.StepStatusApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusWaitingApproval, first.ExpenseStatus)

	second, err := f.svc.Decide(context.Background(), "step-m2", "m2", entity.StepStatusApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusApproved, second.ExpenseStatus)
}

func TestDecide_WrongActor_Unauthorized(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1")

	_, err := f.svc.Decide(context.Background(), "step-m1", "intruder", entity.StepStatusApproved, nil)

	assert.ErrorIs(t, err, domainwf.ErrUnauthorized)
}

func TestDecide_AlreadyDecidedStep(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1", "m2")
	f.steps.steps["step-m1"].Status = entity.StepStatusApproved

	_, err := f.svc.Decide(context.Background(), "step-m1", "m1", entity.StepStatusRejected, nil)

	assert.ErrorIs(t, err, domainwf.ErrAlreadyDecided)

	// The earlier decision is untouched.
	stored, _ := f.steps.GetByID(context.Background(), "step-m1")
	assert.Equal(t, entity.StepStatusApproved, stored.Status)
}

func TestDecide_DecidedStepInClosedWorkflow_ReportsAlreadyDecided(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1", "m2")
	f.steps.steps["step-m1"].Status = entity.StepStatusRejected
	f.expenses.expenses["exp-1"].Status = entity.ExpenseStatusRejected

	// The step's own state takes precedence over the workflow being closed.
	_, err := f.svc.Decide(context.Background(), "step-m1", "m1", entity.StepStatusApproved, nil)

	assert.ErrorIs(t, err, domainwf.ErrAlreadyDecided)
}

func TestDecide_ClosedWorkflow(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1", "m2")
	f.expenses.expenses["exp-1"].Status = entity.ExpenseStatusRejected

	_, err := f.svc.Decide(context.Background(), "step-m2", "m2", entity.StepStatusApproved, nil)

	assert.ErrorIs(t, err, domainwf.ErrWorkflowClosed)

	stored, _ := f.expenses.GetByID(context.Background(), "exp-1")
	assert.Equal(t, entity.ExpenseStatusRejected, stored.Status)
}

func TestDecide_InvalidDecisionValue(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1")

	_, err := f.svc.Decide(context.Background(), "step-m1", "m1", entity.StepStatusPending, nil)

	assert.ErrorIs(t, err, domainwf.ErrInvalidDecision)
}

func TestDecide_UnknownStep(t *testing.T) {
	f := newDecisionFixture(t)

	_, err := f.svc.Decide(context.Background(), "missing", "m1", entity.StepStatusApproved, nil)

	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

func TestDecide_ConcurrentOnSameStep_ExactlyOneWins(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	decisions := []entity.StepStatus{entity.StepStatusApproved, entity.StepStatusRejected}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Decide(context.Background(), "step-m1", "m1", decisions[i], nil)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		// The loser observes the step already decided, or the workflow already
		// closed when the winner's terminal write lands first.
		if errors.Is(err, domainwf.ErrAlreadyDecided) || errors.Is(err, domainwf.ErrWorkflowClosed) {
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	stored, _ := f.steps.GetByID(context.Background(), "step-m1")
	assert.True(t, stored.Status.IsDecided())
}

func TestDecide_TerminalStatusIsImmutable(t *testing.T) {
	f := newDecisionFixture(t)
	f.seedWaiting(entity.RuleTypeSequential, nil, "m1", "m2")

	_, err := f.svc.Decide(context.Background(), "step-m1", "m1", entity.StepStatusRejected, nil)
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), "step-m2", "m2", entity.StepStatusApproved, nil)
	assert.ErrorIs(t, err, domainwf.ErrWorkflowClosed)

	stored, _ := f.expenses.GetByID(context.Background(), "exp-1")
	assert.Equal(t, entity.ExpenseStatusRejected, stored.Status)
}
