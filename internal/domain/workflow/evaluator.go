// Package workflow holds the approval state machine: the frozen rule policy,
// the pure status evaluator and the decision-time error taxonomy.
package workflow

import (
	"sort"

	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

// DefaultThresholdPercent is the approval threshold applied when a
// PARALLEL or HYBRID rule does not configure one.
const DefaultThresholdPercent = 50

// Policy is the rule snapshot frozen onto an expense at submission.
// Evaluation always runs against the snapshot, never against the live rule,
// so admin edits cannot change an in-flight workflow.
type Policy struct {
	Type               entity.RuleType
	ThresholdPercent   *int
	SpecificApproverID *string
}

// PolicyOf reconstructs the frozen policy from an expense. It returns nil for
// an expense that was submitted with no governing rule.
func PolicyOf(e *entity.Expense) *Policy {
	if e == nil || e.AppliedRuleType == nil {
		return nil
	}
	return &Policy{
		Type:               *e.AppliedRuleType,
		ThresholdPercent:   e.AppliedThresholdPct,
		SpecificApproverID: e.AppliedSpecificApprover,
	}
}

// Evaluate derives the overall workflow status from the rule policy and the
// full current step snapshot. It is a pure function: it never mutates its
// inputs and holds no state, so concurrent callers only need to serialise
// the snapshot read and the status write around it.
//
// Any rejected step settles the workflow as REJECTED regardless of policy.
// Zero steps settle as APPROVED, matching the no-rule auto-approve policy.
func Evaluate(policy *Policy, steps []*entity.ApprovalStep) entity.ExpenseStatus {
	for _, step := range steps {
		if step.Status == entity.StepStatusRejected {
			return entity.ExpenseStatusRejected
		}
	}
	if len(steps) == 0 {
		return entity.ExpenseStatusApproved
	}
	if policy == nil {
		// Steps without a governing rule cannot exist through the builder,
		// but settle them conservatively like a parallel cohort.
		return evaluateThreshold(steps, DefaultThresholdPercent)
	}

	switch policy.Type {
	case entity.RuleTypeSequential:
		return evaluateSequential(steps)
	case entity.RuleTypeParallel:
		return evaluateThreshold(steps, thresholdOrDefault(policy.ThresholdPercent))
	case entity.RuleTypePercentage:
		return evaluateThreshold(steps, thresholdOrDefault(policy.ThresholdPercent))
	case entity.RuleTypeSpecific:
		return evaluateSpecific(steps)
	case entity.RuleTypeHybrid:
		return evaluateHybrid(policy, steps)
	default:
		return entity.ExpenseStatusWaitingApproval
	}
}

// evaluateSequential scans steps by ascending sequence index; the first
// non-approved step halts evaluation.
func evaluateSequential(steps []*entity.ApprovalStep) entity.ExpenseStatus {
	ordered := make([]*entity.ApprovalStep, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SequenceIndex < ordered[j].SequenceIndex
	})
	for _, step := range ordered {
		if step.Status != entity.StepStatusApproved {
			return entity.ExpenseStatusWaitingApproval
		}
	}
	return entity.ExpenseStatusApproved
}

func evaluateThreshold(steps []*entity.ApprovalStep, thresholdPercent int) entity.ExpenseStatus {
	total := len(steps)
	if total == 0 {
		return entity.ExpenseStatusApproved
	}
	approved := 0
	for _, step := range steps {
		if step.Status == entity.StepStatusApproved {
			approved++
		}
	}
	if approved*100 >= thresholdPercent*total {
		return entity.ExpenseStatusApproved
	}
	return entity.ExpenseStatusWaitingApproval
}

func evaluateSpecific(steps []*entity.ApprovalStep) entity.ExpenseStatus {
	for _, step := range steps {
		if step.Status == entity.StepStatusApproved {
			return entity.ExpenseStatusApproved
		}
	}
	return entity.ExpenseStatusWaitingApproval
}

// evaluateHybrid approves instantly on the specific approver's step,
// otherwise applies the percentage threshold over the remaining steps.
func evaluateHybrid(policy *Policy, steps []*entity.ApprovalStep) entity.ExpenseStatus {
	var rest []*entity.ApprovalStep
	for _, step := range steps {
		if policy.SpecificApproverID != nil && step.ApproverID == *policy.SpecificApproverID {
			if step.Status == entity.StepStatusApproved {
				return entity.ExpenseStatusApproved
			}
			continue
		}
		rest = append(rest, step)
	}
	if len(rest) == 0 {
		return entity.ExpenseStatusWaitingApproval
	}
	return evaluateThreshold(rest, thresholdOrDefault(policy.ThresholdPercent))
}

func thresholdOrDefault(pct *int) int {
	if pct == nil {
		return DefaultThresholdPercent
	}
	return *pct
}
