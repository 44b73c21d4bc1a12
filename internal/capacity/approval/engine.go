// Package approval holds the capacity workflow rules: where a new record
// enters the workflow and which decisions move it between stages.
// Everything here is pure; persistence applies the returned Outcome.
package approval

import (
	"fmt"
	"time"

	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/gartstein/capacity/internal/pkg/utils"
)

// Action is a reviewer decision on a capacity record.
type Action string

const (
	HRApprove       Action = "hr_approve"
	HRReject        Action = "hr_reject"
	SupplierApprove Action = "supplier_approve"
	SupplierReject  Action = "supplier_reject"
)

// Decision is a requested transition.
type Decision struct {
	Action Action
	// Remark is stored verbatim on rejection, blank included.
	Remark string
	// Elevated is the optional elevated-actor flag of supplier-side
	// decisions. When supplied it becomes the record's admin decision.
	Elevated *bool
}

// Outcome is the state change a Decision produces.
type Outcome struct {
	From models.WorkflowState
	To   models.WorkflowState
	// Remark is the new remark; nil keeps the stored one.
	Remark *string
	// ClearRemark removes the stored remark.
	ClearRemark bool
	// AdminDecision is the new admin decision; nil keeps the stored one.
	AdminDecision *bool
}

// TenureReached reports whether workingSince lies at least one calendar
// year before asOf. Both are compared as UTC dates.
func TenureReached(workingSince, asOf time.Time) bool {
	threshold := utils.DateOf(asOf).AddDate(-1, 0, 0)
	return !utils.DateOf(workingSince).After(threshold)
}

// EntryState returns the initial workflow state of a new record submitted
// on submittedOn.
func EntryState(isReferred bool, workingSince, submittedOn time.Time) models.WorkflowState {
	switch {
	case isReferred:
		return models.WorkflowState{Stage: models.StageHR, Status: models.StatusPending}
	case TenureReached(workingSince, submittedOn):
		return models.WorkflowState{Stage: models.StageSupplier, Status: models.StatusApproved}
	default:
		return models.WorkflowState{Stage: models.StageSupplier, Status: models.StatusPending}
	}
}

// Decide applies d to current. A rejected record never transitions again and
// a completed record has no further transitions.
func Decide(current models.WorkflowState, d Decision) (Outcome, error) {
	required, ok := requiredStage(d.Action)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown action %q", e.ErrInvalidInput, d.Action)
	}
	if current.Stage != required || current.Status == models.StatusRejected {
		return Outcome{}, &e.TransitionError{
			Action: string(d.Action),
			Stage:  string(current.Stage),
			Status: string(current.Status),
		}
	}

	out := Outcome{From: current}
	switch d.Action {
	case HRApprove:
		out.To = models.WorkflowState{Stage: models.StageSupplier, Status: models.StatusPending}
		out.ClearRemark = true
	case HRReject:
		out.To = models.WorkflowState{Stage: models.StageHR, Status: models.StatusRejected}
		out.Remark = utils.Ptr(d.Remark)
	case SupplierApprove:
		out.To = models.WorkflowState{Stage: models.StageCompleted, Status: models.StatusApproved}
		out.AdminDecision = d.Elevated
	case SupplierReject:
		out.To = models.WorkflowState{Stage: models.StageSupplier, Status: models.StatusRejected}
		out.Remark = utils.Ptr(d.Remark)
		out.AdminDecision = d.Elevated
	}
	return out, nil
}

// Apply copies the outcome onto rec.
func (o Outcome) Apply(rec *models.CapacityRecord) {
	rec.Stage = o.To.Stage
	rec.Status = o.To.Status
	switch {
	case o.ClearRemark:
		rec.Remark = ""
	case o.Remark != nil:
		rec.Remark = *o.Remark
	}
	if o.AdminDecision != nil {
		rec.AdminDecision = utils.Ptr(*o.AdminDecision)
	}
}

func requiredStage(a Action) (models.ApprovalStage, bool) {
	switch a {
	case HRApprove, HRReject:
		return models.StageHR, true
	case SupplierApprove, SupplierReject:
		return models.StageSupplier, true
	}
	return "", false
}
