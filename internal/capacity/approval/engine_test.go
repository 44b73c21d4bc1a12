package approval

import (
	"testing"
	"time"

	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/gartstein/capacity/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hrPending       = models.WorkflowState{Stage: models.StageHR, Status: models.StatusPending}
	hrRejected      = models.WorkflowState{Stage: models.StageHR, Status: models.StatusRejected}
	supplierPending = models.WorkflowState{Stage: models.StageSupplier, Status: models.StatusPending}
	supplierFast    = models.WorkflowState{Stage: models.StageSupplier, Status: models.StatusApproved}
	supplierReject  = models.WorkflowState{Stage: models.StageSupplier, Status: models.StatusRejected}
	completed       = models.WorkflowState{Stage: models.StageCompleted, Status: models.StatusApproved}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEntryState(t *testing.T) {
	today := date(2025, 6, 15)

	tests := []struct {
		name         string
		referred     bool
		workingSince time.Time
		want         models.WorkflowState
	}{
		{"referred goes to HR", true, date(2010, 1, 1), hrPending},
		{"referred ignores short tenure", true, date(2025, 6, 1), hrPending},
		{"tenure of exactly one year is fast-tracked", false, date(2024, 6, 15), supplierFast},
		{"long tenure is fast-tracked", false, date(2019, 3, 2), supplierFast},
		{"one day short stays pending", false, date(2024, 6, 16), supplierPending},
		{"future start date stays pending", false, date(2026, 1, 1), supplierPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EntryState(tt.referred, tt.workingSince, today))
		})
	}
}

func TestTenureReached_IgnoresTimeOfDay(t *testing.T) {
	asOf := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	assert.True(t, TenureReached(time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC), asOf))
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		current  models.WorkflowState
		decision Decision
		want     models.WorkflowState
		wantErr  error
	}{
		{"hr approve", hrPending, Decision{Action: HRApprove}, supplierPending, nil},
		{"hr reject", hrPending, Decision{Action: HRReject, Remark: "no fit"}, hrRejected, nil},
		{"hr approve outside HR", supplierPending, Decision{Action: HRApprove}, models.WorkflowState{}, e.ErrInvalidTransition},
		{"hr approve after hr reject", hrRejected, Decision{Action: HRApprove}, models.WorkflowState{}, e.ErrInvalidTransition},
		{"hr reject twice", hrRejected, Decision{Action: HRReject, Remark: "again"}, models.WorkflowState{}, e.ErrInvalidTransition},
		{"supplier approve pending", supplierPending, Decision{Action: SupplierApprove}, completed, nil},
		{"supplier approve fast-tracked", supplierFast, Decision{Action: SupplierApprove}, completed, nil},
		{"supplier reject", supplierPending, Decision{Action: SupplierReject, Remark: "budget"}, supplierReject, nil},
		{"supplier approve on HR record", hrPending, Decision{Action: SupplierApprove}, models.WorkflowState{}, e.ErrInvalidTransition},
		{"supplier approve after reject", supplierReject, Decision{Action: SupplierApprove}, models.WorkflowState{}, e.ErrInvalidTransition},
		{"completed is final", completed, Decision{Action: SupplierReject, Remark: "late"}, models.WorkflowState{}, e.ErrInvalidTransition},
		{"reject without remark", hrPending, Decision{Action: HRReject}, hrRejected, nil},
		{"unknown action", hrPending, Decision{Action: "escalate"}, models.WorkflowState{}, e.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Decide(tt.current, tt.decision)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.current, out.From)
			assert.Equal(t, tt.want, out.To)
		})
	}
}

func TestDecide_RemarkAndAdminDecision(t *testing.T) {
	t.Run("hr approve clears remark", func(t *testing.T) {
		rec := &models.CapacityRecord{Stage: models.StageHR, Status: models.StatusPending, Remark: "old"}
		out, err := Decide(rec.State(), Decision{Action: HRApprove})
		require.NoError(t, err)

		out.Apply(rec)
		assert.Empty(t, rec.Remark)
		assert.Nil(t, rec.AdminDecision)
	})

	t.Run("supplier reject stores remark verbatim and flag", func(t *testing.T) {
		rec := &models.CapacityRecord{Stage: models.StageSupplier, Status: models.StatusPending}
		out, err := Decide(rec.State(), Decision{Action: SupplierReject, Remark: " Rate too high ", Elevated: utils.Ptr(true)})
		require.NoError(t, err)

		out.Apply(rec)
		assert.Equal(t, " Rate too high ", rec.Remark)
		require.NotNil(t, rec.AdminDecision)
		assert.True(t, *rec.AdminDecision)
	})

	t.Run("blank remark is stored as given", func(t *testing.T) {
		rec := &models.CapacityRecord{Stage: models.StageHR, Status: models.StatusPending, Remark: "old"}
		out, err := Decide(rec.State(), Decision{Action: HRReject, Remark: "  "})
		require.NoError(t, err)

		out.Apply(rec)
		assert.Equal(t, models.StatusRejected, rec.Status)
		assert.Equal(t, "  ", rec.Remark)
	})

	t.Run("supplier approve without flag keeps admin decision unset", func(t *testing.T) {
		rec := &models.CapacityRecord{Stage: models.StageSupplier, Status: models.StatusPending, Remark: "keep"}
		out, err := Decide(rec.State(), Decision{Action: SupplierApprove})
		require.NoError(t, err)

		out.Apply(rec)
		assert.Nil(t, rec.AdminDecision)
		assert.Equal(t, "keep", rec.Remark)
	})

	t.Run("supplier approve with false flag records it", func(t *testing.T) {
		out, err := Decide(supplierPending, Decision{Action: SupplierApprove, Elevated: utils.Ptr(false)})
		require.NoError(t, err)
		require.NotNil(t, out.AdminDecision)
		assert.False(t, *out.AdminDecision)
	})

	t.Run("hr decisions ignore the flag", func(t *testing.T) {
		out, err := Decide(hrPending, Decision{Action: HRApprove, Elevated: utils.Ptr(true)})
		require.NoError(t, err)
		assert.Nil(t, out.AdminDecision)
	})
}

func TestDecide_TransitionErrorDetail(t *testing.T) {
	_, err := Decide(completed, Decision{Action: SupplierApprove})

	var te *e.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "supplier_approve", te.Action)
	assert.Equal(t, "Completed", te.Stage)
}
