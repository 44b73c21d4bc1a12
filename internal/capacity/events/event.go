package events

import (
	"strconv"
	"time"

	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/google/uuid"
)

type EventType string

const (
	CapacityHRApproved       EventType = "capacity_hr_approved"
	CapacityHRRejected       EventType = "capacity_hr_rejected"
	CapacitySupplierApproved EventType = "capacity_supplier_approved"
	CapacitySupplierRejected EventType = "capacity_supplier_rejected"
	BatchCompleted           EventType = "batch_completed"
	BatchFailed              EventType = "batch_failed"
)

// Event is the JSON payload published for every approval decision and
// every finalized upload batch. Exactly one of CapacityID and BatchID is set.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	CompanyID  uuid.UUID `json:"companyId"`

	CapacityID        *uuid.UUID `json:"capacityId,omitempty"`
	CompanyEmployeeID string     `json:"companyEmployeeId,omitempty"`
	Stage             string     `json:"stage,omitempty"`
	Status            string     `json:"status,omitempty"`
	Remark            string     `json:"remark,omitempty"`
	AdminDecision     *bool      `json:"adminDecision,omitempty"`

	BatchID      *uint64 `json:"batchId,omitempty"`
	TotalRows    int     `json:"totalRows,omitempty"`
	SuccessCount int     `json:"successCount,omitempty"`
	FailureCount int     `json:"failureCount,omitempty"`
}

// Key partitions events so that every event of one record, or of one batch,
// lands on the same partition.
func (ev Event) Key() string {
	switch {
	case ev.CapacityID != nil:
		return ev.CapacityID.String()
	case ev.BatchID != nil:
		return "batch-" + strconv.FormatUint(*ev.BatchID, 10)
	default:
		return ev.CompanyID.String()
	}
}

func CapacityEvent(t EventType, rec *models.CapacityRecord, at time.Time) Event {
	id := rec.ID
	return Event{
		Type:              t,
		OccurredAt:        at,
		CompanyID:         rec.CompanyID,
		CapacityID:        &id,
		CompanyEmployeeID: rec.CompanyEmployeeID,
		Stage:             string(rec.Stage),
		Status:            string(rec.Status),
		Remark:            rec.Remark,
		AdminDecision:     rec.AdminDecision,
	}
}

// BatchEvent describes a finalized batch; the type follows its status.
func BatchEvent(b *models.Batch) Event {
	t := BatchCompleted
	if b.Status == models.BatchFailed {
		t = BatchFailed
	}
	id := b.ID
	ev := Event{
		Type:         t,
		CompanyID:    b.CompanyID,
		BatchID:      &id,
		TotalRows:    b.TotalRows,
		SuccessCount: b.SuccessCount,
		FailureCount: b.FailureCount,
	}
	if b.FinishedAt != nil {
		ev.OccurredAt = *b.FinishedAt
	}
	return ev
}

// Nop discards every event. It stands in when no broker is configured.
type Nop struct{}

func (Nop) Notify(Event) {}
