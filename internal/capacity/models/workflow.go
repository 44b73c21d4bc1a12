package models

import (
	"database/sql/driver"
	"fmt"
	"strings"

	e "github.com/gartstein/capacity/internal/capacity/errors"
)

// Status is the decision status of a capacity record within its stage.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// ApprovalStage is the workflow queue a capacity record currently sits in.
type ApprovalStage string

const (
	StageSupplier  ApprovalStage = "Supplier"
	StageHR        ApprovalStage = "HR"
	StageCompleted ApprovalStage = "Completed"
)

// BatchStatus is the lifecycle status of a bulk upload.
type BatchStatus string

const (
	BatchProcessing BatchStatus = "Processing"
	BatchCompleted  BatchStatus = "Completed"
	BatchFailed     BatchStatus = "Failed"
)

// WorkflowState is the (stage, status) pair that drives approvals.
type WorkflowState struct {
	Stage  ApprovalStage
	Status Status
}

func (w WorkflowState) String() string {
	return fmt.Sprintf("%s/%s", w.Stage, w.Status)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s ApprovalStage) Valid() bool {
	switch s {
	case StageSupplier, StageHR, StageCompleted:
		return true
	}
	return false
}

func (s BatchStatus) Valid() bool {
	switch s {
	case BatchProcessing, BatchCompleted, BatchFailed:
		return true
	}
	return false
}

// ParseStatus accepts the canonical names case-insensitively.
func ParseStatus(s string) (Status, error) {
	return parseEnum(s, "status", StatusPending, StatusApproved, StatusRejected)
}

// ParseApprovalStage accepts the canonical names case-insensitively.
func ParseApprovalStage(s string) (ApprovalStage, error) {
	return parseEnum(s, "approval stage", StageSupplier, StageHR, StageCompleted)
}

// ParseBatchStatus accepts the canonical names case-insensitively.
func ParseBatchStatus(s string) (BatchStatus, error) {
	return parseEnum(s, "batch status", BatchProcessing, BatchCompleted, BatchFailed)
}

func (s Status) Value() (driver.Value, error)        { return enumValue(s, "status") }
func (s ApprovalStage) Value() (driver.Value, error) { return enumValue(s, "approval stage") }
func (s BatchStatus) Value() (driver.Value, error)   { return enumValue(s, "batch status") }

func (s *Status) Scan(src any) error        { return scanEnum(s, src, "status") }
func (s *ApprovalStage) Scan(src any) error { return scanEnum(s, src, "approval stage") }
func (s *BatchStatus) Scan(src any) error   { return scanEnum(s, src, "batch status") }

type enum interface {
	~string
	Valid() bool
}

func parseEnum[T enum](s, kind string, values ...T) (T, error) {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: unknown %s %q", e.ErrInvalidInput, kind, s)
}

func enumValue[T enum](v T, kind string) (driver.Value, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("refusing to store unknown %s %q", kind, string(v))
	}
	return string(v), nil
}

// scanEnum is strict: stored values must match a canonical name exactly.
func scanEnum[T enum](dst *T, src any, kind string) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into %s", src, kind)
	}
	if !T(raw).Valid() {
		return fmt.Errorf("unknown %s %q in storage", kind, raw)
	}
	*dst = T(raw)
	return nil
}
