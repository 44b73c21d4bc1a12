// Package models defines the domain models of the capacity service:
// supplier capacity records, their workflow state and bulk upload batches.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CapacityRecord is one supplier employee offered as available capacity.
type CapacityRecord struct {
	// ID is assigned on creation.
	ID uuid.UUID `json:"id"`
	// CompanyID is the supplier company that owns the record.
	CompanyID uuid.UUID `json:"companyId"`
	// CompanyEmployeeID is the supplier's own identifier for the employee.
	CompanyEmployeeID string `json:"companyEmployeeId" validate:"notblank"`
	// WorkingSince is the employment start date (calendar date, UTC).
	WorkingSince time.Time `json:"workingSince"`
	// CTC is the cost to company.
	CTC              decimal.Decimal `json:"ctc" validate:"dgt=0"`
	JobTitle         string          `json:"jobTitle"`
	Role             string          `json:"role"`
	Gender           string          `json:"gender"`
	Location         string          `json:"location"`
	TotalExperience  decimal.Decimal `json:"totalExperience" validate:"dgte=0"`
	TechnicalSkills  string          `json:"technicalSkills"`
	Tools            string          `json:"tools"`
	NumberOfProjects int             `json:"numberOfProjects" validate:"gte=0,lte=2147483647"`
	EmployerNote     string          `json:"employerNote"`
	// IsReferred routes the record through HR review first.
	IsReferred bool `json:"isReferred"`
	// Certifications are kept in submission order; duplicates are allowed.
	Certifications []string `json:"certifications"`

	Stage  ApprovalStage `json:"approvalStage"`
	Status Status        `json:"status"`
	// AdminDecision is set only when a supplier-side decision carried the
	// elevated actor flag.
	AdminDecision *bool  `json:"adminDecision,omitempty"`
	Remark        string `json:"remark,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// State returns the record's current workflow state.
func (c *CapacityRecord) State() WorkflowState {
	return WorkflowState{Stage: c.Stage, Status: c.Status}
}

// CapacityUpdate represents the profile fields that can be edited on an
// existing record. Pointer types are used to allow partial updates.
// Workflow fields cannot be edited through it.
type CapacityUpdate struct {
	ID                uuid.UUID
	CompanyEmployeeID *string
	WorkingSince      *time.Time
	CTC               *decimal.Decimal
	JobTitle          *string
	Role              *string
	Gender            *string
	Location          *string
	TotalExperience   *decimal.Decimal
	TechnicalSkills   *string
	Tools             *string
	NumberOfProjects  *int
	EmployerNote      *string
	// Certifications replaces the whole list when non-nil.
	Certifications *[]string
}

// ApplyTo copies the set fields of u onto rec.
func (u *CapacityUpdate) ApplyTo(rec *CapacityRecord) {
	setIf(&rec.CompanyEmployeeID, u.CompanyEmployeeID)
	setIf(&rec.WorkingSince, u.WorkingSince)
	setIf(&rec.CTC, u.CTC)
	setIf(&rec.JobTitle, u.JobTitle)
	setIf(&rec.Role, u.Role)
	setIf(&rec.Gender, u.Gender)
	setIf(&rec.Location, u.Location)
	setIf(&rec.TotalExperience, u.TotalExperience)
	setIf(&rec.TechnicalSkills, u.TechnicalSkills)
	setIf(&rec.Tools, u.Tools)
	setIf(&rec.NumberOfProjects, u.NumberOfProjects)
	setIf(&rec.EmployerNote, u.EmployerNote)
	setIf(&rec.Certifications, u.Certifications)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// CapacityFilter narrows record listings. Zero values match everything.
type CapacityFilter struct {
	CompanyID     *uuid.UUID
	Stages        []ApprovalStage
	Status        *Status
	AdminDecision *bool
}

// EligibleCapacity is the projection returned by the eligibility query.
type EligibleCapacity struct {
	CapacityRecord
	CompanyName string `json:"companyName"`
}

// Company is the subset of a supplier company the service reads.
type Company struct {
	ID                  uuid.UUID
	Name                string
	PrimaryContactEmail string
	CreatedAt           time.Time
}
