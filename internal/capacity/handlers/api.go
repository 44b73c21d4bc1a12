package handlers

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// CapacityInput is a capacity record as submitted by a supplier.
type CapacityInput struct {
	CompanyID         string          `json:"companyId"`
	CompanyEmployeeID string          `json:"companyEmployeeId"`
	WorkingSince      string          `json:"workingSince"`
	CTC               decimal.Decimal `json:"ctc"`
	JobTitle          string          `json:"jobTitle"`
	Role              string          `json:"role"`
	Gender            string          `json:"gender"`
	Location          string          `json:"location"`
	TotalExperience   decimal.Decimal `json:"totalExperience"`
	TechnicalSkills   string          `json:"technicalSkills"`
	Tools             string          `json:"tools"`
	NumberOfProjects  int             `json:"numberOfProjects"`
	EmployerNote      string          `json:"employerNote"`
	IsReferred        bool            `json:"isReferred"`
	Certifications    []string        `json:"certifications"`
}

// Capacity is a stored capacity record with its workflow state.
type Capacity struct {
	ID                string          `json:"id"`
	CompanyID         string          `json:"companyId"`
	CompanyName       string          `json:"companyName,omitempty"`
	CompanyEmployeeID string          `json:"companyEmployeeId"`
	WorkingSince      string          `json:"workingSince"`
	CTC               decimal.Decimal `json:"ctc"`
	JobTitle          string          `json:"jobTitle"`
	Role              string          `json:"role"`
	Gender            string          `json:"gender"`
	Location          string          `json:"location"`
	TotalExperience   decimal.Decimal `json:"totalExperience"`
	TechnicalSkills   string          `json:"technicalSkills"`
	Tools             string          `json:"tools"`
	NumberOfProjects  int             `json:"numberOfProjects"`
	EmployerNote      string          `json:"employerNote"`
	IsReferred        bool            `json:"isReferred"`
	Certifications    []string        `json:"certifications"`
	ApprovalStage     string          `json:"approvalStage"`
	Status            string          `json:"status"`
	AdminDecision     *bool           `json:"adminDecision,omitempty"`
	Remark            string          `json:"remark,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// RowError is one rejected spreadsheet row of a batch.
type RowError struct {
	RowNumber int    `json:"rowNumber"`
	Reason    string `json:"reason"`
}

// Batch is the status of a bulk upload.
type Batch struct {
	ID           uint64     `json:"id"`
	CompanyID    string     `json:"companyId"`
	UploadedBy   string     `json:"uploadedBy"`
	FileName     string     `json:"fileName"`
	Status       string     `json:"status"`
	TotalRows    int        `json:"totalRows"`
	SuccessCount int        `json:"successCount"`
	FailureCount int        `json:"failureCount"`
	RowErrors    []RowError `json:"rowErrors"`
	CreatedAt    time.Time  `json:"createdAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

// Company is a supplier company known to the directory.
type Company struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	PrimaryContactEmail string `json:"primaryContactEmail"`
}

type SubmitManualRequest struct {
	Capacity *CapacityInput `json:"capacity"`
}

type CapacityResponse struct {
	Capacity *Capacity `json:"capacity"`
}

type StartBulkIngestionRequest struct {
	CompanyID string `json:"companyId"`
	FileName  string `json:"fileName"`
	// Content is the raw xlsx workbook.
	Content []byte `json:"content"`
}

type StartBulkIngestionResponse struct {
	BatchID uint64 `json:"batchId"`
}

type GetBatchStatusRequest struct {
	BatchID uint64 `json:"batchId"`
}

type BatchResponse struct {
	Batch *Batch `json:"batch"`
}

type CapacityIDRequest struct {
	ID string `json:"id"`
}

type RejectRequest struct {
	ID     string `json:"id"`
	Remark string `json:"remark"`
}

// SupplierDecisionRequest approves or rejects a record at the supplier
// stage. Elevated marks the decision as an administrator's.
type SupplierDecisionRequest struct {
	ID       string `json:"id"`
	Remark   string `json:"remark,omitempty"`
	Elevated *bool  `json:"elevated,omitempty"`
}

// ListCapacitiesRequest filters records; empty fields match everything.
type ListCapacitiesRequest struct {
	CompanyID string   `json:"companyId,omitempty"`
	Stages    []string `json:"stages,omitempty"`
	Status    string   `json:"status,omitempty"`
}

type ListCapacitiesResponse struct {
	Capacities []*Capacity `json:"capacities"`
}

type ListEligibleRequest struct{}

type ListAdminDecisionsRequest struct {
	Status string `json:"status"`
}

// UpdateCapacityProfileRequest edits the set fields of a record.
// Certifications replaces the whole list when present.
type UpdateCapacityProfileRequest struct {
	ID                string           `json:"id"`
	CompanyEmployeeID *string          `json:"companyEmployeeId,omitempty"`
	WorkingSince      *string          `json:"workingSince,omitempty"`
	CTC               *decimal.Decimal `json:"ctc,omitempty"`
	JobTitle          *string          `json:"jobTitle,omitempty"`
	Role              *string          `json:"role,omitempty"`
	Gender            *string          `json:"gender,omitempty"`
	Location          *string          `json:"location,omitempty"`
	TotalExperience   *decimal.Decimal `json:"totalExperience,omitempty"`
	TechnicalSkills   *string          `json:"technicalSkills,omitempty"`
	Tools             *string          `json:"tools,omitempty"`
	NumberOfProjects  *int             `json:"numberOfProjects,omitempty"`
	EmployerNote      *string          `json:"employerNote,omitempty"`
	Certifications    *[]string        `json:"certifications,omitempty"`
}

type ResolveCompanyRequest struct {
	Email string `json:"email"`
}

type ResolveCompanyResponse struct {
	CompanyID string `json:"companyId"`
}

type ListCompaniesRequest struct{}

type ListCompaniesResponse struct {
	Companies []*Company `json:"companies"`
}
