package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// inputToModel converts a submitted capacity into a candidate record.
// A blank workingSince is left zero for the service to report.
func inputToModel(in *CapacityInput) (*models.CapacityRecord, error) {
	companyID, err := uuid.Parse(in.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid company ID", e.ErrInvalidInput)
	}
	var workingSince time.Time
	if strings.TrimSpace(in.WorkingSince) != "" {
		if workingSince, err = parseDate("workingSince", in.WorkingSince); err != nil {
			return nil, err
		}
	}

	return &models.CapacityRecord{
		CompanyID:         companyID,
		CompanyEmployeeID: in.CompanyEmployeeID,
		WorkingSince:      workingSince,
		CTC:               in.CTC,
		JobTitle:          in.JobTitle,
		Role:              in.Role,
		Gender:            in.Gender,
		Location:          in.Location,
		TotalExperience:   in.TotalExperience,
		TechnicalSkills:   in.TechnicalSkills,
		Tools:             in.Tools,
		NumberOfProjects:  in.NumberOfProjects,
		EmployerNote:      in.EmployerNote,
		IsReferred:        in.IsReferred,
		Certifications:    in.Certifications,
	}, nil
}

// requestToUpdate converts a profile edit into a partial update.
func requestToUpdate(req *UpdateCapacityProfileRequest) (*models.CapacityUpdate, error) {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid capacity ID", e.ErrInvalidInput)
	}
	update := &models.CapacityUpdate{
		ID:                id,
		CompanyEmployeeID: req.CompanyEmployeeID,
		CTC:               req.CTC,
		JobTitle:          req.JobTitle,
		Role:              req.Role,
		Gender:            req.Gender,
		Location:          req.Location,
		TotalExperience:   req.TotalExperience,
		TechnicalSkills:   req.TechnicalSkills,
		Tools:             req.Tools,
		NumberOfProjects:  req.NumberOfProjects,
		EmployerNote:      req.EmployerNote,
		Certifications:    req.Certifications,
	}
	if req.WorkingSince != nil {
		d, err := parseDate("workingSince", *req.WorkingSince)
		if err != nil {
			return nil, err
		}
		update.WorkingSince = &d
	}
	return update, nil
}

func requestToFilter(req *ListCapacitiesRequest) (models.CapacityFilter, error) {
	var filter models.CapacityFilter
	if req.CompanyID != "" {
		id, err := uuid.Parse(req.CompanyID)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid company ID", e.ErrInvalidInput)
		}
		filter.CompanyID = &id
	}
	for _, raw := range req.Stages {
		stage, err := models.ParseApprovalStage(raw)
		if err != nil {
			return filter, err
		}
		filter.Stages = append(filter.Stages, stage)
	}
	if req.Status != "" {
		st, err := models.ParseStatus(req.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &st
	}
	return filter, nil
}

func parseDate(field, raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, e.NewParseError(field, fmt.Sprintf("expected %s, got %q", DateLayout, raw))
	}
	return d, nil
}

func modelToDTO(rec *models.CapacityRecord) *Capacity {
	certs := rec.Certifications
	if certs == nil {
		certs = []string{}
	}
	return &Capacity{
		ID:                rec.ID.String(),
		CompanyID:         rec.CompanyID.String(),
		CompanyEmployeeID: rec.CompanyEmployeeID,
		WorkingSince:      rec.WorkingSince.Format(DateLayout),
		CTC:               rec.CTC,
		JobTitle:          rec.JobTitle,
		Role:              rec.Role,
		Gender:            rec.Gender,
		Location:          rec.Location,
		TotalExperience:   rec.TotalExperience,
		TechnicalSkills:   rec.TechnicalSkills,
		Tools:             rec.Tools,
		NumberOfProjects:  rec.NumberOfProjects,
		EmployerNote:      rec.EmployerNote,
		IsReferred:        rec.IsReferred,
		Certifications:    certs,
		ApprovalStage:     string(rec.Stage),
		Status:            string(rec.Status),
		AdminDecision:     rec.AdminDecision,
		Remark:            rec.Remark,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

func listResponse(recs []*models.CapacityRecord) *ListCapacitiesResponse {
	resp := &ListCapacitiesResponse{Capacities: make([]*Capacity, 0, len(recs))}
	for _, rec := range recs {
		resp.Capacities = append(resp.Capacities, modelToDTO(rec))
	}
	return resp
}

func batchToDTO(b *models.Batch) *Batch {
	rowErrors := make([]RowError, 0, len(b.RowErrors))
	for _, re := range b.RowErrors {
		rowErrors = append(rowErrors, RowError{RowNumber: re.RowNumber, Reason: re.Reason})
	}
	return &Batch{
		ID:           b.ID,
		CompanyID:    b.CompanyID.String(),
		UploadedBy:   b.UploadedBy,
		FileName:     b.FileName,
		Status:       string(b.Status),
		TotalRows:    b.TotalRows,
		SuccessCount: b.SuccessCount,
		FailureCount: b.FailureCount,
		RowErrors:    rowErrors,
		CreatedAt:    b.CreatedAt,
		FinishedAt:   b.FinishedAt,
	}
}

func companyToDTO(c *models.Company) *Company {
	return &Company{
		ID:                  c.ID.String(),
		Name:                c.Name,
		PrimaryContactEmail: c.PrimaryContactEmail,
	}
}

// mapServiceError maps domain or repository errors to appropriate gRPC status codes.
func (h *CapacityHandler) mapServiceError(err error) error {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, e.ErrInvalidInput),
		errors.Is(err, e.ErrTemplateValidation),
		errors.Is(err, e.ErrRowParse),
		errors.Is(err, e.ErrMissingRequiredField),
		errors.Is(err, e.ErrInvalidValue):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, e.ErrStorageFault):
		h.logger.Error("Storage fault", zap.Error(err))
		return status.Error(codes.Unavailable, "storage temporarily unavailable")
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}
