package handlers

import (
	"context"

	"github.com/gartstein/capacity/internal/capacity/auth"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CapacityHandler serves capacity.v1.CapacityService, mapping requests onto
// the capacity and ingestion controllers.
type CapacityHandler struct {
	capacities CapacityController
	ingestion  IngestionController
	logger     *zap.Logger
}

var _ CapacityServiceServer = (*CapacityHandler)(nil)

func NewCapacityHandler(capacities CapacityController, ingestion IngestionController, logger *zap.Logger) *CapacityHandler {
	return &CapacityHandler{
		capacities: capacities,
		ingestion:  ingestion,
		logger:     logger.Named("grpc_handler"),
	}
}

// SubmitManual stores a single record submitted through the form.
func (h *CapacityHandler) SubmitManual(ctx context.Context, req *SubmitManualRequest) (*CapacityResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.Capacity == nil {
		return nil, status.Error(codes.InvalidArgument, "capacity data required")
	}
	rec, err := inputToModel(req.Capacity)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	if !actor.CanActFor(rec.CompanyID) {
		return nil, status.Error(codes.PermissionDenied, "cannot submit capacity for another company")
	}

	created, err := h.capacities.SubmitManual(ctx, rec)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return &CapacityResponse{Capacity: modelToDTO(created)}, nil
}

// StartBulkIngestion accepts a workbook and returns the batch tracking it.
func (h *CapacityHandler) StartBulkIngestion(ctx context.Context, req *StartBulkIngestionRequest) (*StartBulkIngestionResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid company ID")
	}
	if !actor.CanActFor(companyID) {
		return nil, status.Error(codes.PermissionDenied, "cannot upload capacity for another company")
	}

	batchID, err := h.ingestion.StartBulkIngestion(ctx, companyID, uploader(actor), req.FileName, req.Content)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return &StartBulkIngestionResponse{BatchID: batchID}, nil
}

func (h *CapacityHandler) GetBatchStatus(ctx context.Context, req *GetBatchStatusRequest) (*BatchResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.BatchID == 0 {
		return nil, status.Error(codes.InvalidArgument, "invalid batch ID")
	}
	batch, err := h.ingestion.GetBatchStatus(ctx, req.BatchID)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	if !actor.CanActFor(batch.CompanyID) {
		return nil, status.Error(codes.NotFound, "batch not found")
	}
	return &BatchResponse{Batch: batchToDTO(batch)}, nil
}

func (h *CapacityHandler) GetCapacity(ctx context.Context, req *CapacityIDRequest) (*CapacityResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := h.visibleCapacity(ctx, actor, req.ID)
	if err != nil {
		return nil, err
	}
	return &CapacityResponse{Capacity: modelToDTO(rec)}, nil
}

// UpdateCapacityProfile edits profile fields of a record owned by the
// caller's company.
func (h *CapacityHandler) UpdateCapacityProfile(ctx context.Context, req *UpdateCapacityProfileRequest) (*CapacityResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := h.visibleCapacity(ctx, actor, req.ID); err != nil {
		return nil, err
	}
	update, err := requestToUpdate(req)
	if err != nil {
		return nil, h.mapServiceError(err)
	}

	updated, err := h.capacities.UpdateCapacityProfile(ctx, update)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return &CapacityResponse{Capacity: modelToDTO(updated)}, nil
}

func (h *CapacityHandler) HRApprove(ctx context.Context, req *CapacityIDRequest) (*CapacityResponse, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return h.decided(h.capacities.HRApprove(ctx, id))
}

func (h *CapacityHandler) HRReject(ctx context.Context, req *RejectRequest) (*CapacityResponse, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	return h.decided(h.capacities.HRReject(ctx, id, req.Remark))
}

func (h *CapacityHandler) SupplierApprove(ctx context.Context, req *SupplierDecisionRequest) (*CapacityResponse, error) {
	id, elevated, err := h.supplierDecision(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.decided(h.capacities.SupplierApprove(ctx, id, elevated))
}

func (h *CapacityHandler) SupplierReject(ctx context.Context, req *SupplierDecisionRequest) (*CapacityResponse, error) {
	id, elevated, err := h.supplierDecision(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.decided(h.capacities.SupplierReject(ctx, id, req.Remark, elevated))
}

// supplierDecision validates a supplier-stage request. Only administrators
// may flag a decision as elevated.
func (h *CapacityHandler) supplierDecision(ctx context.Context, req *SupplierDecisionRequest) (uuid.UUID, *bool, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return uuid.Nil, nil, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if req.Elevated != nil && *req.Elevated && !actor.IsAdmin() {
		return uuid.Nil, nil, status.Error(codes.PermissionDenied, "only administrators may make elevated decisions")
	}
	return id, req.Elevated, nil
}

func (h *CapacityHandler) decided(rec *models.CapacityRecord, err error) (*CapacityResponse, error) {
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return &CapacityResponse{Capacity: modelToDTO(rec)}, nil
}

// ListCapacities lists records by company, stage and status. Company users
// only see their own company.
func (h *CapacityHandler) ListCapacities(ctx context.Context, req *ListCapacitiesRequest) (*ListCapacitiesResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	filter, err := requestToFilter(req)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	if actor.Role == auth.RoleCompany {
		if filter.CompanyID != nil && !actor.CanActFor(*filter.CompanyID) {
			return nil, status.Error(codes.PermissionDenied, "cannot list capacity of another company")
		}
		filter.CompanyID = &actor.CompanyID
	}

	recs, err := h.capacities.ListCapacities(ctx, filter)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return listResponse(recs), nil
}

// ListEligible lists Supplier-stage records with at least one year of tenure.
func (h *CapacityHandler) ListEligible(ctx context.Context, _ *ListEligibleRequest) (*ListCapacitiesResponse, error) {
	eligible, err := h.capacities.ListEligible(ctx)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	resp := &ListCapacitiesResponse{Capacities: make([]*Capacity, 0, len(eligible))}
	for _, ec := range eligible {
		c := modelToDTO(&ec.CapacityRecord)
		c.CompanyName = ec.CompanyName
		resp.Capacities = append(resp.Capacities, c)
	}
	return resp, nil
}

func (h *CapacityHandler) ListAdminDecisions(ctx context.Context, req *ListAdminDecisionsRequest) (*ListCapacitiesResponse, error) {
	st, err := models.ParseStatus(req.Status)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	recs, err := h.capacities.ListAdminDecisions(ctx, st)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return listResponse(recs), nil
}

func (h *CapacityHandler) ResolveCompany(ctx context.Context, req *ResolveCompanyRequest) (*ResolveCompanyResponse, error) {
	id, err := h.capacities.ResolveCompany(ctx, req.Email)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	return &ResolveCompanyResponse{CompanyID: id.String()}, nil
}

func (h *CapacityHandler) ListCompanies(ctx context.Context, _ *ListCompaniesRequest) (*ListCompaniesResponse, error) {
	companies, err := h.capacities.ListCompanies(ctx)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	resp := &ListCompaniesResponse{Companies: make([]*Company, 0, len(companies))}
	for _, c := range companies {
		resp.Companies = append(resp.Companies, companyToDTO(c))
	}
	return resp, nil
}

// visibleCapacity loads a record, hiding records of other companies from
// company users.
func (h *CapacityHandler) visibleCapacity(ctx context.Context, actor *auth.Actor, rawID string) (*models.CapacityRecord, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	rec, err := h.capacities.GetCapacity(ctx, id)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	if !actor.CanActFor(rec.CompanyID) {
		return nil, status.Error(codes.NotFound, "capacity not found")
	}
	return rec, nil
}

func actorFrom(ctx context.Context) (*auth.Actor, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "caller is not authenticated")
	}
	return actor, nil
}

func uploader(actor *auth.Actor) string {
	if actor.Email != "" {
		return actor.Email
	}
	return actor.ID
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "invalid capacity ID")
	}
	return id, nil
}
