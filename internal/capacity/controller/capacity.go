// Package controller implements the service layer of the capacity service:
// manual submission, the approval workflow, eligibility listings and the
// bulk ingestion lifecycle. It orchestrates the pure workflow rules, the
// repositories and event notification.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gartstein/capacity/internal/capacity/approval"
	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/events"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/gartstein/capacity/internal/capacity/validation"
	"github.com/gartstein/capacity/internal/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier publishes workflow events. Implementations must not block.
type Notifier interface {
	Notify(event events.Event)
}

// CapacityRepository defines the storage interface for capacity records.
type CapacityRepository interface {
	CreateCapacities(ctx context.Context, records []*models.CapacityRecord) error
	GetCapacity(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error)
	ApplyTransition(ctx context.Context, id uuid.UUID, outcome approval.Outcome, at time.Time) error
	UpdateCapacityProfile(ctx context.Context, rec *models.CapacityRecord) error
	ListCapacities(ctx context.Context, filter models.CapacityFilter) ([]*models.CapacityRecord, error)
	ListEligible(ctx context.Context, asOf time.Time) ([]*models.EligibleCapacity, error)
}

// CompanyDirectory resolves supplier companies. Companies are onboarded
// elsewhere; this service only reads them.
type CompanyDirectory interface {
	ResolveCompanyID(ctx context.Context, email string) (uuid.UUID, error)
	CompanyExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
}

// CapacityService runs the approval workflow over stored capacity records.
type CapacityService struct {
	repo      CapacityRepository
	companies CompanyDirectory
	notifier  Notifier
	validator *validation.RowValidator
	now       func() time.Time
	logger    *zap.Logger
}

func NewCapacityService(repo CapacityRepository, companies CompanyDirectory, notifier Notifier, logger *zap.Logger) *CapacityService {
	return &CapacityService{
		repo:      repo,
		companies: companies,
		notifier:  notifier,
		validator: validation.NewRowValidator(),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.Named("capacity_service"),
	}
}

// SubmitManual validates a single record, assigns its entry state as of
// today and stores it. Workflow fields on the input are ignored.
func (s *CapacityService) SubmitManual(ctx context.Context, rec *models.CapacityRecord) (*models.CapacityRecord, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: record is required", e.ErrInvalidInput)
	}
	if err := requireCompany(ctx, s.companies, rec.CompanyID); err != nil {
		return nil, err
	}
	if rec.WorkingSince.IsZero() {
		return nil, e.NewMissingFieldError("workingSince")
	}

	rec.WorkingSince = utils.DateOf(rec.WorkingSince)
	rec.Certifications = normalizeCertifications(rec.Certifications)
	if err := s.validator.Validate(rec); err != nil {
		return nil, err
	}

	now := s.now()
	entry := approval.EntryState(rec.IsReferred, rec.WorkingSince, now)
	rec.ID = uuid.New()
	rec.Stage = entry.Stage
	rec.Status = entry.Status
	rec.AdminDecision = nil
	rec.Remark = ""
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.repo.CreateCapacities(ctx, []*models.CapacityRecord{rec}); err != nil {
		return nil, storageFault("create capacity", err)
	}
	s.logger.Info("Capacity submitted",
		zap.String("capacity_id", rec.ID.String()),
		zap.String("company_id", rec.CompanyID.String()),
		zap.Stringer("state", rec.State()),
	)
	return rec, nil
}

func (s *CapacityService) GetCapacity(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error) {
	rec, err := s.repo.GetCapacity(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, storageFault("get capacity", err)
	}
	return rec, nil
}

func (s *CapacityService) HRApprove(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error) {
	return s.decide(ctx, id, approval.Decision{Action: approval.HRApprove}, events.CapacityHRApproved)
}

func (s *CapacityService) HRReject(ctx context.Context, id uuid.UUID, remark string) (*models.CapacityRecord, error) {
	return s.decide(ctx, id, approval.Decision{Action: approval.HRReject, Remark: remark}, events.CapacityHRRejected)
}

// SupplierApprove completes the record. A non-nil elevated flag is stored
// as the record's admin decision.
func (s *CapacityService) SupplierApprove(ctx context.Context, id uuid.UUID, elevated *bool) (*models.CapacityRecord, error) {
	d := approval.Decision{Action: approval.SupplierApprove, Elevated: elevated}
	return s.decide(ctx, id, d, events.CapacitySupplierApproved)
}

func (s *CapacityService) SupplierReject(ctx context.Context, id uuid.UUID, remark string, elevated *bool) (*models.CapacityRecord, error) {
	d := approval.Decision{Action: approval.SupplierReject, Remark: remark, Elevated: elevated}
	return s.decide(ctx, id, d, events.CapacitySupplierRejected)
}

// decide reads the record, asks the workflow rules for the outcome and
// writes it conditionally on the state that was read. A concurrent
// decision that got there first makes this one fail with
// ErrInvalidTransition.
func (s *CapacityService) decide(ctx context.Context, id uuid.UUID, d approval.Decision, eventType events.EventType) (*models.CapacityRecord, error) {
	rec, err := s.GetCapacity(ctx, id)
	if err != nil {
		return nil, err
	}

	outcome, err := approval.Decide(rec.State(), d)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.ApplyTransition(ctx, id, outcome, now); err != nil {
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrInvalidTransition) {
			return nil, err
		}
		return nil, storageFault("apply transition", err)
	}
	outcome.Apply(rec)
	rec.UpdatedAt = now

	s.logger.Info("Capacity decision applied",
		zap.String("capacity_id", id.String()),
		zap.String("action", string(d.Action)),
		zap.Stringer("from", outcome.From),
		zap.Stringer("to", outcome.To),
	)
	s.notifier.Notify(events.CapacityEvent(eventType, rec, now))
	return rec, nil
}

func (s *CapacityService) ListCapacities(ctx context.Context, filter models.CapacityFilter) ([]*models.CapacityRecord, error) {
	recs, err := s.repo.ListCapacities(ctx, filter)
	if err != nil {
		return nil, storageFault("list capacities", err)
	}
	return recs, nil
}

// ListEligible returns every Supplier-stage record whose tenure reached one
// year as of today (UTC).
func (s *CapacityService) ListEligible(ctx context.Context) ([]*models.EligibleCapacity, error) {
	eligible, err := s.repo.ListEligible(ctx, s.now())
	if err != nil {
		return nil, storageFault("list eligible capacities", err)
	}
	return eligible, nil
}

// ListAdminDecisions returns the records an elevated actor approved or
// rejected.
func (s *CapacityService) ListAdminDecisions(ctx context.Context, status models.Status) ([]*models.CapacityRecord, error) {
	var stage models.ApprovalStage
	switch status {
	case models.StatusApproved:
		stage = models.StageCompleted
	case models.StatusRejected:
		stage = models.StageSupplier
	default:
		return nil, fmt.Errorf("%w: admin decisions are either %s or %s",
			e.ErrInvalidInput, models.StatusApproved, models.StatusRejected)
	}
	return s.ListCapacities(ctx, models.CapacityFilter{
		Stages:        []models.ApprovalStage{stage},
		Status:        &status,
		AdminDecision: utils.Ptr(true),
	})
}

// UpdateCapacityProfile edits profile fields of an existing record. The
// result must still pass row validation; the workflow state is untouched.
func (s *CapacityService) UpdateCapacityProfile(ctx context.Context, update *models.CapacityUpdate) (*models.CapacityRecord, error) {
	if update == nil || update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid capacity ID", e.ErrInvalidInput)
	}
	rec, err := s.GetCapacity(ctx, update.ID)
	if err != nil {
		return nil, err
	}

	update.ApplyTo(rec)
	rec.WorkingSince = utils.DateOf(rec.WorkingSince)
	rec.Certifications = normalizeCertifications(rec.Certifications)
	if err := s.validator.Validate(rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.now()

	if err := s.repo.UpdateCapacityProfile(ctx, rec); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, storageFault("update capacity", err)
	}
	return rec, nil
}

// ResolveCompany maps a primary contact e-mail to its company.
func (s *CapacityService) ResolveCompany(ctx context.Context, email string) (uuid.UUID, error) {
	if strings.TrimSpace(email) == "" {
		return uuid.Nil, fmt.Errorf("%w: email is required", e.ErrInvalidInput)
	}
	id, err := s.companies.ResolveCompanyID(ctx, email)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return uuid.Nil, err
		}
		return uuid.Nil, storageFault("resolve company", err)
	}
	return id, nil
}

func (s *CapacityService) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return nil, storageFault("list companies", err)
	}
	return companies, nil
}

func requireCompany(ctx context.Context, companies CompanyDirectory, id uuid.UUID) error {
	if id == uuid.Nil {
		return e.NewMissingFieldError("companyId")
	}
	ok, err := companies.CompanyExists(ctx, id)
	if err != nil {
		return storageFault("check company", err)
	}
	if !ok {
		return fmt.Errorf("%w: company %s", e.ErrNotFound, id)
	}
	return nil
}

func normalizeCertifications(names []string) []string {
	var out []string
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func storageFault(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", e.ErrStorageFault, op, err)
}
