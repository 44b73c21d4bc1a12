package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gartstein/capacity/internal/capacity/auth"
	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/gartstein/capacity/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mockCapacities is a function-field implementation of CapacityController.
type mockCapacities struct {
	submitManualFunc       func(ctx context.Context, rec *models.CapacityRecord) (*models.CapacityRecord, error)
	getCapacityFunc        func(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error)
	updateFunc             func(ctx context.Context, update *models.CapacityUpdate) (*models.CapacityRecord, error)
	hrApproveFunc          func(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error)
	hrRejectFunc           func(ctx context.Context, id uuid.UUID, remark string) (*models.CapacityRecord, error)
	supplierApproveFunc    func(ctx context.Context, id uuid.UUID, elevated *bool) (*models.CapacityRecord, error)
	supplierRejectFunc     func(ctx context.Context, id uuid.UUID, remark string, elevated *bool) (*models.CapacityRecord, error)
	listCapacitiesFunc     func(ctx context.Context, filter models.CapacityFilter) ([]*models.CapacityRecord, error)
	listEligibleFunc       func(ctx context.Context) ([]*models.EligibleCapacity, error)
	listAdminDecisionsFunc func(ctx context.Context, status models.Status) ([]*models.CapacityRecord, error)
	resolveCompanyFunc     func(ctx context.Context, email string) (uuid.UUID, error)
	listCompaniesFunc      func(ctx context.Context) ([]*models.Company, error)
}

func (m *mockCapacities) SubmitManual(ctx context.Context, rec *models.CapacityRecord) (*models.CapacityRecord, error) {
	return m.submitManualFunc(ctx, rec)
}

func (m *mockCapacities) GetCapacity(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error) {
	return m.getCapacityFunc(ctx, id)
}

func (m *mockCapacities) UpdateCapacityProfile(ctx context.Context, update *models.CapacityUpdate) (*models.CapacityRecord, error) {
	return m.updateFunc(ctx, update)
}

func (m *mockCapacities) HRApprove(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error) {
	return m.hrApproveFunc(ctx, id)
}

func (m *mockCapacities) HRReject(ctx context.Context, id uuid.UUID, remark string) (*models.CapacityRecord, error) {
	return m.hrRejectFunc(ctx, id, remark)
}

func (m *mockCapacities) SupplierApprove(ctx context.Context, id uuid.UUID, elevated *bool) (*models.CapacityRecord, error) {
	return m.supplierApproveFunc(ctx, id, elevated)
}

func (m *mockCapacities) SupplierReject(ctx context.Context, id uuid.UUID, remark string, elevated *bool) (*models.CapacityRecord, error) {
	return m.supplierRejectFunc(ctx, id, remark, elevated)
}

func (m *mockCapacities) ListCapacities(ctx context.Context, filter models.CapacityFilter) ([]*models.CapacityRecord, error) {
	return m.listCapacitiesFunc(ctx, filter)
}

func (m *mockCapacities) ListEligible(ctx context.Context) ([]*models.EligibleCapacity, error) {
	return m.listEligibleFunc(ctx)
}

func (m *mockCapacities) ListAdminDecisions(ctx context.Context, status models.Status) ([]*models.CapacityRecord, error) {
	return m.listAdminDecisionsFunc(ctx, status)
}

func (m *mockCapacities) ResolveCompany(ctx context.Context, email string) (uuid.UUID, error) {
	return m.resolveCompanyFunc(ctx, email)
}

func (m *mockCapacities) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	return m.listCompaniesFunc(ctx)
}

type mockIngestion struct {
	startFunc     func(ctx context.Context, companyID uuid.UUID, uploadedBy, fileName string, content []byte) (uint64, error)
	batchStatusFn func(ctx context.Context, batchID uint64) (*models.Batch, error)
}

func (m *mockIngestion) StartBulkIngestion(ctx context.Context, companyID uuid.UUID, uploadedBy, fileName string, content []byte) (uint64, error) {
	return m.startFunc(ctx, companyID, uploadedBy, fileName, content)
}

func (m *mockIngestion) GetBatchStatus(ctx context.Context, batchID uint64) (*models.Batch, error) {
	return m.batchStatusFn(ctx, batchID)
}

var (
	acmeID  = uuid.MustParse("8a4c3f8e-51d2-4a49-9a0f-0c1d2e3f4a5b")
	otherID = uuid.MustParse("1b2c3d4e-5f60-4718-8293-a4b5c6d7e8f9")
)

func withActor(role auth.Role, companyID uuid.UUID) context.Context {
	return auth.WithActor(context.Background(), &auth.Actor{
		ID:        "user-1",
		Role:      role,
		CompanyID: companyID,
		Email:     string(role) + "@acme.test",
	})
}

func storedRecord(companyID uuid.UUID) *models.CapacityRecord {
	created := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	return &models.CapacityRecord{
		ID:                uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"),
		CompanyID:         companyID,
		CompanyEmployeeID: "E-1",
		WorkingSince:      time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		CTC:               decimal.RequireFromString("72000.50"),
		TotalExperience:   decimal.RequireFromString("3.5"),
		Stage:             models.StageSupplier,
		Status:            models.StatusApproved,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "expected a gRPC status, got %v", err)
	assert.Equal(t, want, st.Code(), st.Message())
}

func TestCapacityHandler_SubmitManual(t *testing.T) {
	logger := zaptest.NewLogger(t)
	input := func(companyID uuid.UUID) *CapacityInput {
		return &CapacityInput{
			CompanyID:         companyID.String(),
			CompanyEmployeeID: "E-1",
			WorkingSince:      "2023-03-01",
			CTC:               decimal.RequireFromString("72000.50"),
			TotalExperience:   decimal.RequireFromString("3.5"),
			IsReferred:        true,
			Certifications:    []string{"CKA"},
		}
	}

	t.Run("Success", func(t *testing.T) {
		var got *models.CapacityRecord
		ctrl := &mockCapacities{
			submitManualFunc: func(_ context.Context, rec *models.CapacityRecord) (*models.CapacityRecord, error) {
				got = rec
				stored := storedRecord(rec.CompanyID)
				stored.Stage, stored.Status = models.StageHR, models.StatusPending
				return stored, nil
			},
		}
		h := NewCapacityHandler(ctrl, &mockIngestion{}, logger)

		resp, err := h.SubmitManual(withActor(auth.RoleCompany, acmeID), &SubmitManualRequest{Capacity: input(acmeID)})

		require.NoError(t, err)
		assert.Equal(t, acmeID, got.CompanyID)
		assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), got.WorkingSince)
		assert.True(t, got.CTC.Equal(decimal.RequireFromString("72000.50")))
		assert.True(t, got.IsReferred)
		assert.Equal(t, "HR", resp.Capacity.ApprovalStage)
		assert.Equal(t, "Pending", resp.Capacity.Status)
		assert.Equal(t, "2023-03-01", resp.Capacity.WorkingSince)
		assert.Equal(t, []string{}, resp.Capacity.Certifications)
	})

	t.Run("BlankDateLeftForService", func(t *testing.T) {
		ctrl := &mockCapacities{
			submitManualFunc: func(_ context.Context, rec *models.CapacityRecord) (*models.CapacityRecord, error) {
				assert.True(t, rec.WorkingSince.IsZero())
				return nil, e.NewMissingFieldError("workingSince")
			},
		}
		h := NewCapacityHandler(ctrl, &mockIngestion{}, logger)
		in := input(acmeID)
		in.WorkingSince = " "

		_, err := h.SubmitManual(withActor(auth.RoleSupplier, uuid.Nil), &SubmitManualRequest{Capacity: in})
		assertCode(t, err, codes.InvalidArgument)
	})

	tests := []struct {
		name string
		ctx  context.Context
		req  *SubmitManualRequest
		want codes.Code
	}{
		{name: "Unauthenticated", ctx: context.Background(), req: &SubmitManualRequest{Capacity: input(acmeID)}, want: codes.Unauthenticated},
		{name: "NilCapacity", ctx: withActor(auth.RoleAdmin, uuid.Nil), req: &SubmitManualRequest{}, want: codes.InvalidArgument},
		{name: "OtherCompany", ctx: withActor(auth.RoleCompany, otherID), req: &SubmitManualRequest{Capacity: input(acmeID)}, want: codes.PermissionDenied},
		{
			name: "BadDate",
			ctx:  withActor(auth.RoleCompany, acmeID),
			req: &SubmitManualRequest{Capacity: func() *CapacityInput {
				in := input(acmeID)
				in.WorkingSince = "01/03/2023"
				return in
			}()},
			want: codes.InvalidArgument,
		},
		{
			name: "BadCompanyID",
			ctx:  withActor(auth.RoleAdmin, uuid.Nil),
			req: &SubmitManualRequest{Capacity: func() *CapacityInput {
				in := input(acmeID)
				in.CompanyID = "acme"
				return in
			}()},
			want: codes.InvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCapacityHandler(&mockCapacities{}, &mockIngestion{}, logger)
			_, err := h.SubmitManual(tt.ctx, tt.req)
			assertCode(t, err, tt.want)
		})
	}
}

func TestCapacityHandler_SupplierDecisions(t *testing.T) {
	logger := zaptest.NewLogger(t)
	id := storedRecord(acmeID).ID

	t.Run("ElevatedRequiresAdmin", func(t *testing.T) {
		h := NewCapacityHandler(&mockCapacities{}, &mockIngestion{}, logger)
		req := &SupplierDecisionRequest{ID: id.String(), Elevated: utils.Ptr(true)}

		_, err := h.SupplierApprove(withActor(auth.RoleSupplier, uuid.Nil), req)
		assertCode(t, err, codes.PermissionDenied)
		_, err = h.SupplierReject(withActor(auth.RoleSupplier, uuid.Nil), req)
		assertCode(t, err, codes.PermissionDenied)
	})

	t.Run("AdminElevatedReject", func(t *testing.T) {
		ctrl := &mockCapacities{
			supplierRejectFunc: func(_ context.Context, got uuid.UUID, remark string, elevated *bool) (*models.CapacityRecord, error) {
				assert.Equal(t, id, got)
				assert.Equal(t, "no budget", remark)
				require.NotNil(t, elevated)
				assert.True(t, *elevated)
				rec := storedRecord(acmeID)
				rec.Status, rec.Remark, rec.AdminDecision = models.StatusRejected, remark, utils.Ptr(true)
				return rec, nil
			},
		}
		h := NewCapacityHandler(ctrl, &mockIngestion{}, logger)

		resp, err := h.SupplierReject(withActor(auth.RoleAdmin, uuid.Nil),
			&SupplierDecisionRequest{ID: id.String(), Remark: "no budget", Elevated: utils.Ptr(true)})

		require.NoError(t, err)
		assert.Equal(t, "Rejected", resp.Capacity.Status)
		assert.Equal(t, utils.Ptr(true), resp.Capacity.AdminDecision)
	})

	t.Run("SupplierApproveNotElevated", func(t *testing.T) {
		ctrl := &mockCapacities{
			supplierApproveFunc: func(_ context.Context, _ uuid.UUID, elevated *bool) (*models.CapacityRecord, error) {
				assert.Nil(t, elevated)
				rec := storedRecord(acmeID)
				rec.Stage = models.StageCompleted
				return rec, nil
			},
		}
		h := NewCapacityHandler(ctrl, &mockIngestion{}, logger)

		resp, err := h.SupplierApprove(withActor(auth.RoleSupplier, uuid.Nil), &SupplierDecisionRequest{ID: id.String()})
		require.NoError(t, err)
		assert.Equal(t, "Completed", resp.Capacity.ApprovalStage)
	})

	t.Run("InvalidTransition", func(t *testing.T) {
		ctrl := &mockCapacities{
			hrRejectFunc: func(context.Context, uuid.UUID, string) (*models.CapacityRecord, error) {
				return nil, &e.TransitionError{Action: "hr_reject", Stage: "Supplier", Status: "Approved"}
			},
		}
		h := NewCapacityHandler(ctrl, &mockIngestion{}, logger)

		_, err := h.HRReject(context.Background(), &RejectRequest{ID: id.String(), Remark: "late"})
		assertCode(t, err, codes.FailedPrecondition)
	})

	t.Run("BadID", func(t *testing.T) {
		h := NewCapacityHandler(&mockCapacities{}, &mockIngestion{}, logger)
		_, err := h.HRApprove(context.Background(), &CapacityIDRequest{ID: "42"})
		assertCode(t, err, codes.InvalidArgument)
	})
}

func TestCapacityHandler_CompanyScope(t *testing.T) {
	logger := zaptest.NewLogger(t)
	rec := storedRecord(acmeID)
	ctrl := &mockCapacities{
		getCapacityFunc: func(context.Context, uuid.UUID) (*models.CapacityRecord, error) {
			return storedRecord(acmeID), nil
		},
		updateFunc: func(_ context.Context, u *models.CapacityUpdate) (*models.CapacityRecord, error) {
			updated := storedRecord(acmeID)
			u.ApplyTo(updated)
			return updated, nil
		},
	}
	h := NewCapacityHandler(ctrl, &mockIngestion{}, logger)

	t.Run("GetOwnRecord", func(t *testing.T) {
		resp, err := h.GetCapacity(withActor(auth.RoleCompany, acmeID), &CapacityIDRequest{ID: rec.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, acmeID.String(), resp.Capacity.CompanyID)
	})

	t.Run("OtherCompanyRecordIsHidden", func(t *testing.T) {
		_, err := h.GetCapacity(withActor(auth.RoleCompany, otherID), &CapacityIDRequest{ID: rec.ID.String()})
		assertCode(t, err, codes.NotFound)

		_, err = h.UpdateCapacityProfile(withActor(auth.RoleCompany, otherID), &UpdateCapacityProfileRequest{ID: rec.ID.String()})
		assertCode(t, err, codes.NotFound)
	})

	t.Run("UpdateProfile", func(t *testing.T) {
		resp, err := h.UpdateCapacityProfile(withActor(auth.RoleCompany, acmeID), &UpdateCapacityProfileRequest{
			ID:             rec.ID.String(),
			WorkingSince:   utils.Ptr("2022-01-10"),
			Certifications: &[]string{"AWS"},
		})
		require.NoError(t, err)
		assert.Equal(t, "2022-01-10", resp.Capacity.WorkingSince)
		assert.Equal(t, []string{"AWS"}, resp.Capacity.Certifications)
		assert.Equal(t, "Approved", resp.Capacity.Status)
	})

	t.Run("UpdateBadDate", func(t *testing.T) {
		_, err := h.UpdateCapacityProfile(withActor(auth.RoleAdmin, uuid.Nil), &UpdateCapacityProfileRequest{
			ID:           rec.ID.String(),
			WorkingSince: utils.Ptr("yesterday"),
		})
		assertCode(t, err, codes.InvalidArgument)
	})
}

func TestCapacityHandler_ListCapacities(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var got models.CapacityFilter
	ctrl := &mockCapacities{
		listCapacitiesFunc: func(_ context.Context, filter models.CapacityFilter) ([]*models.CapacityRecord, error) {
			got = filter
			return []*models.CapacityRecord{storedRecord(acmeID)}, nil
		},
	}
	h := NewCapacityHandler(ctrl, &mockIngestion{}, logger)

	t.Run("CompanyUserSeesOwnCompany", func(t *testing.T) {
		resp, err := h.ListCapacities(withActor(auth.RoleCompany, acmeID), &ListCapacitiesRequest{Status: "pending"})
		require.NoError(t, err)
		require.NotNil(t, got.CompanyID)
		assert.Equal(t, acmeID, *got.CompanyID)
		assert.Equal(t, models.StatusPending, *got.Status)
		assert.Len(t, resp.Capacities, 1)
	})

	t.Run("CompanyUserOtherCompany", func(t *testing.T) {
		_, err := h.ListCapacities(withActor(auth.RoleCompany, acmeID), &ListCapacitiesRequest{CompanyID: otherID.String()})
		assertCode(t, err, codes.PermissionDenied)
	})

	t.Run("HRQueueAcrossCompanies", func(t *testing.T) {
		_, err := h.ListCapacities(withActor(auth.RoleHR, uuid.Nil), &ListCapacitiesRequest{Stages: []string{"hr"}, Status: "Pending"})
		require.NoError(t, err)
		assert.Nil(t, got.CompanyID)
		assert.Equal(t, []models.ApprovalStage{models.StageHR}, got.Stages)
	})

	t.Run("UnknownStage", func(t *testing.T) {
		_, err := h.ListCapacities(withActor(auth.RoleHR, uuid.Nil), &ListCapacitiesRequest{Stages: []string{"Legal"}})
		assertCode(t, err, codes.InvalidArgument)
	})
}

func TestCapacityHandler_Listings(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctrl := &mockCapacities{
		listEligibleFunc: func(context.Context) ([]*models.EligibleCapacity, error) {
			return []*models.EligibleCapacity{{CapacityRecord: *storedRecord(acmeID), CompanyName: "Acme"}}, nil
		},
		listAdminDecisionsFunc: func(_ context.Context, st models.Status) ([]*models.CapacityRecord, error) {
			assert.Equal(t, models.StatusRejected, st)
			return nil, nil
		},
		resolveCompanyFunc: func(_ context.Context, email string) (uuid.UUID, error) {
			if email == "ops@acme.test" {
				return acmeID, nil
			}
			return uuid.Nil, fmt.Errorf("%w: company with contact %q", e.ErrNotFound, email)
		},
		listCompaniesFunc: func(context.Context) ([]*models.Company, error) {
			return []*models.Company{{ID: acmeID, Name: "Acme", PrimaryContactEmail: "ops@acme.test"}}, nil
		},
	}
	h := NewCapacityHandler(ctrl, &mockIngestion{}, logger)
	ctx := withActor(auth.RoleSupplier, uuid.Nil)

	eligible, err := h.ListEligible(ctx, &ListEligibleRequest{})
	require.NoError(t, err)
	require.Len(t, eligible.Capacities, 1)
	assert.Equal(t, "Acme", eligible.Capacities[0].CompanyName)

	decisions, err := h.ListAdminDecisions(ctx, &ListAdminDecisionsRequest{Status: "rejected"})
	require.NoError(t, err)
	assert.Empty(t, decisions.Capacities)
	_, err = h.ListAdminDecisions(ctx, &ListAdminDecisionsRequest{Status: "maybe"})
	assertCode(t, err, codes.InvalidArgument)

	resolved, err := h.ResolveCompany(ctx, &ResolveCompanyRequest{Email: "ops@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, acmeID.String(), resolved.CompanyID)
	_, err = h.ResolveCompany(ctx, &ResolveCompanyRequest{Email: "who@nowhere.test"})
	assertCode(t, err, codes.NotFound)

	companies, err := h.ListCompanies(ctx, &ListCompaniesRequest{})
	require.NoError(t, err)
	assert.Equal(t, []*Company{{ID: acmeID.String(), Name: "Acme", PrimaryContactEmail: "ops@acme.test"}}, companies.Companies)
}

func TestCapacityHandler_Batches(t *testing.T) {
	logger := zaptest.NewLogger(t)
	finished := time.Date(2025, 6, 15, 9, 5, 0, 0, time.UTC)
	ing := &mockIngestion{
		startFunc: func(_ context.Context, companyID uuid.UUID, uploadedBy, fileName string, content []byte) (uint64, error) {
			assert.Equal(t, acmeID, companyID)
			assert.Equal(t, "company@acme.test", uploadedBy)
			assert.Equal(t, "june.xlsx", fileName)
			if len(content) == 0 {
				return 0, fmt.Errorf("%w: file is empty", e.ErrInvalidInput)
			}
			return 7, nil
		},
		batchStatusFn: func(_ context.Context, id uint64) (*models.Batch, error) {
			if id != 7 {
				return nil, fmt.Errorf("%w: batch %d", e.ErrNotFound, id)
			}
			return &models.Batch{
				ID: 7, CompanyID: acmeID, Status: models.BatchCompleted,
				TotalRows: 3, SuccessCount: 2, FailureCount: 1,
				RowErrors:  []models.RowError{{RowNumber: 3, Reason: "invalid value: ctc"}},
				FinishedAt: &finished,
			}, nil
		},
	}
	h := NewCapacityHandler(&mockCapacities{}, ing, logger)
	ctx := withActor(auth.RoleCompany, acmeID)

	started, err := h.StartBulkIngestion(ctx, &StartBulkIngestionRequest{CompanyID: acmeID.String(), FileName: "june.xlsx", Content: []byte("xlsx")})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), started.BatchID)

	_, err = h.StartBulkIngestion(ctx, &StartBulkIngestionRequest{CompanyID: acmeID.String(), FileName: "june.xlsx"})
	assertCode(t, err, codes.InvalidArgument)
	_, err = h.StartBulkIngestion(ctx, &StartBulkIngestionRequest{CompanyID: otherID.String(), FileName: "june.xlsx"})
	assertCode(t, err, codes.PermissionDenied)

	resp, err := h.GetBatchStatus(ctx, &GetBatchStatusRequest{BatchID: 7})
	require.NoError(t, err)
	assert.Equal(t, "Completed", resp.Batch.Status)
	assert.Equal(t, []RowError{{RowNumber: 3, Reason: "invalid value: ctc"}}, resp.Batch.RowErrors)
	assert.Equal(t, &finished, resp.Batch.FinishedAt)

	_, err = h.GetBatchStatus(withActor(auth.RoleCompany, otherID), &GetBatchStatusRequest{BatchID: 7})
	assertCode(t, err, codes.NotFound)
	_, err = h.GetBatchStatus(ctx, &GetBatchStatusRequest{BatchID: 8})
	assertCode(t, err, codes.NotFound)
	_, err = h.GetBatchStatus(ctx, &GetBatchStatusRequest{})
	assertCode(t, err, codes.InvalidArgument)
}

func TestMapServiceError(t *testing.T) {
	h := NewCapacityHandler(&mockCapacities{}, &mockIngestion{}, zaptest.NewLogger(t))

	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: capacity x", e.ErrNotFound), codes.NotFound},
		{fmt.Errorf("%w: company name", e.ErrDuplicate), codes.AlreadyExists},
		{fmt.Errorf("%w: remark is required", e.ErrInvalidInput), codes.InvalidArgument},
		{&e.TemplateError{Missing: []string{"ctc"}}, codes.InvalidArgument},
		{e.NewParseError("workingsince", "bad"), codes.InvalidArgument},
		{e.NewMissingFieldError("companyEmployeeId"), codes.InvalidArgument},
		{e.NewInvalidValueError("ctc", "must be positive"), codes.InvalidArgument},
		{&e.TransitionError{Action: "hr_approve", Stage: "HR", Status: "Rejected"}, codes.FailedPrecondition},
		{fmt.Errorf("%w: failed to create capacity: %w", e.ErrStorageFault, errors.New("conn reset")), codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assertCode(t, h.mapServiceError(tt.err), tt.want)
		})
	}
}
