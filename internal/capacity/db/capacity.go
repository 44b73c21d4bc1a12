package db

import (
	"context"
	"fmt"
	"time"

	"github.com/gartstein/capacity/internal/capacity/approval"
	dbmodels "github.com/gartstein/capacity/internal/capacity/db/models"
	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/gartstein/capacity/internal/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// profileColumns are the columns an UpdateCapacityProfile may write.
var profileColumns = []string{
	"company_employee_id", "working_since", "ctc", "job_title", "role", "gender",
	"location", "total_experience", "technical_skills", "tools",
	"number_of_projects", "employer_note", "updated_at",
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

// CreateCapacities inserts the records and their certifications atomically.
func (r *Repository) CreateCapacities(ctx context.Context, records []*models.CapacityRecord) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		return tx.insertCapacities(ctx, records)
	})
}

func (r *Repository) insertCapacities(ctx context.Context, records []*models.CapacityRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]*dbmodels.Capacity, len(records))
	for i, rec := range records {
		rows[i] = toCapacityRow(rec)
	}
	return mapError(r.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error)
}

func (r *Repository) GetCapacity(ctx context.Context, id uuid.UUID) (*models.CapacityRecord, error) {
	var row dbmodels.Capacity
	result := r.db.WithContext(ctx).
		Preload("Certifications", byPosition).
		First(&row, "id = ?", id)
	if result.Error != nil {
		return nil, mapError(result.Error)
	}
	return toCapacityRecord(&row), nil
}

// ApplyTransition writes outcome only if the record is still in
// outcome.From. Losing a concurrent race reports ErrInvalidTransition.
func (r *Repository) ApplyTransition(ctx context.Context, id uuid.UUID, outcome approval.Outcome, at time.Time) error {
	updates := map[string]interface{}{
		"approval_stage": outcome.To.Stage,
		"status":         outcome.To.Status,
		"updated_at":     at,
	}
	switch {
	case outcome.ClearRemark:
		updates["remark"] = nil
	case outcome.Remark != nil:
		updates["remark"] = *outcome.Remark
	}
	if outcome.AdminDecision != nil {
		updates["admin_decision"] = *outcome.AdminDecision
	}

	result := r.db.WithContext(ctx).Model(&dbmodels.Capacity{}).
		Where("id = ? AND approval_stage = ? AND status = ?", id, outcome.From.Stage, outcome.From.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		exists, err := r.capacityExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return e.ErrNotFound
		}
		return fmt.Errorf("%w: record %s is no longer %s", e.ErrInvalidTransition, id, outcome.From)
	}
	return nil
}

// UpdateCapacityProfile rewrites the profile columns and replaces the
// certification list in one transaction. Workflow columns are untouched.
func (r *Repository) UpdateCapacityProfile(ctx context.Context, rec *models.CapacityRecord) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		row := toCapacityRow(rec)
		row.Certifications = nil
		result := tx.db.WithContext(ctx).Model(row).
			Select(profileColumns).
			Updates(row)
		if result.Error != nil {
			return mapError(result.Error)
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}

		if err := tx.db.WithContext(ctx).
			Where("capacity_id = ?", rec.ID).
			Delete(&dbmodels.CapacityCertification{}).Error; err != nil {
			return err
		}
		certs := toCertificationRows(rec.Certifications)
		if len(certs) == 0 {
			return nil
		}
		for i := range certs {
			certs[i].CapacityID = rec.ID
		}
		return tx.db.WithContext(ctx).Create(&certs).Error
	})
}

// ListCapacities returns records matching filter, oldest first.
func (r *Repository) ListCapacities(ctx context.Context, filter models.CapacityFilter) ([]*models.CapacityRecord, error) {
	q := r.db.WithContext(ctx).Preload("Certifications", byPosition)
	if filter.CompanyID != nil {
		q = q.Where("company_id = ?", *filter.CompanyID)
	}
	if len(filter.Stages) > 0 {
		q = q.Where("approval_stage IN ?", filter.Stages)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.AdminDecision != nil {
		q = q.Where("admin_decision = ?", *filter.AdminDecision)
	}

	var rows []*dbmodels.Capacity
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*models.CapacityRecord, len(rows))
	for i, row := range rows {
		records[i] = toCapacityRecord(row)
	}
	return records, nil
}

// ListEligible returns every Supplier-stage record whose tenure reached one
// year by asOf, with its company name and certifications.
func (r *Repository) ListEligible(ctx context.Context, asOf time.Time) ([]*models.EligibleCapacity, error) {
	threshold := datatypes.Date(utils.DateOf(asOf).AddDate(-1, 0, 0))

	var rows []*dbmodels.Capacity
	err := r.db.WithContext(ctx).
		InnerJoins("Company").
		Preload("Certifications", byPosition).
		Where("capacities.approval_stage = ? AND capacities.working_since <= ?", models.StageSupplier, threshold).
		Order("capacities.working_since, capacities.id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	eligible := make([]*models.EligibleCapacity, len(rows))
	for i, row := range rows {
		eligible[i] = &models.EligibleCapacity{CapacityRecord: *toCapacityRecord(row)}
		if row.Company != nil {
			eligible[i].CompanyName = row.Company.Name
		}
	}
	return eligible, nil
}

func (r *Repository) capacityExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Capacity{}).
		Where("id = ?", id).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}
