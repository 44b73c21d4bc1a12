package db

import (
	"context"
	"fmt"
	"time"

	dbmodels "github.com/gartstein/capacity/internal/capacity/db/models"
	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/models"
	"gorm.io/gorm"
)

// CreateBatch stores a new Processing batch and sets b.ID.
func (r *Repository) CreateBatch(ctx context.Context, b *models.Batch) error {
	row := &dbmodels.UploadBatch{
		CompanyID:  b.CompanyID,
		UploadedBy: b.UploadedBy,
		FileName:   b.FileName,
		FileSize:   b.FileSize,
		Status:     models.BatchProcessing,
		CreatedAt:  b.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return mapError(err)
	}
	b.ID = row.ID
	b.Status = row.Status
	b.CreatedAt = row.CreatedAt
	return nil
}

// GetBatch returns the batch with its row errors ordered by row number.
func (r *Repository) GetBatch(ctx context.Context, id uint64) (*models.Batch, error) {
	var row dbmodels.UploadBatch
	result := r.db.WithContext(ctx).
		Preload("RowErrors", func(db *gorm.DB) *gorm.DB {
			return db.Order("row_number, id")
		}).
		First(&row, "id = ?", id)
	if result.Error != nil {
		return nil, mapError(result.Error)
	}
	return toBatch(&row), nil
}

// CompleteBatch persists the surviving records and finalizes the batch in a
// single transaction. Either everything is written or nothing is.
func (r *Repository) CompleteBatch(ctx context.Context, batchID uint64, records []*models.CapacityRecord, result models.BatchResult) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		if err := tx.finalizeBatch(ctx, batchID, result); err != nil {
			return err
		}
		return tx.insertCapacities(ctx, records)
	})
}

// FailBatch finalizes the batch without persisting any record.
func (r *Repository) FailBatch(ctx context.Context, batchID uint64, result models.BatchResult) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		return tx.finalizeBatch(ctx, batchID, result)
	})
}

// finalizeBatch writes the tally once: the update only matches a batch that
// is still Processing.
func (r *Repository) finalizeBatch(ctx context.Context, batchID uint64, result models.BatchResult) error {
	if result.TotalRows != result.SuccessCount+result.FailureCount {
		return fmt.Errorf("%w: batch %d tally %d != %d + %d", e.ErrInvalidInput,
			batchID, result.TotalRows, result.SuccessCount, result.FailureCount)
	}
	if result.Status != models.BatchCompleted && result.Status != models.BatchFailed {
		return fmt.Errorf("%w: batch cannot be finalized as %s", e.ErrInvalidInput, result.Status)
	}

	update := r.db.WithContext(ctx).Model(&dbmodels.UploadBatch{}).
		Where("id = ? AND status = ?", batchID, models.BatchProcessing).
		Updates(map[string]interface{}{
			"status":        result.Status,
			"total_rows":    result.TotalRows,
			"success_count": result.SuccessCount,
			"failure_count": result.FailureCount,
			"finished_at":   result.FinishedAt,
		})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		if _, err := r.GetBatch(ctx, batchID); err != nil {
			return err
		}
		return fmt.Errorf("%w: %d", e.ErrBatchFinalized, batchID)
	}

	if len(result.RowErrors) == 0 {
		return nil
	}
	rows := toRowErrorRows(batchID, result.RowErrors)
	return r.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error
}

// ListStaleBatches returns batches still Processing that were created
// before cutoff.
func (r *Repository) ListStaleBatches(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&dbmodels.UploadBatch{}).
		Where("status = ? AND created_at < ?", models.BatchProcessing, cutoff).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// ListPurgeableBatches returns finalized batches that finished before cutoff
// and still have their uploaded file.
func (r *Repository) ListPurgeableBatches(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&dbmodels.UploadBatch{}).
		Where("status <> ? AND finished_at < ? AND file_purged_at IS NULL", models.BatchProcessing, cutoff).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// MarkFilePurged records that the batch's uploaded bytes are gone.
func (r *Repository) MarkFilePurged(ctx context.Context, batchID uint64, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.UploadBatch{}).
		Where("id = ?", batchID).
		Update("file_purged_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}
