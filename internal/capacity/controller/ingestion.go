package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gartstein/capacity/internal/capacity/approval"
	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/gartstein/capacity/internal/capacity/events"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/gartstein/capacity/internal/capacity/spreadsheet"
	"github.com/gartstein/capacity/internal/capacity/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchRepository persists upload batches and, on completion, the records
// they produced.
type BatchRepository interface {
	CreateBatch(ctx context.Context, b *models.Batch) error
	GetBatch(ctx context.Context, id uint64) (*models.Batch, error)
	CompleteBatch(ctx context.Context, batchID uint64, records []*models.CapacityRecord, result models.BatchResult) error
	FailBatch(ctx context.Context, batchID uint64, result models.BatchResult) error
	ListStaleBatches(ctx context.Context, cutoff time.Time) ([]uint64, error)
	ListPurgeableBatches(ctx context.Context, cutoff time.Time) ([]uint64, error)
	MarkFilePurged(ctx context.Context, batchID uint64, at time.Time) error
}

// FileStore keeps uploaded bytes until the batch has been processed.
type FileStore interface {
	Save(ctx context.Context, batchID uint64, data []byte, size int64) error
	Load(ctx context.Context, batchID uint64) ([]byte, error)
	Delete(ctx context.Context, batchID uint64) error
}

// TaskEnqueuer schedules background processing of a batch.
type TaskEnqueuer interface {
	EnqueueBatch(ctx context.Context, batchID uint64) error
}

// IngestionService accepts bulk uploads and tracks each batch from
// Processing to Completed or Failed.
type IngestionService struct {
	batches     BatchRepository
	companies   CompanyDirectory
	files       FileStore
	enqueuer    TaskEnqueuer
	notifier    Notifier
	validator   *validation.RowValidator
	maxFileSize int64
	now         func() time.Time
	logger      *zap.Logger
}

// NewIngestionService wires the ingestion pipeline. maxFileSize <= 0
// disables the upload size check.
func NewIngestionService(
	batches BatchRepository,
	companies CompanyDirectory,
	files FileStore,
	enqueuer TaskEnqueuer,
	notifier Notifier,
	maxFileSize int64,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		batches:     batches,
		companies:   companies,
		files:       files,
		enqueuer:    enqueuer,
		notifier:    notifier,
		validator:   validation.NewRowValidator(),
		maxFileSize: maxFileSize,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.Named("ingestion_service"),
	}
}

// StartBulkIngestion validates the workbook header, registers a Processing
// batch, stores the bytes and schedules processing. Rows are not read here.
func (s *IngestionService) StartBulkIngestion(ctx context.Context, companyID uuid.UUID, uploadedBy, fileName string, content []byte) (uint64, error) {
	if len(content) == 0 {
		return 0, fmt.Errorf("%w: file is empty", e.ErrInvalidInput)
	}
	if s.maxFileSize > 0 && int64(len(content)) > s.maxFileSize {
		return 0, fmt.Errorf("%w: file exceeds %d bytes", e.ErrInvalidInput, s.maxFileSize)
	}
	if err := requireCompany(ctx, s.companies, companyID); err != nil {
		return 0, err
	}
	if err := spreadsheet.ValidateTemplate(content); err != nil {
		return 0, err
	}

	batch := &models.Batch{
		CompanyID:  companyID,
		UploadedBy: uploadedBy,
		FileName:   fileName,
		FileSize:   int64(len(content)),
		CreatedAt:  s.now(),
	}
	if err := s.batches.CreateBatch(ctx, batch); err != nil {
		return 0, storageFault("create batch", err)
	}
	logger := s.logger.With(zap.Uint64("batch_id", batch.ID), zap.String("company_id", companyID.String()))

	if err := s.files.Save(ctx, batch.ID, content, batch.FileSize); err != nil {
		s.abort(ctx, batch, logger)
		return 0, storageFault("store upload", err)
	}
	if err := s.enqueuer.EnqueueBatch(ctx, batch.ID); err != nil {
		s.abort(ctx, batch, logger)
		return 0, storageFault("schedule batch", err)
	}

	logger.Info("Bulk ingestion accepted", zap.String("file_name", fileName), zap.Int64("file_size", batch.FileSize))
	return batch.ID, nil
}

// abort fails a batch whose rows were never read.
func (s *IngestionService) abort(ctx context.Context, batch *models.Batch, logger *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	result := models.BatchResult{Status: models.BatchFailed, FinishedAt: s.now()}
	if err := s.batches.FailBatch(ctx, batch.ID, result); err != nil {
		logger.Error("Failed to finalize aborted batch", zap.Error(err))
		return
	}
	if err := s.files.Delete(ctx, batch.ID); err != nil {
		logger.Warn("Failed to remove upload of aborted batch", zap.Error(err))
	}
	s.notifyBatch(ctx, batch.ID, logger)
}

// ProcessBatch reads every row of the batch's workbook, validates it and
// writes the survivors, the row errors and the tally in one transaction.
// Processing a batch that is already finalized is a no-op.
func (s *IngestionService) ProcessBatch(ctx context.Context, batchID uint64) error {
	batch, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return storageFault("get batch", err)
	}
	logger := s.logger.With(zap.Uint64("batch_id", batchID), zap.String("company_id", batch.CompanyID.String()))
	if batch.Terminal() {
		logger.Info("Batch already finalized, skipping", zap.String("status", string(batch.Status)))
		return nil
	}

	content, err := s.files.Load(ctx, batchID)
	if err != nil {
		return s.failUnread(ctx, batch, logger, storageFault("load upload", err))
	}
	parser, err := spreadsheet.Open(content)
	if err != nil {
		return s.failUnread(ctx, batch, logger, err)
	}

	run := s.readRows(ctx, parser, batch)
	if run.err != nil {
		return s.failRun(ctx, batch, run, logger, run.err)
	}

	result := models.BatchResult{
		Status:       models.BatchCompleted,
		TotalRows:    run.total(),
		SuccessCount: len(run.records),
		FailureCount: len(run.rowErrors),
		RowErrors:    run.rowErrors,
		FinishedAt:   s.now(),
	}
	if err := s.batches.CompleteBatch(ctx, batchID, run.records, result); err != nil {
		if errors.Is(err, e.ErrBatchFinalized) {
			logger.Warn("Batch was finalized concurrently, discarding result")
			return nil
		}
		return s.failRun(ctx, batch, run, logger, storageFault("persist batch", err))
	}

	logger.Info("Batch completed",
		zap.Int("total_rows", result.TotalRows),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failure_count", result.FailureCount),
	)
	s.notifyBatch(ctx, batchID, logger)
	return nil
}

// batchRun is the outcome of reading a workbook: the records that passed,
// the sheet row each came from and the rows that did not.
type batchRun struct {
	records    []*models.CapacityRecord
	recordRows []int
	rowErrors  []models.RowError
	err        error
}

func (r *batchRun) total() int {
	return len(r.records) + len(r.rowErrors)
}

func (s *IngestionService) readRows(ctx context.Context, parser *spreadsheet.Parser, batch *models.Batch) *batchRun {
	run := &batchRun{}
	it, err := parser.Rows()
	if err != nil {
		run.err = err
		return run
	}
	defer it.Close()

	submittedOn := batch.CreatedAt
	now := s.now()
	for it.Next() {
		if err := ctx.Err(); err != nil {
			run.err = fmt.Errorf("processing interrupted: %w", err)
			return run
		}
		row := it.Row()
		rec, err := s.buildRecord(row, batch.CompanyID, submittedOn)
		if err != nil {
			run.rowErrors = append(run.rowErrors, models.RowError{RowNumber: row.Number, Reason: err.Error()})
			continue
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		run.records = append(run.records, rec)
		run.recordRows = append(run.recordRows, row.Number)
	}
	if err := it.Err(); err != nil {
		run.err = fmt.Errorf("failed to read rows: %w", err)
	}
	return run
}

// buildRecord decodes and validates one row and assigns its entry state as
// of the batch submission date. Bulk rows are never referred.
func (s *IngestionService) buildRecord(row spreadsheet.RawRow, companyID uuid.UUID, submittedOn time.Time) (*models.CapacityRecord, error) {
	rec, err := row.Decode(companyID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(rec); err != nil {
		return nil, err
	}
	entry := approval.EntryState(false, rec.WorkingSince, submittedOn)
	rec.ID = uuid.New()
	rec.Stage = entry.Stage
	rec.Status = entry.Status
	return rec, nil
}

// failRun finalizes a batch as Failed after its rows were read. Nothing
// from the batch is stored, so every row counts as a failure: rows that
// passed validation get cause as their reason.
func (s *IngestionService) failRun(ctx context.Context, batch *models.Batch, run *batchRun, logger *zap.Logger, cause error) error {
	reason := cause.Error()
	rowErrors := make([]models.RowError, 0, run.total())
	rowErrors = append(rowErrors, run.rowErrors...)
	for _, n := range run.recordRows {
		rowErrors = append(rowErrors, models.RowError{RowNumber: n, Reason: reason})
	}
	sort.SliceStable(rowErrors, func(i, j int) bool {
		return rowErrors[i].RowNumber < rowErrors[j].RowNumber
	})

	result := models.BatchResult{
		Status:       models.BatchFailed,
		TotalRows:    len(rowErrors),
		FailureCount: len(rowErrors),
		RowErrors:    rowErrors,
		FinishedAt:   s.now(),
	}
	return s.fail(ctx, batch, result, logger, cause)
}

// failUnread finalizes a batch whose workbook could not be read at all.
func (s *IngestionService) failUnread(ctx context.Context, batch *models.Batch, logger *zap.Logger, cause error) error {
	result := models.BatchResult{Status: models.BatchFailed, FinishedAt: s.now()}
	return s.fail(ctx, batch, result, logger, cause)
}

// fail writes the Failed tally with a context that survives cancellation
// of the caller, so a batch is never left Processing. It returns cause
// wrapped with ErrBatchFinalized when the batch is now terminal.
func (s *IngestionService) fail(ctx context.Context, batch *models.Batch, result models.BatchResult, logger *zap.Logger, cause error) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.batches.FailBatch(ctx, batch.ID, result); err != nil {
		if errors.Is(err, e.ErrBatchFinalized) {
			logger.Warn("Batch was finalized concurrently", zap.NamedError("cause", cause))
			return nil
		}
		logger.Error("Failed to finalize batch", zap.Error(err), zap.NamedError("cause", cause))
		return fmt.Errorf("%w (finalize: %v)", cause, err)
	}

	logger.Error("Batch failed",
		zap.Error(cause),
		zap.Int("total_rows", result.TotalRows),
	)
	s.notifyBatch(ctx, batch.ID, logger)
	return fmt.Errorf("%w: batch %d: %w", e.ErrBatchFinalized, batch.ID, cause)
}

func (s *IngestionService) notifyBatch(ctx context.Context, batchID uint64, logger *zap.Logger) {
	batch, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		logger.Warn("Failed to load batch for event", zap.Error(err))
		return
	}
	s.notifier.Notify(events.BatchEvent(batch))
}

// GetBatchStatus returns the batch with its row errors ordered by row number.
func (s *IngestionService) GetBatchStatus(ctx context.Context, batchID uint64) (*models.Batch, error) {
	batch, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, storageFault("get batch", err)
	}
	return batch, nil
}

// FailStaleBatches fails every batch that has been Processing for longer
// than maxAge and returns how many it finalized.
func (s *IngestionService) FailStaleBatches(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := s.batches.ListStaleBatches(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, storageFault("list stale batches", err)
	}

	var failed int
	var errs []string
	for _, id := range ids {
		logger := s.logger.With(zap.Uint64("batch_id", id))
		result := models.BatchResult{Status: models.BatchFailed, FinishedAt: s.now()}
		if err := s.batches.FailBatch(ctx, id, result); err != nil {
			if errors.Is(err, e.ErrBatchFinalized) {
				continue
			}
			logger.Error("Failed to finalize stale batch", zap.Error(err))
			errs = append(errs, fmt.Sprintf("batch %d: %v", id, err))
			continue
		}
		logger.Warn("Stale batch failed", zap.Duration("max_age", maxAge))
		s.notifyBatch(ctx, id, logger)
		failed++
	}
	if len(errs) > 0 {
		return failed, storageFault("fail stale batches", errors.New(strings.Join(errs, "; ")))
	}
	return failed, nil
}

// PurgeExpiredFiles deletes the uploaded bytes of batches finalized more
// than retention ago and returns how many it removed.
func (s *IngestionService) PurgeExpiredFiles(ctx context.Context, retention time.Duration) (int, error) {
	now := s.now()
	ids, err := s.batches.ListPurgeableBatches(ctx, now.Add(-retention))
	if err != nil {
		return 0, storageFault("list purgeable batches", err)
	}

	var purged int
	for _, id := range ids {
		if err := s.files.Delete(ctx, id); err != nil {
			s.logger.Error("Failed to delete upload", zap.Uint64("batch_id", id), zap.Error(err))
			continue
		}
		if err := s.batches.MarkFilePurged(ctx, id, now); err != nil {
			s.logger.Error("Failed to mark upload purged", zap.Uint64("batch_id", id), zap.Error(err))
			continue
		}
		purged++
	}
	if purged > 0 {
		s.logger.Info("Expired uploads purged", zap.Int("count", purged))
	}
	return purged, nil
}
