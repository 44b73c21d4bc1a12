package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	e "github.com/gartstein/capacity/internal/capacity/errors"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// BatchProcessor is implemented by the ingestion service.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, batchID uint64) error
}

type Handler struct {
	processor BatchProcessor
	logger    *zap.Logger
}

func NewHandler(processor BatchProcessor, logger *zap.Logger) *Handler {
	return &Handler{processor: processor, logger: logger.Named("batch_worker")}
}

// ProcessTask runs one batch. Errors after which the batch is terminal, or
// gone, are not retried.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ProcessBatchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	err := h.processor.ProcessBatch(ctx, p.BatchID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, e.ErrNotFound), errors.Is(err, e.ErrBatchFinalized):
		h.logger.Warn("Batch processing ended without retry", zap.Uint64("batch_id", p.BatchID), zap.Error(err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}

func NewMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeProcessBatch, h.ProcessTask)
	return mux
}

// NewServer builds the worker server; its logs go through logger.
func NewServer(redisOpt asynq.RedisConnOpt, cfg Config, logger *zap.Logger) *asynq.Server {
	logger = logger.Named("asynq")
	queues := map[string]int{"default": 1}
	if cfg.Queue != "" {
		queues = map[string]int{cfg.Queue: 1}
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      queues,
		Logger:      logger.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", zap.String("type", task.Type()), zap.ByteString("payload", task.Payload()), zap.Error(err))
		}),
	})
}
