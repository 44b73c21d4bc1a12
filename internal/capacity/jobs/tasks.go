// Package jobs runs bulk ingestion in the background on asynq and keeps
// batches and uploads tidy with a cron janitor.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// TypeProcessBatch is the task that reads and persists one upload batch.
const TypeProcessBatch = "capacity:batch:process"

type ProcessBatchPayload struct {
	BatchID uint64 `json:"batch_id"`
}

type Config struct {
	Queue       string        `yaml:"queue"`
	Concurrency int           `yaml:"concurrency"`
	MaxRetry    int           `yaml:"max_retry"`
	TaskTimeout time.Duration `yaml:"task_timeout"`

	JanitorSchedule string        `yaml:"janitor_schedule"`
	StaleAfter      time.Duration `yaml:"stale_after"`
	FileRetention   time.Duration `yaml:"file_retention"`
}

func NewProcessBatchTask(batchID uint64) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessBatchPayload{BatchID: batchID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessBatch, payload), nil
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Enqueuer schedules batch processing. A batch is enqueued at most once
// while its task is retained.
type Enqueuer struct {
	client taskClient
	cfg    Config
}

// NewEnqueuer shares rdb with the rest of the service.
func NewEnqueuer(rdb redis.UniversalClient, cfg Config) *Enqueuer {
	return &Enqueuer{client: asynq.NewClientFromRedisClient(rdb), cfg: cfg}
}

func (q *Enqueuer) EnqueueBatch(ctx context.Context, batchID uint64) error {
	task, err := NewProcessBatchTask(batchID)
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.TaskID(batchTaskID(batchID))}
	if q.cfg.Queue != "" {
		opts = append(opts, asynq.Queue(q.cfg.Queue))
	}
	if q.cfg.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(q.cfg.MaxRetry))
	}
	if q.cfg.TaskTimeout > 0 {
		opts = append(opts, asynq.Timeout(q.cfg.TaskTimeout))
	}

	if _, err := q.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue batch %d: %w", batchID, err)
	}
	return nil
}

func (q *Enqueuer) Close() error {
	return q.client.Close()
}

func batchTaskID(batchID uint64) string {
	return fmt.Sprintf("batch-%d", batchID)
}
