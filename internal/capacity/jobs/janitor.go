package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Maintenance is implemented by the ingestion service.
type Maintenance interface {
	FailStaleBatches(ctx context.Context, maxAge time.Duration) (int, error)
	PurgeExpiredFiles(ctx context.Context, retention time.Duration) (int, error)
}

// Janitor periodically fails batches stuck in Processing and deletes
// uploads past their retention.
type Janitor struct {
	cron    *cron.Cron
	service Maintenance
	cfg     Config
	logger  *zap.Logger
}

func NewJanitor(service Maintenance, cfg Config, logger *zap.Logger) (*Janitor, error) {
	j := &Janitor{service: service, cfg: cfg, logger: logger.Named("janitor")}
	cl := cronLogger{j.logger.Sugar()}
	j.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := j.cron.AddFunc(cfg.JanitorSchedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce performs one sweep. Failures are logged; the next sweep retries.
func (j *Janitor) RunOnce(ctx context.Context) {
	if j.cfg.StaleAfter > 0 {
		n, err := j.service.FailStaleBatches(ctx, j.cfg.StaleAfter)
		if err != nil {
			j.logger.Error("Failed to fail stale batches", zap.Error(err))
		} else if n > 0 {
			j.logger.Warn("Failed stale batches", zap.Int("count", n))
		}
	}
	if j.cfg.FileRetention > 0 {
		if _, err := j.service.PurgeExpiredFiles(ctx, j.cfg.FileRetention); err != nil {
			j.logger.Error("Failed to purge expired uploads", zap.Error(err))
		}
	}
}

// cronLogger adapts zap to cron's key/value logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
