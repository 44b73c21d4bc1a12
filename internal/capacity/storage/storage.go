// Package storage selects where uploaded workbooks are kept between the
// upload request and the ingestion worker.
package storage

import (
	"context"
	"fmt"

	"github.com/gartstein/capacity/internal/capacity/db"
)

const (
	DriverDB = "db"
	DriverS3 = "s3"
)

// Store keeps uploaded file bytes keyed by batch id.
type Store interface {
	Save(ctx context.Context, batchID uint64, data []byte, size int64) error
	Load(ctx context.Context, batchID uint64) ([]byte, error)
	Delete(ctx context.Context, batchID uint64) error
}

type Config struct {
	Driver string   `yaml:"driver"`
	S3     S3Config `yaml:"s3"`
}

// New returns the store named by cfg.Driver. The database store shares the
// repository connection; an empty driver selects it.
func New(ctx context.Context, cfg Config, repo *db.Repository) (Store, error) {
	switch cfg.Driver {
	case "", DriverDB:
		return repo.Files(), nil
	case DriverS3:
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown blob store driver %q", cfg.Driver)
	}
}
