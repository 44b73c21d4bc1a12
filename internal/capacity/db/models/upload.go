package models

import (
	"time"

	domain "github.com/gartstein/capacity/internal/capacity/models"
	"github.com/google/uuid"
)

// UploadBatch records one bulk upload. The counters stay NULL until the
// batch is finalized.
type UploadBatch struct {
	ID           uint64             `gorm:"primaryKey;autoIncrement"`
	CompanyID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	UploadedBy   string             `gorm:"size:255;not null"`
	FileName     string             `gorm:"size:255"`
	FileSize     int64              `gorm:"not null"`
	Status       domain.BatchStatus `gorm:"size:20;not null;index"`
	TotalRows    *int
	SuccessCount *int
	FailureCount *int
	RowErrors    []UploadRowError `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"index"`
	FinishedAt   *time.Time       `gorm:"index"`
	// FilePurgedAt is set once the uploaded bytes have been removed.
	FilePurgedAt *time.Time
}

// UploadRowError is the reason a single sheet row was not persisted.
type UploadRowError struct {
	ID        uint   `gorm:"primaryKey"`
	BatchID   uint64 `gorm:"not null;index"`
	RowNumber int    `gorm:"not null"`
	Reason    string `gorm:"size:1000;not null"`
}

// UploadFile holds the uploaded workbook bytes for the database blob store.
type UploadFile struct {
	BatchID   uint64 `gorm:"primaryKey;autoIncrement:false"`
	Content   []byte `gorm:"not null"`
	Size      int64  `gorm:"not null"`
	CreatedAt time.Time
}
