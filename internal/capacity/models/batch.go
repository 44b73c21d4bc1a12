package models

import (
	"time"

	"github.com/google/uuid"
)

// Batch tracks one bulk upload from acceptance to its terminal status.
type Batch struct {
	ID         uint64
	CompanyID  uuid.UUID
	UploadedBy string
	FileName   string
	FileSize   int64
	Status     BatchStatus
	// The counters stay zero while the batch is Processing and are written
	// exactly once, when it is finalized.
	TotalRows    int
	SuccessCount int
	FailureCount int
	RowErrors    []RowError
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// Terminal reports whether the batch has been finalized.
func (b *Batch) Terminal() bool {
	return b.Status == BatchCompleted || b.Status == BatchFailed
}

// RowError explains why a single spreadsheet row was not persisted.
type RowError struct {
	// RowNumber is the 1-based sheet row; the header is row 1.
	RowNumber int    `json:"rowNumber"`
	Reason    string `json:"reason"`
}

// BatchResult is the final tally written when a batch is finalized.
type BatchResult struct {
	Status       BatchStatus
	TotalRows    int
	SuccessCount int
	FailureCount int
	RowErrors    []RowError
	FinishedAt   time.Time
}
