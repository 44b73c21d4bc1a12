package db

import (
	"context"

	dbmodels "github.com/gartstein/capacity/internal/capacity/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FileStore keeps uploaded workbooks in the upload_files table, keyed by
// batch id.
type FileStore struct {
	db *gorm.DB
}

// Files returns the table-backed file store sharing this connection.
func (r *Repository) Files() *FileStore {
	return &FileStore{db: r.db}
}

// Save stores data for batchID, replacing any previous content.
func (s *FileStore) Save(ctx context.Context, batchID uint64, data []byte, size int64) error {
	row := &dbmodels.UploadFile{BatchID: batchID, Content: data, Size: size}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "batch_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "size"}),
		}).
		Create(row).Error
}

func (s *FileStore) Load(ctx context.Context, batchID uint64) ([]byte, error) {
	var row dbmodels.UploadFile
	if err := s.db.WithContext(ctx).First(&row, "batch_id = ?", batchID).Error; err != nil {
		return nil, mapError(err)
	}
	return row.Content, nil
}

// Delete removes the file; deleting a missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, batchID uint64) error {
	return s.db.WithContext(ctx).Delete(&dbmodels.UploadFile{}, "batch_id = ?", batchID).Error
}
