package db

import (
	"context"
	"testing"
	"time"

	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB initializes an in-memory SQLite database for testing. A single
// connection keeps every query on the same in-memory database.
func SetupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db), "failed to migrate test database")

	return &Repository{db: db}
}

func seedCompany(t *testing.T, repo *Repository, name, email string) *models.Company {
	t.Helper()
	company := &models.Company{ID: uuid.New(), Name: name, PrimaryContactEmail: email}
	require.NoError(t, repo.CreateCompany(context.Background(), company))
	return company
}

func newRecord(companyID uuid.UUID, employeeID string, workingSince time.Time, state models.WorkflowState) *models.CapacityRecord {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	return &models.CapacityRecord{
		ID:                uuid.New(),
		CompanyID:         companyID,
		CompanyEmployeeID: employeeID,
		WorkingSince:      workingSince,
		CTC:               decimal.RequireFromString("72000.50"),
		JobTitle:          "Engineer",
		Role:              "Backend",
		Gender:            "M",
		Location:          "Lisbon",
		TotalExperience:   decimal.RequireFromString("3.5"),
		TechnicalSkills:   "Go",
		Tools:             "Docker",
		NumberOfProjects:  2,
		EmployerNote:      "note",
		Certifications:    []string{"CKA", "AWS", "CKA"},
		Stage:             state.Stage,
		Status:            state.Status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
