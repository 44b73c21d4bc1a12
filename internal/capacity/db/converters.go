package db

import (
	"time"
	"unicode/utf8"

	dbmodels "github.com/gartstein/capacity/internal/capacity/db/models"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/gartstein/capacity/internal/pkg/utils"
	"gorm.io/datatypes"
)

func toCapacityRow(rec *models.CapacityRecord) *dbmodels.Capacity {
	row := &dbmodels.Capacity{
		ID:                rec.ID,
		CompanyID:         rec.CompanyID,
		CompanyEmployeeID: rec.CompanyEmployeeID,
		WorkingSince:      datatypes.Date(utils.DateOf(rec.WorkingSince)),
		CTC:               rec.CTC,
		JobTitle:          rec.JobTitle,
		Role:              rec.Role,
		Gender:            rec.Gender,
		Location:          rec.Location,
		TotalExperience:   rec.TotalExperience,
		TechnicalSkills:   rec.TechnicalSkills,
		Tools:             rec.Tools,
		NumberOfProjects:  rec.NumberOfProjects,
		EmployerNote:      rec.EmployerNote,
		IsReferred:        rec.IsReferred,
		Status:            rec.Status,
		ApprovalStage:     rec.Stage,
		AdminDecision:     rec.AdminDecision,
		Certifications:    toCertificationRows(rec.Certifications),
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if rec.Remark != "" {
		row.Remark = utils.Ptr(rec.Remark)
	}
	return row
}

func toCertificationRows(names []string) []dbmodels.CapacityCertification {
	if len(names) == 0 {
		return nil
	}
	rows := make([]dbmodels.CapacityCertification, len(names))
	for i, name := range names {
		rows[i] = dbmodels.CapacityCertification{Position: i, Name: name}
	}
	return rows
}

func toCapacityRecord(row *dbmodels.Capacity) *models.CapacityRecord {
	rec := &models.CapacityRecord{
		ID:                row.ID,
		CompanyID:         row.CompanyID,
		CompanyEmployeeID: row.CompanyEmployeeID,
		WorkingSince:      utils.DateOf(time.Time(row.WorkingSince)),
		CTC:               row.CTC,
		JobTitle:          row.JobTitle,
		Role:              row.Role,
		Gender:            row.Gender,
		Location:          row.Location,
		TotalExperience:   row.TotalExperience,
		TechnicalSkills:   row.TechnicalSkills,
		Tools:             row.Tools,
		NumberOfProjects:  row.NumberOfProjects,
		EmployerNote:      row.EmployerNote,
		IsReferred:        row.IsReferred,
		Stage:             row.ApprovalStage,
		Status:            row.Status,
		AdminDecision:     row.AdminDecision,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.Remark != nil {
		rec.Remark = *row.Remark
	}
	for _, c := range row.Certifications {
		rec.Certifications = append(rec.Certifications, c.Name)
	}
	return rec
}

func toCompany(row *dbmodels.Company) *models.Company {
	return &models.Company{
		ID:                  row.ID,
		Name:                row.Name,
		PrimaryContactEmail: row.PrimaryContactEmail,
		CreatedAt:           row.CreatedAt,
	}
}

func toBatch(row *dbmodels.UploadBatch) *models.Batch {
	b := &models.Batch{
		ID:         row.ID,
		CompanyID:  row.CompanyID,
		UploadedBy: row.UploadedBy,
		FileName:   row.FileName,
		FileSize:   row.FileSize,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt,
		FinishedAt: row.FinishedAt,
	}
	if row.TotalRows != nil {
		b.TotalRows = *row.TotalRows
	}
	if row.SuccessCount != nil {
		b.SuccessCount = *row.SuccessCount
	}
	if row.FailureCount != nil {
		b.FailureCount = *row.FailureCount
	}
	for _, re := range row.RowErrors {
		b.RowErrors = append(b.RowErrors, models.RowError{RowNumber: re.RowNumber, Reason: re.Reason})
	}
	return b
}

func toRowErrorRows(batchID uint64, rowErrors []models.RowError) []dbmodels.UploadRowError {
	rows := make([]dbmodels.UploadRowError, len(rowErrors))
	for i, re := range rowErrors {
		rows[i] = dbmodels.UploadRowError{BatchID: batchID, RowNumber: re.RowNumber, Reason: truncate(re.Reason, 1000)}
	}
	return rows
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
