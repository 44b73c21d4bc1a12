package db

import (
	"context"
	"strings"

	dbmodels "github.com/gartstein/capacity/internal/capacity/db/models"
	"github.com/gartstein/capacity/internal/capacity/models"
	"github.com/google/uuid"
)

// CreateCompany registers a company. Onboarding normally owns this table;
// the method exists for seeding and tests.
func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	row := &dbmodels.Company{
		ID:                  company.ID,
		Name:                company.Name,
		PrimaryContactEmail: strings.ToLower(strings.TrimSpace(company.PrimaryContactEmail)),
		CreatedAt:           company.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return mapError(err)
	}
	company.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var row dbmodels.Company
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	return toCompany(&row), nil
}

// ListCompanies returns every company ordered by name.
func (r *Repository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	var rows []*dbmodels.Company
	if err := r.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	companies := make([]*models.Company, len(rows))
	for i, row := range rows {
		companies[i] = toCompany(row)
	}
	return companies, nil
}

func (r *Repository) CompanyExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Company{}).
		Where("id = ?", id).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// ResolveCompanyID finds the company whose primary contact uses email.
// Matching ignores case and surrounding spaces.
func (r *Repository) ResolveCompanyID(ctx context.Context, email string) (uuid.UUID, error) {
	var row dbmodels.Company
	err := r.db.WithContext(ctx).
		Select("id").
		Where("primary_contact_email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&row).Error
	if err != nil {
		return uuid.Nil, mapError(err)
	}
	return row.ID, nil
}
