// Package models contains the table layouts of the capacity service,
// mapped with GORM.
package models

import (
	"time"

	domain "github.com/gartstein/capacity/internal/capacity/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Company is owned by the onboarding subsystem; the service only reads it.
type Company struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name                string    `gorm:"size:255;not null"`
	PrimaryContactEmail string    `gorm:"size:320;uniqueIndex"`
	CreatedAt           time.Time
}

// Capacity is one supplier capacity record. Free-text and decimal columns
// are unbounded.
type Capacity struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey"`
	CompanyID         uuid.UUID            `gorm:"type:uuid;not null;index"`
	Company           *Company             `gorm:"foreignKey:CompanyID"`
	CompanyEmployeeID string               `gorm:"type:text;not null"`
	WorkingSince      datatypes.Date       `gorm:"not null;index"`
	CTC               decimal.Decimal      `gorm:"type:numeric;not null"`
	JobTitle          string               `gorm:"type:text"`
	Role              string               `gorm:"type:text"`
	Gender            string               `gorm:"type:text"`
	Location          string               `gorm:"type:text"`
	TotalExperience   decimal.Decimal      `gorm:"type:numeric;not null"`
	TechnicalSkills   string               `gorm:"type:text"`
	Tools             string               `gorm:"type:text"`
	NumberOfProjects  int                  `gorm:"type:integer;not null;check:number_of_projects >= 0"`
	EmployerNote      string               `gorm:"type:text"`
	IsReferred        bool                 `gorm:"not null"`
	Status            domain.Status        `gorm:"size:20;not null;index"`
	ApprovalStage     domain.ApprovalStage `gorm:"size:20;not null;index"`
	AdminDecision     *bool
	Remark            *string                 `gorm:"type:text"`
	Certifications    []CapacityCertification `gorm:"foreignKey:CapacityID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CapacityCertification is one certification name of a record. Position
// keeps the submitted order.
type CapacityCertification struct {
	ID         uint      `gorm:"primaryKey"`
	CapacityID uuid.UUID `gorm:"type:uuid;not null;index"`
	Position   int       `gorm:"not null"`
	Name       string    `gorm:"type:text;not null"`
}
