package models

import (
	"time"

	"github.com/familynest/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
}

// FamilyModel provides persistence fields for family-owned rows
type FamilyModel struct {
	BaseModel
	FamilyID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// ToDomainFamilyEntity converts FamilyModel to a domain FamilyEntity
func (m *FamilyModel) ToDomainFamilyEntity() shared.FamilyEntity {
	return shared.FamilyEntity{
		BaseEntity: m.BaseModel.ToDomain(),
		FamilyID:   m.FamilyID,
	}
}

// FromDomainFamilyEntity populates FamilyModel from a domain FamilyEntity
func (m *FamilyModel) FromDomainFamilyEntity(e shared.FamilyEntity) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.FamilyID = e.FamilyID
}
