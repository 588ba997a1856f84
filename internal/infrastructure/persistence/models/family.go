package models

import (
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// FamilyRecord is the persistence model for the Family domain entity
type FamilyRecord struct {
	BaseModel
	Name string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (FamilyRecord) TableName() string {
	return "families"
}

// ToDomain converts the persistence model to a domain Family
func (m *FamilyRecord) ToDomain() *family.Family {
	return &family.Family{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
	}
}

// FamilyRecordFromDomain converts a domain Family to a persistence model
func FamilyRecordFromDomain(f *family.Family) *FamilyRecord {
	m := &FamilyRecord{Name: f.Name}
	m.FromDomainBaseEntity(f.BaseEntity)
	return m
}

// MemberModel is the persistence model for the Member domain entity
type MemberModel struct {
	FamilyModel
	UserID       *uuid.UUID        `gorm:"type:uuid;index"`
	Name         string            `gorm:"type:varchar(200);not null"`
	Email        string            `gorm:"type:varchar(320)"`
	Role         string            `gorm:"type:varchar(20);not null;default:'limited'"`
	BirthDate    *valueobject.Date `gorm:"type:date"`
	IsRemembered bool              `gorm:"not null;default:false"`
	PassedDate   *valueobject.Date `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (MemberModel) TableName() string {
	return "family_members"
}

// ToDomain converts the persistence model to a domain Member.
// The stored role is parsed, so an unknown value becomes limited.
func (m *MemberModel) ToDomain() *family.Member {
	return &family.Member{
		FamilyEntity: m.ToDomainFamilyEntity(),
		UserID:       m.UserID,
		Name:         m.Name,
		Email:        m.Email,
		Role:         family.ParseRole(m.Role),
		BirthDate:    m.BirthDate,
		IsRemembered: m.IsRemembered,
		PassedDate:   m.PassedDate,
	}
}

// MemberModelFromDomain converts a domain Member to a persistence model
func MemberModelFromDomain(member *family.Member) *MemberModel {
	m := &MemberModel{
		UserID:       member.UserID,
		Name:         member.Name,
		Email:        member.Email,
		Role:         string(member.Role),
		BirthDate:    member.BirthDate,
		IsRemembered: member.IsRemembered,
		PassedDate:   member.PassedDate,
	}
	m.FromDomainFamilyEntity(member.FamilyEntity)
	return m
}
