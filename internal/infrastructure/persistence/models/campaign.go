package models

import (
	"time"

	"github.com/familynest/backend/internal/domain/campaign"
	"github.com/google/uuid"
)

// CampaignModel is one row of the drip campaign ledger
type CampaignModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	FamilyMemberID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_email_campaigns_member_type"`
	CampaignType   string     `gorm:"type:varchar(40);not null;uniqueIndex:uq_email_campaigns_member_type"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt      time.Time  `gorm:"not null;index"`
	SentAt         *time.Time
}

// TableName returns the table name for GORM
func (CampaignModel) TableName() string {
	return "email_campaigns"
}

// ToDomain converts the persistence model to a ledger record
func (m *CampaignModel) ToDomain() *campaign.Record {
	return &campaign.Record{
		ID:        m.ID,
		MemberID:  m.FamilyMemberID,
		Type:      campaign.Type(m.CampaignType),
		Status:    campaign.Status(m.Status),
		CreatedAt: m.CreatedAt,
		SentAt:    m.SentAt,
	}
}
