package models

import (
	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CapsuleModel is the persistence model of a time capsule row.
// Content holds the sealed (encrypted) body.
type CapsuleModel struct {
	FamilyModel
	SenderID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	RecipientID     *uuid.UUID       `gorm:"type:uuid;index"`
	Title           string           `gorm:"type:varchar(200);not null"`
	Content         string           `gorm:"type:text;not null"`
	UnlockDate      valueobject.Date `gorm:"type:date;not null;index"`
	UnlockOnPassing bool             `gorm:"not null;default:false"`
	AttachmentKeys  pq.StringArray   `gorm:"type:text[]"`
	AttachmentCount int              `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CapsuleModel) TableName() string {
	return "time_capsules"
}

// MetadataColumns are the columns read for metadata. Content and
// attachment keys are deliberately absent.
var MetadataColumns = []string{
	"time_capsules.id",
	"time_capsules.family_id",
	"time_capsules.created_at",
	"time_capsules.sender_id",
	"time_capsules.recipient_id",
	"time_capsules.title",
	"time_capsules.unlock_date",
	"time_capsules.unlock_on_passing",
	"time_capsules.attachment_count",
}

// ContentColumns are the columns read once content access is granted
var ContentColumns = []string{"content", "attachment_keys"}

// ToMetadata converts the persistence model to domain metadata.
// Recipient ids are loaded separately by the repository.
func (m *CapsuleModel) ToMetadata() *capsule.Metadata {
	return &capsule.Metadata{
		FamilyEntity:      m.ToDomainFamilyEntity(),
		SenderID:          m.SenderID,
		LegacyRecipientID: m.RecipientID,
		Title:             m.Title,
		Policy: capsule.UnlockPolicy{
			UnlockDate:      m.UnlockDate,
			UnlockOnPassing: m.UnlockOnPassing,
		},
		RecipientIDs:   make([]uuid.UUID, 0),
		HasAttachments: m.AttachmentCount > 0,
	}
}

// CapsuleModelFromDomain converts a new capsule with its already sealed content
func CapsuleModelFromDomain(c *capsule.TimeCapsule, sealed string) *CapsuleModel {
	m := &CapsuleModel{
		SenderID:        c.SenderID,
		RecipientID:     c.LegacyRecipientID,
		Title:           c.Title,
		Content:         sealed,
		UnlockDate:      c.Policy.UnlockDate,
		UnlockOnPassing: c.Policy.UnlockOnPassing,
		AttachmentKeys:  pq.StringArray(c.Content.AttachmentKeys),
		AttachmentCount: len(c.Content.AttachmentKeys),
	}
	m.FromDomainFamilyEntity(c.FamilyEntity)
	return m
}

// RecipientModel is one row of the capsule to member join table
type RecipientModel struct {
	CapsuleID uuid.UUID `gorm:"type:uuid;primaryKey"`
	MemberID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for GORM
func (RecipientModel) TableName() string {
	return "time_capsule_recipients"
}
