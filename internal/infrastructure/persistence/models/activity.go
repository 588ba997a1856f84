package models

import (
	"github.com/google/uuid"
)

// Memory tables are written by the content services; this module only counts rows.

// JournalEntryModel is a journal entry
type JournalEntryModel struct {
	FamilyModel
	AuthorID uuid.UUID `gorm:"type:uuid;not null"`
	Title    string    `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// PhotoModel is an uploaded photo
type PhotoModel struct {
	FamilyModel
	UploaderID uuid.UUID `gorm:"type:uuid;not null"`
	ObjectKey  string    `gorm:"type:varchar(512)"`
}

// TableName returns the table name for GORM
func (PhotoModel) TableName() string {
	return "photos"
}

// VoiceMemoModel is a recorded voice memo
type VoiceMemoModel struct {
	FamilyModel
	AuthorID  uuid.UUID `gorm:"type:uuid;not null"`
	ObjectKey string    `gorm:"type:varchar(512)"`
}

// TableName returns the table name for GORM
func (VoiceMemoModel) TableName() string {
	return "voice_memos"
}

// StoryModel is a written family story
type StoryModel struct {
	FamilyModel
	AuthorID uuid.UUID `gorm:"type:uuid;not null"`
	Title    string    `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (StoryModel) TableName() string {
	return "stories"
}

// AllModels returns every model, in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&FamilyRecord{},
		&MemberModel{},
		&CapsuleModel{},
		&RecipientModel{},
		&CampaignModel{},
		&JournalEntryModel{},
		&PhotoModel{},
		&VoiceMemoModel{},
		&StoryModel{},
	}
}
