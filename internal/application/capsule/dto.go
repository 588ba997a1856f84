package capsule

import (
	"time"

	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CreateCapsuleInput carries a new capsule from the sender
type CreateCapsuleInput struct {
	Title           string
	Content         string
	UnlockDate      *valueobject.Date
	UnlockOnPassing bool
	RecipientIDs    []uuid.UUID
	AttachmentKeys  []string
}

// CreateCapsuleResult identifies the sealed capsule
type CreateCapsuleResult struct {
	ID uuid.UUID `json:"id"`
}

// View is how much of a capsule the caller may see
type View string

const (
	// ViewSealed is a capsule the caller may read once it unlocks
	ViewSealed View = "sealed"
	// ViewUnlocked includes the letter
	ViewUnlocked View = "unlocked"
	// ViewPrivate is shown to owners and adults who are neither sender nor recipient
	ViewPrivate View = "private"
)

// PersonRef names a family member on a capsule
type PersonRef struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	IsRemembered bool      `json:"is_remembered,omitempty"`
}

// CapsuleSummary is the metadata view used by lists and as the base of the detail
type CapsuleSummary struct {
	ID              uuid.UUID         `json:"id"`
	Title           string            `json:"title"`
	Sender          PersonRef         `json:"sender"`
	Recipients      []PersonRef       `json:"recipients"`
	UnlockDate      *valueobject.Date `json:"unlock_date"`
	UnlockOnPassing bool              `json:"unlock_on_passing"`
	UnlockCondition string            `json:"unlock_condition"`
	IsUnlocked      bool              `json:"is_unlocked"`
	HasAttachments  bool              `json:"has_attachments"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Attachment is a time-limited download link for an attachment
type Attachment struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// CapsuleDetail is a single capsule as the caller may see it.
// Content and Attachments are set only for the unlocked view.
type CapsuleDetail struct {
	CapsuleSummary
	View        View         `json:"view"`
	IsSender    bool         `json:"is_sender"`
	Content     *string      `json:"content,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
