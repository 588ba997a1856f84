package capsule

import (
	"strings"
	"unicode/utf8"

	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

const (
	maxTitleLength   = 200
	maxContentLength = 200_000
	maxRecipients    = 50
	maxAttachments   = 20
)

// Validation errors
var (
	ErrTitleRequired      = shared.NewDomainError("TITLE_REQUIRED", "Title is required")
	ErrTitleTooLong       = shared.NewDomainError("TITLE_TOO_LONG", "Title cannot exceed 200 characters")
	ErrContentRequired    = shared.NewDomainError("CONTENT_REQUIRED", "Letter content is required")
	ErrContentTooLong     = shared.NewDomainError("CONTENT_TOO_LONG", "Letter content is too long")
	ErrRecipientRequired  = shared.NewDomainError("RECIPIENT_REQUIRED", "At least one recipient is required")
	ErrTooManyRecipients  = shared.NewDomainError("TOO_MANY_RECIPIENTS", "Too many recipients")
	ErrUnlockDateRequired = shared.NewDomainError("UNLOCK_DATE_REQUIRED", "An unlock date is required unless the capsule opens upon passing")
	ErrTooManyAttachments = shared.NewDomainError("TOO_MANY_ATTACHMENTS", "Too many attachments")
	ErrInvalidAttachment  = shared.NewDomainError("INVALID_ATTACHMENT", "Attachment key is invalid")
)

// UnlockPolicy describes when a capsule opens. UnlockDate is always set;
// valueobject.FarFuture means it never opens by date.
type UnlockPolicy struct {
	UnlockDate      valueobject.Date
	UnlockOnPassing bool
}

// Metadata is everything about a capsule except its sealed payload.
// It is safe to load for any caller allowed to know the capsule exists.
type Metadata struct {
	shared.FamilyEntity
	SenderID          uuid.UUID
	LegacyRecipientID *uuid.UUID
	Title             string
	Policy            UnlockPolicy
	RecipientIDs      []uuid.UUID
	HasAttachments    bool
}

// Content is the sealed payload of a capsule
type Content struct {
	Body           string
	AttachmentKeys []string
}

// TimeCapsule is a new capsule being sealed. It is never updated once stored.
type TimeCapsule struct {
	Metadata
	Content Content
}

// NewCapsuleParams holds the inputs for sealing a capsule
type NewCapsuleParams struct {
	FamilyID        uuid.UUID
	SenderID        uuid.UUID
	Title           string
	Body            string
	UnlockDate      *valueobject.Date
	UnlockOnPassing bool
	RecipientIDs    []uuid.UUID
	AttachmentKeys  []string
}

// NewTimeCapsule validates the inputs and builds a capsule ready for storage.
// When UnlockOnPassing is set and no date is given, the FarFuture sentinel is used.
func NewTimeCapsule(p NewCapsuleParams) (*TimeCapsule, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}

	body := strings.TrimSpace(p.Body)
	if body == "" {
		return nil, ErrContentRequired
	}
	if len(body) > maxContentLength {
		return nil, ErrContentTooLong
	}

	recipients := dedupeIDs(p.RecipientIDs)
	if len(recipients) == 0 {
		return nil, ErrRecipientRequired
	}
	if len(recipients) > maxRecipients {
		return nil, ErrTooManyRecipients
	}

	var unlockDate valueobject.Date
	switch {
	case p.UnlockDate != nil && !p.UnlockDate.IsZero():
		// The sentinel date alone would never open
		if p.UnlockDate.IsFarFuture() && !p.UnlockOnPassing {
			return nil, ErrUnlockDateRequired
		}
		unlockDate = *p.UnlockDate
	case p.UnlockOnPassing:
		unlockDate = valueobject.FarFuture
	default:
		return nil, ErrUnlockDateRequired
	}

	keys, err := normalizeAttachmentKeys(p.AttachmentKeys)
	if err != nil {
		return nil, err
	}

	return &TimeCapsule{
		Metadata: Metadata{
			FamilyEntity: shared.NewFamilyEntity(p.FamilyID),
			SenderID:     p.SenderID,
			Title:        title,
			Policy: UnlockPolicy{
				UnlockDate:      unlockDate,
				UnlockOnPassing: p.UnlockOnPassing,
			},
			RecipientIDs:   recipients,
			HasAttachments: len(keys) > 0,
		},
		Content: Content{
			Body:           body,
			AttachmentKeys: keys,
		},
	}, nil
}

// IsSender reports whether memberID sealed the capsule
func (m *Metadata) IsSender(memberID uuid.UUID) bool {
	return m.SenderID == memberID
}

// IsRecipient reports whether memberID is a recipient, through the join
// rows or the legacy single-recipient field
func (m *Metadata) IsRecipient(memberID uuid.UUID) bool {
	if m.LegacyRecipientID != nil && *m.LegacyRecipientID == memberID {
		return true
	}
	for _, id := range m.RecipientIDs {
		if id == memberID {
			return true
		}
	}
	return false
}

// AllRecipientIDs returns the join-row recipients plus the legacy recipient, de-duplicated
func (m *Metadata) AllRecipientIDs() []uuid.UUID {
	ids := append([]uuid.UUID{}, m.RecipientIDs...)
	if m.LegacyRecipientID != nil {
		ids = append(ids, *m.LegacyRecipientID)
	}
	return dedupeIDs(ids)
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizeAttachmentKeys(keys []string) ([]string, error) {
	if len(keys) > maxAttachments {
		return nil, ErrTooManyAttachments
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || strings.Contains(k, "..") || strings.HasPrefix(k, "/") || len(k) > 512 {
			return nil, ErrInvalidAttachment
		}
		out = append(out, k)
	}
	return out, nil
}
