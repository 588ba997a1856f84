package capsule

import (
	"context"

	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Repository defines the interface for time capsule persistence.
// Metadata and content are read separately so content is only loaded
// once a caller has been authorized.
type Repository interface {
	// Create stores the capsule and its recipient rows in one transaction
	Create(ctx context.Context, c *TimeCapsule) error

	// FindMetadata loads a capsule without its content
	FindMetadata(ctx context.Context, familyID, capsuleID uuid.UUID) (*Metadata, error)

	// FindContent loads only the sealed payload of a capsule
	FindContent(ctx context.Context, familyID, capsuleID uuid.UUID) (*Content, error)

	// FindAttachmentKeys loads the attachment keys of a capsule without its body
	FindAttachmentKeys(ctx context.Context, familyID, capsuleID uuid.UUID) ([]string, error)

	// ListMetadata returns capsule metadata for a family, newest first.
	// When visibleTo is set only capsules that member sent or receives are returned.
	ListMetadata(ctx context.Context, familyID uuid.UUID, visibleTo *uuid.UUID, filter shared.Filter) ([]*Metadata, int64, error)

	// Delete removes a capsule sealed by senderID. It returns false when no
	// row matched, i.e. the capsule is missing or not the sender's.
	Delete(ctx context.Context, familyID, capsuleID, senderID uuid.UUID) (bool, error)

	// ListUnlockingOn returns capsules across all families whose unlock date is exactly date
	ListUnlockingOn(ctx context.Context, date valueobject.Date) ([]*Metadata, error)

	// ListPassingUnlockable returns a sender's capsules that open upon passing
	ListPassingUnlockable(ctx context.Context, familyID, senderID uuid.UUID) ([]*Metadata, error)
}

// ContentSealer protects capsule content at rest
type ContentSealer interface {
	// Seal transforms plaintext into its stored form
	Seal(plaintext string) (string, error)
	// Open recovers plaintext from its stored form
	Open(stored string) (string, error)
}

// AttachmentStore resolves and removes capsule attachments in blob storage
type AttachmentStore interface {
	// DownloadURL returns a short-lived URL for an attachment
	DownloadURL(ctx context.Context, key string) (string, error)
	// Delete removes an attachment
	Delete(ctx context.Context, key string) error
}
