package family

import (
	"strings"
	"time"

	"github.com/familynest/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Family is the tenant: every member, capsule and memory belongs to one family.
type Family struct {
	shared.BaseEntity
	Name string
}

// NewFamily creates a new family
func NewFamily(name string) (*Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Family name cannot be empty")
	}
	return &Family{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
	}, nil
}

// Age returns how long the family has existed at now
func (f *Family) Age(now time.Time) time.Duration {
	return now.Sub(f.CreatedAt)
}

// ActivitySummary counts memories a family created in a period
type ActivitySummary struct {
	FamilyID   uuid.UUID
	Journals   int64
	Photos     int64
	VoiceMemos int64
	Stories    int64
}

// Total returns the sum of all counted memories
func (a ActivitySummary) Total() int64 {
	return a.Journals + a.Photos + a.VoiceMemos + a.Stories
}
