package family

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemberRepository defines the interface for family member persistence.
// Every lookup is scoped to a family.
type MemberRepository interface {
	// FindByID finds a member within a family
	FindByID(ctx context.Context, familyID, memberID uuid.UUID) (*Member, error)

	// FindByUserID finds the member linked to an account within a family
	FindByUserID(ctx context.Context, familyID, userID uuid.UUID) (*Member, error)

	// FindByIDs returns the members of a family with the given ids
	FindByIDs(ctx context.Context, familyID uuid.UUID, ids []uuid.UUID) ([]*Member, error)

	// FindByFamily returns every member of a family
	FindByFamily(ctx context.Context, familyID uuid.UUID) ([]*Member, error)

	// FindOwnerWithAccount returns the owner that has an account and an email,
	// the sole recipient of lifecycle campaigns
	FindOwnerWithAccount(ctx context.Context, familyID uuid.UUID) (*Member, error)

	// FindWithBirthdays returns members, across families, that have a birth date
	FindWithBirthdays(ctx context.Context) ([]*Member, error)

	// CountByFamily returns the number of members in a family
	CountByFamily(ctx context.Context, familyID uuid.UUID) (int64, error)

	// Create persists a new member
	Create(ctx context.Context, member *Member) error

	// MarkPassed persists the remembered flag and passed date of a member
	MarkPassed(ctx context.Context, member *Member) error
}

// FamilyRepository defines the interface for family persistence
type FamilyRepository interface {
	// FindByID finds a family by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Family, error)

	// FindCreatedBetween returns families created in [from, to]
	FindCreatedBetween(ctx context.Context, from, to time.Time) ([]*Family, error)

	// FindAll returns every family
	FindAll(ctx context.Context) ([]*Family, error)

	// Create persists a new family
	Create(ctx context.Context, family *Family) error
}

// ActivityRepository reads memory counts used by campaign predicates and digests
type ActivityRepository interface {
	// CountPhotos returns all photos ever uploaded by a family
	CountPhotos(ctx context.Context, familyID uuid.UUID) (int64, error)

	// CountJournals returns all journal entries of a family
	CountJournals(ctx context.Context, familyID uuid.UUID) (int64, error)

	// SummarizeSince counts memories created at or after since, for one family
	SummarizeSince(ctx context.Context, familyID uuid.UUID, since time.Time) (ActivitySummary, error)
}
