package family

import (
	"strings"
	"time"

	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Role is a member's role within a family
type Role string

const (
	RoleOwner   Role = "owner"   // Manages the family, may record a passing
	RoleAdult   Role = "adult"   // Full member
	RoleLimited Role = "limited" // Child or restricted account
)

// ParseRole converts a stored role string into a Role.
// Unknown values resolve to RoleLimited.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner
	case RoleAdult:
		return RoleAdult
	default:
		return RoleLimited
	}
}

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleAdult || r == RoleLimited
}

// CanViewPrivateMetadata reports whether the role may see capsules it is not party to
func (r Role) CanViewPrivateMetadata() bool {
	return r == RoleOwner || r == RoleAdult
}

// Member is a person in a family. A member may exist without an account
// (UserID nil), e.g. a grandparent added by an owner.
type Member struct {
	shared.FamilyEntity
	UserID       *uuid.UUID
	Name         string
	Email        string
	Role         Role
	BirthDate    *valueobject.Date
	IsRemembered bool
	PassedDate   *valueobject.Date
}

// NewMember creates a new family member
func NewMember(familyID uuid.UUID, name string, role Role) (*Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Member name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Member name cannot exceed 200 characters")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown member role")
	}
	return &Member{
		FamilyEntity: shared.NewFamilyEntity(familyID),
		Name:         name,
		Role:         role,
	}, nil
}

// HasAccount reports whether the member is linked to a sign-in identity
func (m *Member) HasAccount() bool {
	return m.UserID != nil
}

// HasEmail reports whether the member can be emailed
func (m *Member) HasEmail() bool {
	return strings.TrimSpace(m.Email) != ""
}

// IsOwner reports whether the member holds the owner role
func (m *Member) IsOwner() bool {
	return m.Role == RoleOwner
}

// Membership is the resolved view of the caller within the active family
type Membership struct {
	MemberID uuid.UUID
	FamilyID uuid.UUID
	UserID   uuid.UUID
	Name     string
	Role     Role
}

// MembershipOf builds the caller view for a member with an account
func MembershipOf(m *Member) Membership {
	ms := Membership{
		MemberID: m.ID,
		FamilyID: m.FamilyID,
		Name:     m.Name,
		Role:     m.Role,
	}
	if m.UserID != nil {
		ms.UserID = *m.UserID
	}
	return ms
}

// MarkAsPassed records that the member has died. The flag is monotonic:
// once set it is never cleared, and a repeated call keeps the original date.
// It returns true when the state changed.
func (m *Member) MarkAsPassed(passedDate valueobject.Date, today valueobject.Date) (bool, error) {
	if passedDate.IsZero() {
		return false, shared.NewDomainError("INVALID_PASSED_DATE", "Passed date is required")
	}
	if passedDate.After(today) {
		return false, shared.NewDomainError("INVALID_PASSED_DATE", "Passed date cannot be in the future")
	}
	if m.IsRemembered {
		return false, nil
	}

	m.IsRemembered = true
	m.PassedDate = &passedDate
	m.AddDomainEvent(NewMemberPassedEvent(m, time.Now()))
	return true, nil
}
