package capsule

import (
	"testing"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestMetadata(familyID, senderID uuid.UUID, recipients ...uuid.UUID) *Metadata {
	return &Metadata{
		FamilyEntity: shared.NewFamilyEntity(familyID),
		SenderID:     senderID,
		Title:        "For when you graduate",
		Policy:       UnlockPolicy{UnlockDate: valueobject.MustParseDate("2099-01-01"), UnlockOnPassing: true},
		RecipientIDs: recipients,
	}
}

func TestResolveAccess(t *testing.T) {
	familyID := uuid.New()
	sender := uuid.New()
	recipient := uuid.New()
	legacy := uuid.New()

	m := newTestMetadata(familyID, sender, recipient)
	m.LegacyRecipientID = &legacy

	member := func(id uuid.UUID, role family.Role) family.Membership {
		return family.Membership{MemberID: id, FamilyID: familyID, Role: role}
	}

	tests := []struct {
		name     string
		caller   family.Membership
		expected AccessLevel
	}{
		{"sender with limited role", member(sender, family.RoleLimited), FullContent},
		{"join recipient", member(recipient, family.RoleLimited), FullContent},
		{"legacy recipient", member(legacy, family.RoleLimited), FullContent},
		{"owner bystander", member(uuid.New(), family.RoleOwner), MetadataOnly},
		{"adult bystander", member(uuid.New(), family.RoleAdult), MetadataOnly},
		{"limited bystander", member(uuid.New(), family.RoleLimited), NoAccess},
		{"owner of another family", family.Membership{MemberID: uuid.New(), FamilyID: uuid.New(), Role: family.RoleOwner}, NoAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveAccess(m, tt.caller))
		})
	}

	assert.Equal(t, NoAccess, ResolveAccess(nil, member(sender, family.RoleOwner)))
}

func TestResolveAccessRecipientMultiplicity(t *testing.T) {
	familyID := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	m := newTestMetadata(familyID, uuid.New(), a, b, c)

	for _, id := range []uuid.UUID{a, b, c} {
		assert.Equal(t, FullContent, ResolveAccess(m, family.Membership{MemberID: id, FamilyID: familyID, Role: family.RoleLimited}))
	}
	assert.Equal(t, NoAccess, ResolveAccess(m, family.Membership{MemberID: uuid.New(), FamilyID: familyID, Role: family.RoleLimited}))
	assert.Equal(t, MetadataOnly, ResolveAccess(m, family.Membership{MemberID: uuid.New(), FamilyID: familyID, Role: family.RoleAdult}))
}

func TestCanReadContent(t *testing.T) {
	for _, access := range []AccessLevel{NoAccess, MetadataOnly, FullContent} {
		for _, unlocked := range []bool{false, true} {
			expected := access == FullContent && unlocked
			assert.Equal(t, expected, CanReadContent(access, unlocked), "%s unlocked=%v", access, unlocked)
		}
	}
}

func TestAccessLevelString(t *testing.T) {
	assert.Equal(t, "no_access", NoAccess.String())
	assert.Equal(t, "metadata_only", MetadataOnly.String())
	assert.Equal(t, "full_content", FullContent.String())
}
