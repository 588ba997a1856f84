package family

import (
	"testing"

	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
	}{
		{"owner", RoleOwner},
		{"Owner ", RoleOwner},
		{"adult", RoleAdult},
		{"limited", RoleLimited},
		{"child", RoleLimited},
		{"", RoleLimited},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRole(tt.input))
		})
	}
}

func TestRoleCanViewPrivateMetadata(t *testing.T) {
	assert.True(t, RoleOwner.CanViewPrivateMetadata())
	assert.True(t, RoleAdult.CanViewPrivateMetadata())
	assert.False(t, RoleLimited.CanViewPrivateMetadata())
}

func TestNewMember(t *testing.T) {
	familyID := uuid.New()

	t.Run("creates member", func(t *testing.T) {
		m, err := NewMember(familyID, "  Rosa Garcia ", RoleAdult)
		require.NoError(t, err)
		assert.Equal(t, familyID, m.FamilyID)
		assert.Equal(t, "Rosa Garcia", m.Name)
		assert.Equal(t, RoleAdult, m.Role)
		assert.False(t, m.IsRemembered)
		assert.False(t, m.HasAccount())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewMember(familyID, "   ", RoleAdult)
		assert.Error(t, err)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewMember(familyID, "Rosa", Role("grandmaster"))
		assert.Error(t, err)
	})
}

func TestMemberMarkAsPassed(t *testing.T) {
	today := valueobject.MustParseDate("2024-03-05")

	t.Run("sets flag and date and records event", func(t *testing.T) {
		m, err := NewMember(uuid.New(), "Sam", RoleAdult)
		require.NoError(t, err)

		changed, err := m.MarkAsPassed(valueobject.MustParseDate("2024-03-01"), today)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, m.IsRemembered)
		require.NotNil(t, m.PassedDate)
		assert.Equal(t, "2024-03-01", m.PassedDate.String())

		events := m.GetDomainEvents()
		require.Len(t, events, 1)
		ev, ok := events[0].(*MemberPassedEvent)
		require.True(t, ok)
		assert.Equal(t, EventTypeMemberPassed, ev.EventType())
		assert.Equal(t, m.ID, ev.AggregateID())
		assert.Equal(t, m.FamilyID, ev.TenantID())
	})

	t.Run("second call is a no-op keeping the first date", func(t *testing.T) {
		m, err := NewMember(uuid.New(), "Sam", RoleAdult)
		require.NoError(t, err)

		_, err = m.MarkAsPassed(valueobject.MustParseDate("2024-03-01"), today)
		require.NoError(t, err)
		changed, err := m.MarkAsPassed(valueobject.MustParseDate("2024-03-04"), today)
		require.NoError(t, err)

		assert.False(t, changed)
		assert.True(t, m.IsRemembered)
		assert.Equal(t, "2024-03-01", m.PassedDate.String())
		assert.Len(t, m.GetDomainEvents(), 1)
	})

	t.Run("rejects future date", func(t *testing.T) {
		m, err := NewMember(uuid.New(), "Sam", RoleAdult)
		require.NoError(t, err)

		_, err = m.MarkAsPassed(valueobject.MustParseDate("2024-03-06"), today)
		assert.Error(t, err)
		assert.False(t, m.IsRemembered)
	})

	t.Run("rejects zero date", func(t *testing.T) {
		m, err := NewMember(uuid.New(), "Sam", RoleAdult)
		require.NoError(t, err)

		_, err = m.MarkAsPassed(valueobject.Date{}, today)
		assert.Error(t, err)
	})
}

func TestActivitySummaryTotal(t *testing.T) {
	s := ActivitySummary{Journals: 2, Photos: 3, VoiceMemos: 1, Stories: 4}
	assert.Equal(t, int64(10), s.Total())
	assert.Zero(t, ActivitySummary{}.Total())
}
