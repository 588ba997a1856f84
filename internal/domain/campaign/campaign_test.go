package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageOf(t *testing.T, typ Type) Stage {
	t.Helper()
	for _, s := range DripStages() {
		if s.Type == typ {
			return s
		}
	}
	t.Fatalf("stage %s not found", typ)
	return Stage{}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("day5_invite")
	require.NoError(t, err)
	assert.Equal(t, TypeDay5Invite, typ)

	_, err = ParseType("day2_whatever")
	assert.Error(t, err)
}

func TestDripStagesDoNotOverlap(t *testing.T) {
	stages := DripStages()
	require.Len(t, stages, 5)
	for i := 1; i < len(stages); i++ {
		assert.LessOrEqual(t, stages[i-1].MaxAge, stages[i].MinAge, "%s overlaps %s", stages[i-1].Type, stages[i].Type)
	}
}

func TestStageMatchesWindow(t *testing.T) {
	now := time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC)
	day1 := stageOf(t, TypeDay1Nudge)

	tests := []struct {
		name     string
		age      time.Duration
		expected bool
	}{
		{"too young", 22*time.Hour + 59*time.Minute, false},
		{"lower bound inclusive", 23 * time.Hour, true},
		{"center", 24 * time.Hour, true},
		{"just inside upper bound", 25*time.Hour - time.Second, true},
		{"upper bound exclusive", 25 * time.Hour, false},
		{"missed window", 30 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, day1.Matches(now.Add(-tt.age), now, ModeWindow, 0))
		})
	}
}

func TestStageMatchesBackfill(t *testing.T) {
	now := time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC)
	day1 := stageOf(t, TypeDay1Nudge)

	assert.True(t, day1.Matches(now.Add(-30*time.Hour), now, ModeBackfill, 24*time.Hour))
	assert.True(t, day1.Matches(now.Add(-46*time.Hour), now, ModeBackfill, 24*time.Hour))
	assert.False(t, day1.Matches(now.Add(-48*time.Hour), now, ModeBackfill, 24*time.Hour))
	assert.False(t, day1.Matches(now.Add(-22*time.Hour), now, ModeBackfill, 24*time.Hour))

	// A grace shorter than the window never narrows it
	assert.True(t, day1.Matches(now.Add(-24*time.Hour), now, ModeBackfill, time.Minute))
}

func TestStagePredicates(t *testing.T) {
	assert.True(t, stageOf(t, TypeDay1Nudge).Eligible(Facts{Photos: 0}))
	assert.False(t, stageOf(t, TypeDay1Nudge).Eligible(Facts{Photos: 1}))

	assert.True(t, stageOf(t, TypeDay3Discovery).Eligible(Facts{Photos: 50, Journals: 50}))

	assert.True(t, stageOf(t, TypeDay5Invite).Eligible(Facts{Members: 1}))
	assert.False(t, stageOf(t, TypeDay5Invite).Eligible(Facts{Members: 2}))

	assert.False(t, stageOf(t, TypeDay14Upgrade).Eligible(Facts{Journals: 2}))
	assert.True(t, stageOf(t, TypeDay14Upgrade).Eligible(Facts{Journals: 3}))

	assert.True(t, stageOf(t, TypeDay30Reengagement).Eligible(Facts{RecentMemories: 0, Journals: 10}))
	assert.False(t, stageOf(t, TypeDay30Reengagement).Eligible(Facts{RecentMemories: 1}))
}
