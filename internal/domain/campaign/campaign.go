package campaign

import (
	"fmt"
	"time"
)

// Type identifies a lifecycle drip email
type Type string

const (
	TypeDay1Nudge         Type = "day1_nudge"
	TypeDay3Discovery     Type = "day3_discovery"
	TypeDay5Invite        Type = "day5_invite"
	TypeDay14Upgrade      Type = "day14_upgrade"
	TypeDay30Reengagement Type = "day30_reengagement"
)

// ParseType validates a stored campaign type
func ParseType(s string) (Type, error) {
	t := Type(s)
	for _, stage := range DripStages() {
		if stage.Type == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown campaign type %q", s)
}

// Mode selects how a family's age is matched against a stage
type Mode string

const (
	// ModeWindow matches only inside the stage's narrow age window.
	// A run that misses the window never sends that stage.
	ModeWindow Mode = "window"
	// ModeBackfill matches from the stage's lower bound for a grace period,
	// so a missed run is caught up on the next one.
	ModeBackfill Mode = "backfill"
)

// Facts are the usage figures a stage predicate is evaluated against
type Facts struct {
	Photos         int64
	Journals       int64
	Members        int64
	RecentMemories int64
}

// Stage is one step of the onboarding drip
type Stage struct {
	Type Type
	// MinAge is inclusive, MaxAge exclusive
	MinAge time.Duration
	MaxAge time.Duration
	// Eligible is the stage-specific usage predicate
	Eligible func(Facts) bool
}

// DripStages returns the drip stages in send order
func DripStages() []Stage {
	return []Stage{
		{
			Type:     TypeDay1Nudge,
			MinAge:   23 * time.Hour,
			MaxAge:   25 * time.Hour,
			Eligible: func(f Facts) bool { return f.Photos == 0 },
		},
		{
			Type:     TypeDay3Discovery,
			MinAge:   71 * time.Hour,
			MaxAge:   73 * time.Hour,
			Eligible: func(Facts) bool { return true },
		},
		{
			Type:     TypeDay5Invite,
			MinAge:   119 * time.Hour,
			MaxAge:   121 * time.Hour,
			Eligible: func(f Facts) bool { return f.Members == 1 },
		},
		{
			Type:     TypeDay14Upgrade,
			MinAge:   335 * time.Hour,
			MaxAge:   337 * time.Hour,
			Eligible: func(f Facts) bool { return f.Journals >= 3 },
		},
		{
			Type:     TypeDay30Reengagement,
			MinAge:   719 * time.Hour,
			MaxAge:   721 * time.Hour,
			Eligible: func(f Facts) bool { return f.RecentMemories == 0 },
		},
	}
}

// CreatedRange returns the (from, to] range of family creation times that
// match the stage at now. Under ModeBackfill the range extends grace past MinAge.
func (s Stage) CreatedRange(now time.Time, mode Mode, grace time.Duration) (from, to time.Time) {
	maxAge := s.MaxAge
	if mode == ModeBackfill && s.MinAge+grace > maxAge {
		maxAge = s.MinAge + grace
	}
	return now.Add(-maxAge), now.Add(-s.MinAge)
}

// Matches reports whether a family created at createdAt is in the stage at now
func (s Stage) Matches(createdAt, now time.Time, mode Mode, grace time.Duration) bool {
	from, to := s.CreatedRange(now, mode, grace)
	return createdAt.After(from) && !createdAt.After(to)
}
