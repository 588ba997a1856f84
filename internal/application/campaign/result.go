package campaign

import (
	"fmt"

	"github.com/familynest/backend/internal/domain/campaign"
)

// Categories reported in RunResult errors and metrics
const (
	CategoryBirthday      = "birthday"
	CategoryCapsuleUnlock = "capsule_unlock"
	CategoryWeeklyDigest  = "weekly_digest"
	CategoryPassingNotice = "passing_notice"
	CategoryRun           = "run"
)

// RunResult counts the emails a run sent per category. Failures are listed
// in Errors, each prefixed with its category.
type RunResult struct {
	BirthdayReminders int      `json:"birthdayReminders"`
	CapsuleUnlocks    int      `json:"capsuleUnlocks"`
	WeeklyDigests     int      `json:"weeklyDigests"`
	Day1Nudges        int      `json:"day1Nudges"`
	Day3Discovery     int      `json:"day3Discovery"`
	Day5Invites       int      `json:"day5Invites"`
	Day14Upgrades     int      `json:"day14Upgrades"`
	Day30Reengagement int      `json:"day30Reengagement"`
	Errors            []string `json:"errors"`
}

func newRunResult() *RunResult {
	return &RunResult{Errors: []string{}}
}

// Sent returns the number of emails sent across all categories
func (r *RunResult) Sent() int {
	return r.BirthdayReminders + r.CapsuleUnlocks + r.WeeklyDigests +
		r.Day1Nudges + r.Day3Discovery + r.Day5Invites + r.Day14Upgrades + r.Day30Reengagement
}

func (r *RunResult) addError(category string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", category, err))
}

func (r *RunResult) addRecipientError(category, email string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %s: %v", category, email, err))
}

func (r *RunResult) countDrip(t campaign.Type) {
	switch t {
	case campaign.TypeDay1Nudge:
		r.Day1Nudges++
	case campaign.TypeDay3Discovery:
		r.Day3Discovery++
	case campaign.TypeDay5Invite:
		r.Day5Invites++
	case campaign.TypeDay14Upgrade:
		r.Day14Upgrades++
	case campaign.TypeDay30Reengagement:
		r.Day30Reengagement++
	}
}
