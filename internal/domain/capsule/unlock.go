package capsule

import (
	"github.com/familynest/backend/internal/domain/shared/valueobject"
)

const conditionDateLayout = "January 2, 2006"

// IsUnlocked decides whether a capsule is open on today.
// A capsule opens when its date is reached, or when it opens upon passing
// and its sender has been marked as passed. The result is never stored;
// callers evaluate it on every read.
func IsUnlocked(policy UnlockPolicy, today valueobject.Date, senderIsRemembered bool) bool {
	dateUnlocked := policy.UnlockDate.OnOrBefore(today)
	passingUnlocked := policy.UnlockOnPassing && senderIsRemembered
	return dateUnlocked || passingUnlocked
}

// UnlockCondition describes the unlock policy for display
func UnlockCondition(policy UnlockPolicy) string {
	if policy.UnlockDate.IsFarFuture() && policy.UnlockOnPassing {
		return "Opens upon passing"
	}
	date := policy.UnlockDate.Format(conditionDateLayout)
	if policy.UnlockOnPassing {
		return "Opens on " + date + " or upon passing"
	}
	return "Opens on " + date
}
