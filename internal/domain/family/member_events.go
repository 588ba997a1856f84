package family

import (
	"time"

	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AggregateTypeMember is the aggregate type for member events
const AggregateTypeMember = "FamilyMember"

// EventTypeMemberPassed is published when an owner records a member's passing
const EventTypeMemberPassed = "family.member.passed"

// MemberPassedEvent is published when a member is marked as passed
type MemberPassedEvent struct {
	shared.BaseDomainEvent
	MemberID   uuid.UUID        `json:"member_id"`
	Name       string           `json:"name"`
	PassedDate valueobject.Date `json:"passed_date"`
}

// NewMemberPassedEvent creates a new MemberPassedEvent
func NewMemberPassedEvent(m *Member, at time.Time) *MemberPassedEvent {
	base := shared.NewBaseDomainEvent(EventTypeMemberPassed, AggregateTypeMember, m.ID, m.FamilyID)
	base.Timestamp = at
	ev := &MemberPassedEvent{
		BaseDomainEvent: base,
		MemberID:        m.ID,
		Name:            m.Name,
	}
	if m.PassedDate != nil {
		ev.PassedDate = *m.PassedDate
	}
	return ev
}
