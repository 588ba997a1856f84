package campaign

import (
	"time"

	"github.com/google/uuid"
)

// Status is the state of a ledger row.
// A row is claimed as pending before the send and marked sent after it.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
)

// Record is one row of the campaign ledger. At most one exists per
// (member, type), and a sent record is never changed.
type Record struct {
	ID        uuid.UUID
	MemberID  uuid.UUID
	Type      Type
	Status    Status
	CreatedAt time.Time
	SentAt    *time.Time
}
