package family

import (
	"time"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// MemberResponse is the API view of a family member
type MemberResponse struct {
	ID           uuid.UUID         `json:"id"`
	FamilyID     uuid.UUID         `json:"family_id"`
	Name         string            `json:"name"`
	Role         string            `json:"role"`
	HasAccount   bool              `json:"has_account"`
	IsRemembered bool              `json:"is_remembered"`
	PassedDate   *valueobject.Date `json:"passed_date,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// MarkPassedResult reports the member after the call and whether it changed them
type MarkPassedResult struct {
	Member  MemberResponse `json:"member"`
	Changed bool           `json:"changed"`
}

// ToMemberResponse converts a domain member to its API view
func ToMemberResponse(m *family.Member) MemberResponse {
	return MemberResponse{
		ID:           m.ID,
		FamilyID:     m.FamilyID,
		Name:         m.Name,
		Role:         string(m.Role),
		HasAccount:   m.HasAccount(),
		IsRemembered: m.IsRemembered,
		PassedDate:   m.PassedDate,
		CreatedAt:    m.CreatedAt,
	}
}
