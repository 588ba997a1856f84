package handler

import (
	capsuleapp "github.com/familynest/backend/internal/application/capsule"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CreateCapsuleRequest is the body of POST /capsules.
// Title, content and recipients are checked by the domain so the caller
// gets its human-readable message.
type CreateCapsuleRequest struct {
	Title           string   `json:"title" binding:"max=1000"`
	Content         string   `json:"content"`
	UnlockDate      string   `json:"unlock_date" binding:"omitempty,date"`
	UnlockOnPassing bool     `json:"unlock_on_passing"`
	RecipientIDs    []string `json:"recipient_ids" binding:"dive,uuid"`
	AttachmentKeys  []string `json:"attachment_keys" binding:"omitempty,max=20"`
}

// toInput converts the request; binding has already validated every id and the date
func (r CreateCapsuleRequest) toInput() capsuleapp.CreateCapsuleInput {
	in := capsuleapp.CreateCapsuleInput{
		Title:           r.Title,
		Content:         r.Content,
		UnlockOnPassing: r.UnlockOnPassing,
		AttachmentKeys:  r.AttachmentKeys,
	}
	if r.UnlockDate != "" {
		d := valueobject.MustParseDate(r.UnlockDate)
		in.UnlockDate = &d
	}
	in.RecipientIDs = make([]uuid.UUID, 0, len(r.RecipientIDs))
	for _, id := range r.RecipientIDs {
		in.RecipientIDs = append(in.RecipientIDs, uuid.MustParse(id))
	}
	return in
}

// ListCapsulesRequest holds the query of GET /capsules
type ListCapsulesRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at unlock_date title"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}
