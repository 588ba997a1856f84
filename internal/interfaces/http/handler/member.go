package handler

import (
	"context"

	familyapp "github.com/familynest/backend/internal/application/family"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PassingRecorder records a member's passing
type PassingRecorder interface {
	MarkMemberAsPassed(ctx context.Context, caller family.Membership, memberID uuid.UUID, passedDate valueobject.Date) (*familyapp.MarkPassedResult, error)
}

// MarkPassedRequest is the body of POST /members/:id/passed
type MarkPassedRequest struct {
	PassedDate string `json:"passed_date" binding:"required,date"`
}

// MembershipResponse is the caller's membership in the active family
type MembershipResponse struct {
	MemberID uuid.UUID `json:"member_id"`
	FamilyID uuid.UUID `json:"family_id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
}

// MemberHandler handles family member endpoints
type MemberHandler struct {
	BaseHandler
	service PassingRecorder
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(service PassingRecorder) *MemberHandler {
	return &MemberHandler{service: service}
}

// Me godoc
// @Summary      Current membership
// @Description  The caller's member row in the family selected by X-Family-ID or the token
// @Tags         members
// @Produce      json
// @Success      200 {object} dto.Response{data=MembershipResponse}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /members/me [get]
func (h *MemberHandler) Me(c *gin.Context) {
	caller, ok := h.membership(c)
	if !ok {
		return
	}
	h.Success(c, MembershipResponse{
		MemberID: caller.MemberID,
		FamilyID: caller.FamilyID,
		Name:     caller.Name,
		Role:     string(caller.Role),
	})
}

// MarkPassed godoc
// @Summary      Mark a member as passed
// @Description  Owner only. Capsules the member sealed to open upon passing become readable from then on.
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        id      path string            true "Member ID" format(uuid)
// @Param        request body MarkPassedRequest true "Passing"
// @Success      200 {object} dto.Response{data=familyapp.MarkPassedResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /members/{id}/passed [post]
func (h *MemberHandler) MarkPassed(c *gin.Context) {
	caller, ok := h.membership(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req MarkPassedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.service.MarkMemberAsPassed(c.Request.Context(), caller, id, valueobject.MustParseDate(req.PassedDate))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
