package handler

import (
	"context"

	capsuleapp "github.com/familynest/backend/internal/application/capsule"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CapsuleService is the part of the capsule application service the handler uses
type CapsuleService interface {
	CreateCapsule(ctx context.Context, caller family.Membership, in capsuleapp.CreateCapsuleInput) (*capsuleapp.CreateCapsuleResult, error)
	DeleteCapsule(ctx context.Context, caller family.Membership, capsuleID uuid.UUID) error
	GetCapsuleDetail(ctx context.Context, caller family.Membership, capsuleID uuid.UUID, today valueobject.Date) (*capsuleapp.CapsuleDetail, error)
	ListCapsules(ctx context.Context, caller family.Membership, today valueobject.Date, filter shared.Filter) ([]capsuleapp.CapsuleSummary, int64, error)
	Today() valueobject.Date
}

// CapsuleHandler handles time capsule endpoints
type CapsuleHandler struct {
	BaseHandler
	service CapsuleService
}

// NewCapsuleHandler creates a new CapsuleHandler
func NewCapsuleHandler(service CapsuleService) *CapsuleHandler {
	return &CapsuleHandler{service: service}
}

// List godoc
// @Summary      List time capsules
// @Description  Capsule metadata for the caller's family. Limited members only see capsules they sent or receive. Never includes letters.
// @Tags         capsules
// @Produce      json
// @Param        page       query int    false "Page number"
// @Param        page_size  query int    false "Page size"
// @Param        order_by   query string false "created_at, unlock_date or title"
// @Param        order_dir  query string false "asc or desc"
// @Success      200 {object} dto.Response{data=[]capsuleapp.CapsuleSummary,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /capsules [get]
func (h *CapsuleHandler) List(c *gin.Context) {
	caller, ok := h.membership(c)
	if !ok {
		return
	}

	var req ListCapsulesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}

	items, total, err := h.service.ListCapsules(c.Request.Context(), caller, h.service.Today(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.Limit())
}

// Get godoc
// @Summary      Get a time capsule
// @Description  Returns the sealed, unlocked or private view. A capsule the caller may not see is reported as not found.
// @Tags         capsules
// @Produce      json
// @Param        id path string true "Capsule ID" format(uuid)
// @Success      200 {object} dto.Response{data=capsuleapp.CapsuleDetail}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /capsules/{id} [get]
func (h *CapsuleHandler) Get(c *gin.Context) {
	caller, ok := h.membership(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	detail, err := h.service.GetCapsuleDetail(c.Request.Context(), caller, id, h.service.Today())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// Create godoc
// @Summary      Seal a time capsule
// @Description  Seals a letter for one or more family members. It cannot be edited afterwards.
// @Tags         capsules
// @Accept       json
// @Produce      json
// @Param        request body CreateCapsuleRequest true "Capsule"
// @Success      201 {object} dto.Response{data=capsuleapp.CreateCapsuleResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /capsules [post]
func (h *CapsuleHandler) Create(c *gin.Context) {
	caller, ok := h.membership(c)
	if !ok {
		return
	}

	var req CreateCapsuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.service.CreateCapsule(c.Request.Context(), caller, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Delete godoc
// @Summary      Delete a time capsule
// @Description  Only the sender may delete a capsule. Anything else is reported as not found.
// @Tags         capsules
// @Param        id path string true "Capsule ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /capsules/{id} [delete]
func (h *CapsuleHandler) Delete(c *gin.Context) {
	caller, ok := h.membership(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteCapsule(c.Request.Context(), caller, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
