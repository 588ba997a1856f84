package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/infrastructure/logger"
	"github.com/familynest/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Membership context keys and header
const (
	MembershipKey  = "membership"
	FamilyIDHeader = "X-Family-ID"
)

// MembershipResolver looks up the caller's member row in a family
type MembershipResolver interface {
	ResolveMembership(ctx context.Context, familyID, userID uuid.UUID) (family.Membership, error)
}

// ResolveMembership loads the caller's membership once per request. The
// family comes from the X-Family-ID header, falling back to the token's
// family_id claim. It must run after JWTAuthMiddleware.
func ResolveMembership(resolver MembershipResolver, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		requestID := c.GetString(RequestIDKey)

		userID, ok := GetJWTUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", requestID))
			return
		}

		familyID, err := requestedFamily(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeValidationFormat, err.Error(), requestID))
			return
		}
		if familyID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeNoMembership, "No family selected", requestID))
			return
		}

		membership, err := resolver.ResolveMembership(c.Request.Context(), familyID, userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden,
					dto.NewErrorResponseWithRequestID(dto.ErrCodeNoMembership, "You are not a member of this family", requestID))
				return
			}
			log.Error("Failed to resolve membership",
				zap.String("family_id", familyID.String()),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An internal error occurred", requestID))
			return
		}

		c.Set(MembershipKey, membership)
		ctx := logger.WithFamilyID(c.Request.Context(), membership.FamilyID.String())
		ctx = logger.WithMemberID(ctx, membership.MemberID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// requestedFamily returns uuid.Nil when neither the header nor the claim names a family
func requestedFamily(c *gin.Context) (uuid.UUID, error) {
	if header := strings.TrimSpace(c.GetHeader(FamilyIDHeader)); header != "" {
		id, err := uuid.Parse(header)
		if err != nil {
			return uuid.Nil, errors.New("X-Family-ID must be a UUID")
		}
		return id, nil
	}
	if claims := GetJWTClaims(c); claims != nil {
		id, ok, err := claims.FamilyUUID()
		if err != nil {
			return uuid.Nil, errors.New("family_id claim must be a UUID")
		}
		if ok {
			return id, nil
		}
	}
	return uuid.Nil, nil
}

// GetMembership returns the membership stored by ResolveMembership
func GetMembership(c *gin.Context) (family.Membership, bool) {
	if v, exists := c.Get(MembershipKey); exists {
		if m, ok := v.(family.Membership); ok {
			return m, true
		}
	}
	return family.Membership{}, false
}
