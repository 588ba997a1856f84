// Package family holds the membership resolver and the passing-event trigger.
package family

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/familynest/backend/internal/infrastructure/logger"
	"github.com/familynest/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrOwnerRequired is returned when a non-owner tries to record a passing
var ErrOwnerRequired = shared.NewDomainError("FORBIDDEN", "Only a family owner can mark a member as passed")

// Service resolves memberships and records passings
type Service struct {
	members   family.MemberRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLocation sets the timezone "today" is computed in
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. publisher may be nil when no handler listens.
func NewService(members family.MemberRepository, publisher shared.EventPublisher, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		members:   members,
		publisher: publisher,
		logger:    logger,
		location:  time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveMembership returns the caller's membership in familyID.
// A principal without a member row in the family is not found.
func (s *Service) ResolveMembership(ctx context.Context, familyID, userID uuid.UUID) (family.Membership, error) {
	if familyID == uuid.Nil || userID == uuid.Nil {
		return family.Membership{}, shared.ErrNotFound
	}
	member, err := s.members.FindByUserID(ctx, familyID, userID)
	if err != nil {
		return family.Membership{}, err
	}
	return family.MembershipOf(member), nil
}

// MarkMemberAsPassed records that memberID has passed. Only owners may do
// this, and a member already remembered keeps their original date.
func (s *Service) MarkMemberAsPassed(ctx context.Context, caller family.Membership, memberID uuid.UUID, passedDate valueobject.Date) (*MarkPassedResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "family", "mark_member_passed",
		telemetry.WithAttribute(telemetry.SpanAttrFamilyID, caller.FamilyID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrMemberID, memberID.String()),
	)
	defer span.End()

	if caller.Role != family.RoleOwner {
		return nil, ErrOwnerRequired
	}

	member, err := s.members.FindByID(ctx, caller.FamilyID, memberID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			telemetry.RecordError(span, err)
		}
		return nil, err
	}

	today := valueobject.DateIn(s.now(), s.location)
	changed, err := member.MarkAsPassed(passedDate, today)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &MarkPassedResult{Member: ToMemberResponse(member)}, nil
	}

	if err := s.members.MarkPassed(ctx, member); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("record passing: %w", err)
	}

	logger.Enrich(ctx, s.logger).Info("Member marked as passed",
		zap.String("target_member_id", member.ID.String()),
		zap.String("passed_date", passedDate.String()),
	)
	s.publishEvents(ctx, member)

	return &MarkPassedResult{Member: ToMemberResponse(member), Changed: true}, nil
}

// publishEvents hands the member's pending events to the bus. The passing is
// already durable, so a publish failure is logged rather than returned.
func (s *Service) publishEvents(ctx context.Context, member *family.Member) {
	events := member.GetDomainEvents()
	member.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Failed to publish member events",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}
