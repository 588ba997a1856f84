// Package capsule orchestrates sealing, listing, opening and deleting time capsules.
package capsule

import (
	"context"
	"fmt"
	"time"

	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/familynest/backend/internal/infrastructure/logger"
	"github.com/familynest/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRecipientNotInFamily is returned when a recipient is not a member of the sender's family
var ErrRecipientNotInFamily = shared.NewDomainError("INVALID_RECIPIENT", "Every recipient must belong to your family")

// Service handles time capsule operations for a resolved family member
type Service struct {
	capsules    capsule.Repository
	members     family.MemberRepository
	attachments capsule.AttachmentStore
	logger      *zap.Logger
	location    *time.Location
	now         func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLocation sets the timezone calendar dates are evaluated in
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

// NewService creates a new capsule Service
func NewService(
	capsules capsule.Repository,
	members family.MemberRepository,
	attachments capsule.AttachmentStore,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		capsules:    capsules,
		members:     members,
		attachments: attachments,
		logger:      logger,
		location:    time.UTC,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in the service timezone
func (s *Service) Today() valueobject.Date {
	return valueobject.DateIn(s.now(), s.location)
}

// CreateCapsule seals a new capsule from the caller
func (s *Service) CreateCapsule(ctx context.Context, caller family.Membership, in CreateCapsuleInput) (*CreateCapsuleResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "capsule", "create",
		telemetry.WithAttribute(telemetry.SpanAttrFamilyID, caller.FamilyID.String()),
	)
	defer span.End()

	c, err := capsule.NewTimeCapsule(capsule.NewCapsuleParams{
		FamilyID:        caller.FamilyID,
		SenderID:        caller.MemberID,
		Title:           in.Title,
		Body:            in.Content,
		UnlockDate:      in.UnlockDate,
		UnlockOnPassing: in.UnlockOnPassing,
		RecipientIDs:    in.RecipientIDs,
		AttachmentKeys:  in.AttachmentKeys,
	})
	if err != nil {
		return nil, err
	}

	found, err := s.members.FindByIDs(ctx, caller.FamilyID, c.RecipientIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(found) != len(c.RecipientIDs) {
		return nil, ErrRecipientNotInFamily
	}

	if err := s.capsules.Create(ctx, c); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCapsuleID, c.ID.String())
	logger.Enrich(ctx, s.logger).Info("Capsule sealed",
		zap.String("capsule_id", c.ID.String()),
		zap.Int("recipients", len(c.RecipientIDs)),
		zap.Int("attachments", len(c.Content.AttachmentKeys)),
		zap.Bool("unlock_on_passing", c.Policy.UnlockOnPassing),
	)
	return &CreateCapsuleResult{ID: c.ID}, nil
}

// DeleteCapsule removes a capsule the caller sent. Any other capsule, and a
// missing one, is not found. Attachment removal is best effort.
func (s *Service) DeleteCapsule(ctx context.Context, caller family.Membership, capsuleID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "capsule", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrCapsuleID, capsuleID.String()),
	)
	defer span.End()

	meta, err := s.capsules.FindMetadata(ctx, caller.FamilyID, capsuleID)
	if err != nil {
		return err
	}
	if !meta.IsSender(caller.MemberID) {
		return shared.ErrNotFound
	}

	var keys []string
	if meta.HasAttachments {
		keys, err = s.capsules.FindAttachmentKeys(ctx, caller.FamilyID, capsuleID)
		if err != nil {
			telemetry.RecordError(span, err)
			return err
		}
	}

	deleted, err := s.capsules.Delete(ctx, caller.FamilyID, capsuleID, caller.MemberID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !deleted {
		return shared.ErrNotFound
	}

	log := logger.Enrich(ctx, s.logger)
	for _, key := range keys {
		if err := s.attachments.Delete(ctx, key); err != nil {
			log.Warn("Failed to remove capsule attachment",
				zap.String("capsule_id", capsuleID.String()),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	log.Info("Capsule deleted", zap.String("capsule_id", capsuleID.String()))
	return nil
}

// GetCapsuleDetail returns the capsule as the caller may see it on today.
// The letter is read only when the caller is sender or recipient and the
// capsule is unlocked.
func (s *Service) GetCapsuleDetail(ctx context.Context, caller family.Membership, capsuleID uuid.UUID, today valueobject.Date) (*CapsuleDetail, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "capsule", "get_detail",
		telemetry.WithAttribute(telemetry.SpanAttrCapsuleID, capsuleID.String()),
	)
	defer span.End()

	meta, err := s.capsules.FindMetadata(ctx, caller.FamilyID, capsuleID)
	if err != nil {
		return nil, err
	}

	access := capsule.ResolveAccess(meta, caller)
	if access == capsule.NoAccess {
		return nil, shared.ErrNotFound
	}

	people, err := s.resolvePeople(ctx, caller.FamilyID, []*capsule.Metadata{meta})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	summary := toSummary(meta, people, today)

	detail := &CapsuleDetail{
		CapsuleSummary: summary,
		IsSender:       meta.IsSender(caller.MemberID),
	}
	telemetry.SetAttributes(span, "capsule.access", access.String())

	switch {
	case access == capsule.MetadataOnly:
		detail.View = ViewPrivate
		return detail, nil
	case !capsule.CanReadContent(access, summary.IsUnlocked):
		detail.View = ViewSealed
		return detail, nil
	}

	content, err := s.capsules.FindContent(ctx, caller.FamilyID, capsuleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	detail.View = ViewUnlocked
	detail.Content = &content.Body

	detail.Attachments = make([]Attachment, 0, len(content.AttachmentKeys))
	for _, key := range content.AttachmentKeys {
		url, err := s.attachments.DownloadURL(ctx, key)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("sign attachment: %w", err)
		}
		detail.Attachments = append(detail.Attachments, Attachment{Key: key, URL: url})
	}
	return detail, nil
}

// ListCapsules returns a page of capsule metadata. Limited members see only
// capsules they sent or receive.
func (s *Service) ListCapsules(ctx context.Context, caller family.Membership, today valueobject.Date, filter shared.Filter) ([]CapsuleSummary, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "capsule", "list")
	defer span.End()

	var visibleTo *uuid.UUID
	if !caller.Role.CanViewPrivateMetadata() {
		visibleTo = &caller.MemberID
	}

	metas, total, err := s.capsules.ListMetadata(ctx, caller.FamilyID, visibleTo, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}

	people, err := s.resolvePeople(ctx, caller.FamilyID, metas)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}

	items := make([]CapsuleSummary, len(metas))
	for i, m := range metas {
		items[i] = toSummary(m, people, today)
	}
	return items, total, nil
}

// resolvePeople loads the senders and recipients of metas in one query
func (s *Service) resolvePeople(ctx context.Context, familyID uuid.UUID, metas []*capsule.Metadata) (map[uuid.UUID]*family.Member, error) {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, m := range metas {
		add(m.SenderID)
		for _, id := range m.AllRecipientIDs() {
			add(id)
		}
	}

	people := make(map[uuid.UUID]*family.Member, len(ids))
	if len(ids) == 0 {
		return people, nil
	}
	members, err := s.members.FindByIDs(ctx, familyID, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve capsule members: %w", err)
	}
	for _, m := range members {
		people[m.ID] = m
	}
	return people, nil
}

func personRef(id uuid.UUID, people map[uuid.UUID]*family.Member) PersonRef {
	ref := PersonRef{ID: id}
	if m, ok := people[id]; ok {
		ref.Name = m.Name
		ref.IsRemembered = m.IsRemembered
	}
	return ref
}

func toSummary(m *capsule.Metadata, people map[uuid.UUID]*family.Member, today valueobject.Date) CapsuleSummary {
	sender := personRef(m.SenderID, people)

	recipientIDs := m.AllRecipientIDs()
	recipients := make([]PersonRef, len(recipientIDs))
	for i, id := range recipientIDs {
		recipients[i] = personRef(id, people)
	}

	var unlockDate *valueobject.Date
	if !m.Policy.UnlockDate.IsFarFuture() {
		d := m.Policy.UnlockDate
		unlockDate = &d
	}

	return CapsuleSummary{
		ID:              m.ID,
		Title:           m.Title,
		Sender:          sender,
		Recipients:      recipients,
		UnlockDate:      unlockDate,
		UnlockOnPassing: m.Policy.UnlockOnPassing,
		UnlockCondition: capsule.UnlockCondition(m.Policy),
		IsUnlocked:      capsule.IsUnlocked(m.Policy, today, sender.IsRemembered),
		HasAttachments:  m.HasAttachments,
		CreatedAt:       m.CreatedAt,
	}
}
