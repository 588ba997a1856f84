package campaign

import (
	"context"
	"fmt"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/infrastructure/logger"
	"github.com/familynest/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PassingNoticeHandler tells the recipients of a sender's passing-unlockable
// capsules that they opened. It reacts to family.member.passed and does
// nothing unless enabled.
type PassingNoticeHandler struct {
	evaluator *Evaluator
	enabled   bool
}

var _ shared.EventHandler = (*PassingNoticeHandler)(nil)

// NewPassingNoticeHandler creates a handler that sends through the evaluator's collaborators
func NewPassingNoticeHandler(evaluator *Evaluator, enabled bool) *PassingNoticeHandler {
	return &PassingNoticeHandler{evaluator: evaluator, enabled: enabled}
}

// EventTypes returns the event types this handler is interested in
func (h *PassingNoticeHandler) EventTypes() []string {
	return []string{family.EventTypeMemberPassed}
}

// Handle sends the notices. Per-recipient failures are logged; only a failed
// lookup is returned so the event can be redelivered.
func (h *PassingNoticeHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.enabled {
		return nil
	}
	passed, ok := event.(*family.MemberPassedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	e := h.evaluator
	ctx, span := telemetry.StartServiceSpan(ctx, "campaign", "passing_notice",
		telemetry.WithAttribute(telemetry.SpanAttrFamilyID, passed.TenantID().String()),
		telemetry.WithAttribute(telemetry.SpanAttrMemberID, passed.MemberID.String()),
	)
	defer span.End()
	log := logger.Enrich(ctx, e.logger).With(zap.String("member_id", passed.MemberID.String()))

	capsules, err := e.deps.Capsules.ListPassingUnlockable(ctx, passed.TenantID(), passed.MemberID)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("find passing capsules: %w", err)
	}

	failures := 0
	onError := func(category, email string, err error) {
		failures++
		log.Warn("Passing notice failed", zap.String("category", category), zap.String("email", email), zap.Error(err))
	}
	sent := 0
	for _, c := range capsules {
		sent += e.notifyRecipients(ctx, CategoryPassingNotice, c, e.deps.Renderer.PassingNotice, onError)
	}

	log.Info("Passing notices sent",
		zap.Int("capsules", len(capsules)),
		zap.Int("passingNotices", sent),
		zap.Int("failures", failures),
	)
	return nil
}
