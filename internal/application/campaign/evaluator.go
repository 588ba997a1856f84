// Package campaign evaluates the daily notification run: lifecycle drip
// emails, birthday reminders, capsule unlock notices and the weekly digest.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/familynest/backend/internal/domain/campaign"
	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/familynest/backend/internal/infrastructure/logger"
	"github.com/familynest/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	runLockPrefix       = "campaign:run:"
	birthdayKeyPrefix   = "birthday:"
	birthdayKeyTTL      = 48 * time.Hour
	recentActivityRange = 7 * 24 * time.Hour
	birthdayDateLayout  = "January 2"
)

// Dependencies are the collaborators of an Evaluator
type Dependencies struct {
	Families family.FamilyRepository
	Members  family.MemberRepository
	Activity family.ActivityRepository
	Capsules capsule.Repository
	Ledger   campaign.Ledger
	Store    shared.IdempotencyStore
	Mailer   Mailer
	Renderer *Renderer
}

// EvaluatorConfig holds the run settings
type EvaluatorConfig struct {
	From             string
	Location         *time.Location
	Mode             campaign.Mode
	BackfillGrace    time.Duration
	BirthdayLeadDays int
	RunLockTTL       time.Duration
	PendingTimeout   time.Duration
}

func (c *EvaluatorConfig) applyDefaults() {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Mode == "" {
		c.Mode = campaign.ModeWindow
	}
	if c.BackfillGrace <= 0 {
		c.BackfillGrace = 24 * time.Hour
	}
	if c.BirthdayLeadDays <= 0 {
		c.BirthdayLeadDays = 3
	}
	if c.RunLockTTL <= 0 {
		c.RunLockTTL = 15 * time.Minute
	}
	if c.PendingTimeout <= 0 {
		c.PendingTimeout = time.Hour
	}
}

// EvaluatorOption configures an Evaluator
type EvaluatorOption func(*Evaluator)

// WithMetrics records email and run metrics
func WithMetrics(m *telemetry.CampaignMetrics) EvaluatorOption {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// Evaluator computes each category's audience for a moment in time and
// sends every eligible email once
type Evaluator struct {
	deps    Dependencies
	cfg     EvaluatorConfig
	metrics *telemetry.CampaignMetrics
	logger  *zap.Logger
}

// NewEvaluator creates a new Evaluator
func NewEvaluator(deps Dependencies, cfg EvaluatorConfig, logger *zap.Logger, opts ...EvaluatorOption) *Evaluator {
	cfg.applyDefaults()
	e := &Evaluator{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the timezone calendar dates are evaluated in
func (e *Evaluator) Location() *time.Location {
	return e.cfg.Location
}

type category struct {
	name string
	run  func(ctx context.Context, now time.Time, today valueobject.Date, result *RunResult) error
}

// Run evaluates every category at now. A failing category is recorded in
// the result and the next one still runs. A run that starts while another
// for the same local date is still going is refused.
func (e *Evaluator) Run(ctx context.Context, now time.Time) *RunResult {
	started := time.Now()
	today := valueobject.DateIn(now, e.cfg.Location)
	ctx, span := telemetry.StartServiceSpan(ctx, "campaign", "run",
		telemetry.WithAttribute(telemetry.SpanAttrRunDate, today.String()),
	)
	defer span.End()
	log := logger.Enrich(ctx, e.logger).With(zap.String("run_date", today.String()))

	result := newRunResult()

	// The lock only keeps runs from overlapping. It is released on return so
	// a later invocation the same day evaluates its own "now".
	lockKey := runLockPrefix + today.String()
	acquired, err := e.deps.Store.MarkProcessed(ctx, lockKey, e.cfg.RunLockTTL)
	switch {
	case err != nil:
		log.Warn("Run lock unavailable, running without it", zap.Error(err))
	case !acquired:
		log.Info("Campaign run already in progress for this date")
		result.addError(CategoryRun, fmt.Errorf("a run for %s is already in progress", today))
		e.metrics.RecordRun(ctx, telemetry.OutcomeSkipped, time.Since(started))
		return result
	default:
		defer func() {
			if err := e.deps.Store.Forget(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Warn("Failed to release run lock", zap.Error(err))
			}
		}()
	}

	categories := []category{
		{CategoryBirthday, e.runBirthdays},
		{CategoryCapsuleUnlock, e.runCapsuleUnlocks},
		{CategoryWeeklyDigest, e.runWeeklyDigest},
	}
	for _, stage := range campaign.DripStages() {
		categories = append(categories, category{
			name: string(stage.Type),
			run: func(ctx context.Context, now time.Time, _ valueobject.Date, result *RunResult) error {
				return e.runDripStage(ctx, stage, now, result)
			},
		})
	}

	for _, c := range categories {
		labels := telemetry.OperationLabels("campaign.run", map[string]string{
			telemetry.ProfilingLabelCategory: c.name,
		})
		telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
			if err := c.run(ctx, now, today, result); err != nil {
				log.Error("Campaign category failed", zap.String("category", c.name), zap.Error(err))
				result.addError(c.name, err)
			}
		})
	}

	outcome := telemetry.OutcomeSent
	if len(result.Errors) > 0 {
		outcome = telemetry.OutcomeFailed
		telemetry.SetAttributes(span, "campaign.errors", len(result.Errors))
	}
	e.metrics.RecordRun(ctx, outcome, time.Since(started))

	log.Info("Campaign run finished",
		zap.Int("sent", result.Sent()),
		zap.Int("birthday_reminders", result.BirthdayReminders),
		zap.Int("capsule_unlocks", result.CapsuleUnlocks),
		zap.Int("weekly_digests", result.WeeklyDigests),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", time.Since(started)),
	)
	return result
}

// SweepPending deletes ledger reservations older than the pending timeout,
// left by a run that stopped between claiming and sending
func (e *Evaluator) SweepPending(ctx context.Context, now time.Time) (int64, error) {
	n, err := e.deps.Ledger.SweepStale(ctx, now.Add(-e.cfg.PendingTimeout))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Enrich(ctx, e.logger).Info("Swept stale campaign reservations", zap.Int64("count", n))
	}
	return n, nil
}

// ReleaseRunLock clears a run lock left behind by a run that died before
// returning. The ledger still stops a drip email from going out twice.
func (e *Evaluator) ReleaseRunLock(ctx context.Context, date valueobject.Date) error {
	return e.deps.Store.Forget(ctx, runLockPrefix+date.String())
}

// runDripStage sends one drip stage to the owner of each family in its window
func (e *Evaluator) runDripStage(ctx context.Context, stage campaign.Stage, now time.Time, result *RunResult) error {
	category := string(stage.Type)
	from, to := stage.CreatedRange(now, e.cfg.Mode, e.cfg.BackfillGrace)
	families, err := e.deps.Families.FindCreatedBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("find families: %w", err)
	}

	for _, f := range families {
		if !stage.Matches(f.CreatedAt, now, e.cfg.Mode, e.cfg.BackfillGrace) {
			continue
		}
		owner, err := e.deps.Members.FindOwnerWithAccount(ctx, f.ID)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			result.addError(category, fmt.Errorf("family %s: %w", f.ID, err))
			continue
		}

		sent, err := e.sendDrip(ctx, stage, f, owner, now)
		if err != nil {
			e.metrics.RecordEmail(ctx, category, telemetry.OutcomeFailed)
			result.addRecipientError(category, owner.Email, err)
			continue
		}
		if sent {
			e.metrics.RecordEmail(ctx, category, telemetry.OutcomeSent)
			result.countDrip(stage.Type)
		}
	}
	return nil
}

// sendDrip claims the (owner, stage) ledger row, sends, and marks it sent.
// A failed send releases the claim so a later run retries.
func (e *Evaluator) sendDrip(ctx context.Context, stage campaign.Stage, f *family.Family, owner *family.Member, now time.Time) (bool, error) {
	facts, err := e.facts(ctx, f.ID, now)
	if err != nil {
		return false, err
	}
	if !stage.Eligible(facts) {
		return false, nil
	}

	exists, err := e.deps.Ledger.Exists(ctx, owner.ID, stage.Type)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	claimed, err := e.deps.Ledger.Reserve(ctx, owner.ID, stage.Type)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	email, err := e.deps.Renderer.Drip(DripEmail{
		Type:          stage.Type,
		RecipientName: owner.Name,
		FamilyName:    f.Name,
		Journals:      facts.Journals,
	})
	if err == nil {
		err = e.send(ctx, owner.Email, email)
	}
	if err != nil {
		if rerr := e.deps.Ledger.Release(ctx, owner.ID, stage.Type); rerr != nil {
			logger.Enrich(ctx, e.logger).Warn("Failed to release campaign reservation",
				zap.String("member_id", owner.ID.String()),
				zap.String("campaign_type", string(stage.Type)),
				zap.Error(rerr),
			)
		}
		return false, err
	}

	if err := e.deps.Ledger.MarkSent(ctx, owner.ID, stage.Type); err != nil {
		// The email went out; the pending row still blocks a resend until swept.
		logger.Enrich(ctx, e.logger).Error("Failed to mark campaign sent",
			zap.String("member_id", owner.ID.String()),
			zap.String("campaign_type", string(stage.Type)),
			zap.Error(err),
		)
	}
	return true, nil
}

func (e *Evaluator) facts(ctx context.Context, familyID uuid.UUID, now time.Time) (campaign.Facts, error) {
	photos, err := e.deps.Activity.CountPhotos(ctx, familyID)
	if err != nil {
		return campaign.Facts{}, err
	}
	journals, err := e.deps.Activity.CountJournals(ctx, familyID)
	if err != nil {
		return campaign.Facts{}, err
	}
	members, err := e.deps.Members.CountByFamily(ctx, familyID)
	if err != nil {
		return campaign.Facts{}, err
	}
	recent, err := e.deps.Activity.SummarizeSince(ctx, familyID, now.Add(-recentActivityRange))
	if err != nil {
		return campaign.Facts{}, err
	}
	return campaign.Facts{
		Photos:         photos,
		Journals:       journals,
		Members:        members,
		RecentMemories: recent.Total(),
	}, nil
}

// runBirthdays reminds every other reachable family member of a birthday
// BirthdayLeadDays ahead. Each (member, recipient, day) is sent once.
func (e *Evaluator) runBirthdays(ctx context.Context, _ time.Time, today valueobject.Date, result *RunResult) error {
	target := today.AddDays(e.cfg.BirthdayLeadDays)
	candidates, err := e.deps.Members.FindWithBirthdays(ctx)
	if err != nil {
		return fmt.Errorf("find birthdays: %w", err)
	}

	households := map[uuid.UUID][]*family.Member{}
	for _, celebrant := range candidates {
		if celebrant.BirthDate == nil || !celebrant.BirthDate.SameAnniversary(target) {
			continue
		}
		members, ok := households[celebrant.FamilyID]
		if !ok {
			members, err = e.deps.Members.FindByFamily(ctx, celebrant.FamilyID)
			if err != nil {
				result.addError(CategoryBirthday, fmt.Errorf("family %s: %w", celebrant.FamilyID, err))
				continue
			}
			households[celebrant.FamilyID] = members
		}

		for _, recipient := range members {
			if recipient.ID == celebrant.ID || !recipient.HasEmail() || recipient.IsRemembered {
				continue
			}
			sent, err := e.sendBirthday(ctx, celebrant, recipient, target, today)
			if err != nil {
				e.metrics.RecordEmail(ctx, CategoryBirthday, telemetry.OutcomeFailed)
				result.addRecipientError(CategoryBirthday, recipient.Email, err)
				continue
			}
			if sent {
				e.metrics.RecordEmail(ctx, CategoryBirthday, telemetry.OutcomeSent)
				result.BirthdayReminders++
			} else {
				e.metrics.RecordEmail(ctx, CategoryBirthday, telemetry.OutcomeSkipped)
			}
		}
	}
	return nil
}

func (e *Evaluator) sendBirthday(ctx context.Context, celebrant, recipient *family.Member, birthday, today valueobject.Date) (bool, error) {
	key := fmt.Sprintf("%s%s:%s:%s", birthdayKeyPrefix, celebrant.ID, recipient.ID, today)
	fresh, err := e.deps.Store.MarkProcessed(ctx, key, birthdayKeyTTL)
	if err != nil {
		return false, err
	}
	if !fresh {
		return false, nil
	}

	email, err := e.deps.Renderer.Birthday(BirthdayEmail{
		RecipientName: recipient.Name,
		CelebrantName: celebrant.Name,
		When:          birthday.Format(birthdayDateLayout),
	})
	if err == nil {
		err = e.send(ctx, recipient.Email, email)
	}
	if err != nil {
		if ferr := e.deps.Store.Forget(ctx, key); ferr != nil {
			logger.Enrich(ctx, e.logger).Warn("Failed to release birthday key", zap.String("key", key), zap.Error(ferr))
		}
		return false, err
	}
	return true, nil
}

// runCapsuleUnlocks notifies the recipients of capsules whose unlock date is today
func (e *Evaluator) runCapsuleUnlocks(ctx context.Context, _ time.Time, today valueobject.Date, result *RunResult) error {
	capsules, err := e.deps.Capsules.ListUnlockingOn(ctx, today)
	if err != nil {
		return fmt.Errorf("find unlocking capsules: %w", err)
	}
	for _, c := range capsules {
		result.CapsuleUnlocks += e.notifyRecipients(ctx, CategoryCapsuleUnlock, c, e.deps.Renderer.CapsuleUnlock, result.addRecipientError)
	}
	return nil
}

// notifyRecipients emails every reachable recipient of c and returns how many were sent.
// The email never includes capsule content.
func (e *Evaluator) notifyRecipients(
	ctx context.Context,
	category string,
	c *capsule.Metadata,
	render func(CapsuleEmail) (Email, error),
	onError func(category, email string, err error),
) int {
	ids := append([]uuid.UUID{c.SenderID}, c.AllRecipientIDs()...)
	people, err := e.deps.Members.FindByIDs(ctx, c.FamilyID, ids)
	if err != nil {
		onError(category, c.ID.String(), err)
		return 0
	}
	byID := make(map[uuid.UUID]*family.Member, len(people))
	for _, m := range people {
		byID[m.ID] = m
	}
	senderName := ""
	if s, ok := byID[c.SenderID]; ok {
		senderName = s.Name
	}

	sent := 0
	for _, id := range c.AllRecipientIDs() {
		recipient, ok := byID[id]
		if !ok || !recipient.HasEmail() || recipient.IsRemembered {
			continue
		}
		email, err := render(CapsuleEmail{
			RecipientName: recipient.Name,
			SenderName:    senderName,
			Title:         c.Title,
			CapsuleID:     c.ID,
		})
		if err == nil {
			err = e.send(ctx, recipient.Email, email)
		}
		if err != nil {
			e.metrics.RecordEmail(ctx, category, telemetry.OutcomeFailed)
			onError(category, recipient.Email, err)
			continue
		}
		e.metrics.RecordEmail(ctx, category, telemetry.OutcomeSent)
		sent++
	}
	return sent
}

// runWeeklyDigest sends each active family's trailing-week summary, on Sundays only
func (e *Evaluator) runWeeklyDigest(ctx context.Context, now time.Time, today valueobject.Date, result *RunResult) error {
	if today.Weekday() != time.Sunday {
		return nil
	}
	families, err := e.deps.Families.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("find families: %w", err)
	}

	since := now.Add(-recentActivityRange)
	for _, f := range families {
		summary, err := e.deps.Activity.SummarizeSince(ctx, f.ID, since)
		if err != nil {
			result.addError(CategoryWeeklyDigest, fmt.Errorf("family %s: %w", f.ID, err))
			continue
		}
		if summary.Total() == 0 {
			continue
		}
		members, err := e.deps.Members.FindByFamily(ctx, f.ID)
		if err != nil {
			result.addError(CategoryWeeklyDigest, fmt.Errorf("family %s: %w", f.ID, err))
			continue
		}

		for _, m := range members {
			if !m.HasEmail() || !m.HasAccount() || m.IsRemembered {
				continue
			}
			email, err := e.deps.Renderer.WeeklyDigest(DigestEmail{
				RecipientName: m.Name,
				FamilyName:    f.Name,
				Journals:      summary.Journals,
				Photos:        summary.Photos,
				VoiceMemos:    summary.VoiceMemos,
				Stories:       summary.Stories,
			})
			if err == nil {
				err = e.send(ctx, m.Email, email)
			}
			if err != nil {
				e.metrics.RecordEmail(ctx, CategoryWeeklyDigest, telemetry.OutcomeFailed)
				result.addRecipientError(CategoryWeeklyDigest, m.Email, err)
				continue
			}
			e.metrics.RecordEmail(ctx, CategoryWeeklyDigest, telemetry.OutcomeSent)
			result.WeeklyDigests++
		}
	}
	return nil
}

func (e *Evaluator) send(ctx context.Context, to string, email Email) error {
	return e.deps.Mailer.Send(ctx, Message{
		From:    e.cfg.From,
		To:      to,
		Subject: email.Subject,
		HTML:    email.HTML,
	})
}
