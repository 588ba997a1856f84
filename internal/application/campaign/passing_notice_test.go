package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otherEvent struct {
	shared.BaseDomainEvent
}

func TestPassingNoticeHandler(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*harness, *family.Member) {
		h := newHarness(t, EvaluatorConfig{})
		f := h.addFamily(t, "carter", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
		sender := h.addMember(t, f, "grandma june", family.RoleAdult, "june@example.com", true)
		ana := h.addMember(t, f, "ana", family.RoleLimited, "ana@example.com", true)
		bo := h.addMember(t, f, "bo", family.RoleAdult, "bo@example.com", true)

		h.capsules.capsules = []*capsule.Metadata{
			{
				FamilyEntity: shared.NewFamilyEntity(f.ID),
				SenderID:     sender.ID,
				Title:        "Goodbye letter",
				Policy:       capsule.UnlockPolicy{UnlockDate: valueobject.FarFuture, UnlockOnPassing: true},
				RecipientIDs: []uuid.UUID{ana.ID, bo.ID},
			},
			{
				FamilyEntity: shared.NewFamilyEntity(f.ID),
				SenderID:     sender.ID,
				Title:        "Dated only",
				Policy:       capsule.UnlockPolicy{UnlockDate: valueobject.MustParseDate("2040-01-01")},
				RecipientIDs: []uuid.UUID{ana.ID},
			},
		}

		passed := valueobject.MustParseDate("2024-06-01")
		sender.IsRemembered = true
		sender.PassedDate = &passed
		return h, sender
	}

	t.Run("disabled sends nothing", func(t *testing.T) {
		h, sender := setup(t)
		handler := NewPassingNoticeHandler(h.evaluator, false)

		require.NoError(t, handler.Handle(ctx, family.NewMemberPassedEvent(sender, time.Now())))
		assert.Zero(t, h.mailer.count())
	})

	t.Run("enabled notifies recipients of passing capsules", func(t *testing.T) {
		h, sender := setup(t)
		handler := NewPassingNoticeHandler(h.evaluator, true)
		assert.Equal(t, []string{family.EventTypeMemberPassed}, handler.EventTypes())

		h.mailer.failFor["bo@example.com"] = errSMTPDown
		require.NoError(t, handler.Handle(ctx, family.NewMemberPassedEvent(sender, time.Now())))

		msgs := h.mailer.sentTo("ana@example.com")
		require.Len(t, msgs, 1)
		assert.Equal(t, "Grandma June left a time capsule for you", msgs[0].Subject)
		assert.Contains(t, msgs[0].HTML, "Goodbye letter")
		assert.Equal(t, 1, h.mailer.count())
	})

	t.Run("rejects other events", func(t *testing.T) {
		h, _ := setup(t)
		handler := NewPassingNoticeHandler(h.evaluator, true)
		ev := &otherEvent{BaseDomainEvent: shared.NewBaseDomainEvent(family.EventTypeMemberPassed, "Other", uuid.New(), uuid.New())}
		assert.Error(t, handler.Handle(ctx, ev))
	})
}
