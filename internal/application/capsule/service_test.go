package capsule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	capsules    *MockCapsuleRepository
	members     *MockMemberRepository
	attachments *MockAttachmentStore
	svc         *Service

	familyID  uuid.UUID
	sender    *family.Member
	recipient *family.Member
	bystander *family.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		capsules:    new(MockCapsuleRepository),
		members:     new(MockMemberRepository),
		attachments: new(MockAttachmentStore),
		familyID:    uuid.New(),
	}
	f.svc = NewService(f.capsules, f.members, f.attachments, zap.NewNop(),
		WithClock(func() time.Time { return time.Date(2024, time.May, 1, 23, 30, 0, 0, time.UTC) }),
	)
	f.sender = f.member(t, "Grandma June", family.RoleAdult)
	f.recipient = f.member(t, "Ana", family.RoleLimited)
	f.bystander = f.member(t, "Uncle Bo", family.RoleOwner)
	return f
}

func (f *fixture) member(t *testing.T, name string, role family.Role) *family.Member {
	t.Helper()
	m, err := family.NewMember(f.familyID, name, role)
	require.NoError(t, err)
	return m
}

func (f *fixture) metadata(unlock string, onPassing bool, attachments bool) *capsule.Metadata {
	return &capsule.Metadata{
		FamilyEntity: shared.NewFamilyEntity(f.familyID),
		SenderID:     f.sender.ID,
		Title:        "For your graduation",
		Policy: capsule.UnlockPolicy{
			UnlockDate:      valueobject.MustParseDate(unlock),
			UnlockOnPassing: onPassing,
		},
		RecipientIDs:   []uuid.UUID{f.recipient.ID},
		HasAttachments: attachments,
	}
}

func (f *fixture) expectPeople() {
	f.members.On("FindByIDs", mock.Anything, f.familyID, mock.Anything).
		Return([]*family.Member{f.sender, f.recipient}, nil)
}

func TestService_Today(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "2024-05-01", f.svc.Today().String())

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	WithLocation(tokyo)(f.svc)
	assert.Equal(t, "2024-05-02", f.svc.Today().String())
}

func TestService_CreateCapsule(t *testing.T) {
	ctx := context.Background()
	date := valueobject.MustParseDate("2030-01-02")

	t.Run("seals capsule for family recipients", func(t *testing.T) {
		f := newFixture(t)
		caller := family.MembershipOf(f.sender)
		f.members.On("FindByIDs", mock.Anything, f.familyID, []uuid.UUID{f.recipient.ID}).
			Return([]*family.Member{f.recipient}, nil)
		f.capsules.On("Create", mock.Anything, mock.MatchedBy(func(c *capsule.TimeCapsule) bool {
			return c.SenderID == f.sender.ID && c.FamilyID == f.familyID && c.Content.Body == "Dear Ana"
		})).Return(nil)

		res, err := f.svc.CreateCapsule(ctx, caller, CreateCapsuleInput{
			Title:        "Graduation",
			Content:      " Dear Ana ",
			UnlockDate:   &date,
			RecipientIDs: []uuid.UUID{f.recipient.ID, f.recipient.ID},
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, res.ID)
		f.capsules.AssertExpectations(t)
	})

	t.Run("rejects recipient outside family", func(t *testing.T) {
		f := newFixture(t)
		outsider := uuid.New()
		f.members.On("FindByIDs", mock.Anything, f.familyID, mock.Anything).
			Return([]*family.Member{f.recipient}, nil)

		_, err := f.svc.CreateCapsule(ctx, family.MembershipOf(f.sender), CreateCapsuleInput{
			Title:        "Graduation",
			Content:      "Dear Ana",
			UnlockDate:   &date,
			RecipientIDs: []uuid.UUID{f.recipient.ID, outsider},
		})
		assert.ErrorIs(t, err, ErrRecipientNotInFamily)
		f.capsules.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("validation runs before any lookup", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateCapsule(ctx, family.MembershipOf(f.sender), CreateCapsuleInput{
			Title:        "Graduation",
			Content:      "Dear Ana",
			RecipientIDs: []uuid.UUID{f.recipient.ID},
		})
		assert.ErrorIs(t, err, capsule.ErrUnlockDateRequired)
		f.members.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		f := newFixture(t)
		f.members.On("FindByIDs", mock.Anything, f.familyID, mock.Anything).
			Return([]*family.Member{f.recipient}, nil)
		f.capsules.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert capsule recipients: fk"))

		_, err := f.svc.CreateCapsule(ctx, family.MembershipOf(f.sender), CreateCapsuleInput{
			Title:           "Graduation",
			Content:         "Dear Ana",
			UnlockOnPassing: true,
			RecipientIDs:    []uuid.UUID{f.recipient.ID},
		})
		assert.ErrorContains(t, err, "fk")
	})
}

func TestService_DeleteCapsule(t *testing.T) {
	ctx := context.Background()

	t.Run("sender deletes and attachments are removed", func(t *testing.T) {
		f := newFixture(t)
		meta := f.metadata("2030-01-01", false, true)
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, meta.ID).Return(meta, nil)
		f.capsules.On("FindAttachmentKeys", mock.Anything, f.familyID, meta.ID).Return([]string{"a.jpg", "b.jpg"}, nil)
		f.capsules.On("Delete", mock.Anything, f.familyID, meta.ID, f.sender.ID).Return(true, nil)
		f.attachments.On("Delete", mock.Anything, "a.jpg").Return(errors.New("s3 unavailable"))
		f.attachments.On("Delete", mock.Anything, "b.jpg").Return(nil)

		require.NoError(t, f.svc.DeleteCapsule(ctx, family.MembershipOf(f.sender), meta.ID))
		f.attachments.AssertExpectations(t)
	})

	t.Run("non-sender gets not found", func(t *testing.T) {
		f := newFixture(t)
		meta := f.metadata("2030-01-01", false, false)
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, meta.ID).Return(meta, nil)

		for _, who := range []*family.Member{f.recipient, f.bystander} {
			err := f.svc.DeleteCapsule(ctx, family.MembershipOf(who), meta.ID)
			assert.ErrorIs(t, err, shared.ErrNotFound, who.Name)
		}
		f.capsules.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing capsule is not found", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, id).Return(nil, shared.ErrNotFound)

		assert.ErrorIs(t, f.svc.DeleteCapsule(ctx, family.MembershipOf(f.sender), id), shared.ErrNotFound)
	})

	t.Run("row vanished between read and delete", func(t *testing.T) {
		f := newFixture(t)
		meta := f.metadata("2030-01-01", false, false)
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, meta.ID).Return(meta, nil)
		f.capsules.On("Delete", mock.Anything, f.familyID, meta.ID, f.sender.ID).Return(false, nil)

		assert.ErrorIs(t, f.svc.DeleteCapsule(ctx, family.MembershipOf(f.sender), meta.ID), shared.ErrNotFound)
	})
}

func TestService_GetCapsuleDetail(t *testing.T) {
	ctx := context.Background()
	today := valueobject.MustParseDate("2024-05-01")

	t.Run("recipient sees sealed view before unlock date", func(t *testing.T) {
		f := newFixture(t)
		meta := f.metadata("2024-05-02", false, false)
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, meta.ID).Return(meta, nil)
		f.expectPeople()

		d, err := f.svc.GetCapsuleDetail(ctx, family.MembershipOf(f.recipient), meta.ID, today)
		require.NoError(t, err)
		assert.Equal(t, ViewSealed, d.View)
		assert.False(t, d.IsUnlocked)
		assert.Nil(t, d.Content)
		assert.Equal(t, "Grandma June", d.Sender.Name)
		assert.Equal(t, "Opens on May 2, 2024", d.UnlockCondition)
		f.capsules.AssertNotCalled(t, "FindContent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("recipient reads content on unlock date with signed attachments", func(t *testing.T) {
		f := newFixture(t)
		meta := f.metadata("2024-05-01", false, true)
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, meta.ID).Return(meta, nil)
		f.expectPeople()
		f.capsules.On("FindContent", mock.Anything, f.familyID, meta.ID).
			Return(&capsule.Content{Body: "Dear Ana", AttachmentKeys: []string{"photo.jpg"}}, nil)
		f.attachments.On("DownloadURL", mock.Anything, "photo.jpg").Return("https://signed/photo.jpg", nil)

		d, err := f.svc.GetCapsuleDetail(ctx, family.MembershipOf(f.recipient), meta.ID, today)
		require.NoError(t, err)
		assert.Equal(t, ViewUnlocked, d.View)
		require.NotNil(t, d.Content)
		assert.Equal(t, "Dear Ana", *d.Content)
		assert.Equal(t, []Attachment{{Key: "photo.jpg", URL: "https://signed/photo.jpg"}}, d.Attachments)
	})

	t.Run("passing unlocks a sentinel-dated capsule", func(t *testing.T) {
		f := newFixture(t)
		f.sender.IsRemembered = true
		meta := f.metadata("9999-12-31", true, false)
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, meta.ID).Return(meta, nil)
		f.expectPeople()
		f.capsules.On("FindContent", mock.Anything, f.familyID, meta.ID).
			Return(&capsule.Content{Body: "Goodbye", AttachmentKeys: []string{}}, nil)

		d, err := f.svc.GetCapsuleDetail(ctx, family.MembershipOf(f.recipient), meta.ID, today)
		require.NoError(t, err)
		assert.Equal(t, ViewUnlocked, d.View)
		assert.Nil(t, d.UnlockDate)
		assert.True(t, d.Sender.IsRemembered)
		assert.Equal(t, "Opens upon passing", d.UnlockCondition)
	})

	t.Run("owner bystander sees private view without content even when unlocked", func(t *testing.T) {
		f := newFixture(t)
		meta := f.metadata("2020-01-01", false, true)
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, meta.ID).Return(meta, nil)
		f.expectPeople()

		d, err := f.svc.GetCapsuleDetail(ctx, family.MembershipOf(f.bystander), meta.ID, today)
		require.NoError(t, err)
		assert.Equal(t, ViewPrivate, d.View)
		assert.True(t, d.IsUnlocked)
		assert.Nil(t, d.Content)
		assert.Empty(t, d.Attachments)
		f.capsules.AssertNotCalled(t, "FindContent", mock.Anything, mock.Anything, mock.Anything)
		f.attachments.AssertNotCalled(t, "DownloadURL", mock.Anything, mock.Anything)
	})

	t.Run("limited bystander gets not found", func(t *testing.T) {
		f := newFixture(t)
		meta := f.metadata("2020-01-01", false, false)
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, meta.ID).Return(meta, nil)

		child := f.member(t, "Leo", family.RoleLimited)
		_, err := f.svc.GetCapsuleDetail(ctx, family.MembershipOf(child), meta.ID, today)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("missing capsule is not found", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.capsules.On("FindMetadata", mock.Anything, f.familyID, id).Return(nil, shared.ErrNotFound)

		_, err := f.svc.GetCapsuleDetail(ctx, family.MembershipOf(f.sender), id, today)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestService_ListCapsules(t *testing.T) {
	ctx := context.Background()
	today := valueobject.MustParseDate("2024-05-01")
	filter := shared.DefaultFilter()

	t.Run("limited member list is restricted to own capsules", func(t *testing.T) {
		f := newFixture(t)
		meta := f.metadata("2020-01-01", false, false)
		caller := family.MembershipOf(f.recipient)
		f.capsules.On("ListMetadata", mock.Anything, f.familyID, &caller.MemberID, filter).
			Return([]*capsule.Metadata{meta}, int64(1), nil)
		f.expectPeople()

		items, total, err := f.svc.ListCapsules(ctx, caller, today, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.True(t, items[0].IsUnlocked)
		assert.Equal(t, []PersonRef{{ID: f.recipient.ID, Name: "Ana"}}, items[0].Recipients)
	})

	t.Run("adult sees whole family", func(t *testing.T) {
		f := newFixture(t)
		var nilScope *uuid.UUID
		f.capsules.On("ListMetadata", mock.Anything, f.familyID, nilScope, filter).
			Return([]*capsule.Metadata{}, int64(0), nil)

		items, total, err := f.svc.ListCapsules(ctx, family.MembershipOf(f.bystander), today, filter)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Zero(t, total)
		f.members.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything, mock.Anything)
	})
}
