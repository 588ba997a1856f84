package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"filippo.io/age"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/familynest/backend/internal/infrastructure/crypto"
	"github.com/familynest/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// reversingSealer makes sealed content observably different from plaintext
type reversingSealer struct{}

func (reversingSealer) Seal(s string) (string, error) { return "sealed:" + reverse(s), nil }

func (reversingSealer) Open(s string) (string, error) {
	if !strings.HasPrefix(s, "sealed:") {
		return "", errors.New("not sealed")
	}
	return reverse(strings.TrimPrefix(s, "sealed:")), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

type capsuleFixture struct {
	db      *gorm.DB
	repo    *GormCapsuleRepository
	family  *family.Family
	sender  *family.Member
	alice   *family.Member
	bob     *family.Member
	limited *family.Member
}

func newCapsuleFixture(t *testing.T) *capsuleFixture {
	t.Helper()
	db := setupTestDB(t)
	f := seedFamily(t, db, "Okafor", time.Now())
	return &capsuleFixture{
		db:      db,
		repo:    NewGormCapsuleRepository(db, reversingSealer{}),
		family:  f,
		sender:  seedMember(t, db, f.ID, "Grandma", family.RoleAdult),
		alice:   seedMember(t, db, f.ID, "Alice", family.RoleAdult),
		bob:     seedMember(t, db, f.ID, "Bob", family.RoleAdult),
		limited: seedMember(t, db, f.ID, "Kid", family.RoleLimited),
	}
}

func (fx *capsuleFixture) seal(t *testing.T, p capsule.NewCapsuleParams) *capsule.TimeCapsule {
	t.Helper()
	p.FamilyID = fx.family.ID
	if p.SenderID == uuid.Nil {
		p.SenderID = fx.sender.ID
	}
	if p.Title == "" {
		p.Title = "For your wedding day"
	}
	if p.Body == "" {
		p.Body = "I am so proud of you."
	}
	c, err := capsule.NewTimeCapsule(p)
	require.NoError(t, err)
	require.NoError(t, fx.repo.Create(context.Background(), c))
	return c
}

func datePtr(s string) *valueobject.Date {
	d := valueobject.MustParseDate(s)
	return &d
}

func TestGormCapsuleRepository_CreateAndFindMetadata(t *testing.T) {
	fx := newCapsuleFixture(t)
	ctx := context.Background()

	c := fx.seal(t, capsule.NewCapsuleParams{
		UnlockDate:     datePtr("2030-01-02"),
		RecipientIDs:   []uuid.UUID{fx.alice.ID, fx.bob.ID},
		AttachmentKeys: []string{"capsules/a.jpg"},
	})

	meta, err := fx.repo.FindMetadata(ctx, fx.family.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "For your wedding day", meta.Title)
	assert.Equal(t, fx.sender.ID, meta.SenderID)
	assert.Equal(t, "2030-01-02", meta.Policy.UnlockDate.String())
	assert.False(t, meta.Policy.UnlockOnPassing)
	assert.ElementsMatch(t, []uuid.UUID{fx.alice.ID, fx.bob.ID}, meta.RecipientIDs)
	assert.True(t, meta.HasAttachments)

	t.Run("content is stored sealed", func(t *testing.T) {
		var stored string
		require.NoError(t, fx.db.Raw("SELECT content FROM time_capsules WHERE id = ?", c.ID).Scan(&stored).Error)
		assert.Equal(t, "sealed:"+reverse("I am so proud of you."), stored)
	})

	t.Run("another family cannot read metadata", func(t *testing.T) {
		_, err := fx.repo.FindMetadata(ctx, uuid.New(), c.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormCapsuleRepository_CreateRollsBackWithoutRecipients(t *testing.T) {
	fx := newCapsuleFixture(t)
	ctx := context.Background()

	c, err := capsule.NewTimeCapsule(capsule.NewCapsuleParams{
		FamilyID:     fx.family.ID,
		SenderID:     fx.sender.ID,
		Title:        "Duplicate",
		Body:         "body",
		UnlockDate:   datePtr("2030-01-02"),
		RecipientIDs: []uuid.UUID{fx.alice.ID},
	})
	require.NoError(t, err)

	// Pre-existing join row for the same key forces the recipient insert to fail
	require.NoError(t, fx.db.Create(&models.RecipientModel{CapsuleID: c.ID, MemberID: fx.alice.ID}).Error)

	err = fx.repo.Create(ctx, c)
	require.Error(t, err)

	var count int64
	require.NoError(t, fx.db.Model(&models.CapsuleModel{}).Where("id = ?", c.ID).Count(&count).Error)
	assert.Zero(t, count, "capsule row must not survive a failed recipient insert")
}

func TestGormCapsuleRepository_FindContent(t *testing.T) {
	fx := newCapsuleFixture(t)
	ctx := context.Background()

	withFiles := fx.seal(t, capsule.NewCapsuleParams{
		UnlockDate:     datePtr("2020-01-01"),
		RecipientIDs:   []uuid.UUID{fx.alice.ID},
		AttachmentKeys: []string{"capsules/a.jpg", "capsules/b.m4a"},
	})
	plain := fx.seal(t, capsule.NewCapsuleParams{
		UnlockDate:   datePtr("2020-01-01"),
		RecipientIDs: []uuid.UUID{fx.alice.ID},
	})

	content, err := fx.repo.FindContent(ctx, fx.family.ID, withFiles.ID)
	require.NoError(t, err)
	assert.Equal(t, "I am so proud of you.", content.Body)
	assert.Equal(t, []string{"capsules/a.jpg", "capsules/b.m4a"}, content.AttachmentKeys)

	keys, err := fx.repo.FindAttachmentKeys(ctx, fx.family.ID, withFiles.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	content, err = fx.repo.FindContent(ctx, fx.family.ID, plain.ID)
	require.NoError(t, err)
	assert.Empty(t, content.AttachmentKeys)

	_, err = fx.repo.FindContent(ctx, uuid.New(), withFiles.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormCapsuleRepository_FindContentWithAge(t *testing.T) {
	fx := newCapsuleFixture(t)
	ctx := context.Background()

	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	sealer, err := crypto.NewAgeSealer(identity.String())
	require.NoError(t, err)
	repo := NewGormCapsuleRepository(fx.db, sealer)

	c, err := capsule.NewTimeCapsule(capsule.NewCapsuleParams{
		FamilyID:     fx.family.ID,
		SenderID:     fx.sender.ID,
		Title:        "Encrypted",
		Body:         "only for you",
		UnlockDate:   datePtr("2020-01-01"),
		RecipientIDs: []uuid.UUID{fx.alice.ID},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, c))

	var stored string
	require.NoError(t, fx.db.Raw("SELECT content FROM time_capsules WHERE id = ?", c.ID).Scan(&stored).Error)
	assert.True(t, crypto.IsSealed(stored))
	assert.NotContains(t, stored, "only for you")

	content, err := repo.FindContent(ctx, fx.family.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "only for you", content.Body)
}

func TestGormCapsuleRepository_ListMetadata(t *testing.T) {
	fx := newCapsuleFixture(t)
	ctx := context.Background()

	toAlice := fx.seal(t, capsule.NewCapsuleParams{Title: "To Alice", UnlockDate: datePtr("2031-01-01"), RecipientIDs: []uuid.UUID{fx.alice.ID}})
	toKid := fx.seal(t, capsule.NewCapsuleParams{Title: "To Kid", UnlockDate: datePtr("2030-01-01"), RecipientIDs: []uuid.UUID{fx.limited.ID}})
	fromKid := fx.seal(t, capsule.NewCapsuleParams{Title: "From Kid", SenderID: fx.limited.ID, UnlockDate: datePtr("2032-01-01"), RecipientIDs: []uuid.UUID{fx.bob.ID}})

	t.Run("unrestricted list returns every capsule", func(t *testing.T) {
		list, total, err := fx.repo.ListMetadata(ctx, fx.family.ID, nil, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, list, 3)
	})

	t.Run("restricted list returns only sent or received", func(t *testing.T) {
		list, total, err := fx.repo.ListMetadata(ctx, fx.family.ID, &fx.limited.ID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		ids := []uuid.UUID{list[0].ID, list[1].ID}
		assert.ElementsMatch(t, []uuid.UUID{toKid.ID, fromKid.ID}, ids)
		assert.NotContains(t, ids, toAlice.ID)
	})

	t.Run("restricted list includes the legacy recipient", func(t *testing.T) {
		require.NoError(t, fx.db.Model(&models.CapsuleModel{}).Where("id = ?", toAlice.ID).
			Update("recipient_id", fx.limited.ID).Error)
		_, total, err := fx.repo.ListMetadata(ctx, fx.family.ID, &fx.limited.ID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("orders and pages", func(t *testing.T) {
		filter := shared.Filter{Page: 1, PageSize: 2, OrderBy: "unlock_date", OrderDir: "asc"}
		list, total, err := fx.repo.ListMetadata(ctx, fx.family.ID, nil, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, list, 2)
		assert.Equal(t, toKid.ID, list[0].ID)
		assert.Equal(t, toAlice.ID, list[1].ID)
	})

	t.Run("other family sees nothing", func(t *testing.T) {
		list, total, err := fx.repo.ListMetadata(ctx, uuid.New(), nil, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, list)
	})
}

func TestGormCapsuleRepository_Delete(t *testing.T) {
	fx := newCapsuleFixture(t)
	ctx := context.Background()

	c := fx.seal(t, capsule.NewCapsuleParams{UnlockDate: datePtr("2030-01-02"), RecipientIDs: []uuid.UUID{fx.alice.ID}})

	t.Run("non-sender deletes nothing", func(t *testing.T) {
		deleted, err := fx.repo.Delete(ctx, fx.family.ID, c.ID, fx.alice.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
		_, err = fx.repo.FindMetadata(ctx, fx.family.ID, c.ID)
		assert.NoError(t, err)
	})

	t.Run("sender deletes capsule and recipients", func(t *testing.T) {
		deleted, err := fx.repo.Delete(ctx, fx.family.ID, c.ID, fx.sender.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = fx.repo.FindMetadata(ctx, fx.family.ID, c.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var count int64
		require.NoError(t, fx.db.Model(&models.RecipientModel{}).Where("capsule_id = ?", c.ID).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("missing capsule deletes nothing", func(t *testing.T) {
		deleted, err := fx.repo.Delete(ctx, fx.family.ID, uuid.New(), fx.sender.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestGormCapsuleRepository_ListUnlockingOn(t *testing.T) {
	fx := newCapsuleFixture(t)
	ctx := context.Background()

	today := fx.seal(t, capsule.NewCapsuleParams{UnlockDate: datePtr("2024-06-01"), RecipientIDs: []uuid.UUID{fx.alice.ID}})
	fx.seal(t, capsule.NewCapsuleParams{UnlockDate: datePtr("2024-05-31"), RecipientIDs: []uuid.UUID{fx.alice.ID}})
	fx.seal(t, capsule.NewCapsuleParams{UnlockOnPassing: true, RecipientIDs: []uuid.UUID{fx.alice.ID}})

	list, err := fx.repo.ListUnlockingOn(ctx, valueobject.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, today.ID, list[0].ID)
	assert.Equal(t, []uuid.UUID{fx.alice.ID}, list[0].RecipientIDs)
}

func TestGormCapsuleRepository_ListPassingUnlockable(t *testing.T) {
	fx := newCapsuleFixture(t)
	ctx := context.Background()

	onPassing := fx.seal(t, capsule.NewCapsuleParams{UnlockOnPassing: true, RecipientIDs: []uuid.UUID{fx.alice.ID}})
	fx.seal(t, capsule.NewCapsuleParams{UnlockDate: datePtr("2030-01-01"), RecipientIDs: []uuid.UUID{fx.alice.ID}})
	fx.seal(t, capsule.NewCapsuleParams{SenderID: fx.bob.ID, UnlockOnPassing: true, RecipientIDs: []uuid.UUID{fx.alice.ID}})

	list, err := fx.repo.ListPassingUnlockable(ctx, fx.family.ID, fx.sender.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, onPassing.ID, list[0].ID)
	assert.True(t, list[0].Policy.UnlockDate.IsFarFuture())
}

// metadataMatcher matches on a SQL fragment and fails any statement that reads content
var metadataMatcher = sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
	if strings.Contains(actualSQL, "content") {
		return fmt.Errorf("statement reads content: %s", actualSQL)
	}
	if !strings.Contains(actualSQL, expectedSQL) {
		return fmt.Errorf("expected %q in %q", expectedSQL, actualSQL)
	}
	return nil
})

func newMockCapsuleRepository(t *testing.T) (*GormCapsuleRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(metadataMatcher))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormCapsuleRepository(gormDB, crypto.PlaintextSealer{}), mock, mockDB
}

func TestGormCapsuleRepository_FindMetadataNeverSelectsContent(t *testing.T) {
	repo, mock, mockDB := newMockCapsuleRepository(t)
	defer mockDB.Close()

	familyID, capsuleID, senderID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM "time_capsules" WHERE time_capsules.family_id = $1 AND time_capsules.id = $2`).
		WithArgs(familyID, capsuleID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "family_id", "created_at", "sender_id", "recipient_id", "title", "unlock_date", "unlock_on_passing", "attachment_count"}).
			AddRow(capsuleID, familyID, time.Now(), senderID, nil, "Sealed", "2030-01-02", false, 0))
	mock.ExpectQuery(`FROM "time_capsule_recipients" WHERE capsule_id IN ($1)`).
		WithArgs(capsuleID).
		WillReturnRows(sqlmock.NewRows([]string{"capsule_id", "member_id"}))

	meta, err := repo.FindMetadata(context.Background(), familyID, capsuleID)
	require.NoError(t, err)
	assert.Equal(t, "Sealed", meta.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
