package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database with every model migrated.
// A single connection keeps all statements on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func seedFamily(t *testing.T, db *gorm.DB, name string, createdAt time.Time) *family.Family {
	t.Helper()
	f, err := family.NewFamily(name)
	require.NoError(t, err)
	f.CreatedAt = createdAt.UTC()
	require.NoError(t, NewGormFamilyRepository(db).Create(context.Background(), f))
	return f
}

type memberOpt func(*family.Member)

func withAccount(email string) memberOpt {
	return func(m *family.Member) {
		id := uuid.New()
		m.UserID = &id
		m.Email = email
	}
}

func withCreatedAt(at time.Time) memberOpt {
	return func(m *family.Member) {
		m.CreatedAt = at.UTC()
	}
}

func seedMember(t *testing.T, db *gorm.DB, familyID uuid.UUID, name string, role family.Role, opts ...memberOpt) *family.Member {
	t.Helper()
	m, err := family.NewMember(familyID, name, role)
	require.NoError(t, err)
	for _, opt := range opts {
		opt(m)
	}
	require.NoError(t, NewGormMemberRepository(db).Create(context.Background(), m))
	return m
}

func seedPhoto(t *testing.T, db *gorm.DB, familyID uuid.UUID, createdAt time.Time) {
	t.Helper()
	row := &models.PhotoModel{UploaderID: uuid.New(), ObjectKey: "photos/" + uuid.NewString()}
	row.FromDomainFamilyEntity(shared.FamilyEntity{
		BaseEntity: shared.BaseEntity{ID: uuid.New(), CreatedAt: createdAt.UTC()},
		FamilyID:   familyID,
	})
	require.NoError(t, db.Create(row).Error)
}

func seedJournal(t *testing.T, db *gorm.DB, familyID uuid.UUID, createdAt time.Time) {
	t.Helper()
	row := &models.JournalEntryModel{AuthorID: uuid.New(), Title: "entry"}
	row.FromDomainFamilyEntity(shared.FamilyEntity{
		BaseEntity: shared.BaseEntity{ID: uuid.New(), CreatedAt: createdAt.UTC()},
		FamilyID:   familyID,
	})
	require.NoError(t, db.Create(row).Error)
}
