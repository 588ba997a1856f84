package capsule

import (
	"context"

	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCapsuleRepository is a mock implementation of capsule.Repository
type MockCapsuleRepository struct {
	mock.Mock
}

func (m *MockCapsuleRepository) Create(ctx context.Context, c *capsule.TimeCapsule) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCapsuleRepository) FindMetadata(ctx context.Context, familyID, capsuleID uuid.UUID) (*capsule.Metadata, error) {
	args := m.Called(ctx, familyID, capsuleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capsule.Metadata), args.Error(1)
}

func (m *MockCapsuleRepository) FindContent(ctx context.Context, familyID, capsuleID uuid.UUID) (*capsule.Content, error) {
	args := m.Called(ctx, familyID, capsuleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*capsule.Content), args.Error(1)
}

func (m *MockCapsuleRepository) FindAttachmentKeys(ctx context.Context, familyID, capsuleID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, familyID, capsuleID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCapsuleRepository) ListMetadata(ctx context.Context, familyID uuid.UUID, visibleTo *uuid.UUID, filter shared.Filter) ([]*capsule.Metadata, int64, error) {
	args := m.Called(ctx, familyID, visibleTo, filter)
	return args.Get(0).([]*capsule.Metadata), args.Get(1).(int64), args.Error(2)
}

func (m *MockCapsuleRepository) Delete(ctx context.Context, familyID, capsuleID, senderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, familyID, capsuleID, senderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCapsuleRepository) ListUnlockingOn(ctx context.Context, date valueobject.Date) ([]*capsule.Metadata, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]*capsule.Metadata), args.Error(1)
}

func (m *MockCapsuleRepository) ListPassingUnlockable(ctx context.Context, familyID, senderID uuid.UUID) ([]*capsule.Metadata, error) {
	args := m.Called(ctx, familyID, senderID)
	return args.Get(0).([]*capsule.Metadata), args.Error(1)
}

// MockMemberRepository implements the member lookups the capsule service uses
type MockMemberRepository struct {
	mock.Mock
	family.MemberRepository
}

func (m *MockMemberRepository) FindByIDs(ctx context.Context, familyID uuid.UUID, ids []uuid.UUID) ([]*family.Member, error) {
	args := m.Called(ctx, familyID, ids)
	return args.Get(0).([]*family.Member), args.Error(1)
}

// MockAttachmentStore is a mock implementation of capsule.AttachmentStore
type MockAttachmentStore struct {
	mock.Mock
}

func (m *MockAttachmentStore) DownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockAttachmentStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
