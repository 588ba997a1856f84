package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/infrastructure/persistence/models"
	"github.com/familynest/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMemberRepository implements family.MemberRepository using GORM
type GormMemberRepository struct {
	db *gorm.DB
}

// NewGormMemberRepository creates a new GormMemberRepository
func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

func (r *GormMemberRepository) scoped(ctx context.Context, familyID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.MemberModel{}).Scopes(tenant.FamilyScope(familyID))
}

// FindByID finds a member within a family
func (r *GormMemberRepository) FindByID(ctx context.Context, familyID, memberID uuid.UUID) (*family.Member, error) {
	var model models.MemberModel
	if err := r.scoped(ctx, familyID).Where("id = ?", memberID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUserID finds the member linked to an account within a family
func (r *GormMemberRepository) FindByUserID(ctx context.Context, familyID, userID uuid.UUID) (*family.Member, error) {
	var model models.MemberModel
	if err := r.scoped(ctx, familyID).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the members of a family with the given ids.
// Ids outside the family are silently absent from the result.
func (r *GormMemberRepository) FindByIDs(ctx context.Context, familyID uuid.UUID, ids []uuid.UUID) ([]*family.Member, error) {
	if len(ids) == 0 {
		return []*family.Member{}, nil
	}
	var rows []models.MemberModel
	if err := r.scoped(ctx, familyID).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainMembers(rows), nil
}

// FindByFamily returns every member of a family, ordered by creation
func (r *GormMemberRepository) FindByFamily(ctx context.Context, familyID uuid.UUID) ([]*family.Member, error) {
	var rows []models.MemberModel
	if err := r.scoped(ctx, familyID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainMembers(rows), nil
}

// FindOwnerWithAccount returns the earliest owner that has an account and an email
func (r *GormMemberRepository) FindOwnerWithAccount(ctx context.Context, familyID uuid.UUID) (*family.Member, error) {
	var model models.MemberModel
	err := r.scoped(ctx, familyID).
		Where("role = ? AND user_id IS NOT NULL AND email IS NOT NULL AND email <> ''", string(family.RoleOwner)).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindWithBirthdays returns members across all families that have a birth
// date. Remembered members are included; their birthdays are still kept.
func (r *GormMemberRepository) FindWithBirthdays(ctx context.Context) ([]*family.Member, error) {
	var rows []models.MemberModel
	err := r.db.WithContext(ctx).
		Where("birth_date IS NOT NULL").
		Order("family_id, created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainMembers(rows), nil
}

// CountByFamily returns the number of members in a family
func (r *GormMemberRepository) CountByFamily(ctx context.Context, familyID uuid.UUID) (int64, error) {
	var count int64
	if err := r.scoped(ctx, familyID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create persists a new member
func (r *GormMemberRepository) Create(ctx context.Context, member *family.Member) error {
	if err := r.db.WithContext(ctx).Create(models.MemberModelFromDomain(member)).Error; err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// MarkPassed persists the remembered flag. The update only matches a member
// that is not yet remembered, so the first recorded date is never overwritten.
func (r *GormMemberRepository) MarkPassed(ctx context.Context, member *family.Member) error {
	if member.PassedDate == nil {
		return shared.ErrInvalidInput
	}
	result := r.scoped(ctx, member.FamilyID).
		Where("id = ? AND is_remembered = ?", member.ID, false).
		Updates(map[string]any{
			"is_remembered": true,
			"passed_date":   *member.PassedDate,
		})
	if result.Error != nil {
		return fmt.Errorf("mark member passed: %w", result.Error)
	}
	return nil
}

func toDomainMembers(rows []models.MemberModel) []*family.Member {
	members := make([]*family.Member, len(rows))
	for i := range rows {
		members[i] = rows[i].ToDomain()
	}
	return members
}

// GormFamilyRepository implements family.FamilyRepository using GORM
type GormFamilyRepository struct {
	db *gorm.DB
}

// NewGormFamilyRepository creates a new GormFamilyRepository
func NewGormFamilyRepository(db *gorm.DB) *GormFamilyRepository {
	return &GormFamilyRepository{db: db}
}

// FindByID finds a family by ID
func (r *GormFamilyRepository) FindByID(ctx context.Context, id uuid.UUID) (*family.Family, error) {
	var model models.FamilyRecord
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCreatedBetween returns families with from < created_at <= to
func (r *GormFamilyRepository) FindCreatedBetween(ctx context.Context, from, to time.Time) ([]*family.Family, error) {
	var rows []models.FamilyRecord
	err := r.db.WithContext(ctx).
		Where("created_at > ? AND created_at <= ?", from, to).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainFamilies(rows), nil
}

// FindAll returns every family
func (r *GormFamilyRepository) FindAll(ctx context.Context) ([]*family.Family, error) {
	var rows []models.FamilyRecord
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainFamilies(rows), nil
}

// Create persists a new family
func (r *GormFamilyRepository) Create(ctx context.Context, f *family.Family) error {
	if err := r.db.WithContext(ctx).Create(models.FamilyRecordFromDomain(f)).Error; err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}

func toDomainFamilies(rows []models.FamilyRecord) []*family.Family {
	families := make([]*family.Family, len(rows))
	for i := range rows {
		families[i] = rows[i].ToDomain()
	}
	return families
}
