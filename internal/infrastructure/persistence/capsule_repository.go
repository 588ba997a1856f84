package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/familynest/backend/internal/domain/capsule"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/domain/shared/valueobject"
	"github.com/familynest/backend/internal/infrastructure/persistence/models"
	"github.com/familynest/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const capsulesTable = "time_capsules"

// GormCapsuleRepository implements capsule.Repository using GORM.
// Content is sealed on the way in and only opened by FindContent.
type GormCapsuleRepository struct {
	db     *gorm.DB
	sealer capsule.ContentSealer
}

// NewGormCapsuleRepository creates a new GormCapsuleRepository
func NewGormCapsuleRepository(db *gorm.DB, sealer capsule.ContentSealer) *GormCapsuleRepository {
	return &GormCapsuleRepository{db: db, sealer: sealer}
}

// Create stores the capsule row and one recipient row per recipient in a
// single transaction, so a capsule is never durable without its recipients
func (r *GormCapsuleRepository) Create(ctx context.Context, c *capsule.TimeCapsule) error {
	sealed, err := r.sealer.Seal(c.Content.Body)
	if err != nil {
		return fmt.Errorf("seal capsule content: %w", err)
	}
	row := models.CapsuleModelFromDomain(c, sealed)

	recipients := make([]models.RecipientModel, len(c.RecipientIDs))
	for i, id := range c.RecipientIDs {
		recipients[i] = models.RecipientModel{CapsuleID: c.ID, MemberID: id}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("insert capsule: %w", err)
		}
		if len(recipients) == 0 {
			return nil
		}
		if err := tx.Create(&recipients).Error; err != nil {
			return fmt.Errorf("insert capsule recipients: %w", err)
		}
		return nil
	})
}

// metadataQuery selects metadata columns only
func (r *GormCapsuleRepository) metadataQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.CapsuleModel{}).Select(models.MetadataColumns)
}

// FindMetadata loads a capsule without content or attachment keys
func (r *GormCapsuleRepository) FindMetadata(ctx context.Context, familyID, capsuleID uuid.UUID) (*capsule.Metadata, error) {
	var row models.CapsuleModel
	err := r.metadataQuery(ctx).
		Scopes(tenant.QualifiedFamilyScope(capsulesTable, familyID)).
		Where("time_capsules.id = ?", capsuleID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	list, err := r.withRecipients(ctx, []models.CapsuleModel{row})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// FindContent loads and opens the sealed payload of a capsule
func (r *GormCapsuleRepository) FindContent(ctx context.Context, familyID, capsuleID uuid.UUID) (*capsule.Content, error) {
	var row models.CapsuleModel
	err := r.db.WithContext(ctx).Model(&models.CapsuleModel{}).
		Select(models.ContentColumns).
		Scopes(tenant.FamilyScope(familyID)).
		Where("id = ?", capsuleID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	body, err := r.sealer.Open(row.Content)
	if err != nil {
		return nil, fmt.Errorf("open capsule content: %w", err)
	}
	keys := []string(row.AttachmentKeys)
	if keys == nil {
		keys = []string{}
	}
	return &capsule.Content{Body: body, AttachmentKeys: keys}, nil
}

// FindAttachmentKeys loads the attachment keys without touching the body
func (r *GormCapsuleRepository) FindAttachmentKeys(ctx context.Context, familyID, capsuleID uuid.UUID) ([]string, error) {
	var row models.CapsuleModel
	err := r.db.WithContext(ctx).Model(&models.CapsuleModel{}).
		Select("attachment_keys").
		Scopes(tenant.FamilyScope(familyID)).
		Where("id = ?", capsuleID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return []string(row.AttachmentKeys), nil
}

// ListMetadata returns a page of capsule metadata for a family
func (r *GormCapsuleRepository) ListMetadata(ctx context.Context, familyID uuid.UUID, visibleTo *uuid.UUID, filter shared.Filter) ([]*capsule.Metadata, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CapsuleModel{}).
		Scopes(tenant.QualifiedFamilyScope(capsulesTable, familyID))
	if visibleTo != nil {
		query = query.Where(
			"time_capsules.sender_id = ? OR time_capsules.recipient_id = ? OR time_capsules.id IN (?)",
			*visibleTo, *visibleTo,
			r.db.Model(&models.RecipientModel{}).Select("capsule_id").Where("member_id = ?", *visibleTo),
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count capsules: %w", err)
	}

	var rows []models.CapsuleModel
	err := query.Select(models.MetadataColumns).
		Order(orderClause(capsulesTable, filter.OrderBy, filter.OrderDir, CapsuleSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list capsules: %w", err)
	}

	list, err := r.withRecipients(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Delete removes a capsule only when senderID sealed it. Recipient rows
// cascade in postgres and are removed explicitly for other dialects.
func (r *GormCapsuleRepository) Delete(ctx context.Context, familyID, capsuleID, senderID uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(tenant.FamilyScope(familyID)).
			Where("id = ? AND sender_id = ?", capsuleID, senderID).
			Delete(&models.CapsuleModel{})
		if result.Error != nil {
			return fmt.Errorf("delete capsule: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		deleted = true
		if err := tx.Where("capsule_id = ?", capsuleID).Delete(&models.RecipientModel{}).Error; err != nil {
			return fmt.Errorf("delete capsule recipients: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// ListUnlockingOn returns capsules across all families whose unlock date is exactly date
func (r *GormCapsuleRepository) ListUnlockingOn(ctx context.Context, date valueobject.Date) ([]*capsule.Metadata, error) {
	var rows []models.CapsuleModel
	err := r.metadataQuery(ctx).
		Where("time_capsules.unlock_date = ?", date).
		Order("time_capsules.family_id, time_capsules.created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list unlocking capsules: %w", err)
	}
	return r.withRecipients(ctx, rows)
}

// ListPassingUnlockable returns a sender's capsules that open upon passing
func (r *GormCapsuleRepository) ListPassingUnlockable(ctx context.Context, familyID, senderID uuid.UUID) ([]*capsule.Metadata, error) {
	var rows []models.CapsuleModel
	err := r.metadataQuery(ctx).
		Scopes(tenant.QualifiedFamilyScope(capsulesTable, familyID)).
		Where("time_capsules.sender_id = ? AND time_capsules.unlock_on_passing = ?", senderID, true).
		Order("time_capsules.created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list passing capsules: %w", err)
	}
	return r.withRecipients(ctx, rows)
}

// withRecipients converts rows to metadata and attaches recipient ids with one query
func (r *GormCapsuleRepository) withRecipients(ctx context.Context, rows []models.CapsuleModel) ([]*capsule.Metadata, error) {
	list := make([]*capsule.Metadata, len(rows))
	if len(rows) == 0 {
		return list, nil
	}

	byID := make(map[uuid.UUID]*capsule.Metadata, len(rows))
	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		m := rows[i].ToMetadata()
		list[i] = m
		byID[m.ID] = m
		ids[i] = m.ID
	}

	var recipients []models.RecipientModel
	err := r.db.WithContext(ctx).
		Where("capsule_id IN ?", ids).
		Order("capsule_id, member_id").
		Find(&recipients).Error
	if err != nil {
		return nil, fmt.Errorf("load capsule recipients: %w", err)
	}
	for _, rec := range recipients {
		if m, ok := byID[rec.CapsuleID]; ok {
			m.RecipientIDs = append(m.RecipientIDs, rec.MemberID)
		}
	}
	return list, nil
}
