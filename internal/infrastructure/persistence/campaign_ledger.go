package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/familynest/backend/internal/domain/campaign"
	"github.com/familynest/backend/internal/domain/shared"
	"github.com/familynest/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCampaignLedger implements campaign.Ledger on the email_campaigns table.
// The UNIQUE(family_member_id, campaign_type) index makes Reserve atomic.
type GormCampaignLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormCampaignLedger creates a new GormCampaignLedger
func NewGormCampaignLedger(db *gorm.DB) *GormCampaignLedger {
	return &GormCampaignLedger{db: db, now: time.Now}
}

func (l *GormCampaignLedger) pair(ctx context.Context, memberID uuid.UUID, t campaign.Type) *gorm.DB {
	return l.db.WithContext(ctx).Model(&models.CampaignModel{}).
		Where("family_member_id = ? AND campaign_type = ?", memberID, string(t))
}

// Exists reports whether any row exists for the pair
func (l *GormCampaignLedger) Exists(ctx context.Context, memberID uuid.UUID, t campaign.Type) (bool, error) {
	var count int64
	if err := l.pair(ctx, memberID, t).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check campaign ledger: %w", err)
	}
	return count > 0, nil
}

// Reserve inserts a pending row. A unique violation means another run
// already claimed the pair.
func (l *GormCampaignLedger) Reserve(ctx context.Context, memberID uuid.UUID, t campaign.Type) (bool, error) {
	row := &models.CampaignModel{
		ID:             uuid.New(),
		FamilyMemberID: memberID,
		CampaignType:   string(t),
		Status:         string(campaign.StatusPending),
		CreatedAt:      l.now().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("reserve campaign: %w", err)
	}
	return true, nil
}

// MarkSent moves the pending row of the pair to sent
func (l *GormCampaignLedger) MarkSent(ctx context.Context, memberID uuid.UUID, t campaign.Type) error {
	sentAt := l.now().UTC()
	result := l.pair(ctx, memberID, t).
		Where("status = ?", string(campaign.StatusPending)).
		Updates(map[string]any{
			"status":  string(campaign.StatusSent),
			"sent_at": sentAt,
		})
	if result.Error != nil {
		return fmt.Errorf("mark campaign sent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Release deletes the pending row of the pair. Sent rows are never touched.
func (l *GormCampaignLedger) Release(ctx context.Context, memberID uuid.UUID, t campaign.Type) error {
	err := l.db.WithContext(ctx).
		Where("family_member_id = ? AND campaign_type = ? AND status = ?", memberID, string(t), string(campaign.StatusPending)).
		Delete(&models.CampaignModel{}).Error
	if err != nil {
		return fmt.Errorf("release campaign: %w", err)
	}
	return nil
}

// SweepStale deletes pending rows created before cutoff
func (l *GormCampaignLedger) SweepStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := l.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(campaign.StatusPending), cutoff.UTC()).
		Delete(&models.CampaignModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("sweep stale campaigns: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Find returns the row for the pair
func (l *GormCampaignLedger) Find(ctx context.Context, memberID uuid.UUID, t campaign.Type) (*campaign.Record, error) {
	var model models.CampaignModel
	if err := l.pair(ctx, memberID, t).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
