package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/familynest/backend/internal/domain/family"
	"github.com/familynest/backend/internal/infrastructure/persistence/models"
	"github.com/familynest/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormActivityRepository implements family.ActivityRepository using GORM
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GormActivityRepository
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// CountPhotos returns all photos ever uploaded by a family
func (r *GormActivityRepository) CountPhotos(ctx context.Context, familyID uuid.UUID) (int64, error) {
	return r.count(ctx, &models.PhotoModel{}, familyID, time.Time{})
}

// CountJournals returns all journal entries of a family
func (r *GormActivityRepository) CountJournals(ctx context.Context, familyID uuid.UUID) (int64, error) {
	return r.count(ctx, &models.JournalEntryModel{}, familyID, time.Time{})
}

// SummarizeSince counts memories created at or after since
func (r *GormActivityRepository) SummarizeSince(ctx context.Context, familyID uuid.UUID, since time.Time) (family.ActivitySummary, error) {
	summary := family.ActivitySummary{FamilyID: familyID}

	counts := []struct {
		model any
		dest  *int64
	}{
		{&models.JournalEntryModel{}, &summary.Journals},
		{&models.PhotoModel{}, &summary.Photos},
		{&models.VoiceMemoModel{}, &summary.VoiceMemos},
		{&models.StoryModel{}, &summary.Stories},
	}
	for _, c := range counts {
		n, err := r.count(ctx, c.model, familyID, since)
		if err != nil {
			return family.ActivitySummary{}, err
		}
		*c.dest = n
	}
	return summary, nil
}

// count counts a family's rows of model, optionally only those created at or after since
func (r *GormActivityRepository) count(ctx context.Context, model any, familyID uuid.UUID, since time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Model(model).Scopes(tenant.FamilyScope(familyID))
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count activity: %w", err)
	}
	return n, nil
}
