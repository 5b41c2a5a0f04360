package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/ring-crm/models"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByID retrieves a lead owned by userID
func (r *LeadRepositoryImpl) ByID(ctx context.Context, userID, id uint) (*models.Lead, error) {
	return r.ownedByID(ctx, userID, id)
}

func (r *LeadRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != nil && *filter.Search != "" {
		p := likePattern(*filter.Search)
		query = query.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\' OR LOWER(notes) LIKE ? ESCAPE '\')`,
			p, p, p, p,
		)
	}
	if filter.AfterID != nil {
		query = query.Where("id > ?", *filter.AfterID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves leads of userID based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, userID uint, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	query := r.applyFilter(r.owned(ctx, userID), filter)
	if orderBy == "" {
		orderBy = "name ASC, id ASC"
	}

	var leads []*models.Lead
	if err := paginate(query, orderBy, limit, offset).Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// Count returns number of leads of userID matching filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, userID uint, filter models.LeadFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.owned(ctx, userID), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}

// Update applies patch to a lead; returns (nil, nil) when the lead is not owned by userID
func (r *LeadRepositoryImpl) Update(ctx context.Context, userID, id uint, patch models.LeadPatch) (*models.Lead, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if patch.LastCallOutcome != nil {
		updates["last_call_outcome"] = *patch.LastCallOutcome
	}
	if patch.LastCallNotes != nil {
		updates["last_call_notes"] = *patch.LastCallNotes
	}

	found, err := r.updateOwned(ctx, userID, id, updates)
	if err != nil || !found {
		return nil, err
	}
	return r.ByID(ctx, userID, id)
}

// Delete removes one lead owned by userID
func (r *LeadRepositoryImpl) Delete(ctx context.Context, userID, id uint) (bool, error) {
	n, err := r.deleteOwned(ctx, userID, id)
	return n > 0, err
}

// DeleteMany removes the listed leads that belong to userID; others are ignored
func (r *LeadRepositoryImpl) DeleteMany(ctx context.Context, userID uint, ids []uint) (int64, error) {
	return r.deleteOwned(ctx, userID, ids...)
}

// Next returns the lead with the smallest ID above afterID, or the first lead when afterID is nil
func (r *LeadRepositoryImpl) Next(ctx context.Context, userID uint, afterID *uint) (*models.Lead, error) {
	query := r.applyFilter(r.owned(ctx, userID), models.LeadFilter{AfterID: afterID})

	var lead models.Lead
	if err := query.Order("id ASC").First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find next lead: %w", err)
	}
	return &lead, nil
}
