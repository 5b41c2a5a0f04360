package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/ring-crm/models"
	"gorm.io/gorm"
)

// CallHistoryRepositoryImpl implements CallHistoryRepository interface
type CallHistoryRepositoryImpl struct {
	*BaseRepository[models.CallHistory, models.CallHistoryFilter]
}

// NewCallHistoryRepository creates a new call history repository
func NewCallHistoryRepository(db *gorm.DB) CallHistoryRepository {
	return &CallHistoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CallHistory, models.CallHistoryFilter](db),
	}
}

func (r *CallHistoryRepositoryImpl) ByID(ctx context.Context, userID, id uint) (*models.CallHistory, error) {
	return r.ownedByID(ctx, userID, id, "Lead")
}

func (r *CallHistoryRepositoryImpl) applyFilter(query *gorm.DB, filter models.CallHistoryFilter) *gorm.DB {
	if filter.StartDate != nil {
		query = query.Where("call_history.actual_start_time >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("call_history.actual_start_time <= ?", *filter.EndDate)
	}
	if filter.Outcome != nil {
		query = query.Where("call_history.outcome = ?", *filter.Outcome)
	}
	if filter.LeadID != nil {
		query = query.Where("call_history.lead_id = ?", *filter.LeadID)
	}
	if filter.LeadName != nil && *filter.LeadName != "" {
		query = query.
			Joins("JOIN leads ON leads.id = call_history.lead_id").
			Where(`LOWER(leads.name) LIKE ? ESCAPE '\'`, likePattern(*filter.LeadName))
	}
	return query
}

// ByFilter lists call records of userID, newest first unless orderBy says otherwise
func (r *CallHistoryRepositoryImpl) ByFilter(ctx context.Context, userID uint, filter models.CallHistoryFilter, orderBy string, limit, offset int) ([]*models.CallHistory, error) {
	query := r.getDB(ctx).Model(&models.CallHistory{}).Where("call_history.user_id = ?", userID)
	query = r.applyFilter(query, filter).Preload("Lead")
	if orderBy == "" {
		orderBy = "call_history.actual_start_time DESC, call_history.id DESC"
	}

	var rows []*models.CallHistory
	if err := paginate(query, orderBy, limit, offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list call history: %w", err)
	}
	return rows, nil
}

// UpdateStatus records the outcome of a call owned by userID; (nil, nil) when not owned
func (r *CallHistoryRepositoryImpl) UpdateStatus(ctx context.Context, userID, id uint, patch models.CallStatusPatch) (*models.CallHistory, error) {
	updates := map[string]any{}
	if patch.Outcome != nil {
		updates["outcome"] = *patch.Outcome
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if patch.DurationSeconds != nil {
		updates["duration_seconds"] = *patch.DurationSeconds
	}
	if patch.FollowUpRequired != nil {
		updates["follow_up_required"] = *patch.FollowUpRequired
	}
	if patch.FollowUpDate != nil {
		updates["follow_up_date"] = patch.FollowUpDate.UTC()
	}

	found, err := r.updateOwned(ctx, userID, id, updates)
	if err != nil || !found {
		return nil, err
	}
	return r.ByID(ctx, userID, id)
}
