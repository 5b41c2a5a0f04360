package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/utils"
	"gorm.io/gorm"
)

// ScheduledCallRepositoryImpl implements ScheduledCallRepository interface
type ScheduledCallRepositoryImpl struct {
	*BaseRepository[models.ScheduledCall, models.ScheduledCallFilter]
}

// NewScheduledCallRepository creates a new scheduled call repository
func NewScheduledCallRepository(db *gorm.DB) ScheduledCallRepository {
	return &ScheduledCallRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ScheduledCall, models.ScheduledCallFilter](db),
	}
}

// ByID retrieves a scheduled call owned by userID with its lead populated
func (r *ScheduledCallRepositoryImpl) ByID(ctx context.Context, userID, id uint) (*models.ScheduledCall, error) {
	return r.ownedByID(ctx, userID, id, "Lead")
}

func (r *ScheduledCallRepositoryImpl) applyFilter(query *gorm.DB, filter models.ScheduledCallFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.StartDate != nil {
		query = query.Where("scheduled_time >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("scheduled_time <= ?", *filter.EndDate)
	}
	if filter.ReminderDue != nil {
		query = query.Where("reminder_sent = ?", !*filter.ReminderDue)
	}
	return query
}

// ByFilter lists scheduled calls of userID, earliest first unless orderBy says otherwise
func (r *ScheduledCallRepositoryImpl) ByFilter(ctx context.Context, userID uint, filter models.ScheduledCallFilter, orderBy string, limit, offset int) ([]*models.ScheduledCall, error) {
	query := r.applyFilter(r.owned(ctx, userID), filter).Preload("Lead")
	if orderBy == "" {
		orderBy = "scheduled_time ASC, id ASC"
	}

	var calls []*models.ScheduledCall
	if err := paginate(query, orderBy, limit, offset).Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("failed to list scheduled calls: %w", err)
	}
	return calls, nil
}

// Update applies patch to a scheduled call; returns (nil, nil) when not owned by userID
func (r *ScheduledCallRepositoryImpl) Update(ctx context.Context, userID, id uint, patch models.ScheduledCallPatch) (*models.ScheduledCall, error) {
	updates := map[string]any{}
	if patch.LeadID != nil {
		updates["lead_id"] = *patch.LeadID
	}
	if patch.ScheduledTime != nil {
		updates["scheduled_time"] = patch.ScheduledTime.UTC()
	}
	if patch.DurationSeconds != nil {
		updates["duration_seconds"] = *patch.DurationSeconds
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if patch.Reminder != nil {
		updates["reminder"] = *patch.Reminder
	}
	if patch.EmailEnabled != nil {
		updates["email_enabled"] = *patch.EmailEnabled
	}
	if patch.EmailAddress != nil {
		updates["email_address"] = *patch.EmailAddress
	}
	if patch.SMSEnabled != nil {
		updates["sms_enabled"] = *patch.SMSEnabled
	}
	if patch.SMSNumber != nil {
		updates["sms_number"] = *patch.SMSNumber
	}
	if patch.PopupEnabled != nil {
		updates["popup_enabled"] = *patch.PopupEnabled
	}
	if patch.PopupSoundEnabled != nil {
		updates["popup_sound_enabled"] = *patch.PopupSoundEnabled
	}
	if patch.ReminderTimeMinutes != nil {
		updates["reminder_time_minutes"] = *patch.ReminderTimeMinutes
	}

	found, err := r.updateOwned(ctx, userID, id, updates)
	if err != nil || !found {
		return nil, err
	}
	return r.ByID(ctx, userID, id)
}

// Delete removes one scheduled call owned by userID
func (r *ScheduledCallRepositoryImpl) Delete(ctx context.Context, userID, id uint) (bool, error) {
	n, err := r.deleteOwned(ctx, userID, id)
	return n > 0, err
}

func (r *ScheduledCallRepositoryImpl) reminderWindow(query *gorm.DB, from, to time.Time) *gorm.DB {
	return query.
		Where("scheduled_time > ? AND scheduled_time < ?", from.UTC(), to.UTC()).
		Where("reminder_sent = ?", false)
}

// ListReminderCandidates returns due, unreminded calls of userID with their leads
func (r *ScheduledCallRepositoryImpl) ListReminderCandidates(ctx context.Context, userID uint, from, to time.Time) ([]*models.ScheduledCall, error) {
	query := r.reminderWindow(r.owned(ctx, userID), from, to).Preload("Lead")

	var calls []*models.ScheduledCall
	if err := query.Order("scheduled_time ASC, id ASC").Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("failed to list reminder candidates: %w", err)
	}
	return calls, nil
}

// MarkReminderSent is a compare-and-set on reminder_sent
func (r *ScheduledCallRepositoryImpl) MarkReminderSent(ctx context.Context, userID, id uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.ScheduledCall{}).
		Where("id = ? AND user_id = ? AND reminder_sent = ?", id, userID, false).
		Updates(map[string]any{
			"reminder_sent": true,
			"updated_at":    utils.UTCNow(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark reminder sent for call %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UsersWithDueReminders lists the distinct owners of reminder candidates
func (r *ScheduledCallRepositoryImpl) UsersWithDueReminders(ctx context.Context, from, to time.Time) ([]uint, error) {
	query := r.reminderWindow(r.getDB(ctx).Model(&models.ScheduledCall{}), from, to)

	var ids []uint
	if err := query.Distinct("user_id").Order("user_id ASC").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list users with due reminders: %w", err)
	}
	return ids, nil
}
