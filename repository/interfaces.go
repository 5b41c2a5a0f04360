// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/ring-crm/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// UserRepository defines operations for users. Users are the tenants, so these methods are
// the only ones not scoped by an owning user.
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context, filter models.UserFilter) (int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) (bool, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	SetResetToken(ctx context.Context, id uint, token string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	ActivateSubscription(ctx context.Context, id uint, plan string, expiresAt time.Time, paymentID string) error
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByID(ctx context.Context, userID, id uint) (*models.Lead, error)
	ByFilter(ctx context.Context, userID uint, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error)
	Count(ctx context.Context, userID uint, filter models.LeadFilter) (int64, error)
	Update(ctx context.Context, userID, id uint, patch models.LeadPatch) (*models.Lead, error)
	Delete(ctx context.Context, userID, id uint) (bool, error)
	DeleteMany(ctx context.Context, userID uint, ids []uint) (int64, error)
	Next(ctx context.Context, userID uint, afterID *uint) (*models.Lead, error)
}

// ContactRepository defines operations for contacts
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByID(ctx context.Context, userID, id uint) (*models.Contact, error)
	ByFilter(ctx context.Context, userID uint, filter models.ContactFilter, orderBy string, limit, offset int) ([]*models.Contact, error)
	Count(ctx context.Context, userID uint, filter models.ContactFilter) (int64, error)
	Update(ctx context.Context, userID, id uint, patch models.ContactPatch) (*models.Contact, error)
	Delete(ctx context.Context, userID, id uint) (bool, error)
}

// ScheduledCallRepository defines operations for scheduled calls
type ScheduledCallRepository interface {
	Repository[models.ScheduledCall, models.ScheduledCallFilter]
	ByID(ctx context.Context, userID, id uint) (*models.ScheduledCall, error)
	ByFilter(ctx context.Context, userID uint, filter models.ScheduledCallFilter, orderBy string, limit, offset int) ([]*models.ScheduledCall, error)
	Update(ctx context.Context, userID, id uint, patch models.ScheduledCallPatch) (*models.ScheduledCall, error)
	Delete(ctx context.Context, userID, id uint) (bool, error)

	// ListReminderCandidates returns calls of userID with from < scheduled_time < to that still
	// want a reminder and have not had one sent, ordered by scheduled time.
	ListReminderCandidates(ctx context.Context, userID uint, from, to time.Time) ([]*models.ScheduledCall, error)
	// MarkReminderSent flips reminder_sent from false to true. It reports false when the flag
	// was already set (or the call is not owned by userID), so only one caller ever wins.
	MarkReminderSent(ctx context.Context, userID, id uint) (bool, error)
	// UsersWithDueReminders lists owners that have at least one candidate in (from, to).
	UsersWithDueReminders(ctx context.Context, from, to time.Time) ([]uint, error)
}

// CallHistoryRepository defines operations for call history records
type CallHistoryRepository interface {
	Repository[models.CallHistory, models.CallHistoryFilter]
	ByID(ctx context.Context, userID, id uint) (*models.CallHistory, error)
	ByFilter(ctx context.Context, userID uint, filter models.CallHistoryFilter, orderBy string, limit, offset int) ([]*models.CallHistory, error)
	UpdateStatus(ctx context.Context, userID, id uint, patch models.CallStatusPatch) (*models.CallHistory, error)
}

// PaymentRepository defines operations for subscription payments
type PaymentRepository interface {
	Repository[models.Payment, models.PaymentFilter]
	ByOrderID(ctx context.Context, orderID, email string) (*models.Payment, error)
	LatestPaid(ctx context.Context, email string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
}
