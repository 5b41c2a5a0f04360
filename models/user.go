// Package models contains domain entities and business models for the CRM
package models

import (
	"time"

	"github.com/amirphl/ring-crm/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// Subscription plans
const (
	PlanFree     = "free"
	PlanHalfYear = "half"
	PlanYearly   = "yearly"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	Role    string `gorm:"size:16;not null;default:'user';index:idx_users_role" json:"role"`
	IsAdmin *bool  `gorm:"default:false" json:"is_admin"`

	// Subscription
	SubscriptionPlan      string     `gorm:"size:16;not null;default:'free'" json:"subscription_plan"`
	SubscriptionPaid      *bool      `gorm:"default:false" json:"subscription_paid"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	SubscriptionPaymentID *string    `gorm:"size:255" json:"-"`

	// Password reset
	ResetToken          *string    `gorm:"size:128;index:idx_users_reset_token" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt   time.Time  `gorm:"index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID and timestamps
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.Role == "" {
		u.Role = UserRoleUser
	}
	if u.SubscriptionPlan == "" {
		u.SubscriptionPlan = PlanFree
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	return nil
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	Role          *string
	ResetToken    *string
	Search        *string // name or email contains, case-insensitive
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// IsAdministrator reports whether the user may use the admin panel
func (u *User) IsAdministrator() bool {
	return u.Role == UserRoleAdmin || utils.IsTrue(u.IsAdmin)
}

// HasActiveSubscription reports whether a paid plan is still running at now
func (u *User) HasActiveSubscription(now time.Time) bool {
	return utils.IsTrue(u.SubscriptionPaid) && u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.After(now)
}
