package models

import (
	"time"

	"github.com/amirphl/ring-crm/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduledCallStatus tracks a planned call
type ScheduledCallStatus string

const (
	ScheduledCallStatusScheduled ScheduledCallStatus = "scheduled"
	ScheduledCallStatusCompleted ScheduledCallStatus = "completed"
	ScheduledCallStatusCancelled ScheduledCallStatus = "cancelled"
	ScheduledCallStatusMissed    ScheduledCallStatus = "missed"
)

func (s ScheduledCallStatus) Valid() bool {
	switch s {
	case ScheduledCallStatusScheduled, ScheduledCallStatusCompleted, ScheduledCallStatusCancelled, ScheduledCallStatusMissed:
		return true
	}
	return false
}

// ScheduledCall is a planned call against a lead.
// ReminderSent only ever moves from false to true.
type ScheduledCall struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_scheduled_calls_uuid" json:"uuid"`
	UserID uint      `gorm:"not null;index:idx_scheduled_calls_user_time,priority:1" json:"user_id"`
	LeadID uint      `gorm:"not null;index:idx_scheduled_calls_lead_id" json:"lead_id"`

	ScheduledTime   time.Time           `gorm:"not null;index:idx_scheduled_calls_user_time,priority:2" json:"scheduled_time"`
	DurationSeconds int                 `gorm:"not null;default:1800" json:"duration_seconds"`
	Status          ScheduledCallStatus `gorm:"size:16;not null;default:'scheduled';index:idx_scheduled_calls_status" json:"status"`
	Notes           string              `gorm:"type:text" json:"notes"`

	Reminder     *bool `gorm:"default:true" json:"reminder"`
	ReminderSent bool  `gorm:"not null;default:false;index:idx_scheduled_calls_reminder_sent" json:"reminder_sent"`

	// Notification preferences
	EmailEnabled        *bool  `gorm:"default:true" json:"email_enabled"`
	EmailAddress        string `gorm:"size:255" json:"email_address"`
	SMSEnabled          *bool  `gorm:"default:false" json:"sms_enabled"`
	SMSNumber           string `gorm:"size:32" json:"sms_number"`
	PopupEnabled        *bool  `gorm:"default:true" json:"popup_enabled"`
	PopupSoundEnabled   *bool  `gorm:"default:true" json:"popup_sound_enabled"`
	ReminderTimeMinutes int    `gorm:"not null;default:15" json:"reminder_time_minutes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lead *Lead `gorm:"foreignKey:LeadID;references:ID;constraint:OnDelete:CASCADE" json:"lead,omitempty"`
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ScheduledCall) TableName() string {
	return "scheduled_calls"
}

func (c *ScheduledCall) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ScheduledCallStatusScheduled
	}
	if c.DurationSeconds <= 0 {
		c.DurationSeconds = utils.DefaultCallDurationSeconds
	}
	if c.ReminderTimeMinutes <= 0 {
		c.ReminderTimeMinutes = utils.DefaultReminderMinutes
	}
	if c.Reminder == nil {
		c.Reminder = utils.ToPtr(true)
	}
	if c.EmailEnabled == nil {
		c.EmailEnabled = utils.ToPtr(true)
	}
	if c.SMSEnabled == nil {
		c.SMSEnabled = utils.ToPtr(false)
	}
	if c.PopupEnabled == nil {
		c.PopupEnabled = utils.ToPtr(true)
	}
	if c.PopupSoundEnabled == nil {
		c.PopupSoundEnabled = utils.ToPtr(true)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return nil
}

// EffectiveReminderMinutes returns the lead-time used to decide whether a reminder fires
func (c *ScheduledCall) EffectiveReminderMinutes() int {
	if c.ReminderTimeMinutes <= 0 {
		return utils.DefaultReminderMinutes
	}
	return c.ReminderTimeMinutes
}

// WantsEmailReminder reports whether the call is still open and asks for an email reminder.
// An empty address does not opt out; the send fails and the call is retried on a later scan.
func (c *ScheduledCall) WantsEmailReminder() bool {
	return c.Status == ScheduledCallStatusScheduled && utils.IsTrue(c.Reminder) && utils.IsTrue(c.EmailEnabled)
}

// LeadName returns the populated lead's name or "N/A"
func (c *ScheduledCall) LeadName() string {
	if c.Lead == nil || c.Lead.Name == "" {
		return "N/A"
	}
	return c.Lead.Name
}

// ScheduledCallFilter represents filter criteria for scheduled call queries
type ScheduledCallFilter struct {
	Status      *ScheduledCallStatus
	LeadID      *uint
	StartDate   *time.Time
	EndDate     *time.Time
	ReminderDue *bool
}

// ScheduledCallPatch carries the fields a partial update may change. ReminderSent is absent on
// purpose: it is only written through the compare-and-set path.
type ScheduledCallPatch struct {
	LeadID              *uint
	ScheduledTime       *time.Time
	DurationSeconds     *int
	Status              *ScheduledCallStatus
	Notes               *string
	Reminder            *bool
	EmailEnabled        *bool
	EmailAddress        *string
	SMSEnabled          *bool
	SMSNumber           *string
	PopupEnabled        *bool
	PopupSoundEnabled   *bool
	ReminderTimeMinutes *int
}
