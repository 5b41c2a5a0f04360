package models

import (
	"time"

	"github.com/amirphl/ring-crm/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallOutcome is the result of a call attempt
type CallOutcome string

const (
	CallOutcomeInProgress  CallOutcome = "in-progress"
	CallOutcomeCompleted   CallOutcome = "completed"
	CallOutcomeSuccessful  CallOutcome = "successful"
	CallOutcomeNoAnswer    CallOutcome = "no-answer"
	CallOutcomeWrongNumber CallOutcome = "wrong-number"
	CallOutcomeBusy        CallOutcome = "busy"
	CallOutcomeRescheduled CallOutcome = "rescheduled"
	CallOutcomeCancelled   CallOutcome = "cancelled"
	CallOutcomeSkipped     CallOutcome = "skipped"
)

// Valid reports whether o is a known outcome, including in-progress
func (o CallOutcome) Valid() bool {
	return o == CallOutcomeInProgress || o.Terminal()
}

// Terminal reports whether o resolves a call
func (o CallOutcome) Terminal() bool {
	switch o {
	case CallOutcomeCompleted, CallOutcomeSuccessful, CallOutcomeNoAnswer, CallOutcomeWrongNumber,
		CallOutcomeBusy, CallOutcomeRescheduled, CallOutcomeCancelled, CallOutcomeSkipped:
		return true
	}
	return false
}

// Retryable reports whether a lead with this last outcome belongs in a new calling session
func (o CallOutcome) Retryable() bool {
	switch o {
	case "", CallOutcomeNoAnswer, CallOutcomeBusy, CallOutcomeSkipped:
		return true
	}
	return false
}

// CallHistory is the record of an attempted or completed call
type CallHistory struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_call_history_uuid" json:"uuid"`
	UserID          uint      `gorm:"not null;index:idx_call_history_user_start,priority:1" json:"user_id"`
	LeadID          uint      `gorm:"not null;index:idx_call_history_lead_id" json:"lead_id"`
	ContactID       *uint     `gorm:"index:idx_call_history_contact_id" json:"contact_id,omitempty"`
	ScheduledCallID *uint     `gorm:"index:idx_call_history_scheduled_call_id" json:"scheduled_call_id,omitempty"`

	ActualStartTime  time.Time   `gorm:"not null;index:idx_call_history_user_start,priority:2" json:"actual_start_time"`
	DurationSeconds  int         `gorm:"not null;default:0" json:"duration_seconds"`
	Outcome          CallOutcome `gorm:"size:20;not null;index:idx_call_history_outcome" json:"outcome"`
	Notes            string      `gorm:"type:text" json:"notes"`
	FollowUpRequired *bool       `gorm:"default:false" json:"follow_up_required"`
	FollowUpDate     *time.Time  `json:"follow_up_date,omitempty"`
	DeviceInfo       string      `gorm:"size:512" json:"device_info"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lead *Lead `gorm:"foreignKey:LeadID;references:ID;constraint:OnDelete:CASCADE" json:"lead,omitempty"`
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (CallHistory) TableName() string {
	return "call_history"
}

func (c *CallHistory) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.FollowUpRequired == nil {
		c.FollowUpRequired = utils.ToPtr(false)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return nil
}

// CallHistoryFilter represents filter criteria for call history queries
type CallHistoryFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Outcome   *CallOutcome
	LeadName  *string
	LeadID    *uint
}

// CallStatusPatch is the after-the-fact update of a call record
type CallStatusPatch struct {
	Outcome          *CallOutcome
	Notes            *string
	DurationSeconds  *int
	FollowUpRequired *bool
	FollowUpDate     *time.Time
}
