package dto

import "time"

// CreateScheduledCallRequest represents the payload for scheduling a call. Duration is given in
// minutes and stored in seconds.
type CreateScheduledCallRequest struct {
	LeadID              uint      `json:"lead_id" validate:"required" example:"42"`
	ScheduledTime       time.Time `json:"scheduled_time" validate:"required" example:"2025-05-02T09:30:00Z"`
	DurationMinutes     int       `json:"duration_minutes" validate:"omitempty,min=1,max=1440" example:"30"`
	Notes               string    `json:"notes" validate:"omitempty,max=5000"`
	Reminder            *bool     `json:"reminder,omitempty"`
	EmailEnabled        *bool     `json:"email_enabled,omitempty"`
	EmailAddress        string    `json:"email_address" validate:"omitempty,email,max=255"`
	SMSEnabled          *bool     `json:"sms_enabled,omitempty"`
	SMSNumber           string    `json:"sms_number" validate:"omitempty,max=32"`
	PopupEnabled        *bool     `json:"popup_enabled,omitempty"`
	PopupSoundEnabled   *bool     `json:"popup_sound_enabled,omitempty"`
	ReminderTimeMinutes int       `json:"reminder_time_minutes" validate:"omitempty,min=1,max=1440" example:"15"`
}

// UpdateScheduledCallRequest is a partial update
type UpdateScheduledCallRequest struct {
	LeadID              *uint      `json:"lead_id,omitempty"`
	ScheduledTime       *time.Time `json:"scheduled_time,omitempty"`
	DurationMinutes     *int       `json:"duration_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	Status              *string    `json:"status,omitempty" validate:"omitempty,oneof=scheduled completed cancelled missed"`
	Notes               *string    `json:"notes,omitempty" validate:"omitempty,max=5000"`
	Reminder            *bool      `json:"reminder,omitempty"`
	EmailEnabled        *bool      `json:"email_enabled,omitempty"`
	EmailAddress        *string    `json:"email_address,omitempty" validate:"omitempty,max=255"`
	SMSEnabled          *bool      `json:"sms_enabled,omitempty"`
	SMSNumber           *string    `json:"sms_number,omitempty" validate:"omitempty,max=32"`
	PopupEnabled        *bool      `json:"popup_enabled,omitempty"`
	PopupSoundEnabled   *bool      `json:"popup_sound_enabled,omitempty"`
	ReminderTimeMinutes *int       `json:"reminder_time_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
}

// ListScheduledCallsRequest carries the query parameters of GET /scheduled-calls
type ListScheduledCallsRequest struct {
	Status    string `query:"status" validate:"omitempty,oneof=scheduled completed cancelled missed"`
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
}

// ScheduledCallDTO is the public view of a scheduled call
type ScheduledCallDTO struct {
	ID                  uint      `json:"id"`
	UUID                string    `json:"uuid"`
	LeadID              uint      `json:"lead_id"`
	LeadName            string    `json:"lead_name"`
	ScheduledTime       time.Time `json:"scheduled_time"`
	DurationSeconds     int       `json:"duration_seconds"`
	Status              string    `json:"status"`
	Notes               string    `json:"notes"`
	Reminder            bool      `json:"reminder"`
	ReminderSent        bool      `json:"reminder_sent"`
	EmailEnabled        bool      `json:"email_enabled"`
	EmailAddress        string    `json:"email_address"`
	SMSEnabled          bool      `json:"sms_enabled"`
	SMSNumber           string    `json:"sms_number"`
	PopupEnabled        bool      `json:"popup_enabled"`
	PopupSoundEnabled   bool      `json:"popup_sound_enabled"`
	ReminderTimeMinutes int       `json:"reminder_time_minutes"`
	CreatedAt           time.Time `json:"created_at"`
}

type ListScheduledCallsResponse struct {
	Calls []ScheduledCallDTO `json:"calls"`
}
