package dto

import "time"

// CreateCallHistoryRequest records a call after the fact
type CreateCallHistoryRequest struct {
	LeadID           uint       `json:"lead_id" validate:"required"`
	ContactID        *uint      `json:"contact_id,omitempty"`
	ScheduledCallID  *uint      `json:"scheduled_call_id,omitempty"`
	ActualStartTime  *time.Time `json:"actual_start_time,omitempty"`
	DurationSeconds  int        `json:"duration_seconds" validate:"omitempty,min=0"`
	Outcome          string     `json:"outcome" validate:"required,oneof=in-progress completed successful no-answer wrong-number busy rescheduled cancelled skipped"`
	Notes            string     `json:"notes" validate:"omitempty,max=5000"`
	FollowUpRequired bool       `json:"follow_up_required"`
	FollowUpDate     *time.Time `json:"follow_up_date,omitempty"`
	DeviceInfo       string     `json:"device_info" validate:"omitempty,max=512"`
}

// InitiateCallRequest opens an in-progress call record before dialing
type InitiateCallRequest struct {
	LeadID          uint   `json:"lead_id" validate:"required" example:"42"`
	PhoneNumber     string `json:"phone_number" validate:"required,max=32" example:"+91 98765 43210"`
	DeviceInfo      string `json:"device_info" validate:"omitempty,max=512" example:"crmctl/linux"`
	ScheduledCallID *uint  `json:"scheduled_call_id,omitempty"`
}

// UpdateCallStatusRequest resolves a call record
type UpdateCallStatusRequest struct {
	Outcome          *string    `json:"outcome,omitempty" validate:"omitempty,oneof=in-progress completed successful no-answer wrong-number busy rescheduled cancelled skipped"`
	Notes            *string    `json:"notes,omitempty" validate:"omitempty,max=5000"`
	DurationSeconds  *int       `json:"duration_seconds,omitempty" validate:"omitempty,min=0"`
	FollowUpRequired *bool      `json:"follow_up_required,omitempty"`
	FollowUpDate     *time.Time `json:"follow_up_date,omitempty"`
}

// ListCallHistoryRequest carries the query parameters of GET /call-history
type ListCallHistoryRequest struct {
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
	Outcome   string `query:"outcome" validate:"omitempty,oneof=in-progress completed successful no-answer wrong-number busy rescheduled cancelled skipped"`
	LeadName  string `query:"lead_name"`
	LeadID    uint   `query:"lead_id"`
	Page      int    `query:"page" validate:"omitempty,min=1"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

// CallHistoryDTO is the public view of a call record
type CallHistoryDTO struct {
	ID               uint       `json:"id"`
	UUID             string     `json:"uuid"`
	LeadID           uint       `json:"lead_id"`
	LeadName         string     `json:"lead_name"`
	ContactID        *uint      `json:"contact_id,omitempty"`
	ScheduledCallID  *uint      `json:"scheduled_call_id,omitempty"`
	ActualStartTime  time.Time  `json:"actual_start_time"`
	DurationSeconds  int        `json:"duration_seconds"`
	Outcome          string     `json:"outcome"`
	Notes            string     `json:"notes"`
	FollowUpRequired bool       `json:"follow_up_required"`
	FollowUpDate     *time.Time `json:"follow_up_date,omitempty"`
	DeviceInfo       string     `json:"device_info"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ListCallHistoryResponse struct {
	Calls []CallHistoryDTO `json:"calls"`
}
