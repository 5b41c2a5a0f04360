package dto

// Reminder result statuses
const (
	ReminderStatusSuccess = "success"
	ReminderStatusError   = "error"
	ReminderStatusSkipped = "skipped"
)

// UpcomingCallDTO is a scheduled call inside the reminder window
type UpcomingCallDTO struct {
	ScheduledCallDTO
	MinutesUntilCall int `json:"minutes_until_call"`
}

// ReminderResultDTO reports what happened to one call's reminder during a scan
type ReminderResultDTO struct {
	CallID           uint   `json:"call_id"`
	Status           string `json:"status"`
	MinutesUntilCall *int   `json:"minutes_until_call,omitempty"`
	Error            string `json:"error,omitempty"`
}

// CheckRemindersResponse is returned by a reminder scan
type CheckRemindersResponse struct {
	UpcomingCalls   []UpcomingCallDTO   `json:"upcoming_calls"`
	ReminderResults []ReminderResultDTO `json:"reminder_results"`
	Message         string              `json:"message"`
}
