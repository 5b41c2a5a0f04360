// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"strings"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client information used for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// auditEntry is what every flow records about a security-relevant action
type auditEntry struct {
	UserID      *uint
	Action      string
	Description string
	Success     bool
	ErrMsg      *string
}

// logAudit saves an audit row. Failures are swallowed: auditing never fails the caller.
func logAudit(ctx context.Context, repo repository.AuditLogRepository, entry auditEntry, metadata *ClientMetadata) {
	if repo == nil {
		return
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		Description:  &entry.Description,
		Success:      utils.ToPtr(entry.Success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: entry.ErrMsg,
		CreatedAt:    utils.UTCNow(),
	}

	if metadata != nil && metadata.RequestID != "" {
		audit.RequestID = &metadata.RequestID
	} else if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		audit.RequestID = &requestID
	}

	_ = repo.Save(ctx, audit)
}

// normalizePage turns 1-based page/limit input into a bounded limit and an offset
func normalizePage(page, limit, defaultLimit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > utils.MaxPageLimit {
		limit = utils.MaxPageLimit
	}
	return page, limit, (page - 1) * limit
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// parseDateParam accepts RFC3339 timestamps or plain YYYY-MM-DD dates. An empty value yields nil.
// A plain end date is widened to the end of that day.
func parseDateParam(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return utils.ToPtr(t.UTC()), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseDateRange(start, end string) (*time.Time, *time.Time, error) {
	startDate, err := parseDateParam(start, false)
	if err != nil {
		return nil, nil, err
	}
	endDate, err := parseDateParam(end, true)
	if err != nil {
		return nil, nil, err
	}
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		return nil, nil, ErrStartDateAfterEndDate
	}
	return startDate, endDate, nil
}

// ToUserDTO converts a user model to its public view
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:                    user.ID,
		UUID:                  user.UUID.String(),
		Name:                  user.Name,
		Email:                 user.Email,
		Role:                  user.Role,
		IsAdmin:               user.IsAdministrator(),
		SubscriptionPlan:      user.SubscriptionPlan,
		SubscriptionActive:    user.HasActiveSubscription(utils.UTCNow()),
		SubscriptionExpiresAt: user.SubscriptionExpiresAt,
		CreatedAt:             user.CreatedAt,
		LastLoginAt:           user.LastLoginAt,
	}
}

func ToLeadDTO(lead models.Lead) dto.LeadDTO {
	return dto.LeadDTO{
		ID:              lead.ID,
		UUID:            lead.UUID.String(),
		Name:            lead.Name,
		Email:           lead.Email,
		Phone:           lead.Phone,
		Status:          string(lead.Status),
		Notes:           lead.Notes,
		LastCallOutcome: lead.LastCallOutcome,
		LastCallNotes:   lead.LastCallNotes,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}

func ToContactDTO(contact models.Contact) dto.ContactDTO {
	return dto.ContactDTO{
		ID:        contact.ID,
		UUID:      contact.UUID.String(),
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Notes:     contact.Notes,
		CreatedAt: contact.CreatedAt,
		UpdatedAt: contact.UpdatedAt,
	}
}

func ToScheduledCallDTO(call models.ScheduledCall) dto.ScheduledCallDTO {
	return dto.ScheduledCallDTO{
		ID:                  call.ID,
		UUID:                call.UUID.String(),
		LeadID:              call.LeadID,
		LeadName:            call.LeadName(),
		ScheduledTime:       call.ScheduledTime,
		DurationSeconds:     call.DurationSeconds,
		Status:              string(call.Status),
		Notes:               call.Notes,
		Reminder:            utils.IsTrue(call.Reminder),
		ReminderSent:        call.ReminderSent,
		EmailEnabled:        utils.IsTrue(call.EmailEnabled),
		EmailAddress:        call.EmailAddress,
		SMSEnabled:          utils.IsTrue(call.SMSEnabled),
		SMSNumber:           call.SMSNumber,
		PopupEnabled:        utils.IsTrue(call.PopupEnabled),
		PopupSoundEnabled:   utils.IsTrue(call.PopupSoundEnabled),
		ReminderTimeMinutes: call.EffectiveReminderMinutes(),
		CreatedAt:           call.CreatedAt,
	}
}

func ToCallHistoryDTO(call models.CallHistory) dto.CallHistoryDTO {
	leadName := "N/A"
	if call.Lead != nil && call.Lead.Name != "" {
		leadName = call.Lead.Name
	}
	return dto.CallHistoryDTO{
		ID:               call.ID,
		UUID:             call.UUID.String(),
		LeadID:           call.LeadID,
		LeadName:         leadName,
		ContactID:        call.ContactID,
		ScheduledCallID:  call.ScheduledCallID,
		ActualStartTime:  call.ActualStartTime,
		DurationSeconds:  call.DurationSeconds,
		Outcome:          string(call.Outcome),
		Notes:            call.Notes,
		FollowUpRequired: utils.IsTrue(call.FollowUpRequired),
		FollowUpDate:     call.FollowUpDate,
		DeviceInfo:       call.DeviceInfo,
		CreatedAt:        call.CreatedAt,
	}
}
