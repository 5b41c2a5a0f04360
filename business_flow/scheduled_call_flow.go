package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
)

// ScheduledCallFlow handles planned calls
type ScheduledCallFlow interface {
	CreateScheduledCall(ctx context.Context, userID uint, req *dto.CreateScheduledCallRequest) (*dto.ScheduledCallDTO, error)
	ListScheduledCalls(ctx context.Context, userID uint, req *dto.ListScheduledCallsRequest) (*dto.ListScheduledCallsResponse, error)
	GetScheduledCall(ctx context.Context, userID, id uint) (*dto.ScheduledCallDTO, error)
	UpdateScheduledCall(ctx context.Context, userID, id uint, req *dto.UpdateScheduledCallRequest) (*dto.ScheduledCallDTO, error)
	DeleteScheduledCall(ctx context.Context, userID, id uint) error
}

// ScheduledCallFlowImpl implements the scheduled call business flow
type ScheduledCallFlowImpl struct {
	callRepo repository.ScheduledCallRepository
	leadRepo repository.LeadRepository
}

// NewScheduledCallFlow creates a new scheduled call flow instance
func NewScheduledCallFlow(callRepo repository.ScheduledCallRepository, leadRepo repository.LeadRepository) ScheduledCallFlow {
	return &ScheduledCallFlowImpl{
		callRepo: callRepo,
		leadRepo: leadRepo,
	}
}

// ensureLead fails with ErrLeadNotFound unless leadID belongs to userID
func (sf *ScheduledCallFlowImpl) ensureLead(ctx context.Context, userID, leadID uint) (*models.Lead, error) {
	lead, err := sf.leadRepo.ByID(ctx, userID, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

// CreateScheduledCall plans a call against one of the user's leads
func (sf *ScheduledCallFlowImpl) CreateScheduledCall(ctx context.Context, userID uint, req *dto.CreateScheduledCallRequest) (*dto.ScheduledCallDTO, error) {
	if req.ScheduledTime.IsZero() {
		return nil, NewBusinessError("SCHEDULED_CALL_VALIDATION_FAILED", "Scheduled call validation failed", ErrScheduledTimeRequired)
	}

	lead, err := sf.ensureLead(ctx, userID, req.LeadID)
	if err != nil {
		return nil, NewBusinessError("CREATE_SCHEDULED_CALL_FAILED", "Failed to schedule call", err)
	}

	call := &models.ScheduledCall{
		UserID:              userID,
		LeadID:              lead.ID,
		ScheduledTime:       req.ScheduledTime.UTC(),
		DurationSeconds:     req.DurationMinutes * 60,
		Status:              models.ScheduledCallStatusScheduled,
		Notes:               strings.TrimSpace(req.Notes),
		Reminder:            req.Reminder,
		EmailEnabled:        req.EmailEnabled,
		EmailAddress:        utils.NormalizeEmail(req.EmailAddress),
		SMSEnabled:          req.SMSEnabled,
		SMSNumber:           strings.TrimSpace(req.SMSNumber),
		PopupEnabled:        req.PopupEnabled,
		PopupSoundEnabled:   req.PopupSoundEnabled,
		ReminderTimeMinutes: req.ReminderTimeMinutes,
	}
	if err := sf.callRepo.Save(ctx, call); err != nil {
		return nil, NewBusinessError("CREATE_SCHEDULED_CALL_FAILED", "Failed to schedule call", err)
	}
	call.Lead = lead

	out := ToScheduledCallDTO(*call)
	return &out, nil
}

// ListScheduledCalls returns the user's calls, earliest first
func (sf *ScheduledCallFlowImpl) ListScheduledCalls(ctx context.Context, userID uint, req *dto.ListScheduledCallsRequest) (*dto.ListScheduledCallsResponse, error) {
	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, NewBusinessError("SCHEDULED_CALL_VALIDATION_FAILED", "Scheduled call validation failed", err)
	}

	filter := models.ScheduledCallFilter{StartDate: startDate, EndDate: endDate}
	if req.Status != "" {
		status := models.ScheduledCallStatus(req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("SCHEDULED_CALL_VALIDATION_FAILED", "Scheduled call validation failed", ErrInvalidCallStatus)
		}
		filter.Status = &status
	}

	calls, err := sf.callRepo.ByFilter(ctx, userID, filter, "", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_SCHEDULED_CALLS_FAILED", "Failed to list scheduled calls", err)
	}

	items := make([]dto.ScheduledCallDTO, 0, len(calls))
	for _, c := range calls {
		items = append(items, ToScheduledCallDTO(*c))
	}
	return &dto.ListScheduledCallsResponse{Calls: items}, nil
}

func (sf *ScheduledCallFlowImpl) GetScheduledCall(ctx context.Context, userID, id uint) (*dto.ScheduledCallDTO, error) {
	call, err := sf.callRepo.ByID(ctx, userID, id)
	if err != nil {
		return nil, NewBusinessError("GET_SCHEDULED_CALL_FAILED", "Failed to get scheduled call", err)
	}
	if call == nil {
		return nil, NewBusinessError("SCHEDULED_CALL_NOT_FOUND", "Call not found or not authorized", ErrScheduledCallNotFound)
	}

	out := ToScheduledCallDTO(*call)
	return &out, nil
}

// UpdateScheduledCall applies a partial update. Moving the call to another lead requires that
// lead to be the user's too.
func (sf *ScheduledCallFlowImpl) UpdateScheduledCall(ctx context.Context, userID, id uint, req *dto.UpdateScheduledCallRequest) (*dto.ScheduledCallDTO, error) {
	patch := models.ScheduledCallPatch{
		Notes:             trimPtr(req.Notes),
		Reminder:          req.Reminder,
		EmailEnabled:      req.EmailEnabled,
		SMSEnabled:        req.SMSEnabled,
		SMSNumber:         trimPtr(req.SMSNumber),
		PopupEnabled:      req.PopupEnabled,
		PopupSoundEnabled: req.PopupSoundEnabled,
	}
	if req.LeadID != nil {
		if _, err := sf.ensureLead(ctx, userID, *req.LeadID); err != nil {
			return nil, NewBusinessError("UPDATE_SCHEDULED_CALL_FAILED", "Failed to update scheduled call", err)
		}
		patch.LeadID = req.LeadID
	}
	if req.ScheduledTime != nil {
		if req.ScheduledTime.IsZero() {
			return nil, NewBusinessError("SCHEDULED_CALL_VALIDATION_FAILED", "Scheduled call validation failed", ErrScheduledTimeRequired)
		}
		patch.ScheduledTime = req.ScheduledTime
	}
	if req.DurationMinutes != nil {
		patch.DurationSeconds = utils.ToPtr(*req.DurationMinutes * 60)
	}
	if req.Status != nil {
		status := models.ScheduledCallStatus(*req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("SCHEDULED_CALL_VALIDATION_FAILED", "Scheduled call validation failed", ErrInvalidCallStatus)
		}
		patch.Status = &status
	}
	if req.EmailAddress != nil {
		patch.EmailAddress = utils.ToPtr(utils.NormalizeEmail(*req.EmailAddress))
	}
	if req.ReminderTimeMinutes != nil {
		patch.ReminderTimeMinutes = req.ReminderTimeMinutes
	}

	call, err := sf.callRepo.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, NewBusinessError("UPDATE_SCHEDULED_CALL_FAILED", "Failed to update scheduled call", err)
	}
	if call == nil {
		return nil, NewBusinessError("SCHEDULED_CALL_NOT_FOUND", "Call not found or not authorized", ErrScheduledCallNotFound)
	}

	out := ToScheduledCallDTO(*call)
	return &out, nil
}

func (sf *ScheduledCallFlowImpl) DeleteScheduledCall(ctx context.Context, userID, id uint) error {
	deleted, err := sf.callRepo.Delete(ctx, userID, id)
	if err != nil {
		return NewBusinessError("DELETE_SCHEDULED_CALL_FAILED", "Failed to delete scheduled call", err)
	}
	if !deleted {
		return NewBusinessError("SCHEDULED_CALL_NOT_FOUND", "Call not found or not authorized", ErrScheduledCallNotFound)
	}
	return nil
}
