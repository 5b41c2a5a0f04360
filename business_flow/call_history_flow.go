package businessflow

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
)

var dialablePhone = regexp.MustCompile(`^\+?[\d\s\-()]+$`)

// CallHistoryFlow handles the record of calls made
type CallHistoryFlow interface {
	CreateCallHistory(ctx context.Context, userID uint, req *dto.CreateCallHistoryRequest) (*dto.CallHistoryDTO, error)
	ListCallHistory(ctx context.Context, userID uint, req *dto.ListCallHistoryRequest) (*dto.ListCallHistoryResponse, error)
	InitiateCall(ctx context.Context, userID uint, req *dto.InitiateCallRequest) (*dto.CallHistoryDTO, error)
	UpdateCallStatus(ctx context.Context, userID, id uint, req *dto.UpdateCallStatusRequest) (*dto.CallHistoryDTO, error)
}

// CallHistoryFlowImpl implements the call history business flow
type CallHistoryFlowImpl struct {
	historyRepo repository.CallHistoryRepository
	leadRepo    repository.LeadRepository
	callRepo    repository.ScheduledCallRepository
	now         func() time.Time
}

// NewCallHistoryFlow creates a new call history flow instance
func NewCallHistoryFlow(
	historyRepo repository.CallHistoryRepository,
	leadRepo repository.LeadRepository,
	callRepo repository.ScheduledCallRepository,
) CallHistoryFlow {
	return &CallHistoryFlowImpl{
		historyRepo: historyRepo,
		leadRepo:    leadRepo,
		callRepo:    callRepo,
		now:         utils.UTCNow,
	}
}

// checkRefs verifies that the lead and the optional scheduled call belong to userID
func (cf *CallHistoryFlowImpl) checkRefs(ctx context.Context, userID, leadID uint, scheduledCallID *uint) (*models.Lead, error) {
	lead, err := cf.leadRepo.ByID(ctx, userID, leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	if scheduledCallID != nil {
		call, err := cf.callRepo.ByID(ctx, userID, *scheduledCallID)
		if err != nil {
			return nil, err
		}
		if call == nil {
			return nil, ErrScheduledCallNotFound
		}
	}
	return lead, nil
}

// CreateCallHistory stores a call logged after the fact
func (cf *CallHistoryFlowImpl) CreateCallHistory(ctx context.Context, userID uint, req *dto.CreateCallHistoryRequest) (*dto.CallHistoryDTO, error) {
	outcome := models.CallOutcome(req.Outcome)
	if !outcome.Valid() {
		return nil, NewBusinessError("CALL_HISTORY_VALIDATION_FAILED", "Call history validation failed", ErrInvalidOutcome)
	}

	lead, err := cf.checkRefs(ctx, userID, req.LeadID, req.ScheduledCallID)
	if err != nil {
		return nil, NewBusinessError("CREATE_CALL_HISTORY_FAILED", "Failed to create call history", err)
	}

	start := cf.now()
	if req.ActualStartTime != nil && !req.ActualStartTime.IsZero() {
		start = req.ActualStartTime.UTC()
	}

	record := &models.CallHistory{
		UserID:           userID,
		LeadID:           lead.ID,
		ContactID:        req.ContactID,
		ScheduledCallID:  req.ScheduledCallID,
		ActualStartTime:  start,
		DurationSeconds:  req.DurationSeconds,
		Outcome:          outcome,
		Notes:            strings.TrimSpace(req.Notes),
		FollowUpRequired: utils.ToPtr(req.FollowUpRequired),
		FollowUpDate:     utils.TimeToUTCPtr(req.FollowUpDate),
		DeviceInfo:       req.DeviceInfo,
	}
	if err := cf.historyRepo.Save(ctx, record); err != nil {
		return nil, NewBusinessError("CREATE_CALL_HISTORY_FAILED", "Failed to create call history", err)
	}
	record.Lead = lead

	out := ToCallHistoryDTO(*record)
	return &out, nil
}

// ListCallHistory returns the user's calls, newest first
func (cf *CallHistoryFlowImpl) ListCallHistory(ctx context.Context, userID uint, req *dto.ListCallHistoryRequest) (*dto.ListCallHistoryResponse, error) {
	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, NewBusinessError("CALL_HISTORY_VALIDATION_FAILED", "Call history validation failed", err)
	}

	filter := models.CallHistoryFilter{StartDate: startDate, EndDate: endDate}
	if req.Outcome != "" {
		outcome := models.CallOutcome(req.Outcome)
		if !outcome.Valid() {
			return nil, NewBusinessError("CALL_HISTORY_VALIDATION_FAILED", "Call history validation failed", ErrInvalidOutcome)
		}
		filter.Outcome = &outcome
	}
	if name := strings.TrimSpace(req.LeadName); name != "" {
		filter.LeadName = &name
	}
	if req.LeadID != 0 {
		filter.LeadID = &req.LeadID
	}

	_, limit, offset := normalizePage(req.Page, req.Limit, utils.DefaultLeadPageLimit)
	rows, err := cf.historyRepo.ByFilter(ctx, userID, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CALL_HISTORY_FAILED", "Failed to list call history", err)
	}

	items := make([]dto.CallHistoryDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, ToCallHistoryDTO(*r))
	}
	return &dto.ListCallHistoryResponse{Calls: items}, nil
}

// InitiateCall opens an in-progress record with zero duration before the device dials
func (cf *CallHistoryFlowImpl) InitiateCall(ctx context.Context, userID uint, req *dto.InitiateCallRequest) (*dto.CallHistoryDTO, error) {
	if !dialablePhone.MatchString(req.PhoneNumber) {
		return nil, NewBusinessError("INVALID_PHONE_NUMBER", "Invalid phone number format", ErrInvalidPhone)
	}

	lead, err := cf.checkRefs(ctx, userID, req.LeadID, req.ScheduledCallID)
	if err != nil {
		return nil, NewBusinessError("INITIATE_CALL_FAILED", "Could not initiate call tracking", err)
	}

	record := &models.CallHistory{
		UserID:          userID,
		LeadID:          lead.ID,
		ScheduledCallID: req.ScheduledCallID,
		ActualStartTime: cf.now(),
		DurationSeconds: 0,
		Outcome:         models.CallOutcomeInProgress,
		DeviceInfo:      req.DeviceInfo,
	}
	if err := cf.historyRepo.Save(ctx, record); err != nil {
		return nil, NewBusinessError("INITIATE_CALL_FAILED", "Could not initiate call tracking", err)
	}
	record.Lead = lead

	out := ToCallHistoryDTO(*record)
	return &out, nil
}

// UpdateCallStatus resolves a call record owned by userID
func (cf *CallHistoryFlowImpl) UpdateCallStatus(ctx context.Context, userID, id uint, req *dto.UpdateCallStatusRequest) (*dto.CallHistoryDTO, error) {
	patch := models.CallStatusPatch{
		Notes:            trimPtr(req.Notes),
		DurationSeconds:  req.DurationSeconds,
		FollowUpRequired: req.FollowUpRequired,
		FollowUpDate:     req.FollowUpDate,
	}
	if req.Outcome != nil {
		// a resolved record never goes back to in-progress
		outcome := models.CallOutcome(*req.Outcome)
		if !outcome.Terminal() {
			return nil, NewBusinessError("CALL_HISTORY_VALIDATION_FAILED", "Call history validation failed", ErrInvalidOutcome)
		}
		patch.Outcome = &outcome
	}

	record, err := cf.historyRepo.UpdateStatus(ctx, userID, id, patch)
	if err != nil {
		return nil, NewBusinessError("UPDATE_CALL_FAILED", "Could not update call", err)
	}
	if record == nil {
		return nil, NewBusinessError("CALL_NOT_FOUND", "Call not found or not authorized", ErrCallNotFound)
	}

	out := ToCallHistoryDTO(*record)
	return &out, nil
}
