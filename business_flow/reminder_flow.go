package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/app/services"
	"github.com/amirphl/ring-crm/models"
	"github.com/amirphl/ring-crm/repository"
	"github.com/amirphl/ring-crm/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

const remindersCheckedMessage = "Reminders checked and processed"

var remindersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminders_total",
		Help: "Reminder dispatch attempts partitioned by result",
	},
	[]string{"status"},
)

// ReminderFlow scans upcoming scheduled calls and sends their email reminders
type ReminderFlow interface {
	// CheckReminders scans the calls of one user.
	CheckReminders(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.CheckRemindersResponse, error)
	// CheckAllReminders scans every user that has a due call and returns the per-user results.
	CheckAllReminders(ctx context.Context) (map[uint]*dto.CheckRemindersResponse, error)
}

// ReminderFlowImpl implements the reminder scanner
type ReminderFlowImpl struct {
	callRepo    repository.ScheduledCallRepository
	auditRepo   repository.AuditLogRepository
	dispatcher  services.ReminderDispatcher
	window      time.Duration
	concurrency int
	now         func() time.Time
	logger      *log.Logger
}

// NewReminderFlow creates a new reminder flow instance
func NewReminderFlow(
	callRepo repository.ScheduledCallRepository,
	auditRepo repository.AuditLogRepository,
	dispatcher services.ReminderDispatcher,
	window time.Duration,
	concurrency int,
	logger *log.Logger,
) ReminderFlow {
	if window <= 0 {
		window = utils.ReminderScanWindow
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReminderFlowImpl{
		callRepo:    callRepo,
		auditRepo:   auditRepo,
		dispatcher:  dispatcher,
		window:      window,
		concurrency: concurrency,
		now:         utils.UTCNow,
		logger:      logger,
	}
}

// CheckReminders finds calls of userID in (now, now+window) without a sent reminder. Calls whose
// reminder time has come and that want email get one dispatch each; one failed dispatch never
// stops the others.
func (rf *ReminderFlowImpl) CheckReminders(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.CheckRemindersResponse, error) {
	now := rf.now()

	calls, err := rf.callRepo.ListReminderCandidates(ctx, userID, now, now.Add(rf.window))
	if err != nil {
		return nil, NewBusinessError("REMINDER_SCAN_FAILED", "Failed to check reminders", fmt.Errorf("%w: %w", ErrReminderScanFailed, err))
	}

	upcoming := make([]dto.UpcomingCallDTO, 0, len(calls))
	due := make([]*models.ScheduledCall, 0, len(calls))
	minutes := make(map[uint]int, len(calls))
	for _, call := range calls {
		m := utils.FloorMinutes(call.ScheduledTime.Sub(now))
		minutes[call.ID] = m
		upcoming = append(upcoming, dto.UpcomingCallDTO{
			ScheduledCallDTO: ToScheduledCallDTO(*call),
			MinutesUntilCall: m,
		})
		if m <= call.EffectiveReminderMinutes() && call.WantsEmailReminder() {
			due = append(due, call)
		}
	}

	results := make([]dto.ReminderResultDTO, len(due))
	var g errgroup.Group
	g.SetLimit(rf.concurrency)
	for i, call := range due {
		g.Go(func() error {
			results[i] = rf.remind(ctx, userID, call, minutes[call.ID], metadata)
			return nil
		})
	}
	_ = g.Wait()

	return &dto.CheckRemindersResponse{
		UpcomingCalls:   upcoming,
		ReminderResults: results,
		Message:         remindersCheckedMessage,
	}, nil
}

// remind dispatches one reminder and then flips reminder_sent with a compare-and-set
func (rf *ReminderFlowImpl) remind(ctx context.Context, userID uint, call *models.ScheduledCall, minutesUntil int, metadata *ClientMetadata) dto.ReminderResultDTO {
	result := dto.ReminderResultDTO{CallID: call.ID}

	err := rf.dispatcher.Dispatch(ctx, call.ID, services.ReminderEmail{
		To:              call.EmailAddress,
		LeadName:        call.LeadName(),
		ScheduledTime:   call.ScheduledTime,
		DurationSeconds: call.DurationSeconds,
		Notes:           call.Notes,
	})
	switch {
	case errors.Is(err, services.ErrReminderInFlight):
		result.Status = dto.ReminderStatusSkipped
		result.MinutesUntilCall = &minutesUntil
		remindersTotal.WithLabelValues(dto.ReminderStatusSkipped).Inc()
		return result
	case err != nil:
		rf.logger.Printf("reminder: dispatch for call %d failed: %v", call.ID, err)
		result.Status = dto.ReminderStatusError
		result.Error = err.Error()
		remindersTotal.WithLabelValues(dto.ReminderStatusError).Inc()
		logAudit(ctx, rf.auditRepo, auditEntry{
			UserID:      &userID,
			Action:      models.AuditActionReminderFailed,
			Description: fmt.Sprintf("Reminder for call %d failed", call.ID),
			Success:     false,
			ErrMsg:      utils.ToPtr(err.Error()),
		}, metadata)
		return result
	}

	won, err := rf.callRepo.MarkReminderSent(ctx, userID, call.ID)
	if err != nil {
		// The email went out; the dispatcher key keeps it from going out again.
		rf.logger.Printf("reminder: call %d reminded but flag update failed: %v", call.ID, err)
		result.Status = dto.ReminderStatusError
		result.Error = err.Error()
		remindersTotal.WithLabelValues(dto.ReminderStatusError).Inc()
		return result
	}
	if !won {
		result.Status = dto.ReminderStatusSkipped
		result.MinutesUntilCall = &minutesUntil
		remindersTotal.WithLabelValues(dto.ReminderStatusSkipped).Inc()
		return result
	}

	result.Status = dto.ReminderStatusSuccess
	result.MinutesUntilCall = &minutesUntil
	remindersTotal.WithLabelValues(dto.ReminderStatusSuccess).Inc()
	logAudit(ctx, rf.auditRepo, auditEntry{
		UserID:      &userID,
		Action:      models.AuditActionReminderSent,
		Description: fmt.Sprintf("Reminder for call %d sent to %s", call.ID, call.EmailAddress),
		Success:     true,
	}, metadata)
	return result
}

// CheckAllReminders is the scheduler entry point. A failing user scan is logged and the
// sweep moves on; only failing to list users is returned.
func (rf *ReminderFlowImpl) CheckAllReminders(ctx context.Context) (map[uint]*dto.CheckRemindersResponse, error) {
	now := rf.now()

	userIDs, err := rf.callRepo.UsersWithDueReminders(ctx, now, now.Add(rf.window))
	if err != nil {
		return nil, NewBusinessError("REMINDER_SCAN_FAILED", "Failed to check reminders", fmt.Errorf("%w: %w", ErrReminderScanFailed, err))
	}

	out := make(map[uint]*dto.CheckRemindersResponse, len(userIDs))
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		resp, err := rf.CheckReminders(ctx, userID, nil)
		if err != nil {
			rf.logger.Printf("reminder: scan for user %d failed: %v", userID, err)
			continue
		}
		out[userID] = resp
	}
	return out, nil
}
