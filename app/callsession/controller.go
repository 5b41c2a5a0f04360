// Package callsession drives a calling session over a list of leads: dial, capture the outcome,
// record it and move on.
package callsession

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/amirphl/ring-crm/models"
)

const (
	DefaultSettleDelay  = 2 * time.Second
	DefaultTickInterval = time.Second
)

// Config wires a Controller. Store and Dialer are required.
type Config struct {
	Store        Store
	Dialer       Dialer
	Clock        Clock
	SettleDelay  time.Duration
	TickInterval time.Duration
	DeviceInfo   string
	OnEvent      func(Event)
}

// SaveRequest is what the operator enters for the current call
type SaveRequest struct {
	Outcome          string
	Notes            string
	LeadStatus       string
	FollowUpRequired bool
	FollowUpDate     *time.Time
}

// Status is a snapshot of the controller
type Status struct {
	State   State
	Auto    bool
	Cursor  int
	Total   int
	Lead    *dto.LeadDTO
	Seconds int
	Outcome string
}

type activeCall struct {
	lead      dto.LeadDTO
	phone     string
	record    *dto.CallHistoryDTO
	startedAt time.Time
	seconds   int
	outcome   string
}

// Controller is the call session state machine. All methods are safe for concurrent use; timer
// callbacks enter through the same lock as operator events.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	state  State
	auto   bool
	leads  []dto.LeadDTO
	cursor int
	ctx    context.Context
	call   *activeCall

	tick   Timer
	settle Timer
	// gen invalidates callbacks of timers that could not be stopped in time
	gen uint64

	pending []Event
}

func NewController(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.OnEvent == nil {
		cfg.OnEvent = func(Event) {}
	}
	return &Controller{cfg: cfg, state: Idle, ctx: context.Background()}
}

// WorkingSet keeps the leads worth calling in a new session: never called or last left at
// no-answer, busy or skipped, and carrying a phone number. Order is preserved.
func WorkingSet(leads []dto.LeadDTO) []dto.LeadDTO {
	out := make([]dto.LeadDTO, 0, len(leads))
	for _, l := range leads {
		if l.Phone == "" || !models.CallOutcome(l.LastCallOutcome).Retryable() {
			continue
		}
		out = append(out, l)
	}
	return out
}

// unlock releases the lock and then delivers queued events
func (c *Controller) unlock() {
	events := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, e := range events {
		c.cfg.OnEvent(e)
	}
}

func (c *Controller) emit(e Event) {
	c.pending = append(c.pending, e)
}

// Status returns a snapshot of the session
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{State: c.state, Auto: c.auto, Cursor: c.cursor, Total: len(c.leads)}
	if c.call != nil {
		lead := c.call.lead
		s.Lead = &lead
		s.Seconds = c.call.seconds
		s.Outcome = c.call.outcome
	}
	return s
}

func (c *Controller) selectable() bool {
	return c.state == Idle || c.state == Stopped
}

// Start begins an auto-calling session over the working set of leads
func (c *Controller) Start(ctx context.Context, leads []dto.LeadDTO) error {
	c.mu.Lock()
	defer c.unlock()

	if !c.selectable() {
		return ErrSessionActive
	}
	c.state = Selecting
	if !c.cfg.Dialer.CanPlaceCall() {
		c.state = Idle
		return ErrDialerUnavailable
	}
	working := WorkingSet(leads)
	if len(working) == 0 {
		c.state = Idle
		return ErrNothingToCall
	}

	c.begin(ctx, working, true)
	return c.dial(ctx)
}

// StartSingle calls one lead regardless of its last outcome
func (c *Controller) StartSingle(ctx context.Context, lead dto.LeadDTO) error {
	c.mu.Lock()
	defer c.unlock()

	if !c.selectable() {
		return ErrSessionActive
	}
	c.state = Selecting
	if !c.cfg.Dialer.CanPlaceCall() {
		c.state = Idle
		return ErrDialerUnavailable
	}
	if _, err := DialablePhone(lead.Phone); err != nil {
		c.state = Idle
		return err
	}

	c.begin(ctx, []dto.LeadDTO{lead}, false)
	return c.dial(ctx)
}

func (c *Controller) begin(ctx context.Context, leads []dto.LeadDTO, auto bool) {
	c.ctx = ctx
	c.leads = leads
	c.cursor = 0
	c.auto = auto
	c.call = nil
}

// dial places the call for the lead under the cursor
func (c *Controller) dial(ctx context.Context) error {
	lead := c.leads[c.cursor]
	c.state = Dialing

	phone, err := DialablePhone(lead.Phone)
	var record *dto.CallHistoryDTO
	if err == nil {
		record, err = c.cfg.Store.InitiateCall(ctx, &dto.InitiateCallRequest{
			LeadID:      lead.ID,
			PhoneNumber: phone,
			DeviceInfo:  c.cfg.DeviceInfo,
		})
	}
	if err == nil {
		if err = c.cfg.Dialer.PlaceCall(ctx, phone); err != nil {
			c.abandon(ctx, record)
		}
	}
	if err != nil {
		return c.dialFailed(lead, err)
	}

	c.call = &activeCall{lead: lead, phone: phone, record: record, startedAt: c.cfg.Clock.Now()}
	c.state = AwaitingOutcome
	c.scheduleTick()
	c.emit(Event{Kind: EventDialing, LeadID: lead.ID, LeadName: lead.Name, Message: "Calling " + lead.Name})
	return nil
}

// abandon resolves a tracking record whose call never reached the device
func (c *Controller) abandon(ctx context.Context, record *dto.CallHistoryDTO) {
	cancelled := string(models.CallOutcomeCancelled)
	_, _ = c.cfg.Store.UpdateCallStatus(ctx, record.ID, &dto.UpdateCallStatusRequest{Outcome: &cancelled})
}

func (c *Controller) dialFailed(lead dto.LeadDTO, err error) error {
	c.emit(Event{Kind: EventDialFailed, LeadID: lead.ID, LeadName: lead.Name, Err: err, Message: err.Error()})
	if !c.auto {
		c.reset()
		return err
	}
	c.state = Advancing
	c.scheduleSettle()
	return nil
}

func (c *Controller) scheduleTick() {
	gen := c.gen
	c.tick = c.cfg.Clock.AfterFunc(c.cfg.TickInterval, func() {
		c.mu.Lock()
		defer c.unlock()
		if gen != c.gen {
			return
		}
		if c.tickLocked() {
			c.scheduleTick()
		}
	})
}

func (c *Controller) scheduleSettle() {
	gen := c.gen
	c.settle = c.cfg.Clock.AfterFunc(c.cfg.SettleDelay, func() {
		c.mu.Lock()
		defer c.unlock()
		if gen != c.gen {
			return
		}
		c.settle = nil
		if err := c.ctx.Err(); err != nil {
			c.stopLocked(err)
			return
		}
		_ = c.fireLocked(c.ctx)
	})
}

// clearTimers cancels both timers and orphans any callback already on its way
func (c *Controller) clearTimers() {
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
	if c.settle != nil {
		c.settle.Stop()
		c.settle = nil
	}
	c.gen++
}

func (c *Controller) reset() {
	c.clearTimers()
	c.state = Idle
	c.call = nil
	c.leads = nil
	c.cursor = 0
	c.auto = false
}

// Tick adds one second to the running call
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.unlock()
	c.tickLocked()
}

func (c *Controller) tickLocked() bool {
	if c.call == nil || (c.state != Dialing && c.state != AwaitingOutcome) {
		return false
	}
	c.call.seconds++
	return true
}

// SelectOutcome remembers the outcome chosen for the current call
func (c *Controller) SelectOutcome(outcome string) error {
	c.mu.Lock()
	defer c.unlock()

	if c.state != AwaitingOutcome || c.call == nil {
		return ErrNoActiveCall
	}
	if !models.CallOutcome(outcome).Terminal() {
		return ErrInvalidOutcome
	}
	c.call.outcome = outcome
	return nil
}

// SaveNotes records the current call. The outcome comes from req or an earlier SelectOutcome.
func (c *Controller) SaveNotes(ctx context.Context, req SaveRequest) error {
	c.mu.Lock()
	defer c.unlock()

	if c.state != AwaitingOutcome || c.call == nil {
		return ErrNoActiveCall
	}
	outcome := req.Outcome
	if outcome == "" {
		outcome = c.call.outcome
	}
	if outcome == "" {
		return ErrOutcomeRequired
	}
	if !models.CallOutcome(outcome).Terminal() {
		return ErrInvalidOutcome
	}
	return c.record(ctx, outcome, req)
}

// EndCall records the current call with the selected outcome, or no-answer when none was chosen
func (c *Controller) EndCall(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()

	if c.state != AwaitingOutcome || c.call == nil {
		return ErrNoActiveCall
	}
	outcome := c.call.outcome
	if outcome == "" {
		outcome = string(models.CallOutcomeNoAnswer)
	}
	return c.record(ctx, outcome, SaveRequest{})
}

// Skip records the current call as skipped
func (c *Controller) Skip(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()

	if c.state != AwaitingOutcome || c.call == nil {
		return ErrNoActiveCall
	}
	return c.record(ctx, string(models.CallOutcomeSkipped), SaveRequest{})
}

// record writes the lead and then the call history. On failure the call stays current and
// timing resumes.
func (c *Controller) record(ctx context.Context, outcome string, req SaveRequest) error {
	c.state = Recording
	c.clearTimers()
	call := c.call

	leadReq := &dto.UpdateLeadRequest{LastCallOutcome: &outcome, LastCallNotes: &req.Notes}
	if req.LeadStatus != "" {
		leadReq.Status = &req.LeadStatus
	}
	if _, err := c.cfg.Store.UpdateLead(ctx, call.lead.ID, leadReq); err != nil {
		return c.recordFailed("update lead", err)
	}

	seconds := call.seconds
	followUp := req.FollowUpRequired
	callReq := &dto.UpdateCallStatusRequest{
		Outcome:          &outcome,
		Notes:            &req.Notes,
		DurationSeconds:  &seconds,
		FollowUpRequired: &followUp,
		FollowUpDate:     req.FollowUpDate,
	}
	if _, err := c.cfg.Store.UpdateCallStatus(ctx, call.record.ID, callReq); err != nil {
		return c.recordFailed("update call history", err)
	}

	c.emit(Event{Kind: EventRecorded, LeadID: call.lead.ID, LeadName: call.lead.Name, Outcome: outcome, Seconds: seconds})
	c.call = nil

	if !c.auto {
		c.reset()
		return nil
	}
	c.state = Advancing
	c.scheduleSettle()
	return nil
}

func (c *Controller) recordFailed(op string, err error) error {
	c.state = AwaitingOutcome
	c.scheduleTick()
	return &RecordingError{Op: op, Err: err}
}

// Fire moves past the settle delay immediately. It is a no-op unless the session is advancing.
func (c *Controller) Fire(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()
	return c.fireLocked(ctx)
}

func (c *Controller) fireLocked(ctx context.Context) error {
	if c.state != Advancing {
		return nil
	}
	c.clearTimers()
	c.cursor++
	if c.cursor >= len(c.leads) {
		c.state = Stopped
		c.emit(Event{Kind: EventBatchComplete, Message: "Auto-calling completed for all available leads"})
		return nil
	}
	return c.dial(ctx)
}

// Stop ends the session. Both timers are cancelled before it returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.unlock()
	c.stopLocked(nil)
}

func (c *Controller) stopLocked(cause error) {
	if c.state == Idle {
		return
	}
	msg := "Auto-calling stopped"
	if cause != nil && !errors.Is(cause, context.Canceled) {
		msg = "Auto-calling stopped: " + cause.Error()
	}
	c.emit(Event{Kind: EventStopped, Message: msg, Err: cause})
	c.reset()
}
