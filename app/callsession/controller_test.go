package callsession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leadUpdate struct {
	LeadID  uint
	Outcome string
	Notes   string
	Status  string
}

type callUpdate struct {
	CallID   uint
	Outcome  string
	Notes    string
	Duration int
}

type fakeStore struct {
	mu             sync.Mutex
	nextID         uint
	initiated      []dto.InitiateCallRequest
	leadUpdates    []leadUpdate
	callUpdates    []callUpdate
	failLeadWrites int
	failCallWrites int
	failInitiate   error
}

func (s *fakeStore) InitiateCall(ctx context.Context, req *dto.InitiateCallRequest) (*dto.CallHistoryDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInitiate != nil {
		return nil, s.failInitiate
	}
	s.nextID++
	s.initiated = append(s.initiated, *req)
	return &dto.CallHistoryDTO{ID: s.nextID, LeadID: req.LeadID, Outcome: "in-progress"}, nil
}

func (s *fakeStore) UpdateCallStatus(ctx context.Context, callID uint, req *dto.UpdateCallStatusRequest) (*dto.CallHistoryDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCallWrites > 0 {
		s.failCallWrites--
		return nil, errors.New("call history write failed")
	}
	u := callUpdate{CallID: callID}
	if req.Outcome != nil {
		u.Outcome = *req.Outcome
	}
	if req.Notes != nil {
		u.Notes = *req.Notes
	}
	if req.DurationSeconds != nil {
		u.Duration = *req.DurationSeconds
	}
	s.callUpdates = append(s.callUpdates, u)
	return &dto.CallHistoryDTO{ID: callID, Outcome: u.Outcome}, nil
}

func (s *fakeStore) UpdateLead(ctx context.Context, leadID uint, req *dto.UpdateLeadRequest) (*dto.LeadDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLeadWrites > 0 {
		s.failLeadWrites--
		return nil, errors.New("lead write failed")
	}
	u := leadUpdate{LeadID: leadID}
	if req.LastCallOutcome != nil {
		u.Outcome = *req.LastCallOutcome
	}
	if req.LastCallNotes != nil {
		u.Notes = *req.LastCallNotes
	}
	if req.Status != nil {
		u.Status = *req.Status
	}
	s.leadUpdates = append(s.leadUpdates, u)
	return &dto.LeadDTO{ID: leadID, LastCallOutcome: u.Outcome}, nil
}

type fakeDialer struct {
	mu        sync.Mutex
	available bool
	err       error
	placed    []string
}

func (d *fakeDialer) CanPlaceCall() bool { return d.available }

func (d *fakeDialer) PlaceCall(ctx context.Context, phone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.placed = append(d.placed, phone)
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

type harness struct {
	ctrl   *Controller
	clock  *ManualClock
	store  *fakeStore
	dialer *fakeDialer
	events *eventLog
}

func newHarness() *harness {
	h := &harness{
		clock:  NewManualClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)),
		store:  &fakeStore{},
		dialer: &fakeDialer{available: true},
		events: &eventLog{},
	}
	h.ctrl = NewController(Config{
		Store:      h.store,
		Dialer:     h.dialer,
		Clock:      h.clock,
		DeviceInfo: "test-device",
		OnEvent:    h.events.record,
	})
	return h
}

func threeLeads() []dto.LeadDTO {
	return []dto.LeadDTO{
		{ID: 1, Name: "A", Phone: "+1 (555) 010-0001"},
		{ID: 2, Name: "B", Phone: "555-010-0002", LastCallOutcome: "no-answer"},
		{ID: 3, Name: "C", Phone: "5550100003", LastCallOutcome: "busy"},
	}
}

func TestWorkingSet(t *testing.T) {
	leads := []dto.LeadDTO{
		{ID: 1, Phone: "5550100001"},
		{ID: 2, Phone: "5550100002", LastCallOutcome: "successful"},
		{ID: 3, Phone: "5550100003", LastCallOutcome: "skipped"},
		{ID: 4, Phone: "", LastCallOutcome: "busy"},
		{ID: 5, Phone: "5550100005", LastCallOutcome: "wrong-number"},
		{ID: 6, Phone: "5550100006", LastCallOutcome: "no-answer"},
	}

	var ids []uint
	for _, l := range WorkingSet(leads) {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []uint{1, 3, 6}, ids)
}

func TestStart_NothingToCall(t *testing.T) {
	h := newHarness()

	err := h.ctrl.Start(context.Background(), []dto.LeadDTO{
		{ID: 1, Phone: "5550100001", LastCallOutcome: "successful"},
		{ID: 2, Phone: ""},
	})

	assert.ErrorIs(t, err, ErrNothingToCall)
	assert.Equal(t, Idle, h.ctrl.Status().State)
	assert.Empty(t, h.dialer.placed)
}

func TestStart_DialerUnavailable(t *testing.T) {
	h := newHarness()
	h.dialer.available = false

	err := h.ctrl.Start(context.Background(), threeLeads())

	assert.ErrorIs(t, err, ErrDialerUnavailable)
	assert.Equal(t, Idle, h.ctrl.Status().State)
	assert.Empty(t, h.store.initiated)
}

func TestAutoSession_RunsThroughWorkingSet(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))
	st := h.ctrl.Status()
	require.Equal(t, AwaitingOutcome, st.State)
	require.Equal(t, uint(1), st.Lead.ID)
	assert.Equal(t, []string{"+15550100001"}, h.dialer.placed)
	assert.Equal(t, "test-device", h.store.initiated[0].DeviceInfo)

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 5, h.ctrl.Status().Seconds)

	require.NoError(t, h.ctrl.SaveNotes(ctx, SaveRequest{Outcome: "successful", Notes: "interested", LeadStatus: "qualified"}))
	assert.Equal(t, Advancing, h.ctrl.Status().State)
	assert.Nil(t, h.ctrl.Status().Lead)
	assert.Equal(t, leadUpdate{LeadID: 1, Outcome: "successful", Notes: "interested", Status: "qualified"}, h.store.leadUpdates[0])
	assert.Equal(t, callUpdate{CallID: 1, Outcome: "successful", Notes: "interested", Duration: 5}, h.store.callUpdates[0])

	// settle delay not yet elapsed
	h.clock.Advance(time.Second)
	assert.Equal(t, Advancing, h.ctrl.Status().State)
	h.clock.Advance(time.Second)
	st = h.ctrl.Status()
	require.Equal(t, AwaitingOutcome, st.State)
	assert.Equal(t, uint(2), st.Lead.ID)
	assert.Equal(t, 1, st.Cursor)
	assert.Zero(t, st.Seconds)

	require.NoError(t, h.ctrl.Skip(ctx))
	assert.Equal(t, "skipped", h.store.leadUpdates[1].Outcome)
	assert.Equal(t, "skipped", h.store.callUpdates[1].Outcome)

	h.clock.Advance(2 * time.Second)
	st = h.ctrl.Status()
	require.Equal(t, uint(3), st.Lead.ID)
	assert.Equal(t, 2, st.Cursor)

	h.clock.Advance(3 * time.Second)
	require.NoError(t, h.ctrl.EndCall(ctx))
	assert.Equal(t, callUpdate{CallID: 3, Outcome: "no-answer", Notes: "", Duration: 3}, h.store.callUpdates[2])

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, Stopped, h.ctrl.Status().State)
	assert.Zero(t, h.clock.Pending())
	assert.Equal(t, []EventKind{
		EventDialing, EventRecorded,
		EventDialing, EventRecorded,
		EventDialing, EventRecorded,
		EventBatchComplete,
	}, h.events.kinds())
}

func TestSaveNotes_OutcomeRequired(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))

	err := h.ctrl.SaveNotes(ctx, SaveRequest{Notes: "no outcome"})

	assert.ErrorIs(t, err, ErrOutcomeRequired)
	assert.Equal(t, AwaitingOutcome, h.ctrl.Status().State)
	assert.Empty(t, h.store.leadUpdates)
}

func TestSelectOutcome(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	assert.ErrorIs(t, h.ctrl.SelectOutcome("busy"), ErrNoActiveCall)

	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))
	assert.ErrorIs(t, h.ctrl.SelectOutcome("in-progress"), ErrInvalidOutcome)
	assert.ErrorIs(t, h.ctrl.SelectOutcome("maybe"), ErrInvalidOutcome)

	require.NoError(t, h.ctrl.SelectOutcome("busy"))
	assert.Equal(t, "busy", h.ctrl.Status().Outcome)

	require.NoError(t, h.ctrl.SaveNotes(ctx, SaveRequest{Notes: "line engaged"}))
	assert.Equal(t, "busy", h.store.callUpdates[0].Outcome)
	assert.Equal(t, "line engaged", h.store.callUpdates[0].Notes)
}

func TestEndCall_UsesSelectedOutcome(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))

	require.NoError(t, h.ctrl.SelectOutcome("wrong-number"))
	require.NoError(t, h.ctrl.EndCall(ctx))

	assert.Equal(t, "wrong-number", h.store.leadUpdates[0].Outcome)
}

func TestRecordingFailure_KeepsCallCurrent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))
	h.clock.Advance(4 * time.Second)

	h.store.failLeadWrites = 1
	err := h.ctrl.SaveNotes(ctx, SaveRequest{Outcome: "successful"})

	var recErr *RecordingError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "update lead", recErr.Op)
	st := h.ctrl.Status()
	assert.Equal(t, AwaitingOutcome, st.State)
	assert.Equal(t, uint(1), st.Lead.ID)
	assert.Equal(t, 0, st.Cursor)

	// timing resumes for the retry
	h.clock.Advance(time.Second)
	assert.Equal(t, 5, h.ctrl.Status().Seconds)

	h.store.failCallWrites = 1
	err = h.ctrl.SaveNotes(ctx, SaveRequest{Outcome: "successful"})
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "update call history", recErr.Op)
	assert.Equal(t, AwaitingOutcome, h.ctrl.Status().State)

	require.NoError(t, h.ctrl.SaveNotes(ctx, SaveRequest{Outcome: "successful"}))
	assert.Equal(t, Advancing, h.ctrl.Status().State)
	require.Len(t, h.store.callUpdates, 1)
	assert.Equal(t, 5, h.store.callUpdates[0].Duration)
}

func TestStop_CancelsTimers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))
	require.Equal(t, 1, h.clock.Pending())

	h.ctrl.Stop()
	assert.Equal(t, Idle, h.ctrl.Status().State)
	assert.Zero(t, h.clock.Pending())

	h.clock.Advance(10 * time.Second)
	assert.Equal(t, Idle, h.ctrl.Status().State)
	assert.Len(t, h.dialer.placed, 1)
	assert.Equal(t, EventStopped, h.events.kinds()[len(h.events.kinds())-1])
}

func TestStop_WhileAdvancing(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))
	require.NoError(t, h.ctrl.Skip(ctx))
	require.Equal(t, Advancing, h.ctrl.Status().State)

	h.ctrl.Stop()
	h.clock.Advance(5 * time.Second)

	assert.Equal(t, Idle, h.ctrl.Status().State)
	assert.Len(t, h.dialer.placed, 1)
}

func TestStart_WhileActive(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))
	assert.ErrorIs(t, h.ctrl.Start(ctx, threeLeads()), ErrSessionActive)
	assert.ErrorIs(t, h.ctrl.StartSingle(ctx, threeLeads()[0]), ErrSessionActive)
}

func TestAutoSession_InvalidPhoneAdvances(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	leads := []dto.LeadDTO{
		{ID: 1, Name: "short", Phone: "12345"},
		{ID: 2, Name: "ok", Phone: "5550100002"},
	}

	require.NoError(t, h.ctrl.Start(ctx, leads))
	assert.Equal(t, Advancing, h.ctrl.Status().State)
	assert.Empty(t, h.store.initiated)

	h.clock.Advance(DefaultSettleDelay)
	st := h.ctrl.Status()
	require.Equal(t, AwaitingOutcome, st.State)
	assert.Equal(t, uint(2), st.Lead.ID)
	assert.Equal(t, []EventKind{EventDialFailed, EventDialing}, h.events.kinds())
}

func TestAutoSession_DialerErrorCancelsTracking(t *testing.T) {
	h := newHarness()
	h.dialer.err = errors.New("device offline")

	require.NoError(t, h.ctrl.Start(context.Background(), threeLeads()[:1]))

	require.Len(t, h.store.callUpdates, 1)
	assert.Equal(t, "cancelled", h.store.callUpdates[0].Outcome)
	assert.Equal(t, Advancing, h.ctrl.Status().State)

	h.clock.Advance(DefaultSettleDelay)
	assert.Equal(t, Stopped, h.ctrl.Status().State)
}

func TestStartSingle(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	err := h.ctrl.StartSingle(ctx, dto.LeadDTO{ID: 9, Phone: "abc"})
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Equal(t, Idle, h.ctrl.Status().State)

	// single calls ignore the last outcome
	lead := dto.LeadDTO{ID: 9, Name: "Z", Phone: "+44 20 7946 0958", LastCallOutcome: "successful"}
	require.NoError(t, h.ctrl.StartSingle(ctx, lead))
	assert.False(t, h.ctrl.Status().Auto)

	h.clock.Advance(2 * time.Second)
	require.NoError(t, h.ctrl.SaveNotes(ctx, SaveRequest{Outcome: "rescheduled", Notes: "call back monday"}))

	assert.Equal(t, Idle, h.ctrl.Status().State)
	assert.Zero(t, h.clock.Pending())
	assert.Equal(t, 2, h.store.callUpdates[0].Duration)
}

func TestSessionContextCancelled_StopsOnAdvance(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))
	require.NoError(t, h.ctrl.Skip(context.Background()))
	cancel()

	h.clock.Advance(DefaultSettleDelay)
	assert.Equal(t, Idle, h.ctrl.Status().State)
	assert.Len(t, h.dialer.placed, 1)
}

func TestFire_SkipsSettleDelay(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.ctrl.Start(ctx, threeLeads()))
	require.NoError(t, h.ctrl.Fire(ctx))
	assert.Equal(t, 0, h.ctrl.Status().Cursor, "fire outside advancing is ignored")

	require.NoError(t, h.ctrl.Skip(ctx))
	require.NoError(t, h.ctrl.Fire(ctx))
	assert.Equal(t, 1, h.ctrl.Status().Cursor)
	// the cancelled settle timer never fires
	h.clock.Advance(DefaultSettleDelay)
	assert.Equal(t, 1, h.ctrl.Status().Cursor)
}
