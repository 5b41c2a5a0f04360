package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReminderFlow struct {
	mu      sync.Mutex
	calls   int
	results map[uint]*dto.CheckRemindersResponse
	err     error
	block   chan struct{}
}

func (f *fakeReminderFlow) CheckReminders(ctx context.Context, userID uint, metadata *businessflow.ClientMetadata) (*dto.CheckRemindersResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeReminderFlow) CheckAllReminders(ctx context.Context) (map[uint]*dto.CheckRemindersResponse, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	return f.results, f.err
}

func (f *fakeReminderFlow) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReminderScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	flow := &fakeReminderFlow{}
	s := NewReminderScheduler(flow, 20*time.Millisecond, log.New(&syncBuffer{}, "", 0))

	stop := s.Start(context.Background())
	require.Eventually(t, func() bool { return flow.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	stop()

	after := flow.Calls()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, flow.Calls(), "no scans after stop")
}

func TestReminderScheduler_LogsPerUserSummary(t *testing.T) {
	out := &syncBuffer{}
	flow := &fakeReminderFlow{results: map[uint]*dto.CheckRemindersResponse{
		7: {ReminderResults: []dto.ReminderResultDTO{
			{CallID: 1, Status: dto.ReminderStatusSuccess},
			{CallID: 2, Status: dto.ReminderStatusError, Error: "smtp down"},
			{CallID: 3, Status: dto.ReminderStatusSkipped},
		}},
		9: {ReminderResults: []dto.ReminderResultDTO{{CallID: 4, Status: dto.ReminderStatusSkipped}}},
	}}
	s := NewReminderScheduler(flow, time.Hour, log.New(out, "", 0))

	s.runOnce(context.Background())

	logs := out.String()
	assert.Contains(t, logs, "user=7 reminders sent=1 failed=1")
	assert.NotContains(t, logs, "user=9")
	assert.Contains(t, logs, "reminder scan of 2 users")
}

func TestReminderScheduler_LogsScanFailure(t *testing.T) {
	out := &syncBuffer{}
	flow := &fakeReminderFlow{err: errors.New("db gone")}
	s := NewReminderScheduler(flow, time.Hour, log.New(out, "", 0))

	s.runOnce(context.Background())

	assert.Contains(t, out.String(), "reminder scan failed: db gone")
}

func TestReminderScheduler_SkipsOverlappingScan(t *testing.T) {
	out := &syncBuffer{}
	flow := &fakeReminderFlow{block: make(chan struct{})}
	s := NewReminderScheduler(flow, time.Hour, log.New(out, "", 0))

	done := make(chan struct{})
	go func() {
		s.runOnce(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return flow.Calls() == 1 }, time.Second, time.Millisecond)

	s.runOnce(context.Background())
	assert.Equal(t, 1, flow.Calls())
	assert.Contains(t, out.String(), "still running")

	close(flow.block)
	<-done
}
