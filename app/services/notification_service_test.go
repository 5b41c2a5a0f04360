package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmailProvider struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (p *recordingEmailProvider) SendEmail(_ context.Context, email, subject, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, email+"|"+subject)
	return nil
}

func TestReminderEmailBody(t *testing.T) {
	r := ReminderEmail{
		To:              "a@example.com",
		LeadName:        "Asha",
		ScheduledTime:   time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC),
		DurationSeconds: 1800,
		Notes:           "renewal",
	}

	body := r.Body()
	assert.Contains(t, body, "Lead: Asha")
	assert.Contains(t, body, "Fri, 02 May 2025 09:30:00 UTC")
	assert.Contains(t, body, "Duration: 30 minutes")
	assert.Contains(t, body, "Notes: renewal")

	r.Notes = "  "
	assert.NotContains(t, r.Body(), "Notes:")
}

func TestSendEmailReminder_Subject(t *testing.T) {
	provider := &recordingEmailProvider{}
	svc := NewNotificationService(provider)

	err := svc.SendEmailReminder(context.Background(), ReminderEmail{To: " A@Example.com ", LeadName: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com|Upcoming Call Reminder"}, provider.sent)
}

func TestSendEmail_RejectsBadAddress(t *testing.T) {
	svc := NewNotificationService(&recordingEmailProvider{})
	assert.Error(t, svc.SendEmail(context.Background(), "not-an-email", "s", "m"))
	assert.Error(t, NewNotificationService(nil).SendEmail(context.Background(), "a@b.c", "s", "m"))
}

func TestMockEmailProvider_Logs(t *testing.T) {
	var buf bytes.Buffer
	p := NewMockEmailProvider(log.New(&buf, "", 0))
	require.NoError(t, p.SendEmail(context.Background(), "a@b.c", "Subj", "hello"))
	assert.Equal(t, "Email sent to a@b.c [Subj]: hello\n", buf.String())
}

func TestBuildMIMEMessage(t *testing.T) {
	msg := string(buildMIMEMessage("Ring <n@r.io>", "a@b.c", "Hi", "line1\nline2"))
	assert.True(t, strings.HasPrefix(msg, "From: Ring <n@r.io>\r\n"))
	assert.Contains(t, msg, "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2"))
}

func TestReminderDispatcher_ClaimsOnce(t *testing.T) {
	provider := &recordingEmailProvider{}
	keys := NewMemoryKeyStore(nil)
	d := NewReminderDispatcher(NewNotificationService(provider), keys, time.Hour, time.Second)
	ctx := context.Background()
	reminder := ReminderEmail{To: "a@b.c", LeadName: "L"}

	require.NoError(t, d.Dispatch(ctx, 42, reminder))
	assert.ErrorIs(t, d.Dispatch(ctx, 42, reminder), ErrReminderInFlight)
	assert.Len(t, provider.sent, 1)

	_, held, _ := keys.Get(ctx, ReminderIdempotencyKey(42))
	assert.True(t, held)
}

func TestReminderDispatcher_ReleasesOnFailure(t *testing.T) {
	provider := &recordingEmailProvider{err: errors.New("smtp down")}
	keys := NewMemoryKeyStore(nil)
	d := NewReminderDispatcher(NewNotificationService(provider), keys, time.Hour, time.Second)
	ctx := context.Background()

	err := d.Dispatch(ctx, 7, ReminderEmail{To: "a@b.c"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReminderInFlight)

	_, held, _ := keys.Get(ctx, ReminderIdempotencyKey(7))
	assert.False(t, held, "failed dispatch must release the key so the next scan retries")

	provider.err = nil
	assert.NoError(t, d.Dispatch(ctx, 7, ReminderEmail{To: "a@b.c"}))
}

func TestReminderDispatcher_ConcurrentClaims(t *testing.T) {
	provider := &recordingEmailProvider{}
	d := NewReminderDispatcher(NewNotificationService(provider), nil, time.Hour, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), 1, ReminderEmail{To: "a@b.c"})
		}()
	}
	wg.Wait()

	assert.Len(t, provider.sent, 1)
}
