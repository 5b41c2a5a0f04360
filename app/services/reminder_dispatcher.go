package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrReminderInFlight is returned when another scanner already claimed the reminder for a call
var ErrReminderInFlight = errors.New("reminder already dispatched or in flight")

// ReminderDispatcher sends at most one reminder per scheduled call. The call's idempotency key
// is claimed before sending, released when sending fails and kept (until its TTL) on success.
type ReminderDispatcher interface {
	Dispatch(ctx context.Context, callID uint, reminder ReminderEmail) error
}

type reminderDispatcherImpl struct {
	notifier NotificationService
	keys     KeyStore
	ttl      time.Duration
	timeout  time.Duration
}

// NewReminderDispatcher builds a dispatcher. ttl must outlive the scan window so a call
// that was reminded cannot be claimed again while it is still upcoming.
func NewReminderDispatcher(notifier NotificationService, keys KeyStore, ttl, timeout time.Duration) ReminderDispatcher {
	if keys == nil {
		keys = NewMemoryKeyStore(nil)
	}
	return &reminderDispatcherImpl{
		notifier: notifier,
		keys:     keys,
		ttl:      ttl,
		timeout:  timeout,
	}
}

// ReminderIdempotencyKey is the key claimed for a scheduled call's reminder
func ReminderIdempotencyKey(callID uint) string {
	return fmt.Sprintf("reminder:%d", callID)
}

func (d *reminderDispatcherImpl) Dispatch(ctx context.Context, callID uint, reminder ReminderEmail) error {
	key := ReminderIdempotencyKey(callID)

	claimed, err := d.keys.SetNX(ctx, key, uuid.NewString(), d.ttl)
	if err != nil {
		return fmt.Errorf("claim %s: %w", key, err)
	}
	if !claimed {
		return ErrReminderInFlight
	}

	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.notifier.SendEmailReminder(sendCtx, reminder); err != nil {
		if relErr := d.keys.Delete(context.WithoutCancel(ctx), key); relErr != nil {
			return errors.Join(err, fmt.Errorf("release %s: %w", key, relErr))
		}
		return err
	}

	return nil
}
