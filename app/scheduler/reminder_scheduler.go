// Package scheduler runs the background jobs of the API
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amirphl/ring-crm/app/dto"
	businessflow "github.com/amirphl/ring-crm/business_flow"
	"github.com/amirphl/ring-crm/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ReminderScheduler periodically scans every user's upcoming calls and dispatches due reminders
type ReminderScheduler struct {
	flow     businessflow.ReminderFlow
	logger   *log.Logger
	interval time.Duration
	timeout  time.Duration

	running atomic.Bool
}

// NewReminderScheduler creates a scheduler ticking every interval. A nil logger logs to stderr.
func NewReminderScheduler(flow businessflow.ReminderFlow, interval time.Duration, logger *log.Logger) *ReminderScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReminderScheduler{
		flow:     flow,
		logger:   logger,
		interval: interval,
		// a scan must finish before the next tick is due
		timeout: interval,
	}
}

// NewFileLogger returns a logger writing to stdout and a size-rotated file. When path is empty
// only stdout is used. The returned closer releases the file.
func NewFileLogger(cfg config.LoggingConfig, path, prefix string) (*log.Logger, io.Closer) {
	flags := log.LstdFlags | log.Lmicroseconds | log.LUTC
	if path == "" {
		return log.New(os.Stdout, prefix, flags), nopCloser{}
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return log.New(io.MultiWriter(os.Stdout, rotator), prefix, flags), rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Start launches the scheduler loop in a background goroutine and returns a stop function.
// The stop function waits for an in-flight scan to return.
func (s *ReminderScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	s.logger.Printf("scheduler: reminder loop started, interval=%s", s.interval)
	return func() {
		cancel()
		wg.Wait()
		s.logger.Printf("scheduler: reminder loop stopped")
	}
}

// runOnce performs one scan. Overlapping scans are skipped.
func (s *ReminderScheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Printf("scheduler: previous reminder scan still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	scanCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	results, err := s.flow.CheckAllReminders(scanCtx)
	if err != nil {
		s.logger.Printf("scheduler: reminder scan failed: %v", err)
		return
	}
	if len(results) == 0 {
		return
	}

	userIDs := make([]uint, 0, len(results))
	for id := range results {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	for _, userID := range userIDs {
		sent, failed := countResults(results[userID])
		if sent == 0 && failed == 0 {
			continue
		}
		s.logger.Printf("scheduler: user=%d reminders sent=%d failed=%d", userID, sent, failed)
	}
	s.logger.Printf("scheduler: reminder scan of %d users took %s", len(results), time.Since(start).Round(time.Millisecond))
}

func countResults(resp *dto.CheckRemindersResponse) (sent, failed int) {
	if resp == nil {
		return 0, 0
	}
	for _, r := range resp.ReminderResults {
		switch r.Status {
		case dto.ReminderStatusSuccess:
			sent++
		case dto.ReminderStatusError:
			failed++
		}
	}
	return sent, failed
}
