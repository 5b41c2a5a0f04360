package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/ring-crm/app/callsession"
	"github.com/amirphl/ring-crm/models"
	"github.com/spf13/cobra"
)

// newDialer is swapped in tests
var newDialer = func(commandLine string) callsession.Dialer {
	return callsession.NewExecDialer(commandLine)
}

var errQuit = errors.New("quit")

const sessionHelp = `Commands:
  o <outcome>             select the outcome of the current call
  s [outcome] [notes...]  save notes and record the call
  e                       end call (selected outcome, or no-answer)
  k                       skip this lead
  f                       dial the next lead now
  t                       show status
  q                       stop the session
Outcomes: completed successful no-answer wrong-number busy rescheduled cancelled skipped`

func newAutocallCommand(opts *rootOptions) *cobra.Command {
	var (
		dialCommand string
		settle      time.Duration
		leadID      uint
	)

	cmd := &cobra.Command{
		Use:   "autocall",
		Short: "Call through every lead that still needs a call",
		Long: `Run an auto-calling session. Leads never called, or last left at no-answer, busy or
skipped, are dialed one after another through the dialer command.

Example dialer commands:
  adb shell am start -a android.intent.action.CALL -d tel:{phone}
  termux-telephony-call {phone}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireLogin(); err != nil {
				return err
			}
			if dialCommand == "" {
				dialCommand = opts.cfg.Dialer.Command
			}
			deviceInfo := opts.cfg.Dialer.DeviceInfo
			if deviceInfo == "" {
				deviceInfo = "crmctl/" + runtime.GOOS
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := opts.client()
			out := cmd.OutOrStdout()
			done := make(chan struct{}, 1)
			ctrl := callsession.NewController(callsession.Config{
				Store:       client,
				Dialer:      newDialer(dialCommand),
				SettleDelay: settle,
				DeviceInfo:  deviceInfo,
				OnEvent:     eventPrinter(out, done),
			})

			if leadID > 0 {
				lead, err := client.GetLead(ctx, leadID)
				if err != nil {
					return err
				}
				if err := ctrl.StartSingle(ctx, *lead); err != nil {
					return err
				}
			} else {
				leads, err := client.AllLeads(ctx)
				if err != nil {
					return err
				}
				if err := ctrl.Start(ctx, leads); err != nil {
					return err
				}
				printStep(out, "%d leads to call", ctrl.Status().Total)
			}

			fmt.Fprintln(out, sessionHelp)
			return runSession(ctx, ctrl, cmd.InOrStdin(), out, done)
		},
	}

	cmd.Flags().StringVar(&dialCommand, "dialer", "", "dialer command, {phone} is replaced by the number (default from config)")
	cmd.Flags().DurationVar(&settle, "settle", callsession.DefaultSettleDelay, "pause between calls")
	cmd.Flags().UintVar(&leadID, "lead", 0, "call a single lead by ID")
	return cmd
}

// eventPrinter reports session events and signals done when the session ends by itself
func eventPrinter(out io.Writer, done chan<- struct{}) func(callsession.Event) {
	var mu sync.Mutex
	return func(e callsession.Event) {
		mu.Lock()
		defer mu.Unlock()

		switch e.Kind {
		case callsession.EventDialing:
			printStep(out, "%s", e.Message)
		case callsession.EventDialFailed:
			printWarning(out, "%s: %s", e.LeadName, e.Message)
		case callsession.EventRecorded:
			printSuccess(out, "%s: %s (%s)", e.LeadName, e.Outcome, formatSeconds(e.Seconds))
		case callsession.EventBatchComplete:
			printSuccess(out, "%s", e.Message)
		case callsession.EventStopped:
			printWarning(out, "%s", e.Message)
		}

		if e.Kind == callsession.EventBatchComplete || e.Kind == callsession.EventStopped {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	}
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func finished(ctrl *callsession.Controller) bool {
	st := ctrl.Status().State
	return st == callsession.Idle || st == callsession.Stopped
}

// runSession feeds operator commands from in to the controller until the session ends
func runSession(ctx context.Context, ctrl *callsession.Controller, in io.Reader, out io.Writer, done <-chan struct{}) error {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-readCtx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	ended := false
	for {
		// commands apply to the next call, so wait out the settle delay
		for ctrl.Status().State == callsession.Advancing {
			select {
			case <-ticker.C:
			case <-done:
				ended = true
			case <-ctx.Done():
				ctrl.Stop()
				return nil
			}
		}
		if finished(ctrl) {
			// the batch-complete event is delivered after the state change
			if ctrl.Status().State == callsession.Stopped && !ended {
				select {
				case <-done:
				case <-time.After(time.Second):
				}
			}
			return nil
		}

		select {
		case <-ctx.Done():
			ctrl.Stop()
			return nil
		case <-done:
			ended = true
		case line, ok := <-lines:
			if !ok {
				ctrl.Stop()
				return nil
			}
			if err := handleLine(ctx, ctrl, line, out); err != nil {
				if errors.Is(err, errQuit) {
					ctrl.Stop()
					return nil
				}
				printError(out, "%v", err)
			}
		}
	}
}

func handleLine(ctx context.Context, ctrl *callsession.Controller, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	rest := fields[1:]

	switch fields[0] {
	case "o":
		if len(rest) != 1 {
			return fmt.Errorf("usage: o <outcome>")
		}
		return ctrl.SelectOutcome(rest[0])
	case "s":
		req := callsession.SaveRequest{}
		if len(rest) > 0 && models.CallOutcome(rest[0]).Terminal() {
			req.Outcome = rest[0]
			rest = rest[1:]
		}
		req.Notes = strings.Join(rest, " ")
		return ctrl.SaveNotes(ctx, req)
	case "e":
		return ctrl.EndCall(ctx)
	case "k":
		return ctrl.Skip(ctx)
	case "f":
		return ctrl.Fire(ctx)
	case "t":
		printSessionStatus(out, ctrl.Status())
		return nil
	case "q":
		return errQuit
	case "?", "h", "help":
		fmt.Fprintln(out, sessionHelp)
		return nil
	default:
		return fmt.Errorf("unknown command %q, type ? for help", fields[0])
	}
}

func printSessionStatus(out io.Writer, st callsession.Status) {
	printStatus(out, "State", "%s", st.State)
	if st.Auto {
		printStatus(out, "Progress", "%d of %d", st.Cursor+1, st.Total)
	}
	if st.Lead != nil {
		printStatus(out, "Lead", "%s (%s)", st.Lead.Name, st.Lead.Phone)
		printStatus(out, "Duration", "%s", formatSeconds(st.Seconds))
	}
	if st.Outcome != "" {
		printStatus(out, "Outcome", "%s", st.Outcome)
	}
}

var _ callsession.Store = (*apiClient)(nil)
