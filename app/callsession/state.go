package callsession

import (
	"errors"
	"fmt"
)

// State is a position of the call session machine
type State int

const (
	Idle State = iota
	Selecting
	Dialing
	AwaitingOutcome
	Recording
	Advancing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Dialing:
		return "dialing"
	case AwaitingOutcome:
		return "awaiting-outcome"
	case Recording:
		return "recording"
	case Advancing:
		return "advancing"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNothingToCall     = errors.New("no leads available for calling")
	ErrDialerUnavailable = errors.New("calling is not supported on this device")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrOutcomeRequired   = errors.New("call outcome is required")
	ErrInvalidOutcome    = errors.New("invalid call outcome")
	ErrSessionActive     = errors.New("a call session is already running")
	ErrNoActiveCall      = errors.New("no call in progress")
)

// RecordingError reports a failed write while recording an outcome. The call stays current.
type RecordingError struct {
	Op  string
	Err error
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("recording failed during %s: %v", e.Op, e.Err)
}

func (e *RecordingError) Unwrap() error { return e.Err }

// EventKind classifies what a session reports to its observer
type EventKind string

const (
	EventDialing       EventKind = "dialing"
	EventDialFailed    EventKind = "dial-failed"
	EventRecorded      EventKind = "recorded"
	EventBatchComplete EventKind = "batch-complete"
	EventStopped       EventKind = "stopped"
)

// Event is delivered to the observer after the controller releases its lock, so observers may
// call back into the controller.
type Event struct {
	Kind     EventKind
	LeadID   uint
	LeadName string
	Outcome  string
	Seconds  int
	Message  string
	Err      error
}
