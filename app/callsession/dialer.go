package callsession

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Dialer hands a number to the device that places the call. Connect and hang-up are not
// observable.
type Dialer interface {
	CanPlaceCall() bool
	PlaceCall(ctx context.Context, phone string) error
}

// PhonePlaceholder is replaced by the number in ExecDialer arguments
const PhonePlaceholder = "{phone}"

// ExecDialer places calls by running an external command, for example
// "adb shell am start -a android.intent.action.CALL -d tel:{phone}".
type ExecDialer struct {
	Command string
	Args    []string
}

// NewExecDialer splits a command line on whitespace. Arguments containing PhonePlaceholder
// receive the number; without a placeholder the number is appended.
func NewExecDialer(commandLine string) *ExecDialer {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return &ExecDialer{}
	}
	return &ExecDialer{Command: fields[0], Args: fields[1:]}
}

func (d *ExecDialer) CanPlaceCall() bool {
	if d.Command == "" {
		return false
	}
	_, err := exec.LookPath(d.Command)
	return err == nil
}

func (d *ExecDialer) args(phone string) []string {
	args := make([]string, 0, len(d.Args)+1)
	substituted := false
	for _, a := range d.Args {
		if strings.Contains(a, PhonePlaceholder) {
			a = strings.ReplaceAll(a, PhonePlaceholder, phone)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, phone)
	}
	return args
}

func (d *ExecDialer) PlaceCall(ctx context.Context, phone string) error {
	if d.Command == "" {
		return ErrDialerUnavailable
	}
	out, err := exec.CommandContext(ctx, d.Command, d.args(phone)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("dial %s: %w: %s", phone, err, strings.TrimSpace(string(out)))
	}
	return nil
}
