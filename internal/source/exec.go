package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrCommandTimeout indicates an external command exceeded its deadline.
var ErrCommandTimeout = errors.New("command timed out")

// Runner executes external commands. Connectors depend on this interface so
// tests can substitute canned output instead of shelling out.
type Runner interface {
	// Run executes name with args and returns its stdout.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands through os/exec with a per-invocation timeout.
type ExecRunner struct {
	// Timeout bounds each command. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Run implements Runner. Stderr is folded into the returned error so
// AppleScript failures surface their actual message.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %s after %s", ErrCommandTimeout, name, r.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("running %s: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("running %s: %w", name, err)
	}

	return stdout.String(), nil
}
