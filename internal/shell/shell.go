// Package shell runs external commands for scheduled tasks and the git/gh
// wrappers.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a command outlives its timeout
var ErrTimeout = errors.New("command timed out")

// waitDelay bounds how long Wait blocks on pipes held open by orphaned
// grandchildren after the process is killed
const waitDelay = 2 * time.Second

// Result is the captured outcome of a finished command
type Result struct {
	Command  string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandError reports a command that ran but exited non-zero
type CommandError struct {
	Result Result
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Result.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s: exit %d: %s", e.Result.Command, strings.Join(e.Result.Args, " "), e.Result.ExitCode, msg)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner executes a program in a directory
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner runs real processes
type ExecRunner struct{}

// Run executes name with args. A non-zero exit yields a *CommandError
// alongside the captured Result.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Command: name,
		Args:    args,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() == nil {
			return res, &CommandError{Result: res, Err: err}
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", name, ctxErr)
	}
	return res, fmt.Errorf("exec %s: %w", name, err)
}

// RunScript runs a shell command line through sh -c, killing it after
// timeout. Only this timeout yields ErrTimeout; a deadline on ctx itself is
// reported as the context error.
func RunScript(ctx context.Context, r Runner, dir, script string, timeout time.Duration) (Result, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	defer cancel()

	res, err := r.Run(ctx, dir, "sh", "-c", script)
	if err != nil && errors.Is(context.Cause(ctx), ErrTimeout) {
		return res, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return res, err
}
