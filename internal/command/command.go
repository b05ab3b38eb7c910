package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/jbweber/vmtui/internal/logging"
)

var log = logging.ForComponent(logging.CompCommand)

// ErrNotFound is returned when the executable cannot be located.
var ErrNotFound = errors.New("command not found")

// Status classifies how a command finished.
type Status int

const (
	// StatusOK means exit code 0 with non-empty output.
	StatusOK Status = iota
	// StatusEmpty means exit code 0 with no output.
	StatusEmpty
	// StatusFailed means the command ran and exited non-zero.
	StatusFailed
	// StatusNotFound means the executable does not exist.
	StatusNotFound
	// StatusError means the command could not be started or was interrupted.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	case StatusNotFound:
		return "not-found"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Result is the outcome of a short-lived command.
type Result struct {
	Argv     []string
	Status   Status
	Output   string // trimmed stdout
	Stderr   string // trimmed stderr
	ExitCode int
	Err      error
}

// Succeeded reports whether the command exited zero.
func (r Result) Succeeded() bool {
	return r.Status == StatusOK || r.Status == StatusEmpty
}

// Text returns the trimmed output and whether there was any.
func (r Result) Text() (string, bool) {
	if r.Status != StatusOK {
		return "", false
	}
	return r.Output, true
}

// AsError converts an unsuccessful result into an error.
func (r Result) AsError() error {
	if r.Succeeded() {
		return nil
	}

	name := strings.Join(r.Argv, " ")
	switch r.Status {
	case StatusNotFound:
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	case StatusFailed:
		if r.Stderr != "" {
			return fmt.Errorf("%s: exit status %d: %s", name, r.ExitCode, r.Stderr)
		}
		return fmt.Errorf("%s: exit status %d", name, r.ExitCode)
	}
	if r.Err != nil {
		return fmt.Errorf("%s: %w", name, r.Err)
	}
	return fmt.Errorf("%s: %s", name, r.Status)
}

// Runner runs short-lived commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

// Exec runs commands on the local host.
type Exec struct {
	// Timeout bounds each short command. Zero means no limit.
	Timeout time.Duration

	// PTY makes Stream attach the child to a pseudo-terminal.
	PTY bool
}

// NewExec returns an Exec with the given short-command timeout.
func NewExec(timeout time.Duration, pty bool) *Exec {
	return &Exec{Timeout: timeout, PTY: pty}
}

// Run executes name with args and waits for it to finish.
func (e *Exec) Run(ctx context.Context, name string, args ...string) Result {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	argv := append([]string{name}, args...)
	start := time.Now()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := classify(argv, cmd.Run())
	res.Output = strings.TrimSpace(stdout.String())
	res.Stderr = strings.TrimSpace(stderr.String())
	if res.Status == StatusOK && res.Output == "" {
		res.Status = StatusEmpty
	}

	log.Debug("run",
		"argv", argv,
		"status", res.Status.String(),
		"exit", res.ExitCode,
		"duration", time.Since(start))

	return res
}

// Command builds an *exec.Cmd for processes that take over the terminal,
// such as a serial console.
func (e *Exec) Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// Launch starts a detached process in its own session and does not wait
// for it. The child is reaped in the background.
func (e *Exec) Launch(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return classify(append([]string{name}, args...), err).AsError()
	}

	log.Info("launched", "argv", cmd.Args, "pid", cmd.Process.Pid)
	go func() { _ = cmd.Wait() }()
	return nil
}

// classify maps the error from running a command to a Result.
func classify(argv []string, err error) Result {
	res := Result{Argv: argv, Status: StatusOK}
	if err == nil {
		return res
	}

	res.Err = err

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.Status = StatusFailed
		res.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		res.Status = StatusNotFound
		res.ExitCode = -1
	default:
		res.Status = StatusError
		res.ExitCode = -1
	}

	return res
}
