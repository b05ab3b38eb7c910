// Package stream supervises long-running external commands whose output
// is shown live, line by line, while the command runs.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jbweber/vmtui/internal/command"
	"github.com/jbweber/vmtui/internal/logging"
	"github.com/jbweber/vmtui/internal/naming"
)

var log = logging.ForComponent(logging.CompStream)

// errorTailLines is how many trailing output lines stand in for error text
// when a failed command wrote nothing to stderr.
const errorTailLines = 10

// Sink receives output lines as they arrive. An Append error is counted
// and logged but never stops the stream.
type Sink interface {
	Append(line string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string) error

// Append calls f(line).
func (f SinkFunc) Append(line string) error { return f(line) }

// WriterSink writes each line to w followed by a newline.
func WriterSink(w io.Writer) Sink {
	return SinkFunc(func(line string) error {
		_, err := fmt.Fprintln(w, line)
		return err
	})
}

// ExitStatus is where a session is in its life.
type ExitStatus int

const (
	Pending ExitStatus = iota
	Success
	Failure
)

func (s ExitStatus) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return "pending"
}

// Session is one supervised command.
type Session struct {
	ID        string
	Title     string
	Argv      []string
	Started   time.Time
	Finished  time.Time
	Status    ExitStatus
	ExitCode  int
	ErrorText string

	// AppendFailures counts lines the sink refused.
	AppendFailures int

	lines []string
}

// Succeeded reports whether the command exited zero.
func (s *Session) Succeeded() bool {
	return s.Status == Success
}

// Result returns the success flag and, on failure, the error text.
func (s *Session) Result() (bool, string) {
	if s.Succeeded() {
		return true, ""
	}
	return false, s.ErrorText
}

// Output returns every line the command produced.
func (s *Session) Output() string {
	return strings.Join(s.lines, "\n")
}

// Lines returns the number of output lines.
func (s *Session) Lines() int {
	return len(s.lines)
}

type streamer interface {
	Stream(ctx context.Context, name string, args ...string) (*command.Stream, error)
}

// Supervisor runs commands through the command gateway.
type Supervisor struct {
	gateway streamer
	diagDir string
}

// NewSupervisor returns a Supervisor. When diagDir is not empty each
// session's full output is saved there on completion.
func NewSupervisor(gateway streamer, diagDir string) *Supervisor {
	return &Supervisor{gateway: gateway, diagDir: diagDir}
}

// Run starts argv, feeds every output line to sink as it arrives and
// returns once the command exits. It blocks for the whole run.
func (s *Supervisor) Run(ctx context.Context, title string, argv []string, sink Sink) *Session {
	sess := &Session{
		ID:      uuid.NewString(),
		Title:   title,
		Argv:    argv,
		Started: time.Now(),
		Status:  Pending,
	}
	logger := log.With("session", sess.ID)
	logger.Info("stream start", "title", title, "argv", argv)

	defer func() {
		sess.Finished = time.Now()
		logger.Info("stream end",
			"status", sess.Status.String(),
			"exit", sess.ExitCode,
			"lines", len(sess.lines),
			"append_failures", sess.AppendFailures,
			"duration", sess.Finished.Sub(sess.Started))
		s.saveDiagnostics(sess)
	}()

	if len(argv) == 0 {
		sess.fail(-1, "no command given")
		return sess
	}

	st, err := s.gateway.Stream(ctx, argv[0], argv[1:]...)
	if err != nil {
		sess.fail(-1, err.Error())
		return sess
	}

	for {
		line, err := st.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("stream read failed", "error", err)
			sess.lines = append(sess.lines, fmt.Sprintf("[read error: %v]", err))
			break
		}

		sess.lines = append(sess.lines, line)
		if sink == nil {
			continue
		}
		if err := sink.Append(line); err != nil {
			sess.AppendFailures++
			logger.Debug("sink append failed", "error", err)
		}
	}

	res := st.Wait()
	if res.Succeeded() {
		sess.Status = Success
		return sess
	}

	text := res.Stderr
	if text == "" {
		text = sess.tail(errorTailLines)
	}
	if text == "" {
		text = res.AsError().Error()
	}
	sess.fail(res.ExitCode, text)
	return sess
}

func (s *Session) fail(code int, text string) {
	s.Status = Failure
	s.ExitCode = code
	s.ErrorText = text
}

func (s *Session) tail(n int) string {
	start := len(s.lines) - n
	if start < 0 {
		start = 0
	}
	return strings.TrimSpace(strings.Join(s.lines[start:], "\n"))
}

func (s *Supervisor) saveDiagnostics(sess *Session) {
	if s.diagDir == "" {
		return
	}
	if err := os.MkdirAll(s.diagDir, 0o755); err != nil {
		log.Warn("failed to create diagnostics dir", "dir", s.diagDir, "error", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n# argv: %s\n# started: %s\n# status: %s (exit %d)\n",
		sess.Title, strings.Join(sess.Argv, " "), sess.Started.Format(time.RFC3339), sess.Status, sess.ExitCode)
	b.WriteString(sess.Output())
	b.WriteString("\n")
	if sess.ErrorText != "" {
		fmt.Fprintf(&b, "# error:\n%s\n", sess.ErrorText)
	}

	path := naming.DiagnosticsFile(s.diagDir, sess.ID)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		log.Warn("failed to save diagnostics", "path", path, "error", err)
	}
}
