package stream

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/vmtui/internal/command"
	"github.com/jbweber/vmtui/internal/naming"
)

type recordingSink struct {
	lines []string
	err   error
}

func (r *recordingSink) Append(line string) error {
	r.lines = append(r.lines, line)
	return r.err
}

func newSupervisor(t *testing.T, diagDir string) *Supervisor {
	t.Helper()
	return NewSupervisor(command.NewExec(5*time.Second, false), diagDir)
}

func TestRunSuccess(t *testing.T) {
	sink := &recordingSink{}
	sup := newSupervisor(t, "")

	sess := sup.Run(context.Background(), "counting", []string{"sh", "-c", "echo one; echo two; echo three"}, sink)

	ok, text := sess.Result()
	assert.True(t, ok)
	assert.Empty(t, text)
	assert.Equal(t, Success, sess.Status)
	assert.Equal(t, []string{"one", "two", "three"}, sink.lines)
	assert.Equal(t, "one\ntwo\nthree", sess.Output())
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.Finished.Before(sess.Started))
}

func TestRunFailureUsesStderr(t *testing.T) {
	sink := &recordingSink{}
	sup := newSupervisor(t, "")

	sess := sup.Run(context.Background(), "failing", []string{"sh", "-c", "echo working; echo 'disk full' >&2; exit 4"}, sink)

	ok, text := sess.Result()
	assert.False(t, ok)
	assert.Equal(t, "disk full", text)
	assert.Equal(t, 4, sess.ExitCode)
	assert.Contains(t, sink.lines, "working")
	assert.Contains(t, sink.lines, "disk full")
}

func TestRunFailureFallsBackToOutputTail(t *testing.T) {
	sup := newSupervisor(t, "")

	sess := sup.Run(context.Background(), "quiet failure", []string{"sh", "-c", "echo last words; exit 1"}, nil)

	ok, text := sess.Result()
	assert.False(t, ok)
	assert.Equal(t, "last words", text)
}

func TestRunFailureWithoutOutput(t *testing.T) {
	sup := newSupervisor(t, "")

	sess := sup.Run(context.Background(), "silent failure", []string{"false"}, nil)

	ok, text := sess.Result()
	assert.False(t, ok)
	assert.NotEmpty(t, text)
	assert.Equal(t, 1, sess.ExitCode)
}

func TestRunMissingExecutable(t *testing.T) {
	sup := newSupervisor(t, "")

	sess := sup.Run(context.Background(), "missing", []string{"vmtui-no-such-command"}, nil)

	ok, text := sess.Result()
	assert.False(t, ok)
	assert.Contains(t, text, "not found")
	assert.Equal(t, -1, sess.ExitCode)
}

func TestRunEmptyArgv(t *testing.T) {
	sess := newSupervisor(t, "").Run(context.Background(), "nothing", nil, nil)

	ok, text := sess.Result()
	assert.False(t, ok)
	assert.NotEmpty(t, text)
}

func TestRunToleratesFailingSink(t *testing.T) {
	sink := &recordingSink{err: errors.New("display gone")}
	sup := newSupervisor(t, "")

	sess := sup.Run(context.Background(), "counting", []string{"sh", "-c", "echo a; echo b"}, sink)

	assert.True(t, sess.Succeeded())
	assert.Equal(t, 2, sess.AppendFailures)
	assert.Equal(t, []string{"a", "b"}, sink.lines)
}

func TestRunSavesDiagnostics(t *testing.T) {
	dir := t.TempDir()
	sup := newSupervisor(t, dir)

	sess := sup.Run(context.Background(), "failing", []string{"sh", "-c", "echo progress; echo broken >&2; exit 2"}, nil)
	require.False(t, sess.Succeeded())

	data, err := os.ReadFile(naming.DiagnosticsFile(dir, sess.ID))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# failing")
	assert.Contains(t, content, "progress")
	assert.Contains(t, content, "exit 2")
	assert.True(t, strings.HasSuffix(content, "broken\n"))
}

func TestWriterSink(t *testing.T) {
	var b strings.Builder
	sink := WriterSink(&b)

	require.NoError(t, sink.Append("first"))
	require.NoError(t, sink.Append("second"))
	assert.Equal(t, "first\nsecond\n", b.String())
}

func TestExitStatusString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failure", Failure.String())
}
