package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// Stream is a running long-lived command whose combined stdout and stderr
// is read one line at a time.
//
// In pipe mode stderr is also captured on its own for error reporting.
// In PTY mode the child sees a terminal and both streams arrive merged.
type Stream struct {
	argv []string
	cmd  *exec.Cmd
	r    *bufio.Reader
	tty  *os.File

	stderr bytes.Buffer

	done    chan struct{}
	waitErr error
	once    sync.Once
}

// Stream starts name with args and returns a Stream for reading its output.
// The caller must read until io.EOF and then call Wait.
func (e *Exec) Stream(ctx context.Context, name string, args ...string) (*Stream, error) {
	argv := append([]string{name}, args...)
	cmd := exec.CommandContext(ctx, name, args...)

	s := &Stream{
		argv: argv,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	if e.PTY {
		f, err := pty.Start(cmd)
		if err != nil {
			return nil, classify(argv, err).AsError()
		}
		s.tty = f
		s.r = bufio.NewReader(f)
		go func() {
			s.waitErr = cmd.Wait()
			close(s.done)
		}()
	} else {
		pr, pw := io.Pipe()
		cmd.Stdout = pw
		cmd.Stderr = io.MultiWriter(pw, &s.stderr)
		if err := cmd.Start(); err != nil {
			_ = pw.Close()
			return nil, classify(argv, err).AsError()
		}
		s.r = bufio.NewReader(pr)
		go func() {
			s.waitErr = cmd.Wait()
			_ = pw.Close()
			close(s.done)
		}()
	}

	log.Debug("stream started", "argv", argv, "pid", cmd.Process.Pid, "pty", e.PTY)
	return s, nil
}

// Argv returns the command line of the stream.
func (s *Stream) Argv() []string {
	return s.argv
}

// ReadLine returns the next line without its line terminator. It returns
// io.EOF once the process has closed its output.
func (s *Stream) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if line != "" {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == nil {
		return "", nil
	}
	// A PTY master reports EIO once the child side is gone.
	if errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
		return "", io.EOF
	}
	return "", err
}

// Wait blocks until the process exits and returns its Result. Output is
// left empty because the caller consumed it through ReadLine.
func (s *Stream) Wait() Result {
	<-s.done
	s.once.Do(func() {
		if s.tty != nil {
			_ = s.tty.Close()
		}
	})

	res := classify(s.argv, s.waitErr)
	res.Stderr = strings.TrimSpace(s.stderr.String())
	if res.Status == StatusOK {
		res.Status = StatusEmpty
	}

	log.Debug("stream finished", "argv", s.argv, "status", res.Status.String(), "exit", res.ExitCode)
	return res
}
