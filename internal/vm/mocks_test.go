package vm

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jbweber/vmtui/internal/fetch"
	"github.com/jbweber/vmtui/internal/status"
	"github.com/jbweber/vmtui/internal/stream"
)

// mockBackend is a mock implementation of the domainBackend interface for testing.
type mockBackend struct {
	mu sync.Mutex

	// Configurable behavior
	domainStateFunc func(name string) (status.DomainState, error)
	domainXMLFunc   func(name string) (string, error)
	listDomainsFunc func() ([]string, error)
	requestFunc     func(op, name string) error

	// Call tracking, one "op name" entry per request
	calls []string
}

// newMockBackend creates a new mock backend with default behavior.
func newMockBackend() *mockBackend {
	m := &mockBackend{}

	// Default: every domain is shut off
	m.domainStateFunc = func(name string) (status.DomainState, error) {
		return status.ShutOff, nil
	}

	// Default: a two vCPU, 2 GiB domain with one disk
	m.domainXMLFunc = func(name string) (string, error) {
		return fmt.Sprintf(`<domain type="kvm">
  <name>%s</name>
  <memory unit="KiB">2097152</memory>
  <vcpu>2</vcpu>
  <devices>
    <disk type="file" device="disk"><source file="/vms/%s.qcow2"/><target dev="vda"/></disk>
  </devices>
</domain>`, name, name), nil
	}

	// Default: no domains defined
	m.listDomainsFunc = func() ([]string, error) {
		return nil, nil
	}

	// Default: requests succeed
	m.requestFunc = func(op, name string) error {
		return nil
	}

	return m
}

func (m *mockBackend) record(op, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op+" "+name)
	return m.requestFunc(op, name)
}

func (m *mockBackend) DomainState(_ context.Context, name string) (status.DomainState, error) {
	return m.domainStateFunc(name)
}

func (m *mockBackend) DomainXML(_ context.Context, name string) (string, error) {
	return m.domainXMLFunc(name)
}

func (m *mockBackend) ListDomains(_ context.Context) ([]string, error) {
	return m.listDomainsFunc()
}

func (m *mockBackend) Start(_ context.Context, name string) error {
	return m.record("start", name)
}

func (m *mockBackend) Suspend(_ context.Context, name string) error {
	return m.record("suspend", name)
}

func (m *mockBackend) Resume(_ context.Context, name string) error {
	return m.record("resume", name)
}

func (m *mockBackend) ManagedSave(_ context.Context, name string) error {
	return m.record("managedsave", name)
}

func (m *mockBackend) Destroy(_ context.Context, name string) error {
	return m.record("destroy", name)
}

func (m *mockBackend) Undefine(_ context.Context, name string) error {
	return m.record("undefine", name)
}

// mockStreams is a mock streamRunner that replays canned output.
type mockStreams struct {
	// lines are sent to the sink for every run
	lines []string
	// failTitle makes the run with this title fail
	failTitle string

	runs [][]string
}

func (m *mockStreams) Run(_ context.Context, title string, argv []string, sink stream.Sink) *stream.Session {
	m.runs = append(m.runs, argv)
	for _, line := range m.lines {
		if sink != nil {
			_ = sink.Append(line)
		}
	}

	sess := &stream.Session{ID: fmt.Sprintf("run-%d", len(m.runs)), Title: title, Argv: argv, Status: stream.Success}
	if title == m.failTitle {
		sess.Status = stream.Failure
		sess.ExitCode = 1
		sess.ErrorText = "canned failure"
	}
	return sess
}

// mockFetcher writes a fixed body to the destination.
type mockFetcher struct {
	body []byte
	err  error

	// partial is written to dest before err is returned.
	partial []byte

	urls []string
}

func (m *mockFetcher) Fetch(_ context.Context, url, dest string, report fetch.ProgressFunc) (fetch.Progress, error) {
	m.urls = append(m.urls, url)
	p := fetch.Progress{Total: int64(len(m.body))}
	if m.err != nil {
		if m.partial != nil {
			if err := os.WriteFile(dest, m.partial, 0o644); err != nil {
				return p, err
			}
			p.Written = int64(len(m.partial))
		}
		return p, m.err
	}
	if err := os.WriteFile(dest, m.body, 0o644); err != nil {
		return p, err
	}
	p.Written = int64(len(m.body))
	if report != nil {
		report(p)
	}
	return p, nil
}
