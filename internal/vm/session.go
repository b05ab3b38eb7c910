package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/logging"
	"github.com/jbweber/vmtui/internal/status"
)

var log = logging.ForComponent(logging.CompVM)

// ErrNoTarget is returned by intents when no VM name is selected.
var ErrNoTarget = errors.New("no target VM selected")

// Session tracks the VM the console acts on.
type Session struct {
	backend domainBackend
	target  string
}

// NewSession returns a Session targeting name.
func NewSession(backend domainBackend, name string) *Session {
	return &Session{backend: backend, target: name}
}

// Target returns the active VM name.
func (s *Session) Target() string {
	return s.target
}

// SwitchTo changes the target. The name is not checked against the
// hypervisor; a missing domain simply reports NotFound.
func (s *Session) SwitchTo(name string) {
	if name == s.target {
		return
	}
	log.Info("switching target", "from", s.target, "to", name)
	s.target = name
}

// State reads the target's state fresh from the hypervisor. Query errors
// are logged and reported as Unknown.
func (s *Session) State(ctx context.Context) status.DomainState {
	if s.target == "" {
		return status.NotFound
	}
	st, err := s.backend.DomainState(ctx, s.target)
	if err != nil {
		log.Debug("state query failed", "vm", s.target, "error", err)
		return status.Unknown
	}
	return st
}

// Start boots the target, restoring a managed save image if one exists.
func (s *Session) Start(ctx context.Context) error {
	return s.Do(ctx, status.IntentStart)
}

// ForceStop powers the target off immediately.
func (s *Session) ForceStop(ctx context.Context) error {
	return s.Do(ctx, status.IntentForceStop)
}

// Hibernate saves the target's memory to disk and stops it.
func (s *Session) Hibernate(ctx context.Context) error {
	return s.Do(ctx, status.IntentHibernate)
}

// Pause suspends the target's vCPUs.
func (s *Session) Pause(ctx context.Context) error {
	return s.Do(ctx, status.IntentPause)
}

// Resume continues a paused target.
func (s *Session) Resume(ctx context.Context) error {
	return s.Do(ctx, status.IntentResume)
}

// Destroy removes the target's definition.
func (s *Session) Destroy(ctx context.Context) error {
	return s.Do(ctx, status.IntentDestroy)
}

// Do sends the single management call for intent. It returns as soon as
// the call does.
func (s *Session) Do(ctx context.Context, intent status.Intent) error {
	if s.target == "" {
		return ErrNoTarget
	}

	var call func(context.Context, string) error
	switch intent {
	case status.IntentStart:
		call = s.backend.Start
	case status.IntentForceStop:
		call = s.backend.Destroy
	case status.IntentHibernate:
		call = s.backend.ManagedSave
	case status.IntentPause:
		call = s.backend.Suspend
	case status.IntentResume:
		call = s.backend.Resume
	case status.IntentDestroy:
		call = s.backend.Undefine
	default:
		return fmt.Errorf("unsupported intent %q", intent)
	}

	log.Info("lifecycle request", "vm", s.target, "intent", string(intent))
	if err := call(ctx, s.target); err != nil {
		return fmt.Errorf("%s %s: %w", intent, s.target, err)
	}
	return nil
}

// Details summarizes the target's definition.
func (s *Session) Details(ctx context.Context) (*libvirt.Summary, error) {
	if s.target == "" {
		return nil, ErrNoTarget
	}
	xml, err := s.backend.DomainXML(ctx, s.target)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition of %s: %w", s.target, err)
	}
	return libvirt.Summarize(xml)
}

// ListDomains returns the names of all defined domains.
func (s *Session) ListDomains(ctx context.Context) ([]string, error) {
	return s.backend.ListDomains(ctx)
}
