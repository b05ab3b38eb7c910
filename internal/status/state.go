// Package status models the observed state of a domain and the transitions
// an operator can request.
//
// States are always observed, never owned: they are parsed fresh from the
// management interface on every poll and nothing here caches them.
package status

import (
	"strings"

	"github.com/digitalocean/go-libvirt"
)

// DomainState is the observed state of a domain.
type DomainState int

const (
	Unknown DomainState = iota
	Running
	ShutOff
	Paused
	Saved
	NotFound
)

func (s DomainState) String() string {
	switch s {
	case Running:
		return "Running"
	case ShutOff:
		return "ShutOff"
	case Paused:
		return "Paused"
	case Saved:
		return "Saved"
	case NotFound:
		return "NotFound"
	}
	return "Unknown"
}

// Label is the header form of the state.
func (s DomainState) Label() string {
	switch s {
	case ShutOff:
		return "SHUT OFF"
	case NotFound:
		return "NOT FOUND"
	}
	return strings.ToUpper(s.String())
}

// MarshalText makes the state render by name in yaml and json output.
func (s DomainState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseDomstate maps the output of "virsh domstate --reason" to a state.
// Examples: "running (booted)", "shut off (saved)", "paused (user)".
func ParseDomstate(text string) DomainState {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Unknown
	}

	state, reason, _ := strings.Cut(text, "(")
	state = strings.TrimSpace(state)
	reason = strings.TrimSuffix(strings.TrimSpace(reason), ")")

	switch state {
	case "running", "idle", "blocked", "no state":
		return Running
	case "paused", "pmsuspended":
		return Paused
	case "shut off":
		if strings.HasPrefix(reason, "saved") {
			return Saved
		}
		return ShutOff
	}
	return Unknown
}

// FromLibvirt maps a libvirt state/reason pair to a state. managedSave
// reports whether the domain has a managed save image.
func FromLibvirt(state, reason int32, managedSave bool) DomainState {
	switch libvirt.DomainState(state) {
	case libvirt.DomainRunning, libvirt.DomainBlocked:
		return Running
	case libvirt.DomainPaused, libvirt.DomainPmsuspended:
		return Paused
	case libvirt.DomainShutoff:
		if libvirt.DomainShutoffReason(reason) == libvirt.DomainShutoffSaved || managedSave {
			return Saved
		}
		return ShutOff
	}
	return Unknown
}
