package vm

import (
	"context"
	"fmt"

	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/status"
)

// VMInfo represents information about a VM.
type VMInfo struct {
	Name      string             `json:"name" yaml:"name"`
	State     status.DomainState `json:"state" yaml:"state"`
	Target    bool               `json:"target" yaml:"target"`
	VCPUs     uint               `json:"vcpus,omitempty" yaml:"vcpus,omitempty"`
	MemoryMiB uint               `json:"memoryMiB,omitempty" yaml:"memoryMiB,omitempty"`
	Disks     int                `json:"disks,omitempty" yaml:"disks,omitempty"`
}

// List lists all defined VMs with their current state. The target is
// included even when it is not defined.
//
// Returns a slice of VMInfo structs containing details about each VM.
func (s *Session) List(ctx context.Context) ([]VMInfo, error) {
	names, err := s.backend.ListDomains(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	vms := make([]VMInfo, 0, len(names)+1)
	seenTarget := false
	for _, name := range names {
		info := s.info(ctx, name)
		if info.Target {
			seenTarget = true
		}
		vms = append(vms, info)
	}

	if !seenTarget && s.target != "" {
		vms = append(vms, VMInfo{Name: s.target, State: status.NotFound, Target: true})
	}

	return vms, nil
}

// info gets detailed information about a single domain.
func (s *Session) info(ctx context.Context, name string) VMInfo {
	info := VMInfo{Name: name, Target: name == s.target, State: status.Unknown}

	st, err := s.backend.DomainState(ctx, name)
	if err != nil {
		log.Warn("failed to get domain state", "vm", name, "error", err)
	} else {
		info.State = st
	}
	if info.State == status.NotFound {
		return info
	}

	xml, err := s.backend.DomainXML(ctx, name)
	if err != nil {
		log.Warn("failed to get domain definition", "vm", name, "error", err)
		return info
	}
	sum, err := libvirt.Summarize(xml)
	if err != nil {
		log.Warn("failed to parse domain definition", "vm", name, "error", err)
		return info
	}

	info.VCPUs = sum.VCPUs
	info.MemoryMiB = sum.MemoryMiB
	info.Disks = len(sum.Disks)
	return info
}
