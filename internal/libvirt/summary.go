package libvirt

import (
	"fmt"
	"strings"

	"libvirt.org/go/libvirtxml"
)

// Summary is the operator-facing digest of a domain descriptor.
type Summary struct {
	Name        string `json:"name" yaml:"name"`
	UUID        string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	MemoryMiB   uint   `json:"memoryMiB" yaml:"memoryMiB"`
	VCPUs       uint   `json:"vcpus" yaml:"vcpus"`
	Disks       []Disk `json:"disks,omitempty" yaml:"disks,omitempty"`
	Interfaces  []NIC  `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	HostDevices int    `json:"hostDevices" yaml:"hostDevices"`
}

// Disk is one disk or cdrom of a domain.
type Disk struct {
	Target string `json:"target" yaml:"target"`
	Device string `json:"device" yaml:"device"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// NIC is one network interface of a domain.
type NIC struct {
	MAC    string `json:"mac,omitempty" yaml:"mac,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Summarize parses a domain descriptor.
func Summarize(descriptor string) (*Summary, error) {
	var dom libvirtxml.Domain
	if err := dom.Unmarshal(descriptor); err != nil {
		return nil, fmt.Errorf("failed to parse domain XML: %w", err)
	}

	s := &Summary{
		Name: dom.Name,
		UUID: dom.UUID,
	}
	if dom.Memory != nil {
		s.MemoryMiB = toMiB(dom.Memory.Value, dom.Memory.Unit)
	}
	if dom.VCPU != nil {
		s.VCPUs = dom.VCPU.Value
	}

	if dom.Devices == nil {
		return s, nil
	}

	for _, d := range dom.Devices.Disks {
		disk := Disk{Device: d.Device}
		if d.Target != nil {
			disk.Target = d.Target.Dev
		}
		if d.Source != nil && d.Source.File != nil {
			disk.Source = d.Source.File.File
		}
		s.Disks = append(s.Disks, disk)
	}

	for _, iface := range dom.Devices.Interfaces {
		nic := NIC{}
		if iface.MAC != nil {
			nic.MAC = iface.MAC.Address
		}
		if iface.Source != nil {
			switch {
			case iface.Source.Network != nil:
				nic.Source = "network:" + iface.Source.Network.Network
			case iface.Source.Bridge != nil:
				nic.Source = "bridge:" + iface.Source.Bridge.Bridge
			}
		}
		s.Interfaces = append(s.Interfaces, nic)
	}

	s.HostDevices = len(dom.Devices.Hostdevs)
	return s, nil
}

// Lines renders the summary for a message box.
func (s *Summary) Lines() []string {
	lines := []string{
		fmt.Sprintf("Name:    %s", s.Name),
		fmt.Sprintf("Memory:  %d MiB", s.MemoryMiB),
		fmt.Sprintf("vCPUs:   %d", s.VCPUs),
	}
	for _, d := range s.Disks {
		src := d.Source
		if src == "" {
			src = "-"
		}
		lines = append(lines, fmt.Sprintf("Disk:    %s (%s) %s", d.Target, d.Device, src))
	}
	for _, n := range s.Interfaces {
		lines = append(lines, fmt.Sprintf("NIC:     %s %s", n.MAC, n.Source))
	}
	lines = append(lines, fmt.Sprintf("USB/PCI: %d host device(s)", s.HostDevices))
	return lines
}

// toMiB converts a libvirt memory value. An empty unit means KiB.
func toMiB(value uint, unit string) uint {
	switch strings.ToLower(unit) {
	case "", "k", "kib":
		return value / 1024
	case "kb":
		return uint(uint64(value) * 1000 / (1024 * 1024))
	case "m", "mib":
		return value
	case "mb":
		return uint(uint64(value) * 1000 * 1000 / (1024 * 1024))
	case "g", "gib":
		return value * 1024
	case "gb":
		return uint(uint64(value) * 1000 * 1000 * 1000 / (1024 * 1024))
	case "b", "bytes":
		return value / (1024 * 1024)
	}
	return value
}
