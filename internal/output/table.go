package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/reconcile"
	"github.com/jbweber/vmtui/internal/vm"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatVMList formats VMs as a table. The target is marked with "*".
func (f *TableFormatter) FormatVMList(vms []vm.VMInfo) (string, error) {
	if len(vms) == 0 {
		return "No VMs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "\tNAME\tSTATE\tVCPUS\tMEMORY\tDISKS")
	}

	for _, v := range vms {
		mark := ""
		if v.Target {
			mark = "*"
		}

		vcpus, memory, disks := "-", "-", "-"
		if v.VCPUs > 0 {
			vcpus = fmt.Sprintf("%d", v.VCPUs)
		}
		if v.MemoryMiB > 0 {
			memory = humanize.IBytes(uint64(v.MemoryMiB) * 1024 * 1024)
		}
		if v.Disks > 0 {
			disks = fmt.Sprintf("%d", v.Disks)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, v.Name, v.State.Label(), vcpus, memory, disks)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatDevices formats the USB device list as a table.
func (f *TableFormatter) FormatDevices(entries []reconcile.Entry) (string, error) {
	if len(entries) == 0 {
		return "No USB devices found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "BUS\tDEVICE\tID\tATTACHED\tDESCRIPTION")
	}

	for _, e := range entries {
		attached := "no"
		if e.Attached {
			attached = "yes"
		}
		label := e.Device.Label
		if label == "" {
			label = "-"
		}
		_, _ = fmt.Fprintf(w, "%03d\t%03d\t%s\t%s\t%s\n",
			e.Device.Bus, e.Device.Device, e.Device.Signature(), attached, label)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatSummary formats a domain summary as aligned lines.
func (f *TableFormatter) FormatSummary(s *libvirt.Summary) (string, error) {
	if s == nil {
		return "", fmt.Errorf("summary cannot be nil")
	}
	return strings.Join(s.Lines(), "\n") + "\n", nil
}
