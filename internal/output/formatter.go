// Package output provides formatters for displaying VMs and USB devices
// in various formats (table, YAML, JSON).
package output

import (
	"fmt"

	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/reconcile"
	"github.com/jbweber/vmtui/internal/vm"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format for scripting.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Formatter formats console resources for output.
type Formatter interface {
	// FormatVMList formats the VM list with the target marked.
	FormatVMList(vms []vm.VMInfo) (string, error)

	// FormatDevices formats the host USB devices with attachment state.
	FormatDevices(entries []reconcile.Entry) (string, error)

	// FormatSummary formats one domain's definition digest.
	FormatSummary(s *libvirt.Summary) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}
