package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/reconcile"
	"github.com/jbweber/vmtui/internal/vm"
)

// JSONFormatter formats resources as JSON.
type JSONFormatter struct{}

// FormatVMList formats VMs as a JSON array.
func (f *JSONFormatter) FormatVMList(vms []vm.VMInfo) (string, error) {
	if len(vms) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(vms, "VMs")
}

// FormatDevices formats devices as a JSON array.
func (f *JSONFormatter) FormatDevices(entries []reconcile.Entry) (string, error) {
	if len(entries) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(entries, "devices")
}

// FormatSummary formats a domain summary as a JSON object.
func (f *JSONFormatter) FormatSummary(s *libvirt.Summary) (string, error) {
	return marshalJSON(s, "summary")
}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}
	return string(data) + "\n", nil
}
