package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/reconcile"
	"github.com/jbweber/vmtui/internal/vm"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatVMList formats VMs as a YAML sequence.
func (f *YAMLFormatter) FormatVMList(vms []vm.VMInfo) (string, error) {
	if len(vms) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(vms, "VMs")
}

// FormatDevices formats devices as a YAML sequence.
func (f *YAMLFormatter) FormatDevices(entries []reconcile.Entry) (string, error) {
	if len(entries) == 0 {
		return "[]\n", nil
	}
	return marshalYAML(entries, "devices")
}

// FormatSummary formats a domain summary as a YAML mapping.
func (f *YAMLFormatter) FormatSummary(s *libvirt.Summary) (string, error) {
	return marshalYAML(s, "summary")
}

func marshalYAML(v any, what string) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to YAML: %w", what, err)
	}
	return string(data), nil
}
