package host

import (
	"github.com/jbweber/vmtui/internal/vm"
)

// SetupPackages are installed by the host setup workflow.
var SetupPackages = []string{
	"qemu-kvm",
	"libvirt-daemon-system",
	"libvirt-clients",
	"bridge-utils",
	"virtinst",
	"virt-viewer",
	"usbutils",
	"virtiofsd",
}

// SetupPlan installs the virtualization stack with apt and adds userName
// to the libvirt and kvm groups.
func SetupPlan(userName string) vm.Plan {
	steps := []vm.Step{
		{
			Title: "Updating package lists",
			Kind:  vm.StepStream,
			Argv:  []string{"apt-get", "update"},
		},
		{
			Title: "Installing virtualization packages",
			Kind:  vm.StepStream,
			Argv:  append([]string{"apt-get", "install", "-y"}, SetupPackages...),
		},
	}

	if userName != "" && userName != "root" {
		for _, group := range []string{"libvirt", "kvm"} {
			steps = append(steps, vm.Step{
				Title:         "Adding " + userName + " to " + group,
				Kind:          vm.StepStream,
				Argv:          []string{"usermod", "-aG", group, userName},
				IgnoreFailure: true,
			})
		}
	}

	return vm.Plan{
		Name:  "host setup",
		Steps: steps,
		Done:  "Host setup complete.\nReboot for group membership to take effect.",
	}
}
