// Package naming holds the on-disk naming conventions for vmtui: where a
// VM's directory, overlay disk and seed ISO live, where base images are
// cached, and how transient and diagnostic files are named.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// PayloadPattern is the os.CreateTemp pattern for device attach payloads.
const PayloadPattern = "vmtui-usb-*.xml"

var vmNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9_.-]*[A-Za-z0-9])?$`)

// ValidateVMName checks that name is usable as a domain name and a
// directory name. Switching targets does not call this; only workflows
// that create files do.
func ValidateVMName(name string) error {
	if name == "" {
		return fmt.Errorf("VM name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("VM name %q is longer than 64 characters", name)
	}
	if !vmNamePattern.MatchString(name) {
		return fmt.Errorf("VM name must start and end with alphanumeric characters and contain only alphanumeric, dots, hyphens, or underscores, got %q", name)
	}
	return nil
}

// VMDir returns the directory holding a VM's disk and seed.
// Format: {base}/{vmName}
func VMDir(base, vmName string) string {
	return filepath.Join(base, vmName)
}

// DiskPath returns the path of a VM's overlay disk.
// Format: {base}/{vmName}/{vmName}.qcow2
func DiskPath(base, vmName string) string {
	return filepath.Join(VMDir(base, vmName), vmName+".qcow2")
}

// SeedPath returns the path of a VM's cloud-init seed ISO.
// Format: {base}/{vmName}/{vmName}-seed.iso
func SeedPath(base, vmName string) string {
	return filepath.Join(VMDir(base, vmName), vmName+"-seed.iso")
}

// BaseImagePath returns where a downloaded base image is cached.
func BaseImagePath(imageDir, file string) string {
	return filepath.Join(imageDir, filepath.Base(file))
}

// CompleteMarker returns the file written next to a download once it has
// been fully received.
// Format: {dest}.complete
func CompleteMarker(dest string) string {
	return dest + ".complete"
}

// DiagnosticsFile returns the file a stream session's output is saved to.
// Format: {dir}/stream-{id}.log
func DiagnosticsFile(dir, id string) string {
	return filepath.Join(dir, fmt.Sprintf("stream-%s.log", id))
}
