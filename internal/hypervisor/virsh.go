package hypervisor

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jbweber/vmtui/internal/command"
	"github.com/jbweber/vmtui/internal/naming"
	"github.com/jbweber/vmtui/internal/status"
)

// Virsh manages domains by running the virsh client.
type Virsh struct {
	runner  command.Runner
	uri     string
	tempDir string
}

// NewVirsh returns a Virsh backend. An empty uri lets virsh pick its
// default connection; an empty tempDir means os.TempDir.
func NewVirsh(runner command.Runner, uri, tempDir string) *Virsh {
	return &Virsh{runner: runner, uri: uri, tempDir: tempDir}
}

func (v *Virsh) run(ctx context.Context, args ...string) command.Result {
	if v.uri != "" {
		args = append([]string{"-c", v.uri}, args...)
	}
	return v.runner.Run(ctx, "virsh", args...)
}

// DomainState runs "virsh domstate --reason". A failed query means the
// domain does not exist; a missing virsh is an error.
func (v *Virsh) DomainState(ctx context.Context, name string) (status.DomainState, error) {
	res := v.run(ctx, "domstate", name, "--reason")

	switch res.Status {
	case command.StatusOK:
		return status.ParseDomstate(res.Output), nil
	case command.StatusFailed:
		return status.NotFound, nil
	case command.StatusEmpty:
		return status.Unknown, nil
	}
	return status.Unknown, res.AsError()
}

// DomainXML runs "virsh dumpxml".
func (v *Virsh) DomainXML(ctx context.Context, name string) (string, error) {
	res := v.run(ctx, "dumpxml", name)
	if out, ok := res.Text(); ok {
		return out, nil
	}
	if err := res.AsError(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("virsh dumpxml %s returned no output", name)
}

// ListDomains runs "virsh list --all --name".
func (v *Virsh) ListDomains(ctx context.Context) ([]string, error) {
	res := v.run(ctx, "list", "--all", "--name")
	if err := res.AsError(); err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(res.Output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Start runs "virsh start".
func (v *Virsh) Start(ctx context.Context, name string) error {
	return v.request(ctx, "start", name)
}

// Suspend runs "virsh suspend".
func (v *Virsh) Suspend(ctx context.Context, name string) error {
	return v.request(ctx, "suspend", name)
}

// Resume runs "virsh resume".
func (v *Virsh) Resume(ctx context.Context, name string) error {
	return v.request(ctx, "resume", name)
}

// ManagedSave runs "virsh managedsave".
func (v *Virsh) ManagedSave(ctx context.Context, name string) error {
	return v.request(ctx, "managedsave", name)
}

// Destroy runs "virsh destroy".
func (v *Virsh) Destroy(ctx context.Context, name string) error {
	return v.request(ctx, "destroy", name)
}

// Undefine runs "virsh undefine --nvram --managed-save".
func (v *Virsh) Undefine(ctx context.Context, name string) error {
	return v.request(ctx, "undefine", name, "--nvram", "--managed-save")
}

// AttachDevice writes xml to a temporary file and runs
// "virsh attach-device <vm> <file> --live".
func (v *Virsh) AttachDevice(ctx context.Context, name string, xml []byte) error {
	return v.device(ctx, "attach-device", name, xml)
}

// DetachDevice writes xml to a temporary file and runs
// "virsh detach-device <vm> <file> --live".
func (v *Virsh) DetachDevice(ctx context.Context, name string, xml []byte) error {
	return v.device(ctx, "detach-device", name, xml)
}

func (v *Virsh) request(ctx context.Context, op, name string, extra ...string) error {
	args := append([]string{op, name}, extra...)
	if err := v.run(ctx, args...).AsError(); err != nil {
		return fmt.Errorf("failed to %s '%s': %w", op, name, err)
	}
	log.Info("domain request", "op", op, "vm", name)
	return nil
}

// device hands the payload to virsh through a file that lives only for
// the duration of the call.
func (v *Virsh) device(ctx context.Context, op, name string, xml []byte) error {
	f, err := os.CreateTemp(v.tempDir, naming.PayloadPattern)
	if err != nil {
		return fmt.Errorf("failed to create device payload file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			log.Warn("failed to remove device payload", "path", path, "error", err)
		}
	}()

	if _, err := f.Write(xml); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write device payload: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write device payload: %w", err)
	}

	return v.request(ctx, op, name, path, "--live")
}
