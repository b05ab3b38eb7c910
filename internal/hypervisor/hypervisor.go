// Package hypervisor selects and implements the domain management backend.
//
// Two backends satisfy Backend: Virsh, which runs the virsh client through
// the command gateway, and the go-libvirt RPC client from internal/libvirt.
// Callers depend on their own narrower interfaces; Backend exists so Open
// has something to return.
package hypervisor

import (
	"context"
	"fmt"
	"io"

	"github.com/jbweber/vmtui/internal/command"
	"github.com/jbweber/vmtui/internal/libvirt"
	"github.com/jbweber/vmtui/internal/logging"
	"github.com/jbweber/vmtui/internal/status"
)

var log = logging.ForComponent(logging.CompHypervisor)

// Backend names accepted by Open.
const (
	BackendVirsh = "virsh"
	BackendRPC   = "rpc"
)

// Backend is the full set of domain operations the console uses.
type Backend interface {
	DomainState(ctx context.Context, name string) (status.DomainState, error)
	DomainXML(ctx context.Context, name string) (string, error)
	ListDomains(ctx context.Context) ([]string, error)
	Start(ctx context.Context, name string) error
	Suspend(ctx context.Context, name string) error
	Resume(ctx context.Context, name string) error
	ManagedSave(ctx context.Context, name string) error
	Destroy(ctx context.Context, name string) error
	Undefine(ctx context.Context, name string) error
	AttachDevice(ctx context.Context, name string, xml []byte) error
	DetachDevice(ctx context.Context, name string, xml []byte) error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	URI     string
	RPC     libvirt.Options
	TempDir string
}

// Open returns the configured backend and a closer for its resources.
func Open(ctx context.Context, opts Options, runner command.Runner) (Backend, io.Closer, error) {
	switch opts.Backend {
	case "", BackendVirsh:
		log.Debug("using virsh backend", "uri", opts.URI)
		return NewVirsh(runner, opts.URI, opts.TempDir), io.NopCloser(nil), nil
	case BackendRPC:
		c, err := libvirt.ConnectWithContext(ctx, opts.RPC)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("using rpc backend", "socket", opts.RPC.Socket)
		return c, c, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q (valid: %s, %s)", opts.Backend, BackendVirsh, BackendRPC)
}
