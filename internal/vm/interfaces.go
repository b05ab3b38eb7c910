package vm

import (
	"context"

	"github.com/jbweber/vmtui/internal/fetch"
	"github.com/jbweber/vmtui/internal/status"
	"github.com/jbweber/vmtui/internal/stream"
)

// domainBackend defines the management operations needed for VM lifecycle.
//
// In production, this is satisfied by hypervisor.Virsh or the libvirt RPC
// client. In tests, this is satisfied by mock implementations.
type domainBackend interface {
	DomainState(ctx context.Context, name string) (status.DomainState, error)
	DomainXML(ctx context.Context, name string) (string, error)
	ListDomains(ctx context.Context) ([]string, error)
	Start(ctx context.Context, name string) error
	Suspend(ctx context.Context, name string) error
	Resume(ctx context.Context, name string) error
	ManagedSave(ctx context.Context, name string) error
	Destroy(ctx context.Context, name string) error
	Undefine(ctx context.Context, name string) error
}

// streamRunner runs a command while forwarding its output lines.
//
// In production, this is satisfied by *stream.Supervisor.
type streamRunner interface {
	Run(ctx context.Context, title string, argv []string, sink stream.Sink) *stream.Session
}

// downloader retrieves a remote file with progress.
//
// In production, this is satisfied by *fetch.Fetcher.
type downloader interface {
	Fetch(ctx context.Context, url, dest string, report fetch.ProgressFunc) (fetch.Progress, error)
}
