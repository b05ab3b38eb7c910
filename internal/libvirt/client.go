package libvirt

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
)

const (
	// DefaultSocket is the qemu:///system daemon socket.
	DefaultSocket = "/var/run/libvirt/libvirt-sock"

	// DefaultTimeout bounds the socket dial.
	DefaultTimeout = 5 * time.Second
)

// rpc is the subset of *libvirt.Libvirt used by Client.
type rpc interface {
	Disconnect() error
	ConnectGetLibVersion() (uint64, error)
	ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	DomainLookupByName(name string) (libvirt.Domain, error)
	DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error)
	DomainHasManagedSaveImage(dom libvirt.Domain, flags uint32) (int32, error)
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	DomainCreate(dom libvirt.Domain) error
	DomainSuspend(dom libvirt.Domain) error
	DomainResume(dom libvirt.Domain) error
	DomainManagedSave(dom libvirt.Domain, flags uint32) error
	DomainDestroy(dom libvirt.Domain) error
	DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error
	DomainAttachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error
	DomainDetachDeviceFlags(dom libvirt.Domain, xml string, flags uint32) error
}

// Options configures Connect.
type Options struct {
	// Socket defaults to DefaultSocket.
	Socket string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client is a connection to the libvirt daemon.
type Client struct {
	lv rpc
}

// Connect dials the daemon socket. The returned Client must be closed.
func Connect(opts Options) (*Client, error) {
	if opts.Socket == "" {
		opts.Socket = DefaultSocket
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	dialer := dialers.NewLocal(
		dialers.WithSocket(opts.Socket),
		dialers.WithLocalTimeout(opts.Timeout),
	)

	l := libvirt.NewWithDialer(dialer)
	if err := l.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt at %s: %w", opts.Socket, err)
	}

	log.Debug("connected", "socket", opts.Socket)
	return &Client{lv: l}, nil
}

// ConnectWithContext is Connect that gives up when ctx is done.
func ConnectWithContext(ctx context.Context, opts Options) (*Client, error) {
	type result struct {
		client *Client
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		c, err := Connect(opts)
		resultCh <- result{client: c, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
	case res := <-resultCh:
		return res.client, res.err
	}
}

// Close disconnects. It is safe to call more than once.
func (c *Client) Close() error {
	if c.lv == nil {
		return nil
	}

	err := c.lv.Disconnect()
	c.lv = nil
	if err != nil {
		return fmt.Errorf("failed to disconnect from libvirt: %w", err)
	}
	return nil
}

// Ping checks the connection with a cheap call.
func (c *Client) Ping() error {
	_, err := c.Version()
	return err
}

// Version returns the daemon's libvirt version as "major.minor.release".
func (c *Client) Version() (string, error) {
	if c.lv == nil {
		return "", fmt.Errorf("client not connected")
	}

	v, err := c.lv.ConnectGetLibVersion()
	if err != nil {
		return "", fmt.Errorf("libvirt connection is dead: %w", err)
	}

	return fmt.Sprintf("%d.%d.%d", v/1000000, (v/1000)%1000, v%1000), nil
}
