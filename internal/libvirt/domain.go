package libvirt

import (
	"context"
	"fmt"
	"sort"

	"github.com/digitalocean/go-libvirt"

	"github.com/jbweber/vmtui/internal/status"
)

// lookup resolves name to a domain handle after checking ctx.
func (c *Client) lookup(ctx context.Context, name string) (libvirt.Domain, error) {
	if err := ctx.Err(); err != nil {
		return libvirt.Domain{}, err
	}
	if c.lv == nil {
		return libvirt.Domain{}, fmt.Errorf("client not connected")
	}

	dom, err := c.lv.DomainLookupByName(name)
	if err != nil {
		return libvirt.Domain{}, fmt.Errorf("domain '%s' not found: %w", name, err)
	}
	return dom, nil
}

// DomainState returns the observed state of name. A failed lookup is
// reported as status.NotFound rather than an error.
func (c *Client) DomainState(ctx context.Context, name string) (status.DomainState, error) {
	dom, err := c.lookup(ctx, name)
	if err != nil {
		log.Debug("state lookup failed", "vm", name, "error", err)
		return status.NotFound, nil
	}

	state, reason, err := c.lv.DomainGetState(dom, 0)
	if err != nil {
		return status.Unknown, fmt.Errorf("failed to get state of '%s': %w", name, err)
	}

	managedSave := false
	if libvirt.DomainState(state) == libvirt.DomainShutoff {
		has, err := c.lv.DomainHasManagedSaveImage(dom, 0)
		if err == nil && has == 1 {
			managedSave = true
		}
	}

	return status.FromLibvirt(state, reason, managedSave), nil
}

// DomainXML returns the live descriptor of name.
func (c *Client) DomainXML(ctx context.Context, name string) (string, error) {
	dom, err := c.lookup(ctx, name)
	if err != nil {
		return "", err
	}

	xml, err := c.lv.DomainGetXMLDesc(dom, 0)
	if err != nil {
		return "", fmt.Errorf("failed to get descriptor of '%s': %w", name, err)
	}
	return xml, nil
}

// ListDomains returns the names of all defined domains, sorted.
func (c *Client) ListDomains(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.lv == nil {
		return nil, fmt.Errorf("client not connected")
	}

	doms, _, err := c.lv.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	names := make([]string, 0, len(doms))
	for _, d := range doms {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Start boots name, restoring a managed save image if there is one.
func (c *Client) Start(ctx context.Context, name string) error {
	return c.do(ctx, name, "start", func(dom libvirt.Domain) error {
		return c.lv.DomainCreate(dom)
	})
}

// Suspend pauses name.
func (c *Client) Suspend(ctx context.Context, name string) error {
	return c.do(ctx, name, "suspend", func(dom libvirt.Domain) error {
		return c.lv.DomainSuspend(dom)
	})
}

// Resume unpauses name.
func (c *Client) Resume(ctx context.Context, name string) error {
	return c.do(ctx, name, "resume", func(dom libvirt.Domain) error {
		return c.lv.DomainResume(dom)
	})
}

// ManagedSave saves name to disk and stops it.
func (c *Client) ManagedSave(ctx context.Context, name string) error {
	return c.do(ctx, name, "managedsave", func(dom libvirt.Domain) error {
		return c.lv.DomainManagedSave(dom, 0)
	})
}

// Destroy force-stops name.
func (c *Client) Destroy(ctx context.Context, name string) error {
	return c.do(ctx, name, "destroy", func(dom libvirt.Domain) error {
		return c.lv.DomainDestroy(dom)
	})
}

// Undefine removes the definition of name along with its NVRAM and any
// managed save image.
func (c *Client) Undefine(ctx context.Context, name string) error {
	return c.do(ctx, name, "undefine", func(dom libvirt.Domain) error {
		return c.lv.DomainUndefineFlags(dom, libvirt.DomainUndefineNvram|libvirt.DomainUndefineManagedSave)
	})
}

// AttachDevice hot-plugs the device described by xml into running name.
func (c *Client) AttachDevice(ctx context.Context, name string, xml []byte) error {
	return c.do(ctx, name, "attach-device", func(dom libvirt.Domain) error {
		return c.lv.DomainAttachDeviceFlags(dom, string(xml), uint32(libvirt.DomainAffectLive))
	})
}

// DetachDevice hot-unplugs the device described by xml from running name.
func (c *Client) DetachDevice(ctx context.Context, name string, xml []byte) error {
	return c.do(ctx, name, "detach-device", func(dom libvirt.Domain) error {
		return c.lv.DomainDetachDeviceFlags(dom, string(xml), uint32(libvirt.DomainAffectLive))
	})
}

func (c *Client) do(ctx context.Context, name, op string, fn func(libvirt.Domain) error) error {
	dom, err := c.lookup(ctx, name)
	if err != nil {
		return err
	}

	if err := fn(dom); err != nil {
		return fmt.Errorf("failed to %s '%s': %w", op, name, err)
	}

	log.Info("domain request", "op", op, "vm", name)
	return nil
}
