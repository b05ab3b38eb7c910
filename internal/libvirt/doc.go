// Package libvirt talks to the local libvirt daemon over its RPC socket.
//
// Client wraps github.com/digitalocean/go-libvirt and offers the domain
// operations the console needs: state, descriptor, lifecycle requests and
// live device attach/detach. It is the "rpc" backend; the default backend
// shells out to virsh instead (see internal/hypervisor).
//
// Summarize turns a domain descriptor into the short summary shown in the
// details dialog and by "vmtui status", using libvirt.org/go/libvirtxml.
//
//	c, err := libvirt.Connect(libvirt.Options{})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	state, err := c.DomainState(ctx, "driver-dev-vm")
//
// Client depends on the rpc interface rather than *libvirt.Libvirt so the
// domain operations can be tested with a mock.
package libvirt
