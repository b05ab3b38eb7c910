package usb

import (
	"strings"

	"libvirt.org/go/libvirtxml"
)

// AttachmentSet is the set of signatures attached to a domain.
type AttachmentSet map[Signature]struct{}

// Add inserts sig into the set.
func (a AttachmentSet) Add(sig Signature) {
	a[sig] = struct{}{}
}

// Contains reports whether sig is attached.
func (a AttachmentSet) Contains(sig Signature) bool {
	_, ok := a[sig]
	return ok
}

// ParseAttachments extracts the USB host devices from a domain descriptor.
//
// Devices given by vendor/product are used as-is. Devices given by host
// bus/device address are resolved through inventory; addresses with no
// matching inventory entry are dropped. Malformed input yields an empty
// set.
func ParseAttachments(descriptor string, inventory []HostDevice) AttachmentSet {
	set := AttachmentSet{}
	if strings.TrimSpace(descriptor) == "" {
		return set
	}

	var dom libvirtxml.Domain
	if err := dom.Unmarshal(descriptor); err != nil {
		log.Debug("descriptor parse failed", "error", err)
		return AttachmentSet{}
	}
	if dom.Devices == nil {
		return set
	}

	for _, hd := range dom.Devices.Hostdevs {
		if hd.SubsysUSB == nil || hd.SubsysUSB.Source == nil {
			continue
		}
		src := hd.SubsysUSB.Source

		if sig, ok := sourceSignature(src); ok {
			set.Add(sig)
			continue
		}

		if src.Address != nil {
			if dev, ok := lookupAddress(inventory, src.Address); ok {
				set.Add(dev.Signature())
			}
		}
	}

	return set
}

func sourceSignature(src *libvirtxml.DomainHostdevSubsysUSBSource) (Signature, bool) {
	if src.Vendor == nil || src.Product == nil {
		return Signature{}, false
	}
	v, okV := normalizeID(src.Vendor.ID)
	p, okP := normalizeID(src.Product.ID)
	if !okV || !okP {
		return Signature{}, false
	}
	return Signature{VendorID: v, ProductID: p}, true
}

func lookupAddress(inventory []HostDevice, addr *libvirtxml.DomainAddressUSB) (HostDevice, bool) {
	if addr.Bus == nil || addr.Device == nil {
		return HostDevice{}, false
	}
	for _, d := range inventory {
		if uint(d.Bus) == *addr.Bus && uint(d.Device) == *addr.Device {
			return d, true
		}
	}
	return HostDevice{}, false
}

// Payload returns the minimal hostdev descriptor that selects sig, for
// live attach or detach.
func Payload(sig Signature) ([]byte, error) {
	hd := libvirtxml.DomainHostdev{
		Managed: "yes",
		SubsysUSB: &libvirtxml.DomainHostdevSubsysUSB{
			Source: &libvirtxml.DomainHostdevSubsysUSBSource{
				Vendor:  &libvirtxml.DomainHostDevProductVendorID{ID: "0x" + sig.VendorID},
				Product: &libvirtxml.DomainHostDevProductVendorID{ID: "0x" + sig.ProductID},
			},
		},
	}

	doc, err := hd.Marshal()
	if err != nil {
		return nil, err
	}
	return []byte(doc + "\n"), nil
}
