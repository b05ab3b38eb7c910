package usb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libvirt.org/go/libvirtxml"
)

const domainWithReceiver = `<domain type='kvm' id='3'>
  <name>driver-dev-vm</name>
  <devices>
    <disk type='file' device='disk'>
      <source file='/var/lib/libvirt/images/driver-dev-vm.qcow2'/>
      <target dev='vda' bus='virtio'/>
    </disk>
    <hostdev mode='subsystem' type='usb' managed='yes'>
      <source>
        <vendor id='0x046d'/>
        <product id='0xc52b'/>
        <address bus='1' device='4'/>
      </source>
      <alias name='hostdev0'/>
      <address type='usb' bus='0' port='1'/>
    </hostdev>
  </devices>
</domain>`

const domainVendorOnly = `<domain type='kvm'>
  <devices>
    <hostdev mode='subsystem' type='usb' managed='yes'>
      <source>
        <vendor id='0x046d'/>
        <product id='0x0001'/>
      </source>
    </hostdev>
  </devices>
</domain>`

const domainByAddress = `<domain type='kvm'>
  <devices>
    <hostdev mode='subsystem' type='usb' managed='yes'>
      <source>
        <address bus='1' device='7'/>
      </source>
    </hostdev>
    <hostdev mode='subsystem' type='pci' managed='yes'>
      <source>
        <address domain='0x0000' bus='0x01' slot='0x00' function='0x0'/>
      </source>
    </hostdev>
  </devices>
</domain>`

var receiver = HostDevice{Bus: 1, Device: 4, VendorID: "046d", ProductID: "c52b", Label: "Logitech USB Receiver"}

func TestParseAttachments(t *testing.T) {
	inventory := ParseInventory(sampleInventory)

	t.Run("both ids present", func(t *testing.T) {
		set := ParseAttachments(domainWithReceiver, inventory)
		assert.True(t, set.Contains(receiver.Signature()))
		assert.Len(t, set, 1)
	})

	t.Run("product id missing", func(t *testing.T) {
		set := ParseAttachments(domainVendorOnly, inventory)
		assert.False(t, set.Contains(receiver.Signature()))
	})

	t.Run("address form resolves through inventory", func(t *testing.T) {
		set := ParseAttachments(domainByAddress, inventory)
		assert.True(t, set.Contains(Signature{VendorID: "0bda", ProductID: "8153"}))
		assert.Len(t, set, 1)
	})

	t.Run("address with no inventory match is dropped", func(t *testing.T) {
		assert.Empty(t, ParseAttachments(domainByAddress, nil))
	})

	t.Run("hex ids in text do not count outside hostdev", func(t *testing.T) {
		doc := `<domain><description>id='0x046d' id='0xc52b'</description><devices/></domain>`
		assert.Empty(t, ParseAttachments(doc, inventory))
	})
}

func TestParseAttachments_FailSoft(t *testing.T) {
	assert.Empty(t, ParseAttachments("", nil))
	assert.Empty(t, ParseAttachments("error: failed to get domain 'nope'", nil))
	assert.Empty(t, ParseAttachments("<domain><devices><hostdev type='usb'>", nil))
}

func TestPayloadRoundTrip(t *testing.T) {
	data, err := Payload(receiver.Signature())
	require.NoError(t, err)

	assert.Contains(t, string(data), `mode="subsystem"`)
	assert.Contains(t, string(data), `type="usb"`)
	assert.Contains(t, string(data), `managed="yes"`)

	var hd libvirtxml.DomainHostdev
	require.NoError(t, hd.Unmarshal(string(data)))
	require.NotNil(t, hd.SubsysUSB)
	require.NotNil(t, hd.SubsysUSB.Source)
	assert.Equal(t, "0x046d", hd.SubsysUSB.Source.Vendor.ID)
	assert.Equal(t, "0xc52b", hd.SubsysUSB.Source.Product.ID)

	sig, ok := sourceSignature(hd.SubsysUSB.Source)
	require.True(t, ok)
	assert.Equal(t, receiver.Signature(), sig)
}

func TestParseAttachments_FullDescriptor(t *testing.T) {
	doc := `<domain type='kvm' id='5'>
  <name>driver-dev-vm</name>
  <uuid>4dea22b3-1d52-d8f3-2516-782e98ab3fa0</uuid>
  <memory unit='KiB'>4194304</memory>
  <vcpu placement='static'>2</vcpu>
  <os>
    <type arch='x86_64' machine='pc-q35-8.2'>hvm</type>
    <boot dev='hd'/>
  </os>
  <features><acpi/><apic/></features>
  <cpu mode='host-passthrough' check='none' migratable='on'/>
  <devices>
    <emulator>/usr/bin/qemu-system-x86_64</emulator>
    <controller type='usb' index='0' model='qemu-xhci' ports='15'/>
    <interface type='network'>
      <source network='default'/>
      <model type='virtio'/>
    </interface>
    <graphics type='spice' autoport='yes'>
      <listen type='address' address='127.0.0.1'/>
    </graphics>
    <hostdev mode='subsystem' type='usb' managed='yes'>
      <source startupPolicy='optional'>
        <vendor id='0x0bda'/>
        <product id='0x8153'/>
      </source>
      <address type='usb' bus='0' port='2'/>
    </hostdev>
  </devices>
</domain>`

	set := ParseAttachments(doc, nil)
	assert.True(t, set.Contains(Signature{VendorID: "0bda", ProductID: "8153"}))
	assert.Len(t, set, 1)
}
