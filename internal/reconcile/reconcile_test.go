package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/vmtui/internal/command"
	"github.com/jbweber/vmtui/internal/usb"
)

const lsusbOutput = `Bus 001 Device 004: ID 046d:c52b Logitech USB Receiver
Bus 001 Device 007: ID 0bda:8153 Realtek RTL8153 Gigabit Ethernet Adapter
Bus 002 Device 001: ID 1d6b:0003 Linux Foundation 3.0 root hub`

type fakeRunner struct {
	result command.Result
	calls  int
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) command.Result {
	f.calls++
	return f.result
}

// fakeDomain keeps an attachment set and renders it as a descriptor.
type fakeDomain struct {
	running  bool
	missing  bool
	attached map[usb.Signature]bool
	requests []string
}

func newFakeDomain() *fakeDomain {
	return &fakeDomain{running: true, attached: map[usb.Signature]bool{}}
}

func (f *fakeDomain) DomainXML(ctx context.Context, name string) (string, error) {
	if f.missing {
		return "", errors.New("error: failed to get domain")
	}
	var b strings.Builder
	b.WriteString("<domain><name>" + name + "</name><devices>")
	for sig := range f.attached {
		fmt.Fprintf(&b, "<hostdev mode='subsystem' type='usb' managed='yes'><source><vendor id='0x%s'/><product id='0x%s'/></source></hostdev>", sig.VendorID, sig.ProductID)
	}
	b.WriteString("</devices></domain>")
	return b.String(), nil
}

func (f *fakeDomain) apply(op, name string, xml []byte, attach bool) error {
	f.requests = append(f.requests, op+":"+name)
	if !f.running {
		return errors.New("Requested operation is not valid: domain is not running")
	}
	var hd libvirtxml.DomainHostdev
	if err := hd.Unmarshal(string(xml)); err != nil {
		return err
	}
	src := hd.SubsysUSB.Source
	sig := usb.Signature{
		VendorID:  strings.TrimPrefix(src.Vendor.ID, "0x"),
		ProductID: strings.TrimPrefix(src.Product.ID, "0x"),
	}
	if attach {
		f.attached[sig] = true
	} else {
		delete(f.attached, sig)
	}
	return nil
}

func (f *fakeDomain) AttachDevice(ctx context.Context, name string, xml []byte) error {
	return f.apply("attach", name, xml, true)
}

func (f *fakeDomain) DetachDevice(ctx context.Context, name string, xml []byte) error {
	return f.apply("detach", name, xml, false)
}

type fixedTarget string

func (t fixedTarget) Target() string { return string(t) }

func newTestEngine(dom *fakeDomain) (*Engine, *[]time.Duration) {
	runner := &fakeRunner{result: command.Result{Status: command.StatusOK, Output: lsusbOutput}}
	e := NewEngine(runner, dom, fixedTarget("dev"), 0)
	var slept []time.Duration
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	return e, &slept
}

var (
	receiver = usb.HostDevice{Bus: 1, Device: 4, VendorID: "046d", ProductID: "c52b", Label: "Logitech USB Receiver"}
	ethernet = usb.HostDevice{Bus: 1, Device: 7, VendorID: "0bda", ProductID: "8153", Label: "Realtek"}
	hub      = usb.HostDevice{Bus: 2, Device: 1, VendorID: "1d6b", ProductID: "0003", Label: "root hub"}
)

func TestReconcile(t *testing.T) {
	set := usb.AttachmentSet{}
	set.Add(receiver.Signature())

	entries := Reconcile([]usb.HostDevice{receiver, ethernet, hub}, set)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Attached)
	assert.False(t, entries[1].Attached)
	assert.False(t, entries[2].Attached)
}

func TestReconcile_StableUnderReordering(t *testing.T) {
	set := usb.AttachmentSet{}
	set.Add(ethernet.Signature())
	set.Add(hub.Signature())

	orders := [][]usb.HostDevice{
		{receiver, ethernet, hub},
		{hub, receiver, ethernet},
		{ethernet, hub, receiver},
	}

	for _, devices := range orders {
		labels := map[usb.Signature]bool{}
		for _, e := range Reconcile(devices, set) {
			labels[e.Device.Signature()] = e.Attached
		}
		assert.Equal(t, map[usb.Signature]bool{
			receiver.Signature(): false,
			ethernet.Signature(): true,
			hub.Signature():      true,
		}, labels)
	}
}

func TestReconcile_Empty(t *testing.T) {
	assert.Empty(t, Reconcile(nil, usb.AttachmentSet{}))
}

func TestScan(t *testing.T) {
	dom := newFakeDomain()
	dom.attached[ethernet.Signature()] = true
	e, _ := newTestEngine(dom)

	entries := e.Scan(context.Background())
	require.Len(t, entries, 3)
	assert.False(t, entries[0].Attached)
	assert.True(t, entries[1].Attached)
}

func TestScan_MissingDomain(t *testing.T) {
	dom := newFakeDomain()
	dom.missing = true
	e, _ := newTestEngine(dom)

	entries := e.Scan(context.Background())
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.False(t, entry.Attached)
	}
}

func TestScan_NoEnumerator(t *testing.T) {
	dom := newFakeDomain()
	e := NewEngine(&fakeRunner{result: command.Result{Status: command.StatusNotFound}}, dom, fixedTarget("dev"), 0)
	assert.Empty(t, e.Scan(context.Background()))
}

func TestToggleTwiceRestoresState(t *testing.T) {
	dom := newFakeDomain()
	e, slept := newTestEngine(dom)
	ctx := context.Background()

	first := e.Scan(ctx)[0]
	require.False(t, first.Attached)

	action, err := e.Toggle(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, Attach, action)

	second := e.Scan(ctx)[0]
	require.True(t, second.Attached)

	action, err = e.Toggle(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, Detach, action)

	assert.False(t, e.Scan(ctx)[0].Attached)
	assert.Equal(t, []string{"attach:dev", "detach:dev"}, dom.requests)
	assert.Equal(t, []time.Duration{DefaultSettle, DefaultSettle}, *slept)
}

func TestToggleUsesDisplayedState(t *testing.T) {
	dom := newFakeDomain()
	e, _ := newTestEngine(dom)

	// Displayed as attached even though the domain disagrees: the inverse
	// of what is shown is what gets sent.
	action, err := e.Toggle(context.Background(), Entry{Device: receiver, Attached: true})
	require.NoError(t, err)
	assert.Equal(t, Detach, action)
	assert.Equal(t, []string{"detach:dev"}, dom.requests)
}

func TestToggleNotRunning(t *testing.T) {
	dom := newFakeDomain()
	dom.running = false
	e, slept := newTestEngine(dom)

	action, err := e.Toggle(context.Background(), Entry{Device: receiver})
	require.Error(t, err)
	assert.Equal(t, Attach, action)
	assert.Contains(t, err.Error(), "not running")
	assert.Len(t, *slept, 1)
	assert.Empty(t, dom.attached)
}

func TestToggleSignature(t *testing.T) {
	dom := newFakeDomain()
	e, _ := newTestEngine(dom)
	ctx := context.Background()

	action, err := e.ToggleSignature(ctx, ethernet.Signature())
	require.NoError(t, err)
	assert.Equal(t, Attach, action)
	assert.True(t, dom.attached[ethernet.Signature()])

	_, err = e.ToggleSignature(ctx, usb.Signature{VendorID: "dead", ProductID: "beef"})
	assert.Error(t, err)
}
