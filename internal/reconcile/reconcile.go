// Package reconcile compares the host USB inventory with the devices
// attached to the target domain and flips one device at a time.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/jbweber/vmtui/internal/command"
	"github.com/jbweber/vmtui/internal/logging"
	"github.com/jbweber/vmtui/internal/usb"
)

var log = logging.ForComponent(logging.CompUSB)

// DefaultSettle is the pause after a toggle before the next scan.
const DefaultSettle = 500 * time.Millisecond

// Entry is one host device labelled with its attachment state.
type Entry struct {
	Device   usb.HostDevice `json:"device" yaml:"device"`
	Attached bool           `json:"attached" yaml:"attached"`
}

// Action is the request a toggle sends.
type Action string

const (
	Attach Action = "attach"
	Detach Action = "detach"
)

// Reconcile labels each device attached iff its signature is in set. The
// result keeps the order of devices.
func Reconcile(devices []usb.HostDevice, set usb.AttachmentSet) []Entry {
	entries := make([]Entry, 0, len(devices))
	for _, d := range devices {
		entries = append(entries, Entry{Device: d, Attached: set.Contains(d.Signature())})
	}
	return entries
}

// deviceManager is the part of the management interface the engine needs.
type deviceManager interface {
	DomainXML(ctx context.Context, name string) (string, error)
	AttachDevice(ctx context.Context, name string, xml []byte) error
	DetachDevice(ctx context.Context, name string, xml []byte) error
}

// target reports the active VM name.
type target interface {
	Target() string
}

// Engine scans and toggles USB devices for the session's target.
type Engine struct {
	runner  command.Runner
	devices deviceManager
	session target
	settle  time.Duration
	sleep   func(time.Duration)
}

// NewEngine returns an Engine. A zero settle uses DefaultSettle.
func NewEngine(runner command.Runner, devices deviceManager, session target, settle time.Duration) *Engine {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Engine{
		runner:  runner,
		devices: devices,
		session: session,
		settle:  settle,
		sleep:   time.Sleep,
	}
}

// Inventory runs lsusb and parses its output. Any failure gives an empty
// inventory.
func (e *Engine) Inventory(ctx context.Context) []usb.HostDevice {
	res := e.runner.Run(ctx, "lsusb")
	out, ok := res.Text()
	if !ok {
		log.Debug("inventory unavailable", "status", res.Status.String())
		return nil
	}
	return usb.ParseInventory(out)
}

// Attachments reads the target's descriptor. A missing domain or a broken
// descriptor gives an empty set.
func (e *Engine) Attachments(ctx context.Context, inventory []usb.HostDevice) usb.AttachmentSet {
	xml, err := e.devices.DomainXML(ctx, e.session.Target())
	if err != nil {
		log.Debug("descriptor unavailable", "vm", e.session.Target(), "error", err)
		return usb.AttachmentSet{}
	}
	return usb.ParseAttachments(xml, inventory)
}

// Scan returns a fresh labelled inventory.
func (e *Engine) Scan(ctx context.Context) []Entry {
	inventory := e.Inventory(ctx)
	return Reconcile(inventory, e.Attachments(ctx, inventory))
}

// Toggle sends the inverse of the entry's displayed state to the target,
// then waits for the settle delay. The delay applies even when the request
// fails so the next scan reflects whatever the tool did.
func (e *Engine) Toggle(ctx context.Context, entry Entry) (Action, error) {
	vm := e.session.Target()
	sig := entry.Device.Signature()

	payload, err := usb.Payload(sig)
	if err != nil {
		return "", fmt.Errorf("failed to build payload for %s: %w", sig, err)
	}

	action := Attach
	apply := e.devices.AttachDevice
	if entry.Attached {
		action = Detach
		apply = e.devices.DetachDevice
	}

	err = apply(ctx, vm, payload)
	e.sleep(e.settle)

	if err != nil {
		log.Warn("toggle failed", "vm", vm, "device", sig.String(), "action", string(action), "error", err)
		return action, fmt.Errorf("failed to %s %s: %w", action, sig, err)
	}

	log.Info("toggled", "vm", vm, "device", sig.String(), "action", string(action))
	return action, nil
}

// ToggleSignature finds sig in a fresh scan and toggles it.
func (e *Engine) ToggleSignature(ctx context.Context, sig usb.Signature) (Action, error) {
	for _, entry := range e.Scan(ctx) {
		if entry.Device.Signature() == sig {
			return e.Toggle(ctx, entry)
		}
	}
	return "", fmt.Errorf("device %s is not connected to the host", sig)
}
