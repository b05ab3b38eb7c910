// Package usb parses host USB inventory and the USB host devices attached
// to a domain, and builds the descriptor used to attach or detach one.
//
// A device is identified by its Signature, the vendor/product id pair.
// Two identical peripherals plugged in at once share a signature and are
// indistinguishable here.
package usb

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Signature identifies a device class by vendor and product id. Both ids
// are four lowercase hex digits without a 0x prefix.
type Signature struct {
	VendorID  string `json:"vendorId" yaml:"vendorId"`
	ProductID string `json:"productId" yaml:"productId"`
}

func (s Signature) String() string {
	return s.VendorID + ":" + s.ProductID
}

// ParseSignature parses "vvvv:pppp". A 0x prefix on either id is accepted.
func ParseSignature(s string) (Signature, error) {
	vendor, product, ok := strings.Cut(s, ":")
	if !ok {
		return Signature{}, fmt.Errorf("invalid device signature %q: expected vendor:product", s)
	}

	v, okV := normalizeID(vendor)
	p, okP := normalizeID(product)
	if !okV || !okP {
		return Signature{}, fmt.Errorf("invalid device signature %q: ids must be hex", s)
	}

	return Signature{VendorID: v, ProductID: p}, nil
}

// HostDevice is one line of enumerator output.
type HostDevice struct {
	Bus       int    `json:"bus" yaml:"bus"`
	Device    int    `json:"device" yaml:"device"`
	VendorID  string `json:"vendorId" yaml:"vendorId"`
	ProductID string `json:"productId" yaml:"productId"`
	Label     string `json:"label" yaml:"label"`
}

// Signature returns the device's vendor/product pair.
func (d HostDevice) Signature() Signature {
	return Signature{VendorID: d.VendorID, ProductID: d.ProductID}
}

// DisplayLabel returns the label cut to width terminal cells. The full
// label stays on the device.
func (d HostDevice) DisplayLabel(width int) string {
	if width <= 0 || runewidth.StringWidth(d.Label) <= width {
		return d.Label
	}
	return runewidth.Truncate(d.Label, width, "…")
}

var inventoryLine = regexp.MustCompile(`^Bus (\d+) Device (\d+): ID ([0-9a-fA-F]{4}):([0-9a-fA-F]{4})(?:\s+(.*))?$`)

// ParseInventory parses lsusb output. Lines that do not match the
// "Bus <n> Device <n>: ID <vendor>:<product> <label>" grammar are skipped.
func ParseInventory(text string) []HostDevice {
	var devices []HostDevice

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		m := inventoryLine.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}

		bus, _ := strconv.Atoi(m[1])
		dev, _ := strconv.Atoi(m[2])
		devices = append(devices, HostDevice{
			Bus:       bus,
			Device:    dev,
			VendorID:  strings.ToLower(m[3]),
			ProductID: strings.ToLower(m[4]),
			Label:     strings.TrimSpace(m[5]),
		})
	}

	return devices
}

// normalizeID turns "0x46D", "046d" or "46d" into "046d".
func normalizeID(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	if s == "" || len(s) > 4 {
		return "", false
	}
	if _, err := strconv.ParseUint(s, 16, 16); err != nil {
		return "", false
	}
	return strings.Repeat("0", 4-len(s)) + s, true
}
