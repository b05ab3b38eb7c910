package host

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jbweber/vmtui/internal/command"
)

// Finding is the outcome of one preflight check.
type Finding struct {
	Check    string `json:"check" yaml:"check"`
	OK       bool   `json:"ok" yaml:"ok"`
	Repaired bool   `json:"repaired,omitempty" yaml:"repaired,omitempty"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Report is the list of findings in check order.
type Report []Finding

// NeedsAttention reports whether anything failed or had to be repaired.
func (r Report) NeedsAttention() bool {
	for _, f := range r {
		if !f.OK || f.Repaired {
			return true
		}
	}
	return false
}

// Healthy reports whether every check passed, repaired or not.
func (r Report) Healthy() bool {
	for _, f := range r {
		if !f.OK {
			return false
		}
	}
	return true
}

// Lines renders one line per finding.
func (r Report) Lines() []string {
	lines := make([]string, 0, len(r))
	for _, f := range r {
		mark := "ok"
		switch {
		case !f.OK:
			mark = "FAIL"
		case f.Repaired:
			mark = "fixed"
		}
		line := fmt.Sprintf("[%s] %s", mark, f.Check)
		if f.Detail != "" {
			line += ": " + f.Detail
		}
		lines = append(lines, line)
	}
	return lines
}

// Tools the console shells out to. Optional ones only warn.
var (
	requiredTools = []string{"virsh", "qemu-img", "virt-install", "lsusb"}
	optionalTools = []string{"virt-viewer"}
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Checker runs the preflight checks.
type Checker struct {
	runner command.Runner
	uri    string
}

// NewChecker returns a Checker that addresses virsh at uri.
func NewChecker(runner command.Runner, uri string) *Checker {
	return &Checker{runner: runner, uri: uri}
}

// Check verifies the toolchain, the libvirt daemon and the default
// network, starting the daemon and network when they are down.
func (c *Checker) Check(ctx context.Context) Report {
	var report Report

	for _, tool := range requiredTools {
		report = append(report, toolFinding(tool, true))
	}
	for _, tool := range optionalTools {
		report = append(report, toolFinding(tool, false))
	}

	report = append(report, c.checkDaemon(ctx))
	report = append(report, c.checkNetwork(ctx))

	for _, f := range report {
		if !f.OK || f.Repaired {
			log.Warn("preflight", "check", f.Check, "ok", f.OK, "repaired", f.Repaired, "detail", f.Detail)
		}
	}
	return report
}

func toolFinding(tool string, required bool) Finding {
	f := Finding{Check: "tool " + tool, OK: true}
	if _, err := lookPath(tool); err != nil {
		f.Detail = "not installed"
		f.OK = !required
	}
	return f
}

func (c *Checker) checkDaemon(ctx context.Context) Finding {
	f := Finding{Check: "libvirtd"}

	res := c.runner.Run(ctx, "systemctl", "is-active", "libvirtd")
	if out, _ := res.Text(); out == "active" {
		f.OK = true
		return f
	}

	start := c.runner.Run(ctx, "systemctl", "start", "libvirtd")
	if !start.Succeeded() {
		f.Detail = fmt.Sprintf("inactive and failed to start: %v", start.AsError())
		return f
	}
	f.OK = true
	f.Repaired = true
	f.Detail = "started"
	return f
}

func (c *Checker) checkNetwork(ctx context.Context) Finding {
	f := Finding{Check: "network default"}

	res := c.virsh(ctx, "net-info", "default")
	if !res.Succeeded() {
		f.Detail = fmt.Sprintf("not defined: %v", res.AsError())
		return f
	}

	active, autostart := parseNetInfo(res.Output)
	if active && autostart {
		f.OK = true
		return f
	}

	if !active {
		if start := c.virsh(ctx, "net-start", "default"); !start.Succeeded() {
			f.Detail = fmt.Sprintf("inactive and failed to start: %v", start.AsError())
			return f
		}
	}
	if !autostart {
		if auto := c.virsh(ctx, "net-autostart", "default"); !auto.Succeeded() {
			f.Detail = fmt.Sprintf("failed to enable autostart: %v", auto.AsError())
			return f
		}
	}

	f.OK = true
	f.Repaired = true
	f.Detail = "started and set to autostart"
	return f
}

func (c *Checker) virsh(ctx context.Context, args ...string) command.Result {
	if c.uri != "" {
		args = append([]string{"-c", c.uri}, args...)
	}
	return c.runner.Run(ctx, "virsh", args...)
}

// parseNetInfo reads the Active and Autostart lines of `virsh net-info`.
func parseNetInfo(text string) (active, autostart bool) {
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		yes := strings.TrimSpace(value) == "yes"
		switch strings.TrimSpace(key) {
		case "Active":
			active = yes
		case "Autostart":
			autostart = yes
		}
	}
	return active, autostart
}
