package host

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/vmtui/internal/command"
	"github.com/jbweber/vmtui/internal/vm"
)

// fakeRunner answers commands from a table keyed by the joined argv.
type fakeRunner struct {
	results map[string]command.Result
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) command.Result {
	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)
	if res, ok := f.results[key]; ok {
		return res
	}
	return command.Result{Status: command.StatusEmpty}
}

func okResult(out string) command.Result {
	return command.Result{Status: command.StatusOK, Output: out}
}

func failResult(stderr string) command.Result {
	return command.Result{Status: command.StatusFailed, ExitCode: 1, Stderr: stderr}
}

func allToolsPresent(t *testing.T) {
	t.Helper()
	orig := lookPath
	lookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }
	t.Cleanup(func() { lookPath = orig })
}

const netInfoActive = `Name:           default
UUID:           3f1c2a7e-0000-0000-0000-000000000000
Active:         yes
Persistent:     yes
Autostart:      yes
Bridge:         virbr0`

func TestCheckHealthy(t *testing.T) {
	allToolsPresent(t)
	runner := &fakeRunner{results: map[string]command.Result{
		"systemctl is-active libvirtd":             okResult("active"),
		"virsh -c qemu:///system net-info default": okResult(netInfoActive),
	}}

	report := NewChecker(runner, "qemu:///system").Check(context.Background())

	assert.True(t, report.Healthy())
	assert.False(t, report.NeedsAttention())
	assert.NotContains(t, runner.calls, "systemctl start libvirtd")
}

func TestCheckRepairs(t *testing.T) {
	allToolsPresent(t)
	inactive := strings.NewReplacer("Active:         yes", "Active:         no", "Autostart:      yes", "Autostart:      no").Replace(netInfoActive)
	runner := &fakeRunner{results: map[string]command.Result{
		"systemctl is-active libvirtd": {Status: command.StatusFailed, ExitCode: 3, Output: "inactive"},
		"virsh net-info default":       okResult(inactive),
	}}

	report := NewChecker(runner, "").Check(context.Background())

	assert.True(t, report.Healthy())
	assert.True(t, report.NeedsAttention())
	assert.Contains(t, runner.calls, "systemctl start libvirtd")
	assert.Contains(t, runner.calls, "virsh net-start default")
	assert.Contains(t, runner.calls, "virsh net-autostart default")

	lines := strings.Join(report.Lines(), "\n")
	assert.Contains(t, lines, "[fixed] libvirtd: started")
	assert.Contains(t, lines, "[fixed] network default")
}

func TestCheckFailures(t *testing.T) {
	orig := lookPath
	lookPath = func(file string) (string, error) {
		if file == "virt-install" || file == "virt-viewer" {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + file, nil
	}
	t.Cleanup(func() { lookPath = orig })

	runner := &fakeRunner{results: map[string]command.Result{
		"systemctl is-active libvirtd": failResult(""),
		"systemctl start libvirtd":     failResult("Unit libvirtd.service not found."),
		"virsh net-info default":       failResult("error: Network not found"),
	}}

	report := NewChecker(runner, "").Check(context.Background())

	assert.False(t, report.Healthy())
	lines := strings.Join(report.Lines(), "\n")
	assert.Contains(t, lines, "[FAIL] tool virt-install: not installed")
	assert.Contains(t, lines, "[ok] tool virt-viewer: not installed")
	assert.Contains(t, lines, "[FAIL] libvirtd")
	assert.Contains(t, lines, "[FAIL] network default: not defined")
}

func TestParseNetInfo(t *testing.T) {
	active, autostart := parseNetInfo(netInfoActive)
	assert.True(t, active)
	assert.True(t, autostart)

	active, autostart = parseNetInfo("garbage")
	assert.False(t, active)
	assert.False(t, autostart)
}

func TestSetupPlan(t *testing.T) {
	plan := SetupPlan("dev")

	require.Len(t, plan.Steps, 4)
	assert.Equal(t, []string{"apt-get", "update"}, plan.Steps[0].Argv)
	assert.Equal(t, "apt-get", plan.Steps[1].Argv[0])
	assert.Contains(t, plan.Steps[1].Argv, "libvirt-daemon-system")
	assert.Equal(t, []string{"usermod", "-aG", "libvirt", "dev"}, plan.Steps[2].Argv)
	assert.True(t, plan.Steps[3].IgnoreFailure)
	for _, s := range plan.Steps {
		assert.Equal(t, vm.StepStream, s.Kind)
	}

	assert.Len(t, SetupPlan("root").Steps, 2)
	assert.Len(t, SetupPlan("").Steps, 2)
}

func TestInvokingUser(t *testing.T) {
	t.Setenv("SUDO_USER", "")

	u, err := InvokingUser()
	require.NoError(t, err)
	assert.NotEmpty(t, u.Name)
	assert.False(t, u.Sudo)
	assert.Nil(t, u.Owner())

	t.Setenv("SUDO_USER", "vmtui-no-such-user")
	_, err = InvokingUser()
	assert.Error(t, err)
}

func TestUserOwner(t *testing.T) {
	u := User{Name: "dev", UID: 1000, GID: 1000, Sudo: true}
	assert.Equal(t, &vm.Owner{UID: 1000, GID: 1000}, u.Owner())
}

func TestRequireRootWithoutElevation(t *testing.T) {
	if IsRoot() {
		t.Skip("running as root")
	}
	err := RequireRoot(false)
	assert.True(t, errors.Is(err, ErrNotRoot))

	t.Setenv(elevatedEnv, "1")
	err = RequireRoot(true)
	assert.True(t, errors.Is(err, ErrNotRoot))
}
