// Package host checks and prepares the machine the console runs on.
package host

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/jbweber/vmtui/internal/logging"
	"github.com/jbweber/vmtui/internal/vm"
)

var log = logging.ForComponent(logging.CompHost)

// ErrNotRoot is returned when root is required and self-elevation is off.
var ErrNotRoot = errors.New("must run as root (try: sudo vmtui)")

// elevatedEnv marks a process that was re-executed through sudo.
const elevatedEnv = "VMTUI_ELEVATED"

// User is the account that started the console, looking through sudo.
type User struct {
	Name string
	Home string
	UID  int
	GID  int
	// Sudo is set when the console was started through sudo.
	Sudo bool
}

// Owner returns the chown target for files created on the user's behalf,
// or nil when no ownership change is needed.
func (u User) Owner() *vm.Owner {
	if !u.Sudo {
		return nil
	}
	return &vm.Owner{UID: u.UID, GID: u.GID}
}

// InvokingUser resolves SUDO_USER when set, else the current user.
func InvokingUser() (User, error) {
	if name := os.Getenv("SUDO_USER"); name != "" && name != "root" {
		u, err := user.Lookup(name)
		if err != nil {
			return User{}, fmt.Errorf("failed to look up sudo user %s: %w", name, err)
		}
		return fromOS(u, true)
	}

	u, err := user.Current()
	if err != nil {
		return User{}, fmt.Errorf("failed to look up current user: %w", err)
	}
	return fromOS(u, false)
}

func fromOS(u *user.User, sudo bool) (User, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return User{}, fmt.Errorf("unexpected uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return User{}, fmt.Errorf("unexpected gid %q: %w", u.Gid, err)
	}
	return User{Name: u.Username, Home: u.HomeDir, UID: uid, GID: gid, Sudo: sudo}, nil
}

// IsRoot reports whether the effective uid is 0.
func IsRoot() bool {
	return unix.Geteuid() == 0
}

// RequireRoot returns nil when running as root. Otherwise, when
// selfElevate is set, it replaces the process with `sudo -E` running the
// same command line and only returns if that fails.
func RequireRoot(selfElevate bool) error {
	if IsRoot() {
		return nil
	}
	if !selfElevate {
		return ErrNotRoot
	}
	if os.Getenv(elevatedEnv) != "" {
		return fmt.Errorf("still not root after sudo: %w", ErrNotRoot)
	}

	sudo, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("cannot elevate, sudo not found: %w", ErrNotRoot)
	}
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot elevate: %w", err)
	}

	argv := append([]string{"sudo", "-E", self}, os.Args[1:]...)
	env := append(os.Environ(), elevatedEnv+"=1")

	log.Info("re-executing through sudo", "argv", argv)
	logging.Shutdown()
	if err := unix.Exec(sudo, argv, env); err != nil {
		return fmt.Errorf("failed to exec sudo: %w", err)
	}
	return nil
}
