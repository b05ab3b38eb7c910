// Package config loads the console's TOML settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jbweber/vmtui/internal/logging"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full settings file.
type Config struct {
	Session   SessionConfig   `toml:"session"`
	Libvirt   LibvirtConfig   `toml:"libvirt"`
	UI        UIConfig        `toml:"ui"`
	Paths     PathsConfig     `toml:"paths"`
	Stream    StreamConfig    `toml:"stream"`
	Privilege PrivilegeConfig `toml:"privilege"`
	Log       LogConfig       `toml:"log"`
}

// SessionConfig picks the VM targeted at startup.
type SessionConfig struct {
	DefaultVM string `toml:"default_vm"`
}

// LibvirtConfig selects the management backend.
type LibvirtConfig struct {
	Backend          string `toml:"backend"` // virsh or rpc
	URI              string `toml:"uri"`
	Socket           string `toml:"socket"`
	TimeoutMS        int    `toml:"timeout_ms"`
	CommandTimeoutMS int    `toml:"command_timeout_ms"`
}

// UIConfig tunes the event loop.
type UIConfig struct {
	MenuPollMS int    `toml:"menu_poll_ms"`
	USBPollMS  int    `toml:"usb_poll_ms"`
	SettleMS   int    `toml:"settle_ms"`
	Color      string `toml:"color"` // auto, truecolor, 256, 16, none
}

// PathsConfig holds the on-disk locations. A leading "~" is the invoking
// user's home.
type PathsConfig struct {
	VMDir          string `toml:"vm_dir"`
	ImageDir       string `toml:"image_dir"`
	ShareDir       string `toml:"share_dir"`
	Catalog        string `toml:"catalog"`
	DiagnosticsDir string `toml:"diagnostics_dir"`
}

// StreamConfig controls how streamed commands are attached.
type StreamConfig struct {
	PTY bool `toml:"pty"`
}

// PrivilegeConfig controls root handling.
type PrivilegeConfig struct {
	SelfElevate bool `toml:"self_elevate"`
}

// LogConfig mirrors logging.Config.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Session: SessionConfig{DefaultVM: "driver-dev-vm"},
		Libvirt: LibvirtConfig{
			Backend:          "virsh",
			URI:              "qemu:///system",
			Socket:           "/var/run/libvirt/libvirt-sock",
			TimeoutMS:        5000,
			CommandTimeoutMS: 10000,
		},
		UI: UIConfig{
			MenuPollMS: 1000,
			USBPollMS:  2000,
			SettleMS:   500,
			Color:      "auto",
		},
		Paths: PathsConfig{
			VMDir:          "/var/lib/vmtui/vms",
			ImageDir:       "/var/lib/vmtui/images",
			ShareDir:       "~/driver_projects",
			DiagnosticsDir: "/var/lib/vmtui/diagnostics",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/vmtui/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "vmtui", FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vmtui", FileName), nil
}

// Load reads path over the defaults. A missing file at the default
// location is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Libvirt.Backend {
	case "virsh", "rpc":
	default:
		return fmt.Errorf("%w: libvirt.backend must be virsh or rpc, got %q", ErrInvalid, c.Libvirt.Backend)
	}

	positive := []struct {
		key   string
		value int
	}{
		{"libvirt.timeout_ms", c.Libvirt.TimeoutMS},
		{"ui.menu_poll_ms", c.UI.MenuPollMS},
		{"ui.usb_poll_ms", c.UI.USBPollMS},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be greater than 0", ErrInvalid, p.key)
		}
	}
	if c.UI.SettleMS < 0 {
		return fmt.Errorf("%w: ui.settle_ms must not be negative", ErrInvalid)
	}
	if c.Libvirt.CommandTimeoutMS < 0 {
		return fmt.Errorf("%w: libvirt.command_timeout_ms must not be negative", ErrInvalid)
	}

	switch c.UI.Color {
	case "", "auto", "truecolor", "256", "16", "none":
	default:
		return fmt.Errorf("%w: ui.color must be auto, truecolor, 256, 16 or none, got %q", ErrInvalid, c.UI.Color)
	}

	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("%w: log.format must be json or text, got %q", ErrInvalid, c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q is not a level", ErrInvalid, c.Log.Level)
	}

	if c.Paths.VMDir == "" || c.Paths.ImageDir == "" {
		return fmt.Errorf("%w: paths.vm_dir and paths.image_dir are required", ErrInvalid)
	}
	return nil
}

// ResolvePaths expands a leading "~" in every path against home.
func (c *Config) ResolvePaths(home string) {
	for _, p := range []*string{
		&c.Paths.VMDir,
		&c.Paths.ImageDir,
		&c.Paths.ShareDir,
		&c.Paths.Catalog,
		&c.Paths.DiagnosticsDir,
		&c.Log.File,
	} {
		*p = expandHome(*p, home)
	}
}

func expandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// MenuPoll is the input timeout while browsing the main menu.
func (c *Config) MenuPoll() time.Duration {
	return time.Duration(c.UI.MenuPollMS) * time.Millisecond
}

// USBPoll is the input timeout while the USB menu is open.
func (c *Config) USBPoll() time.Duration {
	return time.Duration(c.UI.USBPollMS) * time.Millisecond
}

// Settle is the pause after a USB toggle.
func (c *Config) Settle() time.Duration {
	return time.Duration(c.UI.SettleMS) * time.Millisecond
}

// RPCTimeout bounds libvirt RPC dial and calls.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.Libvirt.TimeoutMS) * time.Millisecond
}

// CommandTimeout bounds each short external command. Zero means none.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Libvirt.CommandTimeoutMS) * time.Millisecond
}

// Logging converts the log section for logging.Init.
func (c *Config) Logging(debug bool) logging.Config {
	return logging.Config{
		File:       c.Log.File,
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
		Debug:      debug,
	}
}

// Encode renders c as TOML with a short header.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# vmtui configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes c to path, creating the directory. An existing file is
// only replaced when force is set.
func (c *Config) Save(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
