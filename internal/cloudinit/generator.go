// Package cloudinit provides cloud-init configuration generation for VM provisioning.
//
// This package generates the user-data and meta-data files of a NoCloud seed
// following the official cloud-init NoCloud datasource specification. The
// guest uses DHCP on the default network, so no network-config is written.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
package cloudinit

import (
	"fmt"
	"path"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/vmtui/internal/catalog"
)

// Config is everything the seed needs for one guest.
type Config struct {
	Hostname   string
	InstanceID string
	User       string
	Password   string
	SSHKeys    []string
	Packages   []string
	Runcmd     []string
}

// consoleCommands route the kernel console to the serial port so
// `virsh console` shows a login prompt.
var consoleCommands = []string{
	`sed -i 's/GRUB_CMDLINE_LINUX_DEFAULT=".*"/GRUB_CMDLINE_LINUX_DEFAULT="console=tty1 console=ttyS0 net.ifnames=0 biosdevname=0"/' /etc/default/grub`,
	"update-grub",
}

// FromProfile builds a Config for vmName. When share is true the host
// share is mounted in the user's home under the profile's share tag.
func FromProfile(vmName string, p catalog.Profile, share bool) Config {
	cfg := Config{
		Hostname:   vmName,
		InstanceID: fmt.Sprintf("%s-%s", vmName, uuid.NewString()[:8]),
		User:       p.User,
		Password:   p.Password,
		SSHKeys:    p.SSHKeys,
		Packages:   p.Packages,
	}

	cfg.Runcmd = append(cfg.Runcmd, consoleCommands...)
	if share && p.ShareTag != "" {
		mount := path.Join("/home", p.User, p.ShareTag)
		cfg.Runcmd = append(cfg.Runcmd,
			fmt.Sprintf("mkdir -p %s", mount),
			fmt.Sprintf("chown %s:%s %s", p.User, p.User, mount),
			fmt.Sprintf("echo \"%s %s virtiofs defaults 0 0\" >> /etc/fstab", p.ShareTag, mount),
			"mount -a",
		)
	}
	cfg.Runcmd = append(cfg.Runcmd, p.Runcmd...)

	return cfg
}

// UserData represents the cloud-config user-data structure.
// This is marshaled to YAML and prefixed with "#cloud-config" header.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#cloud-config-data
type UserData struct {
	Hostname        string    `yaml:"hostname"`
	ManageEtcHosts  bool      `yaml:"manage_etc_hosts"`
	SSHPasswordAuth bool      `yaml:"ssh_pwauth"`
	Users           []User    `yaml:"users"`
	Chpasswd        *Chpasswd `yaml:"chpasswd,omitempty"`
	Packages        []string  `yaml:"packages,omitempty"`
	Runcmd          []string  `yaml:"runcmd,omitempty"`
	Output          *Output   `yaml:"output,omitempty"`
}

// User is one entry of the users list.
type User struct {
	Name              string   `yaml:"name"`
	Sudo              string   `yaml:"sudo"`
	Groups            string   `yaml:"groups"`
	Shell             string   `yaml:"shell"`
	LockPasswd        bool     `yaml:"lock_passwd"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys,omitempty"`
}

// Chpasswd configures user password settings.
type Chpasswd struct {
	Expire bool   `yaml:"expire"` // Whether to expire passwords on first login
	List   string `yaml:"list"`   // Format: "username:password"
}

// Output configures cloud-init output logging.
type Output struct {
	All string `yaml:"all"`
}

// MetaData represents the cloud-init meta-data structure.
//
// See https://cloudinit.readthedocs.io/en/latest/reference/datasources/nocloud.html
type MetaData struct {
	InstanceID    string `yaml:"instance-id"`
	LocalHostname string `yaml:"local-hostname"`
}

// GenerateUserData generates the user-data YAML content.
//
// Returns the complete user-data file content including the "#cloud-config" header.
func GenerateUserData(cfg Config) (string, error) {
	if cfg.Hostname == "" {
		return "", fmt.Errorf("hostname is required")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("user is required")
	}

	userData := UserData{
		Hostname:        cfg.Hostname,
		ManageEtcHosts:  true,
		SSHPasswordAuth: cfg.Password != "",
		Users: []User{
			{
				Name:              cfg.User,
				Sudo:              "ALL=(ALL) NOPASSWD:ALL",
				Groups:            "users, admin",
				Shell:             "/bin/bash",
				LockPasswd:        cfg.Password == "",
				SSHAuthorizedKeys: cfg.SSHKeys,
			},
		},
		Packages: cfg.Packages,
		Runcmd:   cfg.Runcmd,
		Output: &Output{
			All: "| tee -a /var/log/cloud-init-output.log",
		},
	}

	if cfg.Password != "" {
		userData.Chpasswd = &Chpasswd{
			Expire: false,
			List:   fmt.Sprintf("%s:%s\n", cfg.User, cfg.Password),
		}
	}

	// Marshal to YAML
	yamlBytes, err := yaml.Marshal(&userData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal user-data to YAML: %w", err)
	}

	// Prepend #cloud-config header (required by cloud-init spec)
	return "#cloud-config\n" + string(yamlBytes), nil
}

// GenerateMetaData generates the meta-data YAML content.
//
// Cloud-init uses instance-id to decide whether this is a first boot, so a
// recreated VM with the same name gets a fresh instance-id and reruns setup.
func GenerateMetaData(cfg Config) (string, error) {
	if cfg.Hostname == "" {
		return "", fmt.Errorf("hostname is required")
	}

	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = cfg.Hostname
	}

	metaData := MetaData{
		InstanceID:    instanceID,
		LocalHostname: cfg.Hostname,
	}

	yamlBytes, err := yaml.Marshal(&metaData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meta-data to YAML: %w", err)
	}

	return string(yamlBytes), nil
}
