// Package catalog loads the list of installable cloud images and the
// guest profile applied to every VM created from them.
package catalog

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

// Image is one installable cloud image.
type Image struct {
	Name    string `yaml:"name" json:"name"`
	URL     string `yaml:"url" json:"url"`
	File    string `yaml:"file" json:"file"`
	Variant string `yaml:"variant" json:"variant"`
}

// Profile is the guest shape and first-boot setup used by create.
type Profile struct {
	MemoryMiB int      `yaml:"memory_mib" json:"memory_mib"`
	VCPUs     int      `yaml:"vcpus" json:"vcpus"`
	DiskSize  string   `yaml:"disk_size" json:"disk_size"`
	User      string   `yaml:"user" json:"user"`
	Password  string   `yaml:"password" json:"-"`
	SSHKeys   []string `yaml:"ssh_keys,omitempty" json:"ssh_keys,omitempty"`
	Packages  []string `yaml:"packages,omitempty" json:"packages,omitempty"`
	Runcmd    []string `yaml:"runcmd,omitempty" json:"runcmd,omitempty"`
	ShareTag  string   `yaml:"share_tag" json:"share_tag"`
}

// Catalog is the parsed catalog file.
type Catalog struct {
	Profile Profile `yaml:"profile" json:"profile"`
	Images  []Image `yaml:"images" json:"images"`
}

// Names returns the image names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Images))
	for _, img := range c.Images {
		names = append(names, img.Name)
	}
	return names
}

// Lookup finds an image by name.
func (c *Catalog) Lookup(name string) (Image, bool) {
	for _, img := range c.Images {
		if img.Name == name {
			return img, true
		}
	}
	return Image{}, false
}

var diskSizePattern = regexp.MustCompile(`^[0-9]+[KMGT]?$`)

// LoadFromFile loads a catalog from a YAML file. An empty path returns the
// built-in catalog.
func LoadFromFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	return LoadFromYAML(data)
}

// LoadFromYAML parses catalog YAML, fills defaults and validates it.
func LoadFromYAML(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	applyDefaults(&c)

	if err := validate(&c); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{
		Images: []Image{
			{
				Name:    "Ubuntu 24.04 LTS",
				URL:     "https://cloud-images.ubuntu.com/noble/current/noble-server-cloudimg-amd64.img",
				File:    "ubuntu-24.04-server.img",
				Variant: "ubuntu24.04",
			},
			{
				Name:    "Ubuntu 22.04 LTS",
				URL:     "https://cloud-images.ubuntu.com/jammy/current/jammy-server-cloudimg-amd64.img",
				File:    "ubuntu-22.04-server.img",
				Variant: "ubuntu22.04",
			},
			{
				Name:    "Debian 12",
				URL:     "https://cloud.debian.org/images/cloud/bookworm/latest/debian-12-generic-amd64.qcow2",
				File:    "debian-12-generic.qcow2",
				Variant: "debian12",
			},
		},
	}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Catalog) {
	p := &c.Profile
	if p.MemoryMiB == 0 {
		p.MemoryMiB = 4096
	}
	if p.VCPUs == 0 {
		p.VCPUs = 4
	}
	if p.DiskSize == "" {
		p.DiskSize = "20G"
	}
	if p.User == "" {
		p.User = "ubuntu"
	}
	if p.Password == "" {
		p.Password = "password"
	}
	if p.ShareTag == "" {
		p.ShareTag = "host_share"
	}
	if p.Packages == nil {
		p.Packages = []string{"build-essential", "linux-headers-generic", "net-tools", "nfs-common"}
	}
	p.DiskSize = strings.ToUpper(p.DiskSize)

	for i := range c.Images {
		if c.Images[i].File == "" && c.Images[i].URL != "" {
			c.Images[i].File = path.Base(c.Images[i].URL)
		}
	}
}

func validate(c *Catalog) error {
	p := c.Profile
	if p.MemoryMiB < 0 {
		return fmt.Errorf("profile.memory_mib must be greater than 0")
	}
	if p.VCPUs < 0 {
		return fmt.Errorf("profile.vcpus must be greater than 0")
	}
	if !diskSizePattern.MatchString(p.DiskSize) {
		return fmt.Errorf("profile.disk_size %q is not a size like 20G", p.DiskSize)
	}
	if strings.ContainsAny(p.User, ": \t") {
		return fmt.Errorf("profile.user %q is not a valid user name", p.User)
	}

	for i, key := range p.SSHKeys {
		if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
			return fmt.Errorf("profile.ssh_keys[%d] is not a valid authorized key: %w", i, err)
		}
	}

	if len(c.Images) == 0 {
		return fmt.Errorf("images must have at least one entry")
	}

	seen := make(map[string]bool)
	for i, img := range c.Images {
		if img.Name == "" {
			return fmt.Errorf("images[%d].name is required", i)
		}
		if img.URL == "" {
			return fmt.Errorf("images[%d].url is required", i)
		}
		if !strings.HasPrefix(img.URL, "http://") && !strings.HasPrefix(img.URL, "https://") {
			return fmt.Errorf("images[%d].url must be http or https", i)
		}
		if img.Variant == "" {
			return fmt.Errorf("images[%d].variant is required", i)
		}
		if strings.Contains(img.File, "/") {
			return fmt.Errorf("images[%d].file must be a bare file name", i)
		}
		if seen[img.Name] {
			return fmt.Errorf("images[%d].name %q is duplicated", i, img.Name)
		}
		seen[img.Name] = true
	}

	return nil
}
