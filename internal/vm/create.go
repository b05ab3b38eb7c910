package vm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jbweber/vmtui/internal/catalog"
	"github.com/jbweber/vmtui/internal/cloudinit"
	"github.com/jbweber/vmtui/internal/naming"
)

// Owner is the account that should own files created on its behalf when
// the console runs under sudo.
type Owner struct {
	UID int
	GID int
}

// CreateOptions describes a VM to build from a catalog image.
type CreateOptions struct {
	Image    catalog.Image
	Profile  catalog.Profile
	VMDir    string
	ImageDir string
	// ShareDir is exported to the guest over virtiofs. Empty disables it.
	ShareDir string
	URI      string
	Owner    *Owner
}

// CreatePlan builds the workflow that (re)creates the target from
// opts.Image.
//
// The workflow:
//  1. Create the VM, image and share directories
//  2. Download the base image unless it is already cached
//  3. Create a qcow2 overlay disk backed by the base image
//  4. Write the cloud-init seed ISO
//  5. Stop and undefine any previous domain of the same name
//  6. Install the domain with virt-install
//
// Step 5 ignores failures since the domain usually does not exist.
func (s *Session) CreatePlan(opts CreateOptions) (Plan, error) {
	name := s.target
	if err := naming.ValidateVMName(name); err != nil {
		return Plan{}, err
	}
	if opts.Image.URL == "" || opts.Image.File == "" {
		return Plan{}, fmt.Errorf("image %q has no download source", opts.Image.Name)
	}

	vmDir := naming.VMDir(opts.VMDir, name)
	disk := naming.DiskPath(opts.VMDir, name)
	seed := naming.SeedPath(opts.VMDir, name)
	base := naming.BaseImagePath(opts.ImageDir, opts.Image.File)
	seedCfg := cloudinit.FromProfile(name, opts.Profile, opts.ShareDir != "")

	steps := []Step{
		{
			Title: "Preparing directories",
			Func: func(ctx context.Context) error {
				for _, dir := range []string{vmDir, opts.ImageDir, opts.ShareDir} {
					if dir == "" {
						continue
					}
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("failed to create %s: %w", dir, err)
					}
				}
				if err := os.Remove(disk); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("failed to remove old disk: %w", err)
				}
				return chown(opts.Owner, opts.ShareDir)
			},
		},
		{
			Title:        fmt.Sprintf("Downloading %s", opts.Image.Name),
			Kind:         StepFetch,
			URL:          opts.Image.URL,
			Dest:         base,
			SkipIfExists: true,
		},
		{
			Title: fmt.Sprintf("Creating %s disk", opts.Profile.DiskSize),
			Kind:  StepStream,
			Argv:  []string{"qemu-img", "create", "-f", "qcow2", "-F", "qcow2", "-b", base, disk, opts.Profile.DiskSize},
		},
		{
			Title: "Writing cloud-init seed",
			Func: func(ctx context.Context) error {
				if err := cloudinit.WriteISO(seedCfg, seed); err != nil {
					return err
				}
				return chown(opts.Owner, vmDir, disk, seed)
			},
		},
		{
			Title:         "Stopping old instance",
			Func:          func(ctx context.Context) error { return s.backend.Destroy(ctx, name) },
			IgnoreFailure: true,
		},
		{
			Title:         "Removing old definition",
			Func:          func(ctx context.Context) error { return s.backend.Undefine(ctx, name) },
			IgnoreFailure: true,
		},
		{
			Title: fmt.Sprintf("Installing %s", name),
			Kind:  StepStream,
			Argv:  installArgs(name, opts, disk, seed),
		},
	}

	return Plan{
		Name:  "create " + name,
		Steps: steps,
		Done:  fmt.Sprintf("VM %s created.\nWait about 30s for boot, then connect.", name),
	}, nil
}

// installArgs builds the virt-install command line.
func installArgs(name string, opts CreateOptions, disk, seed string) []string {
	args := []string{"virt-install"}
	if opts.URI != "" {
		args = append(args, "--connect", opts.URI)
	}
	args = append(args,
		"--name="+name,
		"--memory="+strconv.Itoa(opts.Profile.MemoryMiB),
		"--vcpus="+strconv.Itoa(opts.Profile.VCPUs),
		fmt.Sprintf("--disk=path=%s,device=disk,bus=virtio", disk),
		fmt.Sprintf("--disk=path=%s,device=cdrom", seed),
		"--os-variant="+opts.Image.Variant,
		"--import",
		"--graphics", "spice",
		"--console", "pty,target_type=serial",
	)
	if opts.ShareDir != "" {
		args = append(args,
			"--memorybacking", "source.type=memfd,access.mode=shared",
			"--filesystem", fmt.Sprintf("source=%s,target=%s,driver.type=virtiofs,accessmode=passthrough", opts.ShareDir, opts.Profile.ShareTag),
		)
	}
	args = append(args,
		"--cpu", "host-passthrough",
		"--network", "network=default,model=virtio",
		"--noautoconsole",
	)
	return args
}

func chown(owner *Owner, paths ...string) error {
	if owner == nil {
		return nil
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Chown(p, owner.UID, owner.GID); err != nil {
			return fmt.Errorf("failed to chown %s: %w", p, err)
		}
	}
	return nil
}
