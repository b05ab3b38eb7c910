package vm

import (
	"context"
	"fmt"
	"os"

	"github.com/jbweber/vmtui/internal/naming"
)

// DeletePlan builds the workflow that removes the target and its files.
//
// The workflow:
//  1. Force-stop the domain (ignored if not running)
//  2. Undefine the domain with NVRAM and managed save (ignored if absent)
//  3. Remove the VM directory with its disk and seed
//
// Base images in the image cache are kept.
func (s *Session) DeletePlan(vmBase string) (Plan, error) {
	name := s.target
	if err := naming.ValidateVMName(name); err != nil {
		return Plan{}, err
	}
	if vmBase == "" {
		return Plan{}, fmt.Errorf("VM directory is not configured")
	}
	dir := naming.VMDir(vmBase, name)

	return Plan{
		Name: "delete " + name,
		Steps: []Step{
			{
				Title:         fmt.Sprintf("Stopping %s", name),
				Func:          func(ctx context.Context) error { return s.backend.Destroy(ctx, name) },
				IgnoreFailure: true,
			},
			{
				Title:         fmt.Sprintf("Undefining %s", name),
				Func:          func(ctx context.Context) error { return s.backend.Undefine(ctx, name) },
				IgnoreFailure: true,
			},
			{
				Title: "Removing files",
				Func: func(ctx context.Context) error {
					if err := os.RemoveAll(dir); err != nil {
						return fmt.Errorf("failed to remove %s: %w", dir, err)
					}
					return nil
				},
			},
		},
		Done: fmt.Sprintf("VM %s deleted.", name),
	}, nil
}
