package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/vmtui/internal/host"
)

var errUnhealthy = errors.New("host is not ready")

// versioner is implemented by the rpc backend.
type versioner interface {
	Version() (string, error)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the virtualization toolchain and repair what it can",
	Long: `Check that the external tools are installed, that libvirtd is running and
that the default network is active and set to autostart.

libvirtd and the default network are started when they are down.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		report := host.NewChecker(e.runner, e.cfg.Libvirt.URI).Check(cmd.Context())
		for _, line := range report.Lines() {
			fmt.Println(line)
		}

		if v, ok := e.backend.(versioner); ok {
			version, err := v.Version()
			if err != nil {
				fmt.Printf("[FAIL] libvirt rpc: %v\n", err)
				return errUnhealthy
			}
			fmt.Printf("[ok] libvirt rpc: version %s\n", version)
		}

		if !report.Healthy() {
			return errUnhealthy
		}
		return nil
	},
}
