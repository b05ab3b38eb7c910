package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags.
var (
	configPath string
	vmName     string
	debug      bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vmtui",
	Short: "vmtui - terminal console for libvirt VMs",
	Long: `vmtui is an interactive terminal console for one libvirt VM at a time.

The header shows the target VM and its live state. From the menu you can
start, stop, pause, resume and hibernate the VM, open its serial console or
graphical viewer, attach and detach host USB devices, create or reset it
from a cloud image, delete it, or switch to another VM.

Run without a subcommand to open the console. The console needs root.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/vmtui/config.toml)")
	rootCmd.PersistentFlags().StringVar(&vmName, "vm", "", "target VM (default from config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(usbCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vmtui %s (commit: %s)\n", version, commit)
	},
}
