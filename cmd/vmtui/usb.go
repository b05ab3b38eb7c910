package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/vmtui/internal/usb"
)

var usbCmd = &cobra.Command{
	Use:   "usb",
	Short: "List host USB devices and whether the target VM has them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		result, err := formatter.FormatDevices(e.engine().Scan(cmd.Context()))
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

var usbToggleCmd = &cobra.Command{
	Use:   "toggle <vendor:product>",
	Short: "Attach a host USB device to the target VM, or detach it if attached",
	Long: `Attach or detach a host USB device on the running target VM.

The device is identified by its vendor and product ids as printed by lsusb.
Identical devices share one identity, so the first match is used.

Example:
  vmtui usb toggle 046d:c52b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := usb.ParseSignature(args[0])
		if err != nil {
			return err
		}

		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		action, err := e.engine().ToggleSignature(cmd.Context(), sig)
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s %s on %s\n", action, sig, e.session.Target())
		return nil
	},
}

func init() {
	addOutputFlags(usbCmd)
	usbCmd.AddCommand(usbToggleCmd)
}
