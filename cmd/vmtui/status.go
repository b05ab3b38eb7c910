package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/vmtui/internal/output"
)

var (
	outputFormat string
	noHeaders    bool
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, yaml, json")
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "omit table headers")
}

func newFormatter() (output.Formatter, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}
	return output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show defined VMs and their state",
	Long: `Show every defined VM with its live state, vCPUs, memory and disk count.

The target VM is marked with "*" and is listed even when it is not defined.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML list
  -o json   JSON list`,
	Args: cobra.NoArgs,
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

		vms, err := e.session.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list VMs: %w", err)
		}

		result, err := formatter.FormatVMList(vms)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details",
	Short: "Show the target VM's definition",
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

		sum, err := e.session.Details(cmd.Context())
		if err != nil {
			return err
		}

		result, err := formatter.FormatSummary(sum)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}

func init() {
	addOutputFlags(statusCmd)
	addOutputFlags(detailsCmd)
	statusCmd.AddCommand(detailsCmd)
}
