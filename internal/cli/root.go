// Package cli implements subctl, the administration command line for the
// submission backend.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"
	Config  string // config file path; empty means CONFIG_PATH or ./config.yaml
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for subctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "subctl",
		Short: "Administer the submission backend",
		Long: `subctl manages dictionaries, database migrations and access tokens
of the submission backend.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (default $CONFIG_PATH or ./config.yaml)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewDictionaryCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
