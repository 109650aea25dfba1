// Package cli implements the Cobra-based command-line interface for
// sn2n.
//
// The CLI starts the HTTP conversion service that turns ServiceNow
// documentation HTML into Notion pages.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags.
	cfgFile string
	verbose bool
)

// SetVersion sets the version information for the CLI.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sn2n",
	Short: "ServiceNow documentation to Notion conversion service",
	Long: `sn2n converts ServiceNow documentation HTML into Notion pages.

It runs as an HTTP service that accepts page HTML, converts it into
Notion blocks (headings, callouts, tables, nested lists, code, media),
uploads the result respecting Notion's API limits, and validates that
the created page covers the source text.

Use 'sn2n serve' to start the service. Configuration comes from a YAML
file or environment variables (NOTION_TOKEN is required).`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/sn2n/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("sn2n %s (commit: %s, built: %s)\n", version, commit, date))

	rootCmd.AddCommand(serveCmd)
}
