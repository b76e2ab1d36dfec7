// Package cli implements the hoorii command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hoorii",
	Short: "Conversational smart-home assistant engine",
	Long:  "Turns natural-language requests into trust-gated, schema-validated device commands.\nEvery executed command is recorded in a hash-chained audit log.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.hoorii/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
