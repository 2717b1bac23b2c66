// Package main provides the entry point for the text-anonymizer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the anonymizer.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anonymizer",
		Short: "Anonymize personal data in Finnish and English text",
		Long: `The anonymizer masks personal data in free text: names, phone numbers,
identity codes, email and street addresses, and other identifiers. Matches
are replaced with labels such as <NIMI> and <PUHELIN>.

Recognition combines built-in patterns, customer-profile word lists and an
optional NER model service. Configuration lives under the configuration
root (one directory per customer profile) and is picked up without a
restart when served over HTTP.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().String("config-root", "", "Configuration root directory (default: $ANONYMIZER_CONFIG_DIR or the XDG config dir)")
	cmd.PersistentFlags().String("settings", "", "Settings file path (default: <config-root>/settings.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("pretty", false, "Human-readable log output instead of JSON")
	cmd.PersistentFlags().StringSlice("languages", nil, "Languages to analyze (overrides settings)")
	cmd.PersistentFlags().StringSlice("recognizers", nil, "Recognizers to enable (overrides settings)")
	cmd.PersistentFlags().Bool("debug", false, "Debug labels: masks carry scores and details are reported")
	cmd.PersistentFlags().String("ner-url", "", "NER model service URL (overrides settings)")

	// Add subcommands
	cmd.AddCommand(NewTextCmd())
	cmd.AddCommand(NewCSVCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewProfilesCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
