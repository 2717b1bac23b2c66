package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewProfilesCmd creates the profiles command.
func NewProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List customer profiles under the configuration root",
		Long: `List the customer profiles found under the configuration root. Each
profile is a directory that may hold blocklist.txt, grantlist.txt and
regex_patterns.json.`,
		Args: cobra.NoArgs,
		RunE: runProfiles,
	}
}

// runProfiles executes the profiles command.
func runProfiles(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	profiles, err := app.provider.Profiles()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No profiles under %s\n", app.root)
		return nil
	}
	for _, profile := range profiles {
		fmt.Fprintln(cmd.OutOrStdout(), profile)
	}
	return nil
}
