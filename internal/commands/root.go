package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "moobaanctl",
		Short:   "Operations toolkit for the village money ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newCreateTableCommand())
	rootCmd.AddCommand(newSeedCommand())
	rootCmd.AddCommand(newAgingCommand())

	return rootCmd
}
