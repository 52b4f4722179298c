package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "expense-approval",
	Short: "Expense approval service",
	Long: `expense-approval is the transactional core of an expense approval
workflow: a state machine, an authorization policy, an append-only audit
log, and an event fan-out to notification and analytics subscribers.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCmd returns the root command, for tests that exercise the CLI.
func GetRootCmd() *cobra.Command {
	return rootCmd
}
