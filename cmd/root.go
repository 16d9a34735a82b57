package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the schedcore application
var rootCmd = &cobra.Command{
	Use:   "schedcore",
	Short: "Scheduling core for a conversational booking assistant",
	Long: `schedcore turns natural-language booking requests into calendar
operations: it resolves date/time fragments, enforces working hours,
computes availability against Google Calendar, and manages the meeting
lifecycle with readable meeting IDs.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (serve)
  - A standalone CLI for booking, cancelling and checking availability`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "schedcore version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newBookCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newAvailabilityCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
