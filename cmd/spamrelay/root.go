package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "spamrelay",
	Short: "Phone spam reputation lookup over MCP",
	Long: `spamrelay exposes phone-number spam-reputation lookups through the
Model Context Protocol.

Use 'spamrelay serve' to run the HTTP server (JSON and SSE transports),
or 'spamrelay check <number>' for a one-shot lookup from the command line.

Upstream credentials are read from TWILIO_ACCOUNT_SID and
TWILIO_AUTH_TOKEN by default; see --credential-store for alternatives.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	// Disable automatic completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Suppress errors from being printed twice
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
