package main

import (
	"fmt"
	"os"

	"github.com/danmuck/cdmctl/internal/logging"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logging.ConfigureRuntime()

	if err := newRootCmd(&rootOptions{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cdmctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cdmctl",
		Short: "Drive a CDM-4000 bill dispenser over a serial link",
		Long: `cdmctl talks to a CDM-4000 family bill dispenser over RS-232.

Each command is one framed exchange: the request is sent, one verified
response frame is read (answering any ACK with ENQ) and acknowledged.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(rootCmd)

	rootCmd.AddCommand(
		initCmd(opts),
		statusCmd(opts),
		execCmd(opts),
		serveCmd(opts),
		configCmd(),
		versionCmd(),
	)
	return rootCmd
}
