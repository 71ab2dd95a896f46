package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/danmuck/cdmctl/internal/auth"
	"github.com/danmuck/cdmctl/internal/bridge"
	"github.com/danmuck/cdmctl/internal/cdm"
	"github.com/danmuck/cdmctl/internal/config"
	"github.com/danmuck/cdmctl/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func initCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the dispenser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, opts, cdm.CmdInitialize, nil)
		},
	}
}

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Read the dispenser status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, opts, cdm.CmdReadStatus, nil)
		},
	}
}

func execCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command> [arg...]",
		Short: "Send one raw command",
		Long: `Send one command with opaque argument bytes and print the decoded reply.

The command is a name (read_status, dispense_bill, ...) or a byte literal
(0x31). Arguments are byte literals: decimal, 0x hex, 0o octal or 0b binary.`,
		Example: `  cdmctl exec read_status
  cdmctl exec dispense_bill 0x01 0x05`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := bridge.ParseCommand(args[0])
			if err != nil {
				return err
			}
			payload := make([]byte, 0, len(args)-1)
			for i, raw := range args[1:] {
				v, err := bridge.ParseByte(raw)
				if err != nil {
					return fmt.Errorf("arg %d: %w", i+1, err)
				}
				payload = append(payload, v)
			}
			return runCommand(cmd, opts, command, payload)
		},
	}
}

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		listen  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the dispenser over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dispenser, cfg, closeFn, err := opts.openDispenser()
			if err != nil {
				return err
			}
			defer closeFn()
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			observability.InitLogger("cdmctl", cfg.Link.Path)
			b := bridge.Appear("cdmctl", cfg.ListenAddr, cfg.Link.Path, dispenser, cfg.CorsOrigins)
			b.Timeout = timeout
			if token := bridgeToken(cfg.APIToken); token != "" {
				b.Auth = auth.StaticToken{Token: token}
			} else {
				log.Warn().Str("addr", cfg.ListenAddr).Msg("cdmctl bridge device routes are unauthenticated")
			}
			return b.Serve()
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", config.DefaultListenAddr, "HTTP listen address (overrides config)")
	cmd.Flags().DurationVar(&timeout, "request-timeout", 0, "overall deadline per device exchange (0 = none)")
	return cmd
}

// bridgeToken prefers CDMCTL_API_TOKEN over the config file value.
func bridgeToken(fromConfig string) string {
	if env := strings.TrimSpace(os.Getenv("CDMCTL_API_TOKEN")); env != "" {
		return env
	}
	return fromConfig
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cdmctl config files",
	}
	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a starter config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], "device", overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return
			}
			fmt.Fprintf(out, "cdmctl %s (commit %s, built %s, %s %s/%s)\n",
				version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}

// runCommand performs one exchange and prints the reply as JSON. A
// non-normal device status is printed and returned as the error.
func runCommand(cmd *cobra.Command, opts *rootOptions, command cdm.Command, args []byte) error {
	dispenser, _, closeFn, err := opts.openDispenser()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := dispenser.Exec(ctx, command, args...)
	if err != nil {
		return err
	}
	if err := printResponse(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	return resp.Err()
}

func printResponse(w io.Writer, resp cdm.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(bridge.NewResponseView(resp))
}
