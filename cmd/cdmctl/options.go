package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/cdmctl/internal/cdm"
	"github.com/danmuck/cdmctl/internal/config"
	"github.com/danmuck/cdmctl/internal/logging"
	"github.com/danmuck/cdmctl/internal/protocol/link"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootOptions holds persistent flags shared by every device command.
type rootOptions struct {
	configPath string
	device     string
	baud       int
	timeout    time.Duration
	logLevel   string

	// opener replaces the serial opener; nil uses link.OpenSerial.
	opener link.Opener
	flags  *pflag.FlagSet
}

func (o *rootOptions) bind(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "path to a cdmctl TOML config")
	pf.StringVarP(&o.device, "device", "d", "", "serial device path (overrides config)")
	pf.IntVarP(&o.baud, "baud", "b", 9600, "baud rate (overrides config)")
	pf.DurationVarP(&o.timeout, "timeout", "t", 10*time.Second, "per-read timeout (overrides config)")
	pf.StringVar(&o.logLevel, "log-level", "", "log level: trace|debug|info|warn|error|off")
	o.flags = pf
}

// resolve merges the config file (if any) with explicitly set flags.
func (o *rootOptions) resolve() (config.DeviceConfig, error) {
	cfg := config.DefaultDeviceConfig()
	if strings.TrimSpace(o.configPath) != "" {
		loaded, err := config.LoadDeviceConfig(o.configPath)
		if err != nil {
			return config.DeviceConfig{}, err
		}
		cfg = loaded
	}
	if o.flags.Changed("device") {
		cfg.Link.Path = strings.TrimSpace(o.device)
	}
	if o.flags.Changed("baud") {
		cfg.Link.BaudRate = o.baud
	}
	if o.flags.Changed("timeout") {
		cfg.Link.ReadTimeout = o.timeout
	}
	if o.flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("cdmctl ignoring unknown log level")
	}
	if err := config.ValidateDeviceConfig(cfg); err != nil {
		return config.DeviceConfig{}, fmt.Errorf("%w (set --device or a config file)", err)
	}
	return cfg, nil
}

// openDispenser opens the configured port eagerly so a bad path fails before
// any command is attempted. The caller must call the returned close func.
func (o *rootOptions) openDispenser() (*cdm.Dispenser, config.DeviceConfig, func(), error) {
	cfg, err := o.resolve()
	if err != nil {
		return nil, config.DeviceConfig{}, nil, err
	}
	var opts []link.Option
	if o.opener != nil {
		opts = append(opts, link.WithOpener(o.opener))
	}
	session := link.NewSession(cfg.Link, opts...)
	if err := session.Open(); err != nil {
		return nil, config.DeviceConfig{}, nil, err
	}
	closeFn := func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("cdmctl close port")
		}
	}
	return cdm.NewDispenser(session), cfg, closeFn, nil
}
