package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/cdmctl/internal/protocol/link"
)

const (
	DefaultListenAddr = "127.0.0.1:9170"
	DefaultLogLevel   = "info"
)

// DeviceConfig is the resolved runtime configuration for one dispenser.
type DeviceConfig struct {
	Link        link.Config
	ListenAddr  string
	CorsOrigins []string
	LogLevel    string
	// APIToken, when set, is required as a bearer token on bridge device routes.
	APIToken string
}

type fileConfig struct {
	Device        string   `toml:"device"`
	Baud          int      `toml:"baud"`
	ReadTimeout   string   `toml:"read_timeout"`
	ReadTimeoutMS int64    `toml:"read_timeout_ms"`
	ListenAddr    string   `toml:"listen_addr"`
	CorsOrigins   []string `toml:"cors_origins"`
	LogLevel      string   `toml:"log_level"`
	APIToken      string   `toml:"api_token"`
}

func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Link:        link.DefaultConfig(),
		ListenAddr:  DefaultListenAddr,
		CorsOrigins: []string{},
		LogLevel:    DefaultLogLevel,
	}
}

// LoadDeviceConfig applies the keys present in the file at path onto the
// defaults and validates the result.
func LoadDeviceConfig(path string) (DeviceConfig, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := resolve(raw, meta)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := ValidateDeviceConfig(cfg); err != nil {
		return DeviceConfig{}, err
	}
	return cfg, nil
}

// DecodeDeviceConfig is LoadDeviceConfig for in-memory TOML.
func DecodeDeviceConfig(data string) (DeviceConfig, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("config parse failed: %w", err)
	}
	cfg, err := resolve(raw, meta)
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("config parse failed: %w", err)
	}
	if err := ValidateDeviceConfig(cfg); err != nil {
		return DeviceConfig{}, err
	}
	return cfg, nil
}

func resolve(raw fileConfig, meta toml.MetaData) (DeviceConfig, error) {
	cfg := DefaultDeviceConfig()

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return DeviceConfig{}, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if meta.IsDefined("device") {
		cfg.Link.Path = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud") {
		cfg.Link.BaudRate = raw.Baud
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return DeviceConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.Link.ReadTimeout = d
	}
	if meta.IsDefined("read_timeout_ms") {
		cfg.Link.ReadTimeout = time.Duration(raw.ReadTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("api_token") {
		cfg.APIToken = strings.TrimSpace(raw.APIToken)
	}
	return cfg, nil
}

func ValidateDeviceConfig(cfg DeviceConfig) error {
	if err := cfg.Link.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("device config missing listen_addr")
	}
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
