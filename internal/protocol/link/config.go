package link

import (
	"fmt"
	"strings"
	"time"
)

// Config identifies the serial device. Values are handed to the Opener
// unexamined; a bad path or baud surfaces as an open TransportError.
type Config struct {
	Path        string
	BaudRate    int
	ReadTimeout time.Duration
}

// DefaultConfig returns the dispenser factory settings: 9600 baud and a
// 10 second per-read timeout.
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		ReadTimeout: 10 * time.Second,
	}
}

// Validate is for configuration loaders; Session never calls it.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("link config missing device path")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("link config invalid baud rate: %d", c.BaudRate)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("link config negative read timeout: %v", c.ReadTimeout)
	}
	return nil
}
