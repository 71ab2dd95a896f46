package link

import (
	"io"

	"go.bug.st/serial"
)

// Port is the byte stream a Session drives. A Read that times out returns
// 0, nil. go.bug.st/serial ports satisfy it directly.
type Port interface {
	io.ReadWriteCloser
	// ResetInputBuffer discards bytes received but not yet read.
	ResetInputBuffer() error
}

// Opener acquires the Port described by cfg.
type Opener func(cfg Config) (Port, error)

// OpenSerial opens cfg.Path as an 8N1 serial port with cfg.ReadTimeout
// applied to every Read.
func OpenSerial(cfg Config) (Port, error) {
	port, err := serial.Open(cfg.Path, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, err
		}
	}
	return port, nil
}
