package link

import (
	"errors"
	"fmt"
)

// ErrTransport matches every *TransportError via errors.Is.
var ErrTransport = errors.New("link: transport failure")

// Transport operations reported in TransportError.Op.
const (
	OpOpen  = "open"
	OpRead  = "read"
	OpWrite = "write"
	OpFlush = "flush"
	OpClose = "close"
)

// TransportError reports a failure of the underlying stream. It is never
// retried inside this package.
type TransportError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("link %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsTransportError returns true if err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
