package cdm

import (
	"errors"
	"fmt"
)

// ErrShortResponse means a verified frame was too short to carry a status.
var ErrShortResponse = errors.New("cdm: response too short for status")

// ErrEchoMismatch classifies replies that answer a different command.
var ErrEchoMismatch = errors.New("cdm: reply echoes another command")

// EchoError reports a verified reply whose echoed command byte does not match
// the request. It matches ErrEchoMismatch.
type EchoError struct {
	Command Command
	Echo    byte
}

func (e *EchoError) Error() string {
	return fmt.Sprintf("%s: reply echoes 0x%02X", e.Command, e.Echo)
}

func (e *EchoError) Is(target error) bool {
	return target == ErrEchoMismatch
}

// StatusError reports a non-normal status code returned by the device.
type StatusError struct {
	Command Command
	Status  StatusCode
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Command, e.Status, byte(e.Status))
}

// IsStatusError returns true if err is or wraps a StatusError.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
