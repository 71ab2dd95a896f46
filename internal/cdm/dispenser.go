package cdm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// statusOffset is the frame offset of the status byte: STX, LEN, echoed
// command, status.
const statusOffset = 3

// Requester is the link primitive a Dispenser is built on.
// *link.Session satisfies it.
type Requester interface {
	Request(ctx context.Context, payload []byte) ([]byte, error)
}

// Response is one decoded device reply.
type Response struct {
	// Command is the request that produced the reply.
	Command Command
	// Echo is the first payload byte as sent back by the device.
	Echo   byte
	Status StatusCode
	// Data is the payload after the echo and status bytes.
	Data []byte
	// Raw is the verified frame.
	Raw []byte
}

// Err returns a *StatusError unless the status is normal.
func (r Response) Err() error {
	if r.Status.OK() {
		return nil
	}
	return &StatusError{Command: r.Command, Status: r.Status}
}

// ParseResponse decodes a verified frame returned by Request. A reply that
// echoes a command other than cmd is rejected with an *EchoError.
func ParseResponse(cmd Command, raw []byte) (Response, error) {
	// STX LEN ECHO STATUS ... ETX BCC
	if len(raw) < statusOffset+3 {
		return Response{}, fmt.Errorf("%w: %d bytes", ErrShortResponse, len(raw))
	}
	payload := raw[2 : len(raw)-2]
	if payload[0] != byte(cmd) {
		return Response{}, &EchoError{Command: cmd, Echo: payload[0]}
	}
	return Response{
		Command: cmd,
		Echo:    payload[0],
		Status:  StatusCode(raw[statusOffset]),
		Data:    payload[2:],
		Raw:     raw,
	}, nil
}

// Dispenser issues device commands over one link.
type Dispenser struct {
	link Requester
}

func NewDispenser(link Requester) *Dispenser {
	return &Dispenser{link: link}
}

// Exec sends cmd with opaque args and decodes the reply. Only link and
// decode failures are returned as errors; check Response.Err for the
// device status.
func (d *Dispenser) Exec(ctx context.Context, cmd Command, args ...byte) (Response, error) {
	payload := make([]byte, 0, len(args)+1)
	payload = append(payload, byte(cmd))
	payload = append(payload, args...)

	raw, err := d.link.Request(ctx, payload)
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w", cmd, err)
	}
	resp, err := ParseResponse(cmd, raw)
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w", cmd, err)
	}
	log.Debug().
		Str("command", cmd.String()).
		Str("status", resp.Status.String()).
		Hex("data", resp.Data).
		Msg("cdm.exec")
	return resp, nil
}

// Do is Exec with a non-normal status folded into the error.
func (d *Dispenser) Do(ctx context.Context, cmd Command, args ...byte) (Response, error) {
	resp, err := d.Exec(ctx, cmd, args...)
	if err != nil {
		return Response{}, err
	}
	if err := resp.Err(); err != nil {
		log.Warn().Str("command", cmd.String()).Str("status", resp.Status.String()).Msg("cdm.status")
		return resp, err
	}
	return resp, nil
}

func (d *Dispenser) Initialize(ctx context.Context) (Response, error) {
	return d.Do(ctx, CmdInitialize)
}

func (d *Dispenser) ReadStatus(ctx context.Context) (Response, error) {
	return d.Do(ctx, CmdReadStatus)
}

func (d *Dispenser) Diagnostic(ctx context.Context) (Response, error) {
	return d.Do(ctx, CmdDiagnostic)
}

func (d *Dispenser) LastStatus(ctx context.Context) (Response, error) {
	return d.Do(ctx, CmdLastStatus)
}

func (d *Dispenser) ConfigurationStatus(ctx context.Context) (Response, error) {
	return d.Do(ctx, CmdConfigurationStatus)
}

func (d *Dispenser) TotalCounts(ctx context.Context) (Response, error) {
	return d.Do(ctx, CmdTotalCounts)
}

// Dispense issues a dispense-bill command. args are passed through
// unexamined; their layout is device firmware specific.
func (d *Dispenser) Dispense(ctx context.Context, args ...byte) (Response, error) {
	return d.Do(ctx, CmdDispenseBill, args...)
}
