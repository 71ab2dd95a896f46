package linktest

import (
	"bytes"

	"github.com/danmuck/cdmctl/internal/protocol/frame"
)

// Responder maps a request payload to a response payload.
type Responder func(payload []byte) []byte

// DeviceOption tweaks an emulated device.
type DeviceOption func(*device)

type device struct {
	respond   Responder
	handshake bool
	chunk     int
	pending   []byte
}

// WithHandshake makes the device send ACK first and only deliver the
// response after receiving ENQ.
func WithHandshake() DeviceOption {
	return func(d *device) { d.handshake = true }
}

// WithChunks delivers responses n bytes per read.
func WithChunks(n int) DeviceOption {
	return func(d *device) { d.chunk = n }
}

// NewDevice returns a Port that answers every framed request with a
// framed response built by respond.
func NewDevice(respond Responder, opts ...DeviceOption) *Port {
	d := &device{respond: respond}
	for _, opt := range opts {
		opt(d)
	}
	p := NewPort()
	p.OnWrite = d.onWrite
	return p
}

func (d *device) onWrite(p *Port, b []byte) {
	switch {
	case len(b) > 0 && b[0] == frame.STX:
		payload, err := frame.Payload(b)
		if err != nil {
			return
		}
		resp, err := frame.Build(d.respond(payload))
		if err != nil {
			return
		}
		if d.handshake {
			d.pending = resp
			p.Queue([]byte{frame.ACK})
			return
		}
		d.deliver(p, resp)
	case bytes.Equal(b, []byte{frame.ENQ}) && d.pending != nil:
		resp := d.pending
		d.pending = nil
		d.deliver(p, resp)
	}
}

func (d *device) deliver(p *Port, resp []byte) {
	if d.chunk > 0 {
		p.Queue(Split(resp, d.chunk)...)
		return
	}
	p.Queue(resp)
}

// Reply builds the conventional response payload: echoed command, status,
// then data.
func Reply(command, status byte, data ...byte) []byte {
	return append([]byte{command, status}, data...)
}
