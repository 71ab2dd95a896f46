// Package linktest provides a scripted in-memory Port for exercising the
// link read loop without a serial device.
package linktest

import (
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by Read once every scripted chunk has been
// consumed, so a test never spins forever on an empty line.
var ErrScriptExhausted = errors.New("linktest: read script exhausted")

// Timeout is a scripted chunk that makes Read return 0, nil.
var Timeout = []byte{}

// Port replays queued read chunks and records every write. OnWrite may
// queue replies, emulating a device that answers what it receives.
type Port struct {
	mu      sync.Mutex
	reads   [][]byte
	writes  [][]byte
	resets  int
	closed  bool
	ReadErr error
	// WriteErr fails every Write when set.
	WriteErr  error
	ResetErr  error
	CloseErr  error
	OnWrite   func(p *Port, b []byte)
	readCalls int
}

func NewPort(chunks ...[]byte) *Port {
	p := &Port{}
	p.Queue(chunks...)
	return p
}

// Queue appends chunks to the read script. Each chunk is returned by one
// Read call; Timeout yields an empty read.
func (p *Port) Queue(chunks ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range chunks {
		p.reads = append(p.reads, append([]byte{}, c...))
	}
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readCalls++
	if p.ReadErr != nil {
		return 0, p.ReadErr
	}
	if len(p.reads) == 0 {
		return 0, ErrScriptExhausted
	}
	chunk := p.reads[0]
	n := copy(b, chunk)
	if n < len(chunk) {
		p.reads[0] = chunk[n:]
	} else {
		p.reads = p.reads[1:]
	}
	return n, nil
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.WriteErr != nil {
		err := p.WriteErr
		p.mu.Unlock()
		return 0, err
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	hook := p.OnWrite
	p.mu.Unlock()
	if hook != nil {
		hook(p, b)
	}
	return len(b), nil
}

// ResetInputBuffer drops every chunk still queued.
func (p *Port) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ResetErr != nil {
		return p.ResetErr
	}
	p.resets++
	p.reads = nil
	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseErr
}

// Writes returns a copy of every write in order.
func (p *Port) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	for i, w := range p.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

func (p *Port) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Port) ReadCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readCalls
}

// Pending reports how many scripted chunks remain unread.
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reads)
}

// Split cuts data into chunks of at most size bytes.
func Split(data []byte, size int) [][]byte {
	if size <= 0 {
		size = 1
	}
	var out [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}
