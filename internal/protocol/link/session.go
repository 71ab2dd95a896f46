package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/cdmctl/internal/observability"
	"github.com/danmuck/cdmctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultChunkSize = 64

var tracer = otel.Tracer("github.com/danmuck/cdmctl/internal/protocol/link")

// Session owns the stream to one device. The port is opened on first use,
// kept across calls and released only by Close.
//
// All exported methods serialize on one mutex: interleaved reads and writes
// on a half-duplex line corrupt framing.
type Session struct {
	cfg       Config
	open      Opener
	chunkSize int

	mu   sync.Mutex
	port Port
}

func NewSession(cfg Config, opts ...Option) *Session {
	s := &Session{
		cfg:       cfg,
		open:      OpenSerial,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Config() Config {
	return s.cfg
}

// Open acquires the port now instead of on first use. Opening an already
// open session is a no-op.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.ensureOpen()
	return err
}

// Close releases the port. The next call reopens it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	if err != nil {
		return &TransportError{Op: OpClose, Path: s.cfg.Path, Err: err}
	}
	log.Debug().Str("path", s.cfg.Path).Msg("link.close")
	return nil
}

func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// Send writes payload to the device. A payload led by a control byte (ACK or
// ENQ) is a control message and goes out raw; anything else is framed.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, payload)
}

// Read blocks until a complete frame arrives, answering any leading ACK with
// ENQ. The frame is verified unless SkipVerify is passed.
func (s *Session) Read(ctx context.Context, opts ...ReadOption) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx, opts...)
}

// Ack writes a bare ACK; no response is expected.
func (s *Session) Ack(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ack(ctx)
}

// Request sends payload, reads one verified response frame and acknowledges
// it. The raw frame bytes are returned; status interpretation is left to the
// caller. No ACK is sent when the read fails.
func (s *Session) Request(ctx context.Context, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	command := commandLabel(payload)
	ctx, span := tracer.Start(ctx, "link.Request", trace.WithAttributes(
		attribute.String("cdm.command", command),
		attribute.Int("cdm.payload_len", len(payload)),
		attribute.String("cdm.device", s.cfg.Path),
	))
	defer span.End()

	start := time.Now()
	resp, err := s.request(ctx, payload)
	observability.RecordLinkRequest(command, resultLabel(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Str("path", s.cfg.Path).Str("command", command).Msg("link.request failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("cdm.response_len", len(resp)))
	return resp, nil
}

func (s *Session) request(ctx context.Context, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	port, err := s.ensureOpen()
	if err != nil {
		return nil, err
	}
	// A reply left behind by an abandoned exchange must not be read as the
	// answer to this one.
	if err := s.drain(port, 0); err != nil {
		return nil, err
	}
	if err := s.send(ctx, payload); err != nil {
		return nil, err
	}
	resp, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.ack(ctx); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Session) send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wire := payload
	if len(payload) == 0 || !frame.IsControl(payload[0]) {
		var err error
		if wire, err = frame.Build(payload); err != nil {
			return err
		}
	}
	port, err := s.ensureOpen()
	if err != nil {
		return err
	}
	log.Debug().Str("path", s.cfg.Path).Hex("bytes", wire).Msg("link.send")
	return s.write(port, wire)
}

func (s *Session) ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	port, err := s.ensureOpen()
	if err != nil {
		return err
	}
	log.Debug().Str("path", s.cfg.Path).Msg("link.ack")
	return s.write(port, []byte{frame.ACK})
}

func (s *Session) read(ctx context.Context, opts ...ReadOption) ([]byte, error) {
	cfg := readConfig{verify: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	port, err := s.ensureOpen()
	if err != nil {
		return nil, err
	}

	chunk := make([]byte, s.chunkSize)
	var acc []byte
	trailing := 0
poll:
	for {
		if err := ctx.Err(); err != nil {
			// A reply still in flight must not be read by the next exchange.
			if derr := s.drain(port, len(acc)); derr != nil {
				log.Warn().Err(derr).Str("path", s.cfg.Path).Msg("link.read abandon")
			}
			return nil, err
		}
		n, err := port.Read(chunk)
		if err != nil {
			return nil, &TransportError{Op: OpRead, Path: s.cfg.Path, Err: err}
		}
		if n == 0 {
			// Read timed out; the port timeout bounds each poll.
			continue
		}
		log.Trace().Str("path", s.cfg.Path).Hex("bytes", chunk[:n]).Msg("link.read chunk")
		for i := 0; i < n; i++ {
			acc = append(acc, chunk[i])
			if acc[0] == frame.ACK {
				// The device asks whether we are still there; ENQ makes it
				// send the real response. Bytes after the ACK keep feeding
				// the accumulator so chunking never changes the result.
				observability.RecordHandshake()
				log.Debug().Str("path", s.cfg.Path).Msg("link.handshake ack->enq")
				if err := s.write(port, []byte{frame.ENQ}); err != nil {
					return nil, err
				}
				acc = acc[:0]
				continue
			}
			if frame.Complete(acc) {
				trailing = n - i - 1
				break poll
			}
		}
	}

	if err := s.drain(port, trailing); err != nil {
		return nil, err
	}
	if cfg.verify {
		if err := frame.Verify(acc); err != nil {
			observability.RecordFrameError(reasonLabel(err))
			log.Warn().Err(err).Str("path", s.cfg.Path).Hex("bytes", acc).Msg("link.read rejected frame")
			return nil, err
		}
	}
	log.Debug().Str("path", s.cfg.Path).Hex("bytes", acc).Bool("verified", cfg.verify).Msg("link.read")
	return acc, nil
}

// drain discards input beyond the recognized frame: bytes left over in the
// last chunk plus anything the driver has buffered.
func (s *Session) drain(port Port, trailing int) error {
	if trailing > 0 {
		log.Debug().Str("path", s.cfg.Path).Int("discarded", trailing).Msg("link.drain trailing bytes")
	}
	if err := port.ResetInputBuffer(); err != nil {
		return &TransportError{Op: OpFlush, Path: s.cfg.Path, Err: err}
	}
	return nil
}

func (s *Session) write(port Port, b []byte) error {
	n, err := port.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &TransportError{Op: OpWrite, Path: s.cfg.Path, Err: err}
	}
	return nil
}

func (s *Session) ensureOpen() (Port, error) {
	if s.port != nil {
		return s.port, nil
	}
	port, err := s.open(s.cfg)
	if err != nil {
		return nil, &TransportError{Op: OpOpen, Path: s.cfg.Path, Err: err}
	}
	if port == nil {
		return nil, &TransportError{Op: OpOpen, Path: s.cfg.Path, Err: errors.New("opener returned nil port")}
	}
	s.port = port
	log.Info().Str("path", s.cfg.Path).Int("baud", s.cfg.BaudRate).Dur("read_timeout", s.cfg.ReadTimeout).Msg("link.open")
	return port, nil
}

func commandLabel(payload []byte) string {
	if len(payload) == 0 {
		return "none"
	}
	return fmt.Sprintf("0x%02X", payload[0])
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, frame.ErrMalformed):
		return "frame_error"
	case errors.Is(err, frame.ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, frame.ErrShortFrame):
		return "short_frame"
	case errors.Is(err, frame.ErrBadStart):
		return "bad_start"
	case errors.Is(err, frame.ErrBadEnd):
		return "bad_end"
	case errors.Is(err, frame.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, frame.ErrChecksumMismatch):
		return "checksum_mismatch"
	default:
		return "unknown"
	}
}
