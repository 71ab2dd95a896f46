package frame

import (
	"errors"
	"fmt"
)

// Wire sentinels and control bytes.
const (
	STX byte = 0x02
	ETX byte = 0x03
	ENQ byte = 0x05
	ACK byte = 0x06
)

const (
	// Overhead is STX + LEN + ETX + BCC.
	Overhead      = 4
	MinFrameLen   = Overhead
	MaxPayloadLen = 0xFF
)

var (
	// ErrMalformed is the class every structural decode error wraps.
	ErrMalformed        = errors.New("frame: malformed")
	ErrShortFrame       = fmt.Errorf("%w: short frame", ErrMalformed)
	ErrBadStart         = fmt.Errorf("%w: bad start byte", ErrMalformed)
	ErrBadEnd           = fmt.Errorf("%w: bad end byte", ErrMalformed)
	ErrLengthMismatch   = fmt.Errorf("%w: length mismatch", ErrMalformed)
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", ErrMalformed)

	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Build encodes payload as STX, LEN, payload, ETX, BCC.
func Build(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadLen)
	}
	buf := make([]byte, 0, len(payload)+Overhead)
	buf = append(buf, STX, byte(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, ETX)
	// BCC spans LEN..ETX; STX is excluded.
	buf = append(buf, Checksum(buf[1:]))
	return buf, nil
}

// Verify checks data against the framing invariants in wire order and
// returns the first violation. Device status codes are not inspected.
func Verify(data []byte) error {
	n := len(data)
	if n < MinFrameLen {
		return fmt.Errorf("%w: %d bytes", ErrShortFrame, n)
	}
	if data[0] != STX {
		return fmt.Errorf("%w: got 0x%02X", ErrBadStart, data[0])
	}
	if data[n-2] != ETX {
		return fmt.Errorf("%w: got 0x%02X", ErrBadEnd, data[n-2])
	}
	if span := n - Overhead; int(data[1]) != span {
		return fmt.Errorf("%w: declared=%d actual=%d", ErrLengthMismatch, data[1], span)
	}
	if sum := Checksum(data[1 : n-1]); sum != data[n-1] {
		return fmt.Errorf("%w: computed=0x%02X received=0x%02X", ErrChecksumMismatch, sum, data[n-1])
	}
	return nil
}

// Payload verifies data and returns its payload span. The returned slice
// aliases data.
func Payload(data []byte) ([]byte, error) {
	if err := Verify(data); err != nil {
		return nil, err
	}
	return data[2 : len(data)-2], nil
}

// Complete reports whether buf ends like a frame: ETX in the second-to-last
// position of at least MinFrameLen bytes. The floor keeps a LEN of 0x03 from
// reading as ETX. An ETX value inside the payload can still end the frame
// early; Verify catches the resulting truncation.
func Complete(buf []byte) bool {
	n := len(buf)
	return n >= MinFrameLen && buf[n-2] == ETX
}

// IsControl reports whether b is a standalone control byte.
func IsControl(b byte) bool {
	return b == ACK || b == ENQ
}
