// Package frame owns the dispenser wire frame.
//
// Wire layout:
//
//	byte 0       STX (0x02)
//	byte 1       LEN, payload byte count
//	bytes 2..    payload (LEN bytes, opaque)
//	byte 2+LEN   ETX (0x03)
//	byte 3+LEN   BCC, XOR of bytes 1..2+LEN
//
// ACK (0x06) and ENQ (0x05) travel as single unframed bytes.
//
// Ownership boundary:
// - frame build/verify primitives
// - checksum
// - structural error taxonomy
//
// Nothing here performs I/O; see internal/protocol/link.
package frame
