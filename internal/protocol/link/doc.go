// Package link owns the half-duplex conversation with one dispenser.
//
// Ownership boundary:
// - stream handle lifecycle (lazy open, explicit close)
// - send/read/ack primitives and the ACK->ENQ re-synchronization
// - the Request primitive every device command is built from
//
// Frame encoding and validation live in internal/protocol/frame. Status
// codes inside responses are left to callers (see internal/cdm).
package link
