// Package cdm maps CDM-4000 dispenser commands onto the link Request
// primitive.
//
// Every command is one exchange: send the command byte plus opaque
// arguments, read one verified frame, acknowledge it. The response echoes
// the command byte and carries a status code at frame offset 3; this package
// names the codes and leaves pass/fail decisions to callers via
// Response.Err.
package cdm
