// Package protocol implements the binary framing spoken between sKV clients
// and the server.
//
// Every message on the wire is a frame: a little-endian uint32 holding the
// length of the body followed by the body itself. Frames larger than
// MaxMessageSize are a protocol violation.
//
// Request body:
//
//	argc:u32 | (len:u32 | bytes) * argc
//
// Response body, a single tagged value:
//
//	NIL (0)  no payload
//	ERR (1)  code:i32 | len:u32 | message
//	STR (2)  len:u32 | bytes
//	INT (3)  value:i64
//	DBL (4)  value:f64 (IEEE-754 bits)
//	ARR (5)  count:u32 | count tagged values
//
// The server writes responses directly into the outbound buffer of a
// connection with an Encoder. Clients decode responses into Value trees with
// DecodeValue, which walks nested arrays with an explicit work stack so
// adversarial nesting cannot exhaust the goroutine stack.
//
// Errors:
//
//	ErrIncomplete is returned while a frame is not fully buffered yet and is the
//	only error that is not a protocol violation. ErrTooBig and every error
//	wrapping ErrProtocol mean the peer must be disconnected.
package protocol
