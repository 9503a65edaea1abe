// Package connection implements the packet framing layer: Send writes one
// packet as a fixed header followed by its body, and Receive incrementally
// decodes one packet out of a reusable buffer.ReceiveBuffer fed by a
// transport.Stream. The packet codecs themselves come from the sibling
// encoding package.
package connection

import "errors"

// ErrDisconnected is returned by Receive when the peer closed the
// transport cleanly (io.EOF) mid-read, and by Send/Receive once Close has
// been called locally.
var ErrDisconnected = errors.New("connection: disconnected")

// ErrInsufficientBufferSize is returned by Receive when the
// buffer.ReceiveBuffer (a fixed-size one, or a growable one at its ceiling)
// cannot grow enough to hold the packet currently being parsed.
var ErrInsufficientBufferSize = errors.New("connection: packet exceeds receive buffer capacity")

// ProtocolError wraps any wire-format violation surfaced by the encoding
// package (malformed varints, bad UTF-8, unknown reason codes, packet type
// mismatches, ...). It is always terminal: the connection must be closed,
// never retried.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return "connection: protocol error: " + e.Err.Error() }
func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError wraps a transport.Stream I/O failure that is not a clean
// disconnect (timeouts, reset connections, ...).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "connection: transport error: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }
