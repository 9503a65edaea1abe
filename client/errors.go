package client

import (
	"errors"

	"github.com/quietwire/miniqtt/connection"
)

// ErrNotConnected is returned by Send/Receive when called before a
// successful Connect, or after Disconnect/Close.
var ErrNotConnected = errors.New("client: not connected")

// UnexpectedPacketError reports that the server replied with a packet kind
// other than the one a request/response operation was awaiting. This is
// always a protocol-level surprise (e.g. a PUBLISH arriving where a SUBACK
// was expected) and the connection should be discarded, same as any other
// connection.ProtocolError.
type UnexpectedPacketError struct {
	Want connection.Kind
	Got  connection.Kind
}

func (e *UnexpectedPacketError) Error() string {
	return "client: expected " + kindName(e.Want) + ", got " + kindName(e.Got)
}

// MismatchedPacketIDError reports that a SUBACK's packet identifier did not
// match the SUBSCRIBE it was supposed to acknowledge.
type MismatchedPacketIDError struct {
	Want uint16
	Got  uint16
}

func (e *MismatchedPacketIDError) Error() string {
	return "client: SUBACK packet identifier mismatch"
}

func kindName(k connection.Kind) string {
	switch k {
	case connection.KindConnAck:
		return "CONNACK"
	case connection.KindPublish:
		return "PUBLISH"
	case connection.KindSubAck:
		return "SUBACK"
	default:
		return "unknown packet"
	}
}
