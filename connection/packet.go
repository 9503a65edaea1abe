package connection

import "github.com/quietwire/miniqtt/encoding"

// Kind identifies which field of an Inbound is populated. Go has no sum
// types, so Receive returns a small tagged struct instead of an interface,
// matching the closed set of packet kinds a client ever receives.
type Kind int

const (
	KindConnAck Kind = iota
	KindPublish
	KindSubAck
)

// Inbound is one decoded server-to-client packet. Byte-slice fields on the
// embedded packet (PublishPacket.Payload) still borrow from the
// connection's receive buffer, while string fields such as Topic are
// copies; copy out any byte slice the caller needs to keep past the next
// Receive call.
type Inbound struct {
	Kind   Kind
	ConnAck encoding.ConnAckPacket
	Publish encoding.PublishPacket
	SubAck  encoding.SubAckPacket
}
