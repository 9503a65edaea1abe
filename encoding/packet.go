package encoding

// OutboundPacket is implemented by every packet type the client can send.
// connection.Connection.Send uses exactly these four methods to frame a
// packet: compute Size(), write a FixedHeader built from
// (Type(), Flags(), Size()), then AppendBody.
type OutboundPacket interface {
	Type() PacketType
	Flags() byte
	Size() int
	AppendBody(dst []byte) []byte
}

// Encode renders p's full wire form (fixed header plus body) into a single
// slice, appended to dst. connection.Connection.Send builds every outgoing
// packet with it and writes the result in one WriteAll call; codec tests
// also use it directly.
func Encode(p OutboundPacket, dst []byte) []byte {
	fh := FixedHeader{Type: p.Type(), Flags: p.Flags(), RemainingLength: uint32(p.Size())}
	dst = fh.Encode(dst)
	return p.AppendBody(dst)
}

var (
	_ OutboundPacket = (*ConnectPacket)(nil)
	_ OutboundPacket = (*PublishPacket)(nil)
	_ OutboundPacket = (*SubscribePacket)(nil)
	_ OutboundPacket = (*DisconnectPacket)(nil)
)
