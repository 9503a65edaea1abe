package encoding

// FixedHeader is the first 2-5 bytes of every MQTT packet: a type+flags
// byte followed by a variable byte integer remaining length, the count of
// bytes that follow the fixed header.
type FixedHeader struct {
	Type            PacketType
	Flags           byte
	RemainingLength uint32
}

// subscribeFixedFlags is the flag nibble MQTT v5 §3.8.1 requires for every
// SUBSCRIBE packet (reserved bits set to this constant).
const subscribeFixedFlags byte = 0b0010

// Encode appends the fixed header's wire bytes to dst.
func (h FixedHeader) Encode(dst []byte) []byte {
	dst = append(dst, byte(h.Type)<<4|(h.Flags&0x0F))
	return EncodeVarInt(dst, h.RemainingLength)
}

// Size returns the encoded length of the fixed header itself (not
// including RemainingLength bytes that follow it).
func (h FixedHeader) Size() int {
	return 1 + SizeVarInt(h.RemainingLength)
}

// DecodeFixedHeader parses a fixed header from the start of data. See
// Cursor for the NotEnoughData/error contract every decoder in this
// package follows.
func DecodeFixedHeader(data []byte) (FixedHeader, int, error) {
	c := NewCursor(data)
	first, err := c.ReadU8()
	if err != nil {
		return FixedHeader{}, 0, err
	}
	rlen, err := c.ReadVarInt()
	if err != nil {
		return FixedHeader{}, 0, err
	}
	return FixedHeader{
		Type:            PacketType(first >> 4),
		Flags:           first & 0x0F,
		RemainingLength: rlen,
	}, c.Position(), nil
}

// expectType validates that a decoded fixed header carries the packet type
// the caller is trying to parse, surfacing an InvalidPacketTypeError
// otherwise.
func expectType(h FixedHeader, want PacketType) error {
	if h.Type != want {
		return &InvalidPacketTypeError{Expected: want, Actual: h.Type}
	}
	return nil
}
