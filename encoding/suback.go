package encoding

// SUBACK packet. Server-to-client only.

// SubAckPacket is the decoded SUBACK body: the matching packet identifier
// and one reason code per requested filter, in request order. The reason
// codes are surfaced to the caller rather than discarded, so a rejected
// subscription is visible instead of silently granted.
type SubAckPacket struct {
	PacketID    uint16
	ReasonCodes []SubAckReasonCode
}

func DecodeSubAck(fh FixedHeader, data []byte) (SubAckPacket, int, error) {
	if err := expectType(fh, PacketSubAck); err != nil {
		return SubAckPacket{}, 0, err
	}
	c := NewCursor(data)
	packetID, err := c.ReadU16BE()
	if err != nil {
		return SubAckPacket{}, 0, err
	}
	if _, err := c.SkipProperties(); err != nil {
		return SubAckPacket{}, 0, err
	}
	consumed := c.Position()
	if consumed > int(fh.RemainingLength) {
		return SubAckPacket{}, 0, ErrMalformedVarInt
	}
	n := int(fh.RemainingLength) - consumed
	raw, err := c.ReadSlice(n)
	if err != nil {
		return SubAckPacket{}, 0, err
	}
	codes := make([]SubAckReasonCode, len(raw))
	for i, b := range raw {
		codes[i] = SubAckReasonCode(b)
	}
	return SubAckPacket{PacketID: packetID, ReasonCodes: codes}, c.Position(), nil
}
