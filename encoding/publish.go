package encoding

// PUBLISH packet. Encoded for QoS 0 client sends (client.Send); decoded
// for any QoS the server forwards to us (client.Receive).

// PublishPacket is a PUBLISH packet, either about to be sent (Dup/Retain
// client-controlled, QoS fixed at 0 for the client's own sends) or just
// decoded off the wire (any QoS, PacketID present iff QoS>0).
type PublishPacket struct {
	Dup        bool
	QoS        QoS
	Retain     bool
	PacketID   uint16 // meaningful iff QoS > 0
	Topic      string
	Properties []ConnectProperty // encoded as given; never filled on decode (the block is skipped)
	Payload    []byte
}

func (p *PublishPacket) Type() PacketType { return PacketPublish }

func (p *PublishPacket) Flags() byte {
	var f byte
	if p.Dup {
		f |= 1 << 3
	}
	f |= byte(p.QoS) << 1
	if p.Retain {
		f |= 1
	}
	return f
}

// Size returns the PUBLISH body length for an outgoing QoS 0 publish (the
// only case client.Send constructs).
func (p *PublishPacket) Size() int {
	n := sizeEncodedStr(p.Topic)
	if p.QoS > QoS0 {
		n += 2
	}
	n += sizePropertyList(p.Properties)
	n += len(p.Payload)
	return n
}

func (p *PublishPacket) AppendBody(dst []byte) []byte {
	dst = appendEncodedStr(dst, p.Topic)
	if p.QoS > QoS0 {
		dst = appendU16BE(dst, p.PacketID)
	}
	dst = appendPropertyList(dst, p.Properties)
	return append(dst, p.Payload...)
}

// DecodePublish parses a PUBLISH packet given its fixed header (already
// carrying the decoded DUP/QoS/RETAIN flags) and the RemainingLength bytes
// following it. The returned Payload borrows from data; copy it out before
// the next Connection.Receive call reuses the backing buffer. Topic is a
// copied Go string and does not borrow.
func DecodePublish(fh FixedHeader, data []byte) (PublishPacket, int, error) {
	if err := expectType(fh, PacketPublish); err != nil {
		return PublishPacket{}, 0, err
	}
	qos := QoS((fh.Flags >> 1) & 0x03)
	if !qos.Valid() {
		return PublishPacket{}, 0, ErrInvalidQoS
	}
	c := NewCursor(data)
	topic, err := c.ReadEncodedStr()
	if err != nil {
		return PublishPacket{}, 0, err
	}
	var packetID uint16
	if qos > QoS0 {
		packetID, err = c.ReadU16BE()
		if err != nil {
			return PublishPacket{}, 0, err
		}
	}
	if _, err := c.SkipProperties(); err != nil {
		return PublishPacket{}, 0, err
	}
	// Payload is whatever remains: remaining_length minus bytes consumed
	// since the fixed header end.
	consumed := c.Position()
	if consumed > int(fh.RemainingLength) {
		return PublishPacket{}, 0, ErrMalformedVarInt
	}
	payloadLen := int(fh.RemainingLength) - consumed
	payload, err := c.ReadSlice(payloadLen)
	if err != nil {
		return PublishPacket{}, 0, err
	}
	return PublishPacket{
		Dup:      fh.Flags&(1<<3) != 0,
		QoS:      qos,
		Retain:   fh.Flags&1 != 0,
		PacketID: packetID,
		Topic:    topic,
		Payload:  payload,
	}, c.Position(), nil
}
