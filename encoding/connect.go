package encoding

// CONNECT packet (MQTT v5 §3.1). Client-to-server only: this package never
// decodes a CONNECT, it only encodes one. Encoding appends to a
// caller-supplied slice and is sized up front so Connection can compute
// the fixed header's remaining length before writing anything.

const (
	protocolName    = "MQTT"
	protocolVersion = 0x05
)

// Will is the message a broker publishes on the client's behalf if it
// disconnects ungracefully.
type Will struct {
	Retain     bool
	QoS        QoS
	Topic      string
	Payload    []byte
	Properties []WillProperty
}

func (w *Will) size() int {
	return sizePropertyList(w.Properties) + sizeEncodedStr(w.Topic) + sizeBinaryData(w.Payload)
}

func (w *Will) appendBody(dst []byte) []byte {
	dst = appendPropertyList(dst, w.Properties)
	dst = appendEncodedStr(dst, w.Topic)
	return appendBinaryData(dst, w.Payload)
}

// ConnectPacket is the fully-assembled CONNECT packet body, built by
// client.ConnectBuilder.
type ConnectPacket struct {
	ClientID   string
	KeepAlive  uint16
	CleanStart bool
	Will       *Will
	// Username is nil when the CONNECT carries no username.
	Username *string
	// Password is nil when the CONNECT carries no password. A non-nil,
	// empty slice is a present-but-empty password, distinct from absent.
	Password   []byte
	HasPassword bool
	Properties []ConnectProperty
}

func (p *ConnectPacket) Type() PacketType { return PacketConnect }
func (p *ConnectPacket) Flags() byte      { return 0 }

func (p *ConnectPacket) connectFlags() byte {
	var flags byte
	if p.Username != nil {
		flags |= 1 << 7
	}
	if p.HasPassword {
		flags |= 1 << 6
	}
	if p.Will != nil {
		if p.Will.Retain {
			flags |= 1 << 5
		}
		flags |= byte(p.Will.QoS) << 3
		flags |= 1 << 2
	}
	if p.CleanStart {
		flags |= 1 << 1
	}
	return flags
}

// Size returns the CONNECT body length: everything after the fixed
// header.
func (p *ConnectPacket) Size() int {
	n := sizeEncodedStr(protocolName) + 1 /* version */ + 1 /* flags */ + 2 /* keep alive */
	n += sizePropertyList(p.Properties)
	n += sizeEncodedStr(p.ClientID)
	if p.Will != nil {
		n += p.Will.size()
	}
	if p.Username != nil {
		n += sizeEncodedStr(*p.Username)
	}
	if p.HasPassword {
		n += sizeBinaryData(p.Password)
	}
	return n
}

// AppendBody appends the CONNECT packet body to dst.
func (p *ConnectPacket) AppendBody(dst []byte) []byte {
	dst = appendEncodedStr(dst, protocolName)
	dst = appendU8(dst, protocolVersion)
	dst = appendU8(dst, p.connectFlags())
	dst = appendU16BE(dst, p.KeepAlive)
	dst = appendPropertyList(dst, p.Properties)
	dst = appendEncodedStr(dst, p.ClientID)
	if p.Will != nil {
		dst = p.Will.appendBody(dst)
	}
	if p.Username != nil {
		dst = appendEncodedStr(dst, *p.Username)
	}
	if p.HasPassword {
		dst = appendBinaryData(dst, p.Password)
	}
	return dst
}
