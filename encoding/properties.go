package encoding

// MQTT v5 properties: a length-prefixed list of identifier-byte-tagged
// values. Ordering is preserved on write and UserProperty may repeat.
//
// Only the property families the client actually emits (CONNECT and Will)
// are modeled as typed values here. Server-sent packets (CONNACK/
// PUBLISH/SUBACK) have their property blocks read for length and skipped
// rather than parsed field-by-field (see Cursor.SkipProperties), since
// this client doesn't yet act on any of them.

// PropertyID is the single identifier byte that precedes every property's
// payload on the wire.
type PropertyID byte

// CONNECT property identifiers.
const (
	PropSessionExpiryInterval      PropertyID = 0x11
	PropAuthenticationMethod       PropertyID = 0x15
	PropAuthenticationData         PropertyID = 0x16
	PropRequestProblemInformation  PropertyID = 0x17
	PropRequestResponseInformation PropertyID = 0x19
	PropReceiveMaximum             PropertyID = 0x21
	PropTopicAliasMaximum          PropertyID = 0x22
	PropUserProperty               PropertyID = 0x26
	PropMaximumPacketSize          PropertyID = 0x27
)

// Will property identifiers.
const (
	PropPayloadFormatIndicator PropertyID = 0x01
	PropMessageExpiryInterval  PropertyID = 0x02
	PropContentType            PropertyID = 0x03
	PropResponseTopic          PropertyID = 0x08
	PropCorrelationData        PropertyID = 0x09
	PropWillDelayInterval      PropertyID = 0x18
)

// ConnectProperty is a single CONNECT packet property. Exactly one of the
// typed fields is meaningful, selected by ID; use the constructors below
// rather than building one by hand.
type ConnectProperty struct {
	ID     PropertyID
	U32    uint32
	U16    uint16
	U8     byte
	Str    string
	Bin    []byte
	KV     [2]string // UserProperty key/value
}

func SessionExpiryInterval(seconds uint32) ConnectProperty {
	return ConnectProperty{ID: PropSessionExpiryInterval, U32: seconds}
}

func AuthenticationMethod(method string) ConnectProperty {
	return ConnectProperty{ID: PropAuthenticationMethod, Str: method}
}

func AuthenticationData(data []byte) ConnectProperty {
	return ConnectProperty{ID: PropAuthenticationData, Bin: data}
}

func RequestProblemInformation(request bool) ConnectProperty {
	return ConnectProperty{ID: PropRequestProblemInformation, U8: boolByte(request)}
}

func RequestResponseInformation(request bool) ConnectProperty {
	return ConnectProperty{ID: PropRequestResponseInformation, U8: boolByte(request)}
}

func ReceiveMaximum(max uint16) ConnectProperty {
	return ConnectProperty{ID: PropReceiveMaximum, U16: max}
}

func TopicAliasMaximum(max uint16) ConnectProperty {
	return ConnectProperty{ID: PropTopicAliasMaximum, U16: max}
}

func UserProperty(key, value string) ConnectProperty {
	return ConnectProperty{ID: PropUserProperty, KV: [2]string{key, value}}
}

func MaximumPacketSize(max uint32) ConnectProperty {
	return ConnectProperty{ID: PropMaximumPacketSize, U32: max}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (p ConnectProperty) sizeProp() int {
	switch p.ID {
	case PropSessionExpiryInterval, PropMaximumPacketSize:
		return 1 + 4
	case PropReceiveMaximum, PropTopicAliasMaximum:
		return 1 + 2
	case PropRequestProblemInformation, PropRequestResponseInformation:
		return 1 + 1
	case PropAuthenticationMethod:
		return 1 + sizeEncodedStr(p.Str)
	case PropAuthenticationData:
		return 1 + sizeBinaryData(p.Bin)
	case PropUserProperty:
		return 1 + sizeEncodedStr(p.KV[0]) + sizeEncodedStr(p.KV[1])
	default:
		return 0
	}
}

func (p ConnectProperty) encodeProp(dst []byte) []byte {
	dst = appendU8(dst, byte(p.ID))
	switch p.ID {
	case PropSessionExpiryInterval, PropMaximumPacketSize:
		return appendU32BE(dst, p.U32)
	case PropReceiveMaximum, PropTopicAliasMaximum:
		return appendU16BE(dst, p.U16)
	case PropRequestProblemInformation, PropRequestResponseInformation:
		return appendU8(dst, p.U8)
	case PropAuthenticationMethod:
		return appendEncodedStr(dst, p.Str)
	case PropAuthenticationData:
		return appendBinaryData(dst, p.Bin)
	case PropUserProperty:
		dst = appendEncodedStr(dst, p.KV[0])
		return appendEncodedStr(dst, p.KV[1])
	default:
		return dst
	}
}

// WillProperty is a single Will-message property.
type WillProperty struct {
	ID  PropertyID
	U32 uint32
	U8  byte
	Str string
	Bin []byte
	KV  [2]string
}

func WillPayloadFormatIndicator(isUTF8 bool) WillProperty {
	return WillProperty{ID: PropPayloadFormatIndicator, U8: boolByte(isUTF8)}
}

func WillMessageExpiryInterval(seconds uint32) WillProperty {
	return WillProperty{ID: PropMessageExpiryInterval, U32: seconds}
}

func WillContentType(contentType string) WillProperty {
	return WillProperty{ID: PropContentType, Str: contentType}
}

func WillResponseTopic(topic string) WillProperty {
	return WillProperty{ID: PropResponseTopic, Str: topic}
}

func WillCorrelationData(data []byte) WillProperty {
	return WillProperty{ID: PropCorrelationData, Bin: data}
}

func WillDelayInterval(seconds uint32) WillProperty {
	return WillProperty{ID: PropWillDelayInterval, U32: seconds}
}

func WillUserProperty(key, value string) WillProperty {
	return WillProperty{ID: PropUserProperty, KV: [2]string{key, value}}
}

func (p WillProperty) sizeProp() int {
	switch p.ID {
	case PropMessageExpiryInterval, PropWillDelayInterval:
		return 1 + 4
	case PropPayloadFormatIndicator:
		return 1 + 1
	case PropContentType, PropResponseTopic:
		return 1 + sizeEncodedStr(p.Str)
	case PropCorrelationData:
		return 1 + sizeBinaryData(p.Bin)
	case PropUserProperty:
		return 1 + sizeEncodedStr(p.KV[0]) + sizeEncodedStr(p.KV[1])
	default:
		return 0
	}
}

func (p WillProperty) encodeProp(dst []byte) []byte {
	dst = appendU8(dst, byte(p.ID))
	switch p.ID {
	case PropMessageExpiryInterval, PropWillDelayInterval:
		return appendU32BE(dst, p.U32)
	case PropPayloadFormatIndicator:
		return appendU8(dst, p.U8)
	case PropContentType, PropResponseTopic:
		return appendEncodedStr(dst, p.Str)
	case PropCorrelationData:
		return appendBinaryData(dst, p.Bin)
	case PropUserProperty:
		dst = appendEncodedStr(dst, p.KV[0])
		return appendEncodedStr(dst, p.KV[1])
	default:
		return dst
	}
}

type encodableProperty interface {
	encodeProp(dst []byte) []byte
	sizeProp() int
}

// sizePropertyList returns the wire size of a property list: the varint
// length prefix plus the sum of each property's encoded size.
func sizePropertyList[T encodableProperty](props []T) int {
	total := 0
	for _, p := range props {
		total += p.sizeProp()
	}
	return SizeVarInt(uint32(total)) + total
}

// appendPropertyList appends a length-prefixed property list: a varint
// byte-length followed by the properties in order.
func appendPropertyList[T encodableProperty](dst []byte, props []T) []byte {
	total := 0
	for _, p := range props {
		total += p.sizeProp()
	}
	dst = EncodeVarInt(dst, uint32(total))
	for _, p := range props {
		dst = p.encodeProp(dst)
	}
	return dst
}

// SkipProperties reads a property-block length and advances past its
// contents without interpreting them. Returns the number of bytes the
// block occupied including its length prefix.
//
// Every caller hands SkipProperties a Cursor built over a packet body
// already bounded to the fixed header's RemainingLength (see
// connection.Receive's tryDecode, which only attempts a body decode once
// the whole packet is known to be present). So a property-block length
// that claims more bytes than remain in the cursor can never be fixed by
// reading more off the wire: it is a malformed packet, not a short read,
// and must be reported as such rather than as ErrNotEnoughData.
func (c *Cursor) SkipProperties() (int, error) {
	start := c.pos
	length, err := c.ReadVarInt()
	if err != nil {
		return 0, err
	}
	if int(length) > c.Remaining() {
		return 0, ErrPropertyBlockOverrun
	}
	if _, err := c.ReadSlice(int(length)); err != nil {
		return 0, err
	}
	return c.pos - start, nil
}
