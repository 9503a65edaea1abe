package connection

import (
	"context"
	"errors"
	"io"

	"github.com/quietwire/miniqtt/buffer"
	"github.com/quietwire/miniqtt/encoding"
	"github.com/quietwire/miniqtt/transport"
)

// errUnsupportedInbound is a ProtocolError cause for a structurally valid
// fixed header whose packet type this client never expects to receive
// (PUBACK/PUBREC/PUBREL/PUBCOMP/PINGRESP/AUTH: no codec exists for them).
var errUnsupportedInbound = errors.New("connection: no decoder for this inbound packet type")

// DefaultBufferSize and DefaultBufferCeiling seed a Connection's receive
// buffer.ReceiveBuffer.
const (
	DefaultBufferSize    = 256
	DefaultBufferCeiling = 64 * 1024
)

// Connection is the framing layer: one packet at a time in either
// direction, over an abstract transport.Stream. It owns no goroutines;
// Send and Receive both run synchronously on the caller's goroutine (a
// Connection is borrowed exclusively for the duration of each call).
type Connection struct {
	stream transport.Stream
	rx     *buffer.ReceiveBuffer
	txBuf  []byte
	closed bool
}

// New wraps stream with a growable receive buffer of the default size and
// ceiling.
func New(stream transport.Stream) *Connection {
	return NewWithBuffer(stream, buffer.NewGrowable(DefaultBufferSize, DefaultBufferCeiling))
}

// NewWithBuffer wraps stream with a caller-supplied buffer.ReceiveBuffer,
// letting constrained environments cap memory with buffer.NewFixed or a
// tightly bounded buffer.NewGrowable ceiling.
func NewWithBuffer(stream transport.Stream, rx *buffer.ReceiveBuffer) *Connection {
	return &Connection{stream: stream, rx: rx}
}

// Close releases the underlying transport. A Connection is not usable
// after Close; Send/Receive return ErrDisconnected.
func (c *Connection) Close() error {
	c.closed = true
	return c.stream.Close()
}

// Send frames p as a fixed header followed by its body and writes it in
// full. Not cancel-safe: a partial write has already left the wire and
// cannot be un-sent.
func (c *Connection) Send(p encoding.OutboundPacket) error {
	if c.closed {
		return ErrDisconnected
	}
	c.txBuf = encoding.Encode(p, c.txBuf[:0])
	if err := c.stream.WriteAll(c.txBuf); err != nil {
		return wrapTransportErr(err)
	}
	return nil
}

// Receive decodes exactly one packet, reading from the transport as
// needed. It compacts the receive buffer on entry (not on exit) so the
// Inbound value returned by the previous call stays valid until this call
// is made.
//
// Receive is cancel-safe: cancelling ctx before a byte has arrived drops
// no data, because nothing has been consumed from rx yet. A
// transport.Stream built over a real socket can only honor cancellation to
// the extent its Read respects deadlines; transport.TCPStream does this
// via WithReadDeadline.
func (c *Connection) Receive(ctx context.Context) (Inbound, error) {
	if c.closed {
		return Inbound{}, ErrDisconnected
	}
	c.rx.Compact()
	for {
		if err := ctx.Err(); err != nil {
			return Inbound{}, err
		}
		pkt, n, err := tryDecode(c.rx.Data())
		if err == nil {
			c.rx.MarkConsumed(n)
			return pkt, nil
		}
		if !errors.Is(err, encoding.ErrNotEnoughData) {
			return Inbound{}, &ProtocolError{Err: err}
		}
		if len(c.rx.Free()) == 0 {
			if growErr := c.rx.Grow(); growErr != nil {
				return Inbound{}, ErrInsufficientBufferSize
			}
		}
		read, err := c.stream.Read(c.rx.Free())
		if err != nil {
			return Inbound{}, wrapTransportErr(err)
		}
		if read == 0 {
			return Inbound{}, ErrDisconnected
		}
		c.rx.Advance(read)
	}
}

// tryDecode attempts to parse one full packet (fixed header plus body) out
// of data without consuming anything from rx itself; the caller marks
// consumption only once decoding has fully succeeded.
func tryDecode(data []byte) (Inbound, int, error) {
	fh, fhLen, err := encoding.DecodeFixedHeader(data)
	if err != nil {
		return Inbound{}, 0, err
	}
	total := fhLen + int(fh.RemainingLength)
	if len(data) < total {
		return Inbound{}, 0, encoding.ErrNotEnoughData
	}
	body := data[fhLen:total]
	switch fh.Type {
	case encoding.PacketConnAck:
		p, _, err := encoding.DecodeConnAck(fh, body)
		if err != nil {
			return Inbound{}, 0, bodyDecodeErr(err)
		}
		return Inbound{Kind: KindConnAck, ConnAck: p}, total, nil
	case encoding.PacketPublish:
		p, _, err := encoding.DecodePublish(fh, body)
		if err != nil {
			return Inbound{}, 0, bodyDecodeErr(err)
		}
		return Inbound{Kind: KindPublish, Publish: p}, total, nil
	case encoding.PacketSubAck:
		p, _, err := encoding.DecodeSubAck(fh, body)
		if err != nil {
			return Inbound{}, 0, bodyDecodeErr(err)
		}
		return Inbound{Kind: KindSubAck, SubAck: p}, total, nil
	default:
		return Inbound{}, 0, errUnsupportedInbound
	}
}

// errMalformedBody reports a body decode that asked for more bytes than
// the packet's own RemainingLength promised. body is always sliced to
// exactly RemainingLength before a body decoder runs (above), so this can
// never be cured by reading more off the wire: it is a malformed packet,
// not a short read.
var errMalformedBody = errors.New("connection: packet body shorter than its declared remaining length requires")

// bodyDecodeErr re-reports an encoding.ErrNotEnoughData surfaced from a
// body decoder as errMalformedBody, so the Receive loop's
// errors.Is(err, encoding.ErrNotEnoughData) check routes it to
// ProtocolError instead of looping for more bytes that will never come.
func bodyDecodeErr(err error) error {
	if errors.Is(err, encoding.ErrNotEnoughData) {
		return errMalformedBody
	}
	return err
}

func wrapTransportErr(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrDisconnected
	}
	return &TransportError{Err: err}
}
