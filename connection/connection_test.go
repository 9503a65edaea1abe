package connection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietwire/miniqtt/buffer"
	"github.com/quietwire/miniqtt/encoding"
	"github.com/quietwire/miniqtt/transport"
)

func TestConnection_SendThenReceivePublish(t *testing.T) {
	clientStream, serverStream := transport.Pipe()
	clientConn := New(clientStream)
	serverConn := New(serverStream)
	defer clientConn.Close()
	defer serverConn.Close()

	pub := &encoding.PublishPacket{QoS: encoding.QoS0, Topic: "a/b", Payload: []byte("hi")}

	sendErr := make(chan error, 1)
	go func() { sendErr <- clientConn.Send(pub) }()

	got, err := serverConn.Receive(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-sendErr)

	assert.Equal(t, KindPublish, got.Kind)
	assert.Equal(t, "a/b", got.Publish.Topic)
	assert.Equal(t, []byte("hi"), got.Publish.Payload)
}

func TestConnection_ReceiveCompactionAcrossTwoPackets(t *testing.T) {
	clientStream, serverStream := transport.Pipe()
	clientConn := New(clientStream)
	serverConn := New(serverStream)
	defer clientConn.Close()
	defer serverConn.Close()

	go func() {
		_ = clientConn.Send(&encoding.PublishPacket{Topic: "t1", Payload: []byte("111")})
		_ = clientConn.Send(&encoding.PublishPacket{Topic: "t2", Payload: []byte("2222")})
	}()

	first, err := serverConn.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", first.Publish.Topic)

	second, err := serverConn.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t2", second.Publish.Topic)
	assert.Equal(t, []byte("2222"), second.Publish.Payload)
}

func TestConnection_ReceiveAfterCloseIsDisconnected(t *testing.T) {
	clientStream, serverStream := transport.Pipe()
	conn := New(serverStream)
	_ = clientStream.Close()
	conn.Close()

	_, err := conn.Receive(context.Background())
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestConnection_SendAfterCloseIsDisconnected(t *testing.T) {
	clientStream, serverStream := transport.Pipe()
	defer clientStream.Close()
	conn := New(serverStream)
	conn.Close()

	err := conn.Send(&encoding.DisconnectPacket{ReasonCode: encoding.DisconnectNormal})
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestConnection_InsufficientBufferSizeOnOversizedPacket(t *testing.T) {
	clientStream, serverStream := transport.Pipe()
	defer clientStream.Close()
	defer serverStream.Close()

	clientConn := New(clientStream)
	conn := NewWithBuffer(serverStream, buffer.NewFixed(8))

	pub := &encoding.PublishPacket{Topic: "topic", Payload: []byte("hello")} // 13-byte body, 15 bytes on the wire, needs >8
	go func() { _ = clientConn.Send(pub) }()

	_, err := conn.Receive(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientBufferSize)
}

func TestConnection_ReceiveSurfacesProtocolErrorForOverLongPropertyBlock(t *testing.T) {
	clientStream, serverStream := transport.Pipe()
	defer clientStream.Close()
	conn := New(serverStream)
	defer conn.Close()

	// CONNACK fixed header (type 2, remaining length 4) followed by ack
	// flags, reason success, and a property-block length varint (10) that
	// claims more bytes than the 1 remaining in this already-complete
	// packet. Receive must report this as a protocol error immediately,
	// not loop forever waiting for bytes the peer will never send.
	body := []byte{0x00, 0x00, 0x0A, 0x11}
	fh := encoding.FixedHeader{Type: encoding.PacketConnAck, RemainingLength: uint32(len(body))}
	raw := fh.Encode(nil)
	raw = append(raw, body...)
	go func() { _ = clientStream.WriteAll(raw) }()

	_, err := conn.Receive(context.Background())
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
	assert.ErrorIs(t, err, encoding.ErrPropertyBlockOverrun)
}

func TestConnection_ReceiveHonorsCancelledContext(t *testing.T) {
	_, serverStream := transport.Pipe()
	defer serverStream.Close()
	conn := New(serverStream)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conn.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
