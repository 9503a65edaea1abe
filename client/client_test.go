package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietwire/miniqtt/connection"
	"github.com/quietwire/miniqtt/encoding"
	"github.com/quietwire/miniqtt/session"
	"github.com/quietwire/miniqtt/transport"
)

// testServer stands in for the broker side of an in-memory transport.Pipe.
// The real encoding package only parses the three packet kinds a client
// ever receives (CONNACK, PUBLISH, SUBACK — spec.md's "only client->server
// packets are encoded; server->client packets are parsed" non-goal), so it
// has no decoder for a client-sent CONNECT/SUBSCRIBE/DISCONNECT. raw reads
// the fixed header generically (it doesn't care which direction a packet
// flows) to unblock tests without needing a broker-side decoder this
// engine intentionally doesn't provide.
type testServer struct {
	t      *testing.T
	stream transport.Stream
	conn   *connection.Connection
}

func newTestServer(t *testing.T, stream transport.Stream) *testServer {
	return &testServer{t: t, stream: stream, conn: connection.New(stream)}
}

// raw reads one full packet's fixed header and body directly off the
// stream, bypassing connection.Connection's decode (which only covers
// CONNACK/PUBLISH/SUBACK).
func (s *testServer) raw() (encoding.FixedHeader, []byte) {
	s.t.Helper()
	buf := make([]byte, 0, 256)
	tmp := make([]byte, 256)
	for {
		n, err := s.stream.Read(tmp)
		require.NoError(s.t, err)
		buf = append(buf, tmp[:n]...)
		fh, fhLen, err := encoding.DecodeFixedHeader(buf)
		if err == nil && len(buf) >= fhLen+int(fh.RemainingLength) {
			return fh, buf[fhLen : fhLen+int(fh.RemainingLength)]
		}
	}
}

// send writes a server->client packet using the real connection.Connection
// send path (fixed header then body), exactly as a broker would.
func (s *testServer) send(p encoding.OutboundPacket) error {
	return s.conn.Send(p)
}

// receivePublish decodes a client->server PUBLISH (the one client->server
// kind the encoding package can also parse, since PUBLISH flows both
// ways).
func (s *testServer) receivePublish(ctx context.Context) (connection.Inbound, error) {
	return s.conn.Receive(ctx)
}

func (s *testServer) close() { _ = s.conn.Close() }

// newTestPair returns a Client wired to one side of an in-memory
// transport.Pipe and a testServer standing in for the broker on the other
// side, the way the teacher's network/*_test.go suite drives its
// Connection tests over net.Pipe.
func newTestPair(t *testing.T) (*Client, *testServer) {
	t.Helper()
	clientStream, serverStream := transport.Pipe()
	c := New(clientStream, Options{})
	server := newTestServer(t, serverStream)
	t.Cleanup(func() {
		server.close()
		_ = c.Close()
	})
	return c, server
}

func connectSuccessfully(t *testing.T, c *Client, server *testServer) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fh, _ := server.raw()
		require.Equal(t, encoding.PacketConnect, fh.Type)
		require.NoError(t, server.send(&fakeConnAck{sessionPresent: false, reason: encoding.ReasonSuccess}))
	}()
	res, err := c.Connect("test-client").Send(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Successful())
	<-done
}

func TestClient_ConnectSuccessful(t *testing.T) {
	c, server := newTestPair(t)
	connectSuccessfully(t, c, server)
	assert.True(t, c.Connected())
	assert.Equal(t, "test-client", c.ClientID())
}

func TestClient_ConnectRejected(t *testing.T) {
	c, server := newTestPair(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fh, _ := server.raw()
		require.Equal(t, encoding.PacketConnect, fh.Type)
		require.NoError(t, server.send(&fakeConnAck{sessionPresent: false, reason: encoding.ReasonNotAuthorized}))
	}()

	res, err := c.Connect("test-client").Send(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Successful())
	assert.Equal(t, encoding.ReasonNotAuthorized, res.ReasonCode())
	assert.False(t, c.Connected())
	<-done
}

func TestClient_ConnectSessionPresent(t *testing.T) {
	c, server := newTestPair(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = server.raw()
		require.NoError(t, server.send(&fakeConnAck{sessionPresent: true, reason: encoding.ReasonSuccess}))
	}()

	res, err := c.Connect("test-client").ResumeSession(true).Send(context.Background())
	require.NoError(t, err)
	assert.True(t, res.SessionPresent())
	<-done
}

func TestClient_ResumeSessionReseedsIdentifierCounterFromStore(t *testing.T) {
	store := session.NewMemoryStore()

	clientStream, serverStream := transport.Pipe()
	c := New(clientStream, Options{Store: store})
	server := newTestServer(t, serverStream)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = server.raw()
		require.NoError(t, server.send(&fakeConnAck{sessionPresent: false, reason: encoding.ReasonSuccess}))
	}()
	_, err := c.Connect("resumer").Send(context.Background())
	require.NoError(t, err)
	<-done
	c.ids.Resume(54321)
	sess, err := store.Load(context.Background(), "resumer")
	require.NoError(t, err)
	sess.SetNextPacketID(c.ids.Peek())
	require.NoError(t, store.Save(context.Background(), sess))
	server.close()
	_ = c.Close()

	// A fresh Client sharing the same store resumes the persisted
	// watermark instead of starting over at 20000.
	clientStream2, serverStream2 := transport.Pipe()
	c2 := New(clientStream2, Options{Store: store})
	server2 := newTestServer(t, serverStream2)
	t.Cleanup(func() {
		server2.close()
		_ = c2.Close()
	})

	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		fh, _ := server2.raw()
		require.Equal(t, encoding.PacketConnect, fh.Type)
		require.NoError(t, server2.send(&fakeConnAck{sessionPresent: true, reason: encoding.ReasonSuccess}))
	}()
	res, err := c2.Connect("resumer").ResumeSession(true).Send(context.Background())
	require.NoError(t, err)
	assert.True(t, res.SessionPresent())
	<-done2

	assert.EqualValues(t, 54321, c2.ids.Peek())
}

func TestClient_SendAndReceiveRequireConnect(t *testing.T) {
	c, _ := newTestPair(t)
	err := c.Send(context.Background(), "a/b", []byte("hi"))
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Subscribe(context.Background(), "a/b")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_SendRejectsInvalidTopicName(t *testing.T) {
	c, server := newTestPair(t)
	connectSuccessfully(t, c, server)

	err := c.Send(context.Background(), "a/+/b", []byte("x"))
	assert.Error(t, err)
}

func TestClient_SendThenServerReceives(t *testing.T) {
	c, server := newTestPair(t)
	connectSuccessfully(t, c, server)

	recv := make(chan connection.Inbound, 1)
	go func() {
		in, err := server.receivePublish(context.Background())
		require.NoError(t, err)
		recv <- in
	}()

	require.NoError(t, c.Send(context.Background(), "sensors/temp", []byte("21.5")))
	got := <-recv
	assert.Equal(t, connection.KindPublish, got.Kind)
	assert.Equal(t, "sensors/temp", got.Publish.Topic)
	assert.Equal(t, []byte("21.5"), got.Publish.Payload)
}

func TestClient_ReceiveReturnsPublish(t *testing.T) {
	c, server := newTestPair(t)
	connectSuccessfully(t, c, server)

	go func() {
		_ = server.send(&encoding.PublishPacket{Topic: "a/b", Payload: []byte("payload")})
	}()

	pub, err := c.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a/b", pub.Topic)
	assert.Equal(t, []byte("payload"), pub.Payload)
}

func TestClient_DispatchRoutesToMatchingHandlers(t *testing.T) {
	c, server := newTestPair(t)
	connectSuccessfully(t, c, server)

	var got []Publish
	require.NoError(t, c.OnMessage("sensors/+", func(p Publish) { got = append(got, p) }))
	require.NoError(t, c.OnMessage("other/#", func(p Publish) { t.Fatal("should not match") }))

	go func() {
		_ = server.send(&encoding.PublishPacket{Topic: "sensors/temp", Payload: []byte("1")})
	}()

	pub, err := c.Receive(context.Background())
	require.NoError(t, err)
	n := c.Dispatch(pub)
	assert.Equal(t, 1, n)
	require.Len(t, got, 1)
	assert.Equal(t, "sensors/temp", got[0].Topic)
}

func TestClient_DisconnectSendsNormalReasonByDefault(t *testing.T) {
	c, server := newTestPair(t)
	connectSuccessfully(t, c, server)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fh, body := server.raw()
		require.Equal(t, encoding.PacketDisconnect, fh.Type)
		require.Equal(t, []byte{byte(encoding.DisconnectNormal)}, body)
	}()

	require.NoError(t, c.Disconnect(context.Background()))
	<-done
	assert.False(t, c.Connected())
	// A disconnected client rejects further Send/Receive.
	err := c.Send(context.Background(), "a/b", []byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_DisconnectWithReasonSendsChosenCode(t *testing.T) {
	c, server := newTestPair(t)
	connectSuccessfully(t, c, server)

	done := make(chan struct{})
	go func() {
		defer close(done)
		fh, body := server.raw()
		require.Equal(t, encoding.PacketDisconnect, fh.Type)
		require.Equal(t, []byte{byte(encoding.DisconnectWithWillMessage)}, body)
	}()

	require.NoError(t, c.DisconnectWithReason(context.Background(), encoding.DisconnectWithWillMessage))
	<-done
}

// fakeConnAck lets tests send a CONNACK from the "server" side without a
// CONNACK encoder in the encoding package: CONNACK is server->client only,
// so this engine only ever decodes one, never builds one (see
// encoding/connack.go). Tests build the wire bytes directly instead.
type fakeConnAck struct {
	sessionPresent bool
	reason         encoding.ConnAckReason
}

func (f *fakeConnAck) Type() encoding.PacketType { return encoding.PacketConnAck }
func (f *fakeConnAck) Flags() byte               { return 0 }
func (f *fakeConnAck) Size() int                 { return 1 + 1 + 1 } // ack flags + reason + empty property length
func (f *fakeConnAck) AppendBody(dst []byte) []byte {
	var ackFlags byte
	if f.sessionPresent {
		ackFlags = 1
	}
	dst = append(dst, ackFlags, byte(f.reason))
	dst = append(dst, 0x00) // empty property list length
	return dst
}

var _ encoding.OutboundPacket = (*fakeConnAck)(nil)
