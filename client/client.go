// Package client is the public surface of this MQTT v5 engine: a typed
// CONNECT builder, request/response correlation for SUBSCRIBE, identifier
// allocation, and the cancel-safety contracts spec'd for a long-lived
// Receive loop. It composes the sibling packages — encoding for the wire
// format, connection for send/receive framing, identity for packet
// identifiers, qos for duplicate/inflight bookkeeping, topic for filter
// matching and validation, and session as an optional persistence
// collaborator — into the one type callers hold: Client.
package client

import (
	"context"
	"sync"

	"github.com/quietwire/miniqtt/connection"
	"github.com/quietwire/miniqtt/encoding"
	"github.com/quietwire/miniqtt/identity"
	"github.com/quietwire/miniqtt/internal/logger"
	"github.com/quietwire/miniqtt/qos"
	"github.com/quietwire/miniqtt/session"
	"github.com/quietwire/miniqtt/topic"
	"github.com/quietwire/miniqtt/transport"
)

// Publish is an inbound message handed to the caller by Receive or to a
// handler registered with OnMessage. Unlike encoding.PublishPacket, every
// field here is an owned copy: safe to keep past the next Receive call.
type Publish struct {
	Topic   string
	Payload []byte
	QoS     encoding.QoS
	Retain  bool
	Dup     bool
}

type filterHandler struct {
	filter string
	fn     func(Publish)
}

// Client is the single-owner MQTT v5 session handle spec.md §4.7
// describes: it borrows its connection.Connection exclusively for the
// duration of each public operation (§5's "mutable-owner discipline"), so
// a second call blocks until the first returns and requests are never
// interleaved on the wire.
type Client struct {
	mu sync.Mutex

	conn     *connection.Connection
	ids      *identity.Counter
	inflight *qos.InflightTracker
	dup      *qos.DupTracker
	log      *logger.Logger
	store    session.Store

	clientID  string
	connected bool
	handlers  []filterHandler
}

// New wraps stream with a Client ready to Connect. opts.Store defaults to
// an in-memory session.Store if nil; a Client never requires a persistent
// store to function.
func New(stream transport.Stream, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		conn:     connection.NewWithBuffer(stream, opts.receiveBuffer()),
		ids:      identity.NewCounter(),
		inflight: qos.NewInflightTracker(),
		dup:      qos.NewDupTracker(opts.DupCacheSize),
		log:      opts.Logger,
		store:    opts.Store,
	}
}

// Connect returns a ConnectBuilder for clientID. Nothing is sent on the
// wire until the builder's Send method is called.
func (c *Client) Connect(clientID string) *ConnectBuilder {
	return &ConnectBuilder{
		client: c,
		pkt: encoding.ConnectPacket{
			ClientID:   clientID,
			CleanStart: true,
		},
	}
}

// Send encodes and writes a QoS 0 PUBLISH. It returns as soon as the bytes
// are accepted by the transport; no acknowledgement is awaited, matching
// spec.md §4.7 ("No acknowledgement is expected").
func (c *Client) Send(ctx context.Context, topicName string, payload []byte) error {
	if err := topic.ValidateName(topicName); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	pkt := &encoding.PublishPacket{QoS: encoding.QoS0, Topic: topicName, Payload: payload}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.Send(pkt)
}

// Receive awaits exactly one PUBLISH. It is cancel-safe: connection.Receive
// only mutates buffer state on a complete parse, so dropping the context
// before a full packet has arrived leaves the buffer in a state from which
// the next Receive call resumes correctly (spec.md §4.7/§5).
func (c *Client) Receive(ctx context.Context) (*Publish, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, ErrNotConnected
	}
	inbound, err := c.conn.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if inbound.Kind != connection.KindPublish {
		return nil, &UnexpectedPacketError{Want: connection.KindPublish, Got: inbound.Kind}
	}
	p := inbound.Publish
	pub := &Publish{
		Topic:   p.Topic,
		Payload: append([]byte(nil), p.Payload...),
		QoS:     p.QoS,
		Retain:  p.Retain,
		Dup:     p.Dup,
	}
	if p.QoS > encoding.QoS0 && c.dup.Seen(p.PacketID) {
		pub.Dup = true
		c.log.Debug("redelivered PUBLISH", "packet_id", p.PacketID, "topic", p.Topic)
	}
	return pub, nil
}

// OnMessage registers handler to be invoked by Dispatch for any future
// Publish whose Topic matches filter under MQTT v5 wildcard rules. This is
// the client-side routing spec.md's original examples did by hand in their
// receive loop; Client only tracks the registration, it does not drive a
// loop itself (see Dispatch).
func (c *Client) OnMessage(filter string, handler func(Publish)) error {
	if err := topic.ValidateFilter(filter); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, filterHandler{filter: filter, fn: handler})
	return nil
}

// Dispatch runs every handler registered via OnMessage whose filter
// matches pub.Topic and returns how many ran. A typical caller loops
// `pub, err := client.Receive(ctx); client.Dispatch(pub)`.
func (c *Client) Dispatch(pub *Publish) int {
	c.mu.Lock()
	handlers := append([]filterHandler(nil), c.handlers...)
	c.mu.Unlock()

	n := 0
	for _, h := range handlers {
		if topic.Match(h.filter, pub.Topic) {
			h.fn(*pub)
			n++
		}
	}
	return n
}

// Disconnect sends a DISCONNECT with reason Normal Disconnection (0x00),
// the MQTT v5 default for a client-initiated clean disconnect. Not
// cancel-safe: the caller is expected to drop the underlying transport
// afterwards regardless of the outcome.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.DisconnectWithReason(ctx, encoding.DisconnectNormal)
}

// DisconnectWithReason sends a DISCONNECT with a caller-chosen reason code,
// e.g. encoding.DisconnectWithWillMessage to ask the server to publish
// this client's Will despite the disconnect being client-initiated.
func (c *Client) DisconnectWithReason(ctx context.Context, reason encoding.DisconnectReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.conn.Send(&encoding.DisconnectPacket{ReasonCode: reason})
	c.connected = false
	if sess, loadErr := c.store.Load(ctx, c.clientID); loadErr == nil {
		sess.SetState(session.StateDisconnected)
		_ = c.store.Save(ctx, sess)
	}
	return err
}

// Close releases the underlying transport without sending DISCONNECT,
// e.g. after a protocol error has already desynchronized the session
// (spec.md §7: the connection must be discarded, not reused).
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return c.conn.Close()
}

// ClientID returns the identifier passed to Connect, or "" before the
// first successful Connect.
func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// Connected reports whether the last Connect succeeded and neither
// Disconnect nor Close has been called since.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
