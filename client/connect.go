package client

import (
	"context"

	"github.com/quietwire/miniqtt/connection"
	"github.com/quietwire/miniqtt/encoding"
	"github.com/quietwire/miniqtt/session"
)

// ConnectBuilder accumulates CONNECT fields before Send frames and awaits
// it. spec.md §9 notes that where the host language can't overload await,
// the builder should expose an explicit send step; Go has no await to
// overload, so Send is that step.
//
// Send is not cancel-safe: cancelling ctx between the CONNECT write and the
// matching CONNACK read leaves the session in an undefined state (spec.md
// §4.7/§5). The caller must drop the Client on cancellation rather than
// retry.
type ConnectBuilder struct {
	client *Client
	pkt    encoding.ConnectPacket
}

// KeepAlive sets the CONNECT keep-alive interval in seconds.
func (b *ConnectBuilder) KeepAlive(seconds uint16) *ConnectBuilder {
	b.pkt.KeepAlive = seconds
	return b
}

// ResumeSession sets CleanStart to !resume: ResumeSession(true) asks the
// broker to resume any existing session for this client ID,
// ResumeSession(false) (the default) starts clean.
func (b *ConnectBuilder) ResumeSession(resume bool) *ConnectBuilder {
	b.pkt.CleanStart = !resume
	return b
}

// WithUsername sets the CONNECT username, or clears it if username is nil.
func (b *ConnectBuilder) WithUsername(username *string) *ConnectBuilder {
	b.pkt.Username = username
	return b
}

// WithPassword sets the CONNECT password, or clears it if password is nil.
// A non-nil, zero-length slice is a present-but-empty password, distinct
// from no password at all.
func (b *ConnectBuilder) WithPassword(password []byte) *ConnectBuilder {
	if password == nil {
		b.pkt.HasPassword = false
		b.pkt.Password = nil
		return b
	}
	b.pkt.HasPassword = true
	b.pkt.Password = password
	return b
}

// WithWill attaches a Last Will and Testament message, or clears it if will
// is nil.
func (b *ConnectBuilder) WithWill(will *encoding.Will) *ConnectBuilder {
	b.pkt.Will = will
	return b
}

// WithProperties sets the CONNECT packet's property list, replacing any
// previously set properties.
func (b *ConnectBuilder) WithProperties(props ...encoding.ConnectProperty) *ConnectBuilder {
	b.pkt.Properties = props
	return b
}

// ConnectResult is the outcome of an awaited CONNECT/CONNACK round trip.
type ConnectResult struct {
	ack encoding.ConnAckPacket
}

// Successful reports whether the server's reason code was Success.
func (r *ConnectResult) Successful() bool { return r.ack.ReasonCode == encoding.ReasonSuccess }

// SessionPresent reports the CONNACK's session-present bit.
func (r *ConnectResult) SessionPresent() bool { return r.ack.SessionPresent }

// ReasonCode returns the server's CONNACK reason code.
func (r *ConnectResult) ReasonCode() encoding.ConnAckReason { return r.ack.ReasonCode }

// Send writes the accumulated CONNECT and awaits the CONNACK. Not
// cancel-safe (see ConnectBuilder's doc comment).
func (b *ConnectBuilder) Send(ctx context.Context) (*ConnectResult, error) {
	c := b.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.log.Info("connecting", "client_id", b.pkt.ClientID, "clean_start", b.pkt.CleanStart)
	if err := c.conn.Send(&b.pkt); err != nil {
		return nil, err
	}
	inbound, err := c.conn.Receive(ctx)
	if err != nil {
		c.log.Warn("connect failed", "client_id", b.pkt.ClientID, "error", err)
		return nil, err
	}
	if inbound.Kind != connection.KindConnAck {
		return nil, &UnexpectedPacketError{Want: connection.KindConnAck, Got: inbound.Kind}
	}

	result := &ConnectResult{ack: inbound.ConnAck}
	if result.Successful() {
		c.connected = true
		c.clientID = b.pkt.ClientID
		c.log.Info("connected", "client_id", c.clientID, "session_present", result.SessionPresent())
		b.persist(ctx)
	} else {
		c.log.Warn("connect rejected", "client_id", b.pkt.ClientID, "reason", result.ReasonCode())
	}
	return result, nil
}

// persist records the session state for a successful CONNECT in c.store,
// loading any prior session.Session for this client ID first so the
// recorded subscriptions and packet-identifier watermark survive a
// reconnect. A default session.MemoryStore makes this a cheap no-op that
// never escapes the package.
//
// When the builder asked to resume (CleanStart false) and a prior session
// was found, c.ids is reseeded from the session's persisted watermark
// before anything new is allocated on this connection, so a reconnecting
// Client doesn't hand out identifiers the broker may still associate with
// the previous connection's in-flight requests (identity.Counter.Resume's
// doc comment, DESIGN.md's identity section). The counter's resulting
// position is then written back, so the watermark on disk always reflects
// what a future Resume should reseed from.
func (b *ConnectBuilder) persist(ctx context.Context) {
	c := b.client
	sess, err := c.store.Load(ctx, b.pkt.ClientID)
	existed := err == nil
	if !existed {
		sess = session.NewSession(b.pkt.ClientID)
	}
	if !b.pkt.CleanStart && existed {
		c.ids.Resume(sess.NextPacketID())
	}
	sess.CleanStart = b.pkt.CleanStart
	sess.SetState(session.StateActive)
	sess.SetNextPacketID(c.ids.Peek())
	if err := c.store.Save(ctx, sess); err != nil {
		c.log.Warn("failed to persist session", "client_id", b.pkt.ClientID, "error", err)
	}
}
