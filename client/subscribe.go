package client

import (
	"context"

	"github.com/quietwire/miniqtt/connection"
	"github.com/quietwire/miniqtt/encoding"
	"github.com/quietwire/miniqtt/qos"
	"github.com/quietwire/miniqtt/topic"
)

// SubscribeResult is the outcome of an awaited SUBSCRIBE/SUBACK round
// trip. spec.md §9 flags per-filter reason codes as "parsed but not
// surfaced... a near-term extension"; this module surfaces them.
type SubscribeResult struct {
	ack encoding.SubAckPacket
}

// Successful reports whether every requested filter was granted (every
// reason code < 0x80).
func (r *SubscribeResult) Successful() bool {
	for _, c := range r.ack.ReasonCodes {
		if !c.Success() {
			return false
		}
	}
	return len(r.ack.ReasonCodes) > 0
}

// ReasonCodes returns the per-filter reason codes in request order.
func (r *SubscribeResult) ReasonCodes() []encoding.SubAckReasonCode { return r.ack.ReasonCodes }

// Subscribe allocates a packet identifier, sends a SUBSCRIBE with a single
// filter {name=topicFilter, qos=AtMostOnce, no_local=false,
// retain_as_published=false, retain_handling=SendRetained} as spec.md
// §4.7 specifies, and awaits the matching SUBACK.
//
// Not cancel-safe: cancelling ctx between the SUBSCRIBE write and the
// matching SUBACK read leaves the packet identifier's inflight state
// undefined (spec.md §5); the caller must drop the Client.
func (c *Client) Subscribe(ctx context.Context, topicFilter string) (*SubscribeResult, error) {
	if err := topic.ValidateFilter(topicFilter); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := c.ids.Next()
	if err := c.inflight.Begin(id, qos.RequestSubscribe); err != nil {
		return nil, err
	}
	defer c.inflight.End(id)

	pkt := &encoding.SubscribePacket{
		PacketID: id,
		Filters: []encoding.TopicFilter{{
			Name:              topicFilter,
			QoS:               encoding.QoS0,
			NoLocal:           false,
			RetainAsPublished: false,
			RetainHandling:    encoding.SendRetained,
		}},
	}
	if err := c.conn.Send(pkt); err != nil {
		return nil, err
	}

	inbound, err := c.conn.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if inbound.Kind != connection.KindSubAck {
		return nil, &UnexpectedPacketError{Want: connection.KindSubAck, Got: inbound.Kind}
	}
	if inbound.SubAck.PacketID != id {
		return nil, &MismatchedPacketIDError{Want: id, Got: inbound.SubAck.PacketID}
	}

	result := &SubscribeResult{ack: inbound.SubAck}
	if sess, loadErr := c.store.Load(ctx, c.clientID); loadErr == nil {
		sess.AddSubscription(topicFilter, byte(encoding.QoS0))
		sess.SetNextPacketID(c.ids.Peek())
		_ = c.store.Save(ctx, sess)
	}
	c.log.Info("subscribed", "filter", topicFilter, "successful", result.Successful())
	return result, nil
}
