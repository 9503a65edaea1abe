// Package identity hands out MQTT packet identifiers using an atomic
// counter wrapped into the 1..65535 range. A Client only ever has one
// Subscribe in flight at a time, so contention isn't a concern in
// practice, but the counter stays atomic since nothing stops a caller from
// sharing one Client across goroutines.
package identity

import "sync/atomic"

// startID is the first identifier a fresh Counter allocates. Starting well
// above 1 makes client-assigned identifiers visually distinct from
// broker-assigned ones in captured traffic.
const startID = 20000

// Counter allocates packet identifiers in the range [1, 65535], wrapping
// from 65535 back to 1 (0 is reserved by MQTT v5 and never a valid packet
// identifier).
type Counter struct {
	next atomic.Uint32
}

// NewCounter returns a Counter seeded at 20000.
func NewCounter() *Counter {
	c := &Counter{}
	c.next.Store(startID)
	return c
}

// Next returns the next packet identifier, wrapping past 65535 back to 1.
func (c *Counter) Next() uint16 {
	for {
		cur := c.next.Load()
		next := cur + 1
		if next > 65535 {
			next = 1
		}
		if c.next.CompareAndSwap(cur, next) {
			return uint16(cur)
		}
	}
}

// Resume reseeds the counter so the next allocated identifier is next,
// used when a Client resumes a persisted session.Session and wants to
// avoid re-handing-out identifiers the broker may still associate with
// the previous connection's in-flight requests.
func (c *Counter) Resume(next uint16) {
	if next == 0 {
		next = startID
	}
	c.next.Store(uint32(next))
}

// Peek returns the identifier the next Next() call would allocate,
// without allocating it. Used to write the counter's current watermark
// back into a session.Session for persistence.
func (c *Counter) Peek() uint16 {
	return uint16(c.next.Load())
}
