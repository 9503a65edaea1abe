// Package buffer implements a receive buffer: a single reusable region
// that an incremental parser borrows directly into, so parsed packets are
// zero-copy until the caller is done with them. It grows on demand using a
// doubling policy clamped to a sane range, and compacts unconsumed bytes
// down to offset 0 between reads.
package buffer

import "errors"

// ErrFixedSize is returned by Grow when the buffer was built with NewFixed
// and cannot grow past its initial capacity.
var ErrFixedSize = errors.New("buffer: fixed-size buffer cannot grow")

const (
	minGrowth = 32
	maxGrowth = 8192
)

// ReceiveBuffer is a contiguous mutable byte region maintaining
// consumed <= filled <= capacity(bytes); once consumed is set,
// bytes[consumed:filled] are the start of the next packet and have not yet
// been handed to the caller.
type ReceiveBuffer struct {
	bytes    []byte
	filled   int
	consumed int
	hasConsumed bool
	resizable   bool
	ceiling     int // 0 means unbounded growth
}

// NewFixed returns a ReceiveBuffer backed by a fixed-size array; Grow
// always fails. Suitable for constrained environments that cannot
// allocate after startup.
func NewFixed(size int) *ReceiveBuffer {
	return &ReceiveBuffer{bytes: make([]byte, size)}
}

// NewGrowable returns a ReceiveBuffer that starts at size bytes and may
// grow up to ceiling bytes (0 means unbounded) using a len*2 policy
// clamped into [32, 8192].
func NewGrowable(size, ceiling int) *ReceiveBuffer {
	return &ReceiveBuffer{bytes: make([]byte, size), resizable: true, ceiling: ceiling}
}

// Data returns the slice of bytes holding data the parser hasn't yet
// fully consumed: bytes[0:Len()].
func (b *ReceiveBuffer) Data() []byte { return b.bytes[:b.filled] }

// Free returns the unused tail of the backing array available for the
// next read.
func (b *ReceiveBuffer) Free() []byte { return b.bytes[b.filled:] }

// Len returns the number of valid, unconsumed bytes in the buffer.
func (b *ReceiveBuffer) Len() int { return b.filled }

// Cap returns the current capacity of the backing array.
func (b *ReceiveBuffer) Cap() int { return len(b.bytes) }

// MarkConsumed records that the first n bytes of Data() formed a complete
// packet the caller has now been handed. Compaction is deferred to the
// next Compact call, since a just-parsed packet may still be
// referenced by the caller.
func (b *ReceiveBuffer) MarkConsumed(n int) {
	b.consumed = n
	b.hasConsumed = true
}

// Compact moves bytes[consumed:filled] down to offset 0 if a prior
// MarkConsumed call is pending, and clears the pending mark. Must be
// called before writing newly-read bytes past the end of Data(), and must
// NOT be called while a previously returned packet view is still in use.
func (b *ReceiveBuffer) Compact() {
	if !b.hasConsumed {
		return
	}
	n := copy(b.bytes, b.bytes[b.consumed:b.filled])
	b.filled = n
	b.consumed = 0
	b.hasConsumed = false
}

// Advance records that n more bytes were written into Free() and are now
// part of Data().
func (b *ReceiveBuffer) Advance(n int) { b.filled += n }

// Grow extends the backing array by clamp(len*2, 32, 8192) bytes; if a
// ceiling was configured and that step would pass it, the array grows only
// up to the ceiling. Returns ErrFixedSize if the buffer isn't resizable, or
// if it is already at its ceiling.
func (b *ReceiveBuffer) Grow() error {
	if !b.resizable {
		return ErrFixedSize
	}
	step := len(b.bytes) * 2
	if step < minGrowth {
		step = minGrowth
	}
	if step > maxGrowth {
		step = maxGrowth
	}
	newCap := len(b.bytes) + step
	if b.ceiling > 0 && newCap > b.ceiling {
		if len(b.bytes) >= b.ceiling {
			return ErrFixedSize
		}
		newCap = b.ceiling
	}
	grown := make([]byte, newCap)
	copy(grown, b.bytes[:b.filled])
	b.bytes = grown
	return nil
}
