// Package transport is the abstract byte-stream boundary
// connection.Connection frames packets over: the engine owns no socket and
// knows nothing about TLS, reconnects, or name resolution, it only reads
// and writes an opaque byte stream. Stream is satisfied by a real net.Conn
// via NewTCP, or by an in-memory Pipe pair for tests.
package transport

import (
	"net"
	"sync/atomic"
	"time"
)

// Stream is the byte-stream contract connection.Connection depends on:
// read whatever is available up to len(buf), and write a buffer to
// completion or fail outright. No partial-write recovery is exposed above
// this boundary.
type Stream interface {
	Read(buf []byte) (int, error)
	WriteAll(buf []byte) error
	Close() error
}

// TCPStream adapts a net.Conn (TCP, or TLS wrapping TCP) to Stream, applying
// per-operation deadlines to reads and writes.
type TCPStream struct {
	conn          net.Conn
	readDeadline  time.Duration
	writeDeadline time.Duration

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

// Option configures a TCPStream built by NewTCP.
type Option func(*TCPStream)

// WithReadDeadline bounds every individual Read call. Zero disables the
// deadline.
func WithReadDeadline(d time.Duration) Option {
	return func(s *TCPStream) { s.readDeadline = d }
}

// WithWriteDeadline bounds every WriteAll call. Zero disables the deadline.
func WithWriteDeadline(d time.Duration) Option {
	return func(s *TCPStream) { s.writeDeadline = d }
}

// NewTCP wraps an already-dialed net.Conn (the caller is responsible for
// DNS resolution, TLS handshake and retries; none of that lives here).
func NewTCP(conn net.Conn, opts ...Option) *TCPStream {
	s := &TCPStream{conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TCPStream) Read(buf []byte) (int, error) {
	if s.readDeadline > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.readDeadline))
	}
	n, err := s.conn.Read(buf)
	if n > 0 {
		s.bytesRead.Add(uint64(n))
	}
	return n, err
}

// WriteAll writes buf to completion, looping over net.Conn.Write until
// every byte lands (MQTT packets routinely exceed one TCP write's worth).
func (s *TCPStream) WriteAll(buf []byte) error {
	if s.writeDeadline > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeDeadline))
	}
	for len(buf) > 0 {
		n, err := s.conn.Write(buf)
		if n > 0 {
			s.bytesWritten.Add(uint64(n))
			buf = buf[n:]
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *TCPStream) Close() error { return s.conn.Close() }

// BytesRead and BytesWritten expose running transfer counters, useful for
// connection-health logging.
func (s *TCPStream) BytesRead() uint64    { return s.bytesRead.Load() }
func (s *TCPStream) BytesWritten() uint64 { return s.bytesWritten.Load() }

var _ Stream = (*TCPStream)(nil)
