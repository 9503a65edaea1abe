package transport

import "net"

// Pipe returns two connected in-memory Streams, client and server, wired
// directly together with no socket or goroutine of its own (net.Pipe), so
// connection and client tests never need a real listening socket.
func Pipe() (client Stream, server Stream) {
	a, b := net.Pipe()
	return NewTCP(a), NewTCP(b)
}
