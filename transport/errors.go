package transport

import "errors"

// ErrClosed names a stream that has been closed. TCPStream does not return
// it: its Read and WriteAll pass the underlying net.Conn's errors through
// unchanged, including after Close and when a deadline elapses.
var ErrClosed = errors.New("transport: stream closed")
