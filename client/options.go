package client

import (
	"log/slog"

	"github.com/quietwire/miniqtt/buffer"
	"github.com/quietwire/miniqtt/connection"
	"github.com/quietwire/miniqtt/internal/logger"
	"github.com/quietwire/miniqtt/session"
)

// Options configures a Client built by New. The zero value is valid: every
// field defaults to a sane value for a host environment, not a constrained
// one (use BufferFixed for the latter).
type Options struct {
	// BufferSize is the initial receive buffer size. Defaults to
	// connection.DefaultBufferSize.
	BufferSize int
	// BufferCeiling caps how large the receive buffer may grow. A zero
	// value is replaced by connection.DefaultBufferCeiling, so a growable
	// buffer built from Options always has a ceiling.
	BufferCeiling int
	// BufferFixed, when true, builds a non-growable buffer.ReceiveBuffer
	// of exactly BufferSize bytes (buffer.NewFixed), for constrained
	// environments that cannot allocate after startup. BufferCeiling is
	// ignored when this is set.
	BufferFixed bool
	// Logger receives connection lifecycle and protocol-error events.
	// Defaults to a logger.Logger at slog.LevelInfo writing to stdout.
	// Payload bytes are never logged at Info level.
	Logger *logger.Logger
	// Store persists session state (client ID, clean-start, filters,
	// next packet ID) across reconnects. Defaults to
	// session.NewMemoryStore(); a Client works fully without ever being
	// given a pebble- or redis-backed Store.
	Store session.Store
	// DupCacheSize bounds how many inbound packet identifiers
	// qos.DupTracker remembers for redelivery detection. Defaults to 256.
	DupCacheSize int
}

// DefaultOptions returns the defaults New applies to a zero Options.
func DefaultOptions() Options {
	return Options{
		BufferSize:    connection.DefaultBufferSize,
		BufferCeiling: connection.DefaultBufferCeiling,
		Logger:        logger.New(slog.LevelInfo, nil),
		Store:         session.NewMemoryStore(),
		DupCacheSize:  256,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BufferSize == 0 {
		o.BufferSize = d.BufferSize
	}
	if o.BufferCeiling == 0 && !o.BufferFixed {
		o.BufferCeiling = d.BufferCeiling
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	if o.Store == nil {
		o.Store = d.Store
	}
	if o.DupCacheSize == 0 {
		o.DupCacheSize = d.DupCacheSize
	}
	return o
}

func (o Options) receiveBuffer() *buffer.ReceiveBuffer {
	if o.BufferFixed {
		return buffer.NewFixed(o.BufferSize)
	}
	return buffer.NewGrowable(o.BufferSize, o.BufferCeiling)
}
