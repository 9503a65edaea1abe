package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

var sessionPrefix = []byte("session:")

// PebbleStore is a Pebble-backed Store, for a process that wants client
// session state (subscriptions, packet identifier progress) to survive a
// restart without standing up anything beyond a local directory. Records
// are serialized with cbor for a compact on-disk footprint.
type PebbleStore struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
}

// PebbleStoreConfig configures the Pebble store.
type PebbleStoreConfig struct {
	Path string
	Opts *pebble.Options
}

// sessionData is Session's on-disk representation; Session itself isn't
// cbor-tagged directly because its mutex must never round-trip.
type sessionData struct {
	ClientID        string                  `cbor:"client_id"`
	CleanStart      bool                    `cbor:"clean_start"`
	State           State                   `cbor:"state"`
	CreatedAt       time.Time               `cbor:"created_at"`
	LastConnectedAt time.Time               `cbor:"last_connected_at"`
	DisconnectedAt  time.Time               `cbor:"disconnected_at"`
	Subscriptions   map[string]Subscription `cbor:"subscriptions"`
	NextPacketID    uint16                  `cbor:"next_packet_id"`
}

func sessionToData(s *Session) *sessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &sessionData{
		ClientID:        s.ClientID,
		CleanStart:      s.CleanStart,
		State:           s.state,
		CreatedAt:       s.CreatedAt,
		LastConnectedAt: s.LastConnectedAt,
		DisconnectedAt:  s.DisconnectedAt,
		Subscriptions:   s.Subscriptions,
		NextPacketID:    s.nextPacketID,
	}
}

func dataToSession(data *sessionData) *Session {
	s := &Session{
		ClientID:        data.ClientID,
		CleanStart:      data.CleanStart,
		state:           data.State,
		CreatedAt:       data.CreatedAt,
		LastConnectedAt: data.LastConnectedAt,
		DisconnectedAt:  data.DisconnectedAt,
		Subscriptions:   data.Subscriptions,
		nextPacketID:    data.NextPacketID,
	}
	if s.Subscriptions == nil {
		s.Subscriptions = make(map[string]Subscription)
	}
	return s
}

// NewPebbleStore opens (or creates) a Pebble database at config.Path.
func NewPebbleStore(config PebbleStoreConfig) (*PebbleStore, error) {
	opts := config.Opts
	if opts == nil {
		opts = &pebble.Options{ErrorIfExists: false}
	}
	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func makeKey(clientID string) []byte {
	key := make([]byte, len(sessionPrefix)+len(clientID))
	copy(key, sessionPrefix)
	copy(key[len(sessionPrefix):], clientID)
	return key
}

func (p *PebbleStore) Save(ctx context.Context, sess *Session) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}

	value, err := cbor.Marshal(sessionToData(sess))
	if err != nil {
		return err
	}
	return p.db.Set(makeKey(sess.GetClientID()), value, pebble.Sync)
}

func (p *PebbleStore) Load(ctx context.Context, clientID string) (*Session, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	value, closer, err := p.db.Get(makeKey(clientID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	defer closer.Close()

	var data sessionData
	if err := cbor.Unmarshal(value, &data); err != nil {
		return nil, err
	}
	return dataToSession(&data), nil
}

func (p *PebbleStore) Delete(ctx context.Context, clientID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrStoreClosed
	}
	return p.db.Delete(makeKey(clientID), pebble.Sync)
}

func (p *PebbleStore) Exists(ctx context.Context, clientID string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return false, ErrStoreClosed
	}
	_, closer, err := p.db.Get(makeKey(clientID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleStore) List(ctx context.Context) ([]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: sessionPrefix,
		UpperBound: append(append([]byte{}, sessionPrefix...), 0xff),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var clientIDs []string
	for iter.First(); iter.Valid(); iter.Next() {
		clientIDs = append(clientIDs, string(iter.Key()[len(sessionPrefix):]))
	}
	return clientIDs, iter.Error()
}

func (p *PebbleStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStoreClosed
	}
	p.closed = true
	return p.db.Close()
}

func (p *PebbleStore) Count(ctx context.Context) (int64, error) {
	ids, err := p.List(ctx)
	return int64(len(ids)), err
}

func (p *PebbleStore) CountByState(ctx context.Context, state State) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return 0, ErrStoreClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: sessionPrefix,
		UpperBound: append(append([]byte{}, sessionPrefix...), 0xff),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	var count int64
	for iter.First(); iter.Valid(); iter.Next() {
		var data sessionData
		if err := cbor.Unmarshal(iter.Value(), &data); err != nil {
			continue
		}
		if data.State == state {
			count++
		}
	}
	return count, iter.Error()
}
