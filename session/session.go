// Package session persists the state a Client needs to resume across
// reconnects: its client identifier, whether it asked for a clean start,
// the filters it had subscribed to, and where its identity.Counter had
// gotten to. A fresh Client works fine against NewMemoryStore() alone;
// PebbleStore and RedisStore are optional pluggable backends for
// processes that want session state to survive a restart or to be shared
// across client instances.
package session

import (
	"sync"
	"time"
)

// State is a Session's connectivity state as last observed by its owning
// Client.
type State int

const (
	StateDisconnected State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "disconnected"
}

// Subscription is a previously established subscription, kept so a
// reconnecting Client can decide whether to resubscribe (MQTT v5 session
// resumption does not automatically restore subscriptions on the client
// side; the server forgets nothing, but rebuilding local dispatch state is
// the client's job).
type Subscription struct {
	Filter string
	QoS    byte
}

// Session is the persisted state for one client identifier.
type Session struct {
	mu sync.RWMutex

	ClientID        string
	CleanStart      bool
	state           State
	CreatedAt       time.Time
	LastConnectedAt time.Time
	DisconnectedAt  time.Time
	Subscriptions   map[string]Subscription
	nextPacketID    uint16
}

// NewSession returns a fresh Session for clientID, created now, with no
// recorded subscriptions.
func NewSession(clientID string) *Session {
	return &Session{
		ClientID:      clientID,
		CreatedAt:     time.Now(),
		Subscriptions: make(map[string]Subscription),
	}
}

func (s *Session) GetClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ClientID
}

func (s *Session) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if state == StateActive {
		s.LastConnectedAt = time.Now()
	} else {
		s.DisconnectedAt = time.Now()
	}
}

// NextPacketID returns the identifier a resumed identity.Counter should
// seed from.
func (s *Session) NextPacketID() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextPacketID
}

func (s *Session) SetNextPacketID(id uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPacketID = id
}

// AddSubscription records that the Client subscribed to filter at qos.
func (s *Session) AddSubscription(filter string, qos byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Subscriptions == nil {
		s.Subscriptions = make(map[string]Subscription)
	}
	s.Subscriptions[filter] = Subscription{Filter: filter, QoS: qos}
}

func (s *Session) RemoveSubscription(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Subscriptions, filter)
}

// SubscriptionList returns a snapshot of the current subscriptions.
func (s *Session) SubscriptionList() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Subscription, 0, len(s.Subscriptions))
	for _, sub := range s.Subscriptions {
		out = append(out, sub)
	}
	return out
}
