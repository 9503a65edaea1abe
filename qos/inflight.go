package qos

import "sync"

// RequestKind identifies which request/response flow a tracked packet
// identifier belongs to.
type RequestKind int

const (
	RequestSubscribe RequestKind = iota
	RequestPublish
)

func (k RequestKind) String() string {
	if k == RequestPublish {
		return "publish"
	}
	return "subscribe"
}

// InflightTracker maps an allocated packet identifier to the kind of
// request/response flow currently waiting on it. The single-owner client
// in this package's sibling client package only ever has one request
// outstanding at a time, so this exists as the hook spec.md §9 calls for:
// "a real inflight tracker... is needed before concurrent requests are
// supported." Today it turns an overlapping-identifier bug into
// ErrIdentifierInUse instead of silently corrupting session.Session state.
type InflightTracker struct {
	mu       sync.Mutex
	inflight map[uint16]RequestKind
}

// NewInflightTracker returns an empty tracker.
func NewInflightTracker() *InflightTracker {
	return &InflightTracker{inflight: make(map[uint16]RequestKind)}
}

// Begin records that id now has a kind request outstanding. Returns
// ErrIdentifierInUse if id is already tracked.
func (t *InflightTracker) Begin(id uint16, kind RequestKind) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; ok {
		return ErrIdentifierInUse
	}
	t.inflight[id] = kind
	return nil
}

// End drops id once its matching response has arrived (or the request
// failed outright and the identifier is being abandoned).
func (t *InflightTracker) End(id uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
}

// Lookup reports the kind tracked for id, if any.
func (t *InflightTracker) Lookup(id uint16) (RequestKind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kind, ok := t.inflight[id]
	return kind, ok
}

// Len reports how many identifiers currently have a request outstanding.
func (t *InflightTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}
