package qos

import "errors"

// ErrInvalidQoS reports a QoS byte outside {0,1,2}. No function in this
// module returns it; encoding.DecodePublish reports an invalid QoS as
// encoding.ErrInvalidQoS.
var ErrInvalidQoS = errors.New("qos: invalid QoS level")

// ErrIdentifierInUse reports that InflightTracker.Begin was asked to track
// a packet identifier that already has a request outstanding. spec.md §4.7
// leaves "duplicate identifiers across overlapping inflight requests" as
// undefined behavior; this turns that into a checked precondition instead
// of silent corruption.
var ErrIdentifierInUse = errors.New("qos: packet identifier already has a request in flight")
