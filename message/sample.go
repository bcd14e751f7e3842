package message

import (
	"time"

	"github.com/c360/keystream/keyexpr"
)

// SampleKind discriminates data samples from deletion samples.
type SampleKind uint8

// Sample kinds
const (
	Put SampleKind = iota
	Delete
)

// String returns the string representation of SampleKind
func (k SampleKind) String() string {
	switch k {
	case Put:
		return "put"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Timestamp is a point in time paired with the identifier of the timestamp
// source.
type Timestamp struct {
	Time time.Time
	ID   []byte
}

// SourceInfo carries provenance information about a sample: the source
// peer, its sequence number, and the first router along the path.
type SourceInfo struct {
	SourceID      string
	SourceSN      uint64
	FirstRouterID string
	FirstRouterSN uint64
}

// Sample is a single delivery to a subscriber: a key, a value and the kind
// of operation that produced it. Samples are immutable once handed to a
// callback: the bridge clones before delivery and callbacks never receive
// a buffer shared with the engine.
type Sample struct {
	KeyExpr    keyexpr.KeyExpr
	Value      Value
	Kind       SampleKind
	Timestamp  *Timestamp
	SourceInfo *SourceInfo
}

// NewSample creates a Put sample for the given key and value.
func NewSample(key keyexpr.KeyExpr, value Value) Sample {
	return Sample{KeyExpr: key, Value: value, Kind: Put}
}

// Decode is a shortcut for s.Value.Decode().
func (s Sample) Decode() (any, error) {
	return s.Value.Decode()
}

// Clone returns a deep copy of the sample, independent of the original's
// buffers.
func (s Sample) Clone() Sample {
	out := s
	out.Value = s.Value.Clone()
	if s.Timestamp != nil {
		ts := *s.Timestamp
		ts.ID = append([]byte(nil), s.Timestamp.ID...)
		out.Timestamp = &ts
	}
	if s.SourceInfo != nil {
		si := *s.SourceInfo
		out.SourceInfo = &si
	}
	return out
}
