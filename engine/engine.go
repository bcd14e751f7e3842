// Package engine defines the contract between a keystream session and the
// external messaging engine that performs routing, peer discovery and wire
// transport. The session layer never talks to a network itself; it
// validates and normalizes keys, then delegates to an Engine.
//
// Engines deliver asynchronous events (incoming samples, incoming queries)
// on goroutines they own. The callbacks passed to Subscribe and
// DeclareQueryable must therefore be safe to invoke from engine goroutines;
// the session layer wraps caller callbacks in a bridge that provides that
// safety.
package engine

import (
	"github.com/c360/keystream/config"
	"github.com/c360/keystream/keyexpr"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/query"
)

// Opaque engine-native handles. A handle is only meaningful to the engine
// that minted it.
type (
	// SessionHandle identifies an open engine session.
	SessionHandle any
	// SubscriberHandle identifies a live subscription.
	SubscriberHandle any
	// QueryableHandle identifies a live queryable.
	QueryableHandle any
	// QueryHandle identifies one in-flight incoming query, for replying.
	QueryHandle any
)

// Reliability selects the delivery guarantee of a subscription.
type Reliability uint8

// Reliability levels
const (
	BestEffort Reliability = iota
	Reliable
)

// SubMode selects push or pull delivery for a subscription.
type SubMode uint8

// Subscription modes
const (
	Push SubMode = iota
	Pull
)

// Period describes a periodic pull subscription window.
type Period struct {
	Origin   uint64
	Period   uint64
	Duration uint64
}

// SubscribeOptions configures a subscription declaration.
type SubscribeOptions struct {
	Reliability Reliability
	Mode        SubMode
	Period      *Period
	// Local restricts the subscription to locally published data.
	Local bool
}

// QueryableOptions configures a queryable declaration.
type QueryableOptions struct {
	// Complete declares the queryable as holding the complete data set for
	// its key expression. Engines default this to true.
	Complete *bool
}

// CongestionControl selects the behavior under congestion when routing
// published data.
type CongestionControl uint8

// Congestion control policies
const (
	Drop CongestionControl = iota
	Block
)

// Priority of published data.
type Priority uint8

// Priorities, highest first
const (
	RealTime Priority = iota + 1
	InteractiveHigh
	InteractiveLow
	DataHigh
	Data
	DataLow
	Background
)

// PutOptions configures a publish or delete submission.
type PutOptions struct {
	// Encoding overrides the value's own encoding when non-nil.
	Encoding          *message.Encoding
	Kind              message.SampleKind
	CongestionControl CongestionControl
	Priority          Priority
	LocalRouting      *bool
}

// IncomingQuery is the event delivered to a queryable's native callback.
type IncomingQuery struct {
	Selector keyexpr.Selector
	Handle   QueryHandle
}

// SampleCallback receives incoming samples on engine goroutines.
type SampleCallback func(message.Sample)

// QueryCallback receives incoming queries on engine goroutines.
type QueryCallback func(IncomingQuery)

// Engine is the external messaging engine collaborator. All methods are
// safe for concurrent use. Errors returned by an engine are wrapped by the
// session layer as EngineError and always surfaced to the caller.
type Engine interface {
	// Open establishes a session with the given configuration.
	Open(cfg *config.Config) (SessionHandle, error)
	// Close tears the session down. The session layer guarantees it calls
	// Close at most once per handle.
	Close(s SessionHandle) error
	// SessionInfo returns engine metadata about the session, keyed by the
	// config.InfoKeyNames table.
	SessionInfo(s SessionHandle) (map[string]string, error)
	// Config returns live read/merge access to the session configuration.
	Config(s SessionHandle) (ConfigNotifier, error)

	// DeclareAlias interns a key expression and returns its numeric alias.
	DeclareAlias(s SessionHandle, key keyexpr.KeyExpr) (uint64, error)
	// UndeclareAlias removes a previously declared alias.
	UndeclareAlias(s SessionHandle, id uint64) error
	// ExpandKeyExpr resolves a possibly scoped key expression to its full
	// string form.
	ExpandKeyExpr(s SessionHandle, key keyexpr.KeyExpr) (string, error)

	// DeclarePublication announces an intent to publish on the key
	// expression so the engine can route lazily.
	DeclarePublication(s SessionHandle, key keyexpr.KeyExpr) error
	// UndeclarePublication withdraws a publication declaration.
	UndeclarePublication(s SessionHandle, key keyexpr.KeyExpr) error

	// Publish submits a value for the key expression. Local submission
	// errors are reported synchronously; network delivery is not.
	Publish(s SessionHandle, key keyexpr.KeyExpr, value message.Value, opts PutOptions) error
	// Delete submits a deletion for the key expression.
	Delete(s SessionHandle, key keyexpr.KeyExpr, opts PutOptions) error

	// Subscribe declares a subscription delivering matching samples to cb
	// on engine goroutines, in per-subscription order.
	Subscribe(s SessionHandle, key keyexpr.KeyExpr, opts SubscribeOptions, cb SampleCallback) (SubscriberHandle, error)
	// CloseSubscriber ends a subscription. No callback runs after it
	// returns.
	CloseSubscriber(sub SubscriberHandle) error
	// Pull triggers delivery of queued samples on a pull-mode
	// subscription.
	Pull(sub SubscriberHandle) error

	// DeclareQueryable declares a queryable delivering matching queries to
	// cb on engine goroutines.
	DeclareQueryable(s SessionHandle, key keyexpr.KeyExpr, opts QueryableOptions, cb QueryCallback) (QueryableHandle, error)
	// CloseQueryable ends a queryable.
	CloseQueryable(q QueryableHandle) error

	// Query submits a get and blocks until the engine's completion
	// condition for the target, returning the consolidated replies.
	Query(s SessionHandle, sel keyexpr.Selector, target query.Target, strategy query.ConsolidationStrategy) ([]query.Reply, error)
	// Reply sends one reply to an in-flight incoming query.
	Reply(q QueryHandle, reply query.Reply) error
}

// ConfigNotifier provides read and write access to a live engine
// configuration.
type ConfigNotifier interface {
	// JSON renders the current configuration.
	JSON() string
	// MergeJSON overlays a partial JSON configuration onto the current
	// one.
	MergeJSON(s string) error
}

// Consolidate applies a reception-stage consolidation mode to collected
// replies: ModeFull keeps only the newest reply per key expression, other
// modes keep every reply. Engines without in-network consolidation use
// this at reception. Error replies are never consolidated away.
func Consolidate(replies []query.Reply, mode query.ConsolidationMode) []query.Reply {
	if mode != query.ModeFull {
		return replies
	}

	latest := map[string]int{}
	out := make([]query.Reply, 0, len(replies))
	for _, r := range replies {
		if !r.OK() {
			out = append(out, r)
			continue
		}
		key := r.Sample.KeyExpr.String()
		if i, ok := latest[key]; ok {
			if newer(r, out[i]) {
				out[i] = r
			}
			continue
		}
		latest[key] = len(out)
		out = append(out, r)
	}
	return out
}

// newer prefers the reply with the later timestamp; replies without
// timestamps lose to timestamped ones and otherwise keep first-seen order.
func newer(a, b query.Reply) bool {
	switch {
	case a.Sample.Timestamp == nil:
		return false
	case b.Sample.Timestamp == nil:
		return true
	default:
		return a.Sample.Timestamp.Time.After(b.Sample.Timestamp.Time)
	}
}
