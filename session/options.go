package session

import (
	"github.com/c360/keystream/engine"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/query"
)

// PutOption configures a single Put or Delete.
type PutOption func(*engine.PutOptions)

// WithEncoding overrides the encoding tag of the published value.
func WithEncoding(enc message.Encoding) PutOption {
	return func(o *engine.PutOptions) {
		o.Encoding = &enc
	}
}

// WithCongestionControl selects drop or block behavior under congestion.
func WithCongestionControl(cc engine.CongestionControl) PutOption {
	return func(o *engine.PutOptions) {
		o.CongestionControl = cc
	}
}

// WithPriority sets the publication priority.
func WithPriority(p engine.Priority) PutOption {
	return func(o *engine.PutOptions) {
		o.Priority = p
	}
}

// WithLocalRouting overrides the session's local routing setting for one
// publication.
func WithLocalRouting(enabled bool) PutOption {
	return func(o *engine.PutOptions) {
		o.LocalRouting = &enabled
	}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*engine.SubscribeOptions)

// WithReliability selects best-effort or reliable delivery.
func WithReliability(r engine.Reliability) SubscribeOption {
	return func(o *engine.SubscribeOptions) {
		o.Reliability = r
	}
}

// WithPullMode makes the subscription buffer samples until Pull is called.
func WithPullMode() SubscribeOption {
	return func(o *engine.SubscribeOptions) {
		o.Mode = engine.Pull
	}
}

// WithPeriod attaches a periodic delivery window to the subscription.
func WithPeriod(p engine.Period) SubscribeOption {
	return func(o *engine.SubscribeOptions) {
		o.Period = &p
	}
}

// QueryableOption configures a queryable.
type QueryableOption func(*engine.QueryableOptions)

// WithComplete declares whether the queryable holds a complete view of the
// keys it serves. Complete queryables answer AllComplete targets.
func WithComplete(complete bool) QueryableOption {
	return func(o *engine.QueryableOptions) {
		o.Complete = &complete
	}
}

// GetOption configures a query.
type GetOption func(*getOptions)

type getOptions struct {
	target        query.Target
	consolidation query.Consolidation
}

// WithTarget selects which queryables answer the query.
func WithTarget(t query.Target) GetOption {
	return func(o *getOptions) {
		o.target = t
	}
}

// WithConsolidation sets the reply consolidation policy.
func WithConsolidation(c query.Consolidation) GetOption {
	return func(o *getOptions) {
		o.consolidation = c
	}
}
