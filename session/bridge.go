package session

import (
	"log/slog"
	"sync"

	"github.com/c360/keystream/engine"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/metric"
)

// runtime is the bridge between engine goroutines and user callbacks. The
// engine may invoke callbacks from any of its goroutines; the runtime
// serializes them under one mutex so user code never runs concurrently
// with itself, and recovers panics so a failing callback cannot take an
// engine goroutine down. Deliveries that arrive while a callback runs wait
// for the mutex, preserving per-subscription order.
type runtime struct {
	mu      sync.Mutex
	logger  *slog.Logger
	metrics *metric.Metrics
}

func newRuntime(logger *slog.Logger, metrics *metric.Metrics) *runtime {
	return &runtime{logger: logger, metrics: metrics}
}

// sampleBridge wraps a user sample callback for handing to the engine.
// The sample is cloned before delivery: the callback owns its copy and the
// engine's buffers are never shared with user code.
func (r *runtime) sampleBridge(cb func(message.Sample)) engine.SampleCallback {
	return func(sample message.Sample) {
		r.mu.Lock()
		defer r.mu.Unlock()
		defer r.recover("subscriber")
		if r.metrics != nil {
			r.metrics.SamplesDelivered.Inc()
		}
		cb(sample.Clone())
	}
}

// queryBridge wraps a user query callback.
func (r *runtime) queryBridge(eng engine.Engine, cb func(*Query)) engine.QueryCallback {
	return func(in engine.IncomingQuery) {
		r.mu.Lock()
		defer r.mu.Unlock()
		defer r.recover("queryable")
		cb(&Query{sel: in.Selector, handle: in.Handle, eng: eng})
	}
}

// recover logs a callback panic and drops it. Panics never propagate into
// the engine.
func (r *runtime) recover(kind string) {
	if p := recover(); p != nil {
		r.logger.Error("recovered panic in user callback", "kind", kind, "panic", p)
		if r.metrics != nil {
			r.metrics.CallbackPanics.Inc()
		}
	}
}
