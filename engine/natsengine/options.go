package natsengine

import (
	"log/slog"
	"time"

	"github.com/c360/keystream/metric"
	"github.com/c360/keystream/pkg/tlsutil"
)

// Option is a functional option for configuring the Engine
type Option func(*Engine) error

// WithLogger sets a custom logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger != nil {
			e.logger = logger
		}
		return nil
	}
}

// WithMetrics records engine activity into the provided registry's core
// metrics. A nil registry disables metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(e *Engine) error {
		if registry != nil {
			e.metrics = registry.CoreMetrics()
		}
		return nil
	}
}

// WithPrefix sets the subject namespace all data and query subjects live
// under. Defaults to "ks".
func WithPrefix(prefix string) Option {
	return func(e *Engine) error {
		if prefix != "" {
			e.prefix = prefix
		}
		return nil
	}
}

// WithStream sets the JetStream stream name backing reliable
// subscriptions. Defaults to "KEYSTREAM".
func WithStream(name string) Option {
	return func(e *Engine) error {
		if name != "" {
			e.streamName = name
		}
		return nil
	}
}

// WithQueryTimeout sets how long a query collects replies before the
// result set is considered complete
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d > 0 {
			e.queryTimeout = d
		}
		return nil
	}
}

// WithMaxReconnects sets the maximum number of reconnection attempts (-1 for infinite)
func WithMaxReconnects(max int) Option {
	return func(e *Engine) error {
		e.maxReconnects = max
		return nil
	}
}

// WithReconnectWait sets the wait time between reconnection attempts
func WithReconnectWait(d time.Duration) Option {
	return func(e *Engine) error {
		e.reconnectWait = d
		return nil
	}
}

// WithConnectTimeout sets the connection timeout
func WithConnectTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.connectTimeout = d
		return nil
	}
}

// WithName sets the client name used on NATS connections
func WithName(name string) Option {
	return func(e *Engine) error {
		e.clientName = name
		return nil
	}
}

// WithTLS enables TLS on engine connections. CertFile and KeyFile enable
// mutual TLS; caFiles add trusted CAs beyond the system bundle.
func WithTLS(cfg tlsutil.ClientConfig) Option {
	return func(e *Engine) error {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(cfg)
		if err != nil {
			return err
		}
		e.tlsConfig = tlsConfig
		return nil
	}
}
