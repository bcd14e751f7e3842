// Package metric provides Prometheus instrumentation for keystream
// sessions and engines.
//
// A MetricsRegistry owns a private Prometheus registry seeded with the
// core client metrics plus the Go runtime collectors. Engines and
// sessions record into the shared Metrics struct; Server exposes the
// registry over HTTP for scraping.
package metric
