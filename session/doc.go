// Package session is the user-facing surface of the keystream client.
//
// A Session wraps an engine connection and exposes put/delete, declared
// publications, push and pull subscriptions, queryables and queries. The
// engine owns the delivery goroutines; the session's runtime bridge
// serializes user callbacks, recovers their panics and hands each one an
// independent copy of the data, so callbacks may block or fail without
// corrupting the engine.
//
// Sessions are reference counted. NewRef shares the underlying connection;
// Close closes this handle exactly once and only tears the connection down
// when no other reference remains.
package session
