// Package keystream provides a pub/sub/query messaging client built
// around hierarchical key expressions.
//
// # Model
//
// Every piece of data lives under a key expression: `/`-separated chunks
// where `*` matches exactly one chunk and `**` matches any number,
// including none. Two expressions intersect when some concrete key
// matches both; routing, subscription matching and query dispatch are all
// defined in terms of intersection.
//
//	demo/*      intersects  demo/a        (one chunk)
//	demo/*      misses      demo/a/b
//	demo/**     intersects  demo/a/b/c
//
// A selector extends a key expression with an optional value selector
// after `?`: a filter, parenthesized properties and a bracketed fragment,
// e.g. `demo/sensor/*?(unit=celsius)`.
//
// Values carry an encoding tag (MIME-style prefix plus free suffix) that
// drives decoding on the receiving side: JSON, plain text, properties,
// integers, floats or raw bytes.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          session.Session            │  Put/Delete, Subscribe,
//	│  (refcounted, callback runtime)     │  Queryable, Get
//	└─────────────────────────────────────┘
//	           ↓ drives
//	┌─────────────────────────────────────┐
//	│          engine.Engine              │  One interface, two
//	│   (memengine | natsengine)          │  implementations
//	└─────────────────────────────────────┘
//	           ↓ natsengine maps onto
//	┌─────────────────────────────────────┐
//	│          NATS subjects              │  `/`→`.`, `*`→`*`, `**`→`>`
//	│   (core pub/sub + JetStream)        │  queries via inbox fan-out
//	└─────────────────────────────────────┘
//
// Sessions are reference counted: NewRef shares a connection, Close
// releases one reference and only the last one tears the connection down.
// Subscribers, queryables and publications are exclusive handles closed
// exactly once.
//
// User callbacks run on engine goroutines behind the session's runtime
// bridge: serialized, panic-isolated and handed independent copies of the
// data.
//
// # Packages
//
// Core model:
//   - keyexpr: key expressions, intersection, selectors
//   - message: encodings, values, samples, properties
//   - query: targets, consolidation, replies
//
// Infrastructure:
//   - session: the user-facing client surface
//   - engine: the engine contract and reply consolidation
//   - engine/memengine: in-process engine for tests and single-process use
//   - engine/natsengine: NATS-backed engine with JetStream reliability
//   - config: session configuration, JSON/YAML loading, live notifier
//   - metric: Prometheus metrics
//   - errors: structured error handling
//   - pkg/tlsutil: TLS configuration for engine connections
//
// # Usage
//
// Publish and subscribe:
//
//	eng, _ := natsengine.New()
//	sess, _ := session.Open(eng, config.Client("nats://localhost:4222"))
//	defer sess.Close()
//
//	sub, _ := sess.Subscribe("demo/**", func(s message.Sample) {
//	    fmt.Println(s.KeyExpr.String(), string(s.Value.Payload))
//	})
//	defer sub.Close()
//
//	sess.Put("demo/sensor/temp", 23)
//
// Serve and issue queries:
//
//	qbl, _ := sess.DeclareQueryable("demo/**", func(q *session.Query) {
//	    q.Reply(message.NewSample(keyexpr.New("demo/sensor/temp"), message.IntValue(23)))
//	})
//	defer qbl.Close()
//
//	replies, _ := sess.Get("demo/sensor/temp?(unit=celsius)")
//
// # Binary
//
// The keystream command wraps the client for the shell:
//
//	keystream -url nats://localhost:4222 sub 'demo/**'
//	keystream -url nats://localhost:4222 pub demo/sensor/temp 23
//	keystream -url nats://localhost:4222 get 'demo/**'
package keystream
