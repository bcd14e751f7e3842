package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360/keystream/config"
	"github.com/c360/keystream/engine"
	"github.com/c360/keystream/errors"
	"github.com/c360/keystream/keyexpr"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/metric"
	"github.com/c360/keystream/query"
)

// core is the shared state behind one engine connection. Every Session
// referring to it holds one counted reference; the connection closes when
// the last reference is released.
type core struct {
	eng     engine.Engine
	handle  engine.SessionHandle
	rt      *runtime
	logger  *slog.Logger
	metrics *metric.Metrics

	mu   sync.Mutex
	refs int
}

// Session is a handle on an open engine connection. A Session is closed
// exactly once; operations on a closed Session fail with ErrClosed.
type Session struct {
	mu   sync.Mutex
	core *core
}

// Option configures a Session at open time.
type Option func(*openConfig)

type openConfig struct {
	logger  *slog.Logger
	metrics *metric.Metrics
}

// WithLogger sets the logger for the session and its callback runtime.
func WithLogger(logger *slog.Logger) Option {
	return func(c *openConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records session activity into the registry's core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *openConfig) {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
	}
}

// Open establishes a session over the given engine.
func Open(eng engine.Engine, cfg *config.Config, opts ...Option) (*Session, error) {
	if eng == nil {
		return nil, errors.ErrNoEngine
	}

	oc := openConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&oc)
	}

	handle, err := eng.Open(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "Session", "Open", "open engine session")
	}

	c := &core{
		eng:     eng,
		handle:  handle,
		rt:      newRuntime(oc.logger, oc.metrics),
		logger:  oc.logger,
		metrics: oc.metrics,
		refs:    1,
	}
	if c.metrics != nil {
		c.metrics.SessionsOpen.Inc()
	}
	return &Session{core: c}, nil
}

// NewRef returns a new Session sharing this session's connection. Each
// reference is closed independently; the connection stays up until the
// last one goes.
func (s *Session) NewRef() (*Session, error) {
	c, err := s.enter()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.refs++
	c.mu.Unlock()
	return &Session{core: c}, nil
}

// Close releases this session handle. If other references to the same
// connection remain, the handle is released and ErrNotSoleOwner reports
// that the connection itself stayed up. Closing twice fails with
// ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	c := s.core
	s.core = nil
	s.mu.Unlock()
	if c == nil {
		return errors.ErrClosed
	}

	c.mu.Lock()
	c.refs--
	remaining := c.refs
	c.mu.Unlock()

	if remaining > 0 {
		return errors.ErrNotSoleOwner
	}

	if c.metrics != nil {
		c.metrics.SessionsOpen.Dec()
	}
	if err := c.eng.Close(c.handle); err != nil {
		return errors.Wrap(err, "Session", "Close", "close engine session")
	}
	return nil
}

// Put publishes a value on a key expression. Key and value accept any
// member of their convertible unions; see keyexpr.From and message.From.
func (s *Session) Put(key, value any, opts ...PutOption) error {
	c, err := s.enter()
	if err != nil {
		return err
	}
	k, err := keyexpr.From(key)
	if err != nil {
		return err
	}
	v, err := message.From(value)
	if err != nil {
		return err
	}

	po := engine.PutOptions{}
	for _, opt := range opts {
		opt(&po)
	}
	if err := c.eng.Publish(c.handle, k, v, po); err != nil {
		return errors.Wrap(err, "Session", "Put", "publish value")
	}
	if c.metrics != nil {
		c.metrics.PublishesTotal.WithLabelValues(message.Put.String()).Inc()
	}
	return nil
}

// Delete publishes a deletion on a key expression.
func (s *Session) Delete(key any, opts ...PutOption) error {
	c, err := s.enter()
	if err != nil {
		return err
	}
	k, err := keyexpr.From(key)
	if err != nil {
		return err
	}

	po := engine.PutOptions{}
	for _, opt := range opts {
		opt(&po)
	}
	if err := c.eng.Delete(c.handle, k, po); err != nil {
		return errors.Wrap(err, "Session", "Delete", "publish deletion")
	}
	if c.metrics != nil {
		c.metrics.PublishesTotal.WithLabelValues(message.Delete.String()).Inc()
	}
	return nil
}

// DeclareAlias registers a key expression with the engine and returns a
// numeric alias usable in place of the full expression.
func (s *Session) DeclareAlias(key any) (uint64, error) {
	c, err := s.enter()
	if err != nil {
		return 0, err
	}
	k, err := keyexpr.From(key)
	if err != nil {
		return 0, err
	}

	id, err := c.eng.DeclareAlias(c.handle, k)
	if err != nil {
		return 0, errors.Wrap(err, "Session", "DeclareAlias", "declare alias")
	}
	return id, nil
}

// UndeclareAlias releases a previously declared alias.
func (s *Session) UndeclareAlias(id uint64) error {
	c, err := s.enter()
	if err != nil {
		return err
	}
	if err := c.eng.UndeclareAlias(c.handle, id); err != nil {
		return errors.Wrap(err, "Session", "UndeclareAlias", "undeclare alias")
	}
	return nil
}

// ExpandKeyExpr resolves a possibly aliased key expression to its full
// string form.
func (s *Session) ExpandKeyExpr(key any) (string, error) {
	c, err := s.enter()
	if err != nil {
		return "", err
	}
	k, err := keyexpr.From(key)
	if err != nil {
		return "", err
	}

	expanded, err := c.eng.ExpandKeyExpr(c.handle, k)
	if err != nil {
		return "", errors.Wrap(err, "Session", "ExpandKeyExpr", "expand key expression")
	}
	return expanded, nil
}

// DeclarePublication announces the intent to publish on a key expression.
// Closing the returned handle retracts the declaration.
func (s *Session) DeclarePublication(key any) (*Publication, error) {
	c, err := s.enter()
	if err != nil {
		return nil, err
	}
	k, err := keyexpr.From(key)
	if err != nil {
		return nil, err
	}

	if err := c.eng.DeclarePublication(c.handle, k); err != nil {
		return nil, errors.Wrap(err, "Session", "DeclarePublication", "declare publication")
	}
	return &Publication{core: c, key: k}, nil
}

// Subscribe registers a callback for samples matching the key expression.
// The callback runs on the session's runtime: serialized, panic-isolated
// and with its own copy of each sample.
func (s *Session) Subscribe(key any, cb func(message.Sample), opts ...SubscribeOption) (*Subscriber, error) {
	c, err := s.enter()
	if err != nil {
		return nil, err
	}
	if cb == nil {
		return nil, fmt.Errorf("subscribe on %v: nil callback", key)
	}
	k, err := keyexpr.From(key)
	if err != nil {
		return nil, err
	}

	so := engine.SubscribeOptions{}
	for _, opt := range opts {
		opt(&so)
	}
	handle, err := c.eng.Subscribe(c.handle, k, so, c.rt.sampleBridge(cb))
	if err != nil {
		return nil, errors.Wrap(err, "Session", "Subscribe", "declare subscriber")
	}
	if c.metrics != nil {
		c.metrics.SubscribersActive.Inc()
	}
	return &Subscriber{core: c, handle: handle, key: k}, nil
}

// DeclareQueryable registers a callback answering queries whose selector
// intersects the key expression.
func (s *Session) DeclareQueryable(key any, cb func(*Query), opts ...QueryableOption) (*Queryable, error) {
	c, err := s.enter()
	if err != nil {
		return nil, err
	}
	if cb == nil {
		return nil, fmt.Errorf("declare queryable on %v: nil callback", key)
	}
	k, err := keyexpr.From(key)
	if err != nil {
		return nil, err
	}

	qo := engine.QueryableOptions{}
	for _, opt := range opts {
		opt(&qo)
	}
	handle, err := c.eng.DeclareQueryable(c.handle, k, qo, c.rt.queryBridge(c.eng, cb))
	if err != nil {
		return nil, errors.Wrap(err, "Session", "DeclareQueryable", "declare queryable")
	}
	if c.metrics != nil {
		c.metrics.QueryablesActive.Inc()
	}
	return &Queryable{core: c, handle: handle, key: k}, nil
}

// Get issues a query for the selector and returns the consolidated
// replies. The selector accepts any member of the selector union.
func (s *Session) Get(selector any, opts ...GetOption) ([]query.Reply, error) {
	c, err := s.enter()
	if err != nil {
		return nil, err
	}
	sel, err := keyexpr.SelectorFrom(selector)
	if err != nil {
		return nil, err
	}

	g := getOptions{target: query.TargetBestMatching(), consolidation: query.Default()}
	for _, opt := range opts {
		opt(&g)
	}
	strategy := g.consolidation.Resolve(sel)

	if c.metrics != nil {
		c.metrics.QueriesTotal.Inc()
	}
	replies, err := c.eng.Query(c.handle, sel, g.target, strategy)
	if err != nil {
		return nil, errors.Wrap(err, "Session", "Get", "run query")
	}
	if c.metrics != nil {
		c.metrics.RepliesTotal.Add(float64(len(replies)))
	}
	return replies, nil
}

// ID returns the engine-assigned identifier of this session.
func (s *Session) ID() (string, error) {
	info, err := s.Info()
	if err != nil {
		return "", err
	}
	return info[config.InfoKeyNames[config.InfoPIDKey]], nil
}

// Info returns engine-level identifiers for this session, keyed by the
// names in config.InfoKeyNames.
func (s *Session) Info() (map[string]string, error) {
	c, err := s.enter()
	if err != nil {
		return nil, err
	}
	info, err := c.eng.SessionInfo(c.handle)
	if err != nil {
		return nil, errors.Wrap(err, "Session", "Info", "fetch session info")
	}
	return info, nil
}

// Config returns the live configuration notifier for this session.
func (s *Session) Config() (engine.ConfigNotifier, error) {
	c, err := s.enter()
	if err != nil {
		return nil, err
	}
	notifier, err := c.eng.Config(c.handle)
	if err != nil {
		return nil, errors.Wrap(err, "Session", "Config", "fetch config")
	}
	return notifier, nil
}

// enter returns the live core or ErrClosed.
func (s *Session) enter() (*core, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.core == nil {
		return nil, errors.ErrClosed
	}
	return s.core, nil
}
