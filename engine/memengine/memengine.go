// Package memengine provides an in-process messaging engine. It routes
// samples and queries between the sessions it hosts using key-expression
// intersection, delivering events on its own goroutines exactly like a
// networked engine would. It backs unit and end-to-end tests and is usable
// for single-process deployments.
package memengine

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/keystream/config"
	"github.com/c360/keystream/engine"
	"github.com/c360/keystream/errors"
	"github.com/c360/keystream/keyexpr"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/query"
)

// queueDepth is the per-subscription buffer between routing and the
// delivery goroutine.
const queueDepth = 64

var (
	errInvalidHandle = stderrors.New("handle does not belong to this engine")
	errUnknownAlias  = stderrors.New("unknown key expression alias")
)

// Engine is an in-process messaging engine.
type Engine struct {
	id     string
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[*session]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for routing diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an empty in-process engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		id:       uuid.NewString(),
		logger:   slog.Default(),
		sessions: map[*session]struct{}{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type session struct {
	eng      *Engine
	id       string
	notifier *config.Notifier

	mu         sync.Mutex
	closed     bool
	nextAlias  uint64
	aliases    map[uint64]string
	pubs       map[string]struct{}
	subs       map[*subscriber]struct{}
	queryables map[*queryable]struct{}
	sn         uint64
}

type subscriber struct {
	sess *session
	key  keyexpr.KeyExpr
	opts engine.SubscribeOptions
	cb   engine.SampleCallback

	queue chan message.Sample
	quit  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	pending []message.Sample
}

type queryable struct {
	sess     *session
	key      keyexpr.KeyExpr
	complete bool
	cb       engine.QueryCallback

	mu     sync.Mutex
	closed bool
}

// queryContext collects the replies of one queryable to one query.
type queryContext struct {
	replierID string

	mu      sync.Mutex
	replies []query.Reply
	done    bool
}

// Open implements engine.Engine.
func (e *Engine) Open(cfg *config.Config) (engine.SessionHandle, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &session{
		eng:        e,
		id:         uuid.NewString(),
		notifier:   config.NewNotifier(cfg.Clone()),
		aliases:    map[uint64]string{},
		pubs:       map[string]struct{}{},
		subs:       map[*subscriber]struct{}{},
		queryables: map[*queryable]struct{}{},
	}

	e.mu.Lock()
	e.sessions[s] = struct{}{}
	e.mu.Unlock()

	e.logger.Debug("opened in-process session", "session", s.id)
	return s, nil
}

// Close implements engine.Engine.
func (e *Engine) Close(h engine.SessionHandle) error {
	s, err := e.session(h)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.closed = true
	subs := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = map[*subscriber]struct{}{}
	s.queryables = map[*queryable]struct{}{}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}

	e.mu.Lock()
	delete(e.sessions, s)
	e.mu.Unlock()

	e.logger.Debug("closed in-process session", "session", s.id)
	return nil
}

// SessionInfo implements engine.Engine.
func (e *Engine) SessionInfo(h engine.SessionHandle) (map[string]string, error) {
	s, err := e.session(h)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		config.InfoKeyNames[config.InfoPIDKey]:       s.id,
		config.InfoKeyNames[config.InfoRouterPIDKey]: e.id,
	}, nil
}

// Config implements engine.Engine.
func (e *Engine) Config(h engine.SessionHandle) (engine.ConfigNotifier, error) {
	s, err := e.session(h)
	if err != nil {
		return nil, err
	}
	return s.notifier, nil
}

// DeclareAlias implements engine.Engine.
func (e *Engine) DeclareAlias(h engine.SessionHandle, key keyexpr.KeyExpr) (uint64, error) {
	s, err := e.session(h)
	if err != nil {
		return 0, err
	}
	expanded, err := s.resolve(key)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAlias++
	id := s.nextAlias
	s.aliases[id] = expanded
	return id, nil
}

// UndeclareAlias implements engine.Engine.
func (e *Engine) UndeclareAlias(h engine.SessionHandle, id uint64) error {
	s, err := e.session(h)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[id]; !ok {
		return fmt.Errorf("%w: %d", errUnknownAlias, id)
	}
	delete(s.aliases, id)
	return nil
}

// ExpandKeyExpr implements engine.Engine.
func (e *Engine) ExpandKeyExpr(h engine.SessionHandle, key keyexpr.KeyExpr) (string, error) {
	s, err := e.session(h)
	if err != nil {
		return "", err
	}
	return s.resolve(key)
}

// DeclarePublication implements engine.Engine.
func (e *Engine) DeclarePublication(h engine.SessionHandle, key keyexpr.KeyExpr) error {
	s, err := e.session(h)
	if err != nil {
		return err
	}
	expanded, err := s.resolve(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pubs[expanded] = struct{}{}
	return nil
}

// UndeclarePublication implements engine.Engine.
func (e *Engine) UndeclarePublication(h engine.SessionHandle, key keyexpr.KeyExpr) error {
	s, err := e.session(h)
	if err != nil {
		return err
	}
	expanded, err := s.resolve(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pubs[expanded]; !ok {
		return fmt.Errorf("publication %q was not declared", expanded)
	}
	delete(s.pubs, expanded)
	return nil
}

// Publish implements engine.Engine.
func (e *Engine) Publish(h engine.SessionHandle, key keyexpr.KeyExpr, value message.Value, opts engine.PutOptions) error {
	return e.route(h, key, value, message.Put, opts)
}

// Delete implements engine.Engine.
func (e *Engine) Delete(h engine.SessionHandle, key keyexpr.KeyExpr, opts engine.PutOptions) error {
	return e.route(h, key, message.Value{}, message.Delete, opts)
}

// route builds the sample for a put/delete and fans it out to every
// intersecting subscription across all sessions.
func (e *Engine) route(h engine.SessionHandle, key keyexpr.KeyExpr, value message.Value, kind message.SampleKind, opts engine.PutOptions) error {
	s, err := e.session(h)
	if err != nil {
		return err
	}
	expanded, err := s.resolve(key)
	if err != nil {
		return err
	}

	if opts.Encoding != nil {
		value.Encoding = *opts.Encoding
	}
	if opts.Kind == message.Delete {
		kind = message.Delete
	}

	sample := message.Sample{
		KeyExpr: keyexpr.New(expanded),
		Value:   value,
		Kind:    kind,
	}

	snapshot := s.notifier.Snapshot()
	s.mu.Lock()
	s.sn++
	sample.SourceInfo = &message.SourceInfo{SourceID: s.id, SourceSN: s.sn}
	s.mu.Unlock()
	if snapshot.AddTimestamp {
		sample.Timestamp = &message.Timestamp{Time: time.Now(), ID: []byte(e.id)}
	}

	localRouting := opts.LocalRouting == nil || *opts.LocalRouting

	e.mu.RLock()
	defer e.mu.RUnlock()
	for target := range e.sessions {
		if target == s && !localRouting {
			continue
		}
		target.mu.Lock()
		for sub := range target.subs {
			if keyexpr.Intersects(sub.key, sample.KeyExpr) {
				sub.deliver(sample)
			}
		}
		target.mu.Unlock()
	}
	return nil
}

// Subscribe implements engine.Engine.
func (e *Engine) Subscribe(h engine.SessionHandle, key keyexpr.KeyExpr, opts engine.SubscribeOptions, cb engine.SampleCallback) (engine.SubscriberHandle, error) {
	s, err := e.session(h)
	if err != nil {
		return nil, err
	}
	expanded, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{
		sess:  s,
		key:   keyexpr.New(expanded),
		opts:  opts,
		cb:    cb,
		queue: make(chan message.Sample, queueDepth),
		quit:  make(chan struct{}),
	}
	if opts.Mode == engine.Push {
		sub.wg.Add(1)
		go sub.run()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		sub.stop()
		return nil, errors.ErrEngineClosed
	}
	s.subs[sub] = struct{}{}
	return sub, nil
}

// CloseSubscriber implements engine.Engine.
func (e *Engine) CloseSubscriber(h engine.SubscriberHandle) error {
	sub, ok := h.(*subscriber)
	if !ok {
		return errInvalidHandle
	}

	sub.sess.mu.Lock()
	delete(sub.sess.subs, sub)
	sub.sess.mu.Unlock()

	sub.stop()
	return nil
}

// Pull implements engine.Engine. It delivers the samples queued for a
// pull-mode subscription since the previous pull, in arrival order.
func (e *Engine) Pull(h engine.SubscriberHandle) error {
	sub, ok := h.(*subscriber)
	if !ok {
		return errInvalidHandle
	}
	if sub.opts.Mode != engine.Pull {
		return fmt.Errorf("subscription on %q is not in pull mode", sub.key.String())
	}

	sub.mu.Lock()
	pending := sub.pending
	sub.pending = nil
	closed := sub.closed
	sub.mu.Unlock()

	if closed {
		return errors.ErrEngineClosed
	}
	for _, sample := range pending {
		sub.cb(sample)
	}
	return nil
}

// DeclareQueryable implements engine.Engine.
func (e *Engine) DeclareQueryable(h engine.SessionHandle, key keyexpr.KeyExpr, opts engine.QueryableOptions, cb engine.QueryCallback) (engine.QueryableHandle, error) {
	s, err := e.session(h)
	if err != nil {
		return nil, err
	}
	expanded, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	complete := true
	if opts.Complete != nil {
		complete = *opts.Complete
	}
	q := &queryable{sess: s, key: keyexpr.New(expanded), complete: complete, cb: cb}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.ErrEngineClosed
	}
	s.queryables[q] = struct{}{}
	return q, nil
}

// CloseQueryable implements engine.Engine.
func (e *Engine) CloseQueryable(h engine.QueryableHandle) error {
	q, ok := h.(*queryable)
	if !ok {
		return errInvalidHandle
	}

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.sess.mu.Lock()
	delete(q.sess.queryables, q)
	q.sess.mu.Unlock()
	return nil
}

// Query implements engine.Engine. Each matching queryable's callback runs
// on its own goroutine; Query blocks until every callback has returned,
// then consolidates the collected replies at reception.
func (e *Engine) Query(h engine.SessionHandle, sel keyexpr.Selector, target query.Target, strategy query.ConsolidationStrategy) ([]query.Reply, error) {
	s, err := e.session(h)
	if err != nil {
		return nil, err
	}
	expanded, err := s.resolve(sel.KeySelector())
	if err != nil {
		return nil, err
	}
	if target.Kind == query.None {
		return nil, nil
	}

	queryKey := keyexpr.New(expanded)
	resolved := keyexpr.ParseSelector(expanded + sel.ValueSelectorString())

	var matching []*queryable
	e.mu.RLock()
	for sess := range e.sessions {
		sess.mu.Lock()
		for q := range sess.queryables {
			if !keyexpr.Intersects(q.key, queryKey) {
				continue
			}
			if (target.Kind == query.AllComplete || target.Kind == query.CompleteN) && !q.complete {
				continue
			}
			matching = append(matching, q)
		}
		sess.mu.Unlock()
	}
	e.mu.RUnlock()

	if target.Kind == query.CompleteN && uint64(len(matching)) > target.N {
		matching = matching[:target.N]
	}

	contexts := make([]*queryContext, len(matching))
	var wg sync.WaitGroup
	for i, q := range matching {
		ctx := &queryContext{replierID: q.sess.id}
		contexts[i] = ctx
		wg.Add(1)
		go func(q *queryable, ctx *queryContext) {
			defer wg.Done()
			q.cb(engine.IncomingQuery{Selector: resolved, Handle: ctx})
		}(q, ctx)
	}
	wg.Wait()

	var replies []query.Reply
	for _, ctx := range contexts {
		ctx.mu.Lock()
		ctx.done = true
		replies = append(replies, ctx.replies...)
		ctx.mu.Unlock()
	}
	return engine.Consolidate(replies, strategy.Reception), nil
}

// Reply implements engine.Engine.
func (e *Engine) Reply(h engine.QueryHandle, reply query.Reply) error {
	ctx, ok := h.(*queryContext)
	if !ok {
		return errInvalidHandle
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.done {
		return errors.ErrQueryComplete
	}
	if reply.ReplierID == "" {
		reply.ReplierID = ctx.replierID
	}
	ctx.replies = append(ctx.replies, reply)
	return nil
}

// session checks the handle belongs to this engine and is still open.
func (e *Engine) session(h engine.SessionHandle) (*session, error) {
	s, ok := h.(*session)
	if !ok || s.eng != e {
		return nil, errInvalidHandle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.ErrEngineClosed
	}
	return s, nil
}

// resolve expands a possibly scoped key expression against the session's
// declared aliases.
func (s *session) resolve(key keyexpr.KeyExpr) (string, error) {
	if key.Scope() == 0 {
		return key.Suffix(), nil
	}

	s.mu.Lock()
	expansion, ok := s.aliases[key.Scope()]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %d", errUnknownAlias, key.Scope())
	}
	if key.Suffix() == "" {
		return expansion, nil
	}
	return expansion + "/" + key.Suffix(), nil
}

// deliver hands a sample to the subscription. Push mode enqueues for the
// delivery goroutine, dropping when the buffer is full; pull mode queues
// until the next pull. Called with the owning session's mutex held.
func (sub *subscriber) deliver(sample message.Sample) {
	if sub.opts.Mode == engine.Pull {
		sub.mu.Lock()
		if !sub.closed {
			sub.pending = append(sub.pending, sample)
		}
		sub.mu.Unlock()
		return
	}

	select {
	case sub.queue <- sample:
	default:
		sub.sess.eng.logger.Warn("subscription queue full, dropping sample",
			"key", sample.KeyExpr.String(), "subscription", sub.key.String())
	}
}

// run is the delivery goroutine of a push-mode subscription. Samples are
// delivered in arrival order; nothing is delivered after stop returns.
func (sub *subscriber) run() {
	defer sub.wg.Done()
	for {
		select {
		case <-sub.quit:
			return
		case sample := <-sub.queue:
			sub.cb(sample)
		}
	}
}

// stop ends delivery and waits for the delivery goroutine to exit.
func (sub *subscriber) stop() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.mu.Unlock()

	close(sub.quit)
	sub.wg.Wait()
}
