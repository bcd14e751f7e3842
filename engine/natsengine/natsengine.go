// Package natsengine implements the messaging engine over a NATS cluster.
//
// Data flows over plain NATS subjects derived from key expressions;
// reliable subscriptions are backed by a JetStream stream capturing the
// whole data space. Queries fan out over a broadcast subject: every
// queryable inspects the selector, replies to the query's inbox when its
// key intersects, and the querier closes the result set after a
// configurable collection window.
package natsengine

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/keystream/config"
	"github.com/c360/keystream/engine"
	"github.com/c360/keystream/errors"
	"github.com/c360/keystream/keyexpr"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/metric"
	"github.com/c360/keystream/query"
)

// Message headers carrying sample and reply metadata.
const (
	hdrEncoding     = "KS-Encoding"
	hdrKind         = "KS-Kind"
	hdrSource       = "KS-Source"
	hdrSN           = "KS-SN"
	hdrTime         = "KS-Time"
	hdrTimeID       = "KS-Time-ID"
	hdrKey          = "KS-Key"
	hdrReplier      = "KS-Replier"
	hdrError        = "KS-Error"
	hdrCompleteOnly = "KS-Complete-Only"
)

const (
	defaultPrefix       = "ks"
	defaultStream       = "KEYSTREAM"
	defaultQueryTimeout = time.Second
	pullQueueDepth      = 256
)

var errInvalidHandle = stderrors.New("handle does not belong to this engine")

// Engine implements engine.Engine over NATS.
type Engine struct {
	prefix     string
	streamName string
	clientName string

	queryTimeout   time.Duration
	maxReconnects  int
	reconnectWait  time.Duration
	connectTimeout time.Duration

	tlsConfig *tls.Config

	logger  *slog.Logger
	metrics *metric.Metrics
}

// New creates a NATS engine with optional configuration.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		prefix:         defaultPrefix,
		streamName:     defaultStream,
		clientName:     "keystream",
		queryTimeout:   defaultQueryTimeout,
		maxReconnects:  -1,
		reconnectWait:  2 * time.Second,
		connectTimeout: 5 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, errors.Wrap(err, "Engine", "New", "apply option")
		}
	}
	return e, nil
}

type session struct {
	eng      *Engine
	id       string
	conn     *nats.Conn
	notifier *config.Notifier
	sn       atomic.Uint64

	mu         sync.Mutex
	closed     bool
	js         jetstream.JetStream
	stream     jetstream.Stream
	nextAlias  uint64
	aliases    map[uint64]string
	pubs       map[string]struct{}
	subs       map[*subscriber]struct{}
	queryables map[*queryable]struct{}
}

type subscriber struct {
	sess  *session
	key   keyexpr.KeyExpr
	mode  engine.SubMode
	exact bool
	cb    engine.SampleCallback

	sub     *nats.Subscription
	consume jetstream.ConsumeContext
	queue   chan *nats.Msg
}

type queryable struct {
	sess     *session
	key      keyexpr.KeyExpr
	complete bool
	cb       engine.QueryCallback

	sub *nats.Subscription
}

// queryContext lets one queryable reply to one in-flight query.
type queryContext struct {
	conn      *nats.Conn
	inbox     string
	replierID string

	mu   sync.Mutex
	done bool
}

// Open implements engine.Engine. It dials the endpoints from the
// configuration and sets up the session's subject namespace.
func (e *Engine) Open(cfg *config.Config) (engine.SessionHandle, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	url := nats.DefaultURL
	if len(cfg.Connect) > 0 {
		url = strings.Join(cfg.Connect, ",")
	}

	opts := []nats.Option{
		nats.Name(e.clientName),
		nats.Timeout(e.connectTimeout),
		nats.MaxReconnects(e.maxReconnects),
		nats.ReconnectWait(e.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			e.logger.Warn("engine disconnected", "error", err)
			if e.metrics != nil {
				e.metrics.EngineConnected.Set(0)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			e.logger.Info("engine reconnected", "url", nc.ConnectedUrl())
			if e.metrics != nil {
				e.metrics.EngineConnected.Set(1)
				e.metrics.EngineReconnects.Inc()
			}
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	if e.tlsConfig != nil {
		opts = append(opts, nats.Secure(e.tlsConfig))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.Engine("open", fmt.Errorf("connect to %s: %w", url, err))
	}
	if e.metrics != nil {
		e.metrics.EngineConnected.Set(1)
	}

	s := &session{
		eng:        e,
		id:         uuid.NewString(),
		conn:       conn,
		notifier:   config.NewNotifier(cfg.Clone()),
		aliases:    map[uint64]string{},
		pubs:       map[string]struct{}{},
		subs:       map[*subscriber]struct{}{},
		queryables: map[*queryable]struct{}{},
	}
	e.logger.Debug("opened session", "session", s.id, "url", conn.ConnectedUrl())
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
	queryables := make([]*queryable, 0, len(s.queryables))
	for q := range s.queryables {
		queryables = append(queryables, q)
	}
	s.subs = map[*subscriber]struct{}{}
	s.queryables = map[*queryable]struct{}{}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	for _, q := range queryables {
		_ = q.sub.Unsubscribe()
	}

	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return errors.Engine("close", err)
	}
	e.logger.Debug("closed session", "session", s.id)
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
		config.InfoKeyNames[config.InfoRouterPIDKey]: s.conn.ConnectedServerId(),
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

// DeclareAlias implements engine.Engine. Aliases are a session-local
// abbreviation table; nothing crosses the wire until the alias is used.
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
		return fmt.Errorf("unknown key expression alias: %d", id)
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
	if _, err := dataSubject(e.prefix, expanded); err != nil {
		return errors.Engine("declare_publication", err)
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
	return e.send(h, key, value, message.Put, opts)
}

// Delete implements engine.Engine.
func (e *Engine) Delete(h engine.SessionHandle, key keyexpr.KeyExpr, opts engine.PutOptions) error {
	return e.send(h, key, message.Value{}, message.Delete, opts)
}

func (e *Engine) send(h engine.SessionHandle, key keyexpr.KeyExpr, value message.Value, kind message.SampleKind, opts engine.PutOptions) error {
	s, err := e.session(h)
	if err != nil {
		return err
	}
	expanded, err := s.resolve(key)
	if err != nil {
		return err
	}
	subject, err := dataSubject(e.prefix, expanded)
	if err != nil {
		return errors.Engine("publish", err)
	}

	if opts.Encoding != nil {
		value.Encoding = *opts.Encoding
	}
	if opts.Kind == message.Delete {
		kind = message.Delete
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    value.Payload,
		Header:  nats.Header{},
	}
	msg.Header.Set(hdrEncoding, value.Encoding.String())
	msg.Header.Set(hdrKind, kind.String())
	msg.Header.Set(hdrSource, s.id)
	msg.Header.Set(hdrSN, strconv.FormatUint(s.sn.Add(1), 10))
	if s.notifier.Snapshot().AddTimestamp {
		msg.Header.Set(hdrTime, time.Now().UTC().Format(time.RFC3339Nano))
		msg.Header.Set(hdrTimeID, s.conn.ConnectedServerId())
	}

	if err := s.conn.PublishMsg(msg); err != nil {
		return errors.Engine("publish", err)
	}
	if e.metrics != nil {
		e.metrics.PublishesTotal.WithLabelValues(kind.String()).Inc()
	}
	return nil
}

// Subscribe implements engine.Engine. BestEffort subscriptions ride plain
// NATS; Reliable subscriptions consume from the JetStream stream backing
// the data space, so samples published while the subscriber was away are
// still delivered.
func (e *Engine) Subscribe(h engine.SessionHandle, key keyexpr.KeyExpr, opts engine.SubscribeOptions, cb engine.SampleCallback) (engine.SubscriberHandle, error) {
	s, err := e.session(h)
	if err != nil {
		return nil, err
	}
	expanded, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	subject, exact, err := subscribeSubject(e.prefix, expanded)
	if err != nil {
		return nil, errors.Engine("subscribe", err)
	}

	sub := &subscriber{
		sess:  s,
		key:   keyexpr.New(expanded),
		mode:  opts.Mode,
		exact: exact,
		cb:    cb,
	}

	switch {
	case opts.Mode == engine.Pull:
		sub.queue = make(chan *nats.Msg, pullQueueDepth)
		natsSub, err := s.conn.ChanSubscribe(subject, sub.queue)
		if err != nil {
			return nil, errors.Engine("subscribe", err)
		}
		sub.sub = natsSub

	case opts.Reliability == engine.Reliable:
		consume, err := e.consumeReliable(s, subject, sub)
		if err != nil {
			return nil, err
		}
		sub.consume = consume

	default:
		natsSub, err := s.conn.Subscribe(subject, func(m *nats.Msg) {
			sub.handle(m.Subject, m.Header, m.Data)
		})
		if err != nil {
			return nil, errors.Engine("subscribe", err)
		}
		sub.sub = natsSub
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

// consumeReliable lazily provisions the stream and attaches an ephemeral
// consumer filtered to the subscription's subject.
func (e *Engine) consumeReliable(s *session, subject string, sub *subscriber) (jetstream.ConsumeContext, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.connectTimeout)
	defer cancel()

	s.mu.Lock()
	if s.js == nil {
		js, err := jetstream.New(s.conn)
		if err != nil {
			s.mu.Unlock()
			return nil, errors.Engine("subscribe", err)
		}
		stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:      e.streamName,
			Subjects:  []string{e.prefix + ".data.>"},
			Retention: jetstream.LimitsPolicy,
		})
		if err != nil {
			s.mu.Unlock()
			return nil, errors.Engine("subscribe", fmt.Errorf("provision stream %s: %w", e.streamName, err))
		}
		s.js = js
		s.stream = stream
	}
	stream := s.stream
	s.mu.Unlock()

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, errors.Engine("subscribe", err)
	}
	consume, err := cons.Consume(func(m jetstream.Msg) {
		sub.handle(m.Subject(), m.Headers(), m.Data())
		_ = m.Ack()
	})
	if err != nil {
		return nil, errors.Engine("subscribe", err)
	}
	return consume, nil
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

// Pull implements engine.Engine. It drains the samples buffered for a
// pull-mode subscription and delivers them in arrival order.
func (e *Engine) Pull(h engine.SubscriberHandle) error {
	sub, ok := h.(*subscriber)
	if !ok {
		return errInvalidHandle
	}
	if sub.mode != engine.Pull {
		return fmt.Errorf("subscription on %q is not in pull mode", sub.key.String())
	}

	for {
		select {
		case m := <-sub.queue:
			sub.handle(m.Subject, m.Header, m.Data)
		default:
			return nil
		}
	}
}

// DeclareQueryable implements engine.Engine. Every queryable subscribes to
// the broadcast query subject and filters selectors locally by key
// intersection.
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

	natsSub, err := s.conn.Subscribe(querySubject(e.prefix), func(m *nats.Msg) {
		q.serve(m)
	})
	if err != nil {
		return nil, errors.Engine("declare_queryable", err)
	}
	q.sub = natsSub

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = natsSub.Unsubscribe()
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

	q.sess.mu.Lock()
	delete(q.sess.queryables, q)
	q.sess.mu.Unlock()

	if err := q.sub.Unsubscribe(); err != nil {
		return errors.Engine("close_queryable", err)
	}
	return nil
}

// Query implements engine.Engine. Replies are collected from the query's
// inbox until the collection window closes, then consolidated at
// reception.
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

	started := time.Now()
	if e.metrics != nil {
		e.metrics.QueriesTotal.Inc()
		defer func() {
			e.metrics.QueryDuration.Observe(time.Since(started).Seconds())
		}()
	}

	inbox := nats.NewInbox()
	isub, err := s.conn.SubscribeSync(inbox)
	if err != nil {
		return nil, errors.Engine("query", err)
	}
	defer func() { _ = isub.Unsubscribe() }()

	req := &nats.Msg{
		Subject: querySubject(e.prefix),
		Reply:   inbox,
		Data:    []byte(expanded + sel.ValueSelectorString()),
		Header:  nats.Header{},
	}
	if target.Kind == query.AllComplete || target.Kind == query.CompleteN {
		req.Header.Set(hdrCompleteOnly, "1")
	}
	if err := s.conn.PublishMsg(req); err != nil {
		return nil, errors.Engine("query", err)
	}

	var replies []query.Reply
	deadline := time.Now().Add(e.queryTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		m, err := isub.NextMsg(remaining)
		if err != nil {
			break
		}
		reply, err := replyFromMsg(m)
		if err != nil {
			e.logger.Warn("discarding malformed reply", "error", err)
			continue
		}
		replies = append(replies, reply)
		if e.metrics != nil {
			e.metrics.RepliesTotal.Inc()
		}
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

	msg := &nats.Msg{Subject: ctx.inbox, Header: nats.Header{}}
	msg.Header.Set(hdrReplier, reply.ReplierID)
	switch {
	case reply.Err != nil:
		msg.Header.Set(hdrError, "1")
		msg.Header.Set(hdrEncoding, reply.Err.Encoding.String())
		msg.Data = reply.Err.Payload
	case reply.Sample != nil:
		msg.Header.Set(hdrKey, reply.Sample.KeyExpr.String())
		msg.Header.Set(hdrEncoding, reply.Sample.Value.Encoding.String())
		msg.Header.Set(hdrKind, reply.Sample.Kind.String())
		if reply.Sample.Timestamp != nil {
			msg.Header.Set(hdrTime, reply.Sample.Timestamp.Time.UTC().Format(time.RFC3339Nano))
			msg.Header.Set(hdrTimeID, string(reply.Sample.Timestamp.ID))
		}
		msg.Data = reply.Sample.Value.Payload
	default:
		return fmt.Errorf("reply carries neither a sample nor an error value")
	}

	if err := ctx.conn.PublishMsg(msg); err != nil {
		return errors.Engine("reply", err)
	}
	return nil
}

// serve handles one incoming query on behalf of a queryable.
func (q *queryable) serve(m *nats.Msg) {
	if m.Reply == "" {
		return
	}
	sel := keyexpr.ParseSelector(string(m.Data))
	if !keyexpr.Intersects(q.key, sel.KeySelector()) {
		return
	}
	if m.Header.Get(hdrCompleteOnly) == "1" && !q.complete {
		return
	}

	ctx := &queryContext{
		conn:      q.sess.conn,
		inbox:     m.Reply,
		replierID: q.sess.id,
	}
	q.cb(engine.IncomingQuery{Selector: sel, Handle: ctx})

	ctx.mu.Lock()
	ctx.done = true
	ctx.mu.Unlock()
}

// handle decodes a wire message into a sample and delivers it if the key
// really intersects the subscription.
func (sub *subscriber) handle(subject string, hdr nats.Header, data []byte) {
	eng := sub.sess.eng
	sample, err := sampleFromWire(eng.prefix, subject, hdr, data)
	if err != nil {
		eng.logger.Warn("discarding malformed sample", "subject", subject, "error", err)
		return
	}
	if !sub.exact && !keyexpr.Intersects(sub.key, sample.KeyExpr) {
		return
	}
	sub.cb(sample)
}

func (sub *subscriber) stop() {
	if sub.sub != nil {
		_ = sub.sub.Unsubscribe()
	}
	if sub.consume != nil {
		sub.consume.Stop()
	}
}

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

func (s *session) resolve(key keyexpr.KeyExpr) (string, error) {
	if key.Scope() == 0 {
		return key.Suffix(), nil
	}

	s.mu.Lock()
	expansion, ok := s.aliases[key.Scope()]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown key expression alias: %d", key.Scope())
	}
	if key.Suffix() == "" {
		return expansion, nil
	}
	return expansion + "/" + key.Suffix(), nil
}

// sampleFromWire rebuilds a sample from a data message.
func sampleFromWire(prefix, subject string, hdr nats.Header, data []byte) (message.Sample, error) {
	key, err := keyFromSubject(prefix, subject)
	if err != nil {
		return message.Sample{}, err
	}

	sample := message.Sample{
		KeyExpr: keyexpr.New(key),
		Value: message.Value{
			Payload:  data,
			Encoding: message.ParseEncoding(hdr.Get(hdrEncoding)),
		},
	}
	if hdr.Get(hdrKind) == message.Delete.String() {
		sample.Kind = message.Delete
	}
	if src := hdr.Get(hdrSource); src != "" {
		sn, _ := strconv.ParseUint(hdr.Get(hdrSN), 10, 64)
		sample.SourceInfo = &message.SourceInfo{SourceID: src, SourceSN: sn}
	}
	if ts := hdr.Get(hdrTime); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return message.Sample{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		sample.Timestamp = &message.Timestamp{Time: t, ID: []byte(hdr.Get(hdrTimeID))}
	}
	return sample, nil
}

// replyFromMsg rebuilds a reply from an inbox message.
func replyFromMsg(m *nats.Msg) (query.Reply, error) {
	replier := m.Header.Get(hdrReplier)

	if m.Header.Get(hdrError) == "1" {
		value := message.Value{
			Payload:  m.Data,
			Encoding: message.ParseEncoding(m.Header.Get(hdrEncoding)),
		}
		return query.ReplyErr(value, replier), nil
	}

	key := m.Header.Get(hdrKey)
	if key == "" {
		return query.Reply{}, fmt.Errorf("reply is missing the %s header", hdrKey)
	}
	sample := message.Sample{
		KeyExpr: keyexpr.New(key),
		Value: message.Value{
			Payload:  m.Data,
			Encoding: message.ParseEncoding(m.Header.Get(hdrEncoding)),
		},
	}
	if m.Header.Get(hdrKind) == message.Delete.String() {
		sample.Kind = message.Delete
	}
	if ts := m.Header.Get(hdrTime); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return query.Reply{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		sample.Timestamp = &message.Timestamp{Time: t, ID: []byte(m.Header.Get(hdrTimeID))}
	}
	return query.ReplyOK(sample, replier), nil
}
