package memengine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/keystream/config"
	"github.com/c360/keystream/engine"
	"github.com/c360/keystream/errors"
	"github.com/c360/keystream/keyexpr"
	"github.com/c360/keystream/message"
	"github.com/c360/keystream/query"
)

// collector gathers pushed samples behind a mutex so tests can wait for a
// delivery count without racing the delivery goroutine.
type collector struct {
	mu      sync.Mutex
	samples []message.Sample
}

func (c *collector) callback(s message.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
}

func (c *collector) wait(t *testing.T, n int) []message.Sample {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.samples)
		c.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.samples, n)
	return append([]message.Sample(nil), c.samples...)
}

func openSession(t *testing.T, e *Engine) engine.SessionHandle {
	t.Helper()
	h, err := e.Open(config.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(h) })
	return h
}

func TestPublishSubscribe(t *testing.T) {
	e := New()
	s := openSession(t, e)

	var got collector
	sub, err := e.Subscribe(s, keyexpr.New("demo/**"), engine.SubscribeOptions{}, got.callback)
	require.NoError(t, err)

	require.NoError(t, e.Publish(s, keyexpr.New("demo/a"), message.StringValue("one"), engine.PutOptions{}))
	require.NoError(t, e.Publish(s, keyexpr.New("demo/a/b"), message.StringValue("two"), engine.PutOptions{}))
	require.NoError(t, e.Publish(s, keyexpr.New("other/a"), message.StringValue("miss"), engine.PutOptions{}))

	samples := got.wait(t, 2)
	assert.Equal(t, "demo/a", samples[0].KeyExpr.String())
	assert.Equal(t, []byte("one"), samples[0].Value.Payload)
	assert.Equal(t, "demo/a/b", samples[1].KeyExpr.String())
	assert.Equal(t, message.Put, samples[1].Kind)

	require.NoError(t, e.CloseSubscriber(sub))
}

func TestDeleteKind(t *testing.T) {
	e := New()
	s := openSession(t, e)

	var got collector
	_, err := e.Subscribe(s, keyexpr.New("demo/*"), engine.SubscribeOptions{}, got.callback)
	require.NoError(t, err)

	require.NoError(t, e.Delete(s, keyexpr.New("demo/a"), engine.PutOptions{}))
	samples := got.wait(t, 1)
	assert.Equal(t, message.Delete, samples[0].Kind)
}

func TestPullMode(t *testing.T) {
	e := New()
	s := openSession(t, e)

	var got collector
	sub, err := e.Subscribe(s, keyexpr.New("demo/*"),
		engine.SubscribeOptions{Mode: engine.Pull}, got.callback)
	require.NoError(t, err)

	require.NoError(t, e.Publish(s, keyexpr.New("demo/a"), message.StringValue("one"), engine.PutOptions{}))
	require.NoError(t, e.Publish(s, keyexpr.New("demo/b"), message.StringValue("two"), engine.PutOptions{}))

	// Nothing is delivered until pulled.
	time.Sleep(10 * time.Millisecond)
	got.mu.Lock()
	assert.Empty(t, got.samples)
	got.mu.Unlock()

	require.NoError(t, e.Pull(sub))
	samples := got.wait(t, 2)
	assert.Equal(t, "demo/a", samples[0].KeyExpr.String())
	assert.Equal(t, "demo/b", samples[1].KeyExpr.String())

	// A second pull with nothing queued delivers nothing.
	require.NoError(t, e.Pull(sub))
	got.wait(t, 2)
}

func TestPullOnPushSubscription(t *testing.T) {
	e := New()
	s := openSession(t, e)

	var got collector
	sub, err := e.Subscribe(s, keyexpr.New("demo/*"), engine.SubscribeOptions{}, got.callback)
	require.NoError(t, err)

	assert.Error(t, e.Pull(sub))
}

func TestLocalRoutingDisabled(t *testing.T) {
	e := New()
	pub := openSession(t, e)
	other := openSession(t, e)

	var local, remote collector
	_, err := e.Subscribe(pub, keyexpr.New("demo/*"), engine.SubscribeOptions{}, local.callback)
	require.NoError(t, err)
	_, err = e.Subscribe(other, keyexpr.New("demo/*"), engine.SubscribeOptions{}, remote.callback)
	require.NoError(t, err)

	off := false
	require.NoError(t, e.Publish(pub, keyexpr.New("demo/a"), message.StringValue("x"),
		engine.PutOptions{LocalRouting: &off}))

	remote.wait(t, 1)
	local.mu.Lock()
	assert.Empty(t, local.samples)
	local.mu.Unlock()
}

func TestAliases(t *testing.T) {
	e := New()
	s := openSession(t, e)

	id, err := e.DeclareAlias(s, keyexpr.New("demo/base"))
	require.NoError(t, err)
	require.NotZero(t, id)

	expanded, err := e.ExpandKeyExpr(s, keyexpr.FromIDWithSuffix(id, "leaf"))
	require.NoError(t, err)
	assert.Equal(t, "demo/base/leaf", expanded)

	var got collector
	_, err = e.Subscribe(s, keyexpr.New("demo/base/*"), engine.SubscribeOptions{}, got.callback)
	require.NoError(t, err)

	require.NoError(t, e.Publish(s, keyexpr.FromIDWithSuffix(id, "leaf"),
		message.StringValue("x"), engine.PutOptions{}))
	samples := got.wait(t, 1)
	assert.Equal(t, "demo/base/leaf", samples[0].KeyExpr.String())

	require.NoError(t, e.UndeclareAlias(s, id))
	assert.Error(t, e.UndeclareAlias(s, id))
	_, err = e.ExpandKeyExpr(s, keyexpr.FromID(id))
	assert.Error(t, err)
}

func TestPublications(t *testing.T) {
	e := New()
	s := openSession(t, e)

	key := keyexpr.New("demo/pub")
	require.NoError(t, e.DeclarePublication(s, key))
	require.NoError(t, e.UndeclarePublication(s, key))
	assert.Error(t, e.UndeclarePublication(s, key))
}

func TestQueryReplies(t *testing.T) {
	e := New()
	server := openSession(t, e)
	client := openSession(t, e)

	_, err := e.DeclareQueryable(server, keyexpr.New("demo/**"), engine.QueryableOptions{},
		func(q engine.IncomingQuery) {
			require.NoError(t, e.Reply(q.Handle, query.ReplyOK(message.NewSample(
				keyexpr.New("demo/answer"), message.StringValue("42")), "")))
		})
	require.NoError(t, err)

	replies, err := e.Query(client, keyexpr.ParseSelector("demo/answer"),
		query.TargetBestMatching(), query.StrategyNone())
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.True(t, replies[0].OK())
	assert.Equal(t, "demo/answer", replies[0].Sample.KeyExpr.String())
	assert.NotEmpty(t, replies[0].ReplierID)
}

func TestQuerySelectorPassedThrough(t *testing.T) {
	e := New()
	s := openSession(t, e)

	var seen string
	_, err := e.DeclareQueryable(s, keyexpr.New("demo/*"), engine.QueryableOptions{},
		func(q engine.IncomingQuery) { seen = q.Selector.String() })
	require.NoError(t, err)

	_, err = e.Query(s, keyexpr.ParseSelector("demo/a?kind=sensor"),
		query.TargetAll(), query.StrategyNone())
	require.NoError(t, err)
	assert.Equal(t, "demo/a?kind=sensor", seen)
}

func TestQueryTargetNone(t *testing.T) {
	e := New()
	s := openSession(t, e)

	called := false
	_, err := e.DeclareQueryable(s, keyexpr.New("demo/*"), engine.QueryableOptions{},
		func(engine.IncomingQuery) { called = true })
	require.NoError(t, err)

	replies, err := e.Query(s, keyexpr.ParseSelector("demo/a"),
		query.TargetNone(), query.StrategyNone())
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.False(t, called)
}

func TestQueryTargetAllComplete(t *testing.T) {
	e := New()
	s := openSession(t, e)

	incomplete := false
	_, err := e.DeclareQueryable(s, keyexpr.New("demo/*"),
		engine.QueryableOptions{Complete: &incomplete},
		func(q engine.IncomingQuery) {
			_ = e.Reply(q.Handle, query.ReplyOK(message.NewSample(
				keyexpr.New("demo/a"), message.StringValue("partial")), ""))
		})
	require.NoError(t, err)

	replies, err := e.Query(s, keyexpr.ParseSelector("demo/a"),
		query.TargetAllComplete(), query.StrategyNone())
	require.NoError(t, err)
	assert.Empty(t, replies)

	replies, err = e.Query(s, keyexpr.ParseSelector("demo/a"),
		query.TargetAll(), query.StrategyNone())
	require.NoError(t, err)
	assert.Len(t, replies, 1)
}

func TestReplyAfterCompletion(t *testing.T) {
	e := New()
	s := openSession(t, e)

	var handle engine.QueryHandle
	_, err := e.DeclareQueryable(s, keyexpr.New("demo/*"), engine.QueryableOptions{},
		func(q engine.IncomingQuery) { handle = q.Handle })
	require.NoError(t, err)

	_, err = e.Query(s, keyexpr.ParseSelector("demo/a"),
		query.TargetAll(), query.StrategyNone())
	require.NoError(t, err)
	require.NotNil(t, handle)

	err = e.Reply(handle, query.ReplyOK(message.NewSample(
		keyexpr.New("demo/a"), message.StringValue("late")), ""))
	assert.ErrorIs(t, err, errors.ErrQueryComplete)
}

func TestQueryConsolidation(t *testing.T) {
	e := New()
	s := openSession(t, e)

	reply := func(q engine.IncomingQuery, payload string) {
		_ = e.Reply(q.Handle, query.ReplyOK(message.NewSample(
			keyexpr.New("demo/a"), message.StringValue(payload)), ""))
	}
	_, err := e.DeclareQueryable(s, keyexpr.New("demo/*"), engine.QueryableOptions{},
		func(q engine.IncomingQuery) { reply(q, "first") })
	require.NoError(t, err)
	_, err = e.DeclareQueryable(s, keyexpr.New("demo/**"), engine.QueryableOptions{},
		func(q engine.IncomingQuery) { reply(q, "second") })
	require.NoError(t, err)

	replies, err := e.Query(s, keyexpr.ParseSelector("demo/a"),
		query.TargetAll(), query.StrategyNone())
	require.NoError(t, err)
	assert.Len(t, replies, 2)

	replies, err = e.Query(s, keyexpr.ParseSelector("demo/a"),
		query.TargetAll(), query.StrategyFull())
	require.NoError(t, err)
	assert.Len(t, replies, 1)
}

func TestSessionInfo(t *testing.T) {
	e := New()
	s := openSession(t, e)

	info, err := e.SessionInfo(s)
	require.NoError(t, err)
	assert.NotEmpty(t, info["pid"])
	assert.NotEmpty(t, info["router_pid"])
}

func TestConfigNotifier(t *testing.T) {
	e := New()
	s := openSession(t, e)

	n, err := e.Config(s)
	require.NoError(t, err)
	assert.Contains(t, n.JSON(), `"mode"`)
	require.NoError(t, n.MergeJSON(`{"mode":"client"}`))
	assert.Contains(t, n.JSON(), `"client"`)
}

func TestClosedSession(t *testing.T) {
	e := New()
	s, err := e.Open(config.Default())
	require.NoError(t, err)

	var got collector
	sub, err := e.Subscribe(s, keyexpr.New("demo/*"), engine.SubscribeOptions{}, got.callback)
	require.NoError(t, err)
	require.NoError(t, e.Close(s))

	assert.ErrorIs(t, e.Publish(s, keyexpr.New("demo/a"), message.StringValue("x"),
		engine.PutOptions{}), errors.ErrEngineClosed)
	_, err = e.SessionInfo(s)
	assert.ErrorIs(t, err, errors.ErrEngineClosed)

	// Closing an already stopped subscriber is harmless.
	assert.NoError(t, e.CloseSubscriber(sub))
}

func TestTimestampFromConfig(t *testing.T) {
	e := New()
	cfg := config.Default()
	cfg.AddTimestamp = true
	s, err := e.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(s) })

	var got collector
	_, err = e.Subscribe(s, keyexpr.New("demo/*"), engine.SubscribeOptions{}, got.callback)
	require.NoError(t, err)

	require.NoError(t, e.Publish(s, keyexpr.New("demo/a"), message.StringValue("x"), engine.PutOptions{}))
	samples := got.wait(t, 1)
	require.NotNil(t, samples[0].Timestamp)
	assert.False(t, samples[0].Timestamp.Time.IsZero())
}
