package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/keystream/config"
	"github.com/c360/keystream/engine/memengine"
	"github.com/c360/keystream/errors"
	"github.com/c360/keystream/message"
)

func open(t *testing.T) *Session {
	t.Helper()
	s, err := Open(memengine.New(), config.Default())
	require.NoError(t, err)
	return s
}

func TestOpenNilEngine(t *testing.T) {
	_, err := Open(nil, config.Default())
	assert.ErrorIs(t, err, errors.ErrNoEngine)
}

func TestCloseExactlyOnce(t *testing.T) {
	s := open(t)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), errors.ErrClosed)
}

func TestOperationsAfterClose(t *testing.T) {
	s := open(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put("demo/a", "x"), errors.ErrClosed)
	assert.ErrorIs(t, s.Delete("demo/a"), errors.ErrClosed)
	_, err := s.Subscribe("demo/*", func(message.Sample) {})
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = s.Get("demo/a")
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = s.Info()
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = s.NewRef()
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestSharedOwnership(t *testing.T) {
	s := open(t)
	ref, err := s.NewRef()
	require.NoError(t, err)

	// The connection survives while the other reference lives.
	assert.ErrorIs(t, s.Close(), errors.ErrNotSoleOwner)
	assert.ErrorIs(t, s.Put("demo/a", "x"), errors.ErrClosed)
	require.NoError(t, ref.Put("demo/a", "x"))

	// Last reference really closes.
	require.NoError(t, ref.Close())
	assert.ErrorIs(t, ref.Put("demo/a", "x"), errors.ErrClosed)
}

func TestDeclaredHandlesSurviveSharedClose(t *testing.T) {
	s := open(t)
	ref, err := s.NewRef()
	require.NoError(t, err)

	sub, err := s.Subscribe("demo/*", func(message.Sample) {})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Close(), errors.ErrNotSoleOwner)
	// The subscription belongs to the connection, not to the closed ref.
	require.NoError(t, sub.Close())
	require.NoError(t, ref.Close())
}

func TestKeyUnionRejectsUnknownTypes(t *testing.T) {
	s := open(t)
	defer func() { _ = s.Close() }()

	err := s.Put(3.14, "x")
	assert.True(t, errors.IsConversion(err))
	err = s.Put(-1, "x")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	s := open(t)
	defer func() { _ = s.Close() }()

	info, err := s.Info()
	require.NoError(t, err)
	assert.NotEmpty(t, info["pid"])
}

func TestConfigNotifier(t *testing.T) {
	s := open(t)
	defer func() { _ = s.Close() }()

	n, err := s.Config()
	require.NoError(t, err)
	require.NoError(t, n.MergeJSON(`{"mode":"client"}`))
	assert.Contains(t, n.JSON(), `"client"`)
}

func TestAliases(t *testing.T) {
	s := open(t)
	defer func() { _ = s.Close() }()

	id, err := s.DeclareAlias("demo/base")
	require.NoError(t, err)

	expanded, err := s.ExpandKeyExpr(id)
	require.NoError(t, err)
	assert.Equal(t, "demo/base", expanded)

	require.NoError(t, s.UndeclareAlias(id))
	assert.Error(t, s.UndeclareAlias(id))
}

func TestPublicationLifecycle(t *testing.T) {
	s := open(t)
	defer func() { _ = s.Close() }()

	pub, err := s.DeclarePublication("demo/pub")
	require.NoError(t, err)
	assert.Equal(t, "demo/pub", pub.KeyExpr().String())
	require.NoError(t, pub.Close())
	assert.ErrorIs(t, pub.Close(), errors.ErrClosed)
}

func TestSubscriberCloseExactlyOnce(t *testing.T) {
	s := open(t)
	defer func() { _ = s.Close() }()

	sub, err := s.Subscribe("demo/*", func(message.Sample) {})
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	assert.ErrorIs(t, sub.Close(), errors.ErrClosed)
	assert.ErrorIs(t, sub.Pull(), errors.ErrClosed)
}

func TestQueryableCloseExactlyOnce(t *testing.T) {
	s := open(t)
	defer func() { _ = s.Close() }()

	q, err := s.DeclareQueryable("demo/*", func(*Query) {})
	require.NoError(t, err)
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Close(), errors.ErrClosed)
}

func TestNilCallbacksRejected(t *testing.T) {
	s := open(t)
	defer func() { _ = s.Close() }()

	_, err := s.Subscribe("demo/*", nil)
	assert.Error(t, err)
	_, err = s.DeclareQueryable("demo/*", nil)
	assert.Error(t, err)
}
