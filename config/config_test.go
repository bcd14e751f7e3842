package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ModePeer, cfg.Mode)
	assert.Empty(t, cfg.Connect)
}

func TestClient(t *testing.T) {
	cfg := Client("tcp/10.10.10.10:7447")
	assert.Equal(t, ModeClient, cfg.Mode)
	assert.Equal(t, []string{"tcp/10.10.10.10:7447"}, cfg.Connect)
}

func TestProperties(t *testing.T) {
	scouting := false
	cfg := &Config{
		Mode:              ModeClient,
		Connect:           []string{"tcp/a:7447", "tcp/b:7447"},
		User:              "alice",
		MulticastScouting: &scouting,
		ScoutingTimeout:   3.0,
		AddTimestamp:      true,
		Extra:             map[string]string{"custom": "x"},
	}

	props := cfg.Properties()
	assert.Equal(t, "client", props[ModeKey])
	assert.Equal(t, "tcp/a:7447,tcp/b:7447", props[ConnectKey])
	assert.Equal(t, "alice", props[UserKey])
	assert.Equal(t, "false", props[MulticastScoutingKey])
	assert.Equal(t, "3", props[ScoutingTimeoutKey])
	assert.Equal(t, "true", props[AddTimestampKey])
	assert.Equal(t, "x", props["custom"])
	_, present := props[PasswordKey]
	assert.False(t, present)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"mode":"client","connect":["tcp/a:7447"]}`), 0o600))
	cfg, err := FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, ModeClient, cfg.Mode)
	assert.Equal(t, []string{"tcp/a:7447"}, cfg.Connect)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("mode: client\nlisten:\n  - tcp/0.0.0.0:7447\n"), 0o600))
	cfg, err = FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, ModeClient, cfg.Mode)
	assert.Equal(t, []string{"tcp/0.0.0.0:7447"}, cfg.Listen)

	badPath := filepath.Join(dir, "config.bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte("{"), 0o600))
	_, err = FromFile(badPath)
	require.Error(t, err)

	_, err = FromFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	cfg := Default()
	cfg.Merge(&Config{Mode: ModeClient, Connect: []string{"tcp/a:7447"}})
	assert.Equal(t, ModeClient, cfg.Mode)
	assert.Equal(t, []string{"tcp/a:7447"}, cfg.Connect)

	// zero fields do not clobber
	cfg.Merge(&Config{})
	assert.Equal(t, ModeClient, cfg.Mode)

	cfg.Merge(nil)
	assert.Equal(t, ModeClient, cfg.Mode)
}

func TestNotifier(t *testing.T) {
	n := NewNotifier(Default())
	assert.Contains(t, n.JSON(), `"mode":"peer"`)

	require.NoError(t, n.MergeJSON(`{"connect":["tcp/b:7447"]}`))
	snap := n.Snapshot()
	assert.Equal(t, []string{"tcp/b:7447"}, snap.Connect)

	// snapshot is a copy
	snap.Mode = "client"
	assert.Contains(t, n.JSON(), `"mode":"peer"`)

	require.Error(t, n.MergeJSON("{"))
}

func TestInfoKeyNames(t *testing.T) {
	assert.Equal(t, "pid", InfoKeyNames[InfoPIDKey])
	assert.Equal(t, "peer_pid", InfoKeyNames[InfoPeerPIDKey])
	assert.Equal(t, "router_pid", InfoKeyNames[InfoRouterPIDKey])
}
