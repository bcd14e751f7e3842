package tlsutil

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientTLSConfigDefaults(t *testing.T) {
	cfg, err := LoadClientTLSConfig(ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.NotNil(t, cfg.RootCAs)
	assert.Empty(t, cfg.Certificates)
}

func TestLoadClientTLSConfigMinVersion(t *testing.T) {
	cfg, err := LoadClientTLSConfig(ClientConfig{MinVersion: "1.3"})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
}

func TestLoadClientTLSConfigBadCA(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a certificate"), 0o600))

	_, err := LoadClientTLSConfig(ClientConfig{CAFiles: []string{bad}})
	assert.Error(t, err)

	_, err = LoadClientTLSConfig(ClientConfig{CAFiles: []string{filepath.Join(dir, "missing.pem")}})
	assert.Error(t, err)
}
