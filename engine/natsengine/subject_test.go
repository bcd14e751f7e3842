package natsengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataSubject(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "demo/example/test", want: "ks.data.demo.example.test"},
		{key: "room", want: "ks.data.room"},
		{key: "demo/*", wantErr: true},
		{key: "demo/**", wantErr: true},
		{key: "demo//x", wantErr: true},
		{key: "demo/a.b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := dataSubject("ks", tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubscribeSubject(t *testing.T) {
	tests := []struct {
		key   string
		want  string
		exact bool
	}{
		{key: "demo/a", want: "ks.data.demo.a", exact: true},
		{key: "demo/*", want: "ks.data.demo.*", exact: true},
		{key: "demo/**", want: "ks.data.demo.>", exact: true},
		{key: "**", want: "ks.data.>", exact: true},
		// Mid-expression ** widens to the whole data space.
		{key: "demo/**/leaf", want: "ks.data.>", exact: false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, exact, err := subscribeSubject("ks", tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.exact, exact)
		})
	}
}

func TestKeyFromSubject(t *testing.T) {
	key, err := keyFromSubject("ks", "ks.data.demo.example.test")
	require.NoError(t, err)
	assert.Equal(t, "demo/example/test", key)

	_, err = keyFromSubject("ks", "other.data.demo")
	assert.Error(t, err)
}

func TestQuerySubject(t *testing.T) {
	assert.Equal(t, "ks.query", querySubject("ks"))
}
