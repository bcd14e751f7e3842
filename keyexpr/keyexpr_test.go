package keyexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kserrors "github.com/c360/keystream/errors"
)

func TestIntersects(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"a/b", "a/b", true},
		{"a/b", "a/c", false},
		{"a/*", "a/b", true},
		{"a/*", "a/b/c", false},
		{"a/**", "a/b/c", true},
		{"a/*", "a/**", true},
		{"a/**", "a", true},
		{"a/**/c", "a/c", true},
		{"a/**/c", "a/b/x/c", true},
		{"a/**/c", "a/b/x/d", false},
		{"*/b", "a/*", true},
		{"**", "a/b/c", true},
		{"a/b/**", "a/**/c", true},
		{"x/y", "x/y/z", false},
		{"", "", true},
		{"a", "", false},
	}

	for _, test := range tests {
		t.Run(test.a+" vs "+test.b, func(t *testing.T) {
			a, b := New(test.a), New(test.b)
			assert.Equal(t, test.expected, Intersects(a, b))
			// intersection is symmetric
			assert.Equal(t, test.expected, Intersects(b, a))
		})
	}
}

func TestIntersectsScopes(t *testing.T) {
	// same scope compares suffixes
	assert.True(t, Intersects(FromIDWithSuffix(5, "a/*"), FromIDWithSuffix(5, "a/b")))
	assert.False(t, Intersects(FromIDWithSuffix(5, "a/b"), FromIDWithSuffix(5, "a/c")))

	// different scopes never intersect, regardless of suffix
	assert.False(t, Intersects(FromIDWithSuffix(5, "a/b"), FromIDWithSuffix(6, "a/b")))
	assert.False(t, Intersects(FromID(5), New("a/b")))
}

func TestFrom(t *testing.T) {
	k, err := From("x/y")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), k.Scope())
	assert.Equal(t, "x/y", k.Suffix())

	k, err = From(uint64(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), k.Scope())
	assert.Equal(t, "", k.Suffix())

	k, err = From(9)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), k.Scope())

	k, err = From(IDSuffix{ID: 3, Suffix: "tail"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), k.Scope())
	assert.Equal(t, "tail", k.Suffix())

	existing := New("a/b")
	k, err = From(existing)
	require.NoError(t, err)
	assert.Equal(t, existing, k)

	k, err = From(&existing)
	require.NoError(t, err)
	assert.Equal(t, existing, k)

	_, err = From(3.14)
	require.Error(t, err)
	assert.True(t, kserrors.IsConversion(err))

	_, err = From(-1)
	require.Error(t, err)
	assert.True(t, kserrors.IsConversion(err))
}

func TestString(t *testing.T) {
	assert.Equal(t, "a/b/c", New("a/b/c").String())
	assert.Equal(t, "5:", FromID(5).String())
	assert.Equal(t, "5:tail", FromIDWithSuffix(5, "tail").String())
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b", New("a").Join("b").Suffix())
	assert.Equal(t, "b", New("").Join("b").Suffix())

	scoped := FromID(2).Join("b")
	assert.Equal(t, uint64(2), scoped.Scope())
	assert.Equal(t, "b", scoped.Suffix())
}
