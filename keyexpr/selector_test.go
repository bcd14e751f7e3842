package keyexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kserrors "github.com/c360/keystream/errors"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		key           string
		valueSelector string
	}{
		{"key only", "a/b/c", "a/b/c", ""},
		{"key and filter", "a/b?x>1", "a/b", "?x>1"},
		{"full form", "a/*?f(p=v)[x;y]", "a/*", "?f(p=v)[x;y]"},
		{"escaped question mark", `a/b\?c?x>1`, `a/b\?c`, "?x>1"},
		{"empty value selector", "a/b?", "a/b", "?"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sel := ParseSelector(test.input)
			assert.Equal(t, test.key, sel.KeySelector().Suffix())
			assert.Equal(t, test.valueSelector, sel.ValueSelectorString())
			// round-trip display
			assert.Equal(t, test.input, sel.String())
		})
	}
}

func TestSelectorFrom(t *testing.T) {
	sel, err := SelectorFrom("a/b?x>1")
	require.NoError(t, err)
	assert.Equal(t, "a/b", sel.KeySelector().Suffix())

	sel, err = SelectorFrom(New("a/b"))
	require.NoError(t, err)
	assert.Equal(t, "a/b", sel.KeySelector().Suffix())
	assert.Equal(t, "", sel.ValueSelectorString())

	sel, err = SelectorFrom(uint64(4))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), sel.KeySelector().Scope())

	_, err = SelectorFrom(struct{}{})
	require.Error(t, err)
	assert.True(t, kserrors.IsConversion(err))
}

func TestParseValueSelector(t *testing.T) {
	vs, err := ParseValueSelector("f1>1(p1=v1;p2=v2)[a;b]")
	require.NoError(t, err)
	assert.Equal(t, "f1>1", vs.Filter)
	assert.Equal(t, map[string]string{"p1": "v1", "p2": "v2"}, vs.Properties)
	assert.Equal(t, []string{"a", "b"}, vs.Fragment)
}

func TestParseValueSelectorForms(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		filter     string
		properties map[string]string
		fragment   []string
	}{
		{"filter only", "x>1&y<2", "x>1&y<2", map[string]string{}, nil},
		{"leading question mark", "?x>1", "x>1", map[string]string{}, nil},
		{"empty", "", "", map[string]string{}, nil},
		{"properties only", "(k=v)", "", map[string]string{"k": "v"}, nil},
		{"empty properties", "f()", "f", map[string]string{}, nil},
		{"fragment only", "[a;b;a]", "", map[string]string{}, []string{"a", "b", "a"}},
		{"empty fragment", "f[]", "f", map[string]string{}, []string{}},
		{"value with equals", "(k=a=b)", "", map[string]string{"k": "a=b"}, nil},
		{"empty value", "(k=)", "", map[string]string{"k": ""}, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			vs, err := ParseValueSelector(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.filter, vs.Filter)
			assert.Equal(t, test.properties, vs.Properties)
			assert.Equal(t, test.fragment, vs.Fragment)
		})
	}
}

func TestParseValueSelectorErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"duplicate property key", "(p1=v1;p1=v2)"},
		{"bare property key", "(p1)"},
		{"unclosed properties", "f(p=v"},
		{"unclosed fragment", "f[a;b"},
		{"trailing after fragment", "f[a]x"},
		{"garbage between sections", "f(p=v)x[a]"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseValueSelector(test.input)
			require.Error(t, err)
			assert.True(t, kserrors.IsParse(err), "expected ParseError, got %v", err)
		})
	}
}
