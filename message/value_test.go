package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kserrors "github.com/c360/keystream/errors"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"bytes", []byte{0x48, 0x69, 0x21}},
		{"string", "Hello World!"},
		{"int", int64(42)},
		{"negative int", int64(-17)},
		{"float", 3.14},
		{"properties", Properties{"p1": "v1", "p2": "v2"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := From(test.input)
			require.NoError(t, err)
			decoded, err := v.Decode()
			require.NoError(t, err)
			assert.Equal(t, test.input, decoded)
		})
	}
}

func TestFromUnion(t *testing.T) {
	v, err := From(7)
	require.NoError(t, err)
	assert.Equal(t, NewEncoding(AppInteger), v.Encoding)

	v, err = From(map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, NewEncoding(AppProperties), v.Encoding)

	v, err = From(Raw{Payload: []byte("<foo>bar</foo>"), Encoding: NewEncoding(TextXML)})
	require.NoError(t, err)
	assert.Equal(t, NewEncoding(TextXML), v.Encoding)
	assert.Equal(t, []byte("<foo>bar</foo>"), v.Payload)

	existing := StringValue("x")
	v, err = From(existing)
	require.NoError(t, err)
	assert.Equal(t, existing, v)

	v, err = From(&existing)
	require.NoError(t, err)
	assert.Equal(t, existing, v)

	_, err = From(struct{ X int }{1})
	require.Error(t, err)
	assert.True(t, kserrors.IsConversion(err))
}

func TestDecodeJSON(t *testing.T) {
	v := NewValue([]byte(`{"a": 1, "b": -2, "c": 1.5, "d": [null, true, "s"]}`), NewEncoding(AppJSON))
	decoded, err := v.Decode()
	require.NoError(t, err)

	obj, ok := decoded.(map[string]any)
	require.True(t, ok)
	// numbers prefer uint64, then int64, then float64
	assert.Equal(t, uint64(1), obj["a"])
	assert.Equal(t, int64(-2), obj["b"])
	assert.Equal(t, 1.5, obj["c"])
	assert.Equal(t, []any{nil, true, "s"}, obj["d"])
}

func TestDecodeJSONTextVariant(t *testing.T) {
	v := NewValue([]byte(`["foo", 2]`), NewEncoding(TextJSON))
	decoded, err := v.Decode()
	require.NoError(t, err)
	assert.Equal(t, []any{"foo", uint64(2)}, decoded)
}

func TestDecodeJSONMalformed(t *testing.T) {
	v := NewValue([]byte(`{"a":`), NewEncoding(AppJSON))
	_, err := v.Decode()
	require.Error(t, err)
	assert.True(t, kserrors.IsConversion(err))
}

func TestDecodeEmpty(t *testing.T) {
	v := Value{}
	decoded, err := v.Decode()
	require.NoError(t, err)
	assert.Equal(t, []byte(nil), decoded)
}

func TestDecodeParseFailures(t *testing.T) {
	_, err := NewValue([]byte("not a number"), NewEncoding(AppInteger)).Decode()
	require.Error(t, err)
	assert.True(t, kserrors.IsConversion(err))

	_, err = NewValue([]byte("not a float"), NewEncoding(AppFloat)).Decode()
	require.Error(t, err)
	assert.True(t, kserrors.IsConversion(err))
}

func TestDecodeUnsupportedEncoding(t *testing.T) {
	v := NewValue([]byte{0x48}, NewEncoding(AppCustom).WithSuffix(";my_encoding"))
	_, err := v.Decode()
	require.Error(t, err)
	assert.True(t, kserrors.IsUnsupportedEncoding(err))
	assert.Contains(t, err.Error(), "application/custom;my_encoding")

	_, err = NewValue(nil, NewEncoding(ImagePNG)).Decode()
	require.Error(t, err)
	assert.True(t, kserrors.IsUnsupportedEncoding(err))
}

func TestClone(t *testing.T) {
	v := StringValue("hello")
	c := v.Clone()
	c.Payload[0] = 'J'
	assert.Equal(t, "hello", string(v.Payload))
	assert.Equal(t, "Jello", string(c.Payload))
}
