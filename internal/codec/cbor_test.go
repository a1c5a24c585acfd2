package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `cbor:"name"`
	Count int    `cbor:"count"`
}

func TestUnmarshal_RejectsUnknownField(t *testing.T) {
	data, err := Marshal(map[string]any{"name": "a", "count": 1, "extra": true})
	require.NoError(t, err)

	var s sample
	require.Error(t, Unmarshal(data, &s))
}

func TestUnmarshal_AcceptsKnownFields(t *testing.T) {
	data, err := Marshal(sample{Name: "a", Count: 2})
	require.NoError(t, err)

	var s sample
	require.NoError(t, Unmarshal(data, &s))
	assert.Equal(t, sample{Name: "a", Count: 2}, s)
}

func TestUnmarshal_RejectsTags(t *testing.T) {
	// tag 1 (epoch time) wrapping an integer
	data := []byte{0xc1, 0x1a, 0x51, 0x4b, 0x67, 0xb0}
	var v any
	require.Error(t, Unmarshal(data, &v))
}

func TestMarshal_Deterministic(t *testing.T) {
	a, err := Marshal(map[string]int{"b": 1, "a": 2})
	require.NoError(t, err)
	b, err := Marshal(map[string]int{"a": 2, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGRPCCodec_Name(t *testing.T) {
	assert.Equal(t, "cbor", GRPCCodec{}.Name())
}

func TestGRPCCodec_FrameIsCopiedUndecoded(t *testing.T) {
	data := []byte{0xff, 0x00, 0x01}

	var f Frame
	require.NoError(t, GRPCCodec{}.Unmarshal(data, &f))
	assert.Equal(t, Frame{0xff, 0x00, 0x01}, f)

	data[0] = 0
	assert.Equal(t, byte(0xff), f[0])

	out, err := GRPCCodec{}.Marshal(&f)
	require.NoError(t, err)
	assert.Equal(t, []byte(f), out)
}

func TestGRPCCodec_DecodesValues(t *testing.T) {
	data, err := GRPCCodec{}.Marshal(sample{Name: "a", Count: 3})
	require.NoError(t, err)

	var s sample
	require.NoError(t, GRPCCodec{}.Unmarshal(data, &s))
	assert.Equal(t, sample{Name: "a", Count: 3}, s)
}
