package serialization_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/born-ml/digits/internal/nn"
	"github.com/born-ml/digits/internal/serialization"
)

func TestProto_RoundTrip(t *testing.T) {
	p := testParams(t)
	meta := map[string]string{"b": "2", "a": "1"}

	b, err := serialization.MarshalProto(p, meta)
	require.NoError(t, err)

	got, gotMeta, err := serialization.UnmarshalProto(b)
	require.NoError(t, err)
	assert.True(t, p.Equal(got))
	assert.Equal(t, meta, gotMeta)

	again, err := serialization.MarshalProto(got, gotMeta)
	require.NoError(t, err)
	assert.Equal(t, b, again, "encoding must be deterministic")
}

// TestProto_UnpackedAndUnknownFields hand-builds a message with unpacked
// repeated fields and an extra field the decoder must skip.
func TestProto_UnpackedAndUnknownFields(t *testing.T) {
	var layer []byte
	layer = protowire.AppendTag(layer, 1, protowire.VarintType)
	layer = protowire.AppendVarint(layer, 1)
	layer = protowire.AppendTag(layer, 2, protowire.VarintType)
	layer = protowire.AppendVarint(layer, 2)
	for _, w := range []float64{0.5, -1.5} {
		layer = protowire.AppendTag(layer, 3, protowire.Fixed64Type)
		layer = protowire.AppendFixed64(layer, mathBits(w))
	}
	layer = protowire.AppendTag(layer, 4, protowire.Fixed64Type)
	layer = protowire.AppendFixed64(layer, mathBits(0.25))

	var msg []byte
	for _, w := range []uint64{2, 1} {
		msg = protowire.AppendTag(msg, 1, protowire.VarintType)
		msg = protowire.AppendVarint(msg, w)
	}
	msg = protowire.AppendTag(msg, 99, protowire.Fixed32Type)
	msg = protowire.AppendFixed32(msg, 7)
	msg = protowire.AppendTag(msg, 2, protowire.BytesType)
	msg = protowire.AppendBytes(msg, layer)

	p, meta, err := serialization.UnmarshalProto(msg)
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, nn.Topology{2, 1}, p.Topology())
	l := p.MustLayer(1)
	assert.InDelta(t, 0.5, l.Weight.At(0, 0), 0)
	assert.InDelta(t, -1.5, l.Weight.At(0, 1), 0)
	assert.InDelta(t, 0.25, l.Bias.At(0, 0), 0)
}

func TestProto_Errors(t *testing.T) {
	b, err := serialization.MarshalProto(testParams(t), nil)
	require.NoError(t, err)

	_, _, err = serialization.UnmarshalProto(b[:len(b)-5])
	assert.ErrorIs(t, err, serialization.ErrMalformedProto)

	// Topology without layers.
	var msg []byte
	msg = protowire.AppendTag(msg, 1, protowire.BytesType)
	msg = protowire.AppendBytes(msg, protowire.AppendVarint(protowire.AppendVarint(nil, 3), 2))
	_, _, err = serialization.UnmarshalProto(msg)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)

	// Topology far larger than the message itself.
	huge := protowire.AppendVarint(protowire.AppendVarint(nil, 1<<31), 1<<31)
	msg = protowire.AppendTag(nil, 1, protowire.BytesType)
	msg = protowire.AppendBytes(msg, huge)
	require.NotPanics(t, func() {
		_, _, err = serialization.UnmarshalProto(msg)
	})
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)

	// Layer header claims the topology's shape but carries too few values.
	var layer []byte
	layer = protowire.AppendTag(layer, 1, protowire.VarintType)
	layer = protowire.AppendVarint(layer, 2)
	layer = protowire.AppendTag(layer, 2, protowire.VarintType)
	layer = protowire.AppendVarint(layer, 2)
	layer = protowire.AppendTag(layer, 3, protowire.Fixed64Type)
	layer = protowire.AppendFixed64(layer, mathBits(1))
	for range 5 {
		layer = protowire.AppendTag(layer, 4, protowire.Fixed64Type)
		layer = protowire.AppendFixed64(layer, mathBits(0))
	}
	msg = protowire.AppendTag(nil, 1, protowire.BytesType)
	msg = protowire.AppendBytes(msg, protowire.AppendVarint(protowire.AppendVarint(nil, 2), 2))
	msg = protowire.AppendTag(msg, 2, protowire.BytesType)
	msg = protowire.AppendBytes(msg, layer)
	_, _, err = serialization.UnmarshalProto(msg)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)

	_, _, err = serialization.UnmarshalProto(nil)
	assert.ErrorIs(t, err, nn.ErrInvalidTopology)

	_, err = serialization.MarshalProto(nil, nil)
	assert.Error(t, err)
}

func mathBits(f float64) uint64 { return math.Float64bits(f) }
