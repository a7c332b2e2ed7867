package parser_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/parser"
)

func TestNullParserProducesNoRecords(t *testing.T) {
	var p parser.Null
	out := make([]model.Record, 4)
	n, err := p.Parse(model.PacketView{}, out, len(out))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "null", p.Name())
}

func TestEchoParserProducesOnePassthroughRecord(t *testing.T) {
	var p parser.Echo
	out := make([]model.Record, 4)
	view := model.PacketView{Sequence: 7, LocalTimestamp: 123}
	n, err := p.Parse(view, out, len(out))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.EqualValues(t, 7, out[0].Sequence)
	assert.EqualValues(t, 123, out[0].LocalTimestamp)
	assert.Equal(t, model.KindUnknown, out[0].Kind)
}

func TestITCHParserDecodesAddOrder(t *testing.T) {
	body := make([]byte, 38)
	binary.BigEndian.PutUint16(body[0:2], 1)
	binary.BigEndian.PutUint16(body[2:4], 100)
	binary.BigEndian.PutUint64(body[4:12], 200000000)
	body[12] = 'A'
	binary.BigEndian.PutUint64(body[13:21], 940)
	body[21] = 'B'
	binary.BigEndian.PutUint32(body[22:26], 100)
	binary.BigEndian.PutUint32(body[34:38], 1500000)

	lengthField := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthField, uint16(len(body)+2))
	data := append(lengthField, body...)

	p := parser.NewITCH()
	out := make([]model.Record, 4)
	n, err := p.Parse(model.PacketView{Bytes: data}, out, len(out))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, model.KindOrderAdd, out[0].Kind)
	assert.Equal(t, 0, p.LastParseErrors())
	assert.Equal(t, "itch5.0", p.Name())
}

func TestRegistryResolvesRequiredVariants(t *testing.T) {
	r := parser.NewRegistry()

	for _, name := range []string{"null", "echo", "itch5.0"} {
		p, err := r.Get(name)
		require.NoErrorf(t, err, "expected %q to be registered", name)
		assert.Equal(t, name, p.Name())
	}

	_, err := r.Get("nonexistent")
	assert.Error(t, err)
}
