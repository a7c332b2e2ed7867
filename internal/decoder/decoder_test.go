package decoder_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmd/itchmd/internal/decoder"
	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/parser"
	"github.com/flowmd/itchmd/internal/ring"
	"github.com/flowmd/itchmd/internal/wire/itch"
)

func addOrderPacket(t *testing.T) model.RawPacket {
	t.Helper()
	body := make([]byte, 38)
	binary.BigEndian.PutUint16(body[0:2], 9)
	binary.BigEndian.PutUint16(body[2:4], 1)
	binary.BigEndian.PutUint64(body[4:12], 1)
	body[12] = itch.TypeAddOrder
	binary.BigEndian.PutUint64(body[13:21], 42)
	body[21] = 'B'
	binary.BigEndian.PutUint32(body[22:26], 10)
	binary.BigEndian.PutUint32(body[34:38], 100)

	lengthField := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthField, uint16(len(body)+2))

	var pkt model.RawPacket
	pkt.Length = copy(pkt.Data[:], append(lengthField, body...))
	pkt.Sequence = 1
	pkt.LocalTimestamp = 100
	return pkt
}

func TestDecoderEmitsRecordForValidPacket(t *testing.T) {
	in := ring.NewSPSC[model.RawPacket](4)
	out := ring.NewSPSC[model.Record](4)
	stats := &model.Stats{}

	d := decoder.New(decoder.Config{MaxMessagesPerPacket: 8, CPUAffinity: -1}, in, out, parser.NewITCH(), stats)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.True(t, in.TryPush(addOrderPacket(t)))

	deadline := time.Now().Add(time.Second)
	var rec model.Record
	var ok bool
	for time.Now().Before(deadline) {
		if rec, ok = out.TryPop(); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}

	require.True(t, ok, "expected a decoded record within the deadline")
	assert.Equal(t, model.KindOrderAdd, rec.Kind)
	assert.EqualValues(t, 42, rec.OrderID)
	assert.EqualValues(t, 1, stats.MessagesParsed.Load())
	assert.Zero(t, stats.ParseErrors.Load())
}

func TestDecoderCountsFanOutDropWhenOutputRingFull(t *testing.T) {
	in := ring.NewSPSC[model.RawPacket](4)
	out := ring.NewSPSC[model.Record](2) // effective capacity 1
	stats := &model.Stats{}

	require.True(t, out.TryPush(model.Record{})) // fill the only usable slot

	d := decoder.New(decoder.Config{MaxMessagesPerPacket: 8, CPUAffinity: -1}, in, out, parser.NewITCH(), stats)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.True(t, in.TryPush(addOrderPacket(t)))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && stats.MessagesParsed.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	assert.EqualValues(t, 1, stats.MessagesParsed.Load())
	assert.EqualValues(t, 1, stats.FanOutDrops.Load())
}

func TestDecoderWithNullParserProducesNoRecordsOrErrors(t *testing.T) {
	in := ring.NewSPSC[model.RawPacket](4)
	out := ring.NewSPSC[model.Record](4)
	stats := &model.Stats{}

	d := decoder.New(decoder.Config{CPUAffinity: -1}, in, out, parser.Null{}, stats)
	require.NoError(t, d.Start())
	defer d.Stop()

	require.True(t, in.TryPush(addOrderPacket(t)))
	time.Sleep(50 * time.Millisecond)

	assert.True(t, out.Empty())
	assert.Zero(t, stats.MessagesParsed.Load())
}
