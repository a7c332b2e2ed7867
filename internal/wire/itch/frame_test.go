package itch_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/wire/itch"
)

// frameBuilder assembles one or more ITCH frames into a packet payload
// for tests.
type frameBuilder struct {
	buf []byte
}

func (b *frameBuilder) addOrder(locate, tracking uint16, ts uint64, orderRef uint64, side byte, shares uint32, symbol string, price uint32) {
	body := make([]byte, 38)
	binary.BigEndian.PutUint16(body[0:2], locate)
	binary.BigEndian.PutUint16(body[2:4], tracking)
	binary.BigEndian.PutUint64(body[4:12], ts)
	body[12] = itch.TypeAddOrder
	binary.BigEndian.PutUint64(body[13:21], orderRef)
	body[21] = side
	binary.BigEndian.PutUint32(body[22:26], shares)
	copy(body[26:34], padSymbol(symbol))
	binary.BigEndian.PutUint32(body[34:38], price)
	b.appendFrame(body)
}

func (b *frameBuilder) executeOrder(locate, tracking uint16, ts uint64, orderRef uint64, shares uint32, matchNum uint64) {
	body := make([]byte, 33)
	binary.BigEndian.PutUint16(body[0:2], locate)
	binary.BigEndian.PutUint16(body[2:4], tracking)
	binary.BigEndian.PutUint64(body[4:12], ts)
	body[12] = itch.TypeOrderExecuted
	binary.BigEndian.PutUint64(body[13:21], orderRef)
	binary.BigEndian.PutUint32(body[21:25], shares)
	binary.BigEndian.PutUint64(body[25:33], matchNum)
	b.appendFrame(body)
}

func (b *frameBuilder) deleteOrder(locate, tracking uint16, ts uint64, orderRef uint64) {
	body := make([]byte, 21)
	binary.BigEndian.PutUint16(body[0:2], locate)
	binary.BigEndian.PutUint16(body[2:4], tracking)
	binary.BigEndian.PutUint64(body[4:12], ts)
	body[12] = itch.TypeOrderDelete
	binary.BigEndian.PutUint64(body[13:21], orderRef)
	b.appendFrame(body)
}

func (b *frameBuilder) trade(locate, tracking uint16, ts uint64, orderRef uint64, side byte, shares uint32, symbol string, price uint32, matchNum uint64) {
	body := make([]byte, 46)
	binary.BigEndian.PutUint16(body[0:2], locate)
	binary.BigEndian.PutUint16(body[2:4], tracking)
	binary.BigEndian.PutUint64(body[4:12], ts)
	body[12] = itch.TypeTrade
	binary.BigEndian.PutUint64(body[13:21], orderRef)
	body[21] = side
	binary.BigEndian.PutUint32(body[22:26], shares)
	copy(body[26:34], padSymbol(symbol))
	binary.BigEndian.PutUint32(body[34:38], price)
	binary.BigEndian.PutUint64(body[38:46], matchNum)
	b.appendFrame(body)
}

func (b *frameBuilder) appendFrame(body []byte) {
	lengthField := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthField, uint16(len(body)+2))
	b.buf = append(b.buf, lengthField...)
	b.buf = append(b.buf, body...)
}

func padSymbol(s string) []byte {
	out := []byte("        ")
	copy(out, s)
	return out
}

func viewFor(data []byte) model.PacketView {
	return model.PacketView{Bytes: data, Sequence: 1, LocalTimestamp: 42}
}

func TestDecodeScenario1SingleAddOrder(t *testing.T) {
	var b frameBuilder
	b.addOrder(1, 100, 200000000, 0x3AC, 'B', 100, "AAPL", 1500000)

	out := make([]model.Record, 4)
	n, result := itch.Decode(viewFor(b.buf), out, len(out), nil)

	require.Equal(t, 1, n)
	assert.Equal(t, 0, result.ParseErrors)

	rec := out[0]
	assert.Equal(t, model.KindOrderAdd, rec.Kind)
	assert.EqualValues(t, 1, rec.InstrumentID)
	assert.EqualValues(t, 100, rec.Sequence)
	assert.EqualValues(t, 200000000, rec.ExchangeTimestamp)
	assert.EqualValues(t, 940, rec.OrderID)
	assert.Equal(t, model.SideBuy, rec.Side)
	assert.EqualValues(t, 100, rec.Quantity)
	assert.EqualValues(t, 1500000, rec.Price)
}

func TestDecodeScenario2ThreeMessagesInOnePacket(t *testing.T) {
	var b frameBuilder
	b.addOrder(5, 1, 1, 111, 'B', 10, "MSFT", 100)
	b.executeOrder(5, 2, 2, 111, 5, 999)
	b.deleteOrder(5, 3, 3, 111)

	out := make([]model.Record, 8)
	n, result := itch.Decode(viewFor(b.buf), out, len(out), nil)

	require.Equal(t, 3, n)
	assert.Equal(t, 0, result.ParseErrors)

	wantKinds := []model.Kind{model.KindOrderAdd, model.KindOrderExecute, model.KindOrderDelete}
	for i, want := range wantKinds {
		assert.Equal(t, want, out[i].Kind)
		assert.EqualValues(t, 111, out[i].OrderID)
		assert.EqualValues(t, 5, out[i].InstrumentID)
	}
}

func TestDecodeScenario3Trade(t *testing.T) {
	var b frameBuilder
	b.trade(7, 50, 1234, 222, 'S', 75, "MSFT", 3250000, 555666777)

	out := make([]model.Record, 4)
	n, result := itch.Decode(viewFor(b.buf), out, len(out), nil)

	require.Equal(t, 1, n)
	assert.Equal(t, 0, result.ParseErrors)
	rec := out[0]
	assert.Equal(t, model.KindTrade, rec.Kind)
	assert.Equal(t, model.SideSell, rec.Side)
	assert.EqualValues(t, 75, rec.Quantity)
	assert.EqualValues(t, 3250000, rec.Price)
	assert.EqualValues(t, 222, rec.OrderID)
	assert.EqualValues(t, 50, rec.Sequence)
}

func TestDecodeScenario4TruncatedFrame(t *testing.T) {
	// Declare a frame length of 40 but only provide 30 bytes total.
	data := make([]byte, 30)
	binary.BigEndian.PutUint16(data[0:2], 40)

	out := make([]model.Record, 4)
	n, result := itch.Decode(viewFor(data), out, len(out), nil)

	assert.Equal(t, 0, n)
	assert.Equal(t, 1, result.ParseErrors)
}

func TestDecodeZeroLengthPacket(t *testing.T) {
	out := make([]model.Record, 4)
	n, result := itch.Decode(viewFor(nil), out, len(out), nil)

	assert.Equal(t, 0, n)
	assert.Equal(t, 0, result.ParseErrors)
}

func TestDecodeBodyShorterThanDeclaredTypeSizeSkipsAndContinues(t *testing.T) {
	var b frameBuilder
	// A malformed Add Order frame: the body declares type 'A' (needs 38
	// bytes) in its common header but the frame only carries 20 bytes of
	// body, followed by a valid Delete Order frame that must still be
	// processed.
	shortBody := make([]byte, 20)
	shortBody[12] = itch.TypeAddOrder
	lengthField := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthField, uint16(len(shortBody)+2))
	b.buf = append(b.buf, lengthField...)
	b.buf = append(b.buf, shortBody...)

	b.deleteOrder(9, 1, 1, 333)

	out := make([]model.Record, 4)
	n, result := itch.Decode(viewFor(b.buf), out, len(out), nil)

	require.Equal(t, 1, n)
	assert.Equal(t, 1, result.ParseErrors)
	assert.Equal(t, model.KindOrderDelete, out[0].Kind)
}

func TestDecodeUnknownTypeIsSilentlySkipped(t *testing.T) {
	body := make([]byte, commonHeaderLen)
	body[12] = 'Z' // not in the mapped type catalog
	lengthField := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthField, uint16(len(body)+2))

	data := append(lengthField, body...)

	out := make([]model.Record, 4)
	n, result := itch.Decode(viewFor(data), out, len(out), nil)

	assert.Equal(t, 0, n)
	assert.Equal(t, 0, result.ParseErrors, "unknown type must not increment parse errors")
}

const commonHeaderLen = 13

func TestDecodeStockDirectoryPopulatesSymbolTableAndEmitsSystemEvent(t *testing.T) {
	body := make([]byte, 41)
	binary.BigEndian.PutUint16(body[0:2], 42)
	binary.BigEndian.PutUint16(body[2:4], 1)
	binary.BigEndian.PutUint64(body[4:12], 0)
	body[12] = itch.TypeStockDirectory
	copy(body[13:21], padSymbol("GOOG"))

	lengthField := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthField, uint16(len(body)+2))
	data := append(lengthField, body...)

	symbols := itch.NewSymbolTable()
	out := make([]model.Record, 4)
	n, result := itch.Decode(viewFor(data), out, len(out), symbols)

	require.Equal(t, 1, n)
	assert.Equal(t, 0, result.ParseErrors)
	assert.Equal(t, model.KindSystemEvent, out[0].Kind)

	symbol, ok := symbols.Lookup(42)
	require.True(t, ok)
	assert.Equal(t, "GOOG", symbol)
}

func TestDecodeOrderReplaceCarriesPriorAndNewReference(t *testing.T) {
	body := make([]byte, 37)
	binary.BigEndian.PutUint16(body[0:2], 3)
	binary.BigEndian.PutUint16(body[2:4], 1)
	binary.BigEndian.PutUint64(body[4:12], 0)
	body[12] = itch.TypeOrderReplace
	binary.BigEndian.PutUint64(body[13:21], 555) // original ref
	binary.BigEndian.PutUint64(body[21:29], 777) // new ref
	binary.BigEndian.PutUint32(body[29:33], 10)
	binary.BigEndian.PutUint32(body[33:37], 2000)

	lengthField := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthField, uint16(len(body)+2))
	data := append(lengthField, body...)

	out := make([]model.Record, 4)
	n, _ := itch.Decode(viewFor(data), out, len(out), nil)

	require.Equal(t, 1, n)
	assert.Equal(t, model.KindOrderModify, out[0].Kind)
	assert.EqualValues(t, 777, out[0].OrderID)
	assert.EqualValues(t, 555, out[0].PriorOrderID)
}

func TestMapped(t *testing.T) {
	assert.True(t, itch.Mapped(itch.TypeTrade))
	assert.False(t, itch.Mapped('Z'))
}
