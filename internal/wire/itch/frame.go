package itch

import (
	"encoding/binary"

	"github.com/flowmd/itchmd/internal/model"
)

// FrameResult summarizes one packet's framing pass, for callers (the
// decoder) that want per-packet parse-error accounting beyond the
// cumulative Stats counter.
type FrameResult struct {
	RecordsEmitted int
	ParseErrors    int
}

// SymbolTable holds the stock-locate -> symbol mapping built from 'R'
// (Stock Directory) messages. Populated for diagnostics only; it never
// feeds into the normalized record (SPEC_FULL.md supplemental feature 4).
type SymbolTable struct {
	bySignal map[uint16]string
}

// NewSymbolTable constructs an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{bySignal: make(map[uint16]string)}
}

// Lookup returns the symbol for a stock locate and whether it is known.
func (t *SymbolTable) Lookup(stockLocate uint16) (string, bool) {
	s, ok := t.bySignal[stockLocate]
	return s, ok
}

func (t *SymbolTable) put(stockLocate uint16, symbol string) {
	t.bySignal[stockLocate] = symbol
}

// Decode splits view into framed ITCH messages and appends the
// normalized Record for each successfully decoded, mapped message to out,
// up to max records. It returns the number of records written and a
// FrameResult with per-packet diagnostics. symbols may be nil; when
// non-nil it is updated from any Stock Directory ('R') messages.
//
// Decode never panics and never blocks; a malformed frame only skips the
// remainder of that frame (or, for a length inconsistent with the packet
// boundary, the remainder of the packet) per §4.3/§7.
func Decode(view model.PacketView, out []model.Record, max int, symbols *SymbolTable) (int, FrameResult) {
	var result FrameResult
	n := 0
	data := view.Bytes
	offset := 0

	for len(data)-offset >= 3 && n < max {
		length := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		remaining := len(data) - offset

		if length < 3 || length > remaining {
			result.ParseErrors++
			break
		}

		bodyStart := offset + 2
		bodyEnd := bodyStart + (length - 2)
		body := data[bodyStart:bodyEnd]

		rec, ok, isParseError := decodeMessage(body, view, symbols)
		if isParseError {
			result.ParseErrors++
		} else if ok {
			out[n] = rec
			n++
			result.RecordsEmitted++
		}

		offset += length
	}

	return n, result
}

// decodeMessage decodes a single message body. The three return values
// are: the record (valid only if ok), whether a record was produced, and
// whether this body counted as a parse error (too short for its
// declared type — §4.3). An unmapped/unknown type returns
// (zero, false, false): not an error, just nothing emitted.
func decodeMessage(body []byte, view model.PacketView, symbols *SymbolTable) (model.Record, bool, bool) {
	if len(body) < commonHeaderSize {
		return model.Record{}, false, true
	}
	msgType := body[12]

	size, known := bodySize(msgType)
	if !known {
		return model.Record{}, false, false
	}
	if len(body) < size {
		return model.Record{}, false, true
	}

	header := decodeHeader(body)

	switch msgType {
	case TypeSystemEvent:
		return decodeSystemEvent(header, view), true, false
	case TypeStockDirectory:
		return decodeStockDirectory(header, body, view, symbols), true, false
	case TypeAddOrder, TypeAddOrderMPID:
		return decodeAddOrder(header, body, view), true, false
	case TypeOrderExecuted, TypeOrderExecutedPrice:
		return decodeOrderExecuted(header, body, view), true, false
	case TypeOrderCancel:
		return decodeOrderCancel(header, body, view), true, false
	case TypeOrderDelete:
		return decodeOrderDelete(header, body, view), true, false
	case TypeOrderReplace:
		return decodeOrderReplace(header, body, view), true, false
	case TypeTrade:
		return decodeTrade(header, body, view), true, false
	default:
		return model.Record{}, false, false
	}
}

// commonHeader holds the fields every message body shares at offsets
// 0..12 (§6).
type commonHeader struct {
	stockLocate     uint16
	trackingNumber  uint16
	exchangeTimeNs  uint64
}

func decodeHeader(body []byte) commonHeader {
	return commonHeader{
		stockLocate:    binary.BigEndian.Uint16(body[0:2]),
		trackingNumber: binary.BigEndian.Uint16(body[2:4]),
		exchangeTimeNs: binary.BigEndian.Uint64(body[4:12]),
	}
}

func baseRecord(h commonHeader, view model.PacketView, kind model.Kind) model.Record {
	return model.Record{
		Kind:              kind,
		InstrumentID:      uint64(h.stockLocate),
		Sequence:          uint32(h.trackingNumber),
		ExchangeTimestamp: h.exchangeTimeNs,
		LocalTimestamp:    view.LocalTimestamp,
		Side:              model.SideNA,
	}
}

func decodeSide(b byte) model.Side {
	switch b {
	case wireSideBuy:
		return model.SideBuy
	case wireSideSell:
		return model.SideSell
	default:
		return model.SideNA
	}
}

func decodeSystemEvent(h commonHeader, view model.PacketView) model.Record {
	return baseRecord(h, view, model.KindSystemEvent)
}

func decodeStockDirectory(h commonHeader, body []byte, view model.PacketView, symbols *SymbolTable) model.Record {
	if symbols != nil {
		symbol := trimStockSymbol(body[commonHeaderSize : commonHeaderSize+8])
		symbols.put(h.stockLocate, symbol)
	}
	return baseRecord(h, view, model.KindSystemEvent)
}

func trimStockSymbol(raw []byte) string {
	end := len(raw)
	for end > 0 && raw[end-1] == ' ' {
		end--
	}
	return string(raw[:end])
}

// decodeAddOrder handles both 'A' and 'F' (Add Order / Add Order w/ MPID):
// body layout through offset 37 is identical; 'F' only adds a trailing
// MPID field this decoder ignores.
func decodeAddOrder(h commonHeader, body []byte, view model.PacketView) model.Record {
	rec := baseRecord(h, view, model.KindOrderAdd)
	rec.OrderID = binary.BigEndian.Uint64(body[13:21])
	rec.Side = decodeSide(body[21])
	rec.Quantity = uint64(binary.BigEndian.Uint32(body[22:26]))
	rec.Price = int64(binary.BigEndian.Uint32(body[34:38]))
	return rec
}

// decodeOrderExecuted handles both 'E' and 'C'; 'C' additionally carries
// an execution price this decoder does not surface (the normalized
// record has no separate execution-price field — executed shares and
// order id are sufficient for the OrderExecute kind per §4.3).
func decodeOrderExecuted(h commonHeader, body []byte, view model.PacketView) model.Record {
	rec := baseRecord(h, view, model.KindOrderExecute)
	rec.OrderID = binary.BigEndian.Uint64(body[13:21])
	rec.Quantity = uint64(binary.BigEndian.Uint32(body[21:25]))
	return rec
}

func decodeOrderCancel(h commonHeader, body []byte, view model.PacketView) model.Record {
	rec := baseRecord(h, view, model.KindOrderModify)
	rec.OrderID = binary.BigEndian.Uint64(body[13:21])
	// Quantity here is the cancelled-shares decrement, not a new total —
	// see SPEC_FULL.md Open Question decisions.
	rec.Quantity = uint64(binary.BigEndian.Uint32(body[21:25]))
	return rec
}

func decodeOrderDelete(h commonHeader, body []byte, view model.PacketView) model.Record {
	rec := baseRecord(h, view, model.KindOrderDelete)
	rec.OrderID = binary.BigEndian.Uint64(body[13:21])
	return rec
}

// decodeOrderReplace carries both the prior and the new order reference;
// the new reference is the normalized OrderID, the prior reference is
// additionally exposed as PriorOrderID (SPEC_FULL.md Open Question
// decisions).
func decodeOrderReplace(h commonHeader, body []byte, view model.PacketView) model.Record {
	rec := baseRecord(h, view, model.KindOrderModify)
	rec.PriorOrderID = binary.BigEndian.Uint64(body[13:21])
	rec.OrderID = binary.BigEndian.Uint64(body[21:29])
	rec.Quantity = uint64(binary.BigEndian.Uint32(body[29:33]))
	rec.Price = int64(binary.BigEndian.Uint32(body[33:37]))
	return rec
}

func decodeTrade(h commonHeader, body []byte, view model.PacketView) model.Record {
	rec := baseRecord(h, view, model.KindTrade)
	rec.OrderID = binary.BigEndian.Uint64(body[13:21])
	rec.Side = decodeSide(body[21])
	rec.Quantity = uint64(binary.BigEndian.Uint32(body[22:26]))
	rec.Price = int64(binary.BigEndian.Uint32(body[34:38]))
	return rec
}
