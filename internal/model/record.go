// Package model defines the data shapes that flow between the pipeline's
// three stages: the raw packet buffer and its read-only view, the
// normalized cross-protocol record, the subscriber handle, and the
// statistics snapshot.
package model

// Kind enumerates the normalized event categories every supported wire
// message maps into.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindTrade
	KindQuote
	KindOrderAdd
	KindOrderModify
	KindOrderDelete
	KindOrderExecute
	KindImbalance
	KindSystemEvent
)

func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "Trade"
	case KindQuote:
		return "Quote"
	case KindOrderAdd:
		return "OrderAdd"
	case KindOrderModify:
		return "OrderModify"
	case KindOrderDelete:
		return "OrderDelete"
	case KindOrderExecute:
		return "OrderExecute"
	case KindImbalance:
		return "Imbalance"
	case KindSystemEvent:
		return "SystemEvent"
	default:
		return "Unknown"
	}
}

// Side enumerates order side; NA covers message types that carry no side
// (e.g. SystemEvent).
type Side uint8

const (
	SideBuy Side = iota
	SideSell
	SideNA
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	default:
		return "NA"
	}
}

// Record is the canonical cross-protocol event the decoder emits and the
// dispatcher fans out. Field order groups the hot 8-byte values first to
// keep the struct within two cache lines; see record_test.go for the
// layout budget this is checked against.
//
// The decoder either populates every field or emits no record at all —
// partial fills are forbidden (spec invariant).
type Record struct {
	InstrumentID uint64
	OrderID      uint64
	// PriorOrderID carries the original reference number for an Order
	// Replace ('U'); zero for every other kind. Additive field — see
	// SPEC_FULL.md Open Question decisions.
	PriorOrderID      uint64
	Price             int64
	Quantity          uint64
	ExchangeTimestamp uint64
	LocalTimestamp    uint64
	Sequence          uint32
	Kind              Kind
	Side              Side
	_                 [2]byte // pad to a multiple of 8 bytes
}

// Empty reports whether r is the zero Record, i.e. Kind is Unknown and no
// other field has been populated. Used by tests; never used on the hot
// path.
func (r Record) Empty() bool {
	return r == Record{}
}
