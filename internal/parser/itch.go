package parser

import (
	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/wire/itch"
)

// ITCH decodes NASDAQ ITCH 5.0 packets into normalized records. It
// optionally maintains a stock-locate -> symbol table from Stock
// Directory ('R') messages (SPEC_FULL.md supplemental feature 4).
type ITCH struct {
	symbols        *itch.SymbolTable
	lastParseError int
}

// NewITCH constructs an ITCH parser with its own symbol table.
func NewITCH() *ITCH {
	return &ITCH{symbols: itch.NewSymbolTable()}
}

func (*ITCH) Name() string { return "itch5.0" }

func (p *ITCH) Parse(view model.PacketView, out []model.Record, max int) (int, error) {
	n, result := itch.Decode(view, out, max, p.symbols)
	p.lastParseError = result.ParseErrors
	return n, nil
}

// LastParseErrors returns the parse-error count from the most recent
// Parse call. The decoder stage polls this (an optional capability, see
// ParseErrorReporter) to fold per-packet frame errors into model.Stats.
func (p *ITCH) LastParseErrors() int {
	return p.lastParseError
}

// Reset clears the accumulated symbol table.
func (p *ITCH) Reset() {
	p.symbols = itch.NewSymbolTable()
}

// Symbol returns the directory symbol for a stock locate, if known.
func (p *ITCH) Symbol(stockLocate uint16) (string, bool) {
	return p.symbols.Lookup(stockLocate)
}
