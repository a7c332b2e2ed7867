// Package parser defines the decoder's polymorphic parse contract and
// its concrete implementations — Null, Echo, and ITCH — plus a
// name-keyed Registry so a deployment can select one by configuration.
package parser

import "github.com/flowmd/itchmd/internal/model"

// Parser is the contract the decoder stage consumes. Parse writes up to
// max records into out and reports how many it actually produced; it
// must never write past max and never block.
type Parser interface {
	// Name returns a diagnostic identifier.
	Name() string
	// Parse decodes view into out[:n], returning n.
	Parse(view model.PacketView, out []model.Record, max int) (int, error)
}

// Initializer is an optional capability: a Parser that needs setup before
// first use implements it.
type Initializer interface {
	Initialize() error
}

// Resetter is an optional capability: a Parser that holds mutable state
// (e.g. a symbol table) between packets implements it to support test
// harnesses that need a clean slate.
type Resetter interface {
	Reset()
}

// StatsProvider is an optional capability exposing parser-local
// statistics beyond the pipeline's own model.Stats.
type StatsProvider interface {
	Stats() model.Snapshot
}

// ParseErrorReporter is an optional capability: a Parser that detects
// per-call frame/body errors too short for its declared type (§4.3)
// reports how many occurred in the most recent Parse call, so the
// decoder can fold them into model.Stats.ParseErrors.
type ParseErrorReporter interface {
	LastParseErrors() int
}
