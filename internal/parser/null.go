package parser

import "github.com/flowmd/itchmd/internal/model"

// Null is a test collaborator that produces zero records for every
// packet. Useful for isolating ingress/dispatcher behavior from decode
// cost in benchmarks and backpressure tests.
type Null struct{}

func (Null) Name() string { return "null" }

func (Null) Parse(model.PacketView, []model.Record, int) (int, error) {
	return 0, nil
}
