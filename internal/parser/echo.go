package parser

import "github.com/flowmd/itchmd/internal/model"

// Echo is a test collaborator that produces exactly one passthrough
// record per packet, carrying only packet metadata (sequence and local
// timestamp) with Kind set to Unknown. Useful for exercising the
// ingress->decoder->dispatcher path end to end without depending on the
// ITCH codec.
type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Parse(view model.PacketView, out []model.Record, max int) (int, error) {
	if max < 1 {
		return 0, nil
	}
	out[0] = model.Record{
		Kind:           model.KindUnknown,
		Sequence:       uint32(view.Sequence),
		LocalTimestamp: view.LocalTimestamp,
		Side:           model.SideNA,
	}
	return 1, nil
}
