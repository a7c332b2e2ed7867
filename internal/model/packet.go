package model

// MaxPacketSize bounds a single UDP datagram; jumbo-frame sized per spec.
const MaxPacketSize = 9000

// RawPacket is a fixed-capacity byte region owned by an ingress ring slot.
// It is only valid between the decoder's dequeue of the slot and the
// decoder's next dequeue call — the decoder must not retain a RawPacket
// (or a PacketView built from it) past producing its normalized records.
type RawPacket struct {
	Data           [MaxPacketSize]byte
	Length         int
	LocalTimestamp uint64 // wall-clock nanoseconds (time.Now().UnixNano()); not guaranteed monotonic across clock adjustments
	Sequence       uint64 // packet-sequence, assigned on receipt
}

// View returns a read-only PacketView over the packet's current contents.
func (p *RawPacket) View() PacketView {
	return PacketView{
		Bytes:          p.Data[:p.Length],
		Sequence:       p.Sequence,
		LocalTimestamp: p.LocalTimestamp,
	}
}

// PacketView is the read-only triple the decoder consumes: pointer,
// length (via the slice header), packet-sequence, and local receipt
// timestamp. Its lifetime is bounded by the decoder's current iteration.
type PacketView struct {
	Bytes          []byte
	Sequence       uint64
	LocalTimestamp uint64
}
