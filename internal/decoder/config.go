// Package decoder drives the decode stage: it dequeues raw packets from
// the ingress ring, runs them through a parser.Parser, and publishes
// normalized records to the dispatcher ring.
package decoder

// Config is the decoder's configuration surface (§6).
type Config struct {
	// MaxMessagesPerPacket bounds how many records a single packet may
	// decode into; also sizes the per-call scratch buffer.
	MaxMessagesPerPacket int
	// CPUAffinity pins the decode loop's OS thread to a core; -1 means
	// unpinned.
	CPUAffinity int
}

func (c Config) maxMessagesPerPacket() int {
	if c.MaxMessagesPerPacket <= 0 {
		return 64
	}
	return c.MaxMessagesPerPacket
}
