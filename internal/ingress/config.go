// Package ingress owns the multicast UDP socket and the hot receive loop
// that stages packets for the decoder without blocking the kernel reader.
package ingress

import "time"

// Config is the ingress configuration surface.
type Config struct {
	// MulticastGroup is the IPv4 multicast address to join.
	MulticastGroup string
	// InterfaceIP is the local interface address to bind; "" means
	// 0.0.0.0 (any interface).
	InterfaceIP string
	// Port is the UDP port to bind.
	Port uint16
	// ReceiveBufferSize is a socket-buffer hint in bytes; 0 leaves the
	// OS default in place.
	ReceiveBufferSize int
	// EnableTimestamping requests kernel receive timestamps. Best
	// effort: a failure to set it is ignored, not fatal.
	EnableTimestamping bool
	// CPUAffinity pins the receive loop's OS thread to a core; -1 means
	// unpinned.
	CPUAffinity int
	// RingCapacity records the ingress->decoder SPSC ring's capacity.
	// Receiver does not read it: it publishes into whatever ring is
	// passed to New.
	RingCapacity uint64
	// ReadTimeout bounds each blocking read so the loop can observe a
	// stop request in bounded time. Defaults to 100ms when zero.
	ReadTimeout time.Duration
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return 100 * time.Millisecond
	}
	return c.ReadTimeout
}
