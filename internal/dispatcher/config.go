// Package dispatcher fans normalized records out to every registered
// subscriber through private bounded queues, servicing them all from a
// single dedicated thread.
package dispatcher

// Config is the dispatcher's configuration surface.
type Config struct {
	// SubscriberRingCapacity sizes each subscriber's private ring; must
	// be a power of two >= 2.
	SubscriberRingCapacity uint64
	// CPUAffinity pins the dispatch loop's OS thread to a core; -1
	// means unpinned.
	CPUAffinity int
	// LatencyObserver, if set, receives every dispatch-latency sample in
	// nanoseconds alongside the model.Stats aggregate — the hook
	// internal/obs wires to its bucketed histogram.
	LatencyObserver func(ns uint64)
}

func (c Config) subscriberRingCapacity() uint64 {
	if c.SubscriberRingCapacity == 0 {
		return 1024
	}
	return c.SubscriberRingCapacity
}
