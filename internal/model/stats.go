package model

import "sync/atomic"

// Stats holds the pipeline's monotonically non-decreasing counters plus
// latency aggregates, per §3/§6. Each field is written by its owning
// stage with a relaxed atomic add; readers use an atomic load and may
// observe slightly stale but always-monotone values.
//
// Fields are grouped so independently-hot counters (ingress drop vs.
// decoder parse-error vs. dispatcher fan-out drop) don't share a cache
// line with each other under concurrent increment.
type Stats struct {
	PacketsReceived  atomic.Uint64
	PacketsDropped   atomic.Uint64 // dropped at ingress (SPSC full or socket read error)
	_                [48]byte
	MessagesParsed   atomic.Uint64
	ParseErrors      atomic.Uint64
	_                [48]byte
	MessagesDispatched atomic.Uint64
	FanOutDrops        atomic.Uint64
	_                  [48]byte
	minLatencyNs atomic.Uint64
	maxLatencyNs atomic.Uint64
	sumLatencyNs atomic.Uint64
	countLatency atomic.Uint64
}

// ObserveLatency folds one dispatch-latency sample (local_timestamp to
// dispatch moment, in nanoseconds) into the min/max/sum/count aggregate.
func (s *Stats) ObserveLatency(ns uint64) {
	s.sumLatencyNs.Add(ns)
	s.countLatency.Add(1)

	for {
		cur := s.minLatencyNs.Load()
		if cur != 0 && cur <= ns {
			break
		}
		if s.minLatencyNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	for {
		cur := s.maxLatencyNs.Load()
		if cur >= ns {
			break
		}
		if s.maxLatencyNs.CompareAndSwap(cur, ns) {
			break
		}
	}
}

// Snapshot is a read-only point-in-time copy of Stats, safe to pass
// around and format without further synchronization.
type Snapshot struct {
	PacketsReceived    uint64
	PacketsDropped     uint64
	MessagesParsed     uint64
	ParseErrors        uint64
	MessagesDispatched uint64
	FanOutDrops        uint64
	MinLatencyNs       uint64
	MaxLatencyNs       uint64
	TotalLatencyNs     uint64
	LatencyCount       uint64
}

// AvgLatencyNs returns TotalLatencyNs/LatencyCount, or 0 if no samples
// have been observed yet.
func (s Snapshot) AvgLatencyNs() float64 {
	if s.LatencyCount == 0 {
		return 0
	}
	return float64(s.TotalLatencyNs) / float64(s.LatencyCount)
}

// Snapshot takes an atomic point-in-time copy of every counter.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		PacketsReceived:    s.PacketsReceived.Load(),
		PacketsDropped:     s.PacketsDropped.Load(),
		MessagesParsed:     s.MessagesParsed.Load(),
		ParseErrors:        s.ParseErrors.Load(),
		MessagesDispatched: s.MessagesDispatched.Load(),
		FanOutDrops:        s.FanOutDrops.Load(),
		MinLatencyNs:       s.minLatencyNs.Load(),
		MaxLatencyNs:       s.maxLatencyNs.Load(),
		TotalLatencyNs:     s.sumLatencyNs.Load(),
		LatencyCount:       s.countLatency.Load(),
	}
}
