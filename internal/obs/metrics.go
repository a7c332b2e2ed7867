package obs

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flowmd/itchmd/internal/model"
)

// Metrics wires the pipeline's model.Stats counters into a Prometheus
// registry, plus a bucketed dispatch-latency histogram
// (100ns/1us/10us/100us/1ms/10ms buckets, covering the receive-path's
// expected latency range).
type Metrics struct {
	stats *model.Stats

	packetsReceived    prometheus.Counter
	packetsDropped     prometheus.Counter
	messagesParsed     prometheus.Counter
	parseErrors        prometheus.Counter
	messagesDispatched prometheus.Counter
	fanOutDrops        prometheus.Counter
	dispatchLatency    prometheus.Histogram

	lastPacketsReceived    uint64
	lastPacketsDropped     uint64
	lastMessagesParsed     uint64
	lastParseErrors        uint64
	lastMessagesDispatched uint64
	lastFanOutDrops        uint64
}

// NewMetrics constructs and registers every gauge/counter/histogram
// against reg. stats is polled by Sync to refresh the monotone counters
// from their atomic source of truth.
func NewMetrics(reg prometheus.Registerer, stats *model.Stats) *Metrics {
	m := &Metrics{
		stats: stats,
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itchmd_packets_received_total",
			Help: "UDP datagrams received by the ingress stage.",
		}),
		packetsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itchmd_packets_dropped_total",
			Help: "Datagrams dropped at ingress (ring full or receive error).",
		}),
		messagesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itchmd_messages_parsed_total",
			Help: "ITCH messages successfully decoded into normalized records.",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itchmd_parse_errors_total",
			Help: "Frame or body parse errors encountered by the decoder.",
		}),
		messagesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itchmd_messages_dispatched_total",
			Help: "Records delivered to a subscriber callback.",
		}),
		fanOutDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "itchmd_fanout_drops_total",
			Help: "Records dropped because a subscriber or stage-output ring was full.",
		}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "itchmd_dispatch_latency_seconds",
			Help:    "Time from local packet receipt to subscriber dispatch.",
			Buckets: []float64{100e-9, 1e-6, 10e-6, 100e-6, 1e-3, 10e-3},
		}),
	}

	reg.MustRegister(
		m.packetsReceived,
		m.packetsDropped,
		m.messagesParsed,
		m.parseErrors,
		m.messagesDispatched,
		m.fanOutDrops,
		m.dispatchLatency,
	)
	return m
}

// ObserveLatency feeds one dispatch-latency sample, in nanoseconds, into
// the histogram. Intended as a dispatcher.Config.LatencyObserver, which
// is wired in before the pipeline (and its model.Stats) exists — so
// ObserveLatency itself never touches m.stats.
func (m *Metrics) ObserveLatency(ns uint64) {
	m.dispatchLatency.Observe(float64(ns) / 1e9)
}

// SetStats binds the model.Stats Sync polls, for callers that construct
// Metrics before the pipeline that owns the Stats instance.
func (m *Metrics) SetStats(stats *model.Stats) {
	m.stats = stats
}

// Sync refreshes every counter from the current model.Stats snapshot.
// Prometheus counters only move forward, matching Stats' own
// monotonically non-decreasing contract, so each call adds the delta
// since the last sync.
func (m *Metrics) Sync() {
	snap := m.stats.Snapshot()
	addDelta(m.packetsReceived, &m.lastPacketsReceived, snap.PacketsReceived)
	addDelta(m.packetsDropped, &m.lastPacketsDropped, snap.PacketsDropped)
	addDelta(m.messagesParsed, &m.lastMessagesParsed, snap.MessagesParsed)
	addDelta(m.parseErrors, &m.lastParseErrors, snap.ParseErrors)
	addDelta(m.messagesDispatched, &m.lastMessagesDispatched, snap.MessagesDispatched)
	addDelta(m.fanOutDrops, &m.lastFanOutDrops, snap.FanOutDrops)
}

func addDelta(c prometheus.Counter, last *uint64, current uint64) {
	if current > *last {
		c.Add(float64(current - *last))
	}
	*last = current
}
