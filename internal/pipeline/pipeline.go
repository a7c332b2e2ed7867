package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/flowmd/itchmd/internal/decoder"
	"github.com/flowmd/itchmd/internal/dispatcher"
	"github.com/flowmd/itchmd/internal/ingress"
	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/parser"
	"github.com/flowmd/itchmd/internal/ring"
)

// Health tracks pipeline lifecycle state: a pipeline starts Stopped,
// becomes Healthy once every stage is running, and moves to Degraded
// when a steady-state fault (a persistent ingress socket error) is
// observed without the pipeline being asked to stop.
type Health int

const (
	Stopped Health = iota
	Healthy
	Degraded
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	default:
		return "stopped"
	}
}

// Pipeline owns the three stages and the rings that connect them. Start
// and Stop are idempotent: a second Start while running, or a second Stop
// while stopped, is a no-op error-free call (§8 law 4).
type Pipeline struct {
	cfg Config

	ingressRing *ring.SPSC[model.RawPacket]
	decoderRing *ring.SPSC[model.Record]
	in          *ingress.Receiver
	dec         *decoder.Decoder
	disp        *dispatcher.Dispatcher
	stats       *model.Stats

	health atomic.Int32
}

// New wires a Pipeline from cfg. p is the parser the decoder will run;
// pass nil to resolve cfg.ParserName through parser.Registry (an ITCH
// parser when ParserName is empty). latencyObserver, if
// non-nil, receives every dispatch-latency sample (internal/obs wires its
// histogram here).
func New(cfg Config, p parser.Parser, latencyObserver func(uint64)) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if p == nil {
		if cfg.ParserName != "" {
			registered, err := parser.NewRegistry().Get(cfg.ParserName)
			if err != nil {
				return nil, fmt.Errorf("pipeline: %w", err)
			}
			p = registered
		} else {
			p = parser.NewITCH()
		}
	}

	stats := &model.Stats{}
	ingressRing := ring.NewSPSC[model.RawPacket](orDefaultCapacity(cfg.IngressRingCapacity))
	decoderRing := ring.NewSPSC[model.Record](orDefaultCapacity(cfg.DecoderRingCapacity))

	recv, err := ingress.New(cfg.ingressConfig(), ingressRing, stats)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build ingress: %w", err)
	}

	dec := decoder.New(cfg.decoderConfig(), ingressRing, decoderRing, p, stats)

	dispCfg := cfg.dispatcherConfig()
	dispCfg.LatencyObserver = latencyObserver
	disp := dispatcher.New(dispCfg, decoderRing, stats)

	pl := &Pipeline{
		cfg:         cfg,
		ingressRing: ingressRing,
		decoderRing: decoderRing,
		in:          recv,
		dec:         dec,
		disp:        disp,
		stats:       stats,
	}
	pl.health.Store(int32(Stopped))
	recv.SetOnDegraded(pl.degrade)
	return pl, nil
}

// degrade marks the pipeline Degraded and asynchronously stops it. It is
// the ingress receiver's onDegraded hook, invoked from the receive loop's
// own goroutine after persistent socket errors (§7); Stop runs in a
// separate goroutine since it joins that same receive loop.
func (pl *Pipeline) degrade() {
	if !pl.health.CompareAndSwap(int32(Healthy), int32(Degraded)) {
		return
	}
	go pl.Stop()
}

func orDefaultCapacity(c uint64) uint64 {
	if c == 0 {
		return 4096
	}
	return c
}

// RegisterSubscriber adds a subscriber to the dispatch stage. Must be
// called before Start.
func (pl *Pipeline) RegisterSubscriber(sub model.Subscriber) error {
	return pl.disp.Register(sub)
}

// Start brings all three stages up in dependency order: dispatcher first
// (so no decoded record arrives before subscribers are ready), then
// decoder, then ingress last (so the socket only starts accepting once
// the rest of the pipeline can drain it).
func (pl *Pipeline) Start() error {
	if pl.Health() != Stopped {
		return nil // §8 law 4: start on a running pipeline is a no-op
	}
	if err := pl.disp.Start(); err != nil {
		return fmt.Errorf("pipeline: start dispatcher: %w", err)
	}
	if err := pl.dec.Start(); err != nil {
		pl.disp.Stop()
		return fmt.Errorf("pipeline: start decoder: %w", err)
	}
	if err := pl.in.Start(); err != nil {
		pl.dec.Stop()
		pl.disp.Stop()
		return fmt.Errorf("pipeline: start ingress: %w", err)
	}
	pl.health.Store(int32(Healthy))
	return nil
}

// Stop shuts down ingress first, then decoder, then dispatcher — the
// mirror of Start's order, ensuring no stage is stopped while something
// upstream might still feed it.
func (pl *Pipeline) Stop() {
	if pl.Health() == Stopped {
		return
	}
	pl.in.Stop()
	pl.dec.Stop()
	pl.disp.Stop()
	pl.health.Store(int32(Stopped))
}

// Health returns the pipeline's current lifecycle state.
func (pl *Pipeline) Health() Health {
	return Health(pl.health.Load())
}

// Statistics returns a point-in-time snapshot of every counter and
// latency aggregate (§6).
func (pl *Pipeline) Statistics() model.Snapshot {
	return pl.stats.Snapshot()
}

// Stats exposes the underlying model.Stats for components (internal/obs)
// that poll it directly rather than through a one-shot Snapshot.
func (pl *Pipeline) Stats() *model.Stats {
	return pl.stats
}
