package decoder

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/parser"
	"github.com/flowmd/itchmd/internal/ring"
)

// Decoder drains the ingress ring, parses each packet with a
// parser.Parser, and publishes normalized records to the dispatcher ring.
// It never blocks: an empty input ring is a yield point, a full output
// ring is a counted drop.
type Decoder struct {
	cfg Config
	in  *ring.SPSC[model.RawPacket]
	out *ring.SPSC[model.Record]
	p   parser.Parser

	stats   *model.Stats
	running atomic.Bool
	done    chan struct{}
	scratch []model.Record
}

// New builds a Decoder wired to a parser and the two rings it sits
// between.
func New(cfg Config, in *ring.SPSC[model.RawPacket], out *ring.SPSC[model.Record], p parser.Parser, stats *model.Stats) *Decoder {
	return &Decoder{
		cfg:     cfg,
		in:      in,
		out:     out,
		p:       p,
		stats:   stats,
		done:    make(chan struct{}),
		scratch: make([]model.Record, cfg.maxMessagesPerPacket()),
	}
}

// Start runs the decode loop on its own goroutine.
func (d *Decoder) Start() error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("decoder: already running")
	}
	if init, ok := d.p.(parser.Initializer); ok {
		if err := init.Initialize(); err != nil {
			d.running.Store(false)
			return fmt.Errorf("decoder: parser initialize: %w", err)
		}
	}
	go d.decodeLoop()
	return nil
}

// Stop requests the decode loop to exit and waits for it to join.
func (d *Decoder) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	<-d.done
}

func (d *Decoder) decodeLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.done)

	if d.cfg.CPUAffinity >= 0 {
		_ = pinToCPU(d.cfg.CPUAffinity)
	}

	for d.running.Load() {
		pkt, ok := d.in.TryPop()
		if !ok {
			runtime.Gosched()
			continue
		}
		d.processPacket(pkt)
	}
}

func (d *Decoder) processPacket(pkt model.RawPacket) {
	view := pkt.View()
	n, err := d.p.Parse(view, d.scratch, len(d.scratch))
	if err != nil {
		d.stats.ParseErrors.Add(1)
		return
	}

	if reporter, ok := d.p.(parser.ParseErrorReporter); ok {
		if errs := reporter.LastParseErrors(); errs > 0 {
			d.stats.ParseErrors.Add(uint64(errs))
		}
	}

	for i := 0; i < n; i++ {
		d.stats.MessagesParsed.Add(1)
		if !d.out.TryPush(d.scratch[i]) {
			// Decoder->dispatcher ring full: the record never reaches a
			// subscriber, the same class of loss §4.4 counts as a
			// fan-out drop.
			d.stats.FanOutDrops.Add(1)
		}
	}
}

func pinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
