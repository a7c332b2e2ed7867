package dispatcher

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/ring"
)

// subscription pairs a registered subscriber with its private ring and a
// live/dead flag (§3 Subscriber Handle).
type subscription struct {
	sub   model.Subscriber
	ring  *ring.SPSC[model.Record]
	alive atomic.Bool
}

// Dispatcher delivers every record dequeued from the decoder's output
// ring to each registered subscriber's private queue, then drains those
// queues and invokes each subscriber's callback. One misbehaving
// subscriber — a panic or a false return — never stops delivery to the
// others.
type Dispatcher struct {
	cfg Config
	in  *ring.SPSC[model.Record]

	subs    []*subscription
	started atomic.Bool
	running atomic.Bool
	done    chan struct{}
	stats   *model.Stats
}

// New builds a Dispatcher reading from the decoder's output ring.
func New(cfg Config, in *ring.SPSC[model.Record], stats *model.Stats) *Dispatcher {
	return &Dispatcher{cfg: cfg, in: in, stats: stats, done: make(chan struct{})}
}

// Register adds a subscriber with its own private ring. Registration
// after Start is disallowed per §3.
func (d *Dispatcher) Register(sub model.Subscriber) error {
	if d.started.Load() {
		return fmt.Errorf("dispatcher: cannot register %q after Start", sub.Name())
	}
	d.subs = append(d.subs, &subscription{
		sub:  sub,
		ring: ring.NewSPSC[model.Record](d.cfg.subscriberRingCapacity()),
	})
	return nil
}

// Start initializes every registered subscriber and begins the
// dispatch/drain loop on its own goroutine.
func (d *Dispatcher) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher: already started")
	}
	for _, s := range d.subs {
		if err := s.sub.Initialize(); err != nil {
			return fmt.Errorf("dispatcher: initialize subscriber %q: %w", s.sub.Name(), err)
		}
		s.alive.Store(true)
	}
	d.running.Store(true)
	go d.dispatchLoop()
	return nil
}

// Stop requests the dispatch loop to exit, waits for it to join, then
// shuts every subscriber down.
func (d *Dispatcher) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	<-d.done
	for _, s := range d.subs {
		s.sub.Shutdown()
	}
}

func (d *Dispatcher) dispatchLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(d.done)

	if d.cfg.CPUAffinity >= 0 {
		_ = pinToCPU(d.cfg.CPUAffinity)
	}

	batch := d.cfg.subscriberRingCapacity()
	for d.running.Load() {
		// Fan out up to one subscriber ring's worth of records before
		// draining, so a slow subscriber's private ring can fill and
		// overflow into fan-out drops instead of stalling the input ring.
		var fanned uint64
		for ; fanned < batch; fanned++ {
			rec, ok := d.in.TryPop()
			if !ok {
				break
			}
			d.fanOut(rec)
		}
		d.drainSubscribers()
		if fanned == 0 {
			runtime.Gosched()
		}
	}
}

// fanOut pushes one record into every live subscriber's private queue in
// registration order (§4.4).
func (d *Dispatcher) fanOut(rec model.Record) {
	for _, s := range d.subs {
		if !s.alive.Load() {
			continue
		}
		if !s.ring.TryPush(rec) {
			d.stats.FanOutDrops.Add(1)
		}
	}
}

// drainSubscribers delivers every queued record to each live subscriber,
// marking it dead on an unsubscribe request or a recovered panic.
func (d *Dispatcher) drainSubscribers() {
	now := uint64(time.Now().UnixNano())
	for _, s := range d.subs {
		if !s.alive.Load() {
			continue
		}
		for {
			rec, ok := s.ring.TryPop()
			if !ok {
				break
			}
			d.stats.MessagesDispatched.Add(1)
			if now > rec.LocalTimestamp {
				latency := now - rec.LocalTimestamp
				d.stats.ObserveLatency(latency)
				if d.cfg.LatencyObserver != nil {
					d.cfg.LatencyObserver(latency)
				}
			}
			if !invokeSafely(s.sub, rec) {
				s.alive.Store(false)
				break
			}
		}
	}
}

// invokeSafely calls OnMessage, converting a panic into a false
// (unsubscribe) return so one misbehaving subscriber cannot take down the
// dispatch thread (§7).
func invokeSafely(sub model.Subscriber, rec model.Record) (cont bool) {
	defer func() {
		if recover() != nil {
			cont = false
		}
	}()
	return sub.OnMessage(rec)
}

func pinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
