package ring

import "sync/atomic"

// mpscSlot carries a sequence tag alongside its payload so producers can
// claim slots via CAS without a lock and the consumer can tell a written
// slot from an empty one.
type mpscSlot[T any] struct {
	sequence uint64
	value    T
}

// MPSC is a lock-free multi-producer/single-consumer bounded ring of T.
// Producers race to claim the next slot with a CAS on tail; the consumer
// is the only writer of head and is wait-free once a slot is visible.
type MPSC[T any] struct {
	buf  []mpscSlot[T]
	mask uint64

	_    [cacheLinePad]byte
	tail uint64 // next slot index a producer will attempt to claim
	_    [cacheLinePad]byte
	head uint64 // next slot index the consumer will read
	_    [cacheLinePad]byte
}

// NewMPSC constructs a ring of the given capacity, which must be a power
// of two >= 2.
func NewMPSC[T any](capacity uint64) *MPSC[T] {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two >= 2")
	}
	r := &MPSC[T]{
		buf:  make([]mpscSlot[T], capacity),
		mask: capacity - 1,
	}
	for i := range r.buf {
		r.buf[i].sequence = uint64(i)
	}
	return r
}

// TryPush attempts to publish v without blocking. Returns false if the
// ring is full. Safe for concurrent use by multiple producers.
func (r *MPSC[T]) TryPush(v T) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		// Effective capacity is capacity-1, matching the SPSC ring's
		// full/empty disambiguation reserve: refuse before even
		// attempting the slot CAS once capacity-1 elements are pending.
		if tail-atomic.LoadUint64(&r.head) >= r.mask {
			return false
		}
		slot := &r.buf[tail&r.mask]
		seq := atomic.LoadUint64(&slot.sequence)

		switch diff := int64(seq) - int64(tail); {
		case diff == 0:
			// Slot is free for this tail value; try to claim it.
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				slot.value = v
				// Release: publish the value before advancing sequence
				// past tail, which is the consumer's acquire point.
				atomic.StoreUint64(&slot.sequence, tail+1)
				return true
			}
			// Lost the race; another producer claimed it, retry.
		case diff < 0:
			// Consumer hasn't freed this slot yet: queue is full.
			return false
		default:
			// Another producer has already advanced tail past what we
			// loaded; reload and retry.
		}
	}
}

// TryPop attempts to dequeue the oldest element without blocking. Returns
// the zero value and false if the ring is empty. Single-consumer only.
func (r *MPSC[T]) TryPop() (T, bool) {
	head := atomic.LoadUint64(&r.head)
	slot := &r.buf[head&r.mask]
	seq := atomic.LoadUint64(&slot.sequence)

	if seq != head+1 {
		var zero T
		return zero, false
	}

	v := slot.value
	// Release: mark the slot free for producers once capacity+head
	// sequences have elapsed.
	atomic.StoreUint64(&slot.sequence, head+r.mask+1)
	atomic.StoreUint64(&r.head, head+1)
	return v, true
}

// Empty reports whether the ring currently holds no elements.
func (r *MPSC[T]) Empty() bool {
	head := atomic.LoadUint64(&r.head)
	slot := &r.buf[head&r.mask]
	return atomic.LoadUint64(&slot.sequence) != head+1
}

// ApproxSize returns a point-in-time element count, approximate under
// concurrent producers.
func (r *MPSC[T]) ApproxSize() uint64 {
	tail := atomic.LoadUint64(&r.tail)
	head := atomic.LoadUint64(&r.head)
	return (tail - head) & r.mask
}

// Capacity returns the ring's raw slot count.
func (r *MPSC[T]) Capacity() uint64 {
	return r.mask + 1
}

// Push blocks until v is published or stop returns true.
func (r *MPSC[T]) Push(v T, strategy WaitStrategy, stop func() bool) bool {
	for !r.TryPush(v) {
		if stop != nil && stop() {
			return false
		}
		strategy.wait()
	}
	return true
}

// Pop blocks until an element is available or stop returns true.
func (r *MPSC[T]) Pop(strategy WaitStrategy, stop func() bool) (T, bool) {
	for {
		if v, ok := r.TryPop(); ok {
			return v, true
		}
		if stop != nil && stop() {
			var zero T
			return zero, false
		}
		strategy.wait()
	}
}
