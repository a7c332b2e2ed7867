package ring

import "runtime"

// WaitStrategy selects how a blocking Push/Pop spins while its ring is
// full or empty, per spec: pause-spin for the tight ingress->decoder
// path, yield for decoder->dispatcher and subscriber rings.
type WaitStrategy int

const (
	// Spin busy-waits with a CPU-pause hint between retries.
	Spin WaitStrategy = iota
	// Yield calls runtime.Gosched between retries.
	Yield
)

func (s WaitStrategy) wait() {
	switch s {
	case Spin:
		procyield()
	default:
		runtime.Gosched()
	}
}

// Push blocks until v is published or until stop returns true, in which
// case it returns false.
func (r *SPSC[T]) Push(v T, strategy WaitStrategy, stop func() bool) bool {
	for !r.TryPush(v) {
		if stop != nil && stop() {
			return false
		}
		strategy.wait()
	}
	return true
}

// Pop blocks until an element is available or until stop returns true.
func (r *SPSC[T]) Pop(strategy WaitStrategy, stop func() bool) (T, bool) {
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
