//go:build amd64 || arm64

package ring

// procyield emits a single CPU-pause/yield hint, implemented in
// pause_amd64.s / pause_arm64.s. It is not a memory barrier: it only hints
// to the core that the current thread is spin-waiting so a sibling
// hyperthread can be scheduled.
func procyield()
