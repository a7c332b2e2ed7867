//go:build !amd64 && !arm64

package ring

import "runtime"

// procyield falls back to a scheduler yield on architectures without a
// dedicated spin-wait hint implemented here.
func procyield() {
	runtime.Gosched()
}
