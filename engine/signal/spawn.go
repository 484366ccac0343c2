package signal

import (
	"runtime"

	"github.com/Carmen-Shannon/helix/engine/logging"
)

// DefaultStackSize is the stack hint used when a caller passes 0.
const DefaultStackSize = 16 * 1024

// Spawn starts fn on a new goroutine that is locked to its OS thread for its whole lifetime,
// which graphics device contexts require. The returned channel is closed when fn returns,
// including when it panics; the panic still propagates.
//
// Goroutine stacks grow on demand, so stackHint is advisory. It is logged so that thread
// configuration stays visible next to the other lifecycle events.
//
// Parameters:
//   - name: a label used in log output
//   - stackHint: the requested stack size in bytes (0 selects DefaultStackSize)
//   - fn: the goroutine body
//
// Returns:
//   - <-chan struct{}: closed after fn returns
func Spawn(name string, stackHint int, fn func()) <-chan struct{} {
	if stackHint <= 0 {
		stackHint = DefaultStackSize
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		logging.Logger().Info("goroutine started", "name", name, "stackHint", stackHint)
		defer logging.Logger().Info("goroutine stopped", "name", name)
		fn()
	}()
	return done
}
