package cancel

import "time"

// Setup bundles a cancellation handle's watchdog and its timer-armed
// timeout into one convenience constructor for query evaluation entry
// points.
type Setup struct {
	Handle   *Handle
	watchdog *Watchdog
	cleanup  Cleanup
}

// SetupCancellationHandle creates a Handle, optionally arms a timeout on
// pool (timeout <= 0 disables it), and starts a watchdog polling every
// watchdogInterval (<= 0 disables it). The returned Setup's Close method
// disarms the timer if the operation completes normally and stops the
// watchdog goroutine.
func SetupCancellationHandle(pool *TimerPool, timeout, watchdogInterval time.Duration) *Setup {
	h := NewHandle()
	s := &Setup{Handle: h}

	if timeout > 0 && pool != nil {
		s.cleanup = pool.Arm(h, time.Now().Add(timeout))
	}
	if watchdogInterval > 0 {
		s.watchdog = NewWatchdog(h, watchdogInterval)
	}
	return s
}

// Close disarms any armed timeout and stops the watchdog. Safe to call
// once the guarded operation completes, whether it succeeded, failed, or
// was cancelled.
func (s *Setup) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
}
