package cancel

import (
	"sync"
	"sync/atomic"
	"time"

	"tripleengine/pkg/qlog"
)

// Watchdog observes poll activity on a Handle and logs, purely as a
// diagnostic, when the gap between two polls exceeds Interval. It never
// mutates the handle's state and never blocks a caller.
type Watchdog struct {
	handle   *Handle
	interval time.Duration

	lastPollNanos atomic.Int64

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewWatchdog creates a Watchdog for handle, checking every interval
// whether a poll has occurred since the previous check, and attaches
// itself so the handle's Check calls feed it.
func NewWatchdog(handle *Handle, interval time.Duration) *Watchdog {
	w := &Watchdog{
		handle:   handle,
		interval: interval,
		done:     make(chan struct{}),
	}
	w.lastPollNanos.Store(time.Now().UnixNano())
	handle.attachWatchdog(w)

	go w.run()
	return w
}

func (w *Watchdog) recordPoll() {
	w.lastPollNanos.Store(time.Now().UnixNano())
}

func (w *Watchdog) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if w.handle.State() != Active {
				return
			}
			last := time.Unix(0, w.lastPollNanos.Load())
			if gap := time.Since(last); gap > w.interval {
				qlog.Warn("cancellation watchdog: poll interval exceeded",
					"gap", gap, "interval", w.interval)
			}
		}
	}
}

// Stop releases the watchdog's background goroutine. Safe to call more
// than once.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.done)
}
