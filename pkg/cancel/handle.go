// Package cancel implements cooperative cancellation: a shared handle
// polled at operator checkpoints, a watchdog that logs slow polling, and a
// single-worker timer pool that arms deadlines.
package cancel

import (
	"sync/atomic"

	"tripleengine/pkg/qerrors"
)

// State is one of the three states a Handle can be in.
type State int32

const (
	// Active means the operation may proceed.
	Active State = iota
	// TimedOut means an armed deadline elapsed.
	TimedOut
	// Cancelled means the caller requested cancellation.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Active:
		return "Active"
	case TimedOut:
		return "TimedOut"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Handle is a shared cancellation flag. It is safe for concurrent use: one
// goroutine may Cancel or TimeOut it while others Check it at checkpoints.
type Handle struct {
	state    atomic.Int32
	pollSeq  atomic.Uint64
	watchdog *Watchdog
}

// NewHandle creates an Active Handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Cancel transitions the handle to Cancelled. A no-op if the handle has
// already left the Active state — TimedOut and Cancelled are terminal.
func (h *Handle) Cancel() {
	h.state.CompareAndSwap(int32(Active), int32(Cancelled))
}

// timeOut transitions the handle to TimedOut, invoked by an armed TimerPool
// deadline. A no-op if the handle has already left the Active state.
func (h *Handle) timeOut() {
	h.state.CompareAndSwap(int32(Active), int32(TimedOut))
}

// State returns the handle's current state without raising an error.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Check polls the handle, recording the poll for watchdog purposes and
// returning a *qerrors.Error if the handle is no longer Active. Operators
// must call Check at least once per child iteration and between
// algorithmic phases, per the Operator contract's cancellation-checkpoint
// requirement.
func (h *Handle) Check() error {
	h.pollSeq.Add(1)
	if h.watchdog != nil {
		h.watchdog.recordPoll()
	}

	switch h.State() {
	case Cancelled:
		return qerrors.New(qerrors.Cancelled, "operation cancelled")
	case TimedOut:
		return qerrors.New(qerrors.TimedOut, "operation deadline exceeded")
	default:
		return nil
	}
}

// attachWatchdog associates a Watchdog with this handle so Check reports
// polls to it. Called by NewWatchdog.
func (h *Handle) attachWatchdog(w *Watchdog) {
	h.watchdog = w
}
