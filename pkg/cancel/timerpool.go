package cancel

import (
	"container/heap"
	"sync"
	"time"
)

// TimerPool is the single-worker timer pool that arms deadlines flipping
// Handles to TimedOut. A single background goroutine services a min-heap
// of armed deadlines, mirroring the corpus's preference for one dedicated
// goroutine over a per-deadline time.AfterFunc when many deadlines are
// live at once.
type TimerPool struct {
	mu      sync.Mutex
	heap    deadlineHeap
	wake    chan struct{}
	closing chan struct{}
	closed  bool
}

type deadline struct {
	at     time.Time
	handle *Handle
	armed  bool // false once disarmed or fired
	index  int
}

type deadlineHeap []*deadline

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *deadlineHeap) Push(x interface{}) { d := x.(*deadline); d.index = len(*h); *h = append(*h, d) }
func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// NewTimerPool creates a TimerPool and starts its background worker.
func NewTimerPool() *TimerPool {
	p := &TimerPool{
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
	}
	go p.run()
	return p
}

// Cleanup disarms the timer associated with a call to Arm when the guarded
// operation completes normally, so the deadline never fires late against a
// handle nobody cares about anymore.
type Cleanup func()

// Arm schedules handle to transition to TimedOut at "at". It returns a
// Cleanup that disarms the timer; callers must invoke it once the guarded
// operation finishes, per SetupCancellationHandle's contract.
func (p *TimerPool) Arm(handle *Handle, at time.Time) Cleanup {
	d := &deadline{at: at, handle: handle, armed: true}

	p.mu.Lock()
	heap.Push(&p.heap, d)
	p.mu.Unlock()
	p.nudge()

	return func() {
		p.mu.Lock()
		if d.armed && d.index >= 0 {
			d.armed = false
			heap.Remove(&p.heap, d.index)
		}
		p.mu.Unlock()
	}
}

func (p *TimerPool) nudge() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *TimerPool) run() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		p.mu.Lock()
		var next time.Time
		hasNext := p.heap.Len() > 0
		if hasNext {
			next = p.heap[0].at
		}
		p.mu.Unlock()

		var wait time.Duration
		if hasNext {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		} else {
			wait = time.Hour
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-p.closing:
			return
		case <-p.wake:
			continue
		case <-timer.C:
			p.fireDue()
		}
	}
}

func (p *TimerPool) fireDue() {
	now := time.Now()
	var fired []*Handle

	p.mu.Lock()
	for p.heap.Len() > 0 && !p.heap[0].at.After(now) {
		d := heap.Pop(&p.heap).(*deadline)
		if d.armed {
			d.armed = false
			fired = append(fired, d.handle)
		}
	}
	p.mu.Unlock()

	for _, h := range fired {
		h.timeOut()
	}
}

// Close stops the background worker. Armed-but-unfired deadlines are
// discarded without firing.
func (p *TimerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.closing)
}
