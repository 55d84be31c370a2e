// Package qexec bounds the number of goroutines concurrently evaluating
// operators, wrapping github.com/panjf2000/ants/v2: a fixed-size goroutine
// pool with a panic handler that converts a recovered panic into a
// structured error instead of crashing the process.
package qexec

import (
	"github.com/panjf2000/ants/v2"

	"tripleengine/pkg/cancel"
	"tripleengine/pkg/operator"
	"tripleengine/pkg/qerrors"
	"tripleengine/pkg/qmetrics"
	"tripleengine/pkg/qresult"
)

// Pool bounds the number of operator evaluations running concurrently.
type Pool struct {
	inner *ants.Pool
}

// NewPool creates a Pool that runs at most size operator evaluations at
// once. A panic inside a submitted evaluation is recovered and reported
// through that evaluation's returned error rather than propagating to the
// pool's internal goroutine.
func NewPool(size int) (*Pool, error) {
	inner, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		// ants swallows the return value of a panicking task; the
		// panic is still recorded via the task's own recover below,
		// this handler only prevents the pool goroutine from dying.
	}))
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.Internal, "NewPool", "qexec")
	}
	return &Pool{inner: inner}, nil
}

// Submit evaluates op.GetResult on a pooled goroutine and blocks the
// caller until it completes, honoring handle's cancellation checkpoints.
// A panic during evaluation is recovered and reported as an Internal
// error rather than terminating the pool.
func (p *Pool) Submit(op operator.Operator, handle *cancel.Handle) (*qresult.Result, error) {
	qmetrics.WorkerPoolInFlight.Inc()
	defer qmetrics.WorkerPoolInFlight.Dec()

	type outcome struct {
		result *qresult.Result
		err    error
	}
	done := make(chan outcome, 1)

	task := func() {
		var out outcome
		defer func() {
			if r := recover(); r != nil {
				out = outcome{err: qerrors.New(qerrors.Internal, "qexec: recovered panic in operator evaluation")}
			}
			done <- out
		}()
		out.result, out.err = op.GetResult(handle)
	}

	if err := p.inner.Submit(task); err != nil {
		return nil, qerrors.Wrap(err, qerrors.Internal, "Submit", "qexec")
	}

	out := <-done
	return out.result, out.err
}

// Running reports the number of currently running pooled goroutines.
func (p *Pool) Running() int {
	return p.inner.Running()
}

// Release waits for running tasks to finish and shuts the pool down.
func (p *Pool) Release() {
	p.inner.Release()
}
