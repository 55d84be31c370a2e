package qexec

import (
	"github.com/panjf2000/ants/v2"

	"tripleengine/pkg/qerrors"
)

// SerialQueue runs submitted callbacks one at a time, in submission order,
// on a single pooled goroutine. It exists for cache-invalidation and
// update-triggered callbacks that must never run concurrently with each
// other even though operator evaluation itself is parallel.
type SerialQueue struct {
	inner *ants.Pool
}

// NewSerialQueue creates a SerialQueue backed by a size-1 ants.Pool.
func NewSerialQueue() (*SerialQueue, error) {
	inner, err := ants.NewPool(1, ants.WithPanicHandler(func(v any) {}))
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.Internal, "NewSerialQueue", "qexec")
	}
	return &SerialQueue{inner: inner}, nil
}

// Run executes fn on the queue's single goroutine and blocks until it
// completes. A panic inside fn is recovered and returned as an Internal
// error.
func (q *SerialQueue) Run(fn func() error) error {
	done := make(chan error, 1)
	task := func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = qerrors.New(qerrors.Internal, "qexec: recovered panic in serial callback")
			}
			done <- err
		}()
		err = fn()
	}
	if err := q.inner.Submit(task); err != nil {
		return qerrors.Wrap(err, qerrors.Internal, "Submit", "qexec")
	}
	return <-done
}

// Release waits for the running task to finish and shuts the queue down.
func (q *SerialQueue) Release() {
	q.inner.Release()
}
