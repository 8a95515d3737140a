// Package future implements deferred, cancelable results (spec §4.8):
// a Future posts its start function to a thread via internal/fabric and
// lets any number of waiters block (or time out) until it resolves.
package future

import (
	"errors"
	"sync"
	"time"

	"code.hybscloud.com/atomix"

	"github.com/ademakov/MainMemory-sub000/internal/fabric"
)

// ErrNotReady is returned by Result when the future has not resolved yet.
var ErrNotReady = errors.New("future: not ready")

// ErrCanceled is returned by Result once the handler Start installs found
// a cancellation request before running the start function.
var ErrCanceled = errors.New("future: canceled")

// ErrTimeout is returned by TimedWait when the deadline elapses first.
var ErrTimeout = errors.New("future: wait timed out")

// StartFunc is the body a Future runs once started. It takes no arguments:
// any inputs are whatever the caller captured in the closure (kept generic
// on purpose, since this is a thin wrapper over a fabric request, not a
// generic RPC codec).
type StartFunc func() uintptr

// Future is a deferred, best-effort-cancelable result.
type Future struct {
	mu          sync.Mutex
	result      uintptr
	hasValue    bool
	wasCanceled bool
	canceled    atomix.Bool
	done        chan struct{}
}

// New creates an unstarted future.
func New() *Future {
	return &Future{done: make(chan struct{})}
}

// Start posts fn for execution on q (a thread's private queue or a
// domain's wide queue) via internal/fabric, storing the result once it
// completes. Start must be called at most once per Future.
func (fut *Future) Start(q *fabric.Queue, notify fabric.Notifier, fn StartFunc) {
	handler := func(args [6]uintptr) uintptr {
		if fut.canceled.LoadAcquire() {
			fut.finishCanceled()
			return 0
		}
		result := fn()
		fut.Finish(result)
		return result
	}
	fabric.PostK(q, notify, handler)
}

// Finish stores fut's result and wakes every waiter. Safe to call from any
// thread; it is normally called by the fabric handler Start installs.
func (fut *Future) Finish(result uintptr) {
	fut.mu.Lock()
	if fut.hasValue {
		fut.mu.Unlock()
		return
	}
	fut.result = result
	fut.hasValue = true
	fut.mu.Unlock()
	close(fut.done)
}

func (fut *Future) finishCanceled() {
	fut.mu.Lock()
	if fut.hasValue {
		fut.mu.Unlock()
		return
	}
	fut.hasValue = true
	fut.wasCanceled = true
	fut.mu.Unlock()
	close(fut.done)
}

// Cancel requests best-effort cancellation: the handler Start installs
// checks the flag once, before running the start function, so a task that
// has not started yet is skipped and resolves as canceled, while a task
// already running is not interrupted and runs to completion (spec §4.8/§9 —
// cancellation is a request, not a guarantee).
func (fut *Future) Cancel() {
	fut.canceled.StoreRelease(true)
}

// Canceled reports whether Cancel was called.
func (fut *Future) Canceled() bool {
	return fut.canceled.LoadAcquire()
}

// Result returns the stored result, ErrCanceled if the future resolved via
// cancellation, or ErrNotReady if Finish has not been called yet.
func (fut *Future) Result() (uintptr, error) {
	fut.mu.Lock()
	defer fut.mu.Unlock()
	if !fut.hasValue {
		return 0, ErrNotReady
	}
	if fut.wasCanceled {
		return 0, ErrCanceled
	}
	return fut.result, nil
}

// Wait blocks until the future resolves and returns its result and error
// (ErrCanceled if it resolved via cancellation).
func (fut *Future) Wait() (uintptr, error) {
	<-fut.done
	return fut.Result()
}

// TimedWait blocks until the future resolves or timeout elapses, whichever
// comes first.
func (fut *Future) TimedWait(timeout time.Duration) (uintptr, error) {
	select {
	case <-fut.done:
		return fut.Result()
	case <-time.After(timeout):
		return 0, ErrTimeout
	}
}
