package future

import (
	"reflect"
	"time"
)

// Waitset aggregates several futures so a caller can block on whichever one
// resolves first, or on all of them together, without polling each Future
// individually. A single Future's own Wait already broadcasts to any number
// of waiters via its done channel; Waitset exists for the cross-future case.
type Waitset struct {
	futures []*Future
}

// NewWaitset builds a waitset over the given futures.
func NewWaitset(futures ...*Future) *Waitset {
	return &Waitset{futures: futures}
}

// Add registers another future with the waitset.
func (w *Waitset) Add(fut *Future) {
	w.futures = append(w.futures, fut)
}

// WaitAny blocks until at least one member future resolves and returns it.
// Returns nil if the waitset is empty.
func (w *Waitset) WaitAny() *Future {
	if len(w.futures) == 0 {
		return nil
	}
	cases := make([]reflect.SelectCase, len(w.futures))
	for i, fut := range w.futures {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(fut.done)}
	}
	chosen, _, _ := reflect.Select(cases)
	return w.futures[chosen]
}

// TimedWaitAny is WaitAny bounded by timeout; ok is false if it elapsed
// first.
func (w *Waitset) TimedWaitAny(timeout time.Duration) (fut *Future, ok bool) {
	if len(w.futures) == 0 {
		return nil, false
	}
	cases := make([]reflect.SelectCase, len(w.futures)+1)
	for i, f := range w.futures {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(f.done)}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	cases[len(w.futures)] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timer.C)}

	chosen, _, _ := reflect.Select(cases)
	if chosen == len(w.futures) {
		return nil, false
	}
	return w.futures[chosen], true
}

// WaitAll blocks until every member future has resolved.
func (w *Waitset) WaitAll() {
	for _, fut := range w.futures {
		<-fut.done
	}
}

// TimedWaitAll blocks until every member future resolves or the deadline
// elapses, whichever comes first; ok is false if the deadline won.
func (w *Waitset) TimedWaitAll(timeout time.Duration) (ok bool) {
	deadline := time.Now().Add(timeout)
	for _, fut := range w.futures {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		select {
		case <-fut.done:
		case <-time.After(remaining):
			return false
		}
	}
	return true
}
