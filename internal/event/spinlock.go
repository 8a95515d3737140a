package event

import "sync"

// spinlock guards the dispatcher's global state (current poller, waiting-
// listener table, pending batches). None of atomix's usages anywhere in
// hayabusa-cloud-lfq perform a compare-and-swap on atomix.Bool, so a
// hand-rolled spin primitive built on it would be guessing at an unattested
// method.
// The critical sections here are a handful of pointer/map writes, short
// enough that sync.Mutex's runtime-assisted blocking is the right tool.
type spinlock struct {
	mu sync.Mutex
}

func (l *spinlock) Lock() {
	l.mu.Lock()
}

func (l *spinlock) Unlock() {
	l.mu.Unlock()
}
