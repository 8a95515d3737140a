package mainmemory

import (
	"sync/atomic"

	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
)

// Metrics tracks runtime-wide operational counters: ring backpressure,
// table hit/miss/eviction activity, and fiber scheduling behavior.
type Metrics struct {
	RingEnqueues       atomic.Uint64
	RingEnqueueBlocked atomic.Uint64
	RingDequeues       atomic.Uint64
	RingDequeueBlocked atomic.Uint64

	TableHits       atomic.Uint64
	TableMisses     atomic.Uint64
	TableEvictions  atomic.Uint64
	TableBytesFreed atomic.Uint64

	FiberYields atomic.Uint64
	FiberIdles  atomic.Uint64

	ListenerWakes atomic.Uint64
}

// NewMetrics creates a new, zeroed Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveRingEnqueue implements interfaces.Observer.
func (m *Metrics) ObserveRingEnqueue(wouldBlock bool) {
	m.RingEnqueues.Add(1)
	if wouldBlock {
		m.RingEnqueueBlocked.Add(1)
	}
}

// ObserveRingDequeue implements interfaces.Observer.
func (m *Metrics) ObserveRingDequeue(wouldBlock bool) {
	m.RingDequeues.Add(1)
	if wouldBlock {
		m.RingDequeueBlocked.Add(1)
	}
}

// ObserveTableLookup implements interfaces.Observer.
func (m *Metrics) ObserveTableLookup(hit bool) {
	if hit {
		m.TableHits.Add(1)
	} else {
		m.TableMisses.Add(1)
	}
}

// ObserveTableEviction implements interfaces.Observer.
func (m *Metrics) ObserveTableEviction(count int, bytesFreed uint64) {
	m.TableEvictions.Add(uint64(count))
	m.TableBytesFreed.Add(bytesFreed)
}

// ObserveFiberYield implements interfaces.Observer.
func (m *Metrics) ObserveFiberYield() {
	m.FiberYields.Add(1)
}

// ObserveFiberIdle implements interfaces.Observer.
func (m *Metrics) ObserveFiberIdle() {
	m.FiberIdles.Add(1)
}

// ObserveListenerWake implements interfaces.Observer.
func (m *Metrics) ObserveListenerWake() {
	m.ListenerWakes.Add(1)
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read without
// further synchronization.
type MetricsSnapshot struct {
	RingEnqueues       uint64
	RingEnqueueBlocked uint64
	RingDequeues       uint64
	RingDequeueBlocked uint64

	TableHits       uint64
	TableMisses     uint64
	TableEvictions  uint64
	TableBytesFreed uint64

	FiberYields uint64
	FiberIdles  uint64

	ListenerWakes uint64

	TableHitRate float64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		RingEnqueues:       m.RingEnqueues.Load(),
		RingEnqueueBlocked: m.RingEnqueueBlocked.Load(),
		RingDequeues:       m.RingDequeues.Load(),
		RingDequeueBlocked: m.RingDequeueBlocked.Load(),
		TableHits:          m.TableHits.Load(),
		TableMisses:        m.TableMisses.Load(),
		TableEvictions:     m.TableEvictions.Load(),
		TableBytesFreed:    m.TableBytesFreed.Load(),
		FiberYields:        m.FiberYields.Load(),
		FiberIdles:         m.FiberIdles.Load(),
		ListenerWakes:      m.ListenerWakes.Load(),
	}
	if total := snap.TableHits + snap.TableMisses; total > 0 {
		snap.TableHitRate = float64(snap.TableHits) / float64(total)
	}
	return snap
}

// Reset zeroes every counter. Useful in tests that assert on deltas.
func (m *Metrics) Reset() {
	m.RingEnqueues.Store(0)
	m.RingEnqueueBlocked.Store(0)
	m.RingDequeues.Store(0)
	m.RingDequeueBlocked.Store(0)
	m.TableHits.Store(0)
	m.TableMisses.Store(0)
	m.TableEvictions.Store(0)
	m.TableBytesFreed.Store(0)
	m.FiberYields.Store(0)
	m.FiberIdles.Store(0)
	m.ListenerWakes.Store(0)
}

// NoOpObserver discards every observation. Useful as a zero-overhead default
// when a caller does not wire a Metrics instance.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRingEnqueue(bool)          {}
func (NoOpObserver) ObserveRingDequeue(bool)          {}
func (NoOpObserver) ObserveTableLookup(bool)          {}
func (NoOpObserver) ObserveTableEviction(int, uint64) {}
func (NoOpObserver) ObserveFiberYield()                {}
func (NoOpObserver) ObserveFiberIdle()                 {}
func (NoOpObserver) ObserveListenerWake()              {}

// Compile-time interface checks.
var (
	_ interfaces.Observer = (*Metrics)(nil)
	_ interfaces.Observer = NoOpObserver{}
)
