// Package ring implements the MPMC fixed-capacity ring used to carry posts
// and requests between threads and domains (spec §4.1, §4.3). It is a
// direct generalization of the hayabusa-cloud-lfq SCQ (Scalable Circular
// Queue, Nikolaev, DISC 2019) algorithm to an arbitrary record type T:
// Fetch-And-Add producer/consumer indices over 2n physical slots for
// capacity n, with a per-slot cycle counter for ABA safety.
package ring

import (
	"errors"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"

	"github.com/ademakov/MainMemory-sub000/internal/constants"
)

// ErrWouldBlock is returned by the non-blocking Put/Get variants when the
// ring is full or empty respectively.
var ErrWouldBlock = iox.ErrWouldBlock

// Relax is the hook a ring's blocking operations call once their bounded
// spin phase is exhausted. Threads running a fiber scheduler install this
// to fiber-yield instead of spinning indefinitely (spec §4.5, §9 "busy-wait
// cooperation"). A nil Relax falls back to iox.Backoff's own external-wait
// policy.
type Relax func()

// Ring is a fixed-capacity MPMC ring carrying records of type T.
type Ring[T any] struct {
	_         pad
	tail      atomix.Uint64 // producer index (FAA)
	_         pad
	head      atomix.Uint64 // consumer index (FAA)
	_         pad
	threshold atomix.Int64 // livelock prevention for GetN/RelaxedGetN
	_         pad
	draining  atomix.Bool
	_         pad
	buffer    []slot[T]
	capacity  uint64 // n, usable capacity
	size      uint64 // 2n, physical slots
	mask      uint64 // 2n - 1

	relax Relax
}

type slot[T any] struct {
	cycle atomix.Uint64
	data  T
	_     padShort
}

type pad [64]byte
type padShort [24]byte

func roundToPow2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// New creates a ring with the given capacity, rounded up to a power of two
// with a floor of constants.MinRingCapacity.
func New[T any](capacity int) *Ring[T] {
	if capacity < constants.MinRingCapacity {
		capacity = constants.MinRingCapacity
	}
	n := uint64(roundToPow2(capacity))
	size := n * 2

	r := &Ring[T]{
		buffer:   make([]slot[T], size),
		capacity: n,
		size:     size,
		mask:     size - 1,
	}
	r.threshold.StoreRelaxed(3*int64(n) - 1)
	for i := uint64(0); i < size; i++ {
		r.buffer[i].cycle.StoreRelaxed(i / n)
	}
	return r
}

// SetRelax installs the backoff hook used once a ring operation's bounded
// spin phase is exhausted.
func (r *Ring[T]) SetRelax(relax Relax) {
	r.relax = relax
}

// Capacity returns the usable (logical) capacity of the ring.
func (r *Ring[T]) Capacity() uint64 { return r.capacity }

// Drain puts the ring into drain mode: Dequeue/GetN skip the livelock
// threshold check so a shutting-down consumer can empty the ring without
// producer pressure.
func (r *Ring[T]) Drain() {
	r.draining.StoreRelease(true)
}

// PutN is the non-blocking producer operation. It returns ErrWouldBlock if
// the ring is full.
func (r *Ring[T]) PutN(item T) error {
	for {
		tail := r.tail.LoadAcquire()
		head := r.head.LoadAcquire()
		if tail >= head+r.capacity {
			return ErrWouldBlock
		}

		myTail := r.tail.AddAcqRel(1) - 1
		s := &r.buffer[myTail&r.mask]
		expectedCycle := myTail / r.capacity

		slotCycle := s.cycle.LoadAcquire()
		if slotCycle == expectedCycle {
			s.data = item
			s.cycle.StoreRelease(expectedCycle + 1)
			r.threshold.StoreRelaxed(3*int64(r.capacity) - 1)
			return nil
		}
		if int64(slotCycle) < int64(expectedCycle) {
			return ErrWouldBlock
		}
		// Another producer is mid-flight on this slot; the caller's own
		// claimed tail position was still valid, so retry the whole
		// operation rather than spin on this slot specifically.
	}
}

// catchup advances a lagging tail up to head once a consumer has proven, via
// a stale slot, that outstanding producers are no further ahead than head.
func (r *Ring[T]) catchup(tail, head uint64) {
	for tail < head {
		if r.tail.CompareAndSwapRelaxed(tail, head) {
			break
		}
		tail = r.tail.LoadRelaxed()
		head = r.head.LoadRelaxed()
	}
}

// GetN is the non-blocking consumer operation. It returns ErrWouldBlock if
// the ring is empty. A threshold counter bounds how many consecutive stale
// slots a consumer will repair before giving up, preventing a livelock when
// consumers outrun producers (restored from the source SCQ's Dequeue).
func (r *Ring[T]) GetN() (T, error) {
	var zero T
	if !r.draining.LoadAcquire() && r.threshold.LoadRelaxed() < 0 {
		return zero, ErrWouldBlock
	}
	for {
		head := r.head.LoadAcquire()
		tail := r.tail.LoadAcquire()
		if head >= tail {
			return zero, ErrWouldBlock
		}

		myHead := r.head.AddAcqRel(1) - 1
		s := &r.buffer[myHead&r.mask]
		expectedCycle := myHead/r.capacity + 1

		slotCycle := s.cycle.LoadAcquire()
		if slotCycle == expectedCycle {
			item := s.data
			var zeroT T
			s.data = zeroT
			s.cycle.StoreRelease((myHead + r.size) / r.capacity)
			r.threshold.StoreRelaxed(3*int64(r.capacity) - 1)
			return item, nil
		}
		if int64(slotCycle) < int64(expectedCycle) {
			s.cycle.CompareAndSwapAcqRel(slotCycle, (myHead+r.size)/r.capacity)

			curTail := r.tail.LoadAcquire()
			if curTail <= myHead+1 {
				r.catchup(curTail, myHead+1)
				r.threshold.AddAcqRel(-1)
				return zero, ErrWouldBlock
			}
			if r.threshold.AddAcqRel(-1) <= 0 && !r.draining.LoadAcquire() {
				return zero, ErrWouldBlock
			}
		}
	}
}

// RelaxedGetN is a single-consumer variant that assumes no concurrent
// consumer and skips re-validating the slot cycle after the index claim.
func (r *Ring[T]) RelaxedGetN() (T, error) {
	var zero T
	head := r.head.LoadRelaxed()
	tail := r.tail.LoadAcquire()
	if head >= tail {
		return zero, ErrWouldBlock
	}
	s := &r.buffer[head&r.mask]
	expectedCycle := head/r.capacity + 1
	if s.cycle.LoadAcquire() != expectedCycle {
		return zero, ErrWouldBlock
	}
	item := s.data
	var zeroT T
	s.data = zeroT
	s.cycle.StoreRelease((head + r.size) / r.capacity)
	r.head.StoreRelaxed(head + 1)
	r.threshold.StoreRelaxed(3*int64(r.capacity) - 1)
	return item, nil
}

// EnqueueN blocks with bounded exponential-then-yield backoff until the
// item is accepted. Once a spin.Wait's bounded spin budget is exhausted,
// it calls the installed Relax hook (falling into fiber-yield on a
// scheduler thread) and starts a new spin phase; only when no hook is
// installed does it fall back to iox.Backoff's longer external wait.
func (r *Ring[T]) EnqueueN(item T) {
	sw := spin.Wait{}
	backoff := iox.Backoff{}
	spins := 0
	for {
		err := r.PutN(item)
		if err == nil {
			return
		}
		if spins < constants.SpinIterations {
			sw.Once()
			spins++
			continue
		}
		if r.relax != nil {
			r.relax()
			sw.Reset()
			spins = 0
			continue
		}
		backoff.Wait()
	}
}

// DequeueN blocks with the same backoff policy as EnqueueN until an item is
// available.
func (r *Ring[T]) DequeueN() T {
	sw := spin.Wait{}
	backoff := iox.Backoff{}
	spins := 0
	for {
		item, err := r.GetN()
		if err == nil {
			return item
		}
		if !r.draining.LoadAcquire() {
			if spins < constants.SpinIterations {
				sw.Once()
				spins++
				continue
			}
			if r.relax != nil {
				r.relax()
				sw.Reset()
				spins = 0
				continue
			}
		}
		backoff.Wait()
	}
}

// ErrClosed is returned by wrappers that layer shutdown semantics on top of
// a Ring; the ring itself has no closed state beyond Drain.
var ErrClosed = errors.New("ring: closed")
