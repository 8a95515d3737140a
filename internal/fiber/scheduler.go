package fiber

import (
	"sync"

	"github.com/ademakov/MainMemory-sub000/internal/constants"
	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
)

// fiberQueue is a simple FIFO of fibers, reused across a scheduler's
// priority bins to avoid individual heap-node wrappers.
type fiberQueue struct {
	items []*Fiber
}

func (q *fiberQueue) push(f *Fiber) {
	q.items = append(q.items, f)
}

func (q *fiberQueue) pop() *Fiber {
	if len(q.items) == 0 {
		return nil
	}
	f := q.items[0]
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return f
}

func (q *fiberQueue) empty() bool { return len(q.items) == 0 }

// Scheduler runs at most one fiber at a time for its owning thread,
// selecting the next fiber to run from constants.NumPriorities bands in
// strict priority order. It is driven from the thread's own goroutine via
// Run; fibers spawned on it run on their own goroutines but only make
// progress while holding the scheduler's token.
type Scheduler struct {
	obs interfaces.Observer

	mu      sync.Mutex // guards bins/current/live against cross-goroutine Unblock
	bins    [constants.NumPriorities]fiberQueue
	current *Fiber
	token   chan struct{} // signals the Run loop that control returned
	live    int           // fibers not yet dead
}

// NewScheduler creates an empty scheduler. obs may be nil.
func NewScheduler(obs interfaces.Observer) *Scheduler {
	return &Scheduler{obs: obs, token: make(chan struct{})}
}

// Spawn creates a fiber running fn at the given priority band and enqueues
// it as ready. The fiber's goroutine starts immediately but blocks until
// the scheduler hands it the token.
func (s *Scheduler) Spawn(priority int, fn Func) *Fiber {
	f := newFiber(s, priority, fn)
	s.mu.Lock()
	s.live++
	s.bins[priority].push(f)
	s.mu.Unlock()
	go f.loop()
	return f
}

func (f *Fiber) loop() {
	<-f.resume
	f.sched.setState(f, StateRunning)
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(cancelSignal); ok {
					f.runCleanups()
				} else {
					panic(r)
				}
			}
		}()
		f.fn(f)
		f.runCleanups()
	}()
	f.sched.setState(f, StateDead)
	f.sched.onDone(f)
}

// setState sets f's state under the scheduler's lock, since a fiber's
// state is read from Unblock/requeueReady calls that may run on a
// different goroutine than the fiber itself.
func (s *Scheduler) setState(f *Fiber, state State) {
	s.mu.Lock()
	f.state = state
	s.mu.Unlock()
}

func (s *Scheduler) requeueReady(f *Fiber) {
	s.mu.Lock()
	f.state = StateReady
	s.bins[f.Priority].push(f)
	s.mu.Unlock()
}

// Unblock moves a blocked or idle fiber back onto its ready bin. Safe to
// call concurrently from any goroutine, including from a different thread's
// fabric handler delivering a result to a fiber parked on this scheduler
// (internal/fiber.Thread.Respond does exactly this). A no-op if f is not
// currently parked (Blocked/Idle), so a redundant wake — e.g. two posts
// landing before the dealer gets a turn — never double-enqueues it.
func (s *Scheduler) Unblock(f *Fiber) {
	s.mu.Lock()
	if f.state != StateBlocked && f.state != StateIdle {
		s.mu.Unlock()
		return
	}
	f.state = StateReady
	s.bins[f.Priority].push(f)
	s.mu.Unlock()
}

// handBack signals the Run loop that the currently running fiber gave up
// its turn (by yielding, blocking, or finishing).
func (s *Scheduler) handBack() {
	s.token <- struct{}{}
}

func (s *Scheduler) onDone(f *Fiber) {
	s.mu.Lock()
	s.live--
	s.mu.Unlock()
	s.handBack()
}

// pickNext returns the next ready fiber in strict priority order, or nil
// if no bin has one.
func (s *Scheduler) pickNext() *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := 0; p < constants.NumPriorities; p++ {
		if !s.bins[p].empty() {
			return s.bins[p].pop()
		}
	}
	return nil
}

// Run drives the scheduler until no fiber is ready to run (every live
// fiber is blocked/idle waiting on something external) or until every
// spawned fiber has finished. It returns when there is nothing left it can
// schedule right now; callers (a thread's run loop) call Run again after
// an external wakeup (event dispatch, fabric receive) makes more fibers
// ready.
func (s *Scheduler) Run() {
	for {
		f := s.pickNext()
		if f == nil {
			return
		}
		s.current = f
		f.resume <- struct{}{}
		<-s.token
		s.current = nil
	}
}

// Idle reports whether the scheduler has no ready fiber (every remaining
// fiber, if any, is parked blocked or idle).
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := 0; p < constants.NumPriorities; p++ {
		if !s.bins[p].empty() {
			return false
		}
	}
	return true
}

// Live returns the count of fibers spawned on this scheduler that have not
// yet finished.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Current returns the fiber presently holding the token, or nil if none.
func (s *Scheduler) Current() *Fiber { return s.current }
