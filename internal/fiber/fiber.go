// Package fiber implements the per-thread cooperative fiber scheduler:
// priority-banded fibers that run one at a time per owning thread, the
// dealer/master/worker role loops built on top of it, and the sense-
// reversing barrier domains use to synchronize thread startup.
//
// Fibers are modeled as goroutines parked on a handoff channel rather than
// hand-rolled stackful coroutines. Only the fiber holding the scheduler's
// token is actually making progress at any moment, which preserves the
// "one fiber runs at a time per thread" ordering guarantee through a
// baton pass instead of relying on OS-level mutual exclusion.
package fiber

import (
	"code.hybscloud.com/atomix"

	"github.com/ademakov/MainMemory-sub000/internal/constants"
)

// State is a Fiber's position in its scheduler's bookkeeping.
type State int

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateIdle
	StateDead
)

// Func is the body of a fiber. It receives the Fiber itself so it can call
// Yield, TestCancel, and the cleanup stack operations on itself.
type Func func(f *Fiber)

// cancelSignal is panicked by TestCancel to unwind a canceled fiber through
// its cleanup stack; it is recovered only by the fiber's own run wrapper.
type cancelSignal struct{}

// Fiber is one cooperatively scheduled task on a Thread.
type Fiber struct {
	Priority int
	sched    *Scheduler
	fn       Func
	state    State
	canceled atomix.Bool
	cleanups []func()
	resume   chan struct{}

	link *Fiber // next pointer within whatever list currently holds this fiber
}

func newFiber(sched *Scheduler, priority int, fn Func) *Fiber {
	return &Fiber{
		Priority: priority,
		sched:    sched,
		fn:       fn,
		state:    StateReady,
		resume:   make(chan struct{}),
	}
}

// CleanupPush registers fn to run, most-recently-pushed first, if this
// fiber is canceled or exits normally.
func (f *Fiber) CleanupPush(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

// CleanupPop removes and optionally runs the most recently pushed cleanup.
func (f *Fiber) CleanupPop(run bool) {
	if len(f.cleanups) == 0 {
		return
	}
	fn := f.cleanups[len(f.cleanups)-1]
	f.cleanups = f.cleanups[:len(f.cleanups)-1]
	if run {
		fn()
	}
}

func (f *Fiber) runCleanups() {
	for len(f.cleanups) > 0 {
		f.CleanupPop(true)
	}
}

// Cancel requests that this fiber unwind at its next cancellation point
// (its next call to TestCancel or a blocking scheduler call).
func (f *Fiber) Cancel() {
	f.canceled.StoreRelease(true)
}

// TestCancel is a cancellation point: if Cancel has been called, it panics
// with an internal sentinel that the scheduler's run wrapper recovers,
// running this fiber's cleanup stack before it exits.
func (f *Fiber) TestCancel() {
	if f.canceled.LoadAcquire() {
		panic(cancelSignal{})
	}
}

// Yield gives up the scheduler token, re-enqueuing this fiber at its own
// priority band, and blocks until the scheduler hands the token back.
func (f *Fiber) Yield() {
	f.TestCancel()
	if f.sched.obs != nil {
		f.sched.obs.ObserveFiberYield()
	}
	f.sched.requeueReady(f)
	f.sched.handBack()
	<-f.resume
	f.TestCancel()
}

// Block parks this fiber outside any ready queue until Unblock is called
// on it by another fiber or the thread's event-driven wakeup path.
func (f *Fiber) Block() {
	f.TestCancel()
	f.sched.setState(f, StateBlocked)
	f.sched.handBack()
	<-f.resume
	f.sched.setState(f, StateRunning)
	f.TestCancel()
}

// Idle parks this fiber as idle (no work available), distinct from Block
// only in the metrics it contributes and in being the state a worker
// fiber sits in between batches.
func (f *Fiber) Idle() {
	f.TestCancel()
	f.sched.setState(f, StateIdle)
	if f.sched.obs != nil {
		f.sched.obs.ObserveFiberIdle()
	}
	f.sched.handBack()
	<-f.resume
	f.sched.setState(f, StateRunning)
	f.TestCancel()
}

// relaxHook adapts Fiber.Yield to ring.Relax so a thread's rings can yield
// this fiber instead of spinning once their bounded spin phase elapses.
func (f *Fiber) relaxHook() func() {
	return func() {
		f.Yield()
	}
}

// defaultPriority is used by call sites that don't care about banding.
const defaultPriority = constants.PriorityUser
