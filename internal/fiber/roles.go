package fiber

import (
	"github.com/ademakov/MainMemory-sub000/internal/constants"
	"github.com/ademakov/MainMemory-sub000/internal/fabric"
)

// WorkFunc is one unit of work a master hands to a worker fiber.
type WorkFunc func()

// RunDealer spawns the thread's dealer fiber: the one fiber in
// PriorityDealer band that checks the thread into the domain's event
// dispatcher, halts in the OS poller when it holds polling duty, and
// drains the thread's private and domain-wide request queues whenever
// woken. It runs until stop reports true.
//
// The dealer's band outranks the master and worker bands, so it must not keep
// re-queuing itself forever the way RunMaster's master fiber must not: it
// parks with Idle once a cycle finds nothing to do, and Thread.Notify (the
// fabric.Notifier a post on this thread's queue calls) wakes it back up via
// Scheduler.Unblock, which is safe to call cross-goroutine. When this
// thread holds polling duty, Poll's bounded timeout substitutes for a true
// park: the thread is meant to be blocked in the OS call at that point.
func RunDealer(t *Thread, stop func() bool) {
	dealer := t.sched.Spawn(constants.PriorityDealer, func(f *Fiber) {
		for !stop() {
			f.TestCancel()

			elected := t.domain.dispatch.CheckIn(t.listen)
			didWork := false
			if elected {
				// The blocking poll call itself is this cycle's throttle: a
				// real OS wait, not a spin, so holding priority across it is
				// fine even on a single-thread domain where this fiber is
				// re-elected every cycle.
				events, err := t.domain.dispatch.Poll(pollTimeoutMillis)
				if err == nil && len(events) > 0 {
					didWork = true // delivery to registered fds is the out-of-scope acceptor's job
				}
			}

			t.DrainQueue()
			drainWide(t)

			// Idle whenever this cycle did nothing, so master/worker fibers
			// sharing this thread's scheduler get the token; Thread.Notify
			// wakes the dealer back up via Unblock when new work lands.
			if didWork {
				f.Yield()
			} else {
				f.Idle()
			}
		}
	})
	t.dealer = dealer
}

const pollTimeoutMillis = 1000

func drainWide(t *Thread) {
	for {
		req, ok := fabric.TryReceive(t.domain.wide)
		if !ok {
			return
		}
		fabric.Execute(req)
	}
}

// RunMaster spawns a master fiber that watches a work-source function for
// queued work and spawns worker fibers (up to maxWorkers) to drain it,
// matching the spec's dealer/master/worker split where the master's job is
// purely to keep the worker pool sized to demand. Since the master's band
// outranks the worker band, the master must not keep re-queuing itself
// while saturated or idle: strict priority order would then pick it over
// any worker on every cycle and workers would never run. Instead it parks
// with Idle once it can't usefully spawn more, and each worker that
// finishes explicitly unblocks it, so the master only competes for the
// token again when there is a reason to.
func RunMaster(t *Thread, maxWorkers int, hasWork func() bool, nextWork func() (WorkFunc, bool), stop func() bool) *Fiber {
	if maxWorkers <= 0 {
		maxWorkers = constants.DefaultMaxWorkers
	}
	active := 0
	var master *Fiber
	master = t.sched.Spawn(constants.PriorityMaster, func(f *Fiber) {
		for !stop() {
			f.TestCancel()
			for active < maxWorkers && hasWork() {
				active++
				t.sched.Spawn(constants.PriorityWorker, func(wf *Fiber) {
					defer func() {
						active--
						t.sched.Unblock(master)
					}()
					runWorker(wf, nextWork, stop)
				})
			}
			if active >= maxWorkers || !hasWork() {
				f.Idle()
			} else {
				f.Yield()
			}
		}
	})
	return master
}

// runWorker is a worker fiber's body: drain available work until none
// remains, then return, which ends the worker fiber. Idle workers are not
// kept for reuse; the master's deferred Unblock lets it spawn fresh workers
// when more work arrives.
func runWorker(f *Fiber, nextWork func() (WorkFunc, bool), stop func() bool) {
	for !stop() {
		f.TestCancel()
		work, ok := nextWork()
		if !ok {
			return
		}
		work()
		f.Yield()
	}
}
