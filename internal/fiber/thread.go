package fiber

import (
	"sync"

	"github.com/ademakov/MainMemory-sub000/internal/arena"
	"github.com/ademakov/MainMemory-sub000/internal/event"
	"github.com/ademakov/MainMemory-sub000/internal/fabric"
	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
)

// Thread is one cooperative scheduling context: a single OS goroutine
// driving a Scheduler, with its own private request ring, a listener
// registration with its domain's event dispatcher, and a private arena.
// It implements fabric.Responder (to deliver two-way call results back to
// fibers waiting on this thread) and fabric.Notifier (so posting to this
// thread's queue wakes it through the event dispatcher).
type Thread struct {
	Index  int
	Name   string
	domain *Domain
	sched  *Scheduler
	queue  *fabric.Queue
	listen *event.Listener
	arena  arena.Arena
	logger interfaces.Logger
	obs    interfaces.Observer
	dealer *Fiber // set by RunDealer once spawned; nil until then

	mu      sync.Mutex
	waiters map[uint64]*Fiber
	results map[uint64]uintptr
}

// ThreadConfig configures a new Thread.
type ThreadConfig struct {
	Index         int
	Name          string
	RingCapacity  int
	Logger        interfaces.Logger
	Observer      interfaces.Observer
	PrivateArena  arena.Arena
}

// NewThread creates a thread bound to domain, with its own scheduler,
// request queue, and listener. The thread does not start running until its
// Run loop is driven (typically from roles.go's Dealer/Master/Worker).
func NewThread(d *Domain, cfg ThreadConfig) *Thread {
	t := &Thread{
		Index:   cfg.Index,
		Name:    cfg.Name,
		domain:  d,
		sched:   NewScheduler(cfg.Observer),
		queue:   fabric.NewQueue(cfg.RingCapacity),
		listen:  event.NewListener(cfg.Index),
		arena:   cfg.PrivateArena,
		logger:  cfg.Logger,
		obs:     cfg.Observer,
		waiters: make(map[uint64]*Fiber),
		results: make(map[uint64]uintptr),
	}
	t.queue.SetRelax(func() {
		if f := t.sched.Current(); f != nil {
			f.Yield()
		}
	})
	return t
}

// Scheduler returns this thread's fiber scheduler.
func (t *Thread) Scheduler() *Scheduler { return t.sched }

// Queue returns this thread's private fabric request queue.
func (t *Thread) Queue() *fabric.Queue { return t.queue }

// Arena returns this thread's private allocator.
func (t *Thread) Arena() arena.Arena { return t.arena }

// Notify implements fabric.Notifier: posting to this thread's queue wakes
// its listener through the domain's event dispatcher and, if this thread's
// dealer fiber has gone idle, unblocks it so the next Scheduler.Run call
// picks it back up.
func (t *Thread) Notify() {
	if t.domain != nil && t.domain.dispatch != nil {
		t.domain.dispatch.Notify(t.Index)
	}
	if t.dealer != nil {
		t.sched.Unblock(t.dealer)
	}
}

// Respond implements fabric.Responder: a two-way call's result is recorded
// and the waiting fiber, if any, is unblocked. Safe to call from any
// thread: the result map is guarded by t.mu, and the waiter is made
// runnable through Scheduler.Unblock, which is itself safe to call from
// another goroutine.
func (t *Thread) Respond(callID uint64, result uintptr) {
	t.mu.Lock()
	t.results[callID] = result
	f, ok := t.waiters[callID]
	if ok {
		delete(t.waiters, callID)
	}
	t.mu.Unlock()
	if ok {
		t.sched.Unblock(f)
	}
	t.Notify()
}

// AwaitResult blocks the calling fiber until callID's result has been
// delivered via Respond, returning it.
func (t *Thread) AwaitResult(f *Fiber, callID uint64) uintptr {
	for {
		t.mu.Lock()
		result, ok := t.results[callID]
		if ok {
			delete(t.results, callID)
			t.mu.Unlock()
			return result
		}
		t.waiters[callID] = f
		t.mu.Unlock()
		f.Block()
	}
}

// DrainQueue pulls every request currently queued on this thread's private
// ring and executes it inline, without blocking if the queue is empty.
func (t *Thread) DrainQueue() {
	for {
		req, ok := fabric.TryReceive(t.queue)
		if !ok {
			return
		}
		fabric.Execute(req)
	}
}
