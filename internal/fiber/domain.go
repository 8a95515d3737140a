package fiber

import (
	"github.com/ademakov/MainMemory-sub000/internal/arena"
	"github.com/ademakov/MainMemory-sub000/internal/constants"
	"github.com/ademakov/MainMemory-sub000/internal/event"
	"github.com/ademakov/MainMemory-sub000/internal/fabric"
	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
)

// Domain is a group of threads (typically one per CPU core) sharing a
// domain-wide request queue and an event dispatcher. Threads within a
// domain synchronize at startup via a sense-reversing Barrier before any of
// them begins posting cross-thread requests, so no thread can observe a
// partially constructed sibling.
type Domain struct {
	Name     string
	threads  []*Thread
	wide     *fabric.Queue
	dispatch *event.Dispatch
	barrier  *Barrier
	logger   interfaces.Logger
	obs      interfaces.Observer
}

// DomainConfig configures a new Domain.
type DomainConfig struct {
	Name          string
	NumThreads    int
	WideCapacity  int
	Poller        event.Poller
	Logger        interfaces.Logger
	Observer      interfaces.Observer
}

// NewDomain creates a domain with numThreads threads, each with its own
// PrivateArena, none yet started. Whoever drives the threads (Runtime's
// per-thread driver loop) starts them.
func NewDomain(cfg DomainConfig) *Domain {
	if cfg.WideCapacity <= 0 {
		cfg.WideCapacity = constants.DefaultDomainRingCapacity
	}
	d := &Domain{
		Name:     cfg.Name,
		wide:     fabric.NewQueue(cfg.WideCapacity),
		dispatch: event.NewDispatch(cfg.Poller, cfg.Observer),
		barrier:  NewBarrier(cfg.NumThreads),
		logger:   cfg.Logger,
		obs:      cfg.Observer,
	}
	for i := 0; i < cfg.NumThreads; i++ {
		t := NewThread(d, ThreadConfig{
			Index:        i,
			RingCapacity: constants.DefaultThreadRingCapacity,
			Logger:       cfg.Logger,
			Observer:     cfg.Observer,
			PrivateArena: arena.NewPrivateArena(),
		})
		d.threads = append(d.threads, t)
	}
	return d
}

// Threads returns the domain's threads in index order.
func (d *Domain) Threads() []*Thread { return d.threads }

// Thread returns the thread at index, or nil if out of range.
func (d *Domain) Thread(index int) *Thread {
	if index < 0 || index >= len(d.threads) {
		return nil
	}
	return d.threads[index]
}

// WideQueue returns the domain-wide fabric request queue used for posts
// that are not targeted at a specific thread (e.g. table stride growth
// dispatched to whichever thread picks it up).
func (d *Domain) WideQueue() *fabric.Queue { return d.wide }

// Dispatch returns the domain's event dispatcher.
func (d *Domain) Dispatch() *event.Dispatch { return d.dispatch }

// SyncStart blocks the calling goroutine until every thread in the domain
// has reached this call, matching the spec's requirement that no thread
// begin issuing cross-thread requests before all of its siblings' state is
// constructed. relax is invoked on each spin iteration (typically the
// calling thread's current fiber's Yield).
func (d *Domain) SyncStart(relax func()) {
	d.barrier.Wait(relax)
}

// Close releases the domain's event dispatcher resources.
func (d *Domain) Close() error {
	return d.dispatch.Close()
}
