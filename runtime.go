package mainmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ademakov/MainMemory-sub000/internal/arena"
	"github.com/ademakov/MainMemory-sub000/internal/config"
	"github.com/ademakov/MainMemory-sub000/internal/event"
	"github.com/ademakov/MainMemory-sub000/internal/fiber"
	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
	"github.com/ademakov/MainMemory-sub000/internal/table"
)

// driverPollInterval bounds how long a thread's driver goroutine sleeps
// between scheduler runs once its dealer fiber has gone idle and nothing
// has woken it yet. The dealer's own poll duty already blocks in a real OS
// wait (internal/fiber.RunDealer); this only covers the gap on threads not
// currently holding polling duty.
const driverPollInterval = 2 * time.Millisecond

// Runtime is the top-level handle for a running MainMemory process: one or
// more Domains, the process-wide hash table partitioned across their
// threads, and the global allocator arena, analogous to the
// teacher's Device/CreateAndServe/StopAndDelete wiring.
type Runtime struct {
	cfg    config.RuntimeConfig
	logger interfaces.Logger
	obs    interfaces.Observer

	global *arena.GlobalArena
	domains []*fiber.Domain
	table   *Table

	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

// Table is the process-wide partitioned hash table, re-exported at root so
// callers of NewRuntime don't need to import internal/table directly.
type Table = table.Table

// NewRuntime validates cfg, builds cfg.NumDomains domains of
// cfg.ThreadsPerDomain threads each, wires a Table partitioned across all
// of those threads, and starts every thread's dealer loop. logger/obs may
// be nil (NoOpObserver and a MockLogger, which keeps lines in memory, are
// used in their place).
func NewRuntime(cfg config.RuntimeConfig, logger interfaces.Logger, obs interfaces.Observer) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, WrapError("runtime.new", err)
	}
	if logger == nil {
		logger = NewMockLogger()
	}
	if obs == nil {
		obs = NoOpObserver{}
	}

	rt := &Runtime{
		cfg:     cfg,
		logger:  logger,
		obs:     obs,
		global:  arena.NewGlobalArena(),
		stopped: make(chan struct{}),
	}

	var owners []table.Owner
	for i := 0; i < cfg.NumDomains; i++ {
		poller, err := event.NewEpollPoller()
		if err != nil {
			rt.closeDomains()
			return nil, WrapError("runtime.new", err)
		}
		d := fiber.NewDomain(fiber.DomainConfig{
			Name:         fmt.Sprintf("domain-%d", i),
			NumThreads:   cfg.ThreadsPerDomain,
			WideCapacity: cfg.DomainRingCapacity,
			Poller:       poller,
			Logger:       logger,
			Observer:     obs,
		})
		rt.domains = append(rt.domains, d)
		for _, t := range d.Threads() {
			owners = append(owners, t)
		}
	}

	rt.table = table.New(table.Config{
		Partitions:  cfg.TablePartitions,
		CapacityMax: cfg.TableCapacityMax,
		Volume:      cfg.TableVolume,
		Owners:      owners,
		Logger:      logger,
		Observer:    obs,
	})

	for _, d := range rt.domains {
		d := d
		for _, t := range d.Threads() {
			t := t
			rt.wg.Add(1)
			go rt.driveThread(d, t)
		}
	}

	return rt, nil
}

// Table returns the process-wide hash table.
func (rt *Runtime) Table() *Table { return rt.table }

// Get looks up key in the runtime's table, returning a copy of its value.
func (rt *Runtime) Get(key []byte) ([]byte, bool) {
	e, ok := rt.table.Lookup(table.Hash(key), key)
	if !ok {
		return nil, false
	}
	value := append([]byte(nil), e.Value()...)
	e.Unref()
	return value, true
}

// Set stores key/value in the runtime's table, replacing any existing
// entry for key.
func (rt *Runtime) Set(key, value []byte) {
	rt.table.Insert(table.Hash(key), key, value)
}

// Delete removes key from the runtime's table, reporting whether it was
// present.
func (rt *Runtime) Delete(key []byte) bool {
	e, ok := rt.table.Remove(table.Hash(key), key)
	if ok {
		e.Unref()
	}
	return ok
}

// Domains returns the runtime's domains in creation order.
func (rt *Runtime) Domains() []*fiber.Domain { return rt.domains }

// driveThread is a thread's OS entry point: it synchronizes with its
// domain's siblings via the startup barrier (so no thread posts a
// cross-thread request before every sibling's state exists), spawns the
// dealer fiber, then repeatedly drives the scheduler until Shutdown closes
// rt.stopped.
func (rt *Runtime) driveThread(d *fiber.Domain, t *fiber.Thread) {
	defer rt.wg.Done()

	relax := func() {
		if f := t.Scheduler().Current(); f != nil {
			f.Yield()
		}
	}
	d.SyncStart(relax)

	stop := func() bool {
		select {
		case <-rt.stopped:
			return true
		default:
			return false
		}
	}
	fiber.RunDealer(t, stop)

	for !stop() {
		t.Scheduler().Run()
		if stop() {
			return
		}
		if t.Scheduler().Idle() {
			time.Sleep(driverPollInterval)
		}
	}
}

func (rt *Runtime) closeDomains() {
	for _, d := range rt.domains {
		_ = d.Close()
	}
}

// Shutdown signals every thread to stop, waits for them to drain (or ctx to
// expire, whichever comes first), and releases the table's and every
// domain's OS resources.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.stopOnce.Do(func() { close(rt.stopped) })

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	var first error
	if err := rt.table.Close(); err != nil && first == nil {
		first = WrapError("runtime.shutdown", err)
	}
	for _, d := range rt.domains {
		if err := d.Close(); err != nil && first == nil {
			first = WrapError("runtime.shutdown", err)
		}
	}
	return first
}
