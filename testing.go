package mainmemory

import (
	"sync"
	"time"

	"github.com/ademakov/MainMemory-sub000/internal/fabric"
	"github.com/ademakov/MainMemory-sub000/internal/fiber"
)

// MockLogger records every call it receives instead of writing anywhere,
// so tests can assert on what a component logged. Safe for concurrent use.
type MockLogger struct {
	mu    sync.Mutex
	lines []string
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+msg)
	_ = args
}

func (l *MockLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args...) }
func (l *MockLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args...) }
func (l *MockLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args...) }
func (l *MockLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args...) }

func (l *MockLogger) Printf(format string, args ...any)  { l.record("INFO", format, args...) }
func (l *MockLogger) Debugf(format string, args ...any) { l.record("DEBUG", format, args...) }
func (l *MockLogger) Infof(format string, args ...any)  { l.record("INFO", format, args...) }
func (l *MockLogger) Warnf(format string, args ...any)  { l.record("WARN", format, args...) }
func (l *MockLogger) Errorf(format string, args ...any) { l.record("ERROR", format, args...) }

// Lines returns every message recorded so far, in call order.
func (l *MockLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Reset clears every recorded line.
func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}

// MockClock is a settable time source for tests that need deterministic
// time without sleeping in real time. Nothing in the runtime reads it:
// future.TimedWait and the ring's backoff use the real clock.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a MockClock fixed at start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

// Now returns the clock's current, caller-controlled time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// After returns a channel that fires once the clock has been advanced by
// at least d past the time After was called, polling at the given
// resolution rather than relying on a real timer.
func (c *MockClock) After(d time.Duration, resolution time.Duration) <-chan time.Time {
	deadline := c.Now().Add(d)
	ch := make(chan time.Time, 1)
	go func() {
		ticker := time.NewTicker(resolution)
		defer ticker.Stop()
		for range ticker.C {
			now := c.Now()
			if !now.Before(deadline) {
				ch <- now
				return
			}
		}
	}()
	return ch
}

// InlineThread is a table.Owner/fabric.Notifier implementation that runs
// every posted request and every fiber it spawns synchronously, to
// completion, before Notify returns. Unit tests use it in place of a real
// internal/fiber.Thread so table stride growth and eviction can be
// asserted on without driving a goroutine-backed scheduler loop.
type InlineThread struct {
	queue *fabric.Queue
	sched *fiber.Scheduler
}

// NewInlineThread creates an InlineThread with a request queue of the
// given capacity.
func NewInlineThread(ringCapacity int) *InlineThread {
	return &InlineThread{
		queue: fabric.NewQueue(ringCapacity),
		sched: fiber.NewScheduler(nil),
	}
}

// Queue implements table.Owner.
func (t *InlineThread) Queue() *fabric.Queue { return t.queue }

// Scheduler implements table.Owner.
func (t *InlineThread) Scheduler() *fiber.Scheduler { return t.sched }

// Notify implements table.Owner (and fabric.Notifier): it drains every
// request currently queued and runs the scheduler until nothing more is
// ready, so the work a post triggered has already finished by the time
// Notify returns.
func (t *InlineThread) Notify() {
	for {
		req, ok := fabric.TryReceive(t.queue)
		if !ok {
			break
		}
		fabric.Execute(req)
	}
	t.sched.Run()
}

// Respond implements fabric.Responder. InlineThread never issues a two-way
// send on its own behalf, so there is no waiter to wake.
func (t *InlineThread) Respond(callID uint64, result uintptr) {}

// Compile-time interface check: InlineThread has the method set
// table.Owner requires, spelled out structurally here rather than by
// naming table.Owner.
var _ interface {
	Queue() *fabric.Queue
	Notify()
	Scheduler() *fiber.Scheduler
} = (*InlineThread)(nil)
