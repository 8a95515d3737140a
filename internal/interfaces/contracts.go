// Package interfaces defines the contracts the core exposes to its
// out-of-scope collaborators (protocol parser, network acceptor/poller, CLI)
// without those collaborators importing the internal packages directly.
package interfaces

// Logger is the logging contract every core component depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Printf(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Observer receives metrics events emitted by the ring, scheduler, table,
// and event dispatcher. Implementations must be safe to call from any
// thread.
type Observer interface {
	ObserveRingEnqueue(wouldBlock bool)
	ObserveRingDequeue(wouldBlock bool)
	ObserveTableLookup(hit bool)
	ObserveTableEviction(count int, bytesFreed uint64)
	ObserveFiberYield()
	ObserveFiberIdle()
	ObserveListenerWake()
}

// Poller is the contract an out-of-scope network acceptor implements so the
// event dispatcher (internal/event) can drive it: register interest in an
// fd, and receive readiness notifications through the dispatcher's own wake
// mechanism rather than blocking independently.
type Poller interface {
	// RegisterFD asks the poller to watch fd for the given interest mask
	// (read/write), using the poller's own encoding.
	RegisterFD(fd int, mask uint32) error

	// DeregisterFD stops watching fd.
	DeregisterFD(fd int) error
}

// CursorReader is the contract the out-of-scope protocol parser consumes
// from internal/netbuf's read iterator: a sequence of readable slices it
// can advance over without copying.
type CursorReader interface {
	// Next returns the next readable slice, or (nil, false) when the
	// buffer is exhausted up to its current write position.
	Next() ([]byte, bool)
}
