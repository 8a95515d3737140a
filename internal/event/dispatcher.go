package event

import "github.com/ademakov/MainMemory-sub000/internal/interfaces"

// Poller is the OS-specific polling backend a Dispatch drives. Linux builds
// supply an epoll-backed implementation (poller_linux.go); other platforms
// fall back to a no-op stub so the rest of the runtime still compiles and
// runs its fabric-only paths.
type Poller interface {
	// Poll blocks up to timeoutMillis (-1 for indefinite) waiting for
	// readiness, appending discovered events to events and returning the
	// extended slice.
	Poll(events []Event, timeoutMillis int) ([]Event, error)

	// ApplyChanges applies queued registration changes before the next
	// Poll call.
	ApplyChanges(changes []Change) error

	// Wake interrupts a Poll call in progress, used to hand off polling
	// duty or to deliver a fabric notification to the elected listener.
	Wake() error

	// Close releases the poller's OS resources.
	Close() error
}

// Dispatch coordinates every thread's Listener in a domain: it elects one
// listener to block in the OS poller on behalf of the rest, and routes the
// poller's discovered events (plus fabric-driven notifications) to the
// listener that should handle them. The spinlock below guards only the
// small bookkeeping fields (election, waiting set, pending changes); the
// poller's own blocking call runs outside the lock.
type Dispatch struct {
	lock spinlock

	poller Poller
	obs    interfaces.Observer

	pollingListener *Listener
	waiting         map[int]*Listener

	pendingChanges []Change
}

// NewDispatch creates a dispatcher driving the given poller backend. obs
// may be nil, in which case metrics observation is skipped.
func NewDispatch(poller Poller, obs interfaces.Observer) *Dispatch {
	return &Dispatch{
		poller:  poller,
		obs:     obs,
		waiting: make(map[int]*Listener),
	}
}

// Registrar returns an interfaces.Poller bound to threadIndex, for handing
// to an out-of-scope acceptor so it can register fds without importing this
// package.
func (d *Dispatch) Registrar(threadIndex int) interfaces.Poller {
	return &registrar{d: d, threadIndex: threadIndex}
}

func (d *Dispatch) queueChange(threadIndex int, ch Change) {
	d.lock.Lock()
	d.pendingChanges = append(d.pendingChanges, ch)
	d.lock.Unlock()
}

// CheckIn registers l as waiting for the next notification cycle. If no
// listener currently holds polling duty, l is elected to it and CheckIn
// returns true; CheckIn also returns true when l already holds the duty
// (handed to it by an earlier Poll's rotation). The caller must then call
// Poll itself instead of parking on l.Wait.
func (d *Dispatch) CheckIn(l *Listener) (elected bool) {
	l.checkIn()

	d.lock.Lock()
	defer d.lock.Unlock()

	d.waiting[l.threadIndex] = l
	if d.pollingListener == nil || d.pollingListener == l {
		d.pollingListener = l
		l.state = StatePolling
		return true
	}
	return false
}

// CheckOut removes l from the waiting set, used when a listener is torn
// down (thread shutdown) rather than cycling through another wait.
func (d *Dispatch) CheckOut(l *Listener) {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.waiting, l.threadIndex)
	if d.pollingListener == l {
		d.pollingListener = nil
	}
}

// Notify wakes the listener owning threadIndex if it is currently parked,
// applying the at-most-one-wake-per-cycle rule via Listener.tryNotify. If
// threadIndex is the elected poller, Notify additionally interrupts its
// blocking Poll call so it observes the new work promptly.
func (d *Dispatch) Notify(threadIndex int) {
	d.lock.Lock()
	l, ok := d.waiting[threadIndex]
	isPoller := ok && d.pollingListener == l
	d.lock.Unlock()
	if !ok {
		return
	}
	if l.tryNotify() {
		if d.obs != nil {
			d.obs.ObserveListenerWake()
		}
		l.wakeUp()
	}
	if isPoller {
		_ = d.poller.Wake()
	}
}

// Poll is run by the elected polling listener's thread. It blocks in the OS
// poller, applies queued registration changes first, and on return
// dispatches discovered events to their owning listeners (keyed by fd
// ownership recorded at RegisterFD time is the out-of-scope acceptor's
// responsibility; this dispatcher hands every discovered event to the
// caller, which routes by its own fd table). It then hands polling duty
// to another waiting listener, if any; that listener is not woken here and
// takes up the duty at its own next CheckIn.
func (d *Dispatch) Poll(timeoutMillis int) ([]Event, error) {
	d.lock.Lock()
	changes := d.pendingChanges
	d.pendingChanges = nil
	d.lock.Unlock()

	if len(changes) > 0 {
		if err := d.poller.ApplyChanges(changes); err != nil {
			return nil, err
		}
	}

	events, err := d.poller.Poll(nil, timeoutMillis)
	if err != nil {
		return nil, err
	}

	d.rotatePoller()
	return events, nil
}

// rotatePoller hands polling duty to another waiting listener so the
// current poller is free to process its batch instead of being stuck back
// in the OS call immediately.
func (d *Dispatch) rotatePoller() {
	d.lock.Lock()
	defer d.lock.Unlock()

	current := d.pollingListener
	d.pollingListener = nil
	for _, l := range d.waiting {
		if l == current {
			continue
		}
		d.pollingListener = l
		l.state = StatePolling
		return
	}
	// No other listener is waiting; the same thread keeps polling duty
	// on its next CheckIn.
}

// Close releases the dispatcher's poller resources.
func (d *Dispatch) Close() error {
	return d.poller.Close()
}
