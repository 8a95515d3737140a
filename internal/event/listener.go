// Package event implements the cross-thread event dispatcher and listener
// protocol: a single elected listener thread polls the OS for readiness and
// fabric activity on behalf of every other thread in a domain, waking at
// most one listener per notification cycle.
package event

import (
	"code.hybscloud.com/atomix"

	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
)

// State is a Listener's current role in the election/wait protocol.
type State int

const (
	// StateIdle means the listener is not currently registered with the
	// dispatcher and has nothing pending.
	StateIdle State = iota
	// StateWaiting means the listener has checked in and is parked,
	// waiting to be woken by a notify or by the polling listener.
	StateWaiting
	// StatePolling means this listener is the one elected to block in the
	// OS poller on behalf of the whole set.
	StatePolling
	// StateRunning means the listener has been woken and is processing
	// its private batch of events.
	StateRunning
)

// Listener is one thread's registration with a Dispatch. ListenStamp and
// NotifyStamp implement the wake-at-most-once race: a notifier reads both,
// and if they differ attempts to CAS NotifyStamp from its observed value up
// to the observed ListenStamp; only the CAS winner is responsible for waking
// the listener. Once the winner has done so NotifyStamp equals ListenStamp,
// so a second notifier racing the same cycle either sees the stamps equal
// or fails the CAS and does no work, which is what bounds wakes to one per
// listen/notify cycle.
type Listener struct {
	threadIndex int
	ListenStamp atomix.Uint64
	NotifyStamp atomix.Uint64
	state       State

	wake chan struct{}

	pendingEvents  []Event
	pendingChanges []Change
}

// Event is a single readiness notification delivered to a listener's
// private batch after a poll cycle.
type Event struct {
	FD   int
	Mask uint32
}

// Change is a pending registration change (add/modify/remove interest)
// queued by RegisterFD/DeregisterFD until the next poll cycle applies it.
type Change struct {
	FD     int
	Mask   uint32
	Remove bool
}

// NewListener creates a listener for the given thread index, initially
// idle.
func NewListener(threadIndex int) *Listener {
	return &Listener{
		threadIndex: threadIndex,
		state:       StateIdle,
		wake:        make(chan struct{}, 1),
	}
}

// ThreadIndex returns the owning thread's index within its domain.
func (l *Listener) ThreadIndex() int { return l.threadIndex }

// State reports the listener's current role.
func (l *Listener) State() State { return l.state }

// checkIn bumps ListenStamp to mark the start of a new wait cycle and moves
// the listener to StateWaiting. Returns the stamp value notifiers must
// match to win the wake race for this cycle.
func (l *Listener) checkIn() uint64 {
	stamp := l.ListenStamp.AddAcqRel(1)
	l.NotifyStamp.StoreRelease(stamp - 1)
	l.state = StateWaiting
	return stamp
}

// tryNotify attempts to win the wake race for this listener's current
// cycle. It returns true if this call is the one responsible for waking
// the listener (i.e. it won the CAS), matching the "only the CAS winner
// wakes" rule.
func (l *Listener) tryNotify() bool {
	listenStamp := l.ListenStamp.LoadAcquire()
	notifyStamp := l.NotifyStamp.LoadAcquire()
	if notifyStamp == listenStamp {
		return false
	}
	return l.NotifyStamp.CompareAndSwapAcqRel(notifyStamp, listenStamp)
}

// wakeUp delivers the wake signal to the parked listener goroutine. Safe to
// call even if the listener is not currently waiting; the buffered channel
// absorbs a spurious wake.
func (l *Listener) wakeUp() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wait parks the calling goroutine until woken by a notify or by the
// dispatcher's polling listener delivering a batch. It returns the events
// collected for this listener since the last call to Wait.
func (l *Listener) Wait() []Event {
	<-l.wake
	l.state = StateRunning
	events := l.pendingEvents
	l.pendingEvents = nil
	return events
}

var _ interfaces.Poller = (*registrar)(nil)

// registrar adapts a Dispatch's change queue to the interfaces.Poller
// contract an out-of-scope acceptor implements against.
type registrar struct {
	d           *Dispatch
	threadIndex int
}

func (r *registrar) RegisterFD(fd int, mask uint32) error {
	r.d.queueChange(r.threadIndex, Change{FD: fd, Mask: mask})
	return nil
}

func (r *registrar) DeregisterFD(fd int) error {
	r.d.queueChange(r.threadIndex, Change{FD: fd, Remove: true})
	return nil
}
