// Package fabric implements the cross-thread request fabric of spec §4.3:
// one-way posts and two-way sends carried over internal/ring, with the
// Open Question resolved in favor of the 7-word record with an explicit
// sender field (not the tag-bit scheme some versions of the source use).
package fabric

import (
	"code.hybscloud.com/atomix"
	"golang.org/x/sys/unix"

	"github.com/ademakov/MainMemory-sub000/internal/ring"
)

// Kind discriminates a one-way post from a two-way send. In the original
// word-packed record this was a tag bit on the handler address (§3, §9
// "pointer-tagged function identities"); here it is an explicit field on a
// typed struct, which is what a Go generic Ring[T] buys us for free.
type Kind uint8

const (
	OneWay Kind = iota
	TwoWay
)

// HandlerFunc is a request handler. It receives up to six argument words
// and, for two-way requests, returns a result word fed to the sender's
// response callback.
type HandlerFunc func(args [6]uintptr) uintptr

// Responder is implemented by whatever owns a Thread's identity so the
// fabric can deliver a two-way call's result without this package needing
// to import the scheduler package (which in turn depends on fabric for its
// request queue type — see internal/fiber for the cycle this avoids).
type Responder interface {
	// Respond delivers the result of the two-way call identified by
	// callID. Implementations must be safe to call from any thread.
	Respond(callID uint64, result uintptr)
}

// Request is the record type carried over a Queue. It is up to 7 logical
// words per spec §3: Fn, Sender, and up to 5 argument words for two-way
// calls, or up to 6 argument words for one-way posts.
type Request struct {
	Kind   Kind
	Fn     HandlerFunc
	Sender Responder // nil for one-way requests
	CallID uint64    // only meaningful when Sender != nil
	Args   [6]uintptr
}

// Queue is a ring carrying Request records between threads (a thread's
// private request ring) or between a domain's threads (a domain-wide
// request ring). It is the concrete type spec §4.3 calls "C4 on top of
// which C6 is built".
type Queue = ring.Ring[Request]

// NewQueue creates a fabric request queue of the given capacity.
func NewQueue(capacity int) *Queue {
	return ring.New[Request](capacity)
}

// Notifier is satisfied by anything that should be woken when a post lands
// on its queue (spec §4.3 integration: "a thread's post additionally calls
// thread_notify"). internal/fiber's Thread implements this.
type Notifier interface {
	Notify()
}

// PostK pushes a one-way request with up to 6 argument words, blocking with
// the queue's configured backoff policy until it is accepted.
func PostK(q *Queue, notify Notifier, fn HandlerFunc, args ...uintptr) {
	req := Request{Kind: OneWay, Fn: fn}
	copy(req.Args[:], args)
	q.EnqueueN(req)
	if notify != nil {
		notify.Notify()
	}
}

// TryPost is the non-blocking variant of PostK; it returns false if the
// queue is full.
func TryPost(q *Queue, notify Notifier, fn HandlerFunc, args ...uintptr) bool {
	req := Request{Kind: OneWay, Fn: fn}
	copy(req.Args[:], args)
	if err := q.PutN(req); err != nil {
		return false
	}
	if notify != nil {
		notify.Notify()
	}
	return true
}

var callIDCounter atomix.Uint64

func nextCallID() uint64 {
	return callIDCounter.AddAcqRel(1)
}

// SendK pushes a two-way request carrying up to 5 argument words. The
// caller is identified by sender, which must implement Responder so the
// consumer thread can deliver the handler's return value back; callID
// uniquely identifies this call against the sender so concurrent sends from
// one thread don't cross wires.
func SendK(q *Queue, notify Notifier, fn HandlerFunc, sender Responder, args ...uintptr) uint64 {
	if len(args) > 5 {
		panic("fabric: two-way send accepts at most 5 argument words")
	}
	callID := nextCallID()
	req := Request{Kind: TwoWay, Fn: fn, Sender: sender, CallID: callID}
	copy(req.Args[:], args)
	q.EnqueueN(req)
	if notify != nil {
		notify.Notify()
	}
	return callID
}

// Receive fetches one request from q, blocking per the queue's backoff
// policy.
func Receive(q *Queue) Request {
	return q.DequeueN()
}

// TryReceive is the non-blocking variant of Receive.
func TryReceive(q *Queue) (Request, bool) {
	req, err := q.GetN()
	if err != nil {
		return Request{}, false
	}
	return req, true
}

// Execute dispatches req to its handler and, for two-way requests, delivers
// the result to the sender.
func Execute(req Request) {
	result := req.Fn(req.Args)
	if req.Kind == TwoWay && req.Sender != nil {
		req.Sender.Respond(req.CallID, result)
	}
}

// ForwardSyscallHandler is the built-in two-way handler that turns a request
// into a real syscall: args[0] is the trap number, args[1]..args[4] are up to
// four syscall arguments. It returns the raw return value on success, or the
// negated errno (kernel convention) on failure, in a single result word.
func ForwardSyscallHandler(args [6]uintptr) uintptr {
	r1, _, errno := unix.Syscall6(args[0], args[1], args[2], args[3], args[4], 0, 0)
	if errno != 0 {
		return uintptr(-int(errno))
	}
	return r1
}

// ForwardSyscall posts a built-in syscall request to q: trap is the syscall
// number, a1..a4 its arguments. The consumer thread executes the syscall via
// ForwardSyscallHandler and delivers the result to sender through the usual
// two-way response path; this is the one place the fabric touches the OS
// directly rather than dispatching to domain-specific logic.
func ForwardSyscall(q *Queue, notify Notifier, sender Responder, trap, a1, a2, a3, a4 uintptr) uint64 {
	return SendK(q, notify, ForwardSyscallHandler, sender, trap, a1, a2, a3, a4)
}
