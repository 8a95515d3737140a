package main

import (
	"unsafe"

	"github.com/ademakov/MainMemory-sub000/internal/fabric"
)

// demoOp identifies which table operation a demoRequest asks for.
type demoOp byte

const (
	demoGet demoOp = iota
	demoSet
	demoDelete
)

// demoRequest is boxed through a single uintptr word (args[0]) rather than
// spread across the handler's six argument words, the same unsafe
// pointer-through-word pattern the teacher's control and queue-runner code
// uses to carry a request struct across a channel boundary.
type demoRequest struct {
	op    demoOp
	key   []byte
	value []byte
	resp  chan demoResponse
}

type demoResponse struct {
	found bool
	value []byte
}

// demoRuntime is the single Runtime this CLI drives. A package-level
// binding is appropriate here: this is a single-purpose demo program, not a
// library, so there is exactly one Runtime for the process's lifetime.
var demoRuntime runtimeHandle

// runtimeHandle is the subset of mainmemory.Runtime the demo handler needs,
// named locally so this file doesn't import the root package just to
// satisfy the unsafe-pointer boxing below.
type runtimeHandle interface {
	Get(key []byte) ([]byte, bool)
	Set(key, value []byte)
	Delete(key []byte) bool
}

// demoHandler is the fabric.HandlerFunc posted to the first domain's first
// thread to exercise GET/SET/DELETE end to end through the request fabric,
// without a memcache wire format or network acceptor.
func demoHandler(args [6]uintptr) uintptr {
	req := (*demoRequest)(unsafe.Pointer(args[0]))
	var resp demoResponse
	switch req.op {
	case demoGet:
		value, ok := demoRuntime.Get(req.key)
		resp = demoResponse{found: ok, value: value}
	case demoSet:
		demoRuntime.Set(req.key, req.value)
		resp = demoResponse{found: true}
	case demoDelete:
		resp = demoResponse{found: demoRuntime.Delete(req.key)}
	}
	req.resp <- resp
	return 0
}

// postDemo posts a demo request of the given op through queue, blocking
// until the owning thread has executed it and returned a response.
func postDemo(queue *fabric.Queue, notify fabric.Notifier, op demoOp, key, value []byte) demoResponse {
	req := &demoRequest{op: op, key: key, value: value, resp: make(chan demoResponse, 1)}
	fabric.PostK(queue, notify, demoHandler, uintptr(unsafe.Pointer(req)))
	return <-req.resp
}
