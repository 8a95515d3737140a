package fabric

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type recordingResponder struct {
	results map[uint64]uintptr
}

func (r *recordingResponder) Respond(callID uint64, result uintptr) {
	r.results[callID] = result
}

func TestPostKAndReceiveExecute(t *testing.T) {
	q := NewQueue(16)
	var got uintptr
	fn := func(args [6]uintptr) uintptr {
		got = args[0] + args[1]
		return 0
	}

	PostK(q, nil, fn, 3, 4)
	req := Receive(q)
	assert.Equal(t, OneWay, req.Kind)
	Execute(req)
	assert.EqualValues(t, 7, got)
}

func TestTryPostFullQueue(t *testing.T) {
	q := NewQueue(16)
	fn := func(args [6]uintptr) uintptr { return 0 }
	for i := 0; i < 16; i++ {
		require.True(t, TryPost(q, nil, fn))
	}
	assert.False(t, TryPost(q, nil, fn), "queue at capacity must reject further posts")
}

func TestSendKDeliversResultToSender(t *testing.T) {
	q := NewQueue(16)
	responder := &recordingResponder{results: make(map[uint64]uintptr)}

	fn := func(args [6]uintptr) uintptr { return args[0] * 2 }
	callID := SendK(q, nil, fn, responder, 21)

	req, ok := TryReceive(q)
	require.True(t, ok)
	assert.Equal(t, TwoWay, req.Kind)
	Execute(req)

	assert.EqualValues(t, 42, responder.results[callID])
}

func TestSendKRejectsTooManyArgs(t *testing.T) {
	q := NewQueue(16)
	responder := &recordingResponder{results: make(map[uint64]uintptr)}
	fn := func(args [6]uintptr) uintptr { return 0 }

	assert.Panics(t, func() {
		SendK(q, nil, fn, responder, 1, 2, 3, 4, 5, 6)
	})
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify() { c.n++ }

func TestPostKNotifiesTarget(t *testing.T) {
	q := NewQueue(16)
	notifier := &countingNotifier{}
	fn := func(args [6]uintptr) uintptr { return 0 }

	PostK(q, notifier, fn)
	assert.Equal(t, 1, notifier.n)
}

func TestForwardSyscallReturnsRealResult(t *testing.T) {
	q := NewQueue(16)
	responder := &recordingResponder{results: make(map[uint64]uintptr)}

	callID := ForwardSyscall(q, nil, responder, unix.SYS_GETPID, 0, 0, 0, 0)

	req, ok := TryReceive(q)
	require.True(t, ok)
	Execute(req)

	assert.EqualValues(t, os.Getpid(), responder.results[callID])
}

func TestForwardSyscallEncodesErrnoOnFailure(t *testing.T) {
	q := NewQueue(16)
	responder := &recordingResponder{results: make(map[uint64]uintptr)}

	// close(-1) always fails with EBADF; the handler must surface that as
	// a negative result rather than panicking or silently returning 0.
	callID := ForwardSyscall(q, nil, responder, unix.SYS_CLOSE, ^uintptr(0), 0, 0, 0)

	req, ok := TryReceive(q)
	require.True(t, ok)
	Execute(req)

	result := int(responder.results[callID])
	assert.Less(t, result, 0)
}
