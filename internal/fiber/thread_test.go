package fiber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ademakov/MainMemory-sub000/internal/constants"
	"github.com/ademakov/MainMemory-sub000/internal/event"
	"github.com/ademakov/MainMemory-sub000/internal/fabric"
)

// noopPoller satisfies event.Poller without touching the OS, so fiber
// package tests can build a Domain without depending on epoll being
// available in the test environment.
type noopPoller struct{}

func (noopPoller) ApplyChanges(changes []event.Change) error { return nil }
func (noopPoller) Poll(events []event.Event, timeoutMillis int) ([]event.Event, error) {
	return events, nil
}
func (noopPoller) Wake() error  { return nil }
func (noopPoller) Close() error { return nil }

func newTestDomain(t *testing.T, numThreads int) *Domain {
	t.Helper()
	return NewDomain(DomainConfig{Name: "test", NumThreads: numThreads, Poller: noopPoller{}})
}

func TestThreadDrainQueueExecutesPostedWork(t *testing.T) {
	d := newTestDomain(t, 1)
	th := d.Thread(0)

	var got int
	fabric.PostK(th.Queue(), th, func(args [6]uintptr) uintptr {
		got = int(args[0])
		return 0
	}, 9)

	th.DrainQueue()
	assert.Equal(t, 9, got)
}

func TestThreadRespondDeliversResultAndUnblocksWaiter(t *testing.T) {
	d := newTestDomain(t, 1)
	th := d.Thread(0)

	// AwaitResult parks the waiting fiber on the same thread whose Respond
	// will later unblock it, mirroring a sender thread awaiting a two-way
	// call's result: the waiter and the Responder share one scheduler.
	var result uintptr
	th.Scheduler().Spawn(constants.PriorityUser, func(f *Fiber) {
		result = th.AwaitResult(f, 42)
	})

	go func() {
		th.Respond(42, 7)
	}()

	// Drive the scheduler until the waiter is unblocked and finishes; a
	// single Run call handles the case where Respond lands before Block.
	for i := 0; i < 1000 && th.Scheduler().Live() > 0; i++ {
		th.Scheduler().Run()
	}

	require.Equal(t, 0, th.Scheduler().Live())
	assert.EqualValues(t, 7, result)
}
