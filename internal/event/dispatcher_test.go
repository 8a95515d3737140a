package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoller struct {
	woken   int
	changes []Change
	closed  bool
}

func (f *fakePoller) ApplyChanges(changes []Change) error {
	f.changes = append(f.changes, changes...)
	return nil
}

func (f *fakePoller) Poll(events []Event, timeoutMillis int) ([]Event, error) {
	return events, nil
}

func (f *fakePoller) Wake() error {
	f.woken++
	return nil
}

func (f *fakePoller) Close() error {
	f.closed = true
	return nil
}

func TestDispatchRotatesPollingDutyOnPoll(t *testing.T) {
	fp := &fakePoller{}
	d := NewDispatch(fp, nil)
	l0 := NewListener(0)
	l1 := NewListener(1)
	require.True(t, d.CheckIn(l0))
	d.CheckIn(l1)

	_, err := d.Poll(-1)
	require.NoError(t, err)

	assert.Equal(t, l1, d.pollingListener, "polling duty must rotate to the other waiting listener")
}

func TestDispatchNotifyWakesPollerThroughOSInterrupt(t *testing.T) {
	fp := &fakePoller{}
	d := NewDispatch(fp, nil)
	l := NewListener(0)
	d.CheckIn(l)

	d.Notify(0)
	assert.Equal(t, 1, fp.woken, "notifying the elected poller must interrupt its blocking call")
}

func TestDispatchCheckOutClearsPollingDuty(t *testing.T) {
	fp := &fakePoller{}
	d := NewDispatch(fp, nil)
	l := NewListener(0)
	d.CheckIn(l)
	d.CheckOut(l)
	assert.Nil(t, d.pollingListener)
}

func TestRegistrarQueuesChanges(t *testing.T) {
	fp := &fakePoller{}
	d := NewDispatch(fp, nil)
	r := d.Registrar(0)
	require.NoError(t, r.RegisterFD(5, MaskRead))
	require.NoError(t, r.DeregisterFD(5))

	assert.Len(t, d.pendingChanges, 2)
}
