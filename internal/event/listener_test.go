package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInElectsFirstListenerAsPoller(t *testing.T) {
	d := NewDispatch(mustStubPoller(t), nil)
	l := NewListener(0)
	elected := d.CheckIn(l)
	assert.True(t, elected)
	assert.Equal(t, StatePolling, l.state)
}

func TestCheckInSecondListenerWaitsNotElected(t *testing.T) {
	d := NewDispatch(mustStubPoller(t), nil)
	l0 := NewListener(0)
	l1 := NewListener(1)
	require.True(t, d.CheckIn(l0))
	assert.False(t, d.CheckIn(l1))
	assert.Equal(t, StateWaiting, l1.state)
}

func TestNotifyWakesAtMostOncePerCycle(t *testing.T) {
	d := NewDispatch(mustStubPoller(t), nil)
	l := NewListener(0)
	d.CheckIn(l)

	var wakes int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.tryNotify() {
				mu.Lock()
				wakes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wakes, "only one notifier should win the wake race per cycle")
}

func TestNotifyAfterWakeStartsNewCycle(t *testing.T) {
	l := NewListener(0)
	l.checkIn()
	assert.True(t, l.tryNotify())
	assert.False(t, l.tryNotify(), "second notify in the same cycle must not win")

	l.checkIn()
	assert.True(t, l.tryNotify(), "a fresh cycle must allow exactly one more winner")
}

func mustStubPoller(t *testing.T) Poller {
	t.Helper()
	p, err := NewEpollPoller()
	require.NoError(t, err)
	return p
}
