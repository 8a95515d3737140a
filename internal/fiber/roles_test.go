package fiber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMasterSpawnsWorkersForQueuedWork(t *testing.T) {
	d := newTestDomain(t, 1)
	th := d.Thread(0)

	work := []int{1, 2, 3}
	var processed []int
	done := false

	hasWork := func() bool { return len(work) > 0 }
	nextWork := func() (WorkFunc, bool) {
		if len(work) == 0 {
			return nil, false
		}
		item := work[0]
		work = work[1:]
		return func() { processed = append(processed, item) }, true
	}
	stop := func() bool { return done }

	RunMaster(th, 4, hasWork, nextWork, stop)

	// A single Run() call drains every spawned worker synchronously: the
	// master parks with Idle once saturated/out of work rather than
	// re-queuing itself above the worker band, so Run's loop keeps making
	// progress until both bins are empty.
	th.Scheduler().Run()
	done = true

	require.Len(t, processed, 3)
	assert.ElementsMatch(t, []int{1, 2, 3}, processed)
}
