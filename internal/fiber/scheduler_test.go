package fiber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ademakov/MainMemory-sub000/internal/constants"
)

func TestSchedulerRunsHighestPriorityFirst(t *testing.T) {
	s := NewScheduler(nil)
	var order []string

	s.Spawn(constants.PriorityWorker, func(f *Fiber) {
		order = append(order, "worker")
	})
	s.Spawn(constants.PriorityDealer, func(f *Fiber) {
		order = append(order, "dealer")
	})
	s.Spawn(constants.PriorityMaster, func(f *Fiber) {
		order = append(order, "master")
	})

	s.Run()

	require.Equal(t, []string{"dealer", "master", "worker"}, order)
}

func TestSchedulerYieldReturnsControlAndResumes(t *testing.T) {
	s := NewScheduler(nil)
	steps := 0

	s.Spawn(constants.PriorityUser, func(f *Fiber) {
		steps++
		f.Yield()
		steps++
	})
	s.Spawn(constants.PriorityUser, func(f *Fiber) {
		steps++
	})

	s.Run()

	assert.Equal(t, 3, steps)
}

func TestSchedulerCancelRunsCleanupStack(t *testing.T) {
	s := NewScheduler(nil)
	var cleaned []int

	var target *Fiber
	target = s.Spawn(constants.PriorityUser, func(f *Fiber) {
		f.CleanupPush(func() { cleaned = append(cleaned, 1) })
		f.CleanupPush(func() { cleaned = append(cleaned, 2) })
		target.Cancel()
		f.TestCancel()
		t.Fatal("unreachable: TestCancel must panic to the cleanup recovery wrapper")
	})

	s.Run()

	assert.Equal(t, []int{2, 1}, cleaned, "cleanups must run LIFO")
}

func TestSchedulerIdleWhenNothingReady(t *testing.T) {
	s := NewScheduler(nil)
	assert.True(t, s.Idle())
	s.Spawn(constants.PriorityUser, func(f *Fiber) {})
	assert.False(t, s.Idle())
	s.Run()
	assert.True(t, s.Idle())
}
