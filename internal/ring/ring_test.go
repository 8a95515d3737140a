package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundsCapacityToPowerOfTwo(t *testing.T) {
	r := New[int](10)
	assert.Equal(t, uint64(16), r.Capacity())

	r = New[int](2)
	assert.Equal(t, uint64(16), r.Capacity(), "capacity floors at MinRingCapacity")
}

func TestPutGetRoundTrip(t *testing.T) {
	r := New[int](16)
	require.NoError(t, r.PutN(42))

	v, err := r.GetN()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = r.GetN()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestPutNFullReturnsWouldBlock(t *testing.T) {
	r := New[int](16)
	for i := 0; i < 16; i++ {
		require.NoError(t, r.PutN(i))
	}
	err := r.PutN(99)
	assert.ErrorIs(t, err, ErrWouldBlock)
}

// TestSPSCOrdering exercises scenario S1: a single producer enqueues 1..1000
// and a single consumer must observe exactly that sequence.
func TestSPSCOrdering(t *testing.T) {
	r := New[int](16)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			r.EnqueueN(i)
		}
	}()

	got := make([]int, 0, 1000)
	go func() {
		defer wg.Done()
		for len(got) < 1000 {
			got = append(got, r.DequeueN())
		}
	}()

	wg.Wait()
	require.Len(t, got, 1000)
	for i, v := range got {
		assert.Equal(t, i+1, v)
	}
}

// TestRingSafetyUnderContention exercises scenario S3's sibling property
// (§8 property 3): with 8 concurrent producers and a single consumer, no
// record is lost or duplicated.
func TestRingSafetyUnderContention(t *testing.T) {
	const (
		producers  = 8
		perProd    = 2000
		totalItems = producers * perProd
	)
	r := New[int](64)

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				r.EnqueueN(base*perProd + i)
			}
		}(p)
	}

	seen := make([]bool, totalItems)
	var mu sync.Mutex
	count := 0
	for count < totalItems {
		v, err := r.GetN()
		if err != nil {
			continue
		}
		mu.Lock()
		require.False(t, seen[v], "duplicate item %d", v)
		seen[v] = true
		mu.Unlock()
		count++
	}
	wg.Wait()

	for i, ok := range seen {
		assert.True(t, ok, "missing item %d", i)
	}
}

func TestRelaxedGetNSingleConsumer(t *testing.T) {
	r := New[string](16)
	require.NoError(t, r.PutN("a"))
	require.NoError(t, r.PutN("b"))

	v, err := r.RelaxedGetN()
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = r.RelaxedGetN()
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = r.RelaxedGetN()
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestSetRelaxInvokedOnContention(t *testing.T) {
	r := New[int](16)
	for i := 0; i < 16; i++ {
		require.NoError(t, r.PutN(i))
	}

	var relaxCalls int
	var mu sync.Mutex
	relaxed := make(chan struct{})
	r.SetRelax(func() {
		mu.Lock()
		relaxCalls++
		if relaxCalls == 1 {
			close(relaxed)
		}
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		r.EnqueueN(1000)
		close(done)
	}()

	// The ring starts full and constants.SpinIterations bounds the pure-spin
	// phase, so EnqueueN must reach relax; only then free a slot so it can
	// succeed.
	<-relaxed
	_, _ = r.GetN()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, relaxCalls, 1)
}
