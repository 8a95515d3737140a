package fiber

import "code.hybscloud.com/atomix"

// Barrier is a sense-reversing barrier used to synchronize a domain's
// threads at startup (every thread's scheduler and rings must exist before
// any of them starts posting cross-thread requests).
// Sense-reversal avoids the reset-race a counter-and-reset barrier has: no
// thread ever waits on a generation value another thread might already be
// resetting.
type Barrier struct {
	n       int
	count   atomix.Int32
	sense   atomix.Bool
}

// NewBarrier creates a barrier for n participants.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n}
	return b
}

// Wait blocks the calling goroutine until all n participants have called
// Wait. relax, if non-nil, is invoked on each spin iteration instead of
// busy-looping bare (a fiber's Yield, typically).
func (b *Barrier) Wait(relax func()) {
	localSense := !b.sense.LoadAcquire()
	if b.count.AddAcqRel(1) == int32(b.n) {
		b.count.StoreRelease(0)
		b.sense.StoreRelease(localSense)
		return
	}
	for b.sense.LoadAcquire() != localSense {
		if relax != nil {
			relax()
		}
	}
}
