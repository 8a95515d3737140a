//go:build !linux

package event

import (
	"errors"
	"time"
)

// stubPoller backs non-Linux builds so the fabric-only parts of the
// runtime still compile and run; it never reports readiness and Poll
// simply blocks out the requested timeout.
type stubPoller struct {
	wake chan struct{}
}

// NewEpollPoller is named to match the Linux build's constructor so
// callers can use the same call site regardless of platform.
func NewEpollPoller() (*stubPoller, error) {
	return &stubPoller{wake: make(chan struct{}, 1)}, nil
}

func (p *stubPoller) ApplyChanges(changes []Change) error { return nil }

func (p *stubPoller) Poll(events []Event, timeoutMillis int) ([]Event, error) {
	if timeoutMillis < 0 {
		<-p.wake
		return events, nil
	}
	select {
	case <-p.wake:
	case <-time.After(time.Duration(timeoutMillis) * time.Millisecond):
	}
	return events, nil
}

func (p *stubPoller) Wake() error {
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

func (p *stubPoller) Close() error { return nil }

var errUnsupported = errors.New("event: OS polling unsupported on this platform")
