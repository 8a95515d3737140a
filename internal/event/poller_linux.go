//go:build linux

package event

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux Poller backend: one epoll instance per domain,
// plus an eventfd used purely to interrupt a blocking EpollWait when
// Dispatch.Notify needs the current poller to observe new work (or a
// change in polling duty) immediately instead of waiting out its timeout.
type epollPoller struct {
	epfd     int
	wakeFD   int
	rawEvent []unix.EpollEvent
}

// NewEpollPoller creates a Poller backed by epoll_create1/epoll_wait.
func NewEpollPoller() (*epollPoller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	p := &epollPoller{epfd: epfd, wakeFD: wakeFD, rawEvent: make([]unix.EpollEvent, 256)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeFD),
	}); err != nil {
		unix.Close(wakeFD)
		unix.Close(epfd)
		return nil, err
	}
	return p, nil
}

func maskToEpoll(mask uint32) uint32 {
	var e uint32
	if mask&MaskRead != 0 {
		e |= unix.EPOLLIN
	}
	if mask&MaskWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func (p *epollPoller) ApplyChanges(changes []Change) error {
	for _, c := range changes {
		if c.Remove {
			if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, c.FD, nil); err != nil {
				return err
			}
			continue
		}
		ev := &unix.EpollEvent{Events: maskToEpoll(c.Mask), Fd: int32(c.FD)}
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, c.FD, ev); err != nil {
			if err == unix.EEXIST {
				err = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, c.FD, ev)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *epollPoller) Poll(events []Event, timeoutMillis int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.rawEvent, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return events, nil
		}
		return events, err
	}
	for i := 0; i < n; i++ {
		raw := p.rawEvent[i]
		if int(raw.Fd) == p.wakeFD {
			p.drainWake()
			continue
		}
		var mask uint32
		if raw.Events&unix.EPOLLIN != 0 {
			mask |= MaskRead
		}
		if raw.Events&unix.EPOLLOUT != 0 {
			mask |= MaskWrite
		}
		events = append(events, Event{FD: int(raw.Fd), Mask: mask})
	}
	return events, nil
}

func (p *epollPoller) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(p.wakeFD, buf[:])
		if err != nil {
			return
		}
	}
}

func (p *epollPoller) Wake() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wakeFD, buf[:])
	return err
}

func (p *epollPoller) Close() error {
	unix.Close(p.wakeFD)
	return unix.Close(p.epfd)
}
