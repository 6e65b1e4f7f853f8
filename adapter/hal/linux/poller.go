//go:build linux

package linux

import (
	"context"
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ardnew/arcmsr/pkg"
)

// poller waits for UIO interrupts on one descriptor. An eventfd registered
// beside it lets Close and context cancellation break the wait.
type poller struct {
	epfd   int
	wakefd int
	irqfd  int

	mu     sync.Mutex
	closed bool
}

// newPoller watches irqfd for readability.
func newPoller(irqfd int) (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	p := &poller{epfd: epfd, wakefd: wakefd, irqfd: irqfd}
	for _, fd := range []int{wakefd, irqfd} {
		if fd < 0 {
			continue
		}
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			unix.Close(wakefd)
			unix.Close(epfd)
			return nil, err
		}
	}
	return p, nil
}

// close wakes any waiter and releases the epoll and eventfd descriptors.
// The interrupt descriptor belongs to the caller.
func (p *poller) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wake()
	unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}

func (p *poller) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// wake interrupts a blocked wait.
func (p *poller) wake() {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	unix.Write(p.wakefd, one[:])
}

// wait blocks until irqfd is readable, returning the UIO event count read
// from it, or until ctx is done or the poller is closed.
func (p *poller) wait(ctx context.Context) (uint32, error) {
	stop := context.AfterFunc(ctx, p.wake)
	defer stop()

	var events [MaxEpollEvents]unix.EpollEvent
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if p.isClosed() {
			return 0, pkg.ErrClosed
		}

		n, err := unix.EpollWait(p.epfd, events[:], -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if p.isClosed() {
				return 0, pkg.ErrClosed
			}
			return 0, err
		}
		for i := 0; i < n; i++ {
			switch int(events[i].Fd) {
			case p.wakefd:
				var buf [8]byte
				unix.Read(p.wakefd, buf[:])
			case p.irqfd:
				var buf [4]byte
				if _, err := unix.Read(p.irqfd, buf[:]); err != nil {
					if err == unix.EAGAIN {
						continue
					}
					return 0, err
				}
				return binary.NativeEndian.Uint32(buf[:]), nil
			}
		}
	}
}
