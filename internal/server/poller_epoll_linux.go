//go:build linux

package server

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux Poller, built over epoll_create1/epoll_ctl/
// epoll_wait and generalized to Register/Unregister/Run over arbitrary
// client fds, level-triggered so a partially drained buffer keeps firing
// until it is empty.
type epollPoller struct {
	epfd int

	mu        sync.Mutex
	callbacks map[int]Callback
	masks     map[int]EventMask

	timersMu sync.Mutex
	timers   []*timer
}

type timer struct {
	period   time.Duration
	fn       func()
	next     time.Time
	canceled bool
}

// NewPoller returns the Linux epoll-backed Poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{
		epfd:      epfd,
		callbacks: make(map[int]Callback),
		masks:     make(map[int]EventMask),
	}, nil
}

func toEpollEvents(mask EventMask) uint32 {
	var ev uint32
	if mask&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) Register(fd int, mask EventMask, cb Callback) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	event := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(fd)}
	_, exists := p.masks[fd]

	op := unix.EPOLL_CTL_ADD
	if exists {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(p.epfd, op, fd, &event); err != nil {
		return err
	}

	p.callbacks[fd] = cb
	p.masks[fd] = mask
	return nil
}

func (p *epollPoller) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.masks[fd]; !ok {
		return nil
	}
	delete(p.callbacks, fd)
	delete(p.masks, fd)
	// Ignore ENOENT/EBADF: the fd may already be closed by the caller.
	_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	return nil
}

func (p *epollPoller) Mask(fd int) (EventMask, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.masks[fd]
	return m, ok
}

func (p *epollPoller) AfterFunc(period time.Duration, fn func()) func() {
	t := &timer{period: period, fn: fn, next: time.Now().Add(period)}
	p.timersMu.Lock()
	p.timers = append(p.timers, t)
	p.timersMu.Unlock()
	return func() {
		p.timersMu.Lock()
		t.canceled = true
		p.timersMu.Unlock()
	}
}

func (p *epollPoller) runTimers() {
	now := time.Now()
	p.timersMu.Lock()
	due := make([]*timer, 0, len(p.timers))
	live := p.timers[:0]
	for _, t := range p.timers {
		if t.canceled {
			continue
		}
		if !now.Before(t.next) {
			due = append(due, t)
			t.next = now.Add(t.period)
		}
		live = append(live, t)
	}
	p.timers = live
	p.timersMu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// Run drives the loop: wait up to 100ms (so timers fire with bounded
// latency even with no socket activity), dispatch ready fds, run due
// timers, repeat until ctx is canceled.
func (p *epollPoller) Run(ctx context.Context) error {
	events := make([]unix.EpollEvent, 256)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := unix.EpollWait(p.epfd, events, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			var mask EventMask
			if events[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				mask |= Readable
			}
			if events[i].Events&unix.EPOLLOUT != 0 {
				mask |= Writable
			}

			p.mu.Lock()
			cb := p.callbacks[fd]
			p.mu.Unlock()
			if cb != nil {
				cb(fd, mask)
			}
		}

		p.runTimers()
	}
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
