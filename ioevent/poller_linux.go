/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

//go:build linux

package ioevent

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	mu   sync.Mutex
	fd   int
	byFd map[int32]*Io
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{fd: fd, byFd: make(map[int32]*Io)}, nil
}

func (p *epollPoller) add(fd int, io *Io) error {
	p.mu.Lock()
	p.byFd[int32(fd)] = io
	p.mu.Unlock()

	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT,
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) remove(fd int) error {
	p.mu.Lock()
	delete(p.byFd, int32(fd))
	p.mu.Unlock()
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) wait(timeout time.Duration) ([]polledEvent, error) {
	raw := make([]unix.EpollEvent, 64)
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}

	n, err := unix.EpollWait(p.fd, raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]polledEvent, 0, n)
	for i := 0; i < n; i++ {
		io, ok := p.byFd[raw[i].Fd]
		if !ok {
			continue
		}
		switch {
		case raw[i].Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0:
			out = append(out, polledEvent{io: io, kind: EventError})
		case raw[i].Events&unix.EPOLLIN != 0:
			out = append(out, polledEvent{io: io, kind: EventRead})
		case raw[i].Events&unix.EPOLLOUT != 0:
			out = append(out, polledEvent{io: io, kind: EventWrite})
		}
	}
	return out, nil
}
