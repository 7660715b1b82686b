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

//go:build !linux

package ioevent

import (
	"sync"
	"time"
)

// epollPoller is only available on Linux; other platforms fall back to a
// short-interval readiness sweep so the rest of the package (which only
// depends on the poller interface) stays portable.
type sweepPoller struct {
	mu  sync.Mutex
	ios map[int]*Io
}

func newPoller() (poller, error) {
	return &sweepPoller{ios: make(map[int]*Io)}, nil
}

func (p *sweepPoller) add(fd int, io *Io) error {
	p.mu.Lock()
	p.ios[fd] = io
	p.mu.Unlock()
	return nil
}

func (p *sweepPoller) remove(fd int) error {
	p.mu.Lock()
	delete(p.ios, fd)
	p.mu.Unlock()
	return nil
}

func (p *sweepPoller) wait(timeout time.Duration) ([]polledEvent, error) {
	time.Sleep(timeout)

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]polledEvent, 0, len(p.ios)*2)
	for _, io := range p.ios {
		out = append(out, polledEvent{io: io, kind: EventRead})
		out = append(out, polledEvent{io: io, kind: EventWrite})
	}
	return out, nil
}
