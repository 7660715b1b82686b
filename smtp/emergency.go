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

package smtp

import (
	"net"
	"sync/atomic"
)

// emergencySink holds the single raw connection the pool's EmergencySend
// path is allowed to touch. It is an atomic.Pointer so Store (done by a
// worker on connect) and Load (done from a signal handler) never take a
// lock, per spec §4.5 "Emergency sink" / §9 "allocation-free and
// lock-free".
type emergencySink struct {
	conn atomic.Pointer[net.Conn]
}

func (s *emergencySink) set(c net.Conn) {
	if c == nil {
		s.conn.Store(nil)
		return
	}
	s.conn.Store(&c)
}

func (s *emergencySink) clear() { s.conn.Store(nil) }

// EmergencySend writes raw directly to the last connection a worker
// established, bypassing the queue, the mutex, and any per-message
// bookkeeping entirely. It is meant to be callable from a signal handler
// (spec §9): best-effort, single write, never blocks on backpressure, and
// reports failure instead of retrying.
func (p *Pool) EmergencySend(raw []byte) bool {
	cp := p.emergency.conn.Load()
	if cp == nil || *cp == nil {
		return false
	}
	n, err := (*cp).Write(raw)
	return err == nil && n == len(raw)
}
