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

package ioevent

import (
	"sync"
	"time"
)

// FdSource is implemented by the lowest (socket) layer of an Io so the
// EventLoop's poller knows which file descriptor to watch.
type FdSource interface {
	Fd() int
}

// Timer is a one-shot (optionally auto-removing) alarm registered with an
// EventLoop.
type Timer struct {
	mu        sync.Mutex
	loop      *EventLoop
	due       time.Time
	autoremove bool
	cb         func(arg interface{})
	arg        interface{}
	removed    bool
	fired      bool
}

// Reset reschedules the timer ms milliseconds from now.
func (t *Timer) Reset(ms int) {
	t.mu.Lock()
	t.due = time.Now().Add(time.Duration(ms) * time.Millisecond)
	t.removed = false
	t.fired = false
	t.mu.Unlock()
}

// Remove cancels the timer; per spec §4.1 "a cancelled timer never fires
// afterwards".
func (t *Timer) Remove() {
	t.mu.Lock()
	t.removed = true
	t.mu.Unlock()
}

// Status reports whether the timer is still live (not removed, not yet
// fired for a non-autoremove timer).
func (t *Timer) Status() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.removed && !t.fired
}

// Trigger lets any goroutine queue an EventOther callback onto the loop's
// next tick without owning an Io.
type Trigger struct {
	loop *EventLoop
	cb   func(arg interface{})
	arg  interface{}
}

// Signal queues the trigger's callback for the loop's next tick.
func (tr *Trigger) Signal() {
	tr.loop.signalTrigger(tr)
}

// EventLoop drives a set of Ios plus timers and triggers, single-threaded
// per loop (spec §4.1).
type EventLoop struct {
	mu       sync.Mutex
	ios      map[*Io]struct{}
	timers   []*Timer
	pending  []*Trigger
	poller   poller
	stopping bool
}

// New creates an EventLoop with its platform poller initialized.
func New() (*EventLoop, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	return &EventLoop{
		ios:    make(map[*Io]struct{}),
		poller: p,
	}, nil
}

// Add registers io with the loop and arms its callback; it takes joint
// ownership of io until Destroy or the loop exits (spec §4.1).
func (el *EventLoop) Add(io *Io, cb Callback, arg interface{}) bool {
	el.mu.Lock()
	defer el.mu.Unlock()

	io.mu.Lock()
	io.cb = cb
	io.arg = arg
	io.loop = el
	io.mu.Unlock()

	el.ios[io] = struct{}{}

	if len(io.layers) > 0 {
		if fs, ok := io.layers[0].(FdSource); ok {
			_ = el.poller.add(fs.Fd(), io)
		}
	}
	return true
}

// EditIoCb atomically swaps the callback and argument bound to io.
func (el *EventLoop) EditIoCb(io *Io, cb Callback, arg interface{}) {
	io.mu.Lock()
	io.cb = cb
	io.arg = arg
	io.mu.Unlock()
}

func (el *EventLoop) remove(io *Io) {
	el.mu.Lock()
	defer el.mu.Unlock()
	delete(el.ios, io)
}

// TimerOneshot arms a one-shot timer. If autoremove is true, the timer is
// dropped from the loop after firing once.
func (el *EventLoop) TimerOneshot(ms int, autoremove bool, cb func(arg interface{}), arg interface{}) *Timer {
	t := &Timer{
		loop:       el,
		due:        time.Now().Add(time.Duration(ms) * time.Millisecond),
		autoremove: autoremove,
		cb:         cb,
		arg:        arg,
	}
	el.mu.Lock()
	el.timers = append(el.timers, t)
	el.mu.Unlock()
	return t
}

// TriggerAdd registers a cross-goroutine trigger; Signal() queues an
// EventOther-equivalent callback invocation on the loop's next tick.
func (el *EventLoop) TriggerAdd(cb func(arg interface{}), arg interface{}) *Trigger {
	return &Trigger{loop: el, cb: cb, arg: arg}
}

func (el *EventLoop) signalTrigger(tr *Trigger) {
	el.mu.Lock()
	el.pending = append(el.pending, tr)
	el.mu.Unlock()
}

// Stop requests the loop exit on its next iteration, yielding
// RunReturnedEarly.
func (el *EventLoop) Stop() {
	el.mu.Lock()
	el.stopping = true
	el.mu.Unlock()
}

// Run drives the loop until timeout elapses, Stop is called, or no ios,
// timers, or pending triggers remain.
func (el *EventLoop) Run(timeout time.Duration) RunOutcome {
	deadline := time.Now().Add(timeout)

	for {
		el.mu.Lock()
		if el.stopping {
			el.stopping = false
			el.mu.Unlock()
			return RunReturnedEarly
		}
		nIos := len(el.ios)
		el.mu.Unlock()

		el.fireDueTimers()
		el.fireTriggers()

		if nIos == 0 && !el.hasLiveTimers() {
			return RunDone
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return RunTimeout
		}

		wait := remaining
		if next := el.nextTimerDue(); next > 0 && next < wait {
			wait = next
		}
		if wait > 50*time.Millisecond {
			wait = 50 * time.Millisecond
		}

		events, err := el.poller.wait(wait)
		if err != nil {
			return RunMisuse
		}
		for _, e := range events {
			e.io.dispatch(e.kind)
		}
	}
}

func (el *EventLoop) fireDueTimers() {
	now := time.Now()
	el.mu.Lock()
	var due []*Timer
	var keep []*Timer
	for _, t := range el.timers {
		t.mu.Lock()
		switch {
		case t.removed:
			// dropped
		case !t.fired && !t.due.After(now):
			t.fired = true
			due = append(due, t)
			if !t.autoremove {
				keep = append(keep, t)
			}
		default:
			keep = append(keep, t)
		}
		t.mu.Unlock()
	}
	el.timers = keep
	el.mu.Unlock()

	for _, t := range due {
		t.mu.Lock()
		cb, arg, removed := t.cb, t.arg, t.removed
		t.mu.Unlock()
		if cb != nil && !removed {
			cb(arg)
		}
	}
}

func (el *EventLoop) fireTriggers() {
	el.mu.Lock()
	pending := el.pending
	el.pending = nil
	el.mu.Unlock()

	for _, tr := range pending {
		if tr.cb != nil {
			tr.cb(tr.arg)
		}
	}
}

func (el *EventLoop) hasLiveTimers() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	for _, t := range el.timers {
		t.mu.Lock()
		live := !t.removed
		t.mu.Unlock()
		if live {
			return true
		}
	}
	return false
}

func (el *EventLoop) nextTimerDue() time.Duration {
	el.mu.Lock()
	defer el.mu.Unlock()

	var best time.Duration
	now := time.Now()
	for _, t := range el.timers {
		t.mu.Lock()
		if !t.removed && !t.fired {
			d := t.due.Sub(now)
			if best == 0 || d < best {
				best = d
			}
		}
		t.mu.Unlock()
	}
	return best
}
