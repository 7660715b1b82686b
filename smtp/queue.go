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

// Package smtp implements SmtpPool (spec §3.6/§4.5): a pool of TCP or
// process endpoints delivering queued messages with failover/round-robin
// distribution, byte-bounded backpressure, and a per-message state
// machine.
package smtp

import (
	"fmt"
	"sync"
	"time"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/sabouaram/netcore/errors"
)

const (
	ErrorMessageTooLarge = errors.MinPkgSMTPQueue + iota
	ErrorQueueClosed
)

func init() {
	errors.RegisterIdFctMessage(ErrorMessageTooLarge, message)
	errors.RegisterIdFctMessage(ErrorQueueClosed, message)
}

func message(code errors.CodeError) string {
	switch code {
	case ErrorMessageTooLarge:
		return "smtp: message larger than the queue capacity"
	case ErrorQueueClosed:
		return "smtp: queue is closed"
	default:
		return ""
	}
}

// MessageState is where a QueuedMessage sits in its lifecycle (spec
// §4.5 "Per-message state machine").
type MessageState uint8

const (
	Queued MessageState = iota
	Leased
	Writing
	Flushed
	Sent
	Failed
)

// QueuedMessage is one message awaiting or undergoing delivery.
type QueuedMessage struct {
	ID           string
	RawBytes     []byte
	Headers      map[string]string
	Attempts     int
	NotBeforeTime time.Time
	State        MessageState
}

const warningPrefix = "Warning: "

// newMessage builds a QueuedMessage with a fresh request-id-style ID,
// wiring hashicorp/go-uuid the same way httpclient does for correlation.
func newMessage(raw []byte, headers map[string]string) *QueuedMessage {
	id, _ := uuid.GenerateUUID()
	return &QueuedMessage{ID: id, RawBytes: raw, Headers: headers, State: Queued}
}

// Queue is the bounded FIFO described in spec §4.5 "Queue discipline":
// byte-bounded, oldest-drops-first, with a synthetic warning message
// prepended on the next dequeue whenever anything was dropped.
type Queue struct {
	mu           sync.Mutex
	msgs         []*QueuedMessage
	storedBytes  int
	maxBytes     int
	numDropped   int
}

// NewQueue creates a Queue bounded at maxBytes.
func NewQueue(maxBytes int) *Queue {
	return &Queue{maxBytes: maxBytes}
}

// Push enqueues raw as a new message, evicting the oldest queued
// messages (accounting drops) until it fits. A message whose own size
// exceeds maxBytes is rejected outright and also counted as dropped.
func (q *Queue) Push(raw []byte, headers map[string]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(raw) > q.maxBytes {
		q.numDropped++
		return errors.NewCodeError(ErrorMessageTooLarge).Error(nil)
	}

	for q.storedBytes+len(raw) > q.maxBytes && len(q.msgs) > 0 {
		evicted := q.msgs[0]
		q.msgs = q.msgs[1:]
		q.storedBytes -= len(evicted.RawBytes)
		q.numDropped++
	}

	q.msgs = append(q.msgs, newMessage(raw, headers))
	q.storedBytes += len(raw)
	return nil
}

// Pop removes and returns the head of the queue. If any messages have
// been dropped since the last Pop, a synthetic warning message is
// returned first (and the drop counter is reset), per spec's S5
// scenario.
func (q *Queue) Pop() (*QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.numDropped > 0 {
		n := q.numDropped
		q.numDropped = 0
		warn := fmt.Sprintf("%s%d messages were dropped (buffer full)", warningPrefix, n)
		return &QueuedMessage{ID: "", RawBytes: []byte(warn), State: Queued}, true
	}

	if len(q.msgs) == 0 {
		return nil, false
	}
	m := q.msgs[0]
	q.msgs = q.msgs[1:]
	q.storedBytes -= len(m.RawBytes)
	m.State = Leased
	return m, true
}

// Requeue reinserts m at the head of the queue (used when a failed
// message is allowed to retry).
func (q *Queue) Requeue(m *QueuedMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	m.State = Queued
	q.msgs = append([]*QueuedMessage{m}, q.msgs...)
	q.storedBytes += len(m.RawBytes)
}

// StoredBytes returns the sum of currently queued message sizes (spec
// invariant 8: never exceeds maxBytes).
func (q *Queue) StoredBytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.storedBytes
}

// Len returns the number of messages currently queued (not counting a
// pending synthetic warning).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Dropped returns the number of messages dropped since the last Pop that
// surfaced a warning.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.numDropped
}
