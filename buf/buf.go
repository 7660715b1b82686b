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

// Package buf is the growable byte buffer and read-cursor Parser every wire
// codec in this module (http1, http2, smtp) is built on.
package buf

import (
	"github.com/sabouaram/netcore/errors"
)

const (
	ErrorOutOfRange = errors.MinPkgBuf + iota
	ErrorNoMark
)

func init() {
	errors.RegisterIdFctMessage(ErrorOutOfRange, getMessage)
	errors.RegisterIdFctMessage(ErrorNoMark, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorOutOfRange:
		return "buf: requested region is out of range"
	case ErrorNoMark:
		return "buf: no mark to rewind to"
	default:
		return ""
	}
}

// Buf is a growable, append-only byte buffer. It supports truncation and a
// direct-write-region acquire/release pair so a caller can write into the
// buffer's backing array without an intermediate copy.
type Buf struct {
	b []byte
}

// New returns an empty Buf with capacity hint reserved.
func New(capacityHint int) *Buf {
	return &Buf{b: make([]byte, 0, capacityHint)}
}

// FromBytes wraps an existing slice as the buffer's initial content; the
// slice is copied, not aliased.
func FromBytes(p []byte) *Buf {
	b := &Buf{b: make([]byte, len(p))}
	copy(b.b, p)
	return b
}

// Len returns the number of valid bytes currently stored.
func (b *Buf) Len() int { return len(b.b) }

// Bytes returns the valid region of the buffer. The returned slice is only
// valid until the next mutating call.
func (b *Buf) Bytes() []byte { return b.b }

// Write appends p, growing the buffer as needed. It always returns
// len(p), nil per io.Writer convention.
func (b *Buf) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

// WriteString appends s.
func (b *Buf) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

// WriteByte appends a single byte.
func (b *Buf) WriteByte(c byte) error {
	b.b = append(b.b, c)
	return nil
}

// Truncate discards everything past the first n bytes. Truncate(0) empties
// the buffer while keeping its allocated capacity.
func (b *Buf) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n > len(b.b) {
		n = len(b.b)
	}
	zero(b.b[n:])
	b.b = b.b[:n]
}

// Reset empties the buffer, zeroising the freed region.
func (b *Buf) Reset() { b.Truncate(0) }

// Acquire returns a writable region of exactly n bytes appended to the
// buffer (uninitialized), for the caller to fill directly (e.g. a
// read(2) destination) before calling Release.
func (b *Buf) Acquire(n int) []byte {
	start := len(b.b)
	if cap(b.b) < start+n {
		grown := make([]byte, start, (start+n)*2)
		copy(grown, b.b)
		b.b = grown
	}
	b.b = b.b[:start+n]
	return b.b[start : start+n]
}

// Release shrinks the tail of the buffer so only the first used bytes of
// the most recently Acquired region remain, zeroising the discarded part.
// region must be the exact slice returned by the matching Acquire call.
func (b *Buf) Release(region []byte, used int) {
	if used < 0 {
		used = 0
	}
	if used > len(region) {
		used = len(region)
	}
	b.Truncate(len(b.b) - len(region) + used)
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
