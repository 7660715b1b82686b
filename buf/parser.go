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

package buf

import (
	"encoding/binary"

	"github.com/sabouaram/netcore/errors"
)

// Parser is a read cursor over a Buf (or a borrowed slice), with a stack of
// marks so a protocol reader can speculatively consume and rewind without
// copying. Slices handed out by Peek/Consume remain valid until the
// underlying Buf is next mutated.
type Parser struct {
	src   []byte
	pos   int
	marks []int
}

// NewParser wraps p as a read-only cursor.
func NewParser(p []byte) *Parser {
	return &Parser{src: p}
}

// NewParserFromBuf wraps b's current contents as a read-only cursor.
func NewParserFromBuf(b *Buf) *Parser {
	return &Parser{src: b.Bytes()}
}

// Rebase replaces the underlying slice (e.g. after more bytes were
// appended to the source Buf) while preserving the current position and
// marks, as long as they still fit within the new slice.
func (p *Parser) Rebase(src []byte) {
	p.src = src
	if p.pos > len(src) {
		p.pos = len(src)
	}
}

// Len returns the number of unconsumed bytes remaining.
func (p *Parser) Len() int { return len(p.src) - p.pos }

// Pos returns the current absolute read offset.
func (p *Parser) Pos() int { return p.pos }

// Mark pushes the current position onto the mark stack.
func (p *Parser) Mark() { p.marks = append(p.marks, p.pos) }

// Rewind pops the most recent mark and resets the position to it. It
// returns an ErrorNoMark error if the mark stack is empty.
func (p *Parser) Rewind() error {
	if len(p.marks) == 0 {
		return errors.NewCodeError(ErrorNoMark).Error(nil)
	}
	n := len(p.marks) - 1
	p.pos = p.marks[n]
	p.marks = p.marks[:n]
	return nil
}

// Discard pops the most recent mark without moving the position, committing
// to everything consumed since it was pushed.
func (p *Parser) Discard() {
	if len(p.marks) > 0 {
		p.marks = p.marks[:len(p.marks)-1]
	}
}

// Peek returns up to n unconsumed bytes without advancing the position.
func (p *Parser) Peek(n int) []byte {
	if n > p.Len() {
		n = p.Len()
	}
	return p.src[p.pos : p.pos+n]
}

// Consume advances the position by n bytes and returns them. It panics if n
// exceeds the unconsumed length; callers must check Len first.
func (p *Parser) Consume(n int) []byte {
	if n > p.Len() {
		panic("buf: Consume past end of parser")
	}
	b := p.src[p.pos : p.pos+n]
	p.pos += n
	return b
}

// ConsumeByte consumes and returns a single byte.
func (p *Parser) ConsumeByte() (byte, bool) {
	if p.Len() < 1 {
		return 0, false
	}
	c := p.src[p.pos]
	p.pos++
	return c, true
}

// ConsumeUint24 reads a 3-byte big-endian unsigned integer (used by the
// HTTP/2 frame length field).
func (p *Parser) ConsumeUint24() (uint32, bool) {
	if p.Len() < 3 {
		return 0, false
	}
	b := p.Consume(3)
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), true
}

// ConsumeUint32 reads a 4-byte big-endian unsigned integer.
func (p *Parser) ConsumeUint32() (uint32, bool) {
	if p.Len() < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(p.Consume(4)), true
}

// ConsumeUint16 reads a 2-byte big-endian unsigned integer.
func (p *Parser) ConsumeUint16() (uint16, bool) {
	if p.Len() < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(p.Consume(2)), true
}

// IndexByte returns the offset (relative to the current position) of the
// first occurrence of c in the unconsumed region, or -1.
func (p *Parser) IndexByte(c byte) int {
	for i := p.pos; i < len(p.src); i++ {
		if p.src[i] == c {
			return i - p.pos
		}
	}
	return -1
}

// Index returns the offset (relative to the current position) of the first
// occurrence of sub in the unconsumed region, or -1.
func (p *Parser) Index(sub []byte) int {
	if len(sub) == 0 {
		return 0
	}
	rest := p.src[p.pos:]
outer:
	for i := 0; i+len(sub) <= len(rest); i++ {
		for j := range sub {
			if rest[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
