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

// Package base64 wraps the standard encoding/base64 codec with a
// whitespace-tolerant decoder and a MIME line-wrapping writer, the way
// mail bodies need it.
package base64

import (
	"encoding/base64"
	"io"
	"strings"
)

const maxLineChars = 76

// Encode returns the standard base64 encoding of b.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode reverses Encode. Any whitespace (space, tab, CR, LF) interspersed in
// s is stripped before decoding, so line-wrapped input round-trips.
func Decode(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		default:
			return r
		}
	}, s)
	return base64.StdEncoding.DecodeString(s)
}

// lineWrap inserts a CRLF every maxLineChars encoded characters, the way a
// MIME base64 body part must be wrapped.
type lineWrap struct {
	w    io.Writer
	col  int
}

// NewLineWrapWriter returns a writer that inserts CRLF every 76 encoded
// characters and forwards the wrapped stream to w.
func NewLineWrapWriter(w io.Writer) io.Writer {
	return &lineWrap{w: w}
}

func (e *lineWrap) Write(p []byte) (int, error) {
	n := 0
	for len(p)+e.col > maxLineChars {
		take := maxLineChars - e.col
		if _, err := e.w.Write(p[:take]); err != nil {
			return n, err
		}
		if _, err := e.w.Write([]byte("\r\n")); err != nil {
			return n, err
		}
		e.col = 0
		p = p[take:]
		n += take
	}

	if len(p) > 0 {
		if _, err := e.w.Write(p); err != nil {
			return n, err
		}
		e.col += len(p)
		n += len(p)
	}

	return n, nil
}

// NewEncoder returns a base64 stream encoder that line-wraps its output at
// 76 characters, suitable for mail body parts.
func NewEncoder(w io.Writer) io.WriteCloser {
	return base64.NewEncoder(base64.StdEncoding, NewLineWrapWriter(w))
}
