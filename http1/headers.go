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

// Package http1 implements the RFC 7230 request/response header model, a
// one-shot writer and an incremental parser, on top of buf.Buf/buf.Parser.
package http1

import (
	"net/textproto"
	"strings"
)

// nonSplittable holds the canonical header names whose multiple occurrences
// must never be comma-joined; their verbatim value is preserved instead.
var nonSplittable = map[string]bool{
	"Www-Authenticate":   true,
	"Proxy-Authorization": true,
	"Content-Type":       true,
	"Date":               true,
}

// Canonical returns the canonical MIME header name for name (e.g.
// "content-type" -> "Content-Type").
func Canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// AttrMap is a case-insensitive, insertion-ordered map of `;`-delimited
// header value modifiers (key[=value] pairs).
type AttrMap struct {
	keys []string
	vals map[string]string
}

// NewAttrMap returns an empty AttrMap.
func NewAttrMap() *AttrMap {
	return &AttrMap{vals: make(map[string]string)}
}

// Set adds or overwrites an attribute, preserving first-seen insertion
// order.
func (a *AttrMap) Set(key, value string) {
	lk := strings.ToLower(key)
	if _, ok := a.vals[lk]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[lk] = value
}

// Get returns an attribute's value (case-insensitive lookup).
func (a *AttrMap) Get(key string) (string, bool) {
	v, ok := a.vals[strings.ToLower(key)]
	return v, ok
}

// Keys returns the attribute names in insertion order.
func (a *AttrMap) Keys() []string { return a.keys }

// String renders the attribute map as `; key=value` (or bare `; key` when
// the value is empty), in insertion order.
func (a *AttrMap) String() string {
	if a == nil || len(a.keys) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, k := range a.keys {
		sb.WriteString("; ")
		sb.WriteString(k)
		if v := a.vals[strings.ToLower(k)]; v != "" {
			sb.WriteByte('=')
			sb.WriteString(v)
		}
	}
	return sb.String()
}

// headerValue is one occurrence of a header: a bare value plus its
// modifier attributes.
type headerValue struct {
	Value string
	Attrs *AttrMap
}

// HttpHeaders is a case-insensitive, insertion-ordered multimap from
// canonical header name to an ordered list of (value, attributes) pairs.
type HttpHeaders struct {
	order []string
	m     map[string][]headerValue
}

// NewHttpHeaders returns an empty header multimap.
func NewHttpHeaders() *HttpHeaders {
	return &HttpHeaders{m: make(map[string][]headerValue)}
}

// Add appends a new occurrence of name (canonicalised), with optional
// attributes.
func (h *HttpHeaders) Add(name, value string, attrs *AttrMap) {
	cn := Canonical(name)
	if _, ok := h.m[cn]; !ok {
		h.order = append(h.order, cn)
	}
	h.m[cn] = append(h.m[cn], headerValue{Value: value, Attrs: attrs})
}

// Set replaces all occurrences of name with a single value.
func (h *HttpHeaders) Set(name, value string) {
	cn := Canonical(name)
	if _, ok := h.m[cn]; !ok {
		h.order = append(h.order, cn)
	}
	h.m[cn] = []headerValue{{Value: value}}
}

// Has reports whether name has at least one occurrence.
func (h *HttpHeaders) Has(name string) bool {
	_, ok := h.m[Canonical(name)]
	return ok
}

// Values returns every raw value stored for name, in insertion order.
func (h *HttpHeaders) Values(name string) []string {
	vs := h.m[Canonical(name)]
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Value
	}
	return out
}

// Get returns the serialized value for name: non-splittable headers return
// their single verbatim value; all others are joined with ", " per multiple
// occurrence, each value's attribute modifiers appended.
func (h *HttpHeaders) Get(name string) (string, bool) {
	cn := Canonical(name)
	vs, ok := h.m[cn]
	if !ok || len(vs) == 0 {
		return "", false
	}

	if nonSplittable[cn] {
		return vs[0].Value + vs[0].Attrs.String(), true
	}

	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.Value + v.Attrs.String()
	}
	return strings.Join(parts, ", "), true
}

// Del removes all occurrences of name.
func (h *HttpHeaders) Del(name string) {
	cn := Canonical(name)
	if _, ok := h.m[cn]; !ok {
		return
	}
	delete(h.m, cn)
	for i, n := range h.order {
		if n == cn {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Names returns the canonical header names in first-insertion order.
func (h *HttpHeaders) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// IsNonSplittable reports whether a canonical header name must not be
// comma-joined across multiple occurrences.
func IsNonSplittable(canonicalName string) bool {
	return nonSplittable[canonicalName]
}
