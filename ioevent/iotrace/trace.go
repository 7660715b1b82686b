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

// Package iotrace is a pass-through ioevent layer that logs every
// read/write/event through github.com/hashicorp/go-hclog, for diagnosing
// the layer chain during development (spec §4.1: "socket -> TLS -> trace
// -> protocol").
package iotrace

import (
	hclog "github.com/hashicorp/go-hclog"

	"github.com/sabouaram/netcore/ioevent"
)

// Layer wraps below, logging every operation at trace/debug level without
// altering data or control flow.
type Layer struct {
	below ioevent.IoLayer
	log   hclog.Logger
	name  string
}

var _ ioevent.IoLayer = (*Layer)(nil)

// New wraps below with a trace layer named name, logging through log (a
// nil log falls back to hclog.Default()).
func New(below ioevent.IoLayer, name string, log hclog.Logger) *Layer {
	if log == nil {
		log = hclog.Default()
	}
	return &Layer{below: below, log: log.Named(name), name: name}
}

// Init satisfies ioevent.IoLayer.
func (l *Layer) Init(_ *ioevent.Io, idx int) bool {
	l.log.Trace("layer initialized", "index", idx)
	return true
}

// Read delegates to the lower layer, logging the outcome.
func (l *Layer) Read(p []byte, meta ioevent.IoMeta) (int, ioevent.IoError) {
	n, e := l.below.Read(p, meta)
	l.log.Trace("read", "bytes", n, "result", e.String())
	return n, e
}

// Write delegates to the lower layer, logging the outcome.
func (l *Layer) Write(p []byte, meta ioevent.IoMeta) (int, ioevent.IoError) {
	n, e := l.below.Write(p, meta)
	l.log.Trace("write", "bytes", n, "result", e.String())
	return n, e
}

// ProcessEvent logs the event and never consumes it.
func (l *Layer) ProcessEvent(ev ioevent.EventType) bool {
	l.log.Debug("event", "type", ev.String())
	return false
}

// State delegates to the lower layer.
func (l *Layer) State() ioevent.IoState { return l.below.State() }

// ErrorMessage delegates to the lower layer.
func (l *Layer) ErrorMessage() (string, bool) { return l.below.ErrorMessage() }

// Disconnect delegates to the lower layer, logging the request.
func (l *Layer) Disconnect() bool {
	l.log.Debug("disconnect requested")
	return l.below.Disconnect()
}

// Unregister delegates to the lower layer.
func (l *Layer) Unregister() { l.below.Unregister() }

// Destroy delegates to the lower layer.
func (l *Layer) Destroy() {
	l.log.Trace("layer destroyed")
	l.below.Destroy()
}
