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

// Package iotls is an ioevent layer that wraps the layer below it with a
// crypto/tls client handshake, configured through the kept certificates
// package (spec §4.4 step 3: "stack a TLS client layer using the
// configured context").
package iotls

import (
	"crypto/tls"
	"io"
	"sync"

	"github.com/sabouaram/netcore/certificates"
	"github.com/sabouaram/netcore/errors"
	"github.com/sabouaram/netcore/ioevent"
)

const (
	ErrorHandshake = errors.MinPkgIOTLS + iota
	ErrorNoConfig
)

func init() {
	errors.RegisterIdFctMessage(ErrorHandshake, message)
	errors.RegisterIdFctMessage(ErrorNoConfig, message)
}

func message(code errors.CodeError) string {
	switch code {
	case ErrorHandshake:
		return "iotls: handshake failed"
	case ErrorNoConfig:
		return "iotls: no TLS configuration supplied"
	default:
		return ""
	}
}

// rawLayerIO adapts the layer directly beneath this one to io.ReadWriter
// so crypto/tls.Client can drive it.
type rawLayerIO struct {
	below ioevent.IoLayer
}

func (r rawLayerIO) Read(p []byte) (int, error) {
	n, e := r.below.Read(p, nil)
	if e == ioevent.WouldBlock {
		return n, nil
	}
	if e.IsError() {
		return n, io.ErrClosedPipe
	}
	return n, nil
}

func (r rawLayerIO) Write(p []byte) (int, error) {
	n, e := r.below.Write(p, nil)
	if e == ioevent.WouldBlock {
		return n, nil
	}
	if e.IsError() {
		return n, io.ErrClosedPipe
	}
	return n, nil
}

// Layer is a TLS client layer stacked on top of a lower (socket) layer.
type Layer struct {
	mu        sync.Mutex
	below     ioevent.IoLayer
	conn      *tls.Conn
	state     ioevent.IoState
	lastErr   string
	handshook bool
}

var _ ioevent.IoLayer = (*Layer)(nil)

// New wraps below with a TLS client configured from cfg for the given
// server name. Pass cfg == nil and an error is returned immediately
// (spec: "fail TlsSetupFailure / TlsRequired if unavailable").
func New(below ioevent.IoLayer, cfg certificates.TLSConfig, serverName string) (*Layer, error) {
	if cfg == nil {
		return nil, errors.NewCodeError(ErrorNoConfig).Error(nil)
	}

	tlsCfg := cfg.TlsConfig(serverName)
	conn := tls.Client(rawLayerIO{below: below}, tlsCfg)

	return &Layer{below: below, conn: conn, state: ioevent.Connecting}, nil
}

// Init satisfies ioevent.IoLayer.
func (l *Layer) Init(_ *ioevent.Io, _ int) bool { return true }

func (l *Layer) ensureHandshake() ioevent.IoError {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handshook {
		return ioevent.Success
	}
	if err := l.conn.Handshake(); err != nil {
		l.lastErr = err.Error()
		l.state = ioevent.StateError
		return ioevent.ErrError
	}
	l.handshook = true
	l.state = ioevent.Connected
	return ioevent.Success
}

// Read performs the handshake lazily, then reads decrypted application
// data.
func (l *Layer) Read(p []byte, _ ioevent.IoMeta) (int, ioevent.IoError) {
	if e := l.ensureHandshake(); e != ioevent.Success {
		return 0, e
	}
	n, err := l.conn.Read(p)
	if err == nil {
		return n, ioevent.Success
	}
	if err == io.EOF {
		return n, ioevent.Disconnect
	}
	l.mu.Lock()
	l.lastErr = err.Error()
	l.mu.Unlock()
	return n, ioevent.ErrError
}

// Write performs the handshake lazily, then writes plaintext application
// data (encrypted to the layer below).
func (l *Layer) Write(p []byte, _ ioevent.IoMeta) (int, ioevent.IoError) {
	if e := l.ensureHandshake(); e != ioevent.Success {
		return 0, e
	}
	n, err := l.conn.Write(p)
	if err == nil {
		return n, ioevent.Success
	}
	l.mu.Lock()
	l.lastErr = err.Error()
	l.mu.Unlock()
	return n, ioevent.ErrError
}

// ProcessEvent lets a Connected event trigger the handshake eagerly;
// everything else passes through unconsumed.
func (l *Layer) ProcessEvent(ev ioevent.EventType) bool {
	if ev == ioevent.EventConnected {
		l.ensureHandshake()
	}
	return false
}

// State reports Connected only once the handshake has completed.
func (l *Layer) State() ioevent.IoState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ErrorMessage returns the last TLS error, if any.
func (l *Layer) ErrorMessage() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastErr == "" {
		return "", false
	}
	return l.lastErr, true
}

// Disconnect sends a TLS close_notify.
func (l *Layer) Disconnect() bool {
	l.mu.Lock()
	l.state = ioevent.Disconnecting
	l.mu.Unlock()
	return l.conn.Close() == nil
}

// Unregister is a no-op; the lower layer owns the real fd registration.
func (l *Layer) Unregister() {}

// Destroy closes the TLS connection.
func (l *Layer) Destroy() {
	l.mu.Lock()
	l.state = ioevent.Disconnected
	l.mu.Unlock()
	_ = l.conn.Close()
}
