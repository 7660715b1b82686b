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

//go:build unix

// Package iosocket is the lowest ioevent layer: a non-blocking TCP client
// socket configured directly through golang.org/x/sys/unix, the way the
// event loop's layer-0 contract (spec §3.2/§4.1) expects.
package iosocket

import (
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/netcore/errors"
	"github.com/sabouaram/netcore/ioevent"
)

const (
	ErrorDial = errors.MinPkgIOSocket + iota
	ErrorSockopt
)

func init() {
	errors.RegisterIdFctMessage(ErrorDial, message)
	errors.RegisterIdFctMessage(ErrorSockopt, message)
}

func message(code errors.CodeError) string {
	switch code {
	case ErrorDial:
		return "iosocket: dial failed"
	case ErrorSockopt:
		return "iosocket: socket option setup failed"
	default:
		return ""
	}
}

// Layer is the layer-0 (socket) implementation of ioevent.IoLayer,
// exposing its file descriptor to the EventLoop's poller through
// ioevent.FdSource.
type Layer struct {
	mu    sync.Mutex
	conn  *net.TCPConn
	fd    int
	state ioevent.IoState
	lastErr string
}

var _ ioevent.IoLayer = (*Layer)(nil)
var _ ioevent.FdSource = (*Layer)(nil)

// Dial opens a non-blocking TCP client socket to addr with no connect
// deadline beyond the OS default; see DialTimeout for a bounded connect.
func Dial(network, addr string) (*Layer, error) {
	return DialTimeout(network, addr, 0)
}

// DialTimeout opens a non-blocking TCP client socket to addr, applying
// SO_REUSEADDR and TCP_NODELAY via raw syscalls (spec's "lowest socket
// layer" setup), bounding the connect itself by timeout (0 means no
// bound). A connect that does not complete within timeout returns
// ErrorDial wrapping a timeout error, which httpclient maps onto
// NetError::TimeoutConnect.
func DialTimeout(network, addr string, timeout time.Duration) (*Layer, error) {
	raddr, err := net.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, errors.NewCodeError(ErrorDial).Error(err)
	}

	var conn *net.TCPConn
	if timeout > 0 {
		c, err := net.DialTimeout(network, raddr.String(), timeout)
		if err != nil {
			return nil, errors.NewCodeError(ErrorDial).Error(err)
		}
		conn = c.(*net.TCPConn)
	} else {
		conn, err = net.DialTCP(network, nil, raddr)
		if err != nil {
			return nil, errors.NewCodeError(ErrorDial).Error(err)
		}
	}

	l := &Layer{conn: conn, state: ioevent.Connecting}

	raw, err := conn.SyscallConn()
	if err != nil {
		_ = conn.Close()
		return nil, errors.NewCodeError(ErrorSockopt).Error(err)
	}

	var sockErr error
	_ = raw.Control(func(fd uintptr) {
		l.fd = int(fd)

		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetNonblock(int(fd), true); e != nil {
			sockErr = e
			return
		}
	})
	if sockErr != nil {
		_ = conn.Close()
		return nil, errors.NewCodeError(ErrorSockopt).Error(sockErr)
	}

	l.state = ioevent.Connected
	return l, nil
}

// Fd satisfies ioevent.FdSource.
func (l *Layer) Fd() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fd
}

// Init satisfies ioevent.IoLayer; the socket layer has no dependency on
// layer index since it is always layer 0.
func (l *Layer) Init(_ *ioevent.Io, _ int) bool { return true }

// Read reads directly from the OS socket, translating EAGAIN/EWOULDBLOCK
// into ioevent.WouldBlock per spec §4.1 ("WouldBlock is not an error").
func (l *Layer) Read(p []byte, _ ioevent.IoMeta) (int, ioevent.IoError) {
	n, err := l.conn.Read(p)
	if err == nil {
		return n, ioevent.Success
	}
	return n, l.classify(err)
}

// Write writes directly to the OS socket.
func (l *Layer) Write(p []byte, _ ioevent.IoMeta) (int, ioevent.IoError) {
	n, err := l.conn.Write(p)
	if err == nil {
		return n, ioevent.Success
	}
	return n, l.classify(err)
}

func (l *Layer) classify(err error) ioevent.IoError {
	l.mu.Lock()
	l.lastErr = err.Error()
	l.mu.Unlock()

	if sysErr, ok := err.(syscall.Errno); ok && (sysErr == syscall.EAGAIN || sysErr == syscall.EWOULDBLOCK) {
		return ioevent.WouldBlock
	}
	if ne, ok := err.(*net.OpError); ok {
		if sysErr, ok := ne.Err.(syscall.Errno); ok {
			switch sysErr {
			case syscall.EAGAIN, syscall.EWOULDBLOCK:
				return ioevent.WouldBlock
			case syscall.ECONNREFUSED:
				return ioevent.ConnRefused
			case syscall.ETIMEDOUT:
				return ioevent.TimedOut
			}
		}
	}

	l.mu.Lock()
	l.state = ioevent.StateError
	l.mu.Unlock()
	return ioevent.ErrError
}

// ProcessEvent is a no-op at layer 0: events always originate here, they
// are never consumed before reaching it.
func (l *Layer) ProcessEvent(_ ioevent.EventType) bool { return false }

// State reports the socket's lifecycle state.
func (l *Layer) State() ioevent.IoState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ErrorMessage returns the last classified error's message, if any.
func (l *Layer) ErrorMessage() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastErr == "" {
		return "", false
	}
	return l.lastErr, true
}

// Disconnect half-closes the socket for writing and marks Disconnecting.
func (l *Layer) Disconnect() bool {
	l.mu.Lock()
	l.state = ioevent.Disconnecting
	l.mu.Unlock()
	return l.conn.CloseWrite() == nil
}

// Unregister is a no-op: the EventLoop removes the fd from its poller via
// Io.Destroy, not the layer itself.
func (l *Layer) Unregister() {}

// Destroy closes the underlying socket.
func (l *Layer) Destroy() {
	l.mu.Lock()
	l.state = ioevent.Disconnected
	l.mu.Unlock()
	_ = l.conn.Close()
}
