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

// Package ioevent implements a non-blocking, single-threaded-per-loop
// event-driven I/O chain: a stack of layers (socket, TLS, trace, ...)
// bottom-up, driven by an EventLoop.
package ioevent

import "fmt"

// IoError is the result of any state-changing I/O operation.
type IoError uint8

const (
	Success IoError = iota
	WouldBlock
	Disconnect
	ErrError
	TimedOut
	ConnRefused
	NotFound
	Invalid
	NoSysResources
	ProtoNotSupported
	TlsRequired
	TlsSetupFailure
	Internal
)

func (e IoError) String() string {
	switch e {
	case Success:
		return "Success"
	case WouldBlock:
		return "WouldBlock"
	case Disconnect:
		return "Disconnect"
	case ErrError:
		return "Error"
	case TimedOut:
		return "TimedOut"
	case ConnRefused:
		return "ConnRefused"
	case NotFound:
		return "NotFound"
	case Invalid:
		return "Invalid"
	case NoSysResources:
		return "NoSysResources"
	case ProtoNotSupported:
		return "ProtoNotSupported"
	case TlsRequired:
		return "TlsRequired"
	case TlsSetupFailure:
		return "TlsSetupFailure"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("IoError(%d)", uint8(e))
	}
}

// IsError reports whether e is anything but Success or WouldBlock (which
// spec §4.1 singles out as not an error and not state-changing).
func (e IoError) IsError() bool {
	return e != Success && e != WouldBlock
}

// IoState is the lifecycle state of an Io. Transitions are monotonic
// except that Connected may terminate via either Disconnecting/
// Disconnected or Error.
type IoState uint8

const (
	Init IoState = iota
	Connecting
	Connected
	Disconnecting
	Disconnected
	StateError
	Listening
)

func (s IoState) String() string {
	switch s {
	case Init:
		return "Init"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnecting:
		return "Disconnecting"
	case Disconnected:
		return "Disconnected"
	case StateError:
		return "Error"
	case Listening:
		return "Listening"
	default:
		return fmt.Sprintf("IoState(%d)", uint8(s))
	}
}

// EventType classifies what happened to an Io.
type EventType uint8

const (
	EventConnected EventType = iota
	EventRead
	EventWrite
	EventDisconnected
	EventError
	EventAccept
	EventOther
)

func (e EventType) String() string {
	switch e {
	case EventConnected:
		return "Connected"
	case EventRead:
		return "Read"
	case EventWrite:
		return "Write"
	case EventDisconnected:
		return "Disconnected"
	case EventError:
		return "Error"
	case EventAccept:
		return "Accept"
	case EventOther:
		return "Other"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(e))
	}
}

// RunOutcome is what EventLoop.Run returns.
type RunOutcome uint8

const (
	RunDone RunOutcome = iota
	RunReturnedEarly
	RunTimeout
	RunMisuse
)
