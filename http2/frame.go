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

// Package http2 implements the RFC 7540 frame codec and an RFC 7541
// HPACK decoder restricted to the static table (no dynamic table), as a
// hand-rolled state machine over buf.Parser.
package http2

import (
	"github.com/sabouaram/netcore/buf"
	"github.com/sabouaram/netcore/errors"
)

// FrameType enumerates the recognized HTTP/2 frame types.
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRstStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoaway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9
)

func isKnownFrameType(t FrameType) bool {
	return t <= FrameContinuation
}

// SettingType enumerates RFC 7540 §11.3 settings plus the two extension
// settings used by modern deployments.
type SettingType uint16

const (
	SettingHeaderTableSize      SettingType = 0x1
	SettingEnablePush           SettingType = 0x2
	SettingMaxConcurrentStreams SettingType = 0x3
	SettingInitialWindowSize    SettingType = 0x4
	SettingMaxFrameSize         SettingType = 0x5
	SettingMaxHeaderListSize    SettingType = 0x6
	SettingEnableConnectProtocol SettingType = 0x8
	SettingNoRFC7540Priorities  SettingType = 0x9
)

func isKnownSetting(t SettingType) bool {
	switch t {
	case SettingHeaderTableSize, SettingEnablePush, SettingMaxConcurrentStreams,
		SettingInitialWindowSize, SettingMaxFrameSize, SettingMaxHeaderListSize,
		SettingEnableConnectProtocol, SettingNoRFC7540Priorities:
		return true
	default:
		return false
	}
}

const (
	ErrorInvalidFrameType = errors.MinPkgHttp2 + iota
	ErrorInvalidSettingType
	ErrorMisalignedSettings
	ErrorProtoFormat
)

func init() {
	errors.RegisterIdFctMessage(ErrorInvalidFrameType, getMessage)
	errors.RegisterIdFctMessage(ErrorInvalidSettingType, getMessage)
	errors.RegisterIdFctMessage(ErrorMisalignedSettings, getMessage)
	errors.RegisterIdFctMessage(ErrorProtoFormat, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorInvalidFrameType:
		return "http2: invalid frame type"
	case ErrorInvalidSettingType:
		return "http2: invalid setting type"
	case ErrorMisalignedSettings:
		return "http2: settings frame length invalid (must be 0 when ACK is set, a multiple of 6 otherwise)"
	case ErrorProtoFormat:
		return "http2: malformed frame"
	default:
		return ""
	}
}

// FrameHdr is the 9-byte frame header common to every HTTP/2 frame.
type FrameHdr struct {
	Length   uint32 // 24-bit
	Type     FrameType
	Flags    uint8
	Reserved bool // top bit of the stream identifier (the "R" bit)
	StreamID uint32
}

// EncodeFrameHdr writes the 9-byte wire representation of h to out.
func EncodeFrameHdr(out *buf.Buf, h FrameHdr) {
	out.Write([]byte{
		byte(h.Length >> 16),
		byte(h.Length >> 8),
		byte(h.Length),
		byte(h.Type),
		h.Flags,
	})

	sid := h.StreamID & 0x7FFFFFFF
	if h.Reserved {
		sid |= 0x80000000
	}
	out.Write([]byte{
		byte(sid >> 24),
		byte(sid >> 16),
		byte(sid >> 8),
		byte(sid),
	})
}

// DecodeFrameHdr reads a 9-byte frame header from p. ok is false if fewer
// than 9 bytes remain (caller must wait for more data).
func DecodeFrameHdr(p *buf.Parser) (FrameHdr, bool) {
	if p.Len() < 9 {
		return FrameHdr{}, false
	}

	length, _ := p.ConsumeUint24()
	typ, _ := p.ConsumeByte()
	flags, _ := p.ConsumeByte()
	raw, _ := p.ConsumeUint32()

	return FrameHdr{
		Length:   length,
		Type:     FrameType(typ),
		Flags:    flags,
		Reserved: raw&0x80000000 != 0,
		StreamID: raw & 0x7FFFFFFF,
	}, true
}
