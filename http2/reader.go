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

package http2

import (
	"bytes"

	"github.com/sabouaram/netcore/buf"
	"github.com/sabouaram/netcore/errors"
)

// ReaderState names where Http2Reader is within one frame's lifecycle.
type ReaderState uint8

const (
	StateFrameBegin ReaderState = iota
	StateFrameBody
	StateFrameEnd
)

// Preface is the fixed connection preface a client must send before any
// frame, per RFC 7540 §3.5.
const Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// DetectPreface reports whether p currently holds the full preface at its
// read position, consuming it if so.
func DetectPreface(p *buf.Parser) bool {
	if p.Len() < len(Preface) {
		return false
	}
	if !bytes.Equal(p.Peek(len(Preface)), []byte(Preface)) {
		return false
	}
	p.Consume(len(Preface))
	return true
}

// Setting is one decoded entry of a SETTINGS frame.
type Setting struct {
	ID    SettingType
	Value uint32
}

// Event is what Http2Reader.Next produced for one frame.
type Event struct {
	Header FrameHdr

	// Exactly one of the following is populated, selected by Header.Type.
	DataPayload     []byte
	HeaderFields    []HeaderField
	Settings        []Setting
	GoawayCode      uint32
	GoawayLastSID   uint32
	GoawayDebugData []byte

	// Unsupported is true for frame types/contents this reader
	// acknowledges but does not decode further (PushPromise, Ping,
	// Priority, RstStream, WindowUpdate, Continuation, and any
	// dynamic-table-touching HEADERS field).
	Unsupported bool
}

// Http2Reader is a pull-style frame decoder: each Next call consumes
// exactly one frame from p, or reports MoreData if the frame body hasn't
// fully arrived yet (mirroring buf.Parser's mark/rewind resumability
// contract used by http1.Http1Parser).
type Http2Reader struct {
	state ReaderState
}

// Outcome classifies what one Http2Reader.Next call produced.
type Outcome uint8

const (
	// Success means one complete frame was decoded.
	Success Outcome = iota
	// MoreData means the frame has not fully arrived; nothing was consumed.
	MoreData
	// FormatError means the frame is malformed; NextResult.Err says why.
	FormatError
)

// NextResult is the outcome of one Http2Reader.Next call.
type NextResult struct {
	Outcome Outcome // reuses http1-style outcomes: Success / MoreData / FormatError
	Event   Event

	// Err carries the specific errors.Error (InvalidFrameType,
	// InvalidSettingType, MisalignedSettings, InvalidTableIndex, ...) when
	// Outcome is FormatError. Nil otherwise.
	Err error
}

// Next attempts to decode one frame from p. On MoreData, p's position is
// unchanged.
func (r *Http2Reader) Next(p *buf.Parser) NextResult {
	p.Mark()
	r.state = StateFrameBegin

	hdr, ok := DecodeFrameHdr(p)
	if !ok {
		_ = p.Rewind()
		return NextResult{Outcome: MoreData}
	}
	r.state = StateFrameBody

	if p.Len() < int(hdr.Length) {
		_ = p.Rewind()
		return NextResult{Outcome: MoreData}
	}
	body := p.Consume(int(hdr.Length))
	p.Discard()
	r.state = StateFrameEnd

	ev := Event{Header: hdr}

	if !isKnownFrameType(hdr.Type) {
		return NextResult{Outcome: FormatError, Err: errors.NewCodeError(ErrorInvalidFrameType).Error(nil)}
	}

	switch hdr.Type {
	case FrameData:
		ev.DataPayload = stripPadding(hdr.Flags, body)

	case FrameHeaders:
		payload := stripPadding(hdr.Flags, body)
		payload = stripPriority(hdr.Flags, payload)
		var fields []HeaderField
		err := DecodeHeaderBlock(payload, func(f HeaderField) { fields = append(fields, f) })
		ev.HeaderFields = fields
		if err != nil {
			if ce, ok := err.(errors.Error); ok && ce.IsCode(ErrorHpackInvalidTableIndex) {
				return NextResult{Outcome: FormatError, Err: err}
			}
			ev.Unsupported = true
		}

	case FrameSettings:
		const flagAck = 0x1
		if hdr.Flags&flagAck != 0 {
			if len(body) != 0 {
				return NextResult{Outcome: FormatError, Err: errors.NewCodeError(ErrorMisalignedSettings).Error(nil)}
			}
		} else {
			if len(body)%6 != 0 {
				return NextResult{Outcome: FormatError, Err: errors.NewCodeError(ErrorMisalignedSettings).Error(nil)}
			}
			var settings []Setting
			for i := 0; i+6 <= len(body); i += 6 {
				id := SettingType(uint16(body[i])<<8 | uint16(body[i+1]))
				val := uint32(body[i+2])<<24 | uint32(body[i+3])<<16 | uint32(body[i+4])<<8 | uint32(body[i+5])
				if !isKnownSetting(id) {
					return NextResult{Outcome: FormatError, Err: errors.NewCodeError(ErrorInvalidSettingType).Error(nil)}
				}
				settings = append(settings, Setting{ID: id, Value: val})
			}
			ev.Settings = settings
		}

	case FrameGoaway:
		if len(body) < 8 {
			return NextResult{Outcome: FormatError, Err: errors.NewCodeError(ErrorProtoFormat).Error(nil)}
		}
		ev.GoawayLastSID = uint32(body[0])<<24 | uint32(body[1])<<16 | uint32(body[2])<<8 | uint32(body[3])
		ev.GoawayLastSID &= 0x7FFFFFFF
		ev.GoawayCode = uint32(body[4])<<24 | uint32(body[5])<<16 | uint32(body[6])<<8 | uint32(body[7])
		ev.GoawayDebugData = body[8:]

	default:
		// PushPromise, Priority, RstStream, Ping, WindowUpdate,
		// Continuation: acknowledged, not decoded.
		ev.Unsupported = true
	}

	return NextResult{Outcome: Success, Event: ev}
}

func stripPadding(flags uint8, body []byte) []byte {
	const flagPadded = 0x8
	if flags&flagPadded == 0 || len(body) == 0 {
		return body
	}
	padLen := int(body[0])
	if padLen+1 > len(body) {
		return body
	}
	return body[1 : len(body)-padLen]
}

func stripPriority(flags uint8, body []byte) []byte {
	const flagPriority = 0x20
	if flags&flagPriority == 0 || len(body) < 5 {
		return body
	}
	return body[5:]
}
