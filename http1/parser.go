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

package http1

import (
	"strconv"
	"strings"

	"github.com/sabouaram/netcore/buf"
)

// Outcome classifies what a parse attempt produced.
type Outcome uint8

const (
	// Success means a complete HttpMessage was produced.
	Success Outcome = iota
	// MoreData means the parser needs more bytes; nothing was consumed
	// past the caller's mark.
	MoreData
	// SuccessMorePossible means headers (and any body so far) parsed, but
	// there is no Content-Length/chunked framing to know where the body
	// ends; the caller must keep feeding bytes and re-parse on EOF.
	SuccessMorePossible
	// FormatError means the input violates RFC 7230 framing.
	FormatError
)

// ParseResult is the outcome of one Http1Parser.Parse call.
type ParseResult struct {
	Outcome Outcome
	Message *HttpMessage
	Detail  string
}

// Http1Parser incrementally parses a byte stream into Requests or
// Responses. It is resumable: Parse restores its read position only when
// it returns MoreData; every other outcome leaves the bytes it read
// consumed.
type Http1Parser struct {
	// ForResponse selects response-line parsing (status line) instead of
	// request-line parsing.
	ForResponse bool
}

// Parse attempts to parse one complete message from p. On MoreData, p's
// position is left unchanged (via mark/rewind) so the caller can append
// more bytes and retry.
func (hp *Http1Parser) Parse(p *buf.Parser) ParseResult {
	p.Mark()

	firstLine, ok := readLine(p)
	if !ok {
		_ = p.Rewind()
		return ParseResult{Outcome: MoreData}
	}

	headers := NewHttpHeaders()
	for {
		line, ok := readLine(p)
		if !ok {
			_ = p.Rewind()
			return ParseResult{Outcome: MoreData}
		}
		if line == "" {
			break
		}
		if err := addHeaderLine(headers, line); err != nil {
			p.Discard()
			return ParseResult{Outcome: FormatError, Detail: err.Error()}
		}
	}

	clStr, hasCL := headers.Get("Content-Length")
	hasChunked := headerContainsToken(headers, "Transfer-Encoding", "chunked")

	var body []byte
	switch {
	case hasChunked:
		b, ok, bad := readChunkedBody(p)
		if bad {
			p.Discard()
			return ParseResult{Outcome: FormatError, Detail: "invalid chunk size"}
		}
		if !ok {
			_ = p.Rewind()
			return ParseResult{Outcome: MoreData}
		}
		body = b
	case hasCL:
		n, err := strconv.Atoi(strings.TrimSpace(clStr))
		if err != nil || n < 0 {
			p.Discard()
			return ParseResult{Outcome: FormatError, Detail: "invalid Content-Length"}
		}
		if p.Len() < n {
			_ = p.Rewind()
			return ParseResult{Outcome: MoreData}
		}
		body = p.Consume(n)
	default:
		// No framing information: take whatever is currently available
		// and tell the caller there may be more (only finalized on EOF).
		body = p.Consume(p.Len())
		p.Discard()

		msg := hp.buildMessage(firstLine, headers, body)
		return ParseResult{Outcome: SuccessMorePossible, Message: msg}
	}

	p.Discard()
	return ParseResult{Outcome: Success, Message: hp.buildMessage(firstLine, headers, body)}
}

func (hp *Http1Parser) buildMessage(firstLine string, headers *HttpHeaders, body []byte) *HttpMessage {
	ct, charset := "", ""
	if v, ok := headers.Get("Content-Type"); ok {
		ct, charset = ParseContentType(v)
	}

	if hp.ForResponse {
		parts := strings.SplitN(firstLine, " ", 3)
		status := 0
		reason := ""
		if len(parts) >= 2 {
			status, _ = strconv.Atoi(parts[1])
		}
		if len(parts) == 3 {
			reason = parts[2]
		}
		return &HttpMessage{Response: &Response{
			Status:      status,
			Reason:      reason,
			ContentType: ct,
			Charset:     charset,
			Headers:     headers,
			Body:        body,
		}}
	}

	parts := strings.SplitN(firstLine, " ", 3)
	var method Method
	uri := ""
	if len(parts) >= 2 {
		method, _ = ParseMethod(parts[0])
		uri = parts[1]
	}

	host, port := "", 0
	if hv, ok := headers.Get("Host"); ok {
		host, port = splitHostPort(hv)
	}

	return &HttpMessage{Request: &Request{
		Method:      method,
		Host:        host,
		Port:        port,
		URI:         uri,
		ContentType: ct,
		Charset:     charset,
		Headers:     headers,
		Body:        body,
	}}
}

func splitHostPort(hostport string) (string, int) {
	if i := strings.LastIndex(hostport, ":"); i >= 0 {
		if n, err := strconv.Atoi(hostport[i+1:]); err == nil {
			return hostport[:i], n
		}
	}
	return hostport, 0
}

// readLine consumes through the next line terminator (tolerating a bare LF
// on input per §6), returning the line without its terminator. ok is false
// if no terminator is present yet.
func readLine(p *buf.Parser) (string, bool) {
	idx := p.IndexByte('\n')
	if idx < 0 {
		return "", false
	}

	raw := p.Consume(idx + 1)
	line := raw[:len(raw)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return string(line), true
}

func addHeaderLine(h *HttpHeaders, line string) error {
	i := strings.Index(line, ":")
	if i < 0 {
		return errFormat("malformed header line")
	}

	name := strings.TrimSpace(line[:i])
	rawValue := strings.TrimSpace(line[i+1:])

	cn := Canonical(name)
	if IsNonSplittable(cn) {
		h.Add(name, rawValue, nil)
		return nil
	}

	value, attrs := splitValueAttrs(rawValue)
	h.Add(name, value, attrs)
	return nil
}

func splitValueAttrs(raw string) (string, *AttrMap) {
	parts := strings.Split(raw, ";")
	value := strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return value, nil
	}

	attrs := NewAttrMap()
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if kv := strings.SplitN(p, "=", 2); len(kv) == 2 {
			attrs.Set(strings.TrimSpace(kv[0]), strings.Trim(strings.TrimSpace(kv[1]), `"`))
		} else {
			attrs.Set(p, "")
		}
	}
	return value, attrs
}

func headerContainsToken(h *HttpHeaders, name, token string) bool {
	for _, v := range h.Values(name) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}

// readChunkedBody decodes an RFC 7230 §4.1 chunked body, returning the
// concatenated decoded payload. ok is false if the terminating
// zero-length chunk has not arrived yet; bad is true if a chunk-size line
// is malformed.
// readChunkedBody assumes the caller holds an outer mark it will rewind to
// on a false return, so this function does not manage marks itself.
func readChunkedBody(p *buf.Parser) ([]byte, bool, bool) {
	var out []byte
	for {
		line, ok := readLine(p)
		if !ok {
			return nil, false, false
		}

		sizeStr := strings.SplitN(line, ";", 2)[0]
		size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 16, 64)
		if err != nil || size < 0 {
			return nil, false, true
		}

		if size == 0 {
			// trailing CRLF after the zero chunk; trailer fields are not
			// parsed, only this one line is consumed.
			_, _ = readLine(p)
			return out, true, false
		}

		if p.Len() < int(size)+2 {
			return nil, false, false
		}

		out = append(out, p.Consume(int(size))...)
		p.Consume(2) // CRLF
	}
}

type formatError string

func (e formatError) Error() string { return string(e) }

func errFormat(msg string) error { return formatError(msg) }
