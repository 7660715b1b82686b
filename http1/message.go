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
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// Method is an HTTP request method token.
type Method uint8

const (
	GET Method = iota
	POST
	PUT
	DELETE
	HEAD
	OPTIONS
	PATCH
	CONNECT
	TRACE
)

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case POST:
		return "POST"
	case PUT:
		return "PUT"
	case DELETE:
		return "DELETE"
	case HEAD:
		return "HEAD"
	case OPTIONS:
		return "OPTIONS"
	case PATCH:
		return "PATCH"
	case CONNECT:
		return "CONNECT"
	case TRACE:
		return "TRACE"
	default:
		return ""
	}
}

// ParseMethod maps a request-line token back to a Method; ok is false for
// an unrecognized token.
func ParseMethod(s string) (Method, bool) {
	switch strings.ToUpper(s) {
	case "GET":
		return GET, true
	case "POST":
		return POST, true
	case "PUT":
		return PUT, true
	case "DELETE":
		return DELETE, true
	case "HEAD":
		return HEAD, true
	case "OPTIONS":
		return OPTIONS, true
	case "PATCH":
		return PATCH, true
	case "CONNECT":
		return CONNECT, true
	case "TRACE":
		return TRACE, true
	default:
		return 0, false
	}
}

// Request is the parsed or to-be-serialized request side of an HttpMessage.
type Request struct {
	Method     Method
	Host       string
	Port       int
	URI        string
	UserAgent  string
	ContentType string
	Charset    string
	Headers    *HttpHeaders
	Trailers   *HttpHeaders
	Body       []byte
}

// Response is the parsed or to-be-serialized response side of an
// HttpMessage.
type Response struct {
	Status      int
	Reason      string
	ContentType string
	Charset     string
	Headers     *HttpHeaders
	Trailers    *HttpHeaders
	SetCookies  []string
	Body        []byte
}

// HttpMessage is either a Request or a Response; exactly one of the two
// fields is non-nil.
type HttpMessage struct {
	Request  *Request
	Response *Response
}

// IsRequest reports whether this message carries a Request.
func (m *HttpMessage) IsRequest() bool { return m.Request != nil }

// Headers returns the active side's header multimap.
func (m *HttpMessage) Headers() *HttpHeaders {
	if m.Request != nil {
		return m.Request.Headers
	}
	if m.Response != nil {
		return m.Response.Headers
	}
	return nil
}

// Trailers returns the active side's trailer multimap (supplemented from
// original_source: kept distinct from Headers since trailers are only
// meaningful for chunked bodies).
func (m *HttpMessage) Trailers() *HttpHeaders {
	if m.Request != nil {
		return m.Request.Trailers
	}
	if m.Response != nil {
		return m.Response.Trailers
	}
	return nil
}

// Body returns the active side's raw body bytes.
func (m *HttpMessage) Body() []byte {
	if m.Request != nil {
		return m.Request.Body
	}
	if m.Response != nil {
		return m.Response.Body
	}
	return nil
}

// ParseContentType splits a raw `Content-Type: type/subtype; charset=X`
// value into its media type and charset modifier.
func ParseContentType(raw string) (mediaType, charset string) {
	parts := strings.SplitN(raw, ";", 2)
	mediaType = strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return mediaType, ""
	}

	for _, p := range strings.Split(parts[1], ";") {
		p = strings.TrimSpace(p)
		if kv := strings.SplitN(p, "=", 2); len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), "charset") {
			charset = strings.Trim(strings.TrimSpace(kv[1]), `"`)
		}
	}
	return mediaType, charset
}

// ResolveCharset looks up the text codec implied by a Content-Type
// charset modifier, using the IANA charset registry (golang.org/x/text).
// An empty name resolves to nil, nil, meaning "treat as opaque bytes"
// rather than a text codec; a name the registry does not know returns an
// error.
func ResolveCharset(charset string) (encoding.Encoding, error) {
	if charset == "" {
		return nil, nil
	}
	return ianaindex.MIME.Encoding(charset)
}

// IsOpaqueContentType reports whether a media type carries no text
// semantics (so a charset modifier would be meaningless), e.g.
// application/octet-stream or any image/* or video/* type.
func IsOpaqueContentType(mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	switch {
	case mediaType == "application/octet-stream":
		return true
	case strings.HasPrefix(mediaType, "image/"),
		strings.HasPrefix(mediaType, "video/"),
		strings.HasPrefix(mediaType, "audio/"):
		return true
	default:
		return false
	}
}
