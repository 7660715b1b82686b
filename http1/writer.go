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
	"fmt"
	"strconv"
	"time"

	"github.com/sabouaram/netcore/buf"
	"github.com/sabouaram/netcore/errors"
	"golang.org/x/net/http/httpguts"
)

const (
	ErrorInvalidHeaderName = errors.MinPkgHttp1 + iota
	ErrorInvalidHeaderValue
	ErrorFormat
)

func init() {
	errors.RegisterIdFctMessage(ErrorInvalidHeaderName, getMessage)
	errors.RegisterIdFctMessage(ErrorInvalidHeaderValue, getMessage)
	errors.RegisterIdFctMessage(ErrorFormat, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorInvalidHeaderName:
		return "http1: invalid header field name"
	case ErrorInvalidHeaderValue:
		return "http1: invalid header field value"
	case ErrorFormat:
		return "http1: malformed message"
	default:
		return ""
	}
}

const defaultUserAgent = "netcore-http1"

// WriteRequest serializes req into out, inserting the default headers
// described in spec §4.2 when absent, and returns an error if the request
// cannot be serialized. target overrides the request-line target when a proxy is
// configured (full absolute URL rather than the bare URI).
func WriteRequest(out *buf.Buf, req *Request, target string) error {
	if req.Headers == nil {
		req.Headers = NewHttpHeaders()
	}

	if target == "" {
		target = req.URI
	}

	if _, err := fmt.Fprintf(out, "%s %s HTTP/1.1\r\n", req.Method.String(), target); err != nil {
		return err
	}

	host := req.Host
	if req.Port != 0 && req.Port != 80 && req.Port != 443 {
		host = fmt.Sprintf("%s:%d", req.Host, req.Port)
	}
	if !req.Headers.Has("Host") {
		req.Headers.Set("Host", host)
	}

	ua := req.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	if !req.Headers.Has("User-Agent") {
		req.Headers.Set("User-Agent", ua)
	}

	bodyLen := len(req.Body)
	if req.Headers.Has("Content-Length") {
		if len(req.Body) == 0 {
			// caller-supplied Content-Length only wins when no body is given.
		} else {
			req.Headers.Set("Content-Length", strconv.Itoa(bodyLen))
		}
	} else {
		req.Headers.Set("Content-Length", strconv.Itoa(bodyLen))
	}

	if req.ContentType != "" {
		ct := req.ContentType
		if req.Charset != "" && !IsOpaqueContentType(req.ContentType) {
			attrs := NewAttrMap()
			attrs.Set("charset", req.Charset)
			if !req.Headers.Has("Content-Type") {
				req.Headers.Add("Content-Type", ct, attrs)
			}
		} else if !req.Headers.Has("Content-Type") {
			req.Headers.Set("Content-Type", ct)
		}
	}

	if !req.Headers.Has("Date") {
		req.Headers.Set("Date", time.Now().UTC().Format(time.RFC1123))
	}

	if err := writeHeaderBlock(out, req.Headers); err != nil {
		return err
	}

	_, err := out.Write(req.Body)
	return err
}

// WriteResponse serializes resp into out following the same header rules
// as WriteRequest, plus Set-Cookie (kept as an ordered list, never
// comma-joined) and trailers after a chunked body's terminator.
func WriteResponse(out *buf.Buf, resp *Response) error {
	if resp.Headers == nil {
		resp.Headers = NewHttpHeaders()
	}

	reason := resp.Reason
	if reason == "" {
		reason = statusText(resp.Status)
	}
	if _, err := fmt.Fprintf(out, "HTTP/1.1 %d %s\r\n", resp.Status, reason); err != nil {
		return err
	}

	if !resp.Headers.Has("Content-Length") {
		resp.Headers.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}

	if resp.ContentType != "" && !resp.Headers.Has("Content-Type") {
		if resp.Charset != "" && !IsOpaqueContentType(resp.ContentType) {
			attrs := NewAttrMap()
			attrs.Set("charset", resp.Charset)
			resp.Headers.Add("Content-Type", resp.ContentType, attrs)
		} else {
			resp.Headers.Set("Content-Type", resp.ContentType)
		}
	}

	if !resp.Headers.Has("Date") {
		resp.Headers.Set("Date", time.Now().UTC().Format(time.RFC1123))
	}

	for _, c := range resp.SetCookies {
		resp.Headers.Add("Set-Cookie", c, nil)
	}

	if err := writeHeaderBlock(out, resp.Headers); err != nil {
		return err
	}

	if _, err := out.Write(resp.Body); err != nil {
		return err
	}

	if resp.Trailers != nil && len(resp.Trailers.Names()) > 0 {
		if _, err := out.WriteString("0\r\n"); err != nil {
			return err
		}
		if err := writeHeaderBlock(out, resp.Trailers); err != nil {
			return err
		}
	}

	return nil
}

func writeHeaderBlock(out *buf.Buf, h *HttpHeaders) error {
	for _, name := range h.Names() {
		if !httpguts.ValidHeaderFieldName(name) {
			return errors.NewCodeError(ErrorInvalidHeaderName).Error(nil)
		}

		v, _ := h.Get(name)
		if name != "Set-Cookie" {
			if !httpguts.ValidHeaderFieldValue(v) {
				return errors.NewCodeError(ErrorInvalidHeaderValue).Error(nil)
			}
			if _, err := fmt.Fprintf(out, "%s: %s\r\n", name, v); err != nil {
				return err
			}
			continue
		}

		for _, raw := range h.Values(name) {
			if _, err := fmt.Fprintf(out, "%s: %s\r\n", name, raw); err != nil {
				return err
			}
		}
	}

	_, err := out.WriteString("\r\n")
	return err
}

func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 304:
		return "Not Modified"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	case 502:
		return "Bad Gateway"
	case 503:
		return "Service Unavailable"
	default:
		return ""
	}
}
