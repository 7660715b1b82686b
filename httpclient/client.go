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

// Package httpclient implements HttpSimpleClient (spec §4.4): a single
// HTTP request with redirect following, TLS setup, an optional proxy,
// three independent timeouts, and a maximum receive cap.
package httpclient

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	uuid "github.com/hashicorp/go-uuid"

	"github.com/sabouaram/netcore/buf"
	"github.com/sabouaram/netcore/certificates"
	b64 "github.com/sabouaram/netcore/encoding/base64"
	"github.com/sabouaram/netcore/errors"
	"github.com/sabouaram/netcore/http1"
	"github.com/sabouaram/netcore/ioevent"
	"github.com/sabouaram/netcore/ioevent/iosocket"
	"github.com/sabouaram/netcore/ioevent/iotls"
	"github.com/sabouaram/netcore/ioevent/iotrace"
	liblog "github.com/sabouaram/netcore/logger"
	loghcl "github.com/sabouaram/netcore/logger/hashicorp"
)

const (
	ErrorInvalidURL = errors.MinPkgHttpClient + iota
	ErrorTlsRequired
	ErrorTlsSetupFailure
	ErrorRedirectLimit
	ErrorOverLimit
	ErrorTimeout
	ErrorTimeoutStall
	ErrorTimeoutConnect
	ErrorDisconnect
)

func init() {
	errors.RegisterIdFctMessage(ErrorInvalidURL, message)
	errors.RegisterIdFctMessage(ErrorTlsRequired, message)
	errors.RegisterIdFctMessage(ErrorTlsSetupFailure, message)
	errors.RegisterIdFctMessage(ErrorRedirectLimit, message)
	errors.RegisterIdFctMessage(ErrorOverLimit, message)
	errors.RegisterIdFctMessage(ErrorTimeout, message)
	errors.RegisterIdFctMessage(ErrorTimeoutStall, message)
	errors.RegisterIdFctMessage(ErrorTimeoutConnect, message)
	errors.RegisterIdFctMessage(ErrorDisconnect, message)
}

func message(code errors.CodeError) string {
	switch code {
	case ErrorInvalidURL:
		return "httpclient: invalid URL"
	case ErrorTlsRequired:
		return "httpclient: TLS required but not configured"
	case ErrorTlsSetupFailure:
		return "httpclient: TLS setup failed"
	case ErrorRedirectLimit:
		return "httpclient: redirect limit exceeded"
	case ErrorOverLimit:
		return "httpclient: response exceeded the receive cap"
	case ErrorTimeout:
		return "httpclient: overall timeout"
	case ErrorTimeoutStall:
		return "httpclient: stall timeout"
	case ErrorTimeoutConnect:
		return "httpclient: connect timeout"
	case ErrorDisconnect:
		return "httpclient: peer disconnected"
	default:
		return ""
	}
}

// ProxyConfig describes an optional forward HTTP proxy.
type ProxyConfig struct {
	Host string
	Port int
	User string
	Pass string
}

// Config holds everything HttpSimpleClient needs for one logical send
// (one Get call; redirects reuse it with an updated target URL).
type Config struct {
	TLS           certificates.TLSConfig
	Proxy         *ProxyConfig
	RedirectMax   int
	ReceiveMax    int
	ConnectMs     int
	StallMs       int
	OverallMs     int

	// Trace wraps the socket/TLS layer chain with ioevent/iotrace,
	// logging every read/write/event at trace/debug level (spec
	// §4.1's "socket -> TLS -> trace -> protocol" chain).
	Trace bool

	// TraceLogger, when set, is bridged through logger/hashicorp into
	// the hclog.Logger that the trace layer writes to, so trace output
	// lands on the caller's own liblog.Logger destinations instead of
	// hclog.Default()'s stderr writer.
	TraceLogger liblog.FuncLog
}

// Result is returned by Get exactly once per call (spec §4.4
// "Completion").
type Result struct {
	RequestID string
	NetError  error
	Response  *http1.Response
	Attempts  int
}

// HttpSimpleClient issues one request, following redirects, per spec
// §4.4. It drives its ioevent.IoLayer chain directly with a short-poll
// read/write loop rather than registering with a shared EventLoop: a
// single in-flight request has no use for cross-io scheduling, and this
// keeps Get's timeout accounting (connect/stall/overall) exact relative
// to wall-clock deadlines instead of tied to a loop's tick granularity.
type HttpSimpleClient struct {
	cfg Config

	mu        sync.Mutex
	redirects int
}

// New builds a client from cfg.
func New(cfg Config) *HttpSimpleClient {
	return &HttpSimpleClient{cfg: cfg}
}

// Get issues a GET request to rawURL and blocks until completion,
// redirect limit, or a timeout; the request runs on the calling goroutine.
func (c *HttpSimpleClient) Get(rawURL string) Result {
	reqID, _ := uuid.GenerateUUID()
	res := Result{RequestID: reqID}

	url := rawURL
	for {
		c.mu.Lock()
		c.redirects++
		attempt := c.redirects
		c.mu.Unlock()
		res.Attempts = attempt

		resp, location, netErr := c.sendOnce(url)
		if netErr != nil {
			res.NetError = netErr
			return res
		}

		if resp.Status < 300 || resp.Status > 399 || location == "" {
			res.Response = resp
			return res
		}

		if c.redirects > c.cfg.RedirectMax {
			res.NetError = errors.NewCodeError(ErrorRedirectLimit).Error(nil)
			return res
		}
		url = location
	}
}

func (c *HttpSimpleClient) sendOnce(rawURL string) (*http1.Response, string, error) {
	scheme, host, port, uri, err := splitURL(rawURL)
	if err != nil {
		return nil, "", err
	}

	target := uri
	dialHost, dialPort := host, port
	if c.cfg.Proxy != nil {
		target = rawURL
		dialHost, dialPort = c.cfg.Proxy.Host, c.cfg.Proxy.Port
	}

	connectTimeout := time.Duration(c.cfg.ConnectMs) * time.Millisecond
	sock, err := iosocket.DialTimeout("tcp", net.JoinHostPort(dialHost, strconv.Itoa(dialPort)), connectTimeout)
	if err != nil {
		return nil, "", errors.NewCodeError(ErrorTimeoutConnect).Error(err)
	}

	var top ioevent.IoLayer = sock
	if scheme == "https" {
		if c.cfg.TLS == nil {
			return nil, "", errors.NewCodeError(ErrorTlsRequired).Error(nil)
		}
		tlsLayer, err := iotls.New(sock, c.cfg.TLS, host)
		if err != nil {
			return nil, "", errors.NewCodeError(ErrorTlsSetupFailure).Error(err)
		}
		top = tlsLayer
	} else if scheme != "http" {
		return nil, "", errors.NewCodeError(ErrorInvalidURL).Error(nil)
	}

	if c.cfg.Trace {
		tl := hclog.Default()
		if c.cfg.TraceLogger != nil {
			tl = loghcl.New(c.cfg.TraceLogger)
		}
		top = iotrace.New(top, "httpclient", tl)
	}

	req := &http1.Request{
		Method:    http1.GET,
		Host:      host,
		Port:      port,
		URI:       target,
		UserAgent: "netcore-httpclient",
	}
	if c.cfg.Proxy != nil && c.cfg.Proxy.User != "" {
		req.Headers = http1.NewHttpHeaders()
		req.Headers.Set("Proxy-Authorization", "Basic "+basicAuth(c.cfg.Proxy.User, c.cfg.Proxy.Pass))
	}

	out := buf.New(512)
	if err := http1.WriteRequest(out, req, target); err != nil {
		return nil, "", err
	}

	if _, e := writeAll(top, out.Bytes()); e.IsError() {
		return nil, "", errors.NewCodeError(ErrorDisconnect).Error(nil)
	}

	overallDeadline := time.Now().Add(time.Duration(c.cfg.OverallMs) * time.Millisecond)
	stallDeadline := time.Now().Add(time.Duration(c.cfg.StallMs) * time.Millisecond)

	in := buf.New(4096)
	parser := &http1.Http1Parser{ForResponse: true}
	rbuf := make([]byte, 4096)

	for {
		if c.cfg.OverallMs > 0 && time.Now().After(overallDeadline) {
			return nil, "", errors.NewCodeError(ErrorTimeout).Error(nil)
		}
		if c.cfg.StallMs > 0 && time.Now().After(stallDeadline) {
			return nil, "", errors.NewCodeError(ErrorTimeoutStall).Error(nil)
		}

		n, e := top.Read(rbuf, nil)
		if e == ioevent.WouldBlock {
			time.Sleep(time.Millisecond)
			continue
		}
		if e == ioevent.Disconnect {
			break
		}
		if e.IsError() {
			return nil, "", errors.NewCodeError(ErrorDisconnect).Error(nil)
		}

		stallDeadline = time.Now().Add(time.Duration(c.cfg.StallMs) * time.Millisecond)
		in.Write(rbuf[:n])

		if c.cfg.ReceiveMax > 0 && in.Len() > c.cfg.ReceiveMax {
			return nil, "", errors.NewCodeError(ErrorOverLimit).Error(nil)
		}

		p := buf.NewParser(in.Bytes())
		result := parser.Parse(p)
		switch result.Outcome {
		case http1.Success:
			resp := result.Message.Response
			loc, _ := resp.Headers.Get("Location")
			return resp, loc, nil
		case http1.FormatError:
			return nil, "", errors.NewCodeError(ErrorDisconnect).Error(nil)
		default:
			// MoreData / SuccessMorePossible: keep reading.
		}
	}

	return nil, "", errors.NewCodeError(ErrorDisconnect).Error(nil)
}

func writeAll(l ioevent.IoLayer, p []byte) (int, ioevent.IoError) {
	total := 0
	for total < len(p) {
		n, e := l.Write(p[total:], nil)
		if e == ioevent.WouldBlock {
			time.Sleep(time.Millisecond)
			continue
		}
		if e.IsError() {
			return total, e
		}
		total += n
	}
	return total, ioevent.Success
}

func splitURL(raw string) (scheme, host string, port int, uri string, err error) {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return "", "", 0, "", errors.NewCodeError(ErrorInvalidURL).Error(nil)
	}
	scheme = raw[:idx]
	rest := raw[idx+3:]

	uri = "/"
	if slash := strings.Index(rest, "/"); slash >= 0 {
		uri = rest[slash:]
		rest = rest[:slash]
	}

	port = 80
	if scheme == "https" {
		port = 443
	}
	host = rest
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		if p, e := strconv.Atoi(rest[i+1:]); e == nil {
			host = rest[:i]
			port = p
		}
	}
	return scheme, host, port, uri, nil
}

func basicAuth(user, pass string) string {
	return b64.Encode([]byte(user + ":" + pass))
}
