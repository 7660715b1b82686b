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

package smtp

import (
	"sync/atomic"
	"time"

	"github.com/sabouaram/netcore/certificates"
	"github.com/sabouaram/netcore/network/protocol"
)

// EndpointKind distinguishes the two delivery targets spec §3.6 allows.
type EndpointKind uint8

const (
	EndpointTcp EndpointKind = iota
	EndpointProcess
)

// Endpoint is one delivery target in the pool, either a TCP+TLS SMTP
// server or a child process reading a message on stdin (spec §3.6).
// Active-connection accounting is atomic so Failover/RoundRobin selection
// (§4.5) can read it without taking the pool lock.
type Endpoint struct {
	Kind EndpointKind

	// Tcp fields.
	Address  string
	Port     int
	Network  protocol.NetworkProtocol
	TLS      certificates.TLSConfig
	User     string
	Pass     string
	MaxConns int

	// Process fields.
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration

	activeConns int32
	failures    int32
	removed     int32
}

// NewTcpEndpoint describes a TCP/TLS SMTP server limited to maxConns
// concurrent deliveries.
func NewTcpEndpoint(address string, port int, tlsCfg certificates.TLSConfig, user, pass string, maxConns int) *Endpoint {
	if maxConns <= 0 {
		maxConns = 1
	}
	return &Endpoint{
		Kind:     EndpointTcp,
		Address:  address,
		Port:     port,
		Network:  protocol.NetworkTCP,
		TLS:      tlsCfg,
		User:     user,
		Pass:     pass,
		MaxConns: maxConns,
	}
}

// WithNetwork overrides the dial network family (defaults to tcp); accepts
// "tcp4"/"tcp6" for an endpoint pinned to one IP stack.
func (e *Endpoint) WithNetwork(network string) *Endpoint {
	if n := protocol.Parse(network); n != protocol.NetworkEmpty {
		e.Network = n
	}
	return e
}

// DialNetwork returns the net.Dial network name for this endpoint, falling
// back to "tcp" for a zero-value Endpoint.
func (e *Endpoint) DialNetwork() string {
	if s := e.Network.String(); s != "" {
		return s
	}
	return "tcp"
}

// NewProcessEndpoint describes a child process consuming one raw message
// per invocation on stdin, bounded by timeout.
func NewProcessEndpoint(command string, args, env []string, timeout time.Duration) *Endpoint {
	return &Endpoint{
		Kind:     EndpointProcess,
		Command:  command,
		Args:     args,
		Env:      env,
		Timeout:  timeout,
		MaxConns: 1,
	}
}

// ActiveConns returns the endpoint's current connection count.
func (e *Endpoint) ActiveConns() int { return int(atomic.LoadInt32(&e.activeConns)) }

// HasCapacity reports whether the endpoint can accept one more connection
// without breaching spec's "Active connections ... <= Sum max_conns"
// invariant.
func (e *Endpoint) HasCapacity() bool { return e.ActiveConns() < e.MaxConns }

func (e *Endpoint) acquireSlot() bool {
	for {
		cur := atomic.LoadInt32(&e.activeConns)
		if int(cur) >= e.MaxConns {
			return false
		}
		if atomic.CompareAndSwapInt32(&e.activeConns, cur, cur+1) {
			return true
		}
	}
}

func (e *Endpoint) releaseSlot() {
	atomic.AddInt32(&e.activeConns, -1)
}

func (e *Endpoint) recordFailure() int {
	return int(atomic.AddInt32(&e.failures, 1))
}

func (e *Endpoint) resetFailures() {
	atomic.StoreInt32(&e.failures, 0)
}

func (e *Endpoint) failureCount() int {
	return int(atomic.LoadInt32(&e.failures))
}

// Remove marks the endpoint permanently unusable (connect_fail_cb /
// process_fail_cb returned false — spec §4.5 "Endpoint lifecycle").
func (e *Endpoint) Remove() { atomic.StoreInt32(&e.removed, 1) }

// IsRemoved reports whether Remove was called.
func (e *Endpoint) IsRemoved() bool { return atomic.LoadInt32(&e.removed) == 1 }

// backoff returns the fixed-or-escalating reconnect delay used by the
// worker loop between transient failures on this endpoint (spec: "fixed
// 1s for the syslog analog; endpoint-specific backoff for SMTP").
func (e *Endpoint) backoff() time.Duration {
	n := e.failureCount()
	d := time.Duration(n) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}
