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
	"context"
	"net"
	"strconv"

	"github.com/sabouaram/netcore/errors"
	"github.com/sabouaram/netcore/monitor"
	moninf "github.com/sabouaram/netcore/monitor/info"
	montps "github.com/sabouaram/netcore/monitor/types"
)

// Monitor builds a montps.Monitor that polls whether at least one of the
// pool's TCP endpoints currently accepts a connection. The caller owns
// the returned Monitor's lifecycle (Start/Stop); the pool keeps
// delivering independently of it.
func (p *Pool) Monitor(ctx context.Context) (montps.Monitor, error) {
	p.mu.Lock()
	eps := append([]*Endpoint(nil), p.endpoints...)
	p.mu.Unlock()

	inf, e := moninf.New("smtp-pool")
	if e != nil {
		return nil, e
	}

	m, e := monitor.New(ctx, inf)
	if e != nil {
		return nil, e
	}

	m.SetHealthCheck(func(cctx context.Context) error {
		return dialAnyEndpoint(cctx, eps)
	})

	return m, nil
}

func dialAnyEndpoint(ctx context.Context, eps []*Endpoint) error {
	var d net.Dialer
	var lastErr error

	for _, ep := range eps {
		if ep.Kind != EndpointTcp || ep.IsRemoved() {
			continue
		}
		addr := net.JoinHostPort(ep.Address, strconv.Itoa(ep.Port))
		conn, err := d.DialContext(ctx, ep.DialNetwork(), addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
	}

	if lastErr == nil {
		return errors.NewCodeError(ErrorNoEndpoints).Error(nil)
	}
	return lastErr
}
