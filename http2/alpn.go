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
	"sort"

	"github.com/hashicorp/go-version"
)

// protoVersion pairs an ALPN protocol id with the HTTP version it implies,
// so NegotiateALPN can fall back in version order rather than list order.
type protoVersion struct {
	proto string
	ver   *version.Version
}

// NegotiateALPN picks, among the protocols that appear both in offered
// (the client's ALPN list) and in supported (the protocols this endpoint
// actually implements), the one with the highest implied HTTP version, so
// "http/1.1" never wins over "h2" when both are available. The order of
// offered plays no part in the choice. An empty return means no match.
func NegotiateALPN(offered []string, supported map[string]string) string {
	offeredSet := make(map[string]bool, len(offered))
	for _, p := range offered {
		offeredSet[p] = true
	}

	var candidates []protoVersion
	for proto, verStr := range supported {
		if !offeredSet[proto] {
			continue
		}
		v, err := version.NewVersion(verStr)
		if err != nil {
			continue
		}
		candidates = append(candidates, protoVersion{proto: proto, ver: v})
	}

	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ver.GreaterThan(candidates[j].ver)
	})
	return candidates[0].proto
}

// DefaultSupportedProtocols is the ALPN table an HttpSimpleClient
// advertises: h2 over HTTP/1.1 whenever both are available.
var DefaultSupportedProtocols = map[string]string{
	"h2":       "2.0.0",
	"http/1.1": "1.1.0",
}
