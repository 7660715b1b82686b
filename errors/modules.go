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

package errors

// Package code namespaces. Every internal package that registers codes
// claims a base here and numbers its own codes as base+iota so two
// packages never collide in the global registry.
const (
	MinPkgBuf         = 100
	MinPkgIOEvent     = 200
	MinPkgIOSocket    = 250
	MinPkgIOTLS       = 280
	MinPkgHttp1       = 300
	MinPkgHttp2       = 400
	MinPkgHttp2Hpack  = 450
	MinPkgHttpClient  = 500
	MinPkgSMTP        = 600
	MinPkgSMTPConfig  = 650
	MinPkgSMTPQueue   = 680
	MinPkgSyslog      = 700
	MinPkgMonitor     = 800
	MinPkgConfig      = 900
	MinPkgCertificate = 950
	MinPkgLogger      = 1000

	MinAvailable = 1100
)
