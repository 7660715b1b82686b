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

// Package config loads SmtpPool and HttpSimpleClient configuration from a
// viper-bound YAML document and wires up the logging hooks of the
// SmtpPool's logger.
package config

import (
	"github.com/sabouaram/netcore/errors"
)

const (
	ErrorUnmarshal = errors.MinPkgConfig + iota
	ErrorValidation
	ErrorNoEndpoints
	ErrorLoggerSetup
)

func init() {
	errors.RegisterIdFctMessage(ErrorUnmarshal, message)
	errors.RegisterIdFctMessage(ErrorValidation, message)
	errors.RegisterIdFctMessage(ErrorNoEndpoints, message)
	errors.RegisterIdFctMessage(ErrorLoggerSetup, message)
}

func message(code errors.CodeError) string {
	switch code {
	case ErrorUnmarshal:
		return "config: could not unmarshal viper configuration"
	case ErrorValidation:
		return "config: configuration failed validation"
	case ErrorNoEndpoints:
		return "config: smtp pool configuration lists no endpoints"
	case ErrorLoggerSetup:
		return "config: could not initialize a logging hook"
	default:
		return ""
	}
}
