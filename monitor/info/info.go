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

// Package info identifies the component a Monitor watches.
package info

import "github.com/sabouaram/netcore/errors"

const ErrorNameEmpty = errors.MinPkgMonitor + 1

func init() {
	errors.RegisterIdFctMessage(ErrorNameEmpty, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorNameEmpty:
		return "monitor info: name must not be empty"
	default:
		return ""
	}
}

// Info names the monitored component.
type Info interface {
	Name() string
}

type inf struct {
	name string
}

// New returns an Info describing a component called name.
func New(name string) (Info, error) {
	if name == "" {
		return nil, errors.NewCodeError(ErrorNameEmpty).Error(nil)
	}
	return &inf{name: name}, nil
}

func (i *inf) Name() string { return i.name }
