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

// Package types holds the Monitor contract shared by every health-checked
// component (smtp endpoints, the http simple client's target, ...).
package types

import (
	"context"
	"time"

	liblog "github.com/sabouaram/netcore/logger"
)

// Status is the three-state health classification a monitor reports.
type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "Warning"
	StatusKO   Status = "KO"
)

func (s Status) String() string { return string(s) }

// HealthCheckFunc performs a single health probe; a non-nil error marks the
// probe as failed for that interval.
type HealthCheckFunc func(ctx context.Context) error

// Config tunes the rise/fall debounce counters and the polling interval.
type Config struct {
	Name          string
	CheckTimeout  time.Duration
	IntervalCheck time.Duration
	RiseCountKO   int
	RiseCountWarn int
	FallCountKO   int
	FallCountWarn int
	Logger        liblog.Logger
}

// Monitor polls a HealthCheckFunc on an interval and exposes a debounced
// Status, with Prometheus metrics registered under its Name.
type Monitor interface {
	Name() string
	SetConfig(ctx context.Context, cfg Config) error
	SetHealthCheck(fn HealthCheckFunc)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
	Status() Status
}
