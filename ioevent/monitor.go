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

package ioevent

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/netcore/errors"
	"github.com/sabouaram/netcore/monitor"
	moninf "github.com/sabouaram/netcore/monitor/info"
	montps "github.com/sabouaram/netcore/monitor/types"
)

const errLoopStoppedCode = errors.MinPkgIOEvent + 90

func init() {
	errors.RegisterIdFctMessage(errLoopStoppedCode, func(errors.CodeError) string {
		return "ioevent: loop is stopped"
	})
}

var (
	gaugeIosRegistered = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "netcore",
		Subsystem: "ioevent",
		Name:      "ios_registered",
		Help:      "Number of Io objects currently registered with the loop.",
	})

	gaugeTimersArmed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "netcore",
		Subsystem: "ioevent",
		Name:      "timers_armed",
		Help:      "Number of Timers currently live (not removed/fired) on the loop.",
	})

	registerLoopMetricsOnce sync.Once
)

func registerLoopMetrics() {
	registerLoopMetricsOnce.Do(func() {
		prometheus.MustRegister(gaugeIosRegistered, gaugeTimersArmed)
	})
}

// IosRegistered returns the count of Io objects currently added to the
// loop.
func (el *EventLoop) IosRegistered() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.ios)
}

// TimersArmed returns the count of Timers currently live on the loop.
func (el *EventLoop) TimersArmed() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	n := 0
	for _, t := range el.timers {
		if t.Status() {
			n++
		}
	}
	return n
}

// refreshMetrics publishes the loop's current Io/Timer counts to the
// package's gauges; called by Monitor's health check on each poll.
func (el *EventLoop) refreshMetrics() {
	gaugeIosRegistered.Set(float64(el.IosRegistered()))
	gaugeTimersArmed.Set(float64(el.TimersArmed()))
}

// Monitor returns a Monitor whose health check, on each poll, refreshes
// the ios_registered/timers_armed gauges and fails while a Stop request is
// pending (Run clears it on return); otherwise it succeeds — there is no
// external endpoint to dial for an event loop, so liveness is the only
// signal available.
func (el *EventLoop) Monitor(ctx context.Context) (montps.Monitor, error) {
	registerLoopMetrics()

	inf, err := moninf.New("event-loop")
	if err != nil {
		return nil, err
	}

	m, err := monitor.New(ctx, inf)
	if err != nil {
		return nil, err
	}

	m.SetHealthCheck(func(context.Context) error {
		el.refreshMetrics()
		el.mu.Lock()
		stopped := el.stopping
		el.mu.Unlock()
		if stopped {
			return errors.NewCodeError(errLoopStoppedCode).Error(nil)
		}
		return nil
	})

	return m, nil
}
