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

// Package monitor runs a debounced health check on an interval and exposes
// its status as Prometheus gauges, so SMTP endpoints and http client targets
// can be wired into a scrape endpoint without each reimplementing polling.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sabouaram/netcore/errors"
	moninf "github.com/sabouaram/netcore/monitor/info"
	montps "github.com/sabouaram/netcore/monitor/types"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	gaugeStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "netcore",
		Subsystem: "monitor",
		Name:      "status",
		Help:      "Health status of a monitored component: 0=KO, 1=Warning, 2=OK.",
	}, []string{"component", "monitor"})

	counterChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netcore",
		Subsystem: "monitor",
		Name:      "checks_total",
		Help:      "Number of health checks run, by outcome.",
	}, []string{"component", "monitor", "outcome"})

	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(gaugeStatus, counterChecks)
	})
}

func statusValue(s montps.Status) float64 {
	switch s {
	case montps.StatusOK:
		return 2
	case montps.StatusWarn:
		return 1
	default:
		return 0
	}
}

type mon struct {
	m       sync.Mutex
	inf     moninf.Info
	cfg     montps.Config
	check   montps.HealthCheckFunc
	status  atomic.Value // montps.Status
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	okRun   int
	warnRun int
	koRun   int
}

// New creates a Monitor for the component described by inf, defaulting to a
// 30s check interval with a 1-sample debounce until SetConfig is called.
func New(ctx context.Context, inf moninf.Info) (montps.Monitor, error) {
	registerMetrics()

	if inf == nil {
		return nil, errors.NewCodeError(moninf.ErrorNameEmpty).Error(nil)
	}

	o := &mon{
		inf: inf,
		cfg: montps.Config{
			Name:          inf.Name(),
			CheckTimeout:  5 * time.Second,
			IntervalCheck: 30 * time.Second,
			RiseCountKO:   1,
			RiseCountWarn: 1,
			FallCountKO:   1,
			FallCountWarn: 1,
		},
	}
	o.status.Store(montps.StatusKO)
	return o, nil
}

func (o *mon) Name() string { return o.inf.Name() }

func (o *mon) SetConfig(ctx context.Context, cfg montps.Config) error {
	o.m.Lock()
	defer o.m.Unlock()
	o.cfg = cfg
	return nil
}

func (o *mon) SetHealthCheck(fn montps.HealthCheckFunc) {
	o.m.Lock()
	defer o.m.Unlock()
	o.check = fn
}

func (o *mon) Status() montps.Status {
	if v, ok := o.status.Load().(montps.Status); ok {
		return v
	}
	return montps.StatusKO
}

func (o *mon) IsRunning() bool { return o.running.Load() }

func (o *mon) Start(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return nil
	}

	cctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})

	go o.loop(cctx)
	return nil
}

func (o *mon) Stop(ctx context.Context) error {
	if !o.running.CompareAndSwap(true, false) {
		return nil
	}

	if o.cancel != nil {
		o.cancel()
	}

	select {
	case <-o.done:
	case <-ctx.Done():
	}

	return nil
}

func (o *mon) loop(ctx context.Context) {
	defer close(o.done)

	o.runOnce(ctx)

	o.m.Lock()
	interval := o.cfg.IntervalCheck
	o.m.Unlock()
	if interval <= 0 {
		interval = 30 * time.Second
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.runOnce(ctx)
		}
	}
}

func (o *mon) runOnce(ctx context.Context) {
	o.m.Lock()
	check := o.check
	timeout := o.cfg.CheckTimeout
	riseKO, riseWarn := o.cfg.RiseCountKO, o.cfg.RiseCountWarn
	fallKO, fallWarn := o.cfg.FallCountKO, o.cfg.FallCountWarn
	name := o.cfg.Name
	o.m.Unlock()

	if check == nil {
		return
	}

	cctx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := check(cctx)

	outcome := "ok"
	if err != nil {
		outcome = "ko"
		o.koRun++
		o.okRun = 0
		o.warnRun = 0
	} else {
		o.okRun++
		o.koRun = 0
		o.warnRun = 0
	}
	counterChecks.WithLabelValues(o.inf.Name(), name, outcome).Inc()

	cur := o.Status()
	next := cur

	if err != nil {
		if maxInt(riseKO, 1) <= o.koRun {
			next = montps.StatusKO
		} else if maxInt(riseWarn, 1) <= o.koRun {
			next = montps.StatusWarn
		}
	} else {
		if maxInt(fallKO, 1) <= o.okRun && cur == montps.StatusKO {
			next = montps.StatusWarn
		}
		if maxInt(fallWarn, 1) <= o.okRun {
			next = montps.StatusOK
		}
	}

	o.status.Store(next)
	gaugeStatus.WithLabelValues(o.inf.Name(), name).Set(statusValue(next))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
