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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/sabouaram/netcore/errors"
	"github.com/sabouaram/netcore/ioevent"
)

const (
	ErrorNoEndpoints = errors.MinPkgSMTP + iota
	ErrorStopped
	ErrorAttemptsExceeded
)

func init() {
	errors.RegisterIdFctMessage(ErrorNoEndpoints, poolMessage)
	errors.RegisterIdFctMessage(ErrorStopped, poolMessage)
	errors.RegisterIdFctMessage(ErrorAttemptsExceeded, poolMessage)
}

func poolMessage(code errors.CodeError) string {
	switch code {
	case ErrorNoEndpoints:
		return "smtp: pool has no usable endpoints"
	case ErrorStopped:
		return "smtp: pool is stopped"
	case ErrorAttemptsExceeded:
		return "smtp: message exceeded its attempt cap"
	default:
		return ""
	}
}

// PoolMode selects how the pool distributes connections across its
// endpoint set (spec §3.6/§4.5).
type PoolMode uint8

const (
	Failover PoolMode = iota
	RoundRobin
)

var (
	metricQueueBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "netcore", Subsystem: "smtp", Name: "queue_bytes",
		Help: "Bytes currently held in the internal message queue.",
	})
	metricQueueDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "netcore", Subsystem: "smtp", Name: "queue_dropped_total",
		Help: "Messages dropped for buffer overflow.",
	})
	metricActiveConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "netcore", Subsystem: "smtp", Name: "active_connections",
		Help: "Connections currently leased across all endpoints.",
	})
	metricSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "netcore", Subsystem: "smtp", Name: "sent_total",
		Help: "Messages successfully delivered.",
	})
	metricFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "netcore", Subsystem: "smtp", Name: "failed_total",
		Help: "Messages that ended in permanent failure.",
	})
	registerOnce sync.Once
)

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(metricQueueBytes, metricQueueDropped, metricActiveConns, metricSent, metricFailed)
	})
}

// GetFunc supplies the next raw message for external-queue mode; a nil
// byte slice with ok=false means nothing is ready right now.
type GetFunc func() (raw []byte, headers map[string]string, ok bool)

// RescheduleFunc reports a failed external-queue message back to its
// owner with the server-suggested retry delay (spec §4.5 "External
// queue").
type RescheduleFunc func(raw []byte, headers map[string]string, waitSec int)

// SendFailedFunc reports a failed internal-queue message; returning true
// allows a requeue if attempts remain (spec §4.5 "Per-message state
// machine").
type SendFailedFunc func(headers map[string]string, err error, attempt int, canRequeue bool) bool

// SentFunc reports a message that was successfully delivered.
type SentFunc func(headers map[string]string)

// ProcessingHaltedFunc is invoked when every endpoint has failed in one
// cycle (Failover mode exhausted, spec §4.5 "Pool modes"). waitSec == 0
// means the pool is halted until Resume is called explicitly.
type ProcessingHaltedFunc func(noEndpoints bool, waitSec int)

// ConnectFailFunc is consulted after a TCP endpoint connect failure;
// returning false removes the endpoint permanently.
type ConnectFailFunc func(ep *Endpoint, err error) bool

// ProcessFailFunc is the process-endpoint analogue of ConnectFailFunc.
type ProcessFailFunc func(ep *Endpoint, err error) bool

// Config tunes a Pool's policy knobs (spec §3.6 "Pool").
type Config struct {
	Mode           PoolMode
	MaxQueueBytes  int
	NumAttempts    int
	ConnectMs      int
	StallMs        int
	IdleMs         int
	Logger         logrus.FieldLogger
}

// status bundles the overall pool status flags from spec §3.6.
type status struct {
	idle        bool
	processing  bool
	stopped     bool
	noEndpoints bool
	stopping    bool
}

// Pool is SmtpPool (spec §3.6/§4.5): an endpoint set, a bounded queue
// (internal) or a get-callback (external), failover/round-robin
// distribution, and backoff-governed reconnection.
type Pool struct {
	mu  sync.Mutex
	cfg Config

	endpoints []*Endpoint
	nextIdx   int

	queue    *Queue
	getCB    GetFunc
	external bool

	sentCB             SentFunc
	sendFailedCB       SendFailedFunc
	rescheduleCB       RescheduleFunc
	processingHaltedCB ProcessingHaltedFunc
	connectFailCB      ConnectFailFunc
	processFailCB      ProcessFailFunc

	st status

	loop         *ioevent.EventLoop
	metricsTimer *ioevent.Timer
	sem          *semaphore.Weighted
	wg           sync.WaitGroup
	cancel       context.CancelFunc

	emergency emergencySink
}

const metricsRefreshMs = 1000

func (p *Pool) refreshQueueMetrics(arg interface{}) {
	if !p.external {
		metricQueueBytes.Set(float64(p.queue.StoredBytes()))
	}
	if p.metricsTimer != nil {
		p.metricsTimer.Reset(metricsRefreshMs)
	}
}

// New creates a Pool bound to an internal, byte-bounded queue.
func New(cfg Config) *Pool {
	registerMetrics()
	if cfg.NumAttempts <= 0 {
		cfg.NumAttempts = 3
	}
	p := &Pool{
		cfg:   cfg,
		queue: NewQueue(cfg.MaxQueueBytes),
	}
	p.st.idle = true
	return p
}

// NewExternal creates a Pool that pulls messages from get and reports
// failures through reschedule instead of holding its own queue (spec
// §4.5 "External queue").
func NewExternal(cfg Config, get GetFunc, reschedule RescheduleFunc) *Pool {
	p := New(cfg)
	p.external = true
	p.getCB = get
	p.rescheduleCB = reschedule
	return p
}

// OnSent registers the callback fired once per successfully delivered
// message.
func (p *Pool) OnSent(cb SentFunc) { p.mu.Lock(); p.sentCB = cb; p.mu.Unlock() }

// OnSendFailed registers the internal-queue failure callback.
func (p *Pool) OnSendFailed(cb SendFailedFunc) { p.mu.Lock(); p.sendFailedCB = cb; p.mu.Unlock() }

// OnProcessingHalted registers the full-cycle-failure callback.
func (p *Pool) OnProcessingHalted(cb ProcessingHaltedFunc) {
	p.mu.Lock()
	p.processingHaltedCB = cb
	p.mu.Unlock()
}

// OnConnectFail registers the TCP endpoint connect-failure arbiter.
func (p *Pool) OnConnectFail(cb ConnectFailFunc) { p.mu.Lock(); p.connectFailCB = cb; p.mu.Unlock() }

// OnProcessFail registers the process endpoint failure arbiter.
func (p *Pool) OnProcessFail(cb ProcessFailFunc) { p.mu.Lock(); p.processFailCB = cb; p.mu.Unlock() }

// AddEndpoint appends ep to the pool, created idle per spec §4.5
// "Endpoint lifecycle": it only connects on first demand.
func (p *Pool) AddEndpoint(ep *Endpoint) {
	p.mu.Lock()
	p.endpoints = append(p.endpoints, ep)
	p.st.noEndpoints = false
	p.mu.Unlock()
}

// Enqueue pushes a raw message (internal-queue mode only).
func (p *Pool) Enqueue(raw []byte, headers map[string]string) error {
	if p.external {
		return errors.NewCodeError(ErrorStopped).Error(nil)
	}
	p.mu.Lock()
	stopped := p.st.stopped
	p.mu.Unlock()
	if stopped {
		return errors.NewCodeError(ErrorStopped).Error(nil)
	}
	err := p.queue.Push(raw, headers)
	metricQueueBytes.Set(float64(p.queue.StoredBytes()))
	if err != nil {
		metricQueueDropped.Inc()
	}
	return err
}

// Resume (re)binds the pool's endpoints to loop and starts one worker
// goroutine per connection slot, MaxConns for each endpoint (spec §4.5
// "Suspend/resume"). Calling Resume on an already-running pool is a no-op.
func (p *Pool) Resume(loop *ioevent.EventLoop) {
	p.mu.Lock()
	if p.st.processing && !p.st.stopped {
		p.mu.Unlock()
		return
	}
	p.loop = loop
	p.st.stopped = false
	p.st.processing = true
	p.st.idle = false
	endpoints := append([]*Endpoint(nil), p.endpoints...)
	p.mu.Unlock()

	if loop != nil {
		p.metricsTimer = loop.TimerOneshot(metricsRefreshMs, false, p.refreshQueueMetrics, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	if len(endpoints) == 0 {
		p.mu.Lock()
		p.st.noEndpoints = true
		cb := p.processingHaltedCB
		p.mu.Unlock()
		if cb != nil {
			cb(true, 0)
		}
		return
	}

	total := 0
	for _, ep := range endpoints {
		total += ep.MaxConns
	}
	if total <= 0 {
		total = 1
	}
	p.sem = semaphore.NewWeighted(int64(total))

	for i := 0; i < total; i++ {
		w := newWorker(p)
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			w.run(ctx)
		}(w)
	}
}

// Pause disconnects all endpoints and transitions to stopped, per spec
// §4.5 "Suspend/resume and shutdown".
func (p *Pool) Pause() {
	p.mu.Lock()
	p.st.stopped = true
	p.st.processing = false
	cancel := p.cancel
	timer := p.metricsTimer
	p.metricsTimer = nil
	p.mu.Unlock()

	if timer != nil {
		timer.Remove()
	}
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Destroy disconnects every endpoint; if flush is true it first waits
// (bounded by timeout) for the queue to drain.
func (p *Pool) Destroy(flush bool, timeout time.Duration) {
	if flush {
		deadline := time.Now().Add(timeout)
		for time.Now().Before(deadline) {
			if p.queue.Len() == 0 {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	p.Pause()
}

// Status reports the pool's overall flags (spec §3.6).
func (p *Pool) Status() (idle, processing, stopped, noEndpoints, stopping bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.idle, p.st.processing, p.st.stopped, p.st.noEndpoints, p.st.stopping
}

// Queue exposes the internal queue for depth/drop inspection (e.g. by a
// monitor or by cmd/netcore).
func (p *Pool) Queue() *Queue { return p.queue }

// pickEndpoint selects the next endpoint to try, per the pool's mode.
// Failover always starts at index 0 and sticks with the current index
// until a failure forces an advance; RoundRobin rotates on every call so
// load is spread across all endpoints with spare capacity.
func (p *Pool) pickEndpoint() *Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	if n == 0 {
		return nil
	}

	switch p.cfg.Mode {
	case RoundRobin:
		for i := 0; i < n; i++ {
			idx := (p.nextIdx + i) % n
			ep := p.endpoints[idx]
			if !ep.IsRemoved() && ep.HasCapacity() {
				p.nextIdx = (idx + 1) % n
				return ep
			}
		}
		return nil
	default: // Failover
		for i := 0; i < n; i++ {
			idx := (p.nextIdx + i) % n
			ep := p.endpoints[idx]
			if !ep.IsRemoved() && ep.HasCapacity() {
				p.nextIdx = idx
				return ep
			}
		}
		return nil
	}
}

// advanceFailover moves the failover pointer past a failed endpoint. A
// full cycle back to the start without success invokes
// processingHaltedCB with the endpoint's own backoff as the retry delay.
func (p *Pool) advanceFailover(failed *Endpoint) {
	p.mu.Lock()
	n := len(p.endpoints)
	if n == 0 {
		p.mu.Unlock()
		return
	}
	for i, ep := range p.endpoints {
		if ep == failed {
			p.nextIdx = (i + 1) % n
			break
		}
	}
	allDown := true
	for _, ep := range p.endpoints {
		if !ep.IsRemoved() && ep.failureCount() == 0 {
			allDown = false
			break
		}
	}
	cb := p.processingHaltedCB
	p.mu.Unlock()

	if allDown && cb != nil {
		wait := int(failed.backoff() / time.Second)
		cb(false, wait)
	}
}

func (p *Pool) removeEndpoint(ep *Endpoint) {
	ep.Remove()
	p.mu.Lock()
	allRemoved := true
	for _, e := range p.endpoints {
		if !e.IsRemoved() {
			allRemoved = false
			break
		}
	}
	if allRemoved {
		p.st.noEndpoints = true
	}
	cb := p.processingHaltedCB
	p.mu.Unlock()
	if allRemoved && cb != nil {
		cb(true, 0)
	}
}

func (p *Pool) log() logrus.FieldLogger {
	if p.cfg.Logger != nil {
		return p.cfg.Logger
	}
	return logrus.StandardLogger()
}
