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
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"os/exec"
	"strconv"
	"time"

	"github.com/sabouaram/netcore/errors"
)

// worker is one lease slot: it pulls a message, picks an endpoint through
// the pool's mode (Failover/RoundRobin), delivers it, and reports the
// outcome — until the pool is cancelled or no message is ready, in which
// case it waits out cfg.IdleMs before checking again (spec §4.5
// "Endpoint lifecycle" / "Pool modes").
type worker struct {
	pool *Pool
}

func newWorker(p *Pool) *worker {
	return &worker{pool: p}
}

func (w *worker) run(ctx context.Context) {
	idle := time.Duration(w.pool.cfg.IdleMs) * time.Millisecond
	if idle <= 0 {
		idle = 5 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, headers, qmsg, ok := w.lease()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idle):
			}
			continue
		}

		w.deliverWithAttempts(ctx, raw, headers, qmsg)
	}
}

// lease pulls the next unit of work, from either the internal Queue or
// the external GetFunc. qmsg is non-nil only for internal-queue mode,
// where it carries the message's own Attempts/State so a retry can
// Requeue it instead of reappearing as a brand new message.
func (w *worker) lease() (raw []byte, headers map[string]string, qmsg *QueuedMessage, ok bool) {
	w.pool.mu.Lock()
	external := w.pool.external
	get := w.pool.getCB
	w.pool.mu.Unlock()

	if external {
		if get == nil {
			return nil, nil, nil, false
		}
		raw, headers, ok = get()
		return raw, headers, nil, ok
	}

	m, popped := w.pool.queue.Pop()
	if !popped {
		return nil, nil, nil, false
	}
	return m.RawBytes, m.Headers, m, true
}

// deliverWithAttempts retries a message per spec's per-message state
// machine (§4.5) up to cfg.NumAttempts, re-picking an endpoint through
// the pool's mode on every attempt so a transient failure on one
// endpoint tries the next.
func (w *worker) deliverWithAttempts(ctx context.Context, raw []byte, headers map[string]string, qmsg *QueuedMessage) {
	attempts := w.pool.cfg.NumAttempts
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		ep := w.pool.pickEndpoint()
		if ep == nil {
			if !sleepOrDone(ctx, 10*time.Millisecond) {
				return
			}
			attempt--
			continue
		}

		if w.pool.sem != nil && !w.pool.sem.TryAcquire(1) {
			if !sleepOrDone(ctx, 10*time.Millisecond) {
				return
			}
			attempt--
			continue
		}
		if !ep.acquireSlot() {
			if w.pool.sem != nil {
				w.pool.sem.Release(1)
			}
			if !sleepOrDone(ctx, 10*time.Millisecond) {
				return
			}
			attempt--
			continue
		}
		metricActiveConns.Inc()

		err := w.deliverOnce(ctx, ep, raw, headers)

		ep.releaseSlot()
		if w.pool.sem != nil {
			w.pool.sem.Release(1)
		}
		metricActiveConns.Dec()

		if err == nil {
			ep.resetFailures()
			metricSent.Inc()
			w.pool.mu.Lock()
			cb := w.pool.sentCB
			w.pool.mu.Unlock()
			if cb != nil {
				cb(headers)
			}
			return
		}

		lastErr = err
		ep.recordFailure()

		w.pool.log().WithError(err).WithField("endpoint", ep.Address).
			Debug("smtp: delivery attempt failed")

		if !isTransient(err) {
			w.fail(raw, headers, qmsg, err, attempt, false)
			w.removeIfRejected(ep, err)
			return
		}

		w.pool.advanceFailover(ep)

		select {
		case <-ctx.Done():
			return
		case <-time.After(ep.backoff()):
		}
	}

	if lastErr == nil {
		lastErr = errors.NewCodeError(ErrorAttemptsExceeded).Error(nil)
	}
	w.fail(raw, headers, qmsg, lastErr, attempts, false)
}

// sleepOrDone waits d or until ctx is cancelled, reporting which
// happened so a capacity-wait retry loop can exit promptly on shutdown.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// fail reports a terminal outcome for this delivery attempt per spec
// §4.5's internal/external branching. A retryable internal-queue
// message goes back in via Requeue so its own Attempts/State survive
// instead of being re-pushed as a fresh message.
func (w *worker) fail(raw []byte, headers map[string]string, qmsg *QueuedMessage, err error, attempt int, canRequeue bool) {
	metricFailed.Inc()

	w.pool.mu.Lock()
	external := w.pool.external
	sendFailedCB := w.pool.sendFailedCB
	rescheduleCB := w.pool.rescheduleCB
	numAttempts := w.pool.cfg.NumAttempts
	w.pool.mu.Unlock()

	if external {
		if rescheduleCB != nil {
			rescheduleCB(raw, headers, waitSecondsFor(err))
		}
		return
	}

	requeue := canRequeue
	if sendFailedCB != nil {
		requeue = sendFailedCB(headers, err, attempt, attempt < numAttempts)
	}
	if requeue && attempt < numAttempts {
		if qmsg != nil {
			qmsg.Attempts = attempt
			qmsg.State = Failed
			w.pool.queue.Requeue(qmsg)
		} else {
			_ = w.pool.queue.Push(raw, headers)
		}
	}
}

// removeIfRejected consults connectFailCB/processFailCB for a permanent
// failure and removes the endpoint if told to.
func (w *worker) removeIfRejected(ep *Endpoint, err error) {
	w.pool.mu.Lock()
	var keep bool
	switch ep.Kind {
	case EndpointTcp:
		if cb := w.pool.connectFailCB; cb != nil {
			keep = cb(ep, err)
		} else {
			keep = true
		}
	case EndpointProcess:
		if cb := w.pool.processFailCB; cb != nil {
			keep = cb(ep, err)
		} else {
			keep = true
		}
	}
	w.pool.mu.Unlock()

	if !keep {
		w.pool.removeEndpoint(ep)
	}
}

func (w *worker) deliverOnce(ctx context.Context, ep *Endpoint, raw []byte, headers map[string]string) error {
	switch ep.Kind {
	case EndpointTcp:
		return w.deliverTcp(ctx, ep, raw, headers)
	case EndpointProcess:
		return w.deliverProcess(ctx, ep, raw)
	default:
		return fmt.Errorf("smtp: unknown endpoint kind")
	}
}

// deliverTcp runs one ESMTP conversation: connect, optional STARTTLS,
// optional PLAIN auth, MAIL/RCPT/DATA (spec §6 "Wire: SMTP").
func (w *worker) deliverTcp(ctx context.Context, ep *Endpoint, raw []byte, headers map[string]string) error {
	addr := net.JoinHostPort(ep.Address, strconv.Itoa(ep.Port))

	connectTimeout := time.Duration(w.pool.cfg.ConnectMs) * time.Millisecond
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	d := net.Dialer{Timeout: connectTimeout}
	conn, err := d.DialContext(ctx, ep.DialNetwork(), addr)
	if err != nil {
		return errors.NewCodeError(ErrorNoEndpoints).Error(err)
	}
	w.pool.emergency.set(conn)
	defer func() {
		w.pool.emergency.clear()
		_ = conn.Close()
	}()

	if stall := time.Duration(w.pool.cfg.StallMs) * time.Millisecond; stall > 0 {
		_ = conn.SetDeadline(time.Now().Add(stall))
	}

	cli, err := smtp.NewClient(conn, ep.Address)
	if err != nil {
		return err
	}
	defer func() { _ = cli.Quit() }()

	if ep.TLS != nil {
		if ok, _ := cli.Extension("STARTTLS"); ok {
			tlsCfg := ep.TLS.TlsConfig(ep.Address)
			if err := cli.StartTLS(tlsCfg); err != nil {
				return err
			}
		}
	}

	if ep.User != "" {
		var auth smtp.Auth
		if ok, _ := cli.Extension("AUTH"); ok {
			auth = smtp.PlainAuth("", ep.User, ep.Pass, ep.Address)
		}
		if auth != nil {
			if err := cli.Auth(auth); err != nil {
				return err
			}
		}
	}

	from := headers["From"]
	to := splitRecipients(headers["To"])
	if from == "" {
		from = "postmaster@localhost"
	}

	if err := cli.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := cli.Rcpt(rcpt); err != nil {
			return err
		}
	}

	wc, err := cli.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(raw); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// deliverProcess feeds raw to the endpoint's child process on stdin,
// bounded by the endpoint's own timeout (spec §3.6 "Process" endpoint).
func (w *worker) deliverProcess(ctx context.Context, ep *Endpoint, raw []byte) error {
	cctx := ctx
	var cancel context.CancelFunc
	if ep.Timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, ep.Command, ep.Args...)
	if len(ep.Env) > 0 {
		cmd.Env = ep.Env
	}
	cmd.Stdin = bytes.NewReader(raw)
	return cmd.Run()
}

func splitRecipients(to string) []string {
	if to == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(to); i++ {
		if i == len(to) || to[i] == ',' {
			if r := trimSpace(to[start:i]); r != "" {
				out = append(out, r)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// isTransient classifies a delivery error as retryable (connection
// refused, timeout, 4xx greylist) vs permanent (5xx rejection), per
// spec §7 "SMTP pool errors are classified into transient ... vs
// permanent".
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if tpErr, ok := err.(*textproto.Error); ok {
		return tpErr.Code >= 400 && tpErr.Code < 500
	}
	if e, ok := err.(net.Error); ok {
		return e.Timeout()
	}
	// Connection-level errors (refused, reset, EOF) are retryable; only
	// a recognized 5xx SMTP reply is treated as permanent.
	return true
}

// waitSecondsFor derives an external-queue reschedule delay from the
// server's response (spec §4.5: "computed from the server response
// (e.g. greylist)"). 450 is the canonical greylist code; anything else
// transient falls back to a flat retry window.
func waitSecondsFor(err error) int {
	if tpErr, ok := err.(*textproto.Error); ok && tpErr.Code == 450 {
		return 300
	}
	return 60
}
