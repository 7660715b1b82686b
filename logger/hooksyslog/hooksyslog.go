/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

// Package hooksyslog provides a logrus hook implementation writing log
// entries to a syslog endpoint. It is also the transport this module's smtp
// package reuses for its own delivery-failure reporting, so the connection
// is kept alive across Fire calls rather than redialed per message.
package hooksyslog

import (
	"context"
	"log/syslog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	logcfg "github.com/sabouaram/netcore/logger/config"
	loglvl "github.com/sabouaram/netcore/logger/level"
	logtps "github.com/sabouaram/netcore/logger/types"
	"github.com/sirupsen/logrus"
)

// HookSyslog is a logrus hook that writes log entries to a syslog endpoint.
type HookSyslog interface {
	logtps.Hook
}

type ohks struct {
	format           logrus.Formatter
	levels           []logrus.Level
	disableStack     bool
	disableTimestamp bool
	enableTrace      bool
	enableAccessLog  bool
	network          string
	endpoint         string
	tag              string
	facility         syslog.Priority
}

type hks struct {
	m sync.Mutex
	o ohks
	w *syslog.Writer
	r atomic.Bool
}

// New dials the syslog endpoint described by opt and returns a hook ready to
// be registered on a logrus.Logger. An empty opt.Network and opt.Host dial
// the local syslog daemon; otherwise opt.Network/opt.Host are passed to
// syslog.Dial ("tcp"/"udp" to a "host:port", "unix"/"unixgram" to a socket
// path).
func New(opt logcfg.OptionsSyslog, format logrus.Formatter) (HookSyslog, error) {
	lvl := make([]logrus.Level, 0, len(opt.LogLevel))
	if len(opt.LogLevel) > 0 {
		for _, l := range opt.LogLevel {
			lvl = append(lvl, loglvl.Parse(l).Logrus())
		}
	} else {
		lvl = logrus.AllLevels
	}

	tag := opt.Tag
	if tag == "" && len(os.Args) > 0 {
		tag = os.Args[0]
	}

	fac := facilityFromName(opt.Facility)

	w, e := syslog.Dial(strings.ToLower(opt.Network), opt.Host, fac|syslog.LOG_INFO, tag)
	if e != nil {
		return nil, e
	}

	n := &hks{
		o: ohks{
			format:           format,
			levels:           lvl,
			disableStack:     opt.DisableStack,
			disableTimestamp: opt.DisableTimestamp,
			enableTrace:      opt.EnableTrace,
			enableAccessLog:  opt.EnableAccessLog,
			network:          opt.Network,
			endpoint:         opt.Host,
			tag:              tag,
			facility:         fac,
		},
		w: w,
	}
	n.r.Store(true)

	return n, nil
}

// facilityFromName maps the RFC 5424 facility keyword to its syslog.Priority
// mask. Unknown or empty names fall back to the USER facility.
func facilityFromName(name string) syslog.Priority {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "KERN":
		return syslog.LOG_KERN
	case "MAIL":
		return syslog.LOG_MAIL
	case "DAEMON":
		return syslog.LOG_DAEMON
	case "AUTH":
		return syslog.LOG_AUTH
	case "SYSLOG":
		return syslog.LOG_SYSLOG
	case "LPR":
		return syslog.LOG_LPR
	case "NEWS":
		return syslog.LOG_NEWS
	case "UUCP":
		return syslog.LOG_UUCP
	case "CRON":
		return syslog.LOG_CRON
	case "AUTHPRIV":
		return syslog.LOG_AUTHPRIV
	case "FTP":
		return syslog.LOG_FTP
	case "LOCAL0":
		return syslog.LOG_LOCAL0
	case "LOCAL1":
		return syslog.LOG_LOCAL1
	case "LOCAL2":
		return syslog.LOG_LOCAL2
	case "LOCAL3":
		return syslog.LOG_LOCAL3
	case "LOCAL4":
		return syslog.LOG_LOCAL4
	case "LOCAL5":
		return syslog.LOG_LOCAL5
	case "LOCAL6":
		return syslog.LOG_LOCAL6
	case "LOCAL7":
		return syslog.LOG_LOCAL7
	default:
		return syslog.LOG_USER
	}
}

func (o *hks) Levels() []logrus.Level {
	return o.o.levels
}

func (o *hks) RegisterHook(log *logrus.Logger) {
	log.AddHook(o)
}

func filterKey(f logrus.Fields, key string) logrus.Fields {
	if len(f) < 1 {
		return f
	}
	delete(f, key)
	return f
}

func (o *hks) Fire(entry *logrus.Entry) error {
	accepted := false
	for _, l := range o.Levels() {
		if l == entry.Level {
			accepted = true
			break
		}
	}
	if !accepted {
		return nil
	}

	ent := entry.Dup()
	ent.Level = entry.Level

	if o.o.disableStack {
		ent.Data = filterKey(ent.Data, logtps.FieldStack)
	}
	if o.o.disableTimestamp {
		ent.Data = filterKey(ent.Data, logtps.FieldTime)
	}
	if !o.o.enableTrace {
		ent.Data = filterKey(ent.Data, logtps.FieldCaller)
		ent.Data = filterKey(ent.Data, logtps.FieldFile)
		ent.Data = filterKey(ent.Data, logtps.FieldLine)
	}

	var (
		p []byte
		e error
	)

	if o.o.enableAccessLog {
		if len(entry.Message) == 0 {
			return nil
		}
		p = []byte(entry.Message)
	} else {
		if len(ent.Data) < 1 {
			return nil
		}
		if o.o.format != nil {
			p, e = o.o.format.Format(ent)
		} else {
			p, e = ent.Bytes()
		}
		if e != nil {
			return e
		}
	}

	_, e = o.write(entry.Level, p)
	return e
}

func (o *hks) write(lvl logrus.Level, p []byte) (int, error) {
	o.m.Lock()
	defer o.m.Unlock()

	msg := string(p)

	switch lvl {
	case logrus.PanicLevel, logrus.FatalLevel:
		return len(p), o.w.Emerg(msg)
	case logrus.ErrorLevel:
		return len(p), o.w.Err(msg)
	case logrus.WarnLevel:
		return len(p), o.w.Warning(msg)
	case logrus.InfoLevel:
		return len(p), o.w.Info(msg)
	default:
		return len(p), o.w.Debug(msg)
	}
}

func (o *hks) Write(p []byte) (int, error) {
	return o.write(logrus.InfoLevel, p)
}

func (o *hks) Run(ctx context.Context) {
	o.r.Store(true)
	defer o.r.Store(false)

	<-ctx.Done()
	_ = o.Close()
}

func (o *hks) IsRunning() bool {
	return o.r.Load()
}

func (o *hks) Close() error {
	o.m.Lock()
	defer o.m.Unlock()

	if o.w == nil {
		return nil
	}

	return o.w.Close()
}
