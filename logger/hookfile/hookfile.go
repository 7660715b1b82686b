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

// Package hookfile provides a logrus hook implementation for file-based logging.
package hookfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	logcfg "github.com/sabouaram/netcore/logger/config"
	loglvl "github.com/sabouaram/netcore/logger/level"
	logtps "github.com/sabouaram/netcore/logger/types"
	"github.com/sirupsen/logrus"
)

var errMissingFilePath = errors.New("hookfile: missing file path")

const defaultBufferSize = 32 * 1024

// HookFile writes log entries to a file, buffering writes and flushing on a
// one-second ticker so concurrent Fire calls don't serialize on disk I/O.
type HookFile interface {
	logtps.Hook
}

type ohkf struct {
	format           logrus.Formatter
	levels           []logrus.Level
	disableStack     bool
	disableTimestamp bool
	enableTrace      bool
	enableAccessLog  bool
	filepath         string
	filemode         os.FileMode
	pathmode         os.FileMode
	createpath       bool
	bufsize          int
}

type hkf struct {
	m sync.Mutex
	o ohkf
	b *bytes.Buffer
	r atomic.Bool
	c chan []byte
	d chan struct{}
}

// New creates a file hook writing formatted entries to opt.Filepath.
func New(opt logcfg.OptionsFile, format logrus.Formatter) (HookFile, error) {
	if opt.Filepath == "" {
		return nil, errMissingFilePath
	}

	lvl := make([]logrus.Level, 0, len(opt.LogLevel))
	if len(opt.LogLevel) > 0 {
		for _, l := range opt.LogLevel {
			lvl = append(lvl, loglvl.Parse(l).Logrus())
		}
	} else {
		lvl = logrus.AllLevels
	}

	fm := opt.FileMode
	if fm == 0 {
		fm = 0644
	}
	pm := opt.PathMode
	if pm == 0 {
		pm = 0755
	}

	bs := int(opt.FileBufferSize)
	if bs <= 0 {
		bs = defaultBufferSize
	}

	if opt.CreatePath {
		if e := os.MkdirAll(filepath.Dir(opt.Filepath), pm); e != nil {
			return nil, e
		}
	}

	if opt.Create {
		flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
		f, e := os.OpenFile(opt.Filepath, flags, fm)
		if e != nil {
			return nil, e
		}
		_ = f.Close()
	}

	n := &hkf{
		o: ohkf{
			format:           format,
			levels:           lvl,
			disableStack:     opt.DisableStack,
			disableTimestamp: opt.DisableTimestamp,
			enableTrace:      opt.EnableTrace,
			enableAccessLog:  opt.EnableAccessLog,
			filepath:         opt.Filepath,
			filemode:         fm,
			pathmode:         pm,
			createpath:       opt.CreatePath,
			bufsize:          bs,
		},
		b: bytes.NewBuffer(make([]byte, 0, bs)),
		c: make(chan []byte, 256),
		d: make(chan struct{}),
	}

	return n, nil
}

func (o *hkf) Levels() []logrus.Level {
	return o.o.levels
}

func (o *hkf) RegisterHook(log *logrus.Logger) {
	log.AddHook(o)
}

func filterKey(f logrus.Fields, key string) logrus.Fields {
	if len(f) < 1 {
		return f
	}
	delete(f, key)
	return f
}

func (o *hkf) Fire(entry *logrus.Entry) error {
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
		msg := entry.Message
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		p = []byte(msg)
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

	_, e = o.Write(p)
	return e
}

func (o *hkf) Write(p []byte) (int, error) {
	select {
	case o.c <- append([]byte(nil), p...):
		return len(p), nil
	case <-o.d:
		return 0, fmt.Errorf("hookfile: closed")
	}
}

func (o *hkf) flush() {
	if o.b.Len() < 1 {
		return
	}

	o.m.Lock()
	defer o.m.Unlock()

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	f, e := os.OpenFile(o.o.filepath, flags, o.o.filemode)
	if e != nil {
		fmt.Fprintf(os.Stderr, "hookfile: %s: %v\n", o.o.filepath, e)
		o.b.Reset()
		return
	}

	_, _ = f.Write(o.b.Bytes())
	_ = f.Close()
	o.b.Reset()
}

func (o *hkf) Run(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()

	o.r.Store(true)
	defer o.r.Store(false)

	defer o.flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.d:
			return
		case <-t.C:
			o.flush()
		case p := <-o.c:
			o.m.Lock()
			if o.b.Len()+len(p) >= o.b.Cap() {
				o.m.Unlock()
				o.flush()
				o.m.Lock()
			}
			o.b.Write(p)
			o.m.Unlock()
		}
	}
}

func (o *hkf) IsRunning() bool {
	return o.r.Load()
}

func (o *hkf) Close() error {
	select {
	case <-o.d:
	default:
		close(o.d)
	}
	return nil
}
