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

package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sabouaram/netcore/errors"
	logcfg "github.com/sabouaram/netcore/logger/config"
	"github.com/sabouaram/netcore/logger/hookfile"
	"github.com/sabouaram/netcore/logger/hooksyslog"
	"github.com/sabouaram/netcore/logger/hookstdout"
	loglvl "github.com/sabouaram/netcore/logger/level"
)

// LoggingConfig describes the logrus.Logger every SmtpPool built by this
// package logs through (BuildHttpClient sets up no logger). At most one of Stdout/File/Syslog
// needs to be set; all three may be active at once, each with its own
// level filter, composed as independent hooks.
type LoggingConfig struct {
	Level  string               `mapstructure:"level" json:"level" yaml:"level" toml:"level"`
	Stdout *logcfg.OptionsStd   `mapstructure:"stdout" json:"stdout" yaml:"stdout" toml:"stdout"`
	File   *logcfg.OptionsFile  `mapstructure:"file" json:"file" yaml:"file" toml:"file"`
	Syslog *logcfg.OptionsSyslog `mapstructure:"syslog" json:"syslog" yaml:"syslog" toml:"syslog"`
}

func textFormatter(color bool) logrus.Formatter {
	return &logrus.TextFormatter{
		ForceColors:      color,
		DisableColors:    !color,
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		DisableTimestamp: false,
	}
}

// buildLogger turns a LoggingConfig into a ready-to-use logrus.Logger with
// every configured hook registered, satisfying the logrus.FieldLogger that
// smtp.Config.Logger consumes. A nil/zero LoggingConfig
// yields a plain stdout logger at info level.
func buildLogger(cfg *LoggingConfig) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(noopWriter{})
	log.SetLevel(loglvl.InfoLevel.Logrus())

	if cfg == nil {
		h, e := hookstdout.New(&logcfg.OptionsStd{}, logrus.AllLevels, textFormatter(true))
		if e != nil {
			return nil, errors.NewCodeError(ErrorLoggerSetup).Error(e)
		}
		h.RegisterHook(log)
		return log, nil
	}

	if cfg.Level != "" {
		log.SetLevel(loglvl.Parse(cfg.Level).Logrus())
	}

	registered := false

	if cfg.Stdout == nil || !cfg.Stdout.DisableStandard {
		opt := cfg.Stdout
		if opt == nil {
			opt = &logcfg.OptionsStd{}
		}
		h, e := hookstdout.New(opt, logrus.AllLevels, textFormatter(!opt.DisableColor))
		if e != nil {
			return nil, errors.NewCodeError(ErrorLoggerSetup).Error(e)
		}
		h.RegisterHook(log)
		registered = true
	}

	if cfg.File != nil && cfg.File.Filepath != "" {
		h, e := hookfile.New(*cfg.File, textFormatter(false))
		if e != nil {
			return nil, errors.NewCodeError(ErrorLoggerSetup).Error(e)
		}
		h.RegisterHook(log)
		registered = true
	}

	if cfg.Syslog != nil {
		h, e := hooksyslog.New(*cfg.Syslog, textFormatter(false))
		if e != nil {
			return nil, errors.NewCodeError(ErrorLoggerSetup).Error(e)
		}
		h.RegisterHook(log)
		registered = true
	}

	if !registered {
		h, e := hookstdout.New(&logcfg.OptionsStd{}, logrus.AllLevels, textFormatter(true))
		if e != nil {
			return nil, errors.NewCodeError(ErrorLoggerSetup).Error(e)
		}
		h.RegisterHook(log)
	}

	return log, nil
}

// noopWriter discards logrus's own fallback output path; every configured
// destination is reached exclusively through a registered hook.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
