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
	"strings"
	"time"

	"github.com/sabouaram/netcore/certificates"
	"github.com/sabouaram/netcore/errors"
	"github.com/sabouaram/netcore/smtp"
)

// EndpointConfig describes one smtp.Endpoint in viper-friendly shape
// (see smtp.Endpoint).
type EndpointConfig struct {
	Kind     string              `mapstructure:"kind" json:"kind" yaml:"kind" toml:"kind"`
	Address  string              `mapstructure:"address" json:"address" yaml:"address" toml:"address"`
	Port     int                 `mapstructure:"port" json:"port" yaml:"port" toml:"port"`
	Network  string              `mapstructure:"network" json:"network" yaml:"network" toml:"network"`
	User     string              `mapstructure:"user" json:"user" yaml:"user" toml:"user"`
	Pass     string              `mapstructure:"pass" json:"pass" yaml:"pass" toml:"pass"`
	MaxConns int                 `mapstructure:"maxConns" json:"maxConns" yaml:"maxConns" toml:"maxConns"`
	TLS      *certificates.Config `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`

	Command string        `mapstructure:"command" json:"command" yaml:"command" toml:"command"`
	Args    []string      `mapstructure:"args" json:"args" yaml:"args" toml:"args"`
	Env     []string      `mapstructure:"env" json:"env" yaml:"env" toml:"env"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" toml:"timeout"`
}

func (e EndpointConfig) build() (*smtp.Endpoint, errors.Error) {
	switch strings.ToLower(e.Kind) {
	case "", "tcp":
		var tlsCfg certificates.TLSConfig
		if e.TLS != nil {
			tlsCfg = e.TLS.New()
		}
		ep := smtp.NewTcpEndpoint(e.Address, e.Port, tlsCfg, e.User, e.Pass, e.MaxConns)
		if e.Network != "" {
			ep.WithNetwork(e.Network)
		}
		return ep, nil
	case "process":
		return smtp.NewProcessEndpoint(e.Command, e.Args, e.Env, e.Timeout), nil
	default:
		return nil, errors.NewCodeError(ErrorValidation).Error(nil)
	}
}

// SmtpConfig is the YAML-loadable shape of an smtp.Pool plus its
// delivery-policy knobs, consumed by cmd/netcore's send-mail subcommand
// and viper.Unmarshal via LoadSmtp.
type SmtpConfig struct {
	Mode          string           `mapstructure:"mode" json:"mode" yaml:"mode" toml:"mode"`
	MaxQueueBytes int              `mapstructure:"maxQueueBytes" json:"maxQueueBytes" yaml:"maxQueueBytes" toml:"maxQueueBytes"`
	NumAttempts   int              `mapstructure:"numAttempts" json:"numAttempts" yaml:"numAttempts" toml:"numAttempts"`
	ConnectMs     int              `mapstructure:"connectMs" json:"connectMs" yaml:"connectMs" toml:"connectMs"`
	StallMs       int              `mapstructure:"stallMs" json:"stallMs" yaml:"stallMs" toml:"stallMs"`
	IdleMs        int              `mapstructure:"idleMs" json:"idleMs" yaml:"idleMs" toml:"idleMs"`
	Endpoints     []EndpointConfig `mapstructure:"endpoints" json:"endpoints" yaml:"endpoints" toml:"endpoints"`
	Logging       *LoggingConfig   `mapstructure:"logging" json:"logging" yaml:"logging" toml:"logging"`
}

func (c SmtpConfig) poolMode() smtp.PoolMode {
	if strings.EqualFold(c.Mode, "roundrobin") || strings.EqualFold(c.Mode, "round-robin") {
		return smtp.RoundRobin
	}
	return smtp.Failover
}

// BuildSmtp validates cfg and constructs a ready-to-Resume smtp.Pool with
// every configured endpoint already attached and its logger wired
// (DESIGN.md notes the syslog-transport wiring this
// performs when cfg.Logging.Syslog is set).
func BuildSmtp(cfg SmtpConfig) (*smtp.Pool, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, errors.NewCodeError(ErrorNoEndpoints).Error(nil)
	}

	log, e := buildLogger(cfg.Logging)
	if e != nil {
		return nil, e
	}

	p := smtp.New(smtp.Config{
		Mode:          cfg.poolMode(),
		MaxQueueBytes: cfg.MaxQueueBytes,
		NumAttempts:   cfg.NumAttempts,
		ConnectMs:     cfg.ConnectMs,
		StallMs:       cfg.StallMs,
		IdleMs:        cfg.IdleMs,
		Logger:        log,
	})

	for _, ec := range cfg.Endpoints {
		ep, be := ec.build()
		if be != nil {
			return nil, be
		}
		p.AddEndpoint(ep)
	}

	return p, nil
}
