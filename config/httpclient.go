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
	"github.com/sabouaram/netcore/certificates"
	"github.com/sabouaram/netcore/httpclient"
)

// ProxyConfig is the YAML-loadable shape of an httpclient.ProxyConfig
// (used when dialing through a proxy).
type ProxyConfig struct {
	Host string `mapstructure:"host" json:"host" yaml:"host" toml:"host"`
	Port int    `mapstructure:"port" json:"port" yaml:"port" toml:"port"`
	User string `mapstructure:"user" json:"user" yaml:"user" toml:"user"`
	Pass string `mapstructure:"pass" json:"pass" yaml:"pass" toml:"pass"`
}

// HttpClientConfig is the YAML-loadable shape of an httpclient.Config,
// consumed by cmd/netcore's http-get subcommand and viper.Unmarshal via
// LoadHttpClient.
type HttpClientConfig struct {
	TLS         *certificates.Config `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
	Proxy       *ProxyConfig         `mapstructure:"proxy" json:"proxy" yaml:"proxy" toml:"proxy"`
	RedirectMax int                  `mapstructure:"redirectMax" json:"redirectMax" yaml:"redirectMax" toml:"redirectMax"`
	ReceiveMax  int                  `mapstructure:"receiveMax" json:"receiveMax" yaml:"receiveMax" toml:"receiveMax"`
	ConnectMs   int                  `mapstructure:"connectMs" json:"connectMs" yaml:"connectMs" toml:"connectMs"`
	StallMs     int                  `mapstructure:"stallMs" json:"stallMs" yaml:"stallMs" toml:"stallMs"`
	OverallMs   int                  `mapstructure:"overallMs" json:"overallMs" yaml:"overallMs" toml:"overallMs"`
	Trace       bool                 `mapstructure:"trace" json:"trace" yaml:"trace" toml:"trace"`
}

// BuildHttpClient turns cfg into an httpclient.HttpSimpleClient.
func BuildHttpClient(cfg HttpClientConfig) *httpclient.HttpSimpleClient {
	var tlsCfg certificates.TLSConfig
	if cfg.TLS != nil {
		tlsCfg = cfg.TLS.New()
	}

	var proxy *httpclient.ProxyConfig
	if cfg.Proxy != nil {
		proxy = &httpclient.ProxyConfig{
			Host: cfg.Proxy.Host,
			Port: cfg.Proxy.Port,
			User: cfg.Proxy.User,
			Pass: cfg.Proxy.Pass,
		}
	}

	return httpclient.New(httpclient.Config{
		TLS:         tlsCfg,
		Proxy:       proxy,
		RedirectMax: cfg.RedirectMax,
		ReceiveMax:  cfg.ReceiveMax,
		ConnectMs:   cfg.ConnectMs,
		StallMs:     cfg.StallMs,
		OverallMs:   cfg.OverallMs,
		Trace:       cfg.Trace,
	})
}
