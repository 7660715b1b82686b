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
	libmap "github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	tlscas "github.com/sabouaram/netcore/certificates/ca"
	tlscrt "github.com/sabouaram/netcore/certificates/certs"
	tlscpr "github.com/sabouaram/netcore/certificates/cipher"
	tlscrv "github.com/sabouaram/netcore/certificates/curves"
	"github.com/sabouaram/netcore/errors"
)

// decodeHooks composes every certificates sub-package's ViperDecoderHook
// with the stdlib-ish hooks viper.Unmarshal needs for duration/text types,
// so one viper.Unmarshal call can populate a TLS-bearing config struct.
func decodeHooks() libmap.DecodeHookFunc {
	return libmap.ComposeDecodeHookFunc(
		libmap.StringToTimeDurationHookFunc(),
		libmap.StringToSliceHookFunc(","),
		libmap.TextUnmarshallerHookFunc(),
		tlscas.ViperDecoderHook(),
		tlscpr.ViperDecoderHook(),
		tlscrv.ViperDecoderHook(),
		tlscrt.ViperDecoderHook(),
	)
}

func unmarshal(v *viper.Viper, key string, out interface{}) error {
	opt := func(c *libmap.DecoderConfig) {
		c.DecodeHook = decodeHooks()
		c.WeaklyTypedInput = true
	}
	var e error
	if key == "" {
		e = v.Unmarshal(out, opt)
	} else {
		e = v.UnmarshalKey(key, out, opt)
	}
	if e != nil {
		return errors.NewCodeError(ErrorUnmarshal).Error(e)
	}
	return nil
}

// LoadSmtp reads an SmtpConfig from v at key (or the document root if key
// is ""); BuildSmtp turns it into an smtp.Pool.
func LoadSmtp(v *viper.Viper, key string) (*SmtpConfig, error) {
	cfg := &SmtpConfig{}
	if e := unmarshal(v, key, cfg); e != nil {
		return nil, e
	}
	return cfg, nil
}

// LoadHttpClient reads an HttpClientConfig from v at key (or the document
// root if key is "").
func LoadHttpClient(v *viper.Viper, key string) (*HttpClientConfig, error) {
	cfg := &HttpClientConfig{}
	if e := unmarshal(v, key, cfg); e != nil {
		return nil, e
	}
	return cfg, nil
}
