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

// Command netcore is the exercising CLI for the library: http-get drives one
// httpclient.HttpSimpleClient request to completion, send-mail builds an
// smtp.Pool from a YAML file and delivers one message read from stdin.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	spfcbr "github.com/spf13/cobra"
	spfvpr "github.com/spf13/viper"

	libcbr "github.com/sabouaram/netcore/cobra"
	"github.com/sabouaram/netcore/config"
	libver "github.com/sabouaram/netcore/version"
)

// buildDate is overridden at link time (-ldflags "-X main.buildDate=...");
// it falls back to a fixed RFC3339 date. version.NewVersion replaces only
// an unparsable date with time.Now.
var buildDate = "2020-01-01T00:00:00Z"

func appVersion() libver.Version {
	return libver.NewVersion(
		libver.License_MIT,
		"netcore",
		"event-driven I/O, HTTP/1.1+HTTP/2 codecs, simple HTTP client, and SMTP sender pool",
		buildDate,
		"dev",
		"0.1.0",
		"netcore contributors",
		"NETCORE",
		netcoreMarker{},
		1,
	)
}

// netcoreMarker is the value version.NewVersion reflects on for the root
// package path; as a type of package main its package path, and so
// GetRootPackagePath, is "main".
type netcoreMarker struct{}

func main() {
	app := libcbr.New()
	app.SetVersion(appVersion())
	app.SetFuncInit(func() {})
	app.Init()

	var cfgFile string
	if e := app.SetFlagConfig(true, &cfgFile); e != nil {
		fmt.Fprintln(os.Stderr, e)
		os.Exit(1)
	}

	app.AddCommandCompletion()

	app.AddCommand(newHttpGetCommand(), newSendMailCommand())

	if e := app.Execute(); e != nil {
		fmt.Fprintln(os.Stderr, e)
		os.Exit(1)
	}
}

func newHttpGetCommand() *spfcbr.Command {
	var (
		redirectMax int
		receiveMax  int
		connectMs   int
		trace       bool
	)

	cmd := &spfcbr.Command{
		Use:     "http-get <url>",
		Short:   "Issue one HTTP request with HttpSimpleClient and print the response",
		Example: "netcore http-get https://example.com/",
		Args:    spfcbr.ExactArgs(1),
		RunE: func(_ *spfcbr.Command, args []string) error {
			cli := config.BuildHttpClient(config.HttpClientConfig{
				RedirectMax: redirectMax,
				ReceiveMax:  receiveMax,
				ConnectMs:   connectMs,
				Trace:       trace,
			})

			res := cli.Get(args[0])
			if res.NetError != nil {
				return res.NetError
			}
			if res.Response == nil {
				return fmt.Errorf("netcore: no response received after %d attempt(s)", res.Attempts)
			}

			fmt.Printf("HTTP/1.1 %d %s\n", res.Response.Status, res.Response.Reason)
			if res.Response.Headers != nil {
				for _, name := range res.Response.Headers.Names() {
					if v, ok := res.Response.Headers.Get(name); ok {
						fmt.Printf("%s: %s\n", name, v)
					}
				}
			}
			fmt.Println()
			os.Stdout.Write(res.Response.Body)
			return nil
		},
	}

	cmd.Flags().IntVar(&redirectMax, "redirect-max", 5, "maximum redirects to follow")
	cmd.Flags().IntVar(&receiveMax, "receive-max", 10<<20, "maximum response body bytes")
	cmd.Flags().IntVar(&connectMs, "connect-timeout-ms", 10000, "connect timeout in milliseconds")
	cmd.Flags().BoolVar(&trace, "trace", false, "log every socket/TLS read, write, and event at trace level")
	return cmd
}

func newSendMailCommand() *spfcbr.Command {
	var headerTo string

	cmd := &spfcbr.Command{
		Use:     "send-mail <config.yaml>",
		Short:   "Enqueue one message read from stdin into an smtp.Pool and wait for it to be delivered",
		Example: "netcore send-mail pool.yaml < message.eml",
		Args:    spfcbr.ExactArgs(1),
		RunE: func(_ *spfcbr.Command, args []string) error {
			v := spfvpr.New()
			v.SetConfigFile(args[0])
			if e := v.ReadInConfig(); e != nil {
				return e
			}

			cfg, e := config.LoadSmtp(v, "")
			if e != nil {
				return e
			}

			raw, e := io.ReadAll(os.Stdin)
			if e != nil {
				return e
			}

			pool, e := config.BuildSmtp(*cfg)
			if e != nil {
				return e
			}

			done := make(chan error, 1)
			pool.OnSent(func(map[string]string) { done <- nil })
			pool.OnSendFailed(func(_ map[string]string, err error, _ int, _ bool) bool {
				done <- err
				return false
			})

			headers := map[string]string{}
			if headerTo != "" {
				headers["To"] = headerTo
			}
			if e := pool.Enqueue(raw, headers); e != nil {
				return e
			}

			pool.Resume(nil)
			defer pool.Destroy(true, 5*time.Second)

			return <-done
		},
	}

	cmd.Flags().StringVar(&headerTo, "to", "", "recipient header to attach to the queued message")
	return cmd
}
