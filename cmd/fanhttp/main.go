// SPDX-License-Identifier: GPL-3.0-or-later

// Command fanhttp fans a GET request out to one or more URLs concurrently
// and prints one line per completed connection.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jcorbin/fanhttp"
	"github.com/jcorbin/fanhttp/syscallclass"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	retries        int
	connectTimeout time.Duration
	requestTimeout time.Duration
	verbose        bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "fanhttp url [url...]",
		Short: "Fan a GET request out to one or more URLs concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.retries, "retries", 0, "number of retries per URL")
	cmd.Flags().DurationVar(&opts.connectTimeout, "connect-timeout", 10*time.Second, "connect_timeout per attempt")
	cmd.Flags().DurationVar(&opts.requestTimeout, "request-timeout", 30*time.Second, "request_timeout across all attempts")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "emit debug-level I/O logs in addition to lifecycle logs")

	return cmd
}

func run(ctx context.Context, urls []string, opts options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := fanhttp.NewConfig()
	cfg.ErrClassifier = fanhttp.ErrClassifierFunc(syscallclass.Classify)

	driver := fanhttp.NewDriver(cfg, logger, fanhttp.WithSocketCache(fanhttp.NewSocketCache()))

	var ids []int64
	for _, raw := range urls {
		target, defaults, err := defaultsFromURL(raw)
		if err != nil {
			return fmt.Errorf("fanhttp: %w", err)
		}
		retries := opts.retries
		id := driver.Submit(defaults, fanhttp.Options{
			Host:           target,
			ConnectTimeout: opts.connectTimeout,
			RequestTimeout: opts.requestTimeout,
			Retries:        &retries,
			Callback:       printResult(raw),
		})
		ids = append(ids, id)
	}

	if err := driver.Run(ctx, fanhttp.StateCompleted, ids...); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printResult(raw string) func(*fanhttp.ConnHandle, fanhttp.ErrorKind, string) {
	return func(conn *fanhttp.ConnHandle, kind fanhttp.ErrorKind, msg string) {
		if kind != fanhttp.NoError {
			fmt.Printf("%s: %s: %s\n", raw, kind, msg)
			return
		}
		resp := conn.Response()
		fmt.Printf("%s: %d (%d bytes)\n", raw, resp.Status, len(resp.Body))
	}
}

// defaultsFromURL builds the per-request [fanhttp.Host] and [fanhttp.Defaults]
// for a "scheme://host[:port]/path[?query]" URL. URL parsing itself is an
// external collaborator; this is the minimal glue the CLI needs.
func defaultsFromURL(raw string) (fanhttp.Host, fanhttp.Defaults, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fanhttp.Defaults{}, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fanhttp.Defaults{}, fmt.Errorf("unsupported scheme in %q", raw)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	var head fanhttp.Header
	head.Add("Host", u.Hostname())
	head.Add("User-Agent", "fanhttp/1")
	head.Add("Connection", "close")

	defaults := fanhttp.Defaults{
		Scheme:   u.Scheme,
		Protocol: "HTTP/1.1",
		Method:   "GET",
		Path:     path,
		Query:    u.RawQuery,
		Head:     head,
	}

	hostport := u.Host
	if !strings.Contains(hostport, ":") {
		hostport = fmt.Sprintf("%s:%d", u.Hostname(), fanhttp.DefaultPort(u.Scheme))
	}
	return fanhttp.HostString(hostport), defaults, nil
}
