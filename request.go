// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import "time"

// Request is the immutable-per-attempt record describing what to send and
// which callbacks to invoke. It is built by merging [Defaults] with the
// per-call [Options] passed to [Driver.Submit].
type Request struct {
	Protocol string
	Scheme   string
	Method   string
	Path     string
	Query    string
	Head     Header
	Body     []byte

	Host Host

	ConnectTimeout time.Duration
	DrainTimeout   time.Duration
	RequestTimeout time.Duration
	Retries        int

	InitCallback       func(*ConnHandle)
	ConnectingCallback func(*ConnHandle)
	ConnectedCallback  func(*ConnHandle)
	WritingCallback    func(*ConnHandle)
	ReadingCallback    func(*ConnHandle)
	Callback           func(*ConnHandle, ErrorKind, string)
}

// Defaults holds request-level configuration inherited by every [Request]
// submitted through [Driver.Submit]. This mirrors the host-side
// configuration object described as an external collaborator: the driver
// treats it as an opaque source of fields to merge with per-call overrides,
// not as something it parses or validates beyond applying sensible
// zero-value defaults.
type Defaults struct {
	Host     Host
	Scheme   string
	Protocol string
	Method   string
	Path     string
	Query    string
	Head     Header
	Body     []byte

	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	DrainTimeout   time.Duration
	Retries        int

	InitCallback       func(*ConnHandle)
	ConnectingCallback func(*ConnHandle)
	ConnectedCallback  func(*ConnHandle)
	WritingCallback    func(*ConnHandle)
	ReadingCallback    func(*ConnHandle)
	Callback           func(*ConnHandle, ErrorKind, string)
}

// Options overrides zero or more [Defaults] fields for a single request.
// A field left at its zero value falls back to the corresponding Defaults field.
type Options struct {
	Host     Host
	Scheme   string
	Protocol string
	Method   string
	Path     string
	Query    string
	Head     Header
	Body     []byte

	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	DrainTimeout   time.Duration
	Retries        *int

	InitCallback       func(*ConnHandle)
	ConnectingCallback func(*ConnHandle)
	ConnectedCallback  func(*ConnHandle)
	WritingCallback    func(*ConnHandle)
	ReadingCallback    func(*ConnHandle)
	Callback           func(*ConnHandle, ErrorKind, string)
}

// merge builds the per-attempt [Request] from d overridden by opts, then
// applies the remaining built-in defaults (GET /, HTTP/1.1, http).
func (d Defaults) merge(opts Options) Request {
	req := Request{
		Protocol: d.Protocol, Scheme: d.Scheme, Method: d.Method,
		Path: d.Path, Query: d.Query, Head: d.Head, Body: d.Body,
		Host:           d.Host,
		ConnectTimeout: d.ConnectTimeout, DrainTimeout: d.DrainTimeout, RequestTimeout: d.RequestTimeout,
		Retries:            d.Retries,
		InitCallback:        d.InitCallback,
		ConnectingCallback:  d.ConnectingCallback,
		ConnectedCallback:   d.ConnectedCallback,
		WritingCallback:     d.WritingCallback,
		ReadingCallback:     d.ReadingCallback,
		Callback:            d.Callback,
	}

	if opts.Host != nil {
		req.Host = opts.Host
	}
	if opts.Scheme != "" {
		req.Scheme = opts.Scheme
	}
	if opts.Protocol != "" {
		req.Protocol = opts.Protocol
	}
	if opts.Method != "" {
		req.Method = opts.Method
	}
	if opts.Path != "" {
		req.Path = opts.Path
	}
	if opts.Query != "" {
		req.Query = opts.Query
	}
	if opts.Head != nil {
		req.Head = opts.Head
	}
	if opts.Body != nil {
		req.Body = opts.Body
	}
	if opts.ConnectTimeout != 0 {
		req.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.DrainTimeout != 0 {
		req.DrainTimeout = opts.DrainTimeout
	}
	if opts.RequestTimeout != 0 {
		req.RequestTimeout = opts.RequestTimeout
	}
	if opts.Retries != nil {
		req.Retries = *opts.Retries
	}
	if opts.InitCallback != nil {
		req.InitCallback = opts.InitCallback
	}
	if opts.ConnectingCallback != nil {
		req.ConnectingCallback = opts.ConnectingCallback
	}
	if opts.ConnectedCallback != nil {
		req.ConnectedCallback = opts.ConnectedCallback
	}
	if opts.WritingCallback != nil {
		req.WritingCallback = opts.WritingCallback
	}
	if opts.ReadingCallback != nil {
		req.ReadingCallback = opts.ReadingCallback
	}
	if opts.Callback != nil {
		req.Callback = opts.Callback
	}

	if req.Protocol == "" {
		req.Protocol = "HTTP/1.1"
	}
	if req.Method == "" {
		req.Method = "GET"
	}
	if req.Path == "" {
		req.Path = "/"
	}
	if req.Scheme == "" {
		req.Scheme = "http"
	}
	return req
}
