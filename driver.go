//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package fanhttp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Driver is the state-machine engine: it owns every in-flight connection,
// dispatches a per-attempt worker goroutine for each one, and is the sole
// goroutine that mutates connection state or invokes user callbacks.
//
// Worker goroutines perform DNS resolution, dialing, the TLS handshake, and
// the write/read phases; they report progress back to the Driver's single
// dispatch loop (run by [Driver.Run], [Driver.RunOnce], or
// [Driver.RunNowait]) over a buffered channel of [phaseEvent] values.
// This keeps every state transition and every callback invocation
// single-threaded, while still using ordinary goroutines rather than a
// hand-rolled readiness reactor for the I/O itself.
//
// A *Driver's exported methods are safe to call from multiple goroutines
// (including from within a callback the Driver itself invoked); the
// dispatch loop internally serializes all state mutation through its own
// goroutine.
type Driver struct {
	cfg    *Config
	logger SLogger
	cache  *SocketCache

	keepTimeline      bool
	accountForSignals bool

	cancelWatch *CancelWatchFunc
	tlsEngine   TLSEngine

	nextID atomic.Int64

	mu    sync.Mutex
	conns map[int64]*connection
	ctx   context.Context

	events  chan phaseEvent
	running atomic.Bool
	breakCh chan struct{}
}

// DriverOption configures optional [Driver] behavior at construction.
type DriverOption func(*Driver)

// WithSocketCache enables keep-alive socket reuse against cache.
func WithSocketCache(cache *SocketCache) DriverOption {
	return func(d *Driver) { d.cache = cache }
}

// WithTimeline enables per-connection timeline tracking ([ConnHandle.Timeline]).
func WithTimeline() DriverOption {
	return func(d *Driver) { d.keepTimeline = true }
}

// WithSignalAccounting installs a per-iteration idle tick, guaranteeing host
// signal handlers (which only run when Go code executes) fire promptly even
// while [Driver.Run] is otherwise blocked waiting on connection events.
func WithSignalAccounting() DriverOption {
	return func(d *Driver) { d.accountForSignals = true }
}

// NewDriver returns a new [*Driver]. cfg supplies the dialer, TLS engine,
// resolver address, error classifier, and clock; logger receives structured
// logs for every phase. A nil cfg or logger falls back to [NewConfig] and
// [DefaultSLogger] respectively.
func NewDriver(cfg *Config, logger SLogger, opts ...DriverOption) *Driver {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = DefaultSLogger()
	}
	d := &Driver{
		cfg:         cfg,
		logger:      logger,
		conns:       make(map[int64]*connection),
		events:      make(chan phaseEvent, 64),
		ctx:         context.Background(),
		cancelWatch: NewCancelWatchFunc(),
		tlsEngine:   cfg.TLSEngine,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit merges opts over defaults and enqueues the resulting request. It
// returns immediately with a new connection id; work begins on the next
// [Driver.Run] (or [Driver.RunOnce] / [Driver.RunNowait]) iteration.
func (d *Driver) Submit(defaults Defaults, opts Options) int64 {
	req := defaults.merge(opts)
	id := d.nextID.Add(1)
	conn := newConnection(id, req)
	conn.keepTimeline = d.keepTimeline

	d.mu.Lock()
	d.conns[id] = conn
	d.mu.Unlock()
	return id
}

func (d *Driver) lookup(id int64) (*connection, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.conns[id]
	return c, ok
}

// startPending launches a worker for every connection still waiting at
// INITIALIZED: freshly submitted, reset for retry, or reinitialized.
func (d *Driver) startPending() {
	d.mu.Lock()
	ctx := d.ctx
	var pending []*connection
	for _, c := range d.conns {
		if c.state == StateInitialized && !c.started {
			c.started = true
			pending = append(pending, c)
		}
	}
	d.mu.Unlock()

	now := d.cfg.TimeNow()
	for _, c := range pending {
		if c.attempt == 0 && c.reqDeadlines.request.IsZero() && c.request.RequestTimeout > 0 {
			c.reqDeadlines = newDeadlines(now, c.request)
		}
		d.startAttempt(c, ctx)
	}
}

// startAttempt fires the init hook, selects this attempt's target, and
// launches the worker goroutine that drives it through RESOLVE_DNS..READING.
func (d *Driver) startAttempt(c *connection, ctx context.Context) {
	now := d.cfg.TimeNow()
	if !d.invokeHook(c, c.request.InitCallback) {
		return
	}

	target, err := c.request.Host.Select(ctx, c.attempt, c.request.Scheme)
	if err != nil {
		d.handleFailure(c, ConnectError, err, now)
		return
	}
	c.target = target
	c.transition(StateResolveDNS, now)

	connectDeadline := c.reqDeadlines.connectFor(now, c.request)
	drainDeadline := c.reqDeadlines.drainFor(now, c.request)
	readDeadline := c.reqDeadlines.readFor()

	connectCtx := ctx
	var cancel context.CancelFunc
	if !connectDeadline.IsZero() {
		connectCtx, cancel = context.WithDeadline(ctx, connectDeadline)
	}

	spanID := NewSpanID()
	logger := spanLogger(d.logger, spanID)

	go func() {
		if cancel != nil {
			defer cancel()
		}
		d.runAttempt(c.id, c.attempt, c.request, target, ctx, connectCtx, drainDeadline, readDeadline, logger)
	}()
}

// runAttempt is the per-attempt worker: it drives one connection through
// RESOLVE_DNS, CONNECTING, the optional SSL_HANDSHAKE, WRITING, and READING,
// reporting each phase's outcome to the dispatcher over d.events. It never
// touches connection state directly.
func (d *Driver) runAttempt(
	id int64, attempt int, req Request, target Target,
	runCtx context.Context, connectCtx context.Context,
	drainDeadline, readDeadline time.Time,
	logger SLogger,
) {
	emit := func(kind string, state ConnState, extra phaseEvent) {
		extra.connID, extra.attempt, extra.kind, extra.state = id, attempt, kind, state
		d.events <- extra
	}

	resolveFn := NewResolveFunc(d.cfg, logger)
	connectFn := NewConnectFunc(d.cfg, "tcp", logger)
	connectFn.Attempt = attempt
	observeFn := NewObserveConnFunc(d.cfg, logger)
	observeFn.Attempt = attempt

	resolved, err := resolveFn.Call(connectCtx, target)
	emit("done", StateResolveDNS, phaseEvent{target: resolved, err: err})
	if err != nil {
		return
	}

	emit("enter", StateConnecting, phaseEvent{})
	conn, reused, err := d.obtainConn(connectCtx, connectFn, req, resolved)
	if err != nil {
		emit("done", StateConnecting, phaseEvent{err: err})
		return
	}
	emit("done", StateConnecting, phaseEvent{conn: conn})

	// A socket taken from the cache already completed SSL_HANDSHAKE (or was
	// never https to begin with); only a freshly dialed https connection
	// needs one now.
	if req.Scheme == "https" && !reused {
		tconn, err := d.handshake(connectCtx, conn, resolved.Host, attempt, logger)
		if err != nil {
			emit("done", StateSSLHandshake, phaseEvent{err: err})
			return
		}
		conn = tconn
		emit("done", StateSSLHandshake, phaseEvent{conn: conn})
	}

	watched, _ := d.cancelWatch.Call(runCtx, conn)
	observed, _ := observeFn.Call(runCtx, watched)

	emit("enter", StateWriting, phaseEvent{})
	if !drainDeadline.IsZero() {
		observed.SetWriteDeadline(drainDeadline)
	}
	payload := EncodeRequest(req.Method, req.Path, req.Query, req.Protocol, req.Head, req.Body)
	if err := writeFull(observed, payload); err != nil {
		emit("done", StateWriting, phaseEvent{err: err})
		return
	}
	observed.SetWriteDeadline(time.Time{})
	emit("done", StateWriting, phaseEvent{conn: observed})

	emit("enter", StateReading, phaseEvent{})
	if !readDeadline.IsZero() {
		observed.SetReadDeadline(readDeadline)
	}
	resp, err := readResponse(observed)
	emit("done", StateReading, phaseEvent{resp: resp, conn: observed, err: err})
}

// obtainConn takes a cached socket for target if the socket cache holds one,
// otherwise dials fresh. reused reports whether conn came from the cache
// (and therefore, for https, already completed its handshake).
func (d *Driver) obtainConn(ctx context.Context, connectFn *ConnectFunc, req Request, target Target) (conn net.Conn, reused bool, err error) {
	if d.cache != nil {
		if cached, ok := d.cache.Take(d.cfg.ProcessID, target); ok {
			return cached, true, nil
		}
	}
	conn, err = connectFn.Call(ctx, target)
	return conn, false, err
}

func (d *Driver) handshake(ctx context.Context, conn net.Conn, serverName string, attempt int, logger SLogger) (TLSConn, error) {
	tlsConfig := &tls.Config{ServerName: serverName, NextProtos: []string{"http/1.1"}}
	handshakeFn := NewTLSHandshakeFunc(d.cfg, tlsConfig, logger)
	handshakeFn.Attempt = attempt
	handshakeFn.Engine = d.tlsEngine
	return handshakeFn.Call(ctx, conn)
}

func writeFull(conn net.Conn, data []byte) error {
	for len(data) > 0 {
		n, err := conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func readResponse(conn net.Conn) (*Response, error) {
	parser := NewResponseParser()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			done, perr := parser.Feed(buf[:n])
			if perr != nil {
				return nil, perr
			}
			if done {
				return parser.Response(), nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// handleEvent applies one worker-reported [phaseEvent] to its connection.
// It is only ever called from the dispatch loop goroutine.
func (d *Driver) handleEvent(ev phaseEvent) {
	c, ok := d.lookup(ev.connID)
	if !ok || ev.attempt != c.attempt {
		return // stale event from a superseded or dropped connection/attempt
	}
	if c.state == StateCompleted {
		// A hook panic already completed this attempt while its worker was
		// still running; release any socket it reports and ignore the event.
		if ev.conn != nil {
			ev.conn.Close()
		}
		return
	}
	now := d.cfg.TimeNow()

	switch ev.state {
	case StateResolveDNS:
		if ev.err != nil {
			d.handleFailure(c, ConnectError, ev.err, now)
			return
		}
		c.target = ev.target

	case StateConnecting:
		if ev.kind == "enter" {
			c.transition(StateConnecting, now)
			d.invokeHook(c, c.request.ConnectingCallback)
			return
		}
		if ev.err != nil {
			d.handleFailure(c, ConnectError, ev.err, now)
			return
		}
		c.conn = ev.conn
		c.transition(StateConnected, now)
		if !d.invokeHook(c, c.request.ConnectedCallback) {
			return
		}
		if c.request.Scheme == "https" {
			c.transition(StateSSLHandshake, now)
		}

	case StateSSLHandshake:
		if ev.err != nil {
			d.handleFailure(c, TLSError, ev.err, now)
			return
		}
		c.conn = ev.conn

	case StateWriting:
		if ev.kind == "enter" {
			c.transition(StateWriting, now)
			d.invokeHook(c, c.request.WritingCallback)
			return
		}
		if ev.err != nil {
			d.handleFailure(c, WriteError, ev.err, now)
			return
		}
		c.conn = ev.conn

	case StateReading:
		if ev.kind == "enter" {
			c.transition(StateReading, now)
			d.invokeHook(c, c.request.ReadingCallback)
			return
		}
		if ev.err != nil {
			kind := ReadError
			if errors.Is(ev.err, ErrMissingContentLength) || errors.Is(ev.err, ErrMalformedStatusLine) {
				kind = ResponseError
			}
			d.handleFailure(c, kind, ev.err, now)
			return
		}
		c.response = ev.resp
		d.complete(c, NoError, "", now)
	}
}

// handleFailure records a failure and either drives the retry branch
// (returning the connection to INITIALIZED, if attempts remain and the
// kind is recoverable) or the failure branch (straight to USER_ACTION).
func (d *Driver) handleFailure(c *connection, kind ErrorKind, err error, now time.Time) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = Timeout
	}
	c.recordError(kind, err.Error(), now)
	c.attemptsLeft--

	if kind.Recoverable() && c.attemptsLeft > 0 {
		d.closeConn(c, false)
		c.attempt++
		c.started = false
		c.transition(StateInitialized, now)
		return
	}
	d.complete(c, kind, err.Error(), now)
}

// complete transitions to USER_ACTION, invokes the terminal callback, and
// applies whatever deferred action (retry, reinit, drop, or nothing) the
// callback requested.
func (d *Driver) complete(c *connection, kind ErrorKind, msg string, now time.Time) {
	c.transition(StateUserAction, now)
	c.pendingAction = actionNone
	d.invokeTerminal(c, kind, msg)

	switch c.pendingAction {
	case actionRetry:
		if c.attemptsLeft > 0 {
			d.closeConn(c, false)
			c.attempt++
			c.started = false
			c.transition(StateInitialized, now)
			return
		}
	case actionReinit:
		overrides := c.pendingOverrides
		d.closeConn(c, false)
		if overrides != nil {
			c.request = *overrides
			c.attemptsLeft = overrides.Retries + 1
			c.attempt = 0
			c.response = nil
			c.reqDeadlines = deadlines{}
		}
		c.started = false
		c.transition(StateInitialized, now)
		return
	}

	d.closeConn(c, kind == NoError)
	c.transition(StateCompleted, now)
}

// closeConn releases the connection's socket: cached on clean keep-alive
// completion (allowCache, no error, HTTP/1.1, no "Connection: close"),
// closed otherwise.
func (d *Driver) closeConn(c *connection, allowCache bool) {
	conn := c.conn
	c.conn = nil
	if conn == nil {
		return
	}
	if allowCache && d.cache != nil && d.keepAliveEligible(c) {
		d.cache.Put(d.cfg.ProcessID, c.target, conn)
		return
	}
	conn.Close()
}

// keepAliveEligible implements the socket-cache rules: never cache on error
// (caller already excludes that via allowCache), never cache HTTP/1.0
// (conservative default per the unresolved keep-alive ambiguity), and never
// cache a response carrying "Connection: close".
func (d *Driver) keepAliveEligible(c *connection) bool {
	if c.request.Protocol != "HTTP/1.1" {
		return false
	}
	if c.response == nil {
		return false
	}
	return !c.response.Head.HasToken("Connection", "close")
}

// invokeHook invokes hook, if non-nil, with a borrowed [*ConnHandle]. It
// reports false if the hook panicked, in which case the connection has
// already been driven to USER_ACTION with [InternalError] and the caller
// must not continue the in-progress transition.
func (d *Driver) invokeHook(c *connection, hook func(*ConnHandle)) (ok bool) {
	if hook == nil {
		return true
	}
	ok = true
	handle := &ConnHandle{driver: d, id: c.id}
	defer handle.clear()
	defer func() {
		if r := recover(); r != nil {
			ok = false
			d.complete(c, InternalError, fmt.Sprintf("fanhttp: hook callback panicked: %v", r), d.cfg.TimeNow())
		}
	}()
	hook(handle)
	return
}

// invokeTerminal invokes the terminal callback, if any, with a borrowed
// [*ConnHandle]. A panicking terminal callback is treated as "do nothing":
// the connection still completes, but its socket is closed rather than
// returned to the socket cache.
func (d *Driver) invokeTerminal(c *connection, kind ErrorKind, msg string) {
	if c.request.Callback == nil {
		return
	}
	handle := &ConnHandle{driver: d, id: c.id}
	defer handle.clear()
	defer func() {
		if recover() != nil {
			c.pendingAction = actionNone
			d.closeConn(c, false)
		}
	}()
	c.request.Callback(handle, kind, msg)
}
