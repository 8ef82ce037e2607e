// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import (
	"context"
	"net"
)

// NewCancelWatchFunc returns a new [*CancelWatchFunc].
func NewCancelWatchFunc() *CancelWatchFunc {
	return &CancelWatchFunc{}
}

// CancelWatchFunc wraps a freshly-connected socket with a watcher bound to
// [Driver]'s overarching run context, so that cancelling [Driver.Run]'s
// context (e.g. a caller wiring up signal.NotifyContext for SIGINT) closes
// every connection immediately rather than waiting for drain_timeout or
// request_timeout to elapse on their own.
//
// [Driver.runAttempt] calls this once per attempt, between SSL_HANDSHAKE
// (or CONNECTING, for plaintext requests) and WRITING, wrapping the raw
// [net.Conn] before it is in turn wrapped by [ObserveConnFunc] for logging.
// Closing the returned connection unregisters the watcher and closes the
// underlying connection, so no goroutine leaks even if the run context is
// never cancelled.
//
// The watcher relies on Go's [net.ErrClosed] convention: closing an
// already-closed connection returns [net.ErrClosed] rather than panicking,
// so a connection that finishes normally and one torn down by context
// cancellation race safely to the same outcome.
type CancelWatchFunc struct{}

var _ Func[net.Conn, net.Conn] = &CancelWatchFunc{}

// Call registers a context watcher using [context.AfterFunc] that closes
// the connection when the context is done. The returned [net.Conn] wraps
// the input: closing it unregisters the watcher and closes the underlying
// connection.
func (op *CancelWatchFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	return &cancelWatchedConn{Conn: conn, stop: stop}, nil
}

// cancelWatchedConn wraps a [net.Conn] with a context cancellation watcher.
type cancelWatchedConn struct {
	net.Conn
	stop func() bool
}

// Close unregisters the context watcher and closes the underlying connection.
func (c *cancelWatchedConn) Close() error {
	c.stop()
	return c.Conn.Close()
}
