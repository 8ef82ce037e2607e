//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package fanhttp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/bassosimone/safeconn"
)

// Dialer abstracts the [*net.Dialer] behavior.
//
// By making [*ConnectFunc] depend on an abstract implementation we
// allow for unit testing and for using alternative dialers.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// NewConnectFunc returns a new [*ConnectFunc] driving the CONNECTING phase
// for one attempt of a connection.
//
// The cfg argument supplies the dialer, error classifier, and clock shared
// across all of a [Driver]'s in-flight connections.
//
// The network argument must be either "tcp" or "udp".
//
// The logger argument is the [SLogger] to use for structured logging
// (typically already scoped to the attempt's span id, see [spanLogger]).
func NewConnectFunc(cfg *Config, network string, logger SLogger) *ConnectFunc {
	return &ConnectFunc{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Network:       network,
		TimeNow:       cfg.TimeNow,
	}
}

// ConnectFunc converts an already-resolved [Target] to a dialable address
// and drives the CONNECTING state for one attempt.
//
// Returns either a valid [net.Conn] or an error, never both.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ConnectFunc struct {
	// Attempt is the zero-based retry counter of the [*connection] this
	// call is dialing for (see connection.go's attempt field), attached to
	// every log record so CONNECTING events across retries can be told apart.
	//
	// Set by the caller; zero value is attempt 0.
	Attempt int

	// Dialer is the [Dialer] to use.
	//
	// Set by [NewConnectFunc] from [Config.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConnectFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewConnectFunc] to the user-provided logger.
	Logger SLogger

	// Network is the network to use (either "tcp" or "udp").
	//
	// Set by [NewConnectFunc] to the user-provided value.
	Network string

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewConnectFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[Target, net.Conn] = &ConnectFunc{}

// Call invokes the [*ConnectFunc] to connect to target, which must already
// have been resolved to an IP literal by RESOLVE_DNS (see [ResolveFunc]).
func (op *ConnectFunc) Call(ctx context.Context, target Target) (net.Conn, error) {
	addrPort, err := targetAddrPort(target)
	if err != nil {
		return nil, err
	}
	address := addrPort.String()

	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logConnectStart(address, t0, deadline)
	conn, err := op.Dialer.DialContext(ctx, op.Network, address)
	op.logConnectDone(address, t0, deadline, conn, err)
	return conn, err
}

// targetAddrPort converts a resolved [Target] (RESOLVE_DNS having already
// replaced target.Host with an IP literal) into a [netip.AddrPort] the
// standard dialer can use.
func targetAddrPort(t Target) (netip.AddrPort, error) {
	ip, err := netip.ParseAddr(t.Host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("fanhttp: resolved target host %q is not an IP literal: %w", t.Host, err)
	}
	return netip.AddrPortFrom(ip, t.Port), nil
}

func (op *ConnectFunc) logConnectStart(address string, t0 time.Time, deadline time.Time) {
	op.Logger.Info(
		"connectStart",
		slog.Int("attempt", op.Attempt),
		slog.Time("deadline", deadline),
		slog.String("protocol", op.Network),
		slog.String("remoteAddr", address),
		slog.Time("t", t0),
	)
}

func (op *ConnectFunc) logConnectDone(
	address string, t0 time.Time, deadline time.Time, conn net.Conn, err error) {
	op.Logger.Info(
		"connectDone",
		slog.Int("attempt", op.Attempt),
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", op.Network),
		slog.String("remoteAddr", address),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
