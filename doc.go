// SPDX-License-Identifier: GPL-3.0-or-later

// Package fanhttp is a minimal, low-latency HTTP/1.x client built for fan-out
// workloads: a caller submits many requests, each potentially aimed at a pool
// of candidate hosts, and a [Driver] advances all of them concurrently through
// an explicit per-connection state machine with retry, timeout, and callback
// hooks.
//
// This is not a general-purpose user agent. It does not follow redirects,
// negotiate proxies, or interpret cookies. It speaks HTTP over TCP, optionally
// over TLS, one step above raw sockets: the caller supplies pre-encoded
// method/path/headers/body bytes and gets back a status line, header
// multi-map, and body, nothing more.
//
// # Core abstraction
//
// A [Driver] owns a map of connection ids to connection state and a single
// dispatcher goroutine. [Driver.Submit] enqueues a request and returns its
// connection id immediately; work begins on the dispatcher's next turn.
// [Driver.Run] blocks until every connection reaches [StateCompleted] (or,
// given an explicit id list and target state, until all of them reach that
// state).
//
// Every connection moves through the state graph:
//
//	INITIALIZED -> RESOLVE_DNS -> CONNECTING -> CONNECTED
//	            -> [SSL_HANDSHAKE if https]
//	            -> WRITING -> READING -> USER_ACTION -> COMPLETED
//
// An I/O or timeout failure in any of RESOLVE_DNS/CONNECTING/CONNECTED/
// SSL_HANDSHAKE/WRITING/READING drives the retry branch: attempts_left is
// decremented and, if still positive, the connection returns to INITIALIZED
// against the next candidate target. Reaching zero attempts, or an
// unsupported response shape, drives to USER_ACTION with the last error.
// The terminal callback registered on the request may ask the driver to do
// nothing (-> COMPLETED), retry, reinitialize with overrides, or drop the
// connection outright. See [ConnHandle].
//
// # Concurrency model
//
// Connection state is single-threaded: only the dispatcher goroutine ever
// reads or writes a *connection. Per-phase I/O (DNS exchange, dial, TLS
// handshake, write, read) runs in a short-lived worker goroutine that reports
// its outcome back over a [phaseEvent] channel; see DESIGN.md for why this,
// rather than a hand-rolled readiness reactor, is the idiomatic Go
// realization of the single-threaded-cooperative model this package
// implements.
//
// # Observability
//
// All primitives emit structured logs through [SLogger] (compatible with
// [log/slog]); the default is a no-op. [ErrClassifier] additionally maps raw
// errors to short categorical strings (see the syscallclass subpackage for a
// concrete classifier); the default is also a no-op. Each attempt is tagged
// with a fresh [NewSpanID] so its RESOLVE_DNS/CONNECTING/SSL_HANDSHAKE/
// WRITING/READING log entries correlate; a retried attempt gets its own span.
//
// # Phase primitives
//
// The DNS, connect, TLS, and I/O-observation phases are each expressed as a
// [Func][A, B]: a single-method interface implemented by [ResolveFunc],
// [ConnectFunc], [TLSHandshakeFunc], and [ObserveConnFunc]. The per-attempt
// worker calls each phase's Func directly and reports entry/exit to the
// dispatcher separately, which fires the hooks.
package fanhttp
