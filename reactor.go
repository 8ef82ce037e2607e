// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import "net"

// phaseEvent is how a per-attempt worker goroutine reports progress back to
// the single dispatcher goroutine that owns all connection state.
//
// This channel-based handoff stands in for the readiness-based event loop
// (register/unregister fd readiness, one-shot timers, idle hook) that a
// hand-rolled reactor would require: the dispatcher goroutine is the loop,
// and phaseEvent is its sole notification type. A connect-phase deadline
// is enforced by a [context.Context] passed into DialContext/HandshakeContext;
// write/read-phase deadlines are enforced natively via
// [net.Conn.SetWriteDeadline]/[net.Conn.SetReadDeadline]. Either way the
// worker's blocked call returns with an error, which the worker reports as
// a "done" phaseEvent exactly like any other failure.
//
// kind is "enter" for a notification fired before a worker starts the I/O
// for state, and "done" once that I/O has concluded (successfully or not).
// Only CONNECTING, WRITING, and READING emit "enter" events, matching the
// hook callbacks the state machine defines for those states.
type phaseEvent struct {
	connID  int64
	attempt int
	kind    string
	state   ConnState

	target Target
	conn   net.Conn
	resp   *Response
	err    error
}
