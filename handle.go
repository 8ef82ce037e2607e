// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

// ConnHandle is a borrowed reference to a connection, handed to user
// callbacks (hook callbacks and the terminal callback). It must not be
// retained past the callback that received it: the driver clears its
// back-pointer once the callback returns, after which ID still reports the
// id, State reports [StateCompleted], every other accessor returns its zero
// value, and every mutator is a silent no-op.
//
// Handing callbacks a ConnHandle rather than the connection itself is what
// avoids the callback -> driver -> callback reference cycle: the driver is
// the connection's sole owner, and the handle is just an (driver, id) pair
// that stops working the moment it is no longer valid.
type ConnHandle struct {
	driver *Driver
	id     int64
}

// clear detaches the handle from its driver.
func (h *ConnHandle) clear() {
	h.driver = nil
}

func (h *ConnHandle) conn() (*connection, bool) {
	if h == nil || h.driver == nil {
		return nil, false
	}
	return h.driver.lookup(h.id)
}

// ID returns the connection's stable identifier.
func (h *ConnHandle) ID() int64 {
	return h.id
}

// State returns the connection's current state.
func (h *ConnHandle) State() ConnState {
	c, ok := h.conn()
	if !ok {
		return StateCompleted
	}
	return c.state
}

// Target returns the target selected for the current attempt.
func (h *ConnHandle) Target() Target {
	c, ok := h.conn()
	if !ok {
		return Target{}
	}
	return c.target
}

// Errors returns a copy of the connection's append-only error timeline.
func (h *ConnHandle) Errors() []ErrorEntry {
	c, ok := h.conn()
	if !ok {
		return nil
	}
	return append([]ErrorEntry(nil), c.errors...)
}

// LastError returns the most recent error timeline entry, if any.
func (h *ConnHandle) LastError() (ErrorEntry, bool) {
	c, ok := h.conn()
	if !ok {
		return ErrorEntry{}, false
	}
	return c.lastError()
}

// Timeline returns a copy of the connection's state transition history,
// populated only when the driver was constructed with [WithTimeline].
func (h *ConnHandle) Timeline() []TimelineEntry {
	c, ok := h.conn()
	if !ok {
		return nil
	}
	return append([]TimelineEntry(nil), c.timeline...)
}

// Request returns the immutable-per-attempt request record.
func (h *ConnHandle) Request() Request {
	c, ok := h.conn()
	if !ok {
		return Request{}
	}
	return c.request
}

// Response returns the parsed response. Only meaningful when the terminal
// callback's error_kind is [NoError]; otherwise its fields are undefined
// and must not be read.
func (h *ConnHandle) Response() *Response {
	c, ok := h.conn()
	if !ok {
		return nil
	}
	return c.response
}

// AttemptsLeft returns the connection's remaining attempt budget: Retries+1
// at submission (or after Reinit), decremented once per failed attempt and
// left unchanged by a successful one.
func (h *ConnHandle) AttemptsLeft() int {
	c, ok := h.conn()
	if !ok {
		return 0
	}
	return c.attemptsLeft
}

// Retry requests a retry from within the terminal callback. A silent no-op
// if attempts_left is zero.
func (h *ConnHandle) Retry() {
	c, ok := h.conn()
	if !ok || c.attemptsLeft <= 0 {
		return
	}
	c.pendingAction = actionRetry
}

// Reinit requests reinitialization with overrides from within the terminal
// callback: attempts_left resets to overrides.Retries+1 and the next
// attempt starts from INITIALIZED using overrides in place of the original request.
func (h *ConnHandle) Reinit(overrides Request) {
	c, ok := h.conn()
	if !ok {
		return
	}
	c.pendingAction = actionReinit
	c.pendingOverrides = &overrides
}

// Drop requests the connection be moved to COMPLETED without re-invoking
// the terminal callback, from within the terminal callback itself.
//
// This is distinct from [Driver.Drop], which can terminate a connection in
// any state, from outside any callback, and never invokes the terminal
// callback at all.
func (h *ConnHandle) Drop() {
	c, ok := h.conn()
	if !ok {
		return
	}
	c.pendingAction = actionDrop
}
