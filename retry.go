// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

// RetryConn requests a retry of the connection identified by id, for
// callers that hold only the id. A connection is at USER_ACTION only while
// its terminal callback runs, so this takes effect only when called during
// that callback; it is then equivalent to [ConnHandle.Retry]. A silent
// no-op if the connection is not at USER_ACTION or has no attempts
// remaining.
func (d *Driver) RetryConn(id int64) {
	c, ok := d.lookup(id)
	if !ok || c.state != StateUserAction || c.attemptsLeft <= 0 {
		return
	}
	c.pendingAction = actionRetry
}

// ReinitConn requests reinitialization of the connection identified by id
// with overrides, resetting attempts_left to overrides.Retries+1.
// Equivalent to [ConnHandle.Reinit]; a silent no-op if the connection is
// not at USER_ACTION.
func (d *Driver) ReinitConn(id int64, overrides Request) {
	c, ok := d.lookup(id)
	if !ok || c.state != StateUserAction {
		return
	}
	c.pendingAction = actionReinit
	c.pendingOverrides = &overrides
}
