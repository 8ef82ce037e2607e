// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

// Drop removes the connection identified by id regardless of its current
// state: it closes any owned socket (never returning it to the socket
// cache), marks the connection COMPLETED, and does not invoke the terminal
// callback. A stale worker goroutine still in flight for this connection
// reports its outcome as usual, but [Driver.handleEvent] discards it
// because the connection is no longer tracked.
//
// This differs from [ConnHandle.Drop], which can only be called from
// within the terminal callback itself and still counts as that one
// invocation of the callback having happened.
func (d *Driver) Drop(id int64) {
	d.mu.Lock()
	c, ok := d.conns[id]
	if ok {
		delete(d.conns, id)
	}
	d.mu.Unlock()
	if !ok {
		return
	}

	now := d.cfg.TimeNow()
	d.closeConn(c, false)
	c.transition(StateCompleted, now)
}
