// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import (
	"context"
	"fmt"
	"time"
)

// Run enters the dispatch loop and blocks until every connection has
// reached COMPLETED, or — if ids is non-empty — until every listed
// connection has reached either untilState or COMPLETED. Passing
// [StateInitialized] as untilState with no ids runs until every connection
// completes (the zero value means "no early exit").
//
// ctx bounds the whole call: when ctx is done, every connection's
// underlying socket is closed (via [CancelWatchFunc]) and Run returns
// ctx.Err(). Run returns nil if [Driver.Break] is called, or once the
// completion condition holds.
func (d *Driver) Run(ctx context.Context, untilState ConnState, ids ...int64) error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("fanhttp: driver is already running")
	}
	defer d.running.Store(false)

	d.mu.Lock()
	d.ctx = ctx
	d.breakCh = make(chan struct{})
	breakCh := d.breakCh
	d.mu.Unlock()

	d.startPending()

	var tickCh <-chan time.Time
	if d.accountForSignals {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	for {
		if d.doneCondition(untilState, ids) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-breakCh:
			return nil
		case ev := <-d.events:
			d.handleEvent(ev)
			d.startPending()
		case <-tickCh:
			// Idle tick: nothing to do. Its only purpose is guaranteeing a
			// loop turn runs promptly, for hosts whose signal handlers only
			// fire when Go code executes.
		}
	}
}

// RunOnce performs a single dispatch-loop iteration, blocking until at
// least one connection event is processed or ctx ends.
func (d *Driver) RunOnce(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()
	d.startPending()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-d.events:
		d.handleEvent(ev)
		return nil
	}
}

// RunNowait performs at most one dispatch-loop iteration without blocking:
// it processes one already-pending event if available, or returns immediately.
func (d *Driver) RunNowait() {
	d.mu.Lock()
	if d.ctx == nil {
		d.ctx = context.Background()
	}
	d.mu.Unlock()
	d.startPending()

	select {
	case ev := <-d.events:
		d.handleEvent(ev)
	default:
	}
}

// IsRunning reports whether [Driver.Run] is currently blocked in its loop.
func (d *Driver) IsRunning() bool {
	return d.running.Load()
}

// Break stops the current [Driver.Run] call at its next safe point. It does
// not alter any connection's state; connections retain their intermediate
// state and may be resumed by a subsequent Run.
func (d *Driver) Break() {
	d.mu.Lock()
	ch := d.breakCh
	d.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// doneCondition reports whether Run's exit condition currently holds.
func (d *Driver) doneCondition(untilState ConnState, ids []int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(ids) > 0 {
		for _, id := range ids {
			c, ok := d.conns[id]
			if !ok {
				continue // dropped connections no longer block completion
			}
			if c.state == StateCompleted {
				continue
			}
			if untilState != StateInitialized && c.state == untilState {
				continue
			}
			return false
		}
		return true
	}

	for _, c := range d.conns {
		if c.state != StateCompleted {
			return false
		}
	}
	return true
}
