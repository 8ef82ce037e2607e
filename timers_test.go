// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDeadlinesNoTimeout(t *testing.T) {
	now := time.Now()
	d := newDeadlines(now, Request{})
	assert.True(t, d.request.IsZero())
}

func TestNewDeadlinesRequestTimeout(t *testing.T) {
	now := time.Now()
	d := newDeadlines(now, Request{RequestTimeout: 10 * time.Second})
	assert.Equal(t, now.Add(10*time.Second), d.request)
}

func TestConnectForClampedToRequest(t *testing.T) {
	now := time.Now()
	d := newDeadlines(now, Request{RequestTimeout: 1 * time.Second})
	req := Request{ConnectTimeout: 10 * time.Second}

	got := d.connectFor(now, req)
	assert.Equal(t, d.request, got, "connect deadline should clamp to the tighter request deadline")
}

func TestConnectForNoRequestTimeout(t *testing.T) {
	now := time.Now()
	d := newDeadlines(now, Request{})
	req := Request{ConnectTimeout: 5 * time.Second}

	got := d.connectFor(now, req)
	assert.Equal(t, now.Add(5*time.Second), got)
}

func TestDrainForUnset(t *testing.T) {
	now := time.Now()
	d := newDeadlines(now, Request{})
	assert.True(t, d.drainFor(now, Request{}).IsZero())
}

func TestClampDeadline(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Minute)
	assert.Equal(t, now, clampDeadline(now, later))
	assert.Equal(t, now, clampDeadline(later, now))
	assert.Equal(t, later, clampDeadline(time.Time{}, later))
	assert.Equal(t, later, clampDeadline(later, time.Time{}))
}
