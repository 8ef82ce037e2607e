// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import (
	"net"
	"testing"

	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closeCountingConn() (*netstub.FuncConn, *int) {
	count := 0
	return &netstub.FuncConn{
		CloseFunc: func() error {
			count++
			return nil
		},
	}, &count
}

func TestSocketCachePutTake(t *testing.T) {
	cache := NewSocketCache()
	target := Target{Host: "example.com", Port: 80, Scheme: "http"}
	conn, _ := closeCountingConn()

	cache.Put(1, target, conn)
	assert.Equal(t, 1, cache.Len())

	got, ok := cache.Take(1, target)
	require.True(t, ok)
	assert.Same(t, net.Conn(conn), got)
	assert.Equal(t, 0, cache.Len())

	_, ok = cache.Take(1, target)
	assert.False(t, ok)
}

func TestSocketCacheKeyedByProcessHostPortScheme(t *testing.T) {
	cache := NewSocketCache()
	conn, _ := closeCountingConn()
	cache.Put(1, Target{Host: "a", Port: 80, Scheme: "http"}, conn)

	_, ok := cache.Take(2, Target{Host: "a", Port: 80, Scheme: "http"})
	assert.False(t, ok, "different process id is a different key")

	_, ok = cache.Take(1, Target{Host: "a", Port: 443, Scheme: "https"})
	assert.False(t, ok, "different port/scheme is a different key")
}

func TestSocketCachePutClosesDisplaced(t *testing.T) {
	cache := NewSocketCache()
	target := Target{Host: "a", Port: 80, Scheme: "http"}

	first, firstClosed := closeCountingConn()
	second, _ := closeCountingConn()

	cache.Put(1, target, first)
	cache.Put(1, target, second)

	assert.Equal(t, 1, *firstClosed)
	assert.Equal(t, 1, cache.Len())
}

func TestSocketCachePurge(t *testing.T) {
	cache := NewSocketCache()
	conn, closed := closeCountingConn()
	cache.Put(1, Target{Host: "a", Port: 80}, conn)

	cache.Purge()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 1, *closed)
}
