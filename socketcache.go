// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import (
	"net"
	"sync"
)

// socketCacheKey identifies an idle, keep-alive-capable socket.
type socketCacheKey struct {
	processID int
	host      string
	port      uint16
	scheme    string
}

// SocketCache is a caller-owned pool of idle, keep-alive-capable sockets
// keyed by (process-id, host, port, scheme). The driver only inserts on
// clean keep-alive completion (HTTP/1.1, no error, no "Connection: close")
// and only removes on reuse or an explicit [SocketCache.Purge]; eviction
// policy and size limits are the caller's responsibility.
//
// The zero value is not ready to use; construct one with [NewSocketCache].
type SocketCache struct {
	mu      sync.Mutex
	entries map[socketCacheKey]net.Conn
}

// NewSocketCache returns a ready-to-use, empty [*SocketCache].
func NewSocketCache() *SocketCache {
	return &SocketCache{entries: make(map[socketCacheKey]net.Conn)}
}

func cacheKey(processID int, target Target) socketCacheKey {
	return socketCacheKey{processID: processID, host: target.Host, port: target.Port, scheme: target.Scheme}
}

// Take removes and returns the cached socket for target, if any.
func (c *SocketCache) Take(processID int, target Target) (net.Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(processID, target)
	conn, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	return conn, ok
}

// Put inserts conn under target's key, closing and discarding any socket
// already cached there.
func (c *SocketCache) Put(processID int, target Target, conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(processID, target)
	if old, ok := c.entries[key]; ok {
		old.Close()
	}
	c.entries[key] = conn
}

// Purge closes and removes every cached socket.
func (c *SocketCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, conn := range c.entries {
		conn.Close()
		delete(c.entries, k)
	}
}

// Len returns the number of idle sockets currently cached.
func (c *SocketCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
