package fanhttp

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// A span is a sequence of operations that can fail in a single, specific
// way. [Driver.startAttempt] mints one span per connection attempt: every
// RESOLVE_DNS, CONNECTING, SSL_HANDSHAKE, WRITING, and READING log record
// for that attempt carries the same span id, and a retried attempt gets a
// fresh one, so records from different attempts never get conflated.
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
