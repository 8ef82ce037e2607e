// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import (
	"net"
	"os"
	"time"
)

// Config holds the common dependencies shared by every connection driven by a
// [Driver]: the dialer, the TLS engine, the DNS resolver address, the error
// classifier, and the clock. Pass it to [NewDriver] to pre-wire a driver;
// all fields have sensible defaults set by [NewConfig].
type Config struct {
	// Dialer is used by the CONNECTING phase.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// TLSEngine is used by the SSL_HANDSHAKE phase.
	//
	// Set by [NewConfig] to [TLSEngineStdlib].
	TLSEngine TLSEngine

	// Resolver is the "ip:port" of the DNS server used by RESOLVE_DNS when a
	// target's host is not already an IP literal.
	//
	// Set by [NewConfig] to "8.8.8.8:53".
	Resolver string

	// ErrClassifier classifies errors for the errClass field of structured
	// log records. [ErrorEntry] values do not carry this classification.
	//
	// Set by [NewConfig] to [DefaultErrClassifier] (a no-op).
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// ProcessID identifies this process in socket cache keys (§4.4 of the
	// design: cache keys are logically scoped per process). Within a single
	// process this is constant; it only matters to [SocketCache]
	// implementations shared across process boundaries (e.g. backed by
	// shared memory or an external store).
	//
	// Set by [NewConfig] to [os.Getpid].
	ProcessID int
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:        &net.Dialer{},
		TLSEngine:     TLSEngineStdlib{},
		Resolver:      "8.8.8.8:53",
		ErrClassifier: DefaultErrClassifier,
		TimeNow:       time.Now,
		ProcessID:     os.Getpid(),
	}
}

// DefaultPort returns the default TCP port for a scheme ("http" -> 80,
// "https" -> 443, anything else -> 80).
func DefaultPort(scheme string) uint16 {
	switch scheme {
	case "https":
		return 443
	default:
		return 80
	}
}
