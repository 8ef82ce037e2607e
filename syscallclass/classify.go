//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/errclass.go
//

// Package syscallclass classifies network errors into short categorical
// strings ("ECONNREFUSED", "ETIMEDOUT", ...) suitable for attaching to log
// records, by matching against the
// platform-specific errno constants each syscall actually returns.
package syscallclass

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// Classify maps err to a short categorical string. It returns "" for a nil
// error and "EGENERIC" for an error it does not recognize.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return "ETIMEDOUT"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case errEADDRNOTAVAIL:
			return "EADDRNOTAVAIL"
		case errEADDRINUSE:
			return "EADDRINUSE"
		case errECONNABORTED:
			return "ECONNABORTED"
		case errECONNREFUSED:
			return "ECONNREFUSED"
		case errECONNRESET:
			return "ECONNRESET"
		case errEHOSTUNREACH:
			return "EHOSTUNREACH"
		case errEINVAL:
			return "EINVAL"
		case errEINTR:
			return "EINTR"
		case errENETDOWN:
			return "ENETDOWN"
		case errENETUNREACH:
			return "ENETUNREACH"
		case errENOBUFS:
			return "ENOBUFS"
		case errENOTCONN:
			return "ENOTCONN"
		case errEPROTONOSUPPORT:
			return "EPROTONOSUPPORT"
		case errETIMEDOUT:
			return "ETIMEDOUT"
		}
	}

	if errors.Is(err, io.EOF) {
		return "EOF"
	}

	return "EGENERIC"
}
