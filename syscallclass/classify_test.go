// SPDX-License-Identifier: GPL-3.0-or-later

package syscallclass

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, "", Classify(nil))
	assert.Equal(t, "EGENERIC", Classify(errors.New("mystery")))
	assert.Equal(t, "EOF", Classify(io.EOF))
	assert.Equal(t, "ETIMEDOUT", Classify(context.DeadlineExceeded))
	assert.Equal(t, "ECONNREFUSED", Classify(errECONNREFUSED))
	assert.Equal(t, "ECONNRESET", Classify(errECONNRESET))

	timeoutErr := &net.OpError{Op: "dial", Err: &timeoutError{}}
	assert.Equal(t, "ETIMEDOUT", Classify(timeoutErr))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ syscall.Errno = errECONNREFUSED
