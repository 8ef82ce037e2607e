// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostStringSelect(t *testing.T) {
	target, err := HostString("example.com:9000").Select(context.Background(), 0, "http")
	require.NoError(t, err)
	assert.Equal(t, Target{Host: "example.com", Port: 9000, Scheme: "http"}, target)

	target, err = HostString("example.com").Select(context.Background(), 3, "https")
	require.NoError(t, err)
	assert.Equal(t, Target{Host: "example.com", Port: 443, Scheme: "https"}, target)
}

func TestHostListRoundRobin(t *testing.T) {
	hosts := HostList{"a:1", "b:2", "c:3"}
	for attempt, want := range map[int]string{0: "a", 1: "b", 2: "c", 3: "a"} {
		target, err := hosts.Select(context.Background(), attempt, "http")
		require.NoError(t, err)
		assert.Equal(t, want, target.Host)
	}
}

func TestHostListEmpty(t *testing.T) {
	_, err := HostList(nil).Select(context.Background(), 0, "http")
	assert.Error(t, err)
}

func TestHostFuncDefaultsPort(t *testing.T) {
	host := HostFunc(func(ctx context.Context, attempt int) (Target, error) {
		return Target{Host: "10.0.0.1"}, nil
	})
	target, err := host.Select(context.Background(), 0, "https")
	require.NoError(t, err)
	assert.Equal(t, Target{Host: "10.0.0.1", Port: 443, Scheme: "https"}, target)
}

func TestTargetString(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", Target{Host: "127.0.0.1", Port: 8080}.String())
}
