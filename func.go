// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import "context"

// Func is the common shape of a single connection phase: [ResolveFunc],
// [ConnectFunc], [TLSHandshakeFunc], [ObserveConnFunc], and [CancelWatchFunc]
// all implement it, which lets [Driver] treat each phase uniformly when
// arming timers and invoking hooks around its call.
//
// Resource cleanup contract: when a Func receives a closeable resource as
// input and returns an error, it is responsible for closing that resource
// before returning, so a failed phase never leaks the connection it was
// handed. See [TLSHandshakeFunc] for an example of this pattern.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}
