//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package fanhttp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"
)

// NewResolveFunc returns a new [*ResolveFunc] using cfg's resolver address.
//
// The cfg argument contains the common configuration for fanhttp operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewResolveFunc(cfg *Config, logger SLogger) *ResolveFunc {
	return &ResolveFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		ResolverAddr:  cfg.Resolver,
		TimeNow:       cfg.TimeNow,
	}
}

// ResolveFunc resolves a [Target]'s host to an IP address (RESOLVE_DNS).
//
// When the host is already a literal IP address, Call is a no-op pass
// through: per the state machine, RESOLVE_DNS still fires on every attempt,
// but does no network I/O for IP literal targets. Otherwise it issues a DNS
// query over UDP, retrying over TCP if the UDP reply is truncated.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ResolveFunc struct {
	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	Logger SLogger

	// ResolverAddr is the "ip:port" of the resolver to query.
	ResolverAddr string

	// TimeNow is the function to get the current time (configurable for testing).
	TimeNow func() time.Time
}

var _ Func[Target, Target] = &ResolveFunc{}

// Call invokes the [*ResolveFunc] to resolve target.Host to an IP address.
func (op *ResolveFunc) Call(ctx context.Context, target Target) (Target, error) {
	if ip := net.ParseIP(target.Host); ip != nil {
		return target, nil
	}

	t0 := op.TimeNow()
	op.Logger.Info(
		"dnsQueryStart",
		slog.String("host", target.Host),
		slog.String("resolver", op.ResolverAddr),
		slog.Time("t", t0),
	)
	addrs, err := op.lookup(ctx, target.Host)
	op.Logger.Info(
		"dnsQueryDone",
		slog.Any("addrs", addrs),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("host", target.Host),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
	if err != nil {
		return Target{}, err
	}
	if len(addrs) == 0 {
		return Target{}, fmt.Errorf("fanhttp: no addresses found for %q", target.Host)
	}

	resolved := target
	resolved.Host = addrs[0]
	return resolved, nil
}

func (op *ResolveFunc) lookup(ctx context.Context, host string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	reply, err := op.exchange(ctx, msg, "udp")
	if err != nil {
		return nil, err
	}
	if reply.Truncated {
		reply, err = op.exchange(ctx, msg, "tcp")
		if err != nil {
			return nil, err
		}
	}

	var addrs []string
	for _, rr := range reply.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A.String())
		}
	}
	return addrs, nil
}

func (op *ResolveFunc) exchange(ctx context.Context, msg *dns.Msg, network string) (*dns.Msg, error) {
	client := &dns.Client{Net: network, Timeout: 5 * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			client.Timeout = remaining
		}
	}
	reply, _, err := client.ExchangeContext(ctx, msg, op.ResolverAddr)
	return reply, err
}
