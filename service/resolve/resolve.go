// Package resolve turns arbitrary user-supplied destination strings into
// canonical on-chain accounts. Raw addresses resolve locally; dotted names
// walk an ordered chain of name-service providers, taking the first hit.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/solwire/solwire/service/metrics"
)

var (
	// ErrInvalidDestination indicates input that is neither a valid raw
	// address nor a resolvable name (a non-dotted string that fails the
	// address parse can never resolve).
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrUnresolvable indicates a name that no provider in the chain could
	// resolve.
	ErrUnresolvable = errors.New("unresolvable destination")
)

// Provider is one naming system in the resolution chain. A (zero, false, nil)
// return means "not found here"; errors are treated the same way by the chain
// so one flaky provider never blocks the rest.
type Provider interface {
	Name() string
	TryResolve(ctx context.Context, input string) (solana.PublicKey, bool, error)
}

// Chain resolves destinations by trying providers in order. Order matters:
// the cheapest, most authoritative check (raw address parse) runs first and
// short-circuits without any network call.
type Chain struct {
	providers []Provider
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewChain creates a resolution chain over the given providers, consulted in
// argument order.
func NewChain(logger *slog.Logger, m *metrics.Metrics, providers ...Provider) *Chain {
	return &Chain{providers: providers, metrics: m, logger: logger}
}

// Resolve resolves input to a canonical account.
func (c *Chain) Resolve(ctx context.Context, input string) (solana.PublicKey, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty destination", ErrInvalidDestination)
	}

	// Raw address fast path: no network, immediate success.
	if pk, ok := ParseAddress(in); ok {
		c.recordOutcome("raw_address", "hit")
		return pk, nil
	}

	// A non-dotted string that is not a valid address is not a resolvable
	// name; fail before touching any provider.
	if !strings.Contains(in, ".") {
		c.recordOutcome("raw_address", "invalid")
		return solana.PublicKey{}, fmt.Errorf("%w: %q is neither a valid address nor a domain name", ErrInvalidDestination, input)
	}

	attempted := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		attempted = append(attempted, p.Name())
		pk, found, err := p.TryResolve(ctx, in)
		if err != nil {
			// Providers have different availability; a failure here is
			// indistinguishable from "not found" for the chain's purposes.
			c.logger.DebugContext(ctx, "name provider failed, continuing chain",
				"provider", p.Name(),
				"input", in,
				"error", err,
			)
			c.recordOutcome(p.Name(), "error")
			continue
		}
		if found {
			c.logger.DebugContext(ctx, "destination resolved",
				"provider", p.Name(),
				"input", in,
				"owner", pk.String(),
			)
			c.recordOutcome(p.Name(), "hit")
			return pk, nil
		}
		c.recordOutcome(p.Name(), "miss")
	}

	return solana.PublicKey{}, fmt.Errorf("%w: %q not found (tried: %s)", ErrUnresolvable, input, strings.Join(attempted, ", "))
}

func (c *Chain) recordOutcome(provider, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordResolution(provider, outcome)
	}
}

// ParseAddress reports whether s is a canonical account identifier: base58
// text decoding to exactly 32 bytes.
func ParseAddress(s string) (solana.PublicKey, bool) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, false
	}
	return solana.PublicKeyFromBytes(raw), true
}
