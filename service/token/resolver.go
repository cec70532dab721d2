// Package token resolves human token identifiers (tickers, mint addresses) to
// canonical mints and converts between human amounts and integer base units.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/solwire/solwire/service/jupiter"
)

// ErrUnknownToken indicates an identifier that matched neither the known-token
// registry nor the token search service. It must never be silently substituted
// with a default mint.
var ErrUnknownToken = errors.New("unknown token")

// MetadataClient is the slice of the token metadata/search service the
// resolver needs. *jupiter.Client satisfies it.
type MetadataClient interface {
	SearchTokens(ctx context.Context, query string, limit int) ([]jupiter.Token, error)
}

// Resolver turns token identifiers into canonical mints. High-liquidity
// symbols resolve from a constant-time map without network calls; mint-shaped
// identifiers and long-tail symbols consult the metadata service.
type Resolver struct {
	meta   MetadataClient
	logger *slog.Logger
}

// NewResolver creates a token resolver backed by the given metadata service.
func NewResolver(meta MetadataClient, logger *slog.Logger) *Resolver {
	return &Resolver{meta: meta, logger: logger}
}

// ResolveToken resolves a ticker/symbol or raw mint address to a canonical
// mint, its decimals, and display symbol.
func (r *Resolver) ResolveToken(ctx context.Context, identifier string) (Resolved, error) {
	in := strings.TrimSpace(identifier)
	if in == "" {
		return Resolved{}, fmt.Errorf("%w: empty identifier", ErrUnknownToken)
	}

	if mint, ok := parseMint(in); ok {
		return r.resolveMint(ctx, mint), nil
	}
	return r.resolveSymbol(ctx, in)
}

// ResolveLST resolves a liquid-staking target. Unlike ResolveToken it never
// consults the long-tail search service: a stake must name either a raw mint
// address or a known liquid-staking symbol, anything else is an unknown token
// before any network call is made.
func (r *Resolver) ResolveLST(ctx context.Context, identifier string) (Resolved, error) {
	in := strings.TrimSpace(identifier)
	if in == "" {
		in = DefaultLSTSymbol
	}

	if mint, ok := parseMint(in); ok {
		return r.resolveMint(ctx, mint), nil
	}

	key := strings.ToUpper(strings.TrimPrefix(in, "$"))
	if _, ok := knownLSTs[key]; !ok {
		return Resolved{}, fmt.Errorf("%w: %q is not a recognized liquid-staking token", ErrUnknownToken, identifier)
	}
	return knownTokens[key], nil
}

// resolveMint treats the identifier as a mint directly, looking up decimals
// and symbol from the metadata service and falling back to the documented
// default when unavailable.
func (r *Resolver) resolveMint(ctx context.Context, mint solana.PublicKey) Resolved {
	if r.meta != nil {
		tokens, err := r.meta.SearchTokens(ctx, mint.String(), 1)
		if err == nil {
			for _, t := range tokens {
				if t.ID == mint.String() {
					return Resolved{
						Mint:                  mint,
						Symbol:                t.Symbol,
						Decimals:              t.Decimals,
						DecimalsAuthoritative: true,
					}
				}
			}
		} else {
			r.logger.WarnContext(ctx, "token metadata lookup failed, using default decimals",
				"mint", mint.String(),
				"error", err,
			)
		}
	}
	return Resolved{
		Mint:                  mint,
		Symbol:                shortAddress(mint.String()),
		Decimals:              DefaultDecimals,
		DecimalsAuthoritative: false,
	}
}

// resolveSymbol resolves a ticker, trying the known-token map first and the
// search service for long-tail symbols.
func (r *Resolver) resolveSymbol(ctx context.Context, symbol string) (Resolved, error) {
	if t, ok := lookupKnown(symbol); ok {
		return t, nil
	}

	if r.meta == nil {
		return Resolved{}, fmt.Errorf("%w: %q", ErrUnknownToken, symbol)
	}

	plain := strings.TrimPrefix(strings.TrimSpace(symbol), "$")
	tokens, err := r.meta.SearchTokens(ctx, plain, 10)
	if err != nil {
		r.logger.WarnContext(ctx, "token search failed during symbol resolution",
			"symbol", plain,
			"error", err,
		)
		return Resolved{}, fmt.Errorf("%w: %q", ErrUnknownToken, symbol)
	}

	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, plain) {
			mint, ok := parseMint(t.ID)
			if !ok {
				continue
			}
			return Resolved{
				Mint:                  mint,
				Symbol:                t.Symbol,
				Decimals:              t.Decimals,
				DecimalsAuthoritative: true,
			}, nil
		}
	}
	return Resolved{}, fmt.Errorf("%w: %q", ErrUnknownToken, symbol)
}

// parseMint reports whether s has the canonical account shape: base58 text
// decoding to exactly 32 bytes.
func parseMint(s string) (solana.PublicKey, bool) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, false
	}
	return solana.PublicKeyFromBytes(raw), true
}

// shortAddress abbreviates a mint for display when no symbol is known.
func shortAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + ".." + addr[len(addr)-4:]
}
