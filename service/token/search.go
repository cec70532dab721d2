package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// MinQueryLength is the minimum query length before a real search is
	// performed; shorter queries get the fixed suggestions list instead.
	MinQueryLength = 2

	// MaxSearchLimit bounds the number of results a caller may request.
	MaxSearchLimit = 100
)

// ErrInvalidLimit indicates a search limit outside [1, MaxSearchLimit].
var ErrInvalidLimit = errors.New("invalid limit")

// SearchResult is a ranked token candidate returned by search or suggestions.
type SearchResult struct {
	Mint         string   `json:"mint"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name,omitempty"`
	Decimals     uint8    `json:"decimals"`
	Icon         string   `json:"icon,omitempty"`
	Verified     bool     `json:"verified"`
	Tags         []string `json:"tags,omitempty"`
	USDPrice     float64  `json:"usd_price,omitempty"`
	MarketCap    float64  `json:"market_cap,omitempty"`
	Liquidity    float64  `json:"liquidity,omitempty"`
	OrganicScore float64  `json:"organic_score,omitempty"`
	HolderCount  int64    `json:"holder_count,omitempty"`
}

// SearchTokens returns candidate tokens for a free-text query, ranked by the
// upstream service's own relevance signal and capped at limit. Queries below
// MinQueryLength return the fixed suggestions list without an upstream call,
// avoiding expensive searches for not-yet-typed input.
func (r *Resolver) SearchTokens(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit < 1 || limit > MaxSearchLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidLimit, MaxSearchLimit, limit)
	}

	q := strings.TrimSpace(query)
	if len(q) < MinQueryLength {
		return Suggestions(limit), nil
	}

	if r.meta == nil {
		return nil, errors.New("token search failed: no metadata client configured")
	}

	tokens, err := r.meta.SearchTokens(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("token search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(tokens))
	for _, t := range tokens {
		results = append(results, SearchResult{
			Mint:         t.ID,
			Symbol:       t.Symbol,
			Name:         t.Name,
			Decimals:     t.Decimals,
			Icon:         t.Icon,
			Verified:     t.IsVerified,
			Tags:         t.Tags,
			USDPrice:     t.USDPrice,
			MarketCap:    t.MarketCap,
			Liquidity:    t.Liquidity,
			OrganicScore: t.OrganicScore,
			HolderCount:  t.HolderCount,
		})
	}
	return results, nil
}

// Suggestions returns the fixed top-N list of well-known tokens, capped at
// limit.
func Suggestions(limit int) []SearchResult {
	n := len(suggestionOrder)
	if limit < n {
		n = limit
	}
	results := make([]SearchResult, 0, n)
	for _, key := range suggestionOrder[:n] {
		t := knownTokens[key]
		results = append(results, SearchResult{
			Mint:     t.Mint.String(),
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
			Verified: true,
		})
	}
	return results
}
