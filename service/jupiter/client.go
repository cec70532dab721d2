package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/solwire/solwire/service/metrics"
)

// DefaultSlippageBps is the slippage tolerance applied when the caller does
// not specify one (50 bps = 0.5%).
const DefaultSlippageBps = 50

// QuoteError is returned when the quote oracle answers with a non-success
// status. The upstream body is preserved verbatim to aid diagnosing
// liquidity/route problems.
type QuoteError struct {
	StatusCode int
	Body       string
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote request failed with status %d: %s", e.StatusCode, e.Body)
}

// SwapBuildError is returned when the swap-transaction assembler answers with
// a non-success status. The upstream body is preserved verbatim.
type SwapBuildError struct {
	StatusCode int
	Body       string
}

func (e *SwapBuildError) Error() string {
	return fmt.Sprintf("swap build failed with status %d: %s", e.StatusCode, e.Body)
}

// Client calls the Jupiter quote, swap, and token APIs. It is safe for
// concurrent use. Quotes are never cached or retried: they are time-sensitive,
// so a failed quote terminates the request and the caller retries the whole
// operation against a fresh price.
type Client struct {
	httpClient *http.Client
	quoteURL   string
	swapURL    string
	tokenURL   string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a Jupiter client. If httpClient is nil a default with a
// 30s timeout is used. If m is nil, no metrics are recorded.
func NewClient(quoteURL, swapURL, tokenURL string, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		quoteURL:   quoteURL,
		swapURL:    swapURL,
		tokenURL:   tokenURL,
		metrics:    m,
		logger:     logger,
	}
}

// GetQuote prices an exchange of amountBaseUnits of inputMint for outputMint
// at the given slippage tolerance. Any non-2xx response is a hard failure.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amountBaseUnits uint64, slippageBps int) (*QuoteResponse, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amountBaseUnits, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	body, err := c.get(ctx, "quote", c.quoteURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var quote QuoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	quote.raw = body

	c.logger.DebugContext(ctx, "quote received",
		"input_mint", inputMint,
		"output_mint", outputMint,
		"in_amount", quote.InAmount,
		"out_amount", quote.OutAmount,
		"slippage_bps", slippageBps,
	)
	return &quote, nil
}

// BuildSwap asks the assembler for an unsigned swap transaction executing the
// given quote on behalf of userPublicKey. Wrapping/unwrapping of native SOL,
// compute-budget sizing, and prioritization fees are delegated to the
// assembler.
func (c *Client) BuildSwap(ctx context.Context, quote *QuoteResponse, userPublicKey string) (*SwapResponse, error) {
	reqBody := swapRequest{
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	}
	// Forward the oracle's payload untouched; re-marshaling our partial view
	// of it would drop fields the assembler needs.
	if raw := quote.Raw(); raw != nil {
		reqBody.QuoteResponse = json.RawMessage(raw)
	} else {
		reqBody.QuoteResponse = quote
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.swapURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.record("swap", start, resp, err)
	if err != nil {
		return nil, fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read swap response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SwapBuildError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var swap SwapResponse
	if err := json.Unmarshal(body, &swap); err != nil {
		return nil, fmt.Errorf("failed to decode swap response: %w", err)
	}
	if swap.SwapTransaction == "" {
		return nil, &SwapBuildError{StatusCode: resp.StatusCode, Body: "assembler returned no transaction"}
	}

	c.logger.DebugContext(ctx, "swap transaction assembled",
		"user", userPublicKey,
		"last_valid_block_height", swap.LastValidBlockHeight,
	)
	return &swap, nil
}

// SearchTokens queries the token metadata/search service. Results come back
// in the upstream's own relevance order, capped at limit.
func (c *Client) SearchTokens(ctx context.Context, query string, limit int) ([]Token, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "token_search", c.tokenURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var tokens []Token
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode token search response: %w", err)
	}
	if len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens, nil
}

// get issues a GET and returns the body, mapping non-2xx statuses to the
// operation's error type.
func (c *Client) get(ctx context.Context, operation, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.record(operation, start, resp, err)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		trimmed := strings.TrimSpace(string(body))
		if operation == "quote" {
			return nil, &QuoteError{StatusCode: resp.StatusCode, Body: trimmed}
		}
		return nil, fmt.Errorf("%s request failed with status %d: %s", operation, resp.StatusCode, trimmed)
	}
	return body, nil
}

func (c *Client) record(operation string, start time.Time, resp *http.Response, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil || resp == nil || resp.StatusCode >= 300 {
		status = "error"
	}
	c.metrics.RecordUpstreamCall("jupiter", operation, status, time.Since(start).Seconds())
}
