// Package client provides an HTTP client for the solwire transaction
// construction service.
package client

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
	"time"
)

// UnsignedTransfer is the service's response to a transfer request.
type UnsignedTransfer struct {
	Transaction          string    `json:"transaction"`
	Destination          string    `json:"destination"`
	ResolvedDestination  string    `json:"resolved_destination"`
	Amount               string    `json:"amount"`
	Lamports             uint64    `json:"lamports"`
	Unit                 string    `json:"unit"`
	FeePayer             string    `json:"fee_payer"`
	LastValidBlockHeight uint64    `json:"last_valid_block_height"`
	Timestamp            time.Time `json:"timestamp"`
}

// UnsignedSwap is the service's response to a swap request.
type UnsignedSwap struct {
	Transaction          string    `json:"transaction"`
	InputSymbol          string    `json:"input_symbol"`
	InputMint            string    `json:"input_mint"`
	OutputSymbol         string    `json:"output_symbol"`
	OutputMint           string    `json:"output_mint"`
	InAmount             string    `json:"in_amount"`
	InAmountBaseUnits    uint64    `json:"in_amount_base_units"`
	ExpectedOutAmount    string    `json:"expected_out_amount"`
	ExpectedOutBaseUnits uint64    `json:"expected_out_base_units"`
	SlippageBps          int       `json:"slippage_bps"`
	InputDecimalsSource  string    `json:"input_decimals_source"`
	OutputDecimalsSource string    `json:"output_decimals_source"`
	LastValidBlockHeight uint64    `json:"last_valid_block_height"`
	Timestamp            time.Time `json:"timestamp"`
}

// UnsignedStake is the service's response to a stake request.
type UnsignedStake struct {
	Transaction          string    `json:"transaction"`
	LSTSymbol            string    `json:"lst_symbol"`
	LSTMint              string    `json:"lst_mint"`
	Amount               string    `json:"amount"`
	AmountLamports       uint64    `json:"amount_lamports"`
	ExpectedOutAmount    string    `json:"expected_out_amount"`
	ExpectedOutBaseUnits uint64    `json:"expected_out_base_units"`
	SlippageBps          int       `json:"slippage_bps"`
	LastValidBlockHeight uint64    `json:"last_valid_block_height"`
	Timestamp            time.Time `json:"timestamp"`
}

// TokenResult is one ranked candidate from token search.
type TokenResult struct {
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

// APIError is a structured failure returned by the service.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

// Client is the HTTP client for the solwire service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new service client. If httpClient is nil a default
// with a 30s timeout is used; if logger is nil, logging is discarded.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Transfer asks the service for an unsigned native-transfer transaction.
func (c *Client) Transfer(ctx context.Context, destination, amount, caller string) (*UnsignedTransfer, error) {
	body := map[string]any{
		"destination": destination,
		"amount":      amount,
		"caller":      caller,
	}
	var result UnsignedTransfer
	if err := c.post(ctx, "/api/v1/tx/transfer", body, &result); err != nil {
		return nil, err
	}
	c.logger.Debug("transfer built", "destination", destination, "amount", amount)
	return &result, nil
}

// SwapParams are the inputs to Swap. Empty tokens select the service's
// defaults (SOL in, USDC out); a zero SlippageBps selects the default
// tolerance.
type SwapParams struct {
	InputToken  string
	OutputToken string
	Amount      string
	SlippageBps int
	Caller      string
}

// Swap asks the service for an unsigned swap transaction.
func (c *Client) Swap(ctx context.Context, params SwapParams) (*UnsignedSwap, error) {
	body := map[string]any{
		"input_token":  params.InputToken,
		"output_token": params.OutputToken,
		"amount":       params.Amount,
		"slippage_bps": params.SlippageBps,
		"caller":       params.Caller,
	}
	var result UnsignedSwap
	if err := c.post(ctx, "/api/v1/tx/swap", body, &result); err != nil {
		return nil, err
	}
	c.logger.Debug("swap built", "in", result.InputSymbol, "out", result.OutputSymbol, "amount", params.Amount)
	return &result, nil
}

// Stake asks the service for an unsigned liquid-stake transaction. lst may be
// empty to select the default liquid-staking token.
func (c *Client) Stake(ctx context.Context, amount, lst, caller string) (*UnsignedStake, error) {
	body := map[string]any{
		"amount": amount,
		"lst":    lst,
		"caller": caller,
	}
	var result UnsignedStake
	if err := c.post(ctx, "/api/v1/tx/stake", body, &result); err != nil {
		return nil, err
	}
	c.logger.Debug("stake built", "lst", result.LSTSymbol, "amount", amount)
	return &result, nil
}

// SearchTokens queries token search; short queries return suggestions.
func (c *Client) SearchTokens(ctx context.Context, query string, limit int) ([]TokenResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tokens/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var payload struct {
		Tokens []TokenResult `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return payload.Tokens, nil
}

// Resolve resolves an address or domain name through the service.
func (c *Client) Resolve(ctx context.Context, input string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/resolve/"+url.PathEscape(input), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseErrorResponse(resp)
	}

	var payload struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return payload.Address, nil
}

// Health checks the service's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// post sends a JSON body and decodes the success response into result.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse extracts the service's error envelope.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Kind: "unknown", Message: "failed to read error response"}
	}

	var envelope struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Kind: "unknown", Message: string(body)}
	}
	return &APIError{StatusCode: resp.StatusCode, Kind: envelope.Kind, Message: envelope.Error}
}
