package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solwire/solwire/service/metrics"
)

// AllDomains resolves domains under arbitrary suffixes through a generic
// name-service HTTP provider. It covers the broad long tail of TLDs that the
// specialized .sol provider does not.
type AllDomains struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewAllDomains creates the generic name-service provider. If httpClient is
// nil a default with a 10s timeout is used.
func NewAllDomains(baseURL string, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *AllDomains {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &AllDomains{baseURL: baseURL, httpClient: httpClient, metrics: m, logger: logger}
}

// Name implements Provider.
func (a *AllDomains) Name() string { return "alldomains" }

// TryResolve implements Provider. Any upstream failure is reported as an
// error for the chain to swallow; only a 200 with a parseable owner counts as
// a hit.
func (a *AllDomains) TryResolve(ctx context.Context, input string) (solana.PublicKey, bool, error) {
	reqURL := a.baseURL + "/resolve?domain=" + url.QueryEscape(input)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return solana.PublicKey{}, false, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	a.recordCall(start, resp, err)
	if err != nil {
		return solana.PublicKey{}, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return solana.PublicKey{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return solana.PublicKey{}, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return solana.PublicKey{}, false, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Owner string `json:"owner"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return solana.PublicKey{}, false, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.Owner == "" {
		return solana.PublicKey{}, false, nil
	}

	owner, ok := ParseAddress(payload.Owner)
	if !ok {
		return solana.PublicKey{}, false, fmt.Errorf("provider returned malformed owner %q", payload.Owner)
	}
	return owner, true, nil
}

func (a *AllDomains) recordCall(start time.Time, resp *http.Response, err error) {
	if a.metrics == nil {
		return
	}
	status := "success"
	if err != nil || resp == nil || resp.StatusCode >= 500 {
		status = "error"
	}
	a.metrics.RecordUpstreamCall("alldomains", "resolve", status, time.Since(start).Seconds())
}
