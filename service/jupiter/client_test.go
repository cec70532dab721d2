package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestGetQuote_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		q := r.URL.Query()
		assert.Equal(t, "So11111111111111111111111111111111111111112", q.Get("inputMint"))
		assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", q.Get("outputMint"))
		assert.Equal(t, "1000000000", q.Get("amount"))
		assert.Equal(t, "50", q.Get("slippageBps"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"inputMint": "So11111111111111111111111111111111111111112",
			"outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			"inAmount": "1000000000",
			"outAmount": "150000000",
			"otherAmountThreshold": "149250000",
			"slippageBps": 50,
			"priceImpactPct": "0.01",
			"contextSlot": 250000000
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", "", nil, nil, testLogger())
	quote, err := c.GetQuote(context.Background(),
		"So11111111111111111111111111111111111111112",
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		1_000_000_000, 50)
	require.NoError(t, err)
	assert.Equal(t, "1000000000", quote.InAmount)
	assert.Equal(t, "150000000", quote.OutAmount)
	assert.Equal(t, 50, quote.SlippageBps)
	// The verbatim upstream payload is retained for swap forwarding.
	assert.Contains(t, string(quote.Raw()), `"otherAmountThreshold"`)
}

func TestGetQuote_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Could not find any route"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", "", nil, nil, testLogger())
	_, err := c.GetQuote(context.Background(), "mintA", "mintB", 100, 50)
	require.Error(t, err)

	var quoteErr *QuoteError
	require.True(t, errors.As(err, &quoteErr))
	assert.Equal(t, http.StatusBadRequest, quoteErr.StatusCode)
	assert.Contains(t, quoteErr.Body, "Could not find any route")
}

func TestBuildSwap_Success(t *testing.T) {
	quoteJSON := `{"inputMint":"a","outputMint":"b","inAmount":"100","outAmount":"200","routePlan":[{"percent":100}]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		// The quote payload must be forwarded verbatim, including fields the
		// client itself does not model.
		assert.JSONEq(t, quoteJSON, string(body["quoteResponse"]))
		assert.Equal(t, `"7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"`, string(body["userPublicKey"]))
		assert.Equal(t, "true", string(body["wrapAndUnwrapSol"]))
		assert.Equal(t, "true", string(body["dynamicComputeUnitLimit"]))
		assert.Equal(t, `"auto"`, string(body["prioritizationFeeLamports"]))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"swapTransaction":"AQABbase64","lastValidBlockHeight":250000123}`))
	}))
	defer server.Close()

	var quote QuoteResponse
	require.NoError(t, json.Unmarshal([]byte(quoteJSON), &quote))
	quote.raw = []byte(quoteJSON)

	c := NewClient("", server.URL, "", nil, nil, testLogger())
	swap, err := c.BuildSwap(context.Background(), &quote, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	require.NoError(t, err)
	assert.Equal(t, "AQABbase64", swap.SwapTransaction)
	assert.Equal(t, uint64(250000123), swap.LastValidBlockHeight)
}

func TestBuildSwap_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("simulation failed: insufficient funds"))
	}))
	defer server.Close()

	c := NewClient("", server.URL, "", nil, nil, testLogger())
	_, err := c.BuildSwap(context.Background(), &QuoteResponse{}, "user")
	require.Error(t, err)

	var buildErr *SwapBuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, http.StatusUnprocessableEntity, buildErr.StatusCode)
	assert.Contains(t, buildErr.Body, "insufficient funds")
}

func TestBuildSwap_EmptyTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"lastValidBlockHeight":1}`))
	}))
	defer server.Close()

	c := NewClient("", server.URL, "", nil, nil, testLogger())
	_, err := c.BuildSwap(context.Background(), &QuoteResponse{}, "user")
	require.Error(t, err)

	var buildErr *SwapBuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Contains(t, buildErr.Body, "no transaction")
}

func TestSearchTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "bonk", r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263","symbol":"BONK","name":"Bonk","decimals":5,"isVerified":true},
			{"id":"mint2","symbol":"BONKETTE","decimals":6},
			{"id":"mint3","symbol":"BONKZ","decimals":6}
		]`))
	}))
	defer server.Close()

	c := NewClient("", "", server.URL, nil, nil, testLogger())
	tokens, err := c.SearchTokens(context.Background(), "bonk", 2)
	require.NoError(t, err)

	// Upstream overshoot is capped at the requested limit.
	require.Len(t, tokens, 2)
	assert.Equal(t, "BONK", tokens[0].Symbol)
	assert.Equal(t, uint8(5), tokens[0].Decimals)
	assert.True(t, tokens[0].IsVerified)
}

func TestSearchTokens_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	c := NewClient("", "", server.URL, nil, nil, testLogger())
	_, err := c.SearchTokens(context.Background(), "bonk", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
