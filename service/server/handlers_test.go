package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solwire/solwire/service/jupiter"
	"github.com/solwire/solwire/service/pipeline"
	"github.com/solwire/solwire/service/resolve"
	solanasvc "github.com/solwire/solwire/service/solana"
	"github.com/solwire/solwire/service/token"
)

var (
	testCaller = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testDest   = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// stubProvider resolves every dotted name to testDest.
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) TryResolve(ctx context.Context, input string) (solana.PublicKey, bool, error) {
	if strings.HasSuffix(input, ".sol") {
		return testDest, true, nil
	}
	return solana.PublicKey{}, false, nil
}

// stubQuotes returns a fixed quote and swap transaction.
type stubQuotes struct{}

func (stubQuotes) GetQuote(ctx context.Context, inputMint, outputMint string, amountBaseUnits uint64, slippageBps int) (*jupiter.QuoteResponse, error) {
	return &jupiter.QuoteResponse{OutAmount: "150000000"}, nil
}

func (stubQuotes) BuildSwap(ctx context.Context, quote *jupiter.QuoteResponse, userPublicKey string) (*jupiter.SwapResponse, error) {
	return &jupiter.SwapResponse{SwapTransaction: "AQAC", LastValidBlockHeight: 250_000_123}, nil
}

// stubTransfers returns a fixed unsigned transfer.
type stubTransfers struct{}

func (stubTransfers) BuildTransfer(ctx context.Context, from, to solana.PublicKey, lamports uint64) (*solanasvc.UnsignedTransaction, error) {
	return &solanasvc.UnsignedTransaction{
		PayloadBase64:        "AQAB",
		FeePayer:             from,
		LastValidBlockHeight: 250_000_000,
	}, nil
}

// stubMetadata serves token search from a fixed list.
type stubMetadata struct{}

func (stubMetadata) SearchTokens(ctx context.Context, query string, limit int) ([]jupiter.Token, error) {
	return []jupiter.Token{
		{ID: token.BONKMint.String(), Symbol: "BONK", Name: "Bonk", Decimals: 5, IsVerified: true},
	}, nil
}

func testOrchestrator(t *testing.T) *pipeline.Orchestrator {
	t.Helper()
	logger := testLogger()
	tokens := token.NewResolver(stubMetadata{}, logger)
	chain := resolve.NewChain(logger, nil, stubProvider{})
	return pipeline.New(chain, tokens, stubQuotes{}, stubTransfers{}, nil, nil, nil, logger, 0)
}

func TestHandleTransfer_Success(t *testing.T) {
	handler := handleTransfer(testOrchestrator(t), testLogger())

	body := `{"destination":"alice.sol","amount":"1.5","caller":"` + testCaller + `"}`
	req := httptest.NewRequest("POST", "/api/v1/tx/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp transferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "AQAB", resp.Transaction)
	assert.Equal(t, "alice.sol", resp.Destination)
	assert.Equal(t, testDest.String(), resp.ResolvedDestination)
	assert.Equal(t, uint64(1_500_000_000), resp.Lamports)
	assert.Equal(t, "SOL", resp.Unit)
	assert.Equal(t, testCaller, resp.FeePayer)
}

func TestHandleTransfer_NumericAmount(t *testing.T) {
	handler := handleTransfer(testOrchestrator(t), testLogger())

	body := `{"destination":"alice.sol","amount":1.5,"caller":"` + testCaller + `"}`
	req := httptest.NewRequest("POST", "/api/v1/tx/transfer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp transferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1_500_000_000), resp.Lamports)
}

func TestHandleTransfer_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   string
	}{
		{
			name:       "malformed json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name:       "missing amount",
			body:       `{"destination":"alice.sol","caller":"` + testCaller + `"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name:       "zero amount",
			body:       `{"destination":"alice.sol","amount":"0","caller":"` + testCaller + `"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_amount",
		},
		{
			name:       "garbage destination",
			body:       `{"destination":"not-a-destination","amount":"1","caller":"` + testCaller + `"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_destination",
		},
		{
			name:       "unresolvable domain",
			body:       `{"destination":"nobody.blink","amount":"1","caller":"` + testCaller + `"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   "unresolvable_destination",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handleTransfer(testOrchestrator(t), testLogger())
			req := httptest.NewRequest("POST", "/api/v1/tx/transfer", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleSwap_Success(t *testing.T) {
	handler := handleSwap(testOrchestrator(t), testLogger())

	body := `{"input_token":"SOL","output_token":"USDC","amount":"1","slippage_bps":75,"caller":"` + testCaller + `"}`
	req := httptest.NewRequest("POST", "/api/v1/tx/swap", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp swapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "AQAC", resp.Transaction)
	assert.Equal(t, "SOL", resp.InputSymbol)
	assert.Equal(t, "USDC", resp.OutputSymbol)
	assert.Equal(t, uint64(1_000_000_000), resp.InAmountBaseUnits)
	assert.Equal(t, uint64(150_000_000), resp.ExpectedOutBaseUnits)
	assert.Equal(t, "150", resp.ExpectedOutAmount)
	assert.Equal(t, 75, resp.SlippageBps)
	assert.Equal(t, "authoritative", resp.InputDecimalsSource)
}

func TestHandleSwap_UnknownToken(t *testing.T) {
	handler := handleSwap(testOrchestrator(t), testLogger())

	body := `{"input_token":"NOSUCHTOKEN","amount":"1","caller":"` + testCaller + `"}`
	req := httptest.NewRequest("POST", "/api/v1/tx/swap", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown_token", resp.Kind)
}

func TestHandleStake_Success(t *testing.T) {
	handler := handleStake(testOrchestrator(t), testLogger())

	body := `{"amount":"2","caller":"` + testCaller + `"}`
	req := httptest.NewRequest("POST", "/api/v1/tx/stake", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp stakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "JitoSOL", resp.LSTSymbol)
	assert.Equal(t, token.JitoSOLMint.String(), resp.LSTMint)
	assert.Equal(t, uint64(2_000_000_000), resp.AmountLamports)
}

func TestHandleStake_UnknownLST(t *testing.T) {
	handler := handleStake(testOrchestrator(t), testLogger())

	body := `{"amount":"2","lst":"BONK","caller":"` + testCaller + `"}`
	req := httptest.NewRequest("POST", "/api/v1/tx/stake", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown_token", resp.Kind)
}

func TestHandleSearchTokens(t *testing.T) {
	tokens := token.NewResolver(stubMetadata{}, testLogger())
	handler := handleSearchTokens(tokens, testLogger())

	t.Run("search", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/tokens/search?q=bonk&limit=10", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Success bool                 `json:"success"`
			Tokens  []token.SearchResult `json:"tokens"`
			Count   int                  `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "BONK", resp.Tokens[0].Symbol)
	})

	t.Run("short query returns suggestions", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/tokens/search?q=s&limit=3", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Tokens []token.SearchResult `json:"tokens"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Tokens, 3)
		assert.Equal(t, "SOL", resp.Tokens[0].Symbol)
	})

	t.Run("non-integer limit", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/tokens/search?q=bonk&limit=ten", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "invalid_input", resp.Kind)
	})

	t.Run("limit out of range", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/tokens/search?q=bonk&limit=500", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "invalid_input", resp.Kind)
	})
}

func TestHandleResolve(t *testing.T) {
	chain := resolve.NewChain(testLogger(), nil, stubProvider{})
	handler := handleResolve(chain, testLogger())

	// Route through a mux so PathValue is populated.
	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/resolve/{input}", handler)

	t.Run("domain", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/resolve/alice.sol", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Success bool   `json:"success"`
			Input   string `json:"input"`
			Address string `json:"address"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "alice.sol", resp.Input)
		assert.Equal(t, testDest.String(), resp.Address)
	})

	t.Run("raw address", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/resolve/"+testCaller, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Address string `json:"address"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, testCaller, resp.Address)
	})

	t.Run("unresolvable", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/resolve/nobody.blink", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unresolvable_destination", resp.Kind)
	})
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := corsMiddleware(inner)

	t.Run("headers on normal request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/v1/tx/swap", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
