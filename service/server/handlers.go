package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/solwire/solwire/service/pipeline"
	"github.com/solwire/solwire/service/resolve"
	"github.com/solwire/solwire/service/token"
)

const maxRequestBodySize = 1 << 20 // 1MB - plenty for intent bodies

// amountField accepts a JSON string or number; amounts arrive as either
// depending on the client.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

// handleTransfer returns a handler that builds an unsigned native transfer.
// POST /api/v1/tx/transfer
func handleTransfer(orc *pipeline.Orchestrator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Destination string      `json:"destination"`
			Amount      amountField `json:"amount"`
			Caller      string      `json:"caller"`
		}
		if !decodeBody(w, r, logger, &req) {
			return
		}

		result, err := orc.Transfer(r.Context(), pipeline.TransferIntent{
			Destination: req.Destination,
			Amount:      string(req.Amount),
			Caller:      req.Caller,
		})
		if err != nil {
			writePipelineError(w, logger, "transfer", err)
			return
		}

		writeJSON(w, transferResponse{
			Success:              true,
			Transaction:          result.Transaction,
			Destination:          result.Destination,
			ResolvedDestination:  result.ResolvedDestination,
			Amount:               result.Amount,
			Lamports:             result.Lamports,
			Unit:                 result.Unit,
			FeePayer:             result.FeePayer,
			LastValidBlockHeight: result.LastValidBlockHeight,
			Timestamp:            result.Timestamp,
		}, http.StatusOK)
	})
}

// handleSwap returns a handler that builds an unsigned swap transaction.
// POST /api/v1/tx/swap
func handleSwap(orc *pipeline.Orchestrator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			InputToken  string      `json:"input_token"`
			OutputToken string      `json:"output_token"`
			Amount      amountField `json:"amount"`
			SlippageBps int         `json:"slippage_bps"`
			Caller      string      `json:"caller"`
		}
		if !decodeBody(w, r, logger, &req) {
			return
		}

		result, err := orc.Swap(r.Context(), pipeline.SwapIntent{
			InputToken:  req.InputToken,
			OutputToken: req.OutputToken,
			Amount:      string(req.Amount),
			SlippageBps: req.SlippageBps,
			Caller:      req.Caller,
		})
		if err != nil {
			writePipelineError(w, logger, "swap", err)
			return
		}

		writeJSON(w, swapResponse{
			Success:              true,
			Transaction:          result.Transaction,
			InputSymbol:          result.InputSymbol,
			InputMint:            result.InputMint,
			OutputSymbol:         result.OutputSymbol,
			OutputMint:           result.OutputMint,
			InAmount:             result.InAmount,
			InAmountBaseUnits:    result.InAmountBaseUnits,
			ExpectedOutAmount:    result.ExpectedOutAmount,
			ExpectedOutBaseUnits: result.ExpectedOutBaseUnits,
			SlippageBps:          result.SlippageBps,
			InputDecimalsSource:  result.InputDecimalsSource,
			OutputDecimalsSource: result.OutputDecimalsSource,
			LastValidBlockHeight: result.LastValidBlockHeight,
			Timestamp:            result.Timestamp,
		}, http.StatusOK)
	})
}

// handleStake returns a handler that builds an unsigned liquid-stake
// transaction (SOL into an LST via the swap path).
// POST /api/v1/tx/stake
func handleStake(orc *pipeline.Orchestrator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount amountField `json:"amount"`
			LST    string      `json:"lst"`
			Caller string      `json:"caller"`
		}
		if !decodeBody(w, r, logger, &req) {
			return
		}

		result, err := orc.Stake(r.Context(), pipeline.StakeIntent{
			Amount: string(req.Amount),
			LST:    req.LST,
			Caller: req.Caller,
		})
		if err != nil {
			writePipelineError(w, logger, "stake", err)
			return
		}

		writeJSON(w, stakeResponse{
			Success:              true,
			Transaction:          result.Transaction,
			LSTSymbol:            result.OutputSymbol,
			LSTMint:              result.OutputMint,
			Amount:               result.InAmount,
			AmountLamports:       result.InAmountBaseUnits,
			ExpectedOutAmount:    result.ExpectedOutAmount,
			ExpectedOutBaseUnits: result.ExpectedOutBaseUnits,
			SlippageBps:          result.SlippageBps,
			LastValidBlockHeight: result.LastValidBlockHeight,
			Timestamp:            result.Timestamp,
		}, http.StatusOK)
	})
}

// handleSearchTokens returns a handler for token search and suggestions.
// GET /api/v1/tokens/search?q={query}&limit={limit}
func handleSearchTokens(tokens *token.Resolver, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")

		limit := 20
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			parsed, err := strconv.Atoi(limitStr)
			if err != nil {
				writeError(w, "invalid limit parameter: must be an integer", string(pipeline.KindInvalidInput), http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		results, err := tokens.SearchTokens(r.Context(), query, limit)
		if err != nil {
			writePipelineError(w, logger, "token_search", err)
			return
		}

		logger.Debug("token search served", "query", query, "limit", limit, "count", len(results))
		writeJSON(w, map[string]any{
			"success": true,
			"tokens":  results,
			"count":   len(results),
		}, http.StatusOK)
	})
}

// handleResolve returns a handler exposing the resolution chain for debugging
// and support tooling.
// GET /api/v1/resolve/{input}
func handleResolve(chain *resolve.Chain, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		input := r.PathValue("input")

		owner, err := chain.Resolve(r.Context(), input)
		if err != nil {
			writePipelineError(w, logger, "resolve", err)
			return
		}

		writeJSON(w, map[string]any{
			"success": true,
			"input":   strings.TrimSpace(input),
			"address": owner.String(),
		}, http.StatusOK)
	})
}

// transferResponse is the JSON success response for a transfer.
type transferResponse struct {
	Success              bool      `json:"success"`
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

// swapResponse is the JSON success response for a swap.
type swapResponse struct {
	Success              bool      `json:"success"`
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

// stakeResponse is the JSON success response for a stake.
type stakeResponse struct {
	Success              bool      `json:"success"`
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

// errorResponse is the JSON failure envelope. A failure never carries a
// partial transaction.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

// decodeBody decodes a JSON request body with a size cap, writing the error
// response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug("failed to decode request body", "path", r.URL.Path, "error", err)
		msg := "invalid request body: must be valid JSON"
		if strings.Contains(err.Error(), "http: request body too large") {
			msg = "request body too large: maximum size is 1MB"
		}
		writeError(w, msg, string(pipeline.KindInvalidInput), http.StatusBadRequest)
		return false
	}
	return true
}

// writePipelineError maps a pipeline failure to the error envelope with the
// kind's HTTP status.
func writePipelineError(w http.ResponseWriter, logger *slog.Logger, operation string, err error) {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		perr = pipeline.Classify(err)
	}

	status := perr.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("operation failed", "operation", operation, "kind", perr.Kind, "error", err)
	} else {
		logger.Debug("operation rejected", "operation", operation, "kind", perr.Kind, "error", err)
	}
	writeError(w, perr.Error(), string(perr.Kind), status)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes the JSON failure envelope.
func writeError(w http.ResponseWriter, message, kind string, statusCode int) {
	writeJSON(w, errorResponse{Success: false, Error: message, Kind: kind}, statusCode)
}
