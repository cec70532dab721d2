// Package pipeline sequences identifier resolution, amount scaling, quoting,
// and transaction construction into ready-to-sign unsigned transactions. Each
// request is handled independently and statelessly; the first failing stage
// terminates the request and nothing is retried.
package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solwire/solwire/service/jupiter"
	"github.com/solwire/solwire/service/metrics"
	solanasvc "github.com/solwire/solwire/service/solana"
	"github.com/solwire/solwire/service/token"
)

// AddressResolver resolves a destination string to a canonical account.
type AddressResolver interface {
	Resolve(ctx context.Context, input string) (solana.PublicKey, error)
}

// TokenResolver resolves token identifiers to canonical mints.
type TokenResolver interface {
	ResolveToken(ctx context.Context, identifier string) (token.Resolved, error)
	ResolveLST(ctx context.Context, identifier string) (token.Resolved, error)
}

// QuoteService prices exchanges and assembles unsigned swap transactions.
type QuoteService interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amountBaseUnits uint64, slippageBps int) (*jupiter.QuoteResponse, error)
	BuildSwap(ctx context.Context, quote *jupiter.QuoteResponse, userPublicKey string) (*jupiter.SwapResponse, error)
}

// TransferBuilder constructs unsigned native-transfer transactions.
type TransferBuilder interface {
	BuildTransfer(ctx context.Context, from, to solana.PublicKey, lamports uint64) (*solanasvc.UnsignedTransaction, error)
}

// Recorder persists a summary of each constructed transaction. Writes are
// best-effort and never influence or fail the request.
type Recorder interface {
	RecordConstruction(ctx context.Context, rec *ConstructionRecord) error
}

// EventPublisher announces constructed transactions to downstream consumers.
// Publishing is best-effort and never fails the request.
type EventPublisher interface {
	PublishBuilt(ctx context.Context, rec *ConstructionRecord) error
}

// ConstructionRecord summarizes a successfully built transaction for the
// audit log and event stream. It never contains the payload itself.
type ConstructionRecord struct {
	Operation            string    `json:"operation"`
	Caller               string    `json:"caller"`
	Destination          string    `json:"destination,omitempty"`
	InputMint            string    `json:"input_mint,omitempty"`
	OutputMint           string    `json:"output_mint,omitempty"`
	InputSymbol          string    `json:"input_symbol,omitempty"`
	OutputSymbol         string    `json:"output_symbol,omitempty"`
	AmountBaseUnits      uint64    `json:"amount_base_units"`
	ExpectedOutBaseUnits uint64    `json:"expected_out_base_units,omitempty"`
	SlippageBps          int       `json:"slippage_bps,omitempty"`
	BuiltAt              time.Time `json:"built_at"`
}

// TransferResult is the success response for a transfer intent.
type TransferResult struct {
	Transaction          string
	Destination          string
	ResolvedDestination  string
	Amount               string
	Lamports             uint64
	Unit                 string
	FeePayer             string
	LastValidBlockHeight uint64
	Timestamp            time.Time
}

// SwapResult is the success response for swap and stake intents. For stakes,
// the output side describes the liquid-staking token.
type SwapResult struct {
	Transaction          string
	InputSymbol          string
	InputMint            string
	OutputSymbol         string
	OutputMint           string
	InAmount             string
	InAmountBaseUnits    uint64
	ExpectedOutAmount    string
	ExpectedOutBaseUnits uint64
	SlippageBps          int
	InputDecimalsSource  string
	OutputDecimalsSource string
	LastValidBlockHeight uint64
	Timestamp            time.Time
}

// Orchestrator runs the per-request state machine:
// validate -> resolve -> scale -> (quote) -> build -> respond.
// It holds no mutable state of its own; all fields are set at construction
// and safe for concurrent use.
type Orchestrator struct {
	addresses          AddressResolver
	tokens             TokenResolver
	quotes             QuoteService
	transfers          TransferBuilder
	audit              Recorder       // optional
	events             EventPublisher // optional
	metrics            *metrics.Metrics
	logger             *slog.Logger
	defaultSlippageBps int
}

// New creates an Orchestrator. audit, events, and m may be nil, disabling the
// audit log, event publishing, and metrics respectively. A defaultSlippageBps
// of 0 selects the standard default.
func New(addresses AddressResolver, tokens TokenResolver, quotes QuoteService, transfers TransferBuilder, audit Recorder, events EventPublisher, m *metrics.Metrics, logger *slog.Logger, defaultSlippageBps int) *Orchestrator {
	if defaultSlippageBps <= 0 {
		defaultSlippageBps = jupiter.DefaultSlippageBps
	}
	return &Orchestrator{
		addresses:          addresses,
		tokens:             tokens,
		quotes:             quotes,
		transfers:          transfers,
		audit:              audit,
		events:             events,
		metrics:            m,
		logger:             logger,
		defaultSlippageBps: defaultSlippageBps,
	}
}

// Transfer builds an unsigned native-transfer transaction.
func (o *Orchestrator) Transfer(ctx context.Context, intent TransferIntent) (*TransferResult, error) {
	start := time.Now()
	result, err := o.transfer(ctx, intent)
	o.recordConstructionMetric(intent.Operation(), start, err)
	return result, err
}

func (o *Orchestrator) transfer(ctx context.Context, intent TransferIntent) (*TransferResult, error) {
	if err := intent.validate(); err != nil {
		return nil, Classify(err)
	}

	lamports, err := token.Scale(intent.Amount, token.NativeDecimals)
	if err != nil {
		return nil, Classify(err)
	}

	dest, err := o.addresses.Resolve(ctx, intent.Destination)
	if err != nil {
		return nil, Classify(err)
	}

	caller := callerKey(intent.Caller)
	unsigned, err := o.transfers.BuildTransfer(ctx, caller, dest, lamports)
	if err != nil {
		return nil, Classify(err)
	}

	now := time.Now().UTC()
	o.afterBuild(ctx, &ConstructionRecord{
		Operation:       intent.Operation(),
		Caller:          caller.String(),
		Destination:     dest.String(),
		InputMint:       token.SOLMint.String(),
		InputSymbol:     "SOL",
		AmountBaseUnits: lamports,
		BuiltAt:         now,
	})

	return &TransferResult{
		Transaction:          unsigned.PayloadBase64,
		Destination:          strings.TrimSpace(intent.Destination),
		ResolvedDestination:  dest.String(),
		Amount:               token.FormatAmount(lamports, token.NativeDecimals),
		Lamports:             lamports,
		Unit:                 "SOL",
		FeePayer:             unsigned.FeePayer.String(),
		LastValidBlockHeight: unsigned.LastValidBlockHeight,
		Timestamp:            now,
	}, nil
}

// Swap builds an unsigned swap transaction from a fresh quote.
func (o *Orchestrator) Swap(ctx context.Context, intent SwapIntent) (*SwapResult, error) {
	start := time.Now()
	result, err := o.swap(ctx, intent)
	o.recordConstructionMetric(intent.Operation(), start, err)
	return result, err
}

func (o *Orchestrator) swap(ctx context.Context, intent SwapIntent) (*SwapResult, error) {
	if err := intent.validate(); err != nil {
		return nil, Classify(err)
	}

	inputID := intent.InputToken
	if strings.TrimSpace(inputID) == "" {
		inputID = "SOL"
	}
	outputID := intent.OutputToken
	if strings.TrimSpace(outputID) == "" {
		outputID = "USDC"
	}

	// The two token resolutions have no data dependency, so they run
	// concurrently. Everything after depends on both.
	var (
		wg            sync.WaitGroup
		inTok, outTok token.Resolved
		inErr, outErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		inTok, inErr = o.tokens.ResolveToken(ctx, inputID)
	}()
	go func() {
		defer wg.Done()
		outTok, outErr = o.tokens.ResolveToken(ctx, outputID)
	}()
	wg.Wait()
	if inErr != nil {
		return nil, Classify(inErr)
	}
	if outErr != nil {
		return nil, Classify(outErr)
	}

	return o.quoteAndBuild(ctx, intent.Operation(), intent.Caller, intent.Amount, intent.SlippageBps, inTok, outTok)
}

// Stake converts SOL into a liquid-staking token via the swap path. An
// unrecognized LST fails before any quote is requested.
func (o *Orchestrator) Stake(ctx context.Context, intent StakeIntent) (*SwapResult, error) {
	start := time.Now()
	result, err := o.stake(ctx, intent)
	o.recordConstructionMetric(intent.Operation(), start, err)
	return result, err
}

func (o *Orchestrator) stake(ctx context.Context, intent StakeIntent) (*SwapResult, error) {
	if err := intent.validate(); err != nil {
		return nil, Classify(err)
	}

	lst, err := o.tokens.ResolveLST(ctx, intent.LST)
	if err != nil {
		return nil, Classify(err)
	}

	sol, err := o.tokens.ResolveToken(ctx, "SOL")
	if err != nil {
		return nil, Classify(err)
	}

	return o.quoteAndBuild(ctx, intent.Operation(), intent.Caller, intent.Amount, 0, sol, lst)
}

// quoteAndBuild is the shared quote -> assemble tail for swap and stake.
func (o *Orchestrator) quoteAndBuild(ctx context.Context, operation, caller, amount string, slippageBps int, in, out token.Resolved) (*SwapResult, error) {
	amountBase, err := token.Scale(amount, in.Decimals)
	if err != nil {
		return nil, Classify(err)
	}

	if slippageBps <= 0 {
		slippageBps = o.defaultSlippageBps
	}

	quote, err := o.quotes.GetQuote(ctx, in.Mint.String(), out.Mint.String(), amountBase, slippageBps)
	if err != nil {
		return nil, Classify(err)
	}

	outBase, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return nil, Errorf(KindQuoteFailed, "quote returned malformed outAmount %q", quote.OutAmount)
	}

	callerPK := callerKey(caller)
	swap, err := o.quotes.BuildSwap(ctx, quote, callerPK.String())
	if err != nil {
		return nil, Classify(err)
	}

	now := time.Now().UTC()
	o.afterBuild(ctx, &ConstructionRecord{
		Operation:            operation,
		Caller:               callerPK.String(),
		InputMint:            in.Mint.String(),
		OutputMint:           out.Mint.String(),
		InputSymbol:          in.Symbol,
		OutputSymbol:         out.Symbol,
		AmountBaseUnits:      amountBase,
		ExpectedOutBaseUnits: outBase,
		SlippageBps:          slippageBps,
		BuiltAt:              now,
	})

	return &SwapResult{
		Transaction:          swap.SwapTransaction,
		InputSymbol:          in.Symbol,
		InputMint:            in.Mint.String(),
		OutputSymbol:         out.Symbol,
		OutputMint:           out.Mint.String(),
		InAmount:             token.FormatAmount(amountBase, in.Decimals),
		InAmountBaseUnits:    amountBase,
		ExpectedOutAmount:    token.FormatAmount(outBase, out.Decimals),
		ExpectedOutBaseUnits: outBase,
		SlippageBps:          slippageBps,
		InputDecimalsSource:  decimalsSource(in),
		OutputDecimalsSource: decimalsSource(out),
		LastValidBlockHeight: swap.LastValidBlockHeight,
		Timestamp:            now,
	}, nil
}

// afterBuild runs the best-effort side channels. Failures are logged and
// counted, never surfaced: the caller already has a valid transaction.
func (o *Orchestrator) afterBuild(ctx context.Context, rec *ConstructionRecord) {
	if o.audit != nil {
		if err := o.audit.RecordConstruction(ctx, rec); err != nil {
			o.logger.WarnContext(ctx, "failed to write construction audit record",
				"operation", rec.Operation,
				"error", err,
			)
			if o.metrics != nil {
				o.metrics.RecordAuditWrite("error")
			}
		} else if o.metrics != nil {
			o.metrics.RecordAuditWrite("success")
		}
	}

	if o.events != nil {
		if err := o.events.PublishBuilt(ctx, rec); err != nil {
			o.logger.WarnContext(ctx, "failed to publish construction event",
				"operation", rec.Operation,
				"error", err,
			)
			if o.metrics != nil {
				o.metrics.RecordEventPublished("error")
			}
		} else if o.metrics != nil {
			o.metrics.RecordEventPublished("success")
		}
	}
}

func (o *Orchestrator) recordConstructionMetric(operation string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = string(Classify(err).Kind)
	}
	o.metrics.RecordConstruction(operation, status, time.Since(start).Seconds())
}

func decimalsSource(t token.Resolved) string {
	if t.DecimalsAuthoritative {
		return "authoritative"
	}
	return "default"
}
