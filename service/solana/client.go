// Package solana wraps chain RPC access: fetching fresh blockhashes, reading
// accounts, and constructing unsigned native-transfer transactions.
package solana

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solwire/solwire/service/metrics"
)

// BuildError indicates a failure while constructing or serializing a
// transaction. It is distinguished from upstream quote/assembly failures.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("transaction build failed: %v", e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// RPCClient is the slice of the Solana RPC surface we need. This allows
// mocking the RPC layer in tests without hitting real nodes.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// NewRPCClient creates a real RPC client for the given endpoint.
func NewRPCClient(endpoint string) *rpc.Client {
	return rpc.New(endpoint)
}

// Client provides chain operations for the transaction pipeline. It holds no
// key material and never signs; every payload it produces is returned to the
// caller for external signing.
type Client struct {
	rpc      RPCClient
	endpoint string // endpoint identifier for metrics labels
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewClient creates a new chain client. The endpoint parameter is used for
// metrics labeling. If m is nil, no metrics are recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		endpoint: endpoint,
		metrics:  m,
		logger:   logger,
	}
}

// LatestBlockhash fetches a fresh blockhash and its expiry block height.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	start := time.Now()
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	c.record("GetLatestBlockhash", start, err)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("failed to fetch latest blockhash: %w", err)
	}
	return result.Value.Blockhash, result.Value.LastValidBlockHeight, nil
}

// GetAccountInfo fetches raw account state. Exposed so the name-service
// registry fallback can read registry entries through the same client.
func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	start := time.Now()
	result, err := c.rpc.GetAccountInfo(ctx, account)
	c.record("GetAccountInfo", start, err)
	return result, err
}

// BuildTransfer constructs an unsigned native-transfer transaction moving
// lamports from `from` to `to`. The fee payer is the sender and the payload
// is bound to a freshly fetched blockhash so it has a bounded validity
// window.
func (c *Client) BuildTransfer(ctx context.Context, from, to solana.PublicKey, lamports uint64) (*UnsignedTransaction, error) {
	blockhash, lastValid, err := c.LatestBlockhash(ctx)
	if err != nil {
		return nil, &BuildError{Err: err}
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, to).Build(),
		},
		blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, &BuildError{Err: fmt.Errorf("failed to construct transaction: %w", err)}
	}

	// Serialize without signing; signature slots stay empty for the external
	// wallet to fill.
	bin, err := tx.MarshalBinary()
	if err != nil {
		return nil, &BuildError{Err: fmt.Errorf("failed to serialize transaction: %w", err)}
	}

	c.logger.DebugContext(ctx, "built unsigned transfer",
		"from", from.String(),
		"to", to.String(),
		"lamports", lamports,
		"last_valid_block_height", lastValid,
	)

	return &UnsignedTransaction{
		PayloadBase64:        base64.StdEncoding.EncodeToString(bin),
		FeePayer:             from,
		Blockhash:            blockhash,
		LastValidBlockHeight: lastValid,
	}, nil
}

func (c *Client) record(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}
