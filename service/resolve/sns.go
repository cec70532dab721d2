package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solwire/solwire/service/metrics"
)

// SPL Name Service constants for .sol domain registry derivation.
var (
	nameServiceProgram = solana.MustPublicKeyFromBase58("namesLPneVptA9Z5rqUDD9tMTWEJwofgaYwp8cawRkX")
	solTLDAuthority    = solana.MustPublicKeyFromBase58("58PwtjSDuFHuUkYjH9BYnnQKHfwo9reZhC2zMJv9JPkx")
)

const (
	// nameHashPrefix salts the registry key hash per the name service spec.
	nameHashPrefix = "SPL Name Service"

	// registryHeaderLen is the fixed registry header: parent (32), owner (32),
	// class (32). The owner field sits at bytes [32, 64).
	registryHeaderLen = 96
	registryOwnerOff  = 32
)

// AccountFetcher is the slice of chain RPC the registry-derivation strategy
// needs. *rpc.Client satisfies it.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// SNS resolves .sol domains. The upstream proxy's data shapes have drifted
// across API versions, so it tries three strategies in order: a direct
// symbolic resolve on the stripped name, a record lookup on the fully
// qualified name, and finally deterministic registry-key derivation with an
// on-chain read of the registry's owner field. Each sub-step's failure falls
// through to the next; only the failure of all three raises.
type SNS struct {
	proxyURL   string
	httpClient *http.Client
	chain      AccountFetcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewSNS creates the .sol provider. chain may be nil, which disables the
// registry-derivation fallback. If httpClient is nil a default with a 10s
// timeout is used.
func NewSNS(proxyURL string, httpClient *http.Client, chain AccountFetcher, m *metrics.Metrics, logger *slog.Logger) *SNS {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &SNS{proxyURL: proxyURL, httpClient: httpClient, chain: chain, metrics: m, logger: logger}
}

// Name implements Provider.
func (s *SNS) Name() string { return "sns" }

// TryResolve implements Provider.
func (s *SNS) TryResolve(ctx context.Context, input string) (solana.PublicKey, bool, error) {
	if !strings.HasSuffix(strings.ToLower(input), ".sol") {
		return solana.PublicKey{}, false, nil
	}
	stripped := strings.TrimSuffix(strings.ToLower(input), ".sol")
	if stripped == "" {
		return solana.PublicKey{}, false, nil
	}

	type strategy struct {
		name string
		run  func(context.Context) (solana.PublicKey, error)
	}
	strategies := []strategy{
		{"direct_resolve", func(ctx context.Context) (solana.PublicKey, error) {
			return s.proxyLookup(ctx, "resolve", "/resolve/"+url.PathEscape(stripped))
		}},
		{"record_lookup", func(ctx context.Context) (solana.PublicKey, error) {
			return s.proxyLookup(ctx, "record", "/record/"+url.PathEscape(strings.ToLower(input))+"/SOL")
		}},
		{"registry_derivation", func(ctx context.Context) (solana.PublicKey, error) {
			return s.registryOwner(ctx, stripped)
		}},
	}

	var lastErr error
	for _, st := range strategies {
		owner, err := st.run(ctx)
		if err != nil {
			s.logger.DebugContext(ctx, "sns strategy failed, trying next",
				"strategy", st.name,
				"domain", input,
				"error", err,
			)
			lastErr = err
			continue
		}
		return owner, true, nil
	}
	return solana.PublicKey{}, false, fmt.Errorf("all sns strategies failed for %q: %w", input, lastErr)
}

// proxyLookup calls the SNS proxy and extracts the owner from its
// {"s":"ok","result":"<pubkey>"} envelope.
func (s *SNS) proxyLookup(ctx context.Context, operation, path string) (solana.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.proxyURL+path, nil)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	s.recordCall(operation, start, resp, err)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return solana.PublicKey{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		S      string `json:"s"`
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.S != "ok" || payload.Result == "" {
		return solana.PublicKey{}, fmt.Errorf("proxy reported %q", payload.S)
	}

	owner, ok := ParseAddress(payload.Result)
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("proxy returned malformed owner %q", payload.Result)
	}
	return owner, nil
}

// registryOwner derives the domain's registry key deterministically and reads
// the owner field from the on-chain registry entry.
func (s *SNS) registryOwner(ctx context.Context, stripped string) (solana.PublicKey, error) {
	if s.chain == nil {
		return solana.PublicKey{}, fmt.Errorf("no chain access configured")
	}

	registryKey, err := DeriveNameRegistryKey(stripped)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive registry key: %w", err)
	}

	start := time.Now()
	result, err := s.chain.GetAccountInfo(ctx, registryKey)
	s.recordCall("registry", start, nil, err)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to fetch registry entry: %w", err)
	}
	if result == nil || result.Value == nil {
		return solana.PublicKey{}, fmt.Errorf("registry entry %s does not exist", registryKey)
	}

	data := result.Value.Data.GetBinary()
	if len(data) < registryHeaderLen {
		return solana.PublicKey{}, fmt.Errorf("registry entry %s too short: %d bytes", registryKey, len(data))
	}
	return solana.PublicKeyFromBytes(data[registryOwnerOff : registryOwnerOff+solana.PublicKeyLength]), nil
}

// DeriveNameRegistryKey derives the deterministic registry account for a
// stripped .sol name: seeds are the salted SHA-256 of the name, a zero class,
// and the .sol TLD parent, under the name service program.
func DeriveNameRegistryKey(stripped string) (solana.PublicKey, error) {
	hashed := sha256.Sum256([]byte(nameHashPrefix + stripped))
	seeds := [][]byte{
		hashed[:],
		make([]byte, 32), // name class: none
		solTLDAuthority.Bytes(),
	}
	key, _, err := solana.FindProgramAddress(seeds, nameServiceProgram)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return key, nil
}

func (s *SNS) recordCall(operation string, start time.Time, resp *http.Response, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil || (resp != nil && resp.StatusCode >= 500) {
		status = "error"
	}
	s.metrics.RecordUpstreamCall("sns", operation, status, time.Since(start).Seconds())
}
