package resolve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeProvider is a scripted Provider that records whether it was consulted.
type fakeProvider struct {
	name   string
	owner  solana.PublicKey
	found  bool
	err    error
	called int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) TryResolve(ctx context.Context, input string) (solana.PublicKey, bool, error) {
	f.called++
	return f.owner, f.found, f.err
}

var testOwner = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

func TestResolve_RawAddressFastPath(t *testing.T) {
	provider := &fakeProvider{name: "sns"}
	chain := NewChain(testLogger(), nil, provider)

	pk, err := chain.Resolve(context.Background(), testOwner.String())
	require.NoError(t, err)
	assert.Equal(t, testOwner, pk)

	// A valid raw address never reaches the provider chain.
	assert.Zero(t, provider.called)
}

func TestResolve_EmptyInput(t *testing.T) {
	chain := NewChain(testLogger(), nil)
	_, err := chain.Resolve(context.Background(), "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestResolve_NonDottedGarbage(t *testing.T) {
	provider := &fakeProvider{name: "sns"}
	chain := NewChain(testLogger(), nil, provider)

	_, err := chain.Resolve(context.Background(), "not-an-address")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDestination)
	assert.Zero(t, provider.called)
}

func TestResolve_ProviderHit(t *testing.T) {
	provider := &fakeProvider{name: "sns", owner: testOwner, found: true}
	chain := NewChain(testLogger(), nil, provider)

	pk, err := chain.Resolve(context.Background(), "alice.sol")
	require.NoError(t, err)
	assert.Equal(t, testOwner, pk)
	assert.Equal(t, 1, provider.called)
}

func TestResolve_FailingProviderFallsThrough(t *testing.T) {
	flaky := &fakeProvider{name: "alldomains", err: errors.New("proxy down")}
	healthy := &fakeProvider{name: "sns", owner: testOwner, found: true}
	chain := NewChain(testLogger(), nil, flaky, healthy)

	pk, err := chain.Resolve(context.Background(), "alice.sol")
	require.NoError(t, err)
	assert.Equal(t, testOwner, pk)
	assert.Equal(t, 1, flaky.called)
	assert.Equal(t, 1, healthy.called)
}

func TestResolve_AllProvidersMiss(t *testing.T) {
	first := &fakeProvider{name: "alldomains"}
	second := &fakeProvider{name: "sns"}
	chain := NewChain(testLogger(), nil, first, second)

	_, err := chain.Resolve(context.Background(), "nobody.sol")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvable)
	assert.Contains(t, err.Error(), "nobody.sol")
	assert.Contains(t, err.Error(), "alldomains, sns")
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "valid address", input: testOwner.String(), want: true},
		{name: "too short", input: "abc", want: false},
		{name: "invalid base58", input: "0OIl" + testOwner.String()[4:], want: false},
		{name: "empty", input: "", want: false},
		{name: "domain", input: "alice.sol", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pk, ok := ParseAddress(tt.input)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.input, pk.String())
			}
		})
	}
}
