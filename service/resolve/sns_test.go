package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher is a scripted AccountFetcher.
type fakeFetcher struct {
	result *rpc.GetAccountInfoResult
	err    error
	lastPK solana.PublicKey
	calls  int
}

func (f *fakeFetcher) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.calls++
	f.lastPK = account
	return f.result, f.err
}

func TestSNS_NonSolDomain(t *testing.T) {
	s := NewSNS("http://unused", nil, nil, nil, testLogger())
	_, found, err := s.TryResolve(context.Background(), "alice.abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSNS_DirectResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolve/alice", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"s":"ok","result":"` + testOwner.String() + `"}`))
	}))
	defer server.Close()

	s := NewSNS(server.URL, nil, nil, nil, testLogger())
	owner, found, err := s.TryResolve(context.Background(), "alice.sol")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, testOwner, owner)
}

func TestSNS_CaseInsensitive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolve/alice", r.URL.Path)
		w.Write([]byte(`{"s":"ok","result":"` + testOwner.String() + `"}`))
	}))
	defer server.Close()

	s := NewSNS(server.URL, nil, nil, nil, testLogger())
	_, found, err := s.TryResolve(context.Background(), "Alice.SOL")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSNS_FallsBackToRecordLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/resolve/alice":
			w.WriteHeader(http.StatusInternalServerError)
		case "/record/alice.sol/SOL":
			w.Write([]byte(`{"s":"ok","result":"` + testOwner.String() + `"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	s := NewSNS(server.URL, nil, nil, nil, testLogger())
	owner, found, err := s.TryResolve(context.Background(), "alice.sol")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, testOwner, owner)
}

func TestSNS_FallsBackToRegistryDerivation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Both proxy strategies are down.
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	// Registry entry: parent (32) | owner (32) | class (32).
	data := make([]byte, 96)
	copy(data[32:64], testOwner.Bytes())
	fetcher := &fakeFetcher{
		result: &rpc.GetAccountInfoResult{
			Value: &rpc.Account{
				Data: rpc.DataBytesOrJSONFromBytes(data),
			},
		},
	}

	s := NewSNS(server.URL, nil, fetcher, nil, testLogger())
	owner, found, err := s.TryResolve(context.Background(), "alice.sol")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, testOwner, owner)

	wantKey, err := DeriveNameRegistryKey("alice")
	require.NoError(t, err)
	assert.Equal(t, wantKey, fetcher.lastPK)
}

func TestSNS_AllStrategiesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"s":"error"}`))
	}))
	defer server.Close()

	fetcher := &fakeFetcher{result: &rpc.GetAccountInfoResult{}}

	s := NewSNS(server.URL, nil, fetcher, nil, testLogger())
	_, found, err := s.TryResolve(context.Background(), "nobody.sol")
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "nobody.sol")
}

func TestDeriveNameRegistryKey_Deterministic(t *testing.T) {
	a, err := DeriveNameRegistryKey("alice")
	require.NoError(t, err)
	b, err := DeriveNameRegistryKey("alice")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := DeriveNameRegistryKey("bob")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
