package token

import (
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Resolved is a canonical token: its mint plus the metadata the pipeline needs
// to scale amounts and render confirmations.
type Resolved struct {
	Mint     solana.PublicKey
	Symbol   string
	Decimals uint8

	// DecimalsAuthoritative is false when Decimals fell back to the documented
	// default because upstream metadata was unavailable.
	DecimalsAuthoritative bool
}

// Well-known mainnet mints. Kept as a constant-time lookup so the common
// high-liquidity symbols never require a network call.
var (
	SOLMint     = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	USDCMint    = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	USDTMint    = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	JUPMint     = solana.MustPublicKeyFromBase58("JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN")
	BONKMint    = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	WIFMint     = solana.MustPublicKeyFromBase58("EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm")
	MSOLMint    = solana.MustPublicKeyFromBase58("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So")
	JitoSOLMint = solana.MustPublicKeyFromBase58("J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn")
)

// DefaultLSTSymbol is the liquid-staking token a stake operation targets when
// the caller does not name one.
const DefaultLSTSymbol = "JITOSOL"

// knownTokens maps upper-cased symbols to their canonical mints. Decimals here
// are authoritative, taken from the mints' on-chain state.
var knownTokens = map[string]Resolved{
	"SOL":     {Mint: SOLMint, Symbol: "SOL", Decimals: 9, DecimalsAuthoritative: true},
	"USDC":    {Mint: USDCMint, Symbol: "USDC", Decimals: 6, DecimalsAuthoritative: true},
	"USDT":    {Mint: USDTMint, Symbol: "USDT", Decimals: 6, DecimalsAuthoritative: true},
	"JUP":     {Mint: JUPMint, Symbol: "JUP", Decimals: 6, DecimalsAuthoritative: true},
	"BONK":    {Mint: BONKMint, Symbol: "BONK", Decimals: 5, DecimalsAuthoritative: true},
	"WIF":     {Mint: WIFMint, Symbol: "WIF", Decimals: 6, DecimalsAuthoritative: true},
	"MSOL":    {Mint: MSOLMint, Symbol: "mSOL", Decimals: 9, DecimalsAuthoritative: true},
	"JITOSOL": {Mint: JitoSOLMint, Symbol: "JitoSOL", Decimals: 9, DecimalsAuthoritative: true},
}

// knownLSTs is the subset of knownTokens that represent staked positions.
// Stake operations only accept these symbols (or a raw mint address).
var knownLSTs = map[string]struct{}{
	"MSOL":    {},
	"JITOSOL": {},
}

// suggestionOrder fixes the ordering of the suggestions list returned for
// empty or too-short search queries.
var suggestionOrder = []string{"SOL", "USDC", "USDT", "JUP", "BONK", "WIF", "MSOL", "JITOSOL"}

// lookupKnown returns the registry entry for a ticker symbol, accepting an
// optional leading '$' and any casing.
func lookupKnown(symbol string) (Resolved, bool) {
	key := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(symbol), "$"))
	t, ok := knownTokens[key]
	return t, ok
}
