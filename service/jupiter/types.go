// Package jupiter provides clients for the Jupiter aggregator APIs: the quote
// oracle, the swap-transaction assembler, and the token metadata/search
// service. The pipeline treats all three as opaque upstreams.
package jupiter

// QuoteResponse is the quote oracle's response. The full payload is forwarded
// verbatim to the swap assembler, so unrecognized fields must survive the
// round trip (see Raw and BuildSwap).
type QuoteResponse struct {
	InputMint            string      `json:"inputMint"`
	InAmount             string      `json:"inAmount"`
	OutputMint           string      `json:"outputMint"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
	PriceImpactPct       string      `json:"priceImpactPct"`
	RoutePlan            []RoutePlan `json:"routePlan"`
	ContextSlot          int64       `json:"contextSlot,omitempty"`

	// raw is the unmodified provider payload, kept so BuildSwap can forward
	// exactly what the oracle returned.
	raw []byte
}

// Raw returns the oracle's unmodified JSON payload.
func (q *QuoteResponse) Raw() []byte { return q.raw }

// RoutePlan describes a single step in the swap route.
type RoutePlan struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

// SwapInfo contains details about a swap step.
type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// swapRequest is the body sent to the swap-transaction assembler.
type swapRequest struct {
	QuoteResponse             any    `json:"quoteResponse"`
	UserPublicKey             string `json:"userPublicKey"`
	WrapAndUnwrapSol          bool   `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool   `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string `json:"prioritizationFeeLamports"`
}

// SwapResponse contains the assembled unsigned transaction.
type SwapResponse struct {
	SwapTransaction           string `json:"swapTransaction"` // base64-encoded
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports int64  `json:"prioritizationFeeLamports,omitempty"`
	ComputeUnitLimit          int    `json:"computeUnitLimit,omitempty"`
}

// Token is a token metadata/search service entry.
type Token struct {
	ID           string   `json:"id"` // mint address
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Decimals     uint8    `json:"decimals"`
	Icon         string   `json:"icon,omitempty"`
	IsVerified   bool     `json:"isVerified"`
	Tags         []string `json:"tags,omitempty"`
	USDPrice     float64  `json:"usdPrice,omitempty"`
	MarketCap    float64  `json:"mcap,omitempty"`
	Liquidity    float64  `json:"liquidity,omitempty"`
	OrganicScore float64  `json:"organicScore,omitempty"`
	HolderCount  int64    `json:"holderCount,omitempty"`
	FDV          float64  `json:"fdv,omitempty"`
}
