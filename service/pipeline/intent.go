package pipeline

import (
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/solwire/solwire/service/resolve"
)

// Intent is the caller's desired operation, as a closed sum: exactly
// TransferIntent, SwapIntent, or StakeIntent. The orchestrator's dispatch
// over intents is exhaustive; new operation types are compile-time additions.
type Intent interface {
	// Operation names the intent variant ("transfer", "swap", "stake").
	Operation() string

	// validate checks required fields locally. It makes no network calls and
	// runs before any resolution or quoting.
	validate() error

	isIntent()
}

// TransferIntent moves an amount of native SOL to a destination.
type TransferIntent struct {
	// Destination is an address, or a domain name to resolve.
	Destination string
	// Amount is the human SOL amount.
	Amount string
	// Caller is the sending account; it becomes the fee payer.
	Caller string
}

func (TransferIntent) Operation() string { return "transfer" }
func (TransferIntent) isIntent()         {}

func (i TransferIntent) validate() error {
	if strings.TrimSpace(i.Amount) == "" {
		return Errorf(KindInvalidInput, "amount is required")
	}
	if strings.TrimSpace(i.Destination) == "" {
		return Errorf(KindInvalidInput, "destination is required")
	}
	return validateCaller(i.Caller)
}

// SwapIntent exchanges an amount of one token for another.
type SwapIntent struct {
	// InputToken and OutputToken are tickers or mint addresses. Empty values
	// default to SOL in, USDC out.
	InputToken  string
	OutputToken string
	// Amount is the human amount of the input token.
	Amount string
	// SlippageBps is the tolerance in basis points; 0 means the default.
	SlippageBps int
	// Caller is the swapping account.
	Caller string
}

func (SwapIntent) Operation() string { return "swap" }
func (SwapIntent) isIntent()         {}

func (i SwapIntent) validate() error {
	if strings.TrimSpace(i.Amount) == "" {
		return Errorf(KindInvalidInput, "amount is required")
	}
	if i.SlippageBps < 0 {
		return Errorf(KindInvalidInput, "slippage_bps cannot be negative")
	}
	return validateCaller(i.Caller)
}

// StakeIntent converts an amount of native SOL into a liquid-staking token.
type StakeIntent struct {
	// Amount is the human SOL amount to stake.
	Amount string
	// LST is the target liquid-staking token (symbol or mint); empty selects
	// the default.
	LST string
	// Caller is the staking account.
	Caller string
}

func (StakeIntent) Operation() string { return "stake" }
func (StakeIntent) isIntent()         {}

func (i StakeIntent) validate() error {
	if strings.TrimSpace(i.Amount) == "" {
		return Errorf(KindInvalidInput, "amount is required")
	}
	return validateCaller(i.Caller)
}

// validateCaller checks the caller account is present and well-formed. The
// caller must be a raw address; domains are only accepted for destinations.
func validateCaller(caller string) error {
	if strings.TrimSpace(caller) == "" {
		return Errorf(KindInvalidInput, "caller account is required")
	}
	if _, ok := resolve.ParseAddress(strings.TrimSpace(caller)); !ok {
		return Errorf(KindInvalidInput, "caller account %q is not a valid address", caller)
	}
	return nil
}

// callerKey parses a pre-validated caller account.
func callerKey(caller string) solana.PublicKey {
	pk, _ := resolve.ParseAddress(strings.TrimSpace(caller))
	return pk
}
