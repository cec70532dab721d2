package solana

import (
	"github.com/gagliardetto/solana-go"
)

// UnsignedTransaction is a fully constructed, serialized transaction payload
// lacking only signatures. The pipeline never retains a copy after the
// response is sent and never holds any signing capability.
type UnsignedTransaction struct {
	// PayloadBase64 is the serialized transaction, ready for external signing.
	PayloadBase64 string

	// FeePayer is the account that will pay fees once the payload is signed.
	FeePayer solana.PublicKey

	// Blockhash binds the transaction to a bounded validity window.
	Blockhash solana.Hash

	// LastValidBlockHeight is the expiry block reference for the blockhash.
	LastValidBlockHeight uint64
}
