package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/solwire/solwire/service/jupiter"
	"github.com/solwire/solwire/service/resolve"
	"github.com/solwire/solwire/service/solana"
	"github.com/solwire/solwire/service/token"
)

// Kind classifies a pipeline failure. Every error the orchestrator returns
// carries exactly one Kind so callers get a stable taxonomy regardless of
// which stage failed.
type Kind string

const (
	KindInvalidInput            Kind = "invalid_input"
	KindInvalidAmount           Kind = "invalid_amount"
	KindInvalidDestination      Kind = "invalid_destination"
	KindUnresolvableDestination Kind = "unresolvable_destination"
	KindUnknownToken            Kind = "unknown_token"
	KindQuoteFailed             Kind = "quote_failed"
	KindTransactionBuildFailed  Kind = "transaction_build_failed"
	KindUnexpected              Kind = "unexpected"
)

// HTTPStatus maps the kind to a response status. Validation and resolution
// failures are the caller's to fix; quote/build/unexpected failures are
// server-side.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindInvalidAmount, KindInvalidDestination,
		KindUnresolvableDestination, KindUnknownToken:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified pipeline failure. The wrapped cause keeps upstream
// provider text intact for diagnosis.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf constructs a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify maps any error to a classified *Error, matching the component
// packages' sentinel and typed errors. Already-classified errors pass through
// unchanged; anything unrecognized is KindUnexpected.
func Classify(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	kind := KindUnexpected
	var quoteErr *jupiter.QuoteError
	var swapErr *jupiter.SwapBuildError
	var buildErr *solana.BuildError
	switch {
	case errors.Is(err, token.ErrInvalidAmount):
		kind = KindInvalidAmount
	case errors.Is(err, token.ErrUnknownToken):
		kind = KindUnknownToken
	case errors.Is(err, token.ErrInvalidLimit):
		kind = KindInvalidInput
	case errors.Is(err, resolve.ErrInvalidDestination):
		kind = KindInvalidDestination
	case errors.Is(err, resolve.ErrUnresolvable):
		kind = KindUnresolvableDestination
	case errors.As(err, &quoteErr):
		kind = KindQuoteFailed
	case errors.As(err, &swapErr):
		kind = KindTransactionBuildFailed
	case errors.As(err, &buildErr):
		kind = KindTransactionBuildFailed
	}
	return &Error{Kind: kind, Err: err}
}
