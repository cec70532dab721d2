package token

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// NativeDecimals is the decimal count of the network's native unit (SOL).
	NativeDecimals uint8 = 9

	// DefaultDecimals is used when a token's on-chain metadata is unavailable.
	// Responses must flag amounts scaled with this default so callers can tell
	// them apart from authoritative decimal counts.
	DefaultDecimals uint8 = 6

	// maxExactDecimals is the largest decimal count pow10 can represent in a
	// uint64 (10^19 fits, 10^20 does not).
	maxExactDecimals uint8 = 19
)

// ErrInvalidAmount indicates a human amount that does not parse to a finite,
// strictly positive number.
var ErrInvalidAmount = errors.New("invalid amount")

// Scale converts a human decimal amount to integer base units, truncating
// (never rounding) anything beyond the token's decimal precision. Truncation
// guarantees we never request more than the caller specified.
func Scale(amount string, decimals uint8) (uint64, error) {
	s := strings.TrimSpace(amount)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q does not parse to a finite number", ErrInvalidAmount, amount)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%w: amount must be strictly positive, got %q", ErrInvalidAmount, amount)
	}

	// Prefer exact digit-wise scaling; plain decimal strings never round-trip
	// through a float this way. Scientific notation and other float-only
	// spellings fall back to float math below.
	if v, ok := scaleExact(s, decimals); ok {
		return v, nil
	}

	scaled := math.Floor(f * math.Pow10(int(decimals)))
	if scaled >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %q overflows base units at %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return uint64(scaled), nil
}

// scaleExact scales a plain decimal string (digits, optional single dot) using
// integer arithmetic. Returns false when the string needs the float fallback.
func scaleExact(s string, decimals uint8) (uint64, bool) {
	// pow10 wraps past 10^19; anything that large overflows uint64 base
	// units anyway, so let the float path report it.
	if decimals > maxExactDecimals {
		return 0, false
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return 0, false
	}

	// Truncate fractional digits beyond the token's precision.
	if len(fracPart) > int(decimals) {
		fracPart = fracPart[:decimals]
	}
	// Pad to exactly `decimals` digits.
	fracPart += strings.Repeat("0", int(decimals)-len(fracPart))

	whole, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return 0, false
	}
	var frac uint64
	if fracPart != "" {
		frac, err = strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return 0, false
		}
	}

	pow := pow10(decimals)
	if whole > (math.MaxUint64-frac)/pow {
		return 0, false
	}
	return whole*pow + frac, true
}

// Unscale converts integer base units back to a human amount. This is the
// display direction only; use FormatAmount where float artifacts matter.
func Unscale(baseUnits uint64, decimals uint8) float64 {
	return float64(baseUnits) / math.Pow10(int(decimals))
}

// FormatAmount renders base units as an exact decimal string, with trailing
// fractional zeros trimmed. Used for response echoes where float artifacts
// would be misleading. Works on the digit string directly so it stays exact
// for any decimal count.
func FormatAmount(baseUnits uint64, decimals uint8) string {
	digits := strconv.FormatUint(baseUnits, 10)
	if decimals == 0 {
		return digits
	}
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-int(decimals)]
	frac := strings.TrimRight(digits[len(digits)-int(decimals):], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pow10(n uint8) uint64 {
	p := uint64(1)
	for i := uint8(0); i < n; i++ {
		p *= 10
	}
	return p
}
