// Package display converts raw on-chain values into strings for humans.
// Nothing here does arithmetic for the chain; amounts stay *big.Int until
// they reach this package.
package display

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimals is the fixed-point scale of the ICO token.
const Decimals = 18

// ClaimPerNFT is the number of whole tokens granted per claimable NFT.
const ClaimPerNFT = 10

var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// ErrInvalidAmount is returned when a unit string cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// UnitAmount is a raw amount scaled by 10^Decimals, kept as an exact
// decimal string. It is never fed back into chain arithmetic.
type UnitAmount string

// String implements fmt.Stringer.
func (u UnitAmount) String() string { return string(u) }

// ToUnitAmount scales raw by 10^18 without any floating point. Trailing
// fractional zeros are trimmed: 1e18 -> "1", 1 -> "0.000000000000000001".
// A nil raw formats as "0".
func ToUnitAmount(raw *big.Int) UnitAmount {
	if raw == nil || raw.Sign() == 0 {
		return "0"
	}
	abs := new(big.Int).Abs(raw)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	sign := ""
	if raw.Sign() < 0 {
		sign = "-"
	}
	if frac.Sign() == 0 {
		return UnitAmount(sign + whole.String())
	}
	fs := fmt.Sprintf("%0*s", Decimals, frac.String())
	fs = strings.TrimRight(fs, "0")
	return UnitAmount(sign + whole.String() + "." + fs)
}

// ParseUnitAmount is the inverse of ToUnitAmount. More than 18 fractional
// digits is an error rather than a silent truncation.
func ParseUnitAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, Decimals)
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	digits := whole + frac + strings.Repeat("0", Decimals-len(frac))
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

// ToRaw converts a whole-token count into raw units.
func ToRaw(tokens *big.Int) *big.Int {
	return new(big.Int).Mul(tokens, scale)
}

// ClaimableTokens returns the raw amount a claim would grant for nfts.
func ClaimableTokens(nfts *big.Int) *big.Int {
	if nfts == nil {
		return new(big.Int)
	}
	return ToRaw(new(big.Int).Mul(nfts, big.NewInt(ClaimPerNFT)))
}

// TruncateAddress shortens an address to its first 5 and last 4 characters:
// 0x1234567890abcdef1234567890abcdef12345678 -> 0x123...5678.
// Inputs shorter than 9 characters are a caller bug and panic.
func TruncateAddress(addr string) string {
	if len(addr) < 9 {
		panic(fmt.Sprintf("display: address %q is too short to truncate", addr))
	}
	return addr[:5] + "..." + addr[len(addr)-4:]
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
