package transfer

import (
	"fmt"
	"math/big"
	"strings"
)

// TokenDecimals is USDC's precision on both supported networks.
const TokenDecimals = 6

var baseUnitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)

// ToBaseUnits converts a decimal token amount string to integer base
// units. Digits beyond the token's precision are truncated, never
// rounded up, so a user is never charged more than they typed.
func ToBaseUnits(amount string) (uint64, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("amount must be an unsigned decimal: %q", amount)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return 0, fmt.Errorf("malformed amount: %q", amount)
		}
	}
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("malformed amount: %q", amount)
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, part := range []string{intPart, fracPart} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("malformed amount: %q", amount)
			}
		}
	}
	// 13 integer digits keeps the result well inside uint64 range.
	if len(intPart) > 13 {
		return 0, fmt.Errorf("amount too large: %q", amount)
	}

	// Truncate the fraction at the token's precision.
	if len(fracPart) > TokenDecimals {
		fracPart = fracPart[:TokenDecimals]
	}
	fracPart += strings.Repeat("0", TokenDecimals-len(fracPart))

	var units uint64
	if _, err := fmt.Sscanf(intPart+fracPart, "%d", &units); err != nil {
		return 0, fmt.Errorf("malformed amount: %q", amount)
	}
	return units, nil
}

// FromBaseUnits renders base units as a canonical decimal string with
// no trailing fraction zeros.
func FromBaseUnits(units uint64) string {
	return FormatBaseUnits(new(big.Int).SetUint64(units))
}

// FormatBaseUnits renders an arbitrary-precision base-unit quantity as
// a canonical decimal string.
func FormatBaseUnits(units *big.Int) string {
	quo, rem := new(big.Int).QuoRem(units, baseUnitScale, new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}
	frac := fmt.Sprintf("%06d", rem)
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}
