package ethereum

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FromBaseUnits converts an on-chain integer balance to a human-readable
// decimal using the token's declared precision. The conversion is exact for
// any integer input; binary floating point is never involved, so 6-decimal
// stablecoins and 18-decimal native assets both round-trip.
func FromBaseUnits(raw *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -decimals)
}

// ToBaseUnits converts a human-readable decimal back to on-chain base units.
// Inverse of FromBaseUnits for values representable at the given precision.
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}
