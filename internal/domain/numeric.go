package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Numeric conventions: monetary, price and token amounts are
// decimal.Decimal; on-chain integer quantities (liquidity, sqrt price) and
// counters are *big.Int. big.Int values are never mutated in place so that
// shallow entity copies stay independent; every update allocates.

// BigZero returns a fresh zero big integer.
func BigZero() *big.Int {
	return new(big.Int)
}

// AddBig returns x + y without mutating either operand.
func AddBig(x, y *big.Int) *big.Int {
	return new(big.Int).Add(x, y)
}

// SubBig returns x - y without mutating either operand.
func SubBig(x, y *big.Int) *big.Int {
	return new(big.Int).Sub(x, y)
}

// AddInt returns x + n without mutating x.
func AddInt(x *big.Int, n int64) *big.Int {
	return new(big.Int).Add(x, big.NewInt(n))
}

// CloneBig returns an independent copy of x. Nil stays nil.
func CloneBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// IsZeroBig reports whether x is nil or zero.
func IsZeroBig(x *big.Int) bool {
	return x == nil || x.Sign() == 0
}

// ConvertRawToDecimal scales a raw on-chain amount by the token's decimals.
func ConvertRawToDecimal(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// SafeDiv returns x / y, or zero when y is zero.
func SafeDiv(x, y decimal.Decimal) decimal.Decimal {
	if y.IsZero() {
		return decimal.Zero
	}
	return x.Div(y)
}
