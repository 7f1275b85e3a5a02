// Package static provides a deterministic Oracle implementation for
// tests and fixture runs. Prices are fixed at construction; liquidity
// math uses a simplified proportional split.
package static

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/oracle"
)

// Oracle is a fixed-price oracle.
type Oracle struct {
	// EthPriceUSD is returned by NativePriceUSD.
	EthPriceUSD decimal.Decimal

	// DerivedETHByToken maps token address to its native-asset price.
	// Tokens not present derive to zero, mirroring tokens that fail the
	// minimum-liquidity threshold.
	DerivedETHByToken map[string]decimal.Decimal

	// Fail forces every lookup to return oracle.ErrUnavailable.
	Fail bool
}

// Compile-time interface check.
var _ oracle.Oracle = (*Oracle)(nil)

// New creates a static oracle with the given native asset USD price.
func New(ethPriceUSD decimal.Decimal) *Oracle {
	return &Oracle{
		EthPriceUSD:       ethPriceUSD,
		DerivedETHByToken: make(map[string]decimal.Decimal),
	}
}

// SetDerivedETH fixes a token's native-asset price.
func (o *Oracle) SetDerivedETH(token string, price decimal.Decimal) {
	o.DerivedETHByToken[token] = price
}

// AmountsForLiquidity splits the liquidity delta evenly across both legs
// when the range straddles the current tick, and puts it entirely in
// token0 above the range or token1 below it. Signs follow the delta.
func (o *Oracle) AmountsForLiquidity(_ context.Context, tickLower, tickUpper, currentTick int32, liquidityDelta, _ *big.Int) (*big.Int, *big.Int, error) {
	if o.Fail {
		return nil, nil, oracle.ErrUnavailable
	}
	half := new(big.Int).Quo(liquidityDelta, big.NewInt(2))
	switch {
	case currentTick < tickLower:
		return domain.CloneBig(liquidityDelta), domain.BigZero(), nil
	case currentTick >= tickUpper:
		return domain.BigZero(), domain.CloneBig(liquidityDelta), nil
	default:
		return half, new(big.Int).Sub(liquidityDelta, half), nil
	}
}

// TokenPrices derives both token prices from the fixed native prices.
func (o *Oracle) TokenPrices(_ context.Context, _ *big.Int, token0, token1 *domain.TokenAggregate) (decimal.Decimal, decimal.Decimal, error) {
	if o.Fail {
		return decimal.Zero, decimal.Zero, oracle.ErrUnavailable
	}
	d0 := o.DerivedETHByToken[token0.ID]
	d1 := o.DerivedETHByToken[token1.ID]
	return domain.SafeDiv(d0, d1), domain.SafeDiv(d1, d0), nil
}

// NativePriceUSD returns the fixed native asset USD price.
func (o *Oracle) NativePriceUSD(_ context.Context, _ string, _ bool) (decimal.Decimal, error) {
	if o.Fail {
		return decimal.Zero, oracle.ErrUnavailable
	}
	return o.EthPriceUSD, nil
}

// DerivedNativePrice returns the token's fixed native-asset price.
func (o *Oracle) DerivedNativePrice(_ context.Context, token *domain.TokenAggregate, _ oracle.PricingConfig) (decimal.Decimal, error) {
	if o.Fail {
		return decimal.Zero, oracle.ErrUnavailable
	}
	return o.DerivedETHByToken[token.ID], nil
}

// TrackedVolumeUSD applies the allow-list rule with the fixed prices.
func (o *Oracle) TrackedVolumeUSD(_ context.Context, amount0Abs decimal.Decimal, token0 *domain.TokenAggregate, amount1Abs decimal.Decimal, token1 *domain.TokenAggregate, whitelist []string) (decimal.Decimal, error) {
	if o.Fail {
		return decimal.Zero, oracle.ErrUnavailable
	}
	usd0 := amount0Abs.Mul(o.DerivedETHByToken[token0.ID]).Mul(o.EthPriceUSD)
	usd1 := amount1Abs.Mul(o.DerivedETHByToken[token1.ID]).Mul(o.EthPriceUSD)
	w0 := listed(whitelist, token0.ID)
	w1 := listed(whitelist, token1.ID)
	switch {
	case w0 && w1:
		return usd0.Add(usd1), nil
	case w0:
		return usd0.Mul(decimal.NewFromInt(2)), nil
	case w1:
		return usd1.Mul(decimal.NewFromInt(2)), nil
	default:
		return decimal.Zero, nil
	}
}

func listed(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
