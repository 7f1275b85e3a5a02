// Package poolstate implements the Oracle against live pool state in
// the entity store. Prices derive from the reference pool's sqrt price
// and each token's last known native-asset price.
package poolstate

import (
	"context"
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/oracle"
	"dex-hook-stats/internal/storage"
)

// q192 is 2^192, the divisor turning a squared X96 sqrt price into a
// token1/token0 ratio.
var q192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

// Oracle derives prices from stored aggregates.
type Oracle struct {
	store storage.EntityStore
	cfg   oracle.PricingConfig
}

// New creates a pool-state oracle.
func New(store storage.EntityStore, cfg oracle.PricingConfig) *Oracle {
	return &Oracle{store: store, cfg: cfg}
}

// Compile-time interface check.
var _ oracle.Oracle = (*Oracle)(nil)

// sqrtRatioAtTick returns sqrt(1.0001^tick). Tick magnitudes are bounded
// by the pool design, so the float intermediate stays well in range.
func sqrtRatioAtTick(tick int32) decimal.Decimal {
	return decimal.NewFromFloat(math.Pow(1.0001, float64(tick)/2))
}

// AmountsForLiquidity converts a signed liquidity delta over a tick
// range into raw signed token amounts at the pool's current state.
func (o *Oracle) AmountsForLiquidity(_ context.Context, tickLower, tickUpper, currentTick int32, liquidityDelta, sqrtPriceX96 *big.Int) (*big.Int, *big.Int, error) {
	sqrtLower := sqrtRatioAtTick(tickLower)
	sqrtUpper := sqrtRatioAtTick(tickUpper)
	liquidity := decimal.NewFromBigInt(liquidityDelta, 0)

	var amount0, amount1 decimal.Decimal
	switch {
	case currentTick < tickLower:
		amount0 = liquidity.Mul(sqrtUpper.Sub(sqrtLower)).Div(sqrtLower.Mul(sqrtUpper))
	case currentTick >= tickUpper:
		amount1 = liquidity.Mul(sqrtUpper.Sub(sqrtLower))
	default:
		sqrtCurrent := decimal.NewFromBigInt(sqrtPriceX96, 0).
			Div(decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 96), 0))
		if sqrtCurrent.IsZero() {
			sqrtCurrent = sqrtLower
		}
		amount0 = liquidity.Mul(sqrtUpper.Sub(sqrtCurrent)).Div(sqrtCurrent.Mul(sqrtUpper))
		amount1 = liquidity.Mul(sqrtCurrent.Sub(sqrtLower))
	}

	return amount0.BigInt(), amount1.BigInt(), nil
}

// TokenPrices derives token0/token1 prices from the pool's sqrt price,
// adjusted for the tokens' decimal scales.
func (o *Oracle) TokenPrices(_ context.Context, sqrtPriceX96 *big.Int, token0, token1 *domain.TokenAggregate) (decimal.Decimal, decimal.Decimal, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return decimal.Zero, decimal.Zero, nil
	}
	sqrt := decimal.NewFromBigInt(sqrtPriceX96, 0)
	ratio := sqrt.Mul(sqrt).Div(q192)

	scale := decimal.New(1, token0.Decimals-token1.Decimals)
	price1 := ratio.Mul(scale)
	price0 := domain.SafeDiv(decimal.New(1, 0), price1)
	return price0, price1, nil
}

// NativePriceUSD reads the native asset's USD price off the reference
// stablecoin pool. A missing reference pool prices to zero.
func (o *Oracle) NativePriceUSD(ctx context.Context, referencePoolID string, stablecoinIsToken0 bool) (decimal.Decimal, error) {
	pool, err := o.store.GetPool(ctx, referencePoolID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, oracle.ErrUnavailable
	}
	if stablecoinIsToken0 {
		return pool.Token0Price, nil
	}
	return pool.Token1Price, nil
}

// DerivedNativePrice returns the token's price in the native asset. The
// wrapped native asset is one by definition; stablecoins invert the
// native USD price; everything else keeps its last derived price,
// zeroed when the token's locked value falls under the floor.
func (o *Oracle) DerivedNativePrice(ctx context.Context, token *domain.TokenAggregate, cfg oracle.PricingConfig) (decimal.Decimal, error) {
	if token.ID == cfg.WrappedNativeAddress {
		return decimal.New(1, 0), nil
	}
	for _, stable := range cfg.StablecoinAddresses {
		if token.ID == stable {
			native, err := o.NativePriceUSD(ctx, cfg.ReferencePoolID, cfg.StablecoinIsToken0)
			if err != nil {
				return decimal.Zero, err
			}
			return domain.SafeDiv(decimal.New(1, 0), native), nil
		}
	}

	if !cfg.MinimumNativeLocked.IsZero() {
		lockedNative := token.TotalValueLocked.Mul(token.DerivedETH)
		if lockedNative.LessThan(cfg.MinimumNativeLocked) {
			return decimal.Zero, nil
		}
	}
	return token.DerivedETH, nil
}

// TrackedVolumeUSD values a trade counting only allow-listed legs.
func (o *Oracle) TrackedVolumeUSD(ctx context.Context, amount0Abs decimal.Decimal, token0 *domain.TokenAggregate, amount1Abs decimal.Decimal, token1 *domain.TokenAggregate, whitelist []string) (decimal.Decimal, error) {
	native, err := o.NativePriceUSD(ctx, o.cfg.ReferencePoolID, o.cfg.StablecoinIsToken0)
	if err != nil {
		return decimal.Zero, err
	}
	usd0 := amount0Abs.Mul(token0.DerivedETH).Mul(native)
	usd1 := amount1Abs.Mul(token1.DerivedETH).Mul(native)
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
