// Package oracle defines the price and amount discovery interface the
// aggregation engine consumes. Implementations live elsewhere; the
// engine only depends on this contract.
package oracle

import (
	"context"
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
)

// ErrUnavailable marks an infrastructure failure in price or amount
// lookup. Events failing with it must be retried by the ingestion layer,
// never skipped as business data.
var ErrUnavailable = errors.New("oracle unavailable")

// PricingConfig carries the chain-specific inputs of price discovery.
type PricingConfig struct {
	// ReferencePoolID is the stablecoin/wrapped-native pool used to
	// derive the native asset's USD price.
	ReferencePoolID string

	// StablecoinIsToken0 tells which leg of the reference pool is the
	// stablecoin.
	StablecoinIsToken0 bool

	// WrappedNativeAddress is the wrapped native asset token address.
	WrappedNativeAddress string

	// StablecoinAddresses lists known stable assets.
	StablecoinAddresses []string

	// WhitelistTokens are the allow-listed reference assets counted
	// toward tracked volume.
	WhitelistTokens []string

	// MinimumNativeLocked is the liquidity floor below which a pool is
	// ignored for price derivation.
	MinimumNativeLocked decimal.Decimal
}

// Oracle resolves token amounts and prices for the pipeline. A stalled
// lookup blocks only the current event and surfaces as ErrUnavailable.
type Oracle interface {
	// AmountsForLiquidity converts a signed liquidity delta over a tick
	// range into raw signed token amounts at the pool's current state.
	AmountsForLiquidity(ctx context.Context, tickLower, tickUpper, currentTick int32, liquidityDelta, sqrtPriceX96 *big.Int) (amount0, amount1 *big.Int, err error)

	// TokenPrices derives the pool's token0 and token1 prices from its
	// sqrt price.
	TokenPrices(ctx context.Context, sqrtPriceX96 *big.Int, token0, token1 *domain.TokenAggregate) (price0, price1 decimal.Decimal, err error)

	// NativePriceUSD returns the native asset's USD price observed on
	// the reference pool.
	NativePriceUSD(ctx context.Context, referencePoolID string, stablecoinIsToken0 bool) (decimal.Decimal, error)

	// DerivedNativePrice returns the token's price in the native asset.
	DerivedNativePrice(ctx context.Context, token *domain.TokenAggregate, cfg PricingConfig) (decimal.Decimal, error)

	// TrackedVolumeUSD values a trade counting only allow-listed legs:
	// both legs whitelisted sums both, one leg whitelisted doubles it,
	// none yields zero.
	TrackedVolumeUSD(ctx context.Context, amount0Abs decimal.Decimal, token0 *domain.TokenAggregate, amount1Abs decimal.Decimal, token1 *domain.TokenAggregate, whitelist []string) (decimal.Decimal, error)
}
