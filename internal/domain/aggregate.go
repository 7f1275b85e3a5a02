package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// GlobalAggregateID is the fixed key of the single global record.
const GlobalAggregateID = "global"

// ZeroHookID is the sentinel hook address for pools with no hook extension.
// It owns a regular HookAggregate so that hook-level sums cover every pool.
const ZeroHookID = "0x0000000000000000000000000000000000000000"

// GlobalAggregate is the single protocol-wide running total record.
type GlobalAggregate struct {
	TxCount             *big.Int // transactions across all pools
	TotalVolumeETH      decimal.Decimal
	TotalVolumeUSD      decimal.Decimal
	UntrackedVolumeUSD  decimal.Decimal
	TotalFeesETH        decimal.Decimal
	TotalFeesUSD        decimal.Decimal
	TotalValueLockedETH decimal.Decimal
	TotalValueLockedUSD decimal.Decimal
	HookUniqueUserCount *big.Int // unique addresses across all hook scopes

	// EthPriceUSD is the last observed native asset USD price. It is
	// read into each pipeline invocation and written back on swaps,
	// replacing the original's ambient price singleton.
	EthPriceUSD decimal.Decimal
}

// NewGlobalAggregate returns a zeroed global record.
func NewGlobalAggregate() *GlobalAggregate {
	return &GlobalAggregate{
		TxCount:             BigZero(),
		HookUniqueUserCount: BigZero(),
	}
}

// HookAggregate carries running totals for all pools under one hook
// extension address.
type HookAggregate struct {
	ID                           string   // hook address (hex)
	PoolCount                    *big.Int // pools created under this hook
	VolumeUSD                    decimal.Decimal
	FeesUSD                      decimal.Decimal
	TradingVolumeUSD             decimal.Decimal
	UntrackedTradingVolumeUSD    decimal.Decimal
	TotalValueLockedETH          decimal.Decimal
	TotalValueLockedUSD          decimal.Decimal
	UniqueUserCount              *big.Int
	UniqueLiquidityProviderCount *big.Int
	CreatedAtTimestamp           int64
}

// NewHookAggregate returns a zeroed hook record.
func NewHookAggregate(id string, ts int64) *HookAggregate {
	return &HookAggregate{
		ID:                           id,
		PoolCount:                    BigZero(),
		UniqueUserCount:              BigZero(),
		UniqueLiquidityProviderCount: BigZero(),
		CreatedAtTimestamp:           ts,
	}
}

// PoolAggregate is the running state of one pool.
type PoolAggregate struct {
	ID           string   // pool identifier (hex)
	Token0       string   // token0 address
	Token1       string   // token1 address
	HookID       string   // hook address, ZeroHookID when none
	FeeTier      int64    // fee in hundredths of a bip (ppm)
	Tick         *int32   // current tick, nil before first initialization
	SqrtPriceX96 *big.Int // current sqrt price
	Liquidity    *big.Int // currently active in-range liquidity

	Token0Price decimal.Decimal // token0 priced in token1
	Token1Price decimal.Decimal // token1 priced in token0

	TotalValueLockedToken0 decimal.Decimal
	TotalValueLockedToken1 decimal.Decimal
	TotalValueLockedETH    decimal.Decimal
	TotalValueLockedUSD    decimal.Decimal

	VolumeToken0       decimal.Decimal
	VolumeToken1       decimal.Decimal
	VolumeUSD          decimal.Decimal
	UntrackedVolumeUSD decimal.Decimal
	FeesUSD            decimal.Decimal

	TxCount                      *big.Int
	UniqueUserCount              *big.Int
	UniqueLiquidityProviderCount *big.Int

	CreatedAtTimestamp int64
}

// NewPoolAggregate returns a zeroed pool record.
func NewPoolAggregate(id, token0, token1, hookID string, feeTier int64, ts int64) *PoolAggregate {
	return &PoolAggregate{
		ID:                           id,
		Token0:                       token0,
		Token1:                       token1,
		HookID:                       hookID,
		FeeTier:                      feeTier,
		SqrtPriceX96:                 BigZero(),
		Liquidity:                    BigZero(),
		TxCount:                      BigZero(),
		UniqueUserCount:              BigZero(),
		UniqueLiquidityProviderCount: BigZero(),
		CreatedAtTimestamp:           ts,
	}
}

// TokenAggregate carries running totals for one token across all pools.
type TokenAggregate struct {
	ID                  string // token address (hex)
	Symbol              string
	Decimals            int32
	Volume              decimal.Decimal // token-denominated traded volume
	VolumeUSD           decimal.Decimal
	UntrackedVolumeUSD  decimal.Decimal
	FeesUSD             decimal.Decimal
	TotalValueLocked    decimal.Decimal // token-denominated locked amount
	TotalValueLockedUSD decimal.Decimal
	DerivedETH          decimal.Decimal // token priced in the native asset
	TxCount             *big.Int
}

// NewTokenAggregate returns a zeroed token record.
func NewTokenAggregate(id, symbol string, decimals int32) *TokenAggregate {
	return &TokenAggregate{
		ID:       id,
		Symbol:   symbol,
		Decimals: decimals,
		TxCount:  BigZero(),
	}
}
