package domain

import (
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// Granularity selects a time-bucket width for period snapshots.
type Granularity string

// Supported snapshot granularities.
const (
	GranularityDay    Granularity = "day"
	GranularityHour   Granularity = "hour"
	GranularityMinute Granularity = "minute"
)

// Seconds returns the period length in seconds.
func (g Granularity) Seconds() int64 {
	switch g {
	case GranularityHour:
		return 3600
	case GranularityMinute:
		return 60
	default:
		return 86400
	}
}

// PeriodIndex returns the period bucket for a unix timestamp.
func (g Granularity) PeriodIndex(timestamp int64) int64 {
	return timestamp / g.Seconds()
}

// PeriodStart returns the start timestamp of a period bucket.
func (g Granularity) PeriodStart(index int64) int64 {
	return index * g.Seconds()
}

// SentinelPeriodIndex is the reserved period index of the "last state"
// record kept per parent entity. Real day/hour/minute indexes of live
// events are always positive, so index 0 never collides.
const SentinelPeriodIndex = 0

// SnapshotID builds the composite key for a period snapshot.
func SnapshotID(parentID string, periodIndex int64) string {
	return parentID + "-" + strconv.FormatInt(periodIndex, 10)
}

// PoolSnapshot is a per-period rollup of one pool. Growth fields and
// unique counts are populated for day granularity only.
type PoolSnapshot struct {
	ID          string // poolID-periodIndex
	PoolID      string
	HookID      string
	Granularity Granularity
	PeriodIndex int64
	PeriodStart int64

	// OHLC of the token0 price over the period.
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal

	Liquidity    *big.Int
	SqrtPriceX96 *big.Int
	Token0Price  decimal.Decimal
	Token1Price  decimal.Decimal
	Tick         *int32
	TVLUSD       decimal.Decimal

	VolumeToken0 decimal.Decimal
	VolumeToken1 decimal.Decimal
	VolumeUSD    decimal.Decimal
	FeesUSD      decimal.Decimal
	TxCount      *big.Int

	UniqueUserCount              *big.Int
	UniqueLiquidityProviderCount *big.Int

	UniqueUserCountGrowth              *big.Int
	UniqueLiquidityProviderCountGrowth *big.Int
	TxCountGrowth                      *big.Int
	FeesUSDGrowth                      decimal.Decimal
	VolumeUSDGrowth                    decimal.Decimal
	TVLUSDGrowth                       decimal.Decimal
	APR                                decimal.Decimal
}

// NewPoolSnapshot returns a fresh snapshot opened at the given price.
func NewPoolSnapshot(pool *PoolAggregate, g Granularity, periodIndex int64) *PoolSnapshot {
	price := pool.Token0Price
	return &PoolSnapshot{
		ID:                                 SnapshotID(pool.ID, periodIndex),
		PoolID:                             pool.ID,
		HookID:                             pool.HookID,
		Granularity:                        g,
		PeriodIndex:                        periodIndex,
		PeriodStart:                        g.PeriodStart(periodIndex),
		Open:                               price,
		High:                               price,
		Low:                                price,
		Close:                              price,
		Liquidity:                          BigZero(),
		SqrtPriceX96:                       BigZero(),
		TxCount:                            BigZero(),
		UniqueUserCount:                    BigZero(),
		UniqueLiquidityProviderCount:       BigZero(),
		UniqueUserCountGrowth:              BigZero(),
		UniqueLiquidityProviderCountGrowth: BigZero(),
		TxCountGrowth:                      BigZero(),
	}
}

// TokenSnapshot is a per-period rollup of one token.
type TokenSnapshot struct {
	ID          string // tokenID-periodIndex
	TokenID     string
	Granularity Granularity
	PeriodIndex int64
	PeriodStart int64

	// OHLC of the token's USD price over the period.
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal

	Volume              decimal.Decimal
	VolumeUSD           decimal.Decimal
	UntrackedVolumeUSD  decimal.Decimal
	FeesUSD             decimal.Decimal
	PriceUSD            decimal.Decimal
	TotalValueLocked    decimal.Decimal
	TotalValueLockedUSD decimal.Decimal
}

// NewTokenSnapshot returns a fresh snapshot opened at the given USD price.
func NewTokenSnapshot(tokenID string, priceUSD decimal.Decimal, g Granularity, periodIndex int64) *TokenSnapshot {
	return &TokenSnapshot{
		ID:          SnapshotID(tokenID, periodIndex),
		TokenID:     tokenID,
		Granularity: g,
		PeriodIndex: periodIndex,
		PeriodStart: g.PeriodStart(periodIndex),
		Open:        priceUSD,
		High:        priceUSD,
		Low:         priceUSD,
		Close:       priceUSD,
	}
}

// HookDaySnapshot is a per-day rollup of one hook scope, with growth
// relative to the previous day (or the hook's sentinel record).
type HookDaySnapshot struct {
	ID          string // hookID-dayIndex
	HookID      string
	PeriodIndex int64
	PeriodStart int64

	PoolCount                    *big.Int
	VolumeUSD                    decimal.Decimal
	FeesUSD                      decimal.Decimal
	TradingVolumeUSD             decimal.Decimal
	UntrackedTradingVolumeUSD    decimal.Decimal
	TotalValueLockedETH          decimal.Decimal
	TotalValueLockedUSD          decimal.Decimal
	UniqueUserCount              *big.Int
	UniqueLiquidityProviderCount *big.Int

	PoolCountGrowth                    *big.Int
	TotalValueLockedUSDGrowth          decimal.Decimal
	TradingVolumeUSDGrowth             decimal.Decimal
	UntrackedTradingVolumeUSDGrowth    decimal.Decimal
	UniqueUserCountGrowth              *big.Int
	UniqueLiquidityProviderCountGrowth *big.Int
}

// NewHookDaySnapshot returns a zeroed hook day snapshot.
func NewHookDaySnapshot(hookID string, dayIndex int64) *HookDaySnapshot {
	return &HookDaySnapshot{
		ID:                                 SnapshotID(hookID, dayIndex),
		HookID:                             hookID,
		PeriodIndex:                        dayIndex,
		PeriodStart:                        GranularityDay.PeriodStart(dayIndex),
		PoolCount:                          BigZero(),
		UniqueUserCount:                    BigZero(),
		UniqueLiquidityProviderCount:       BigZero(),
		PoolCountGrowth:                    BigZero(),
		UniqueUserCountGrowth:              BigZero(),
		UniqueLiquidityProviderCountGrowth: BigZero(),
	}
}

// GlobalDaySnapshot is the per-day rollup of the global record.
type GlobalDaySnapshot struct {
	ID          string // dayIndex as string
	PeriodIndex int64
	PeriodStart int64

	VolumeETH          decimal.Decimal
	VolumeUSD          decimal.Decimal
	VolumeUSDUntracked decimal.Decimal
	FeesUSD            decimal.Decimal
	TVLUSD             decimal.Decimal
	TxCount            *big.Int
}

// NewGlobalDaySnapshot returns a zeroed global day snapshot.
func NewGlobalDaySnapshot(dayIndex int64) *GlobalDaySnapshot {
	return &GlobalDaySnapshot{
		ID:          strconv.FormatInt(dayIndex, 10),
		PeriodIndex: dayIndex,
		PeriodStart: GranularityDay.PeriodStart(dayIndex),
		TxCount:     BigZero(),
	}
}
