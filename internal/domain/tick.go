package domain

import (
	"math/big"
	"strconv"
)

// TickID builds the composite key for a boundary tick record.
func TickID(poolID string, tickIdx int32) string {
	return poolID + "#" + strconv.FormatInt(int64(tickIdx), 10)
}

// Tick is a boundary tick's accumulated liquidity. Gross liquidity grows
// on every position referencing the tick; net liquidity is added at the
// lower boundary and subtracted at the upper boundary.
type Tick struct {
	ID                 string // poolID#tickIdx
	PoolID             string
	TickIdx            int32
	LiquidityGross     *big.Int
	LiquidityNet       *big.Int
	CreatedAtTimestamp int64
	CreatedAtBlock     int64
}

// NewTick returns a zeroed tick record.
func NewTick(poolID string, tickIdx int32, ts, block int64) *Tick {
	return &Tick{
		ID:                 TickID(poolID, tickIdx),
		PoolID:             poolID,
		TickIdx:            tickIdx,
		LiquidityGross:     BigZero(),
		LiquidityNet:       BigZero(),
		CreatedAtTimestamp: ts,
		CreatedAtBlock:     block,
	}
}
