package domain

import "math/big"

// EventCoords pins an event to its position in the canonical chain order.
// Events are totally ordered by (BlockNumber, TxIndex, LogIndex).
type EventCoords struct {
	BlockNumber int64  // block height
	TxIndex     int    // transaction index within the block
	LogIndex    int    // log index within the transaction
	TxHash      string // transaction hash (hex)
}

// ModifyLiquidityEvent is a decoded liquidity modification from the pool
// manager. LiquidityDelta is signed: positive adds, negative removes.
type ModifyLiquidityEvent struct {
	PoolID         string   // pool identifier (hex)
	Sender         string   // event sender address (hex)
	Origin         string   // transaction origin address (hex)
	LiquidityDelta *big.Int // signed liquidity change
	TickLower      int32    // lower tick bound of the position
	TickUpper      int32    // upper tick bound of the position
	Timestamp      int64    // block timestamp (unix seconds)
	Coords         EventCoords
}

// SwapEvent is a decoded swap from the pool manager. Amount0/Amount1 carry
// the pool manager's sign convention: a positive delta means tokens left
// the pool. Ledger amounts are the negation.
type SwapEvent struct {
	PoolID       string   // pool identifier (hex)
	Sender       string   // event sender address (hex)
	Origin       string   // transaction origin address (hex)
	Amount0      *big.Int // raw signed token0 delta
	Amount1      *big.Int // raw signed token1 delta
	Liquidity    *big.Int // pool active liquidity after the swap
	Tick         int32    // pool tick after the swap
	SqrtPriceX96 *big.Int // pool sqrt price after the swap
	Timestamp    int64    // block timestamp (unix seconds)
	Coords       EventCoords
}

// EventKind discriminates the event union.
type EventKind string

const (
	EventKindSwap            EventKind = "swap"
	EventKindModifyLiquidity EventKind = "modify_liquidity"
)

// Event is the tagged union carried through ingestion. Exactly one of
// Swap or ModifyLiquidity is non-nil, selected by Kind.
type Event struct {
	Kind            EventKind
	Swap            *SwapEvent
	ModifyLiquidity *ModifyLiquidityEvent
}

// Coords returns the chain coordinates of whichever variant is set.
func (e *Event) Coords() EventCoords {
	if e.Kind == EventKindSwap {
		return e.Swap.Coords
	}
	return e.ModifyLiquidity.Coords
}

// Timestamp returns the block timestamp of whichever variant is set.
func (e *Event) Timestamp() int64 {
	if e.Kind == EventKindSwap {
		return e.Swap.Timestamp
	}
	return e.ModifyLiquidity.Timestamp
}
