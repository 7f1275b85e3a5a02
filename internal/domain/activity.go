package domain

import (
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// ActivityID builds the composite key for per-event activity records.
func ActivityID(txID string, logIndex int) string {
	return txID + "-" + strconv.Itoa(logIndex)
}

// TransactionRecord is the loaded-or-created metadata row for one
// transaction, keyed by its hash.
type TransactionRecord struct {
	ID          string // transaction hash
	BlockNumber int64
	Timestamp   int64
}

// SwapRecord is the immutable audit row for one swap event. Amounts carry
// the ledger sign convention (negated event deltas).
type SwapRecord struct {
	ID            string // txID-logIndex
	TransactionID string
	Timestamp     int64
	PoolID        string
	Token0        string
	Token1        string
	Sender        string
	Origin        string
	Amount0       decimal.Decimal
	Amount1       decimal.Decimal
	AmountUSD     decimal.Decimal
	Tick          int32
	SqrtPriceX96  *big.Int
	LogIndex      int
}

// ModifyLiquidityRecord is the immutable audit row for one liquidity
// modification event.
type ModifyLiquidityRecord struct {
	ID            string // txID-logIndex
	TransactionID string
	Timestamp     int64
	PoolID        string
	Token0        string
	Token1        string
	Sender        string
	Origin        string
	Amount        *big.Int // signed liquidity delta
	Amount0       decimal.Decimal
	Amount1       decimal.Decimal
	AmountUSD     decimal.Decimal
	TickLower     int32
	TickUpper     int32
	LogIndex      int
}
