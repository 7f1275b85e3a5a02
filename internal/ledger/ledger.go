// Package ledger maintains the nested running totals
// (Global → Hook → Pool → Token) and the subtract-old/add-new TVL
// reconciliation that keeps them consistent.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
)

// NegativeTVL reports a TVL value that went negative after
// reconciliation. Processing continues with the computed value; the
// report is surfaced as a data-integrity alarm.
type NegativeTVL struct {
	Level    string // "global", "hook" or "pool"
	EntityID string
	Value    decimal.Decimal
}

func (n NegativeTVL) String() string {
	return fmt.Sprintf("negative TVL at %s %s: %s", n.Level, n.EntityID, n.Value)
}

// SubtractPoolTVL removes a pool's old TVL from its hook and the global
// record before the pool's new TVL is computed. Returns alarms for any
// level that dipped below zero, which indicates the running sums have
// drifted from the per-pool values.
func SubtractPoolTVL(g *domain.GlobalAggregate, h *domain.HookAggregate, oldPoolTVLETH decimal.Decimal) []NegativeTVL {
	g.TotalValueLockedETH = g.TotalValueLockedETH.Sub(oldPoolTVLETH)
	h.TotalValueLockedETH = h.TotalValueLockedETH.Sub(oldPoolTVLETH)

	var alarms []NegativeTVL
	if g.TotalValueLockedETH.IsNegative() {
		alarms = append(alarms, NegativeTVL{Level: "global", EntityID: domain.GlobalAggregateID, Value: g.TotalValueLockedETH})
	}
	if h.TotalValueLockedETH.IsNegative() {
		alarms = append(alarms, NegativeTVL{Level: "hook", EntityID: h.ID, Value: h.TotalValueLockedETH})
	}
	return alarms
}

// AddPoolTVL re-adds a pool's freshly computed TVL to its hook and the
// global record and refreshes the USD legs at the current native asset
// price. Always the counterpart of a preceding SubtractPoolTVL call.
func AddPoolTVL(g *domain.GlobalAggregate, h *domain.HookAggregate, pool *domain.PoolAggregate, ethPriceUSD decimal.Decimal) []NegativeTVL {
	g.TotalValueLockedETH = g.TotalValueLockedETH.Add(pool.TotalValueLockedETH)
	g.TotalValueLockedUSD = g.TotalValueLockedETH.Mul(ethPriceUSD)

	h.TotalValueLockedETH = h.TotalValueLockedETH.Add(pool.TotalValueLockedETH)
	h.TotalValueLockedUSD = h.TotalValueLockedETH.Mul(ethPriceUSD)

	var alarms []NegativeTVL
	if pool.TotalValueLockedETH.IsNegative() {
		alarms = append(alarms, NegativeTVL{Level: "pool", EntityID: pool.ID, Value: pool.TotalValueLockedETH})
	}
	if g.TotalValueLockedETH.IsNegative() {
		alarms = append(alarms, NegativeTVL{Level: "global", EntityID: domain.GlobalAggregateID, Value: g.TotalValueLockedETH})
	}
	if h.TotalValueLockedETH.IsNegative() {
		alarms = append(alarms, NegativeTVL{Level: "hook", EntityID: h.ID, Value: h.TotalValueLockedETH})
	}
	return alarms
}

// RecomputePoolTVL derives the pool's ETH and USD TVL legs from its token
// balances and the tokens' current derived prices.
func RecomputePoolTVL(pool *domain.PoolAggregate, token0, token1 *domain.TokenAggregate, ethPriceUSD decimal.Decimal) {
	pool.TotalValueLockedETH = pool.TotalValueLockedToken0.Mul(token0.DerivedETH).
		Add(pool.TotalValueLockedToken1.Mul(token1.DerivedETH))
	pool.TotalValueLockedUSD = pool.TotalValueLockedETH.Mul(ethPriceUSD)
}

// RecomputeTokenTVLUSD refreshes a token's USD TVL leg from its locked
// amount and derived price.
func RecomputeTokenTVLUSD(token *domain.TokenAggregate, ethPriceUSD decimal.Decimal) {
	token.TotalValueLockedUSD = token.TotalValueLocked.Mul(token.DerivedETH).Mul(ethPriceUSD)
}

// SwapTotals is the one-event volume and fee contribution of a swap.
// All values are non-negative; volume and fee metrics only ever grow.
type SwapTotals struct {
	Amount0Abs   decimal.Decimal
	Amount1Abs   decimal.Decimal
	TrackedETH   decimal.Decimal
	TrackedUSD   decimal.Decimal
	UntrackedUSD decimal.Decimal
	FeesETH      decimal.Decimal
	FeesUSD      decimal.Decimal
}

// AccumulateSwapTotals folds one swap's totals into every level.
// TVL is not touched here; see SubtractPoolTVL/AddPoolTVL.
func AccumulateSwapTotals(g *domain.GlobalAggregate, h *domain.HookAggregate, pool *domain.PoolAggregate, token0, token1 *domain.TokenAggregate, t SwapTotals) {
	g.TxCount = domain.AddInt(g.TxCount, 1)
	g.TotalVolumeETH = g.TotalVolumeETH.Add(t.TrackedETH)
	g.TotalVolumeUSD = g.TotalVolumeUSD.Add(t.TrackedUSD)
	g.UntrackedVolumeUSD = g.UntrackedVolumeUSD.Add(t.UntrackedUSD)
	g.TotalFeesETH = g.TotalFeesETH.Add(t.FeesETH)
	g.TotalFeesUSD = g.TotalFeesUSD.Add(t.FeesUSD)

	h.VolumeUSD = h.VolumeUSD.Add(t.TrackedUSD)
	h.FeesUSD = h.FeesUSD.Add(t.FeesUSD)
	h.TradingVolumeUSD = h.TradingVolumeUSD.Add(t.TrackedUSD)
	h.UntrackedTradingVolumeUSD = h.UntrackedTradingVolumeUSD.Add(t.UntrackedUSD)

	pool.VolumeToken0 = pool.VolumeToken0.Add(t.Amount0Abs)
	pool.VolumeToken1 = pool.VolumeToken1.Add(t.Amount1Abs)
	pool.VolumeUSD = pool.VolumeUSD.Add(t.TrackedUSD)
	pool.UntrackedVolumeUSD = pool.UntrackedVolumeUSD.Add(t.UntrackedUSD)
	pool.FeesUSD = pool.FeesUSD.Add(t.FeesUSD)
	pool.TxCount = domain.AddInt(pool.TxCount, 1)

	accumulateTokenSwapTotals(token0, t.Amount0Abs, t)
	accumulateTokenSwapTotals(token1, t.Amount1Abs, t)
}

func accumulateTokenSwapTotals(token *domain.TokenAggregate, amountAbs decimal.Decimal, t SwapTotals) {
	token.Volume = token.Volume.Add(amountAbs)
	token.VolumeUSD = token.VolumeUSD.Add(t.TrackedUSD)
	token.UntrackedVolumeUSD = token.UntrackedVolumeUSD.Add(t.UntrackedUSD)
	token.FeesUSD = token.FeesUSD.Add(t.FeesUSD)
	token.TxCount = domain.AddInt(token.TxCount, 1)
}
