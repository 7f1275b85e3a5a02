package rollup

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// daysPerYear annualizes a one-day fee yield.
var daysPerYear = decimal.NewFromInt(365)

// PoolRollup updates (or lazily creates) the pool's snapshot for the
// period containing ts. OHLC tracks the token0 price; open is set only at
// creation. Day granularity additionally copies the unique counters,
// computes growth against the previous day (sentinel fallback) and
// refreshes the pool's sentinel record.
func (m *Manager) PoolRollup(ctx context.Context, ws *storage.WorkingSet, pool *domain.PoolAggregate, g domain.Granularity, ts int64) (*domain.PoolSnapshot, error) {
	idx := g.PeriodIndex(ts)
	id := domain.SnapshotID(pool.ID, idx)

	snap := ws.PoolSnapshot(g, id)
	if snap == nil {
		loaded, err := m.store.GetPoolSnapshot(ctx, g, id)
		switch {
		case err == nil:
			snap = loaded
		case errors.Is(err, storage.ErrNotFound):
			snap = domain.NewPoolSnapshot(pool, g, idx)
		default:
			return nil, fmt.Errorf("get pool snapshot %s/%s: %w", g, id, err)
		}
		ws.PutPoolSnapshot(snap)
	}

	price := pool.Token0Price
	if price.GreaterThan(snap.High) {
		snap.High = price
	}
	if price.LessThan(snap.Low) {
		snap.Low = price
	}
	snap.Close = price

	snap.Liquidity = domain.CloneBig(pool.Liquidity)
	snap.SqrtPriceX96 = domain.CloneBig(pool.SqrtPriceX96)
	snap.Token0Price = pool.Token0Price
	snap.Token1Price = pool.Token1Price
	snap.Tick = pool.Tick
	snap.TVLUSD = pool.TotalValueLockedUSD
	snap.TxCount = domain.AddInt(snap.TxCount, 1)

	if g != domain.GranularityDay {
		return snap, nil
	}

	// Day snapshots hold the cumulative running totals so that growth is
	// a plain subtraction against the previous day's closing values.
	snap.UniqueUserCount = domain.CloneBig(pool.UniqueUserCount)
	snap.UniqueLiquidityProviderCount = domain.CloneBig(pool.UniqueLiquidityProviderCount)
	snap.FeesUSD = pool.FeesUSD
	snap.VolumeUSD = pool.VolumeUSD

	baseline, err := m.poolBaseline(ctx, ws, pool.ID, idx)
	if err != nil {
		return nil, err
	}
	if baseline != nil {
		snap.UniqueUserCountGrowth = domain.SubBig(pool.UniqueUserCount, baseline.UniqueUserCount)
		snap.UniqueLiquidityProviderCountGrowth = domain.SubBig(pool.UniqueLiquidityProviderCount, baseline.UniqueLiquidityProviderCount)
		snap.TxCountGrowth = domain.SubBig(snap.TxCount, baseline.TxCount)
		snap.FeesUSDGrowth = snap.FeesUSD.Sub(baseline.FeesUSD)
		snap.VolumeUSDGrowth = snap.VolumeUSD.Sub(baseline.VolumeUSD)
		snap.TVLUSDGrowth = snap.TVLUSD.Sub(baseline.TVLUSD)
	} else {
		snap.UniqueUserCountGrowth = domain.BigZero()
		snap.UniqueLiquidityProviderCountGrowth = domain.BigZero()
		snap.TxCountGrowth = domain.BigZero()
		snap.FeesUSDGrowth = decimal.Zero
		snap.VolumeUSDGrowth = decimal.Zero
		snap.TVLUSDGrowth = decimal.Zero
	}

	if snap.TVLUSD.IsPositive() {
		snap.APR = snap.FeesUSDGrowth.Mul(daysPerYear).Div(snap.TVLUSD)
	} else {
		snap.APR = decimal.Zero
	}

	m.refreshPoolSentinel(ws, pool, snap)
	return snap, nil
}

// poolBaseline resolves the growth baseline for a day snapshot: the
// previous day's snapshot when it exists, otherwise the pool's sentinel
// record, otherwise nil.
func (m *Manager) poolBaseline(ctx context.Context, ws *storage.WorkingSet, poolID string, dayIdx int64) (*domain.PoolSnapshot, error) {
	prevID := domain.SnapshotID(poolID, dayIdx-1)
	prev, err := m.store.GetPoolSnapshot(ctx, domain.GranularityDay, prevID)
	if err == nil {
		return prev, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get previous pool day snapshot %s: %w", prevID, err)
	}

	sentID := domain.SnapshotID(poolID, domain.SentinelPeriodIndex)
	if sent := ws.PoolSnapshot(domain.GranularityDay, sentID); sent != nil {
		return sent, nil
	}
	sent, err := m.store.GetPoolSnapshot(ctx, domain.GranularityDay, sentID)
	if err == nil {
		return sent, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("get pool sentinel %s: %w", sentID, err)
}

// refreshPoolSentinel overwrites the pool's sentinel record with the just
// computed snapshot values so the next period, however far away, can
// compute growth without scanning history. Growth fields are zeroed: the
// sentinel carries state, not deltas.
func (m *Manager) refreshPoolSentinel(ws *storage.WorkingSet, pool *domain.PoolAggregate, snap *domain.PoolSnapshot) {
	sent := *snap
	sent.ID = domain.SnapshotID(pool.ID, domain.SentinelPeriodIndex)
	sent.PeriodIndex = domain.SentinelPeriodIndex
	sent.PeriodStart = 0
	sent.UniqueUserCountGrowth = domain.BigZero()
	sent.UniqueLiquidityProviderCountGrowth = domain.BigZero()
	sent.TxCountGrowth = domain.BigZero()
	sent.FeesUSDGrowth = decimal.Zero
	sent.VolumeUSDGrowth = decimal.Zero
	sent.TVLUSDGrowth = decimal.Zero
	ws.PutPoolSnapshot(&sent)
}
