package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/observability"
	"dex-hook-stats/internal/storage"
)

// Archive implements storage.SnapshotArchive using ClickHouse batch
// inserts. Snapshots land in ReplacingMergeTree tables so repeated
// archives of the same period collapse to the latest version; activity
// rows are append-only.
type Archive struct {
	conn    *Conn
	metrics *observability.Metrics
}

// NewArchive creates a new Archive.
func NewArchive(conn *Conn, metrics *observability.Metrics) *Archive {
	return &Archive{conn: conn, metrics: metrics}
}

// Compile-time interface check.
var _ storage.SnapshotArchive = (*Archive)(nil)

// Archive appends the working set's snapshots and activity records.
func (a *Archive) Archive(ctx context.Context, ws *storage.WorkingSet) error {
	if err := a.archivePoolSnapshots(ctx, ws.PoolSnapshots); err != nil {
		return err
	}
	if err := a.archiveTokenSnapshots(ctx, ws.TokenSnapshots); err != nil {
		return err
	}
	if err := a.archiveHookDaySnapshots(ctx, ws.HookDaySnapshots); err != nil {
		return err
	}
	if err := a.archiveGlobalDaySnapshots(ctx, ws.GlobalDaySnapshots); err != nil {
		return err
	}
	if err := a.archiveSwaps(ctx, ws.Swaps); err != nil {
		return err
	}
	if err := a.archiveModifyLiquidities(ctx, ws.ModifyLiquidities); err != nil {
		return err
	}
	return nil
}

func (a *Archive) archivePoolSnapshots(ctx context.Context, snaps map[string]*domain.PoolSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO pool_snapshots (
			granularity, id, pool_id, hook_id, period_index, period_start,
			open, high, low, close, token0_price, token1_price, tvl_usd,
			volume_token0, volume_token1, volume_usd, fees_usd, tx_count,
			unique_user_count, unique_lp_count,
			volume_usd_growth, fees_usd_growth, tvl_usd_growth, apr
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare pool snapshot batch: %w", err)
	}

	for _, ps := range snaps {
		err = batch.Append(
			string(ps.Granularity), ps.ID, ps.PoolID, ps.HookID,
			ps.PeriodIndex, ps.PeriodStart,
			ps.Open.InexactFloat64(), ps.High.InexactFloat64(),
			ps.Low.InexactFloat64(), ps.Close.InexactFloat64(),
			ps.Token0Price.InexactFloat64(), ps.Token1Price.InexactFloat64(),
			ps.TVLUSD.InexactFloat64(),
			ps.VolumeToken0.InexactFloat64(), ps.VolumeToken1.InexactFloat64(),
			ps.VolumeUSD.InexactFloat64(), ps.FeesUSD.InexactFloat64(),
			bigU64(ps.TxCount),
			bigU64(ps.UniqueUserCount), bigU64(ps.UniqueLiquidityProviderCount),
			ps.VolumeUSDGrowth.InexactFloat64(), ps.FeesUSDGrowth.InexactFloat64(),
			ps.TVLUSDGrowth.InexactFloat64(), ps.APR.InexactFloat64(),
		)
		if err != nil {
			return fmt.Errorf("append pool snapshot: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send pool snapshot batch: %w", err)
	}
	a.recordArchived(len(snaps))
	return nil
}

func (a *Archive) archiveTokenSnapshots(ctx context.Context, snaps map[string]*domain.TokenSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO token_snapshots (
			granularity, id, token_id, period_index, period_start,
			open, high, low, close, volume, volume_usd, untracked_volume_usd,
			fees_usd, price_usd, total_value_locked, total_value_locked_usd
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare token snapshot batch: %w", err)
	}

	for _, ts := range snaps {
		err = batch.Append(
			string(ts.Granularity), ts.ID, ts.TokenID, ts.PeriodIndex, ts.PeriodStart,
			ts.Open.InexactFloat64(), ts.High.InexactFloat64(),
			ts.Low.InexactFloat64(), ts.Close.InexactFloat64(),
			ts.Volume.InexactFloat64(), ts.VolumeUSD.InexactFloat64(),
			ts.UntrackedVolumeUSD.InexactFloat64(), ts.FeesUSD.InexactFloat64(),
			ts.PriceUSD.InexactFloat64(), ts.TotalValueLocked.InexactFloat64(),
			ts.TotalValueLockedUSD.InexactFloat64(),
		)
		if err != nil {
			return fmt.Errorf("append token snapshot: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send token snapshot batch: %w", err)
	}
	a.recordArchived(len(snaps))
	return nil
}

func (a *Archive) archiveHookDaySnapshots(ctx context.Context, snaps map[string]*domain.HookDaySnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO hook_day_snapshots (
			id, hook_id, period_index, period_start, pool_count, volume_usd,
			fees_usd, trading_volume_usd, untracked_trading_volume_usd,
			tvl_eth, tvl_usd, unique_user_count, unique_lp_count,
			pool_count_growth, tvl_usd_growth, trading_volume_usd_growth,
			untracked_trading_volume_usd_growth, unique_user_count_growth,
			unique_lp_count_growth
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare hook day snapshot batch: %w", err)
	}

	for _, hs := range snaps {
		err = batch.Append(
			hs.ID, hs.HookID, hs.PeriodIndex, hs.PeriodStart,
			bigU64(hs.PoolCount),
			hs.VolumeUSD.InexactFloat64(), hs.FeesUSD.InexactFloat64(),
			hs.TradingVolumeUSD.InexactFloat64(),
			hs.UntrackedTradingVolumeUSD.InexactFloat64(),
			hs.TotalValueLockedETH.InexactFloat64(),
			hs.TotalValueLockedUSD.InexactFloat64(),
			bigU64(hs.UniqueUserCount), bigU64(hs.UniqueLiquidityProviderCount),
			bigI64(hs.PoolCountGrowth),
			hs.TotalValueLockedUSDGrowth.InexactFloat64(),
			hs.TradingVolumeUSDGrowth.InexactFloat64(),
			hs.UntrackedTradingVolumeUSDGrowth.InexactFloat64(),
			bigI64(hs.UniqueUserCountGrowth),
			bigI64(hs.UniqueLiquidityProviderCountGrowth),
		)
		if err != nil {
			return fmt.Errorf("append hook day snapshot: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send hook day snapshot batch: %w", err)
	}
	a.recordArchived(len(snaps))
	return nil
}

func (a *Archive) archiveGlobalDaySnapshots(ctx context.Context, snaps map[string]*domain.GlobalDaySnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO global_day_snapshots (
			id, period_index, period_start, volume_eth, volume_usd,
			volume_usd_untracked, fees_usd, tvl_usd, tx_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare global day snapshot batch: %w", err)
	}

	for _, gs := range snaps {
		err = batch.Append(
			gs.ID, gs.PeriodIndex, gs.PeriodStart,
			gs.VolumeETH.InexactFloat64(), gs.VolumeUSD.InexactFloat64(),
			gs.VolumeUSDUntracked.InexactFloat64(), gs.FeesUSD.InexactFloat64(),
			gs.TVLUSD.InexactFloat64(), bigU64(gs.TxCount),
		)
		if err != nil {
			return fmt.Errorf("append global day snapshot: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send global day snapshot batch: %w", err)
	}
	a.recordArchived(len(snaps))
	return nil
}

func (a *Archive) archiveSwaps(ctx context.Context, swaps []*domain.SwapRecord) error {
	if len(swaps) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO swaps (
			id, transaction_id, timestamp, pool_id, token0, token1, sender,
			origin, amount0, amount1, amount_usd, tick, log_index
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare swap batch: %w", err)
	}

	for _, sw := range swaps {
		err = batch.Append(
			sw.ID, sw.TransactionID, sw.Timestamp, sw.PoolID, sw.Token0,
			sw.Token1, sw.Sender, sw.Origin,
			sw.Amount0.InexactFloat64(), sw.Amount1.InexactFloat64(),
			sw.AmountUSD.InexactFloat64(), sw.Tick, int32(sw.LogIndex),
		)
		if err != nil {
			return fmt.Errorf("append swap: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send swap batch: %w", err)
	}
	return nil
}

func (a *Archive) archiveModifyLiquidities(ctx context.Context, events []*domain.ModifyLiquidityRecord) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO modify_liquidity_events (
			id, transaction_id, timestamp, pool_id, token0, token1, sender,
			origin, amount, amount0, amount1, amount_usd, tick_lower,
			tick_upper, log_index
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare modify liquidity batch: %w", err)
	}

	for _, ml := range events {
		err = batch.Append(
			ml.ID, ml.TransactionID, ml.Timestamp, ml.PoolID, ml.Token0,
			ml.Token1, ml.Sender, ml.Origin,
			bigFloat(ml.Amount),
			ml.Amount0.InexactFloat64(), ml.Amount1.InexactFloat64(),
			ml.AmountUSD.InexactFloat64(), ml.TickLower, ml.TickUpper,
			int32(ml.LogIndex),
		)
		if err != nil {
			return fmt.Errorf("append modify liquidity: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send modify liquidity batch: %w", err)
	}
	return nil
}

func (a *Archive) recordArchived(n int) {
	if a.metrics != nil {
		a.metrics.SnapshotsArchived.Add(float64(n))
	}
}

// bigU64 renders a non-negative counter for a UInt64 column.
func bigU64(b *big.Int) uint64 {
	if b == nil || b.Sign() < 0 {
		return 0
	}
	return b.Uint64()
}

// bigI64 renders a signed growth counter for an Int64 column.
func bigI64(b *big.Int) int64 {
	if b == nil {
		return 0
	}
	return b.Int64()
}

// bigFloat renders an unbounded integer for a Float64 column.
func bigFloat(b *big.Int) float64 {
	if b == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	return f
}
