package postgres

import (
	"context"
	"fmt"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// Commit persists every entity in the working set as one transaction.
// Activity rows are inserted first so a replayed event aborts before any
// aggregate is touched.
func (s *EntityStore) Commit(ctx context.Context, ws *storage.WorkingSet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sw := range ws.Swaps {
		if err := insertSwap(ctx, tx, sw); err != nil {
			return err
		}
	}
	for _, ml := range ws.ModifyLiquidities {
		if err := insertModifyLiquidity(ctx, tx, ml); err != nil {
			return err
		}
	}

	if ws.Global != nil {
		if err := upsertGlobal(ctx, tx, ws.Global); err != nil {
			return err
		}
	}
	for _, h := range ws.Hooks {
		if err := upsertHook(ctx, tx, h); err != nil {
			return err
		}
	}
	for _, p := range ws.Pools {
		if err := upsertPool(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, t := range ws.Tokens {
		if err := upsertToken(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, p := range ws.PoolParticipants {
		if err := upsertPoolParticipant(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, p := range ws.HookParticipants {
		if err := upsertHookParticipant(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, t := range ws.Ticks {
		if err := upsertTick(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, ps := range ws.PoolSnapshots {
		if err := upsertPoolSnapshot(ctx, tx, ps); err != nil {
			return err
		}
	}
	for _, ts := range ws.TokenSnapshots {
		if err := upsertTokenSnapshot(ctx, tx, ts); err != nil {
			return err
		}
	}
	for _, hs := range ws.HookDaySnapshots {
		if err := upsertHookDaySnapshot(ctx, tx, hs); err != nil {
			return err
		}
	}
	for _, gs := range ws.GlobalDaySnapshots {
		if err := upsertGlobalDaySnapshot(ctx, tx, gs); err != nil {
			return err
		}
	}
	for _, t := range ws.Transactions {
		if err := upsertTransaction(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertSwap(ctx context.Context, q querier, sw *domain.SwapRecord) error {
	query := `
		INSERT INTO swaps (
			id, transaction_id, timestamp, pool_id, token0, token1, sender, origin,
			amount0, amount1, amount_usd, tick, sqrt_price_x96, log_index
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := q.Exec(ctx, query,
		sw.ID, sw.TransactionID, sw.Timestamp, sw.PoolID, sw.Token0, sw.Token1,
		sw.Sender, sw.Origin, sw.Amount0.String(), sw.Amount1.String(),
		sw.AmountUSD.String(), sw.Tick, bigStr(sw.SqrtPriceX96), sw.LogIndex,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap record: %w", err)
	}
	return nil
}

func insertModifyLiquidity(ctx context.Context, q querier, ml *domain.ModifyLiquidityRecord) error {
	query := `
		INSERT INTO modify_liquidity_events (
			id, transaction_id, timestamp, pool_id, token0, token1, sender, origin,
			amount, amount0, amount1, amount_usd, tick_lower, tick_upper, log_index
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := q.Exec(ctx, query,
		ml.ID, ml.TransactionID, ml.Timestamp, ml.PoolID, ml.Token0, ml.Token1,
		ml.Sender, ml.Origin, bigStr(ml.Amount), ml.Amount0.String(),
		ml.Amount1.String(), ml.AmountUSD.String(), ml.TickLower, ml.TickUpper, ml.LogIndex,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert modify liquidity record: %w", err)
	}
	return nil
}

func upsertGlobal(ctx context.Context, q querier, g *domain.GlobalAggregate) error {
	query := `
		INSERT INTO global_aggregate (
			id, tx_count, total_volume_eth, total_volume_usd, untracked_volume_usd,
			total_fees_eth, total_fees_usd, total_value_locked_eth,
			total_value_locked_usd, hook_unique_user_count, eth_price_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			tx_count = EXCLUDED.tx_count,
			total_volume_eth = EXCLUDED.total_volume_eth,
			total_volume_usd = EXCLUDED.total_volume_usd,
			untracked_volume_usd = EXCLUDED.untracked_volume_usd,
			total_fees_eth = EXCLUDED.total_fees_eth,
			total_fees_usd = EXCLUDED.total_fees_usd,
			total_value_locked_eth = EXCLUDED.total_value_locked_eth,
			total_value_locked_usd = EXCLUDED.total_value_locked_usd,
			hook_unique_user_count = EXCLUDED.hook_unique_user_count,
			eth_price_usd = EXCLUDED.eth_price_usd
	`
	_, err := q.Exec(ctx, query,
		domain.GlobalAggregateID, bigStr(g.TxCount), g.TotalVolumeETH.String(),
		g.TotalVolumeUSD.String(), g.UntrackedVolumeUSD.String(),
		g.TotalFeesETH.String(), g.TotalFeesUSD.String(),
		g.TotalValueLockedETH.String(), g.TotalValueLockedUSD.String(),
		bigStr(g.HookUniqueUserCount), g.EthPriceUSD.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert global aggregate: %w", err)
	}
	return nil
}

func upsertHook(ctx context.Context, q querier, h *domain.HookAggregate) error {
	query := `
		INSERT INTO hook_aggregates (
			id, pool_count, volume_usd, fees_usd, trading_volume_usd,
			untracked_trading_volume_usd, total_value_locked_eth,
			total_value_locked_usd, unique_user_count, unique_lp_count,
			created_at_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			pool_count = EXCLUDED.pool_count,
			volume_usd = EXCLUDED.volume_usd,
			fees_usd = EXCLUDED.fees_usd,
			trading_volume_usd = EXCLUDED.trading_volume_usd,
			untracked_trading_volume_usd = EXCLUDED.untracked_trading_volume_usd,
			total_value_locked_eth = EXCLUDED.total_value_locked_eth,
			total_value_locked_usd = EXCLUDED.total_value_locked_usd,
			unique_user_count = EXCLUDED.unique_user_count,
			unique_lp_count = EXCLUDED.unique_lp_count
	`
	_, err := q.Exec(ctx, query,
		h.ID, bigStr(h.PoolCount), h.VolumeUSD.String(), h.FeesUSD.String(),
		h.TradingVolumeUSD.String(), h.UntrackedTradingVolumeUSD.String(),
		h.TotalValueLockedETH.String(), h.TotalValueLockedUSD.String(),
		bigStr(h.UniqueUserCount), bigStr(h.UniqueLiquidityProviderCount),
		h.CreatedAtTimestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert hook aggregate: %w", err)
	}
	return nil
}

func upsertPool(ctx context.Context, q querier, p *domain.PoolAggregate) error {
	query := `
		INSERT INTO pool_aggregates (
			id, token0, token1, hook_id, fee_tier, tick, sqrt_price_x96, liquidity,
			token0_price, token1_price, tvl_token0, tvl_token1, tvl_eth, tvl_usd,
			volume_token0, volume_token1, volume_usd, untracked_volume_usd,
			fees_usd, tx_count, unique_user_count, unique_lp_count,
			created_at_timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		          $15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (id) DO UPDATE SET
			tick = EXCLUDED.tick,
			sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
			liquidity = EXCLUDED.liquidity,
			token0_price = EXCLUDED.token0_price,
			token1_price = EXCLUDED.token1_price,
			tvl_token0 = EXCLUDED.tvl_token0,
			tvl_token1 = EXCLUDED.tvl_token1,
			tvl_eth = EXCLUDED.tvl_eth,
			tvl_usd = EXCLUDED.tvl_usd,
			volume_token0 = EXCLUDED.volume_token0,
			volume_token1 = EXCLUDED.volume_token1,
			volume_usd = EXCLUDED.volume_usd,
			untracked_volume_usd = EXCLUDED.untracked_volume_usd,
			fees_usd = EXCLUDED.fees_usd,
			tx_count = EXCLUDED.tx_count,
			unique_user_count = EXCLUDED.unique_user_count,
			unique_lp_count = EXCLUDED.unique_lp_count
	`
	_, err := q.Exec(ctx, query,
		p.ID, p.Token0, p.Token1, p.HookID, p.FeeTier, p.Tick,
		bigStr(p.SqrtPriceX96), bigStr(p.Liquidity),
		p.Token0Price.String(), p.Token1Price.String(),
		p.TotalValueLockedToken0.String(), p.TotalValueLockedToken1.String(),
		p.TotalValueLockedETH.String(), p.TotalValueLockedUSD.String(),
		p.VolumeToken0.String(), p.VolumeToken1.String(), p.VolumeUSD.String(),
		p.UntrackedVolumeUSD.String(), p.FeesUSD.String(), bigStr(p.TxCount),
		bigStr(p.UniqueUserCount), bigStr(p.UniqueLiquidityProviderCount),
		p.CreatedAtTimestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert pool aggregate: %w", err)
	}
	return nil
}

func upsertToken(ctx context.Context, q querier, t *domain.TokenAggregate) error {
	query := `
		INSERT INTO token_aggregates (
			id, symbol, decimals, volume, volume_usd, untracked_volume_usd,
			fees_usd, total_value_locked, total_value_locked_usd, derived_eth,
			tx_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			volume = EXCLUDED.volume,
			volume_usd = EXCLUDED.volume_usd,
			untracked_volume_usd = EXCLUDED.untracked_volume_usd,
			fees_usd = EXCLUDED.fees_usd,
			total_value_locked = EXCLUDED.total_value_locked,
			total_value_locked_usd = EXCLUDED.total_value_locked_usd,
			derived_eth = EXCLUDED.derived_eth,
			tx_count = EXCLUDED.tx_count
	`
	_, err := q.Exec(ctx, query,
		t.ID, t.Symbol, t.Decimals, t.Volume.String(), t.VolumeUSD.String(),
		t.UntrackedVolumeUSD.String(), t.FeesUSD.String(),
		t.TotalValueLocked.String(), t.TotalValueLockedUSD.String(),
		t.DerivedETH.String(), bigStr(t.TxCount),
	)
	if err != nil {
		return fmt.Errorf("upsert token aggregate: %w", err)
	}
	return nil
}

func upsertPoolParticipant(ctx context.Context, q querier, p *domain.PoolParticipant) error {
	query := `
		INSERT INTO pool_participants (
			id, pool_id, address, first_interaction_timestamp, tvl_token0, tvl_token1
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			tvl_token0 = EXCLUDED.tvl_token0,
			tvl_token1 = EXCLUDED.tvl_token1
	`
	_, err := q.Exec(ctx, query,
		p.ID, p.PoolID, p.Address, p.FirstInteractionTimestamp,
		p.TotalValueLockedToken0.String(), p.TotalValueLockedToken1.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert pool participant: %w", err)
	}
	return nil
}

func upsertHookParticipant(ctx context.Context, q querier, p *domain.HookParticipant) error {
	query := `
		INSERT INTO hook_participants (
			id, hook_id, address, first_interaction_timestamp, active_pool_count
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			active_pool_count = EXCLUDED.active_pool_count
	`
	_, err := q.Exec(ctx, query,
		p.ID, p.HookID, p.Address, p.FirstInteractionTimestamp,
		bigStr(p.ActivePoolCount),
	)
	if err != nil {
		return fmt.Errorf("upsert hook participant: %w", err)
	}
	return nil
}

func upsertTick(ctx context.Context, q querier, t *domain.Tick) error {
	query := `
		INSERT INTO ticks (
			id, pool_id, tick_idx, liquidity_gross, liquidity_net,
			created_at_timestamp, created_at_block
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			liquidity_gross = EXCLUDED.liquidity_gross,
			liquidity_net = EXCLUDED.liquidity_net
	`
	_, err := q.Exec(ctx, query,
		t.ID, t.PoolID, t.TickIdx, bigStr(t.LiquidityGross), bigStr(t.LiquidityNet),
		t.CreatedAtTimestamp, t.CreatedAtBlock,
	)
	if err != nil {
		return fmt.Errorf("upsert tick: %w", err)
	}
	return nil
}

func upsertPoolSnapshot(ctx context.Context, q querier, ps *domain.PoolSnapshot) error {
	query := `
		INSERT INTO pool_snapshots (
			granularity, id, pool_id, hook_id, period_index, period_start,
			open, high, low, close, liquidity, sqrt_price_x96,
			token0_price, token1_price, tick, tvl_usd,
			volume_token0, volume_token1, volume_usd, fees_usd, tx_count,
			unique_user_count, unique_lp_count,
			unique_user_count_growth, unique_lp_count_growth, tx_count_growth,
			fees_usd_growth, volume_usd_growth, tvl_usd_growth, apr
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		          $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		          $27, $28, $29, $30)
		ON CONFLICT (granularity, id) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			liquidity = EXCLUDED.liquidity,
			sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
			token0_price = EXCLUDED.token0_price,
			token1_price = EXCLUDED.token1_price,
			tick = EXCLUDED.tick,
			tvl_usd = EXCLUDED.tvl_usd,
			volume_token0 = EXCLUDED.volume_token0,
			volume_token1 = EXCLUDED.volume_token1,
			volume_usd = EXCLUDED.volume_usd,
			fees_usd = EXCLUDED.fees_usd,
			tx_count = EXCLUDED.tx_count,
			unique_user_count = EXCLUDED.unique_user_count,
			unique_lp_count = EXCLUDED.unique_lp_count,
			unique_user_count_growth = EXCLUDED.unique_user_count_growth,
			unique_lp_count_growth = EXCLUDED.unique_lp_count_growth,
			tx_count_growth = EXCLUDED.tx_count_growth,
			fees_usd_growth = EXCLUDED.fees_usd_growth,
			volume_usd_growth = EXCLUDED.volume_usd_growth,
			tvl_usd_growth = EXCLUDED.tvl_usd_growth,
			apr = EXCLUDED.apr
	`
	_, err := q.Exec(ctx, query,
		string(ps.Granularity), ps.ID, ps.PoolID, ps.HookID, ps.PeriodIndex, ps.PeriodStart,
		ps.Open.String(), ps.High.String(), ps.Low.String(), ps.Close.String(),
		bigStr(ps.Liquidity), bigStr(ps.SqrtPriceX96),
		ps.Token0Price.String(), ps.Token1Price.String(), ps.Tick, ps.TVLUSD.String(),
		ps.VolumeToken0.String(), ps.VolumeToken1.String(), ps.VolumeUSD.String(),
		ps.FeesUSD.String(), bigStr(ps.TxCount),
		bigStr(ps.UniqueUserCount), bigStr(ps.UniqueLiquidityProviderCount),
		bigStr(ps.UniqueUserCountGrowth), bigStr(ps.UniqueLiquidityProviderCountGrowth),
		bigStr(ps.TxCountGrowth), ps.FeesUSDGrowth.String(),
		ps.VolumeUSDGrowth.String(), ps.TVLUSDGrowth.String(), ps.APR.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert pool snapshot: %w", err)
	}
	return nil
}

func upsertTokenSnapshot(ctx context.Context, q querier, ts *domain.TokenSnapshot) error {
	query := `
		INSERT INTO token_snapshots (
			granularity, id, token_id, period_index, period_start,
			open, high, low, close, volume, volume_usd, untracked_volume_usd,
			fees_usd, price_usd, total_value_locked, total_value_locked_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (granularity, id) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			volume_usd = EXCLUDED.volume_usd,
			untracked_volume_usd = EXCLUDED.untracked_volume_usd,
			fees_usd = EXCLUDED.fees_usd,
			price_usd = EXCLUDED.price_usd,
			total_value_locked = EXCLUDED.total_value_locked,
			total_value_locked_usd = EXCLUDED.total_value_locked_usd
	`
	_, err := q.Exec(ctx, query,
		string(ts.Granularity), ts.ID, ts.TokenID, ts.PeriodIndex, ts.PeriodStart,
		ts.Open.String(), ts.High.String(), ts.Low.String(), ts.Close.String(),
		ts.Volume.String(), ts.VolumeUSD.String(), ts.UntrackedVolumeUSD.String(),
		ts.FeesUSD.String(), ts.PriceUSD.String(), ts.TotalValueLocked.String(),
		ts.TotalValueLockedUSD.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert token snapshot: %w", err)
	}
	return nil
}

func upsertHookDaySnapshot(ctx context.Context, q querier, hs *domain.HookDaySnapshot) error {
	query := `
		INSERT INTO hook_day_snapshots (
			id, hook_id, period_index, period_start, pool_count, volume_usd,
			fees_usd, trading_volume_usd, untracked_trading_volume_usd,
			tvl_eth, tvl_usd, unique_user_count, unique_lp_count,
			pool_count_growth, tvl_usd_growth, trading_volume_usd_growth,
			untracked_trading_volume_usd_growth, unique_user_count_growth,
			unique_lp_count_growth
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		          $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			pool_count = EXCLUDED.pool_count,
			volume_usd = EXCLUDED.volume_usd,
			fees_usd = EXCLUDED.fees_usd,
			trading_volume_usd = EXCLUDED.trading_volume_usd,
			untracked_trading_volume_usd = EXCLUDED.untracked_trading_volume_usd,
			tvl_eth = EXCLUDED.tvl_eth,
			tvl_usd = EXCLUDED.tvl_usd,
			unique_user_count = EXCLUDED.unique_user_count,
			unique_lp_count = EXCLUDED.unique_lp_count,
			pool_count_growth = EXCLUDED.pool_count_growth,
			tvl_usd_growth = EXCLUDED.tvl_usd_growth,
			trading_volume_usd_growth = EXCLUDED.trading_volume_usd_growth,
			untracked_trading_volume_usd_growth = EXCLUDED.untracked_trading_volume_usd_growth,
			unique_user_count_growth = EXCLUDED.unique_user_count_growth,
			unique_lp_count_growth = EXCLUDED.unique_lp_count_growth
	`
	_, err := q.Exec(ctx, query,
		hs.ID, hs.HookID, hs.PeriodIndex, hs.PeriodStart, bigStr(hs.PoolCount),
		hs.VolumeUSD.String(), hs.FeesUSD.String(), hs.TradingVolumeUSD.String(),
		hs.UntrackedTradingVolumeUSD.String(), hs.TotalValueLockedETH.String(),
		hs.TotalValueLockedUSD.String(), bigStr(hs.UniqueUserCount),
		bigStr(hs.UniqueLiquidityProviderCount), bigStr(hs.PoolCountGrowth),
		hs.TotalValueLockedUSDGrowth.String(), hs.TradingVolumeUSDGrowth.String(),
		hs.UntrackedTradingVolumeUSDGrowth.String(), bigStr(hs.UniqueUserCountGrowth),
		bigStr(hs.UniqueLiquidityProviderCountGrowth),
	)
	if err != nil {
		return fmt.Errorf("upsert hook day snapshot: %w", err)
	}
	return nil
}

func upsertGlobalDaySnapshot(ctx context.Context, q querier, gs *domain.GlobalDaySnapshot) error {
	query := `
		INSERT INTO global_day_snapshots (
			id, period_index, period_start, volume_eth, volume_usd,
			volume_usd_untracked, fees_usd, tvl_usd, tx_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			volume_eth = EXCLUDED.volume_eth,
			volume_usd = EXCLUDED.volume_usd,
			volume_usd_untracked = EXCLUDED.volume_usd_untracked,
			fees_usd = EXCLUDED.fees_usd,
			tvl_usd = EXCLUDED.tvl_usd,
			tx_count = EXCLUDED.tx_count
	`
	_, err := q.Exec(ctx, query,
		gs.ID, gs.PeriodIndex, gs.PeriodStart, gs.VolumeETH.String(),
		gs.VolumeUSD.String(), gs.VolumeUSDUntracked.String(),
		gs.FeesUSD.String(), gs.TVLUSD.String(), bigStr(gs.TxCount),
	)
	if err != nil {
		return fmt.Errorf("upsert global day snapshot: %w", err)
	}
	return nil
}

func upsertTransaction(ctx context.Context, q querier, t *domain.TransactionRecord) error {
	query := `
		INSERT INTO transactions (id, block_number, timestamp)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := q.Exec(ctx, query, t.ID, t.BlockNumber, t.Timestamp)
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}
