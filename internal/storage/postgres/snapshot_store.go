package postgres

import (
	"context"
	"fmt"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// GetPoolSnapshot retrieves a period snapshot by granularity and
// parentID-periodIndex key.
func (s *EntityStore) GetPoolSnapshot(ctx context.Context, g domain.Granularity, id string) (*domain.PoolSnapshot, error) {
	query := `
		SELECT id, pool_id, hook_id, period_index, period_start,
		       open::text, high::text, low::text, close::text,
		       liquidity::text, sqrt_price_x96::text, token0_price::text,
		       token1_price::text, tick, tvl_usd::text,
		       volume_token0::text, volume_token1::text, volume_usd::text,
		       fees_usd::text, tx_count::text,
		       unique_user_count::text, unique_lp_count::text,
		       unique_user_count_growth::text, unique_lp_count_growth::text,
		       tx_count_growth::text, fees_usd_growth::text,
		       volume_usd_growth::text, tvl_usd_growth::text, apr::text
		FROM pool_snapshots
		WHERE granularity = $1 AND id = $2
	`

	ps := &domain.PoolSnapshot{Granularity: g}
	var open, high, low, closeP, liquidity, sqrtPrice, price0, price1, tvlUSD string
	var vol0, vol1, volUSD, feesUSD, txCount, users, lps string
	var usersGrowth, lpsGrowth, txGrowth, feesGrowth, volGrowth, tvlGrowth, apr string
	err := s.pool.QueryRow(ctx, query, string(g), id).Scan(
		&ps.ID, &ps.PoolID, &ps.HookID, &ps.PeriodIndex, &ps.PeriodStart,
		&open, &high, &low, &closeP, &liquidity, &sqrtPrice, &price0, &price1,
		&ps.Tick, &tvlUSD, &vol0, &vol1, &volUSD, &feesUSD, &txCount, &users, &lps,
		&usersGrowth, &lpsGrowth, &txGrowth, &feesGrowth, &volGrowth, &tvlGrowth, &apr,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool snapshot: %w", err)
	}

	if ps.Liquidity, err = parseBig(liquidity); err != nil {
		return nil, err
	}
	if ps.SqrtPriceX96, err = parseBig(sqrtPrice); err != nil {
		return nil, err
	}
	if ps.TxCount, err = parseBig(txCount); err != nil {
		return nil, err
	}
	if ps.UniqueUserCount, err = parseBig(users); err != nil {
		return nil, err
	}
	if ps.UniqueLiquidityProviderCount, err = parseBig(lps); err != nil {
		return nil, err
	}
	if ps.UniqueUserCountGrowth, err = parseBig(usersGrowth); err != nil {
		return nil, err
	}
	if ps.UniqueLiquidityProviderCountGrowth, err = parseBig(lpsGrowth); err != nil {
		return nil, err
	}
	if ps.TxCountGrowth, err = parseBig(txGrowth); err != nil {
		return nil, err
	}
	if ps.Open, err = parseDec(open); err != nil {
		return nil, err
	}
	if ps.High, err = parseDec(high); err != nil {
		return nil, err
	}
	if ps.Low, err = parseDec(low); err != nil {
		return nil, err
	}
	if ps.Close, err = parseDec(closeP); err != nil {
		return nil, err
	}
	if ps.Token0Price, err = parseDec(price0); err != nil {
		return nil, err
	}
	if ps.Token1Price, err = parseDec(price1); err != nil {
		return nil, err
	}
	if ps.TVLUSD, err = parseDec(tvlUSD); err != nil {
		return nil, err
	}
	if ps.VolumeToken0, err = parseDec(vol0); err != nil {
		return nil, err
	}
	if ps.VolumeToken1, err = parseDec(vol1); err != nil {
		return nil, err
	}
	if ps.VolumeUSD, err = parseDec(volUSD); err != nil {
		return nil, err
	}
	if ps.FeesUSD, err = parseDec(feesUSD); err != nil {
		return nil, err
	}
	if ps.FeesUSDGrowth, err = parseDec(feesGrowth); err != nil {
		return nil, err
	}
	if ps.VolumeUSDGrowth, err = parseDec(volGrowth); err != nil {
		return nil, err
	}
	if ps.TVLUSDGrowth, err = parseDec(tvlGrowth); err != nil {
		return nil, err
	}
	if ps.APR, err = parseDec(apr); err != nil {
		return nil, err
	}
	return ps, nil
}

// GetTokenSnapshot retrieves a period snapshot by granularity and
// parentID-periodIndex key.
func (s *EntityStore) GetTokenSnapshot(ctx context.Context, g domain.Granularity, id string) (*domain.TokenSnapshot, error) {
	query := `
		SELECT id, token_id, period_index, period_start,
		       open::text, high::text, low::text, close::text,
		       volume::text, volume_usd::text, untracked_volume_usd::text,
		       fees_usd::text, price_usd::text, total_value_locked::text,
		       total_value_locked_usd::text
		FROM token_snapshots
		WHERE granularity = $1 AND id = $2
	`

	ts := &domain.TokenSnapshot{Granularity: g}
	var open, high, low, closeP, volume, volUSD, untracked, feesUSD, price, tvl, tvlUSD string
	err := s.pool.QueryRow(ctx, query, string(g), id).Scan(
		&ts.ID, &ts.TokenID, &ts.PeriodIndex, &ts.PeriodStart,
		&open, &high, &low, &closeP, &volume, &volUSD, &untracked, &feesUSD,
		&price, &tvl, &tvlUSD,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token snapshot: %w", err)
	}

	if ts.Open, err = parseDec(open); err != nil {
		return nil, err
	}
	if ts.High, err = parseDec(high); err != nil {
		return nil, err
	}
	if ts.Low, err = parseDec(low); err != nil {
		return nil, err
	}
	if ts.Close, err = parseDec(closeP); err != nil {
		return nil, err
	}
	if ts.Volume, err = parseDec(volume); err != nil {
		return nil, err
	}
	if ts.VolumeUSD, err = parseDec(volUSD); err != nil {
		return nil, err
	}
	if ts.UntrackedVolumeUSD, err = parseDec(untracked); err != nil {
		return nil, err
	}
	if ts.FeesUSD, err = parseDec(feesUSD); err != nil {
		return nil, err
	}
	if ts.PriceUSD, err = parseDec(price); err != nil {
		return nil, err
	}
	if ts.TotalValueLocked, err = parseDec(tvl); err != nil {
		return nil, err
	}
	if ts.TotalValueLockedUSD, err = parseDec(tvlUSD); err != nil {
		return nil, err
	}
	return ts, nil
}

// GetHookDaySnapshot retrieves a hook day snapshot by hookID-dayIndex key.
func (s *EntityStore) GetHookDaySnapshot(ctx context.Context, id string) (*domain.HookDaySnapshot, error) {
	query := `
		SELECT id, hook_id, period_index, period_start,
		       pool_count::text, volume_usd::text, fees_usd::text,
		       trading_volume_usd::text, untracked_trading_volume_usd::text,
		       tvl_eth::text, tvl_usd::text,
		       unique_user_count::text, unique_lp_count::text,
		       pool_count_growth::text, tvl_usd_growth::text,
		       trading_volume_usd_growth::text, untracked_trading_volume_usd_growth::text,
		       unique_user_count_growth::text, unique_lp_count_growth::text
		FROM hook_day_snapshots
		WHERE id = $1
	`

	hs := &domain.HookDaySnapshot{}
	var poolCount, volUSD, feesUSD, trading, untracked, tvlETH, tvlUSD, users, lps string
	var poolGrowth, tvlGrowth, tradingGrowth, untrackedGrowth, usersGrowth, lpsGrowth string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&hs.ID, &hs.HookID, &hs.PeriodIndex, &hs.PeriodStart,
		&poolCount, &volUSD, &feesUSD, &trading, &untracked, &tvlETH, &tvlUSD,
		&users, &lps, &poolGrowth, &tvlGrowth, &tradingGrowth, &untrackedGrowth,
		&usersGrowth, &lpsGrowth,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get hook day snapshot: %w", err)
	}

	if hs.PoolCount, err = parseBig(poolCount); err != nil {
		return nil, err
	}
	if hs.UniqueUserCount, err = parseBig(users); err != nil {
		return nil, err
	}
	if hs.UniqueLiquidityProviderCount, err = parseBig(lps); err != nil {
		return nil, err
	}
	if hs.PoolCountGrowth, err = parseBig(poolGrowth); err != nil {
		return nil, err
	}
	if hs.UniqueUserCountGrowth, err = parseBig(usersGrowth); err != nil {
		return nil, err
	}
	if hs.UniqueLiquidityProviderCountGrowth, err = parseBig(lpsGrowth); err != nil {
		return nil, err
	}
	if hs.VolumeUSD, err = parseDec(volUSD); err != nil {
		return nil, err
	}
	if hs.FeesUSD, err = parseDec(feesUSD); err != nil {
		return nil, err
	}
	if hs.TradingVolumeUSD, err = parseDec(trading); err != nil {
		return nil, err
	}
	if hs.UntrackedTradingVolumeUSD, err = parseDec(untracked); err != nil {
		return nil, err
	}
	if hs.TotalValueLockedETH, err = parseDec(tvlETH); err != nil {
		return nil, err
	}
	if hs.TotalValueLockedUSD, err = parseDec(tvlUSD); err != nil {
		return nil, err
	}
	if hs.TotalValueLockedUSDGrowth, err = parseDec(tvlGrowth); err != nil {
		return nil, err
	}
	if hs.TradingVolumeUSDGrowth, err = parseDec(tradingGrowth); err != nil {
		return nil, err
	}
	if hs.UntrackedTradingVolumeUSDGrowth, err = parseDec(untrackedGrowth); err != nil {
		return nil, err
	}
	return hs, nil
}

// GetGlobalDaySnapshot retrieves a global day snapshot by day index key.
func (s *EntityStore) GetGlobalDaySnapshot(ctx context.Context, id string) (*domain.GlobalDaySnapshot, error) {
	query := `
		SELECT id, period_index, period_start,
		       volume_eth::text, volume_usd::text, volume_usd_untracked::text,
		       fees_usd::text, tvl_usd::text, tx_count::text
		FROM global_day_snapshots
		WHERE id = $1
	`

	gs := &domain.GlobalDaySnapshot{}
	var volETH, volUSD, untracked, feesUSD, tvlUSD, txCount string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&gs.ID, &gs.PeriodIndex, &gs.PeriodStart,
		&volETH, &volUSD, &untracked, &feesUSD, &tvlUSD, &txCount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get global day snapshot: %w", err)
	}

	if gs.TxCount, err = parseBig(txCount); err != nil {
		return nil, err
	}
	if gs.VolumeETH, err = parseDec(volETH); err != nil {
		return nil, err
	}
	if gs.VolumeUSD, err = parseDec(volUSD); err != nil {
		return nil, err
	}
	if gs.VolumeUSDUntracked, err = parseDec(untracked); err != nil {
		return nil, err
	}
	if gs.FeesUSD, err = parseDec(feesUSD); err != nil {
		return nil, err
	}
	if gs.TVLUSD, err = parseDec(tvlUSD); err != nil {
		return nil, err
	}
	return gs, nil
}
