package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// querier is satisfied by both the pool and a transaction, so the same
// read and upsert helpers serve Gets and Commit.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EntityStore implements storage.EntityStore using PostgreSQL. Counters
// and unbounded integers live in NUMERIC columns and cross the wire as
// decimal strings.
type EntityStore struct {
	pool *Pool
}

// NewEntityStore creates a new EntityStore.
func NewEntityStore(pool *Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

// GetGlobal retrieves the single global aggregate record.
func (s *EntityStore) GetGlobal(ctx context.Context) (*domain.GlobalAggregate, error) {
	return getGlobal(ctx, s.pool)
}

func getGlobal(ctx context.Context, q querier) (*domain.GlobalAggregate, error) {
	query := `
		SELECT tx_count::text, total_volume_eth::text, total_volume_usd::text,
		       untracked_volume_usd::text, total_fees_eth::text, total_fees_usd::text,
		       total_value_locked_eth::text, total_value_locked_usd::text,
		       hook_unique_user_count::text, eth_price_usd::text
		FROM global_aggregate
		WHERE id = $1
	`

	var txCount, volETH, volUSD, untracked, feesETH, feesUSD, tvlETH, tvlUSD, hookUsers, ethPrice string
	err := q.QueryRow(ctx, query, domain.GlobalAggregateID).Scan(
		&txCount, &volETH, &volUSD, &untracked, &feesETH, &feesUSD, &tvlETH, &tvlUSD, &hookUsers, &ethPrice,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get global aggregate: %w", err)
	}

	g := &domain.GlobalAggregate{}
	if g.TxCount, err = parseBig(txCount); err != nil {
		return nil, err
	}
	if g.HookUniqueUserCount, err = parseBig(hookUsers); err != nil {
		return nil, err
	}
	if g.TotalVolumeETH, err = parseDec(volETH); err != nil {
		return nil, err
	}
	if g.TotalVolumeUSD, err = parseDec(volUSD); err != nil {
		return nil, err
	}
	if g.UntrackedVolumeUSD, err = parseDec(untracked); err != nil {
		return nil, err
	}
	if g.TotalFeesETH, err = parseDec(feesETH); err != nil {
		return nil, err
	}
	if g.TotalFeesUSD, err = parseDec(feesUSD); err != nil {
		return nil, err
	}
	if g.TotalValueLockedETH, err = parseDec(tvlETH); err != nil {
		return nil, err
	}
	if g.TotalValueLockedUSD, err = parseDec(tvlUSD); err != nil {
		return nil, err
	}
	if g.EthPriceUSD, err = parseDec(ethPrice); err != nil {
		return nil, err
	}
	return g, nil
}

// GetHook retrieves a hook aggregate by hook address.
func (s *EntityStore) GetHook(ctx context.Context, id string) (*domain.HookAggregate, error) {
	query := `
		SELECT id, pool_count::text, volume_usd::text, fees_usd::text,
		       trading_volume_usd::text, untracked_trading_volume_usd::text,
		       total_value_locked_eth::text, total_value_locked_usd::text,
		       unique_user_count::text, unique_lp_count::text, created_at_timestamp
		FROM hook_aggregates
		WHERE id = $1
	`

	h := &domain.HookAggregate{}
	var poolCount, volUSD, feesUSD, trading, untracked, tvlETH, tvlUSD, users, lps string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&h.ID, &poolCount, &volUSD, &feesUSD, &trading, &untracked, &tvlETH, &tvlUSD,
		&users, &lps, &h.CreatedAtTimestamp,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get hook aggregate: %w", err)
	}

	if h.PoolCount, err = parseBig(poolCount); err != nil {
		return nil, err
	}
	if h.UniqueUserCount, err = parseBig(users); err != nil {
		return nil, err
	}
	if h.UniqueLiquidityProviderCount, err = parseBig(lps); err != nil {
		return nil, err
	}
	if h.VolumeUSD, err = parseDec(volUSD); err != nil {
		return nil, err
	}
	if h.FeesUSD, err = parseDec(feesUSD); err != nil {
		return nil, err
	}
	if h.TradingVolumeUSD, err = parseDec(trading); err != nil {
		return nil, err
	}
	if h.UntrackedTradingVolumeUSD, err = parseDec(untracked); err != nil {
		return nil, err
	}
	if h.TotalValueLockedETH, err = parseDec(tvlETH); err != nil {
		return nil, err
	}
	if h.TotalValueLockedUSD, err = parseDec(tvlUSD); err != nil {
		return nil, err
	}
	return h, nil
}

// GetPool retrieves a pool aggregate by pool id.
func (s *EntityStore) GetPool(ctx context.Context, id string) (*domain.PoolAggregate, error) {
	query := `
		SELECT id, token0, token1, hook_id, fee_tier, tick, sqrt_price_x96::text,
		       liquidity::text, token0_price::text, token1_price::text,
		       tvl_token0::text, tvl_token1::text, tvl_eth::text, tvl_usd::text,
		       volume_token0::text, volume_token1::text, volume_usd::text,
		       untracked_volume_usd::text, fees_usd::text, tx_count::text,
		       unique_user_count::text, unique_lp_count::text, created_at_timestamp
		FROM pool_aggregates
		WHERE id = $1
	`

	p := &domain.PoolAggregate{}
	var sqrtPrice, liquidity, price0, price1 string
	var tvl0, tvl1, tvlETH, tvlUSD, vol0, vol1, volUSD, untracked, feesUSD, txCount, users, lps string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Token0, &p.Token1, &p.HookID, &p.FeeTier, &p.Tick, &sqrtPrice,
		&liquidity, &price0, &price1, &tvl0, &tvl1, &tvlETH, &tvlUSD,
		&vol0, &vol1, &volUSD, &untracked, &feesUSD, &txCount, &users, &lps,
		&p.CreatedAtTimestamp,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool aggregate: %w", err)
	}

	if p.SqrtPriceX96, err = parseBig(sqrtPrice); err != nil {
		return nil, err
	}
	if p.Liquidity, err = parseBig(liquidity); err != nil {
		return nil, err
	}
	if p.TxCount, err = parseBig(txCount); err != nil {
		return nil, err
	}
	if p.UniqueUserCount, err = parseBig(users); err != nil {
		return nil, err
	}
	if p.UniqueLiquidityProviderCount, err = parseBig(lps); err != nil {
		return nil, err
	}
	if p.Token0Price, err = parseDec(price0); err != nil {
		return nil, err
	}
	if p.Token1Price, err = parseDec(price1); err != nil {
		return nil, err
	}
	if p.TotalValueLockedToken0, err = parseDec(tvl0); err != nil {
		return nil, err
	}
	if p.TotalValueLockedToken1, err = parseDec(tvl1); err != nil {
		return nil, err
	}
	if p.TotalValueLockedETH, err = parseDec(tvlETH); err != nil {
		return nil, err
	}
	if p.TotalValueLockedUSD, err = parseDec(tvlUSD); err != nil {
		return nil, err
	}
	if p.VolumeToken0, err = parseDec(vol0); err != nil {
		return nil, err
	}
	if p.VolumeToken1, err = parseDec(vol1); err != nil {
		return nil, err
	}
	if p.VolumeUSD, err = parseDec(volUSD); err != nil {
		return nil, err
	}
	if p.UntrackedVolumeUSD, err = parseDec(untracked); err != nil {
		return nil, err
	}
	if p.FeesUSD, err = parseDec(feesUSD); err != nil {
		return nil, err
	}
	return p, nil
}

// GetToken retrieves a token aggregate by token address.
func (s *EntityStore) GetToken(ctx context.Context, id string) (*domain.TokenAggregate, error) {
	query := `
		SELECT id, symbol, decimals, volume::text, volume_usd::text,
		       untracked_volume_usd::text, fees_usd::text, total_value_locked::text,
		       total_value_locked_usd::text, derived_eth::text, tx_count::text
		FROM token_aggregates
		WHERE id = $1
	`

	t := &domain.TokenAggregate{}
	var volume, volUSD, untracked, feesUSD, tvl, tvlUSD, derived, txCount string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Symbol, &t.Decimals, &volume, &volUSD, &untracked, &feesUSD,
		&tvl, &tvlUSD, &derived, &txCount,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token aggregate: %w", err)
	}

	if t.TxCount, err = parseBig(txCount); err != nil {
		return nil, err
	}
	if t.Volume, err = parseDec(volume); err != nil {
		return nil, err
	}
	if t.VolumeUSD, err = parseDec(volUSD); err != nil {
		return nil, err
	}
	if t.UntrackedVolumeUSD, err = parseDec(untracked); err != nil {
		return nil, err
	}
	if t.FeesUSD, err = parseDec(feesUSD); err != nil {
		return nil, err
	}
	if t.TotalValueLocked, err = parseDec(tvl); err != nil {
		return nil, err
	}
	if t.TotalValueLockedUSD, err = parseDec(tvlUSD); err != nil {
		return nil, err
	}
	if t.DerivedETH, err = parseDec(derived); err != nil {
		return nil, err
	}
	return t, nil
}

// GetPoolParticipant retrieves a participant by poolID-address key.
func (s *EntityStore) GetPoolParticipant(ctx context.Context, id string) (*domain.PoolParticipant, error) {
	query := `
		SELECT id, pool_id, address, first_interaction_timestamp,
		       tvl_token0::text, tvl_token1::text
		FROM pool_participants
		WHERE id = $1
	`

	p := &domain.PoolParticipant{}
	var tvl0, tvl1 string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.PoolID, &p.Address, &p.FirstInteractionTimestamp, &tvl0, &tvl1,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool participant: %w", err)
	}
	if p.TotalValueLockedToken0, err = parseDec(tvl0); err != nil {
		return nil, err
	}
	if p.TotalValueLockedToken1, err = parseDec(tvl1); err != nil {
		return nil, err
	}
	return p, nil
}

// GetHookParticipant retrieves a participant by hookID-address key.
func (s *EntityStore) GetHookParticipant(ctx context.Context, id string) (*domain.HookParticipant, error) {
	query := `
		SELECT id, hook_id, address, first_interaction_timestamp, active_pool_count::text
		FROM hook_participants
		WHERE id = $1
	`

	p := &domain.HookParticipant{}
	var active string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.HookID, &p.Address, &p.FirstInteractionTimestamp, &active,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get hook participant: %w", err)
	}
	if p.ActivePoolCount, err = parseBig(active); err != nil {
		return nil, err
	}
	return p, nil
}

// GetTick retrieves a boundary tick by poolID#tickIdx key.
func (s *EntityStore) GetTick(ctx context.Context, id string) (*domain.Tick, error) {
	query := `
		SELECT id, pool_id, tick_idx, liquidity_gross::text, liquidity_net::text,
		       created_at_timestamp, created_at_block
		FROM ticks
		WHERE id = $1
	`

	t := &domain.Tick{}
	var gross, net string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.PoolID, &t.TickIdx, &gross, &net, &t.CreatedAtTimestamp, &t.CreatedAtBlock,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tick: %w", err)
	}
	if t.LiquidityGross, err = parseBig(gross); err != nil {
		return nil, err
	}
	if t.LiquidityNet, err = parseBig(net); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTransaction retrieves a transaction record by hash.
func (s *EntityStore) GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	query := `
		SELECT id, block_number, timestamp
		FROM transactions
		WHERE id = $1
	`

	t := &domain.TransactionRecord{}
	err := s.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.BlockNumber, &t.Timestamp)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}
