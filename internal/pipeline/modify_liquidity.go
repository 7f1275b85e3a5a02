package pipeline

import (
	"context"
	"errors"
	"fmt"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/ledger"
	"dex-hook-stats/internal/participants"
	"dex-hook-stats/internal/storage"
)

// ProcessModifyLiquidity applies one liquidity modification event.
// A *MissingEntityError return means the event was skipped with no side
// effects; any other error is infrastructure and the event may be
// retried by the caller.
func (p *Processor) ProcessModifyLiquidity(ctx context.Context, ev *domain.ModifyLiquidityEvent) error {
	st, err := p.loadWorkingState(ctx, ev.PoolID)
	if err != nil {
		var me *MissingEntityError
		if errors.As(err, &me) {
			p.recordSkip(me)
		}
		return err
	}
	ws, global, hook, pool := st.ws, st.global, st.hook, st.pool
	token0, token1 := st.token0, st.token1

	// Liquidity math needs the pool's current tick; a pool that never
	// initialized cannot price a position.
	if pool.Tick == nil {
		me := &MissingEntityError{Kind: "pool state", ID: pool.ID}
		p.recordSkip(me)
		return me
	}

	poolPart, _, err := p.tracker.TouchPoolParticipant(ctx, ws, pool, ev.Sender, ev.Timestamp)
	if err != nil {
		return err
	}
	hookPart, _, err := p.tracker.TouchHookParticipant(ctx, ws, hook, global, ev.Sender, ev.Timestamp)
	if err != nil {
		return err
	}

	// A participant at zero balance is (re-)entering LP membership. The
	// transition is noted before amounts are applied; the exit check
	// below runs on the post-update balances.
	if !poolPart.HasPosition() {
		participants.NoteLiquidityEntered(pool, hook, hookPart)
	}

	amount0Raw, amount1Raw, err := p.oracle.AmountsForLiquidity(ctx, ev.TickLower, ev.TickUpper, *pool.Tick, ev.LiquidityDelta, pool.SqrtPriceX96)
	if err != nil {
		return fmt.Errorf("amounts for liquidity: %w", err)
	}
	amount0 := domain.ConvertRawToDecimal(amount0Raw, token0.Decimals)
	amount1 := domain.ConvertRawToDecimal(amount1Raw, token1.Decimals)
	amountUSD := amount0.Mul(token0.DerivedETH).Add(amount1.Mul(token1.DerivedETH)).Mul(ws.EthPriceUSD)

	// Pull the pool's old TVL out of the ancestors before recomputing.
	alarms := ledger.SubtractPoolTVL(global, hook, pool.TotalValueLockedETH)

	global.TxCount = domain.AddInt(global.TxCount, 1)

	token0.TxCount = domain.AddInt(token0.TxCount, 1)
	token0.TotalValueLocked = token0.TotalValueLocked.Add(amount0)
	ledger.RecomputeTokenTVLUSD(token0, ws.EthPriceUSD)

	token1.TxCount = domain.AddInt(token1.TxCount, 1)
	token1.TotalValueLocked = token1.TotalValueLocked.Add(amount1)
	ledger.RecomputeTokenTVLUSD(token1, ws.EthPriceUSD)

	pool.TxCount = domain.AddInt(pool.TxCount, 1)

	// Active liquidity only moves when the modified range includes the
	// pool's current tick.
	if ev.TickLower <= *pool.Tick && ev.TickUpper > *pool.Tick {
		pool.Liquidity = domain.AddBig(pool.Liquidity, ev.LiquidityDelta)
	}

	pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Add(amount0)
	pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Add(amount1)
	ledger.RecomputePoolTVL(pool, token0, token1, ws.EthPriceUSD)

	poolPart.TotalValueLockedToken0 = poolPart.TotalValueLockedToken0.Add(amount0)
	poolPart.TotalValueLockedToken1 = poolPart.TotalValueLockedToken1.Add(amount1)
	if !poolPart.HasPosition() {
		participants.NoteLiquidityExited(pool, hook, hookPart)
	}

	alarms = append(alarms, ledger.AddPoolTVL(global, hook, pool, ws.EthPriceUSD)...)
	p.reportAlarms(alarms)

	tx, err := p.loadOrCreateTransaction(ctx, ws, ev.Coords, ev.Timestamp)
	if err != nil {
		return err
	}

	ws.ModifyLiquidities = append(ws.ModifyLiquidities, &domain.ModifyLiquidityRecord{
		ID:            domain.ActivityID(tx.ID, ev.Coords.LogIndex),
		TransactionID: tx.ID,
		Timestamp:     tx.Timestamp,
		PoolID:        pool.ID,
		Token0:        pool.Token0,
		Token1:        pool.Token1,
		Sender:        ev.Sender,
		Origin:        ev.Origin,
		Amount:        domain.CloneBig(ev.LiquidityDelta),
		Amount0:       amount0,
		Amount1:       amount1,
		AmountUSD:     amountUSD,
		TickLower:     ev.TickLower,
		TickUpper:     ev.TickUpper,
		LogIndex:      ev.Coords.LogIndex,
	})

	if err := p.applyTickLiquidity(ctx, ws, ev); err != nil {
		return err
	}

	if err := p.runModifyRollups(ctx, st, ev.Timestamp); err != nil {
		return err
	}

	return p.commit(ctx, ws, "modify_liquidity")
}

// applyTickLiquidity updates the position's boundary tick records: gross
// liquidity accumulates at both boundaries, net liquidity is added at
// the lower boundary and subtracted at the upper one.
func (p *Processor) applyTickLiquidity(ctx context.Context, ws *storage.WorkingSet, ev *domain.ModifyLiquidityEvent) error {
	lower, err := p.loadOrCreateTick(ctx, ws, ev.PoolID, ev.TickLower, ev)
	if err != nil {
		return err
	}
	upper, err := p.loadOrCreateTick(ctx, ws, ev.PoolID, ev.TickUpper, ev)
	if err != nil {
		return err
	}

	lower.LiquidityGross = domain.AddBig(lower.LiquidityGross, ev.LiquidityDelta)
	lower.LiquidityNet = domain.AddBig(lower.LiquidityNet, ev.LiquidityDelta)
	upper.LiquidityGross = domain.AddBig(upper.LiquidityGross, ev.LiquidityDelta)
	upper.LiquidityNet = domain.SubBig(upper.LiquidityNet, ev.LiquidityDelta)
	return nil
}

func (p *Processor) loadOrCreateTick(ctx context.Context, ws *storage.WorkingSet, poolID string, tickIdx int32, ev *domain.ModifyLiquidityEvent) (*domain.Tick, error) {
	id := domain.TickID(poolID, tickIdx)
	if t, ok := ws.Ticks[id]; ok {
		return t, nil
	}
	t, err := p.store.GetTick(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		t = domain.NewTick(poolID, tickIdx, ev.Timestamp, ev.Coords.BlockNumber)
	default:
		return nil, fmt.Errorf("get tick %s: %w", id, err)
	}
	ws.Ticks[id] = t
	return t, nil
}

// runModifyRollups refreshes every period snapshot a liquidity
// modification touches. Modifies contribute no volume, so snapshots only
// receive copy-through state and transaction counts.
func (p *Processor) runModifyRollups(ctx context.Context, st *workingState, ts int64) error {
	if _, err := p.rollups.HookDayRollup(ctx, st.ws, st.hook, ts); err != nil {
		return err
	}
	if _, err := p.rollups.GlobalDayRollup(ctx, st.ws, st.global, ts); err != nil {
		return err
	}
	for _, g := range []domain.Granularity{domain.GranularityDay, domain.GranularityHour, domain.GranularityMinute} {
		if _, err := p.rollups.PoolRollup(ctx, st.ws, st.pool, g, ts); err != nil {
			return err
		}
		if _, err := p.rollups.TokenRollup(ctx, st.ws, st.token0, st.ws.EthPriceUSD, g, ts); err != nil {
			return err
		}
		if _, err := p.rollups.TokenRollup(ctx, st.ws, st.token1, st.ws.EthPriceUSD, g, ts); err != nil {
			return err
		}
	}
	return nil
}
