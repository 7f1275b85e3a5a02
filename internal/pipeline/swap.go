package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/ledger"
)

var (
	two        = decimal.NewFromInt(2)
	feeDivisor = decimal.NewFromInt(1_000_000)
)

// ProcessSwap applies one swap event. A *MissingEntityError return means
// the event was skipped with no side effects; any other error is
// infrastructure and the event may be retried by the caller.
func (p *Processor) ProcessSwap(ctx context.Context, ev *domain.SwapEvent) error {
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

	if _, _, err := p.tracker.TouchPoolParticipant(ctx, ws, pool, ev.Sender, ev.Timestamp); err != nil {
		return err
	}
	if _, _, err := p.tracker.TouchHookParticipant(ctx, ws, hook, global, ev.Sender, ev.Timestamp); err != nil {
		return err
	}

	// The event reports pool-perspective deltas: a positive value means
	// tokens left the pool. Ledger amounts are the negation.
	amount0 := domain.ConvertRawToDecimal(ev.Amount0, token0.Decimals).Neg()
	amount1 := domain.ConvertRawToDecimal(ev.Amount1, token1.Decimals).Neg()
	amount0Abs := amount0.Abs()
	amount1Abs := amount1.Abs()

	amount0USD := amount0Abs.Mul(token0.DerivedETH).Mul(ws.EthPriceUSD)
	amount1USD := amount1Abs.Mul(token1.DerivedETH).Mul(ws.EthPriceUSD)

	// Tracked value counts allow-listed legs only, halved because input
	// and output cannot both count as volume.
	trackedUSD, err := p.oracle.TrackedVolumeUSD(ctx, amount0Abs, token0, amount1Abs, token1, p.cfg.WhitelistTokens)
	if err != nil {
		return fmt.Errorf("tracked volume: %w", err)
	}
	trackedUSD = trackedUSD.Div(two)
	trackedETH := domain.SafeDiv(trackedUSD, ws.EthPriceUSD)
	untrackedUSD := amount0USD.Add(amount1USD).Div(two)

	feeRate := decimal.NewFromInt(pool.FeeTier).Div(feeDivisor)
	feesETH := trackedETH.Mul(feeRate)
	feesUSD := trackedUSD.Mul(feeRate)

	totals := ledger.SwapTotals{
		Amount0Abs:   amount0Abs,
		Amount1Abs:   amount1Abs,
		TrackedETH:   trackedETH,
		TrackedUSD:   trackedUSD,
		UntrackedUSD: untrackedUSD,
		FeesETH:      feesETH,
		FeesUSD:      feesUSD,
	}
	ledger.AccumulateSwapTotals(global, hook, pool, token0, token1, totals)

	// Pull the pool's pre-swap TVL out of the ancestors; it is re-added
	// below after prices refresh.
	alarms := ledger.SubtractPoolTVL(global, hook, pool.TotalValueLockedETH)

	pool.Liquidity = domain.CloneBig(ev.Liquidity)
	tick := ev.Tick
	pool.Tick = &tick
	pool.SqrtPriceX96 = domain.CloneBig(ev.SqrtPriceX96)
	pool.TotalValueLockedToken0 = pool.TotalValueLockedToken0.Add(amount0)
	pool.TotalValueLockedToken1 = pool.TotalValueLockedToken1.Add(amount1)

	token0.TotalValueLocked = token0.TotalValueLocked.Add(amount0)
	token1.TotalValueLocked = token1.TotalValueLocked.Add(amount1)

	// Refresh pricing: pool rates from the new sqrt price, then the
	// native USD price and both derived prices.
	price0, price1, err := p.oracle.TokenPrices(ctx, pool.SqrtPriceX96, token0, token1)
	if err != nil {
		return fmt.Errorf("token prices: %w", err)
	}
	pool.Token0Price = price0
	pool.Token1Price = price1

	ethPriceUSD, err := p.oracle.NativePriceUSD(ctx, p.cfg.ReferencePoolID, p.cfg.StablecoinIsToken0)
	if err != nil {
		return fmt.Errorf("native price: %w", err)
	}
	ws.EthPriceUSD = ethPriceUSD
	global.EthPriceUSD = ethPriceUSD

	if token0.DerivedETH, err = p.oracle.DerivedNativePrice(ctx, token0, p.cfg); err != nil {
		return fmt.Errorf("derived price %s: %w", token0.ID, err)
	}
	if token1.DerivedETH, err = p.oracle.DerivedNativePrice(ctx, token1, p.cfg); err != nil {
		return fmt.Errorf("derived price %s: %w", token1.ID, err)
	}

	ledger.RecomputePoolTVL(pool, token0, token1, ethPriceUSD)
	alarms = append(alarms, ledger.AddPoolTVL(global, hook, pool, ethPriceUSD)...)
	p.reportAlarms(alarms)

	ledger.RecomputeTokenTVLUSD(token0, ethPriceUSD)
	ledger.RecomputeTokenTVLUSD(token1, ethPriceUSD)

	tx, err := p.loadOrCreateTransaction(ctx, ws, ev.Coords, ev.Timestamp)
	if err != nil {
		return err
	}

	ws.Swaps = append(ws.Swaps, &domain.SwapRecord{
		ID:            domain.ActivityID(tx.ID, ev.Coords.LogIndex),
		TransactionID: tx.ID,
		Timestamp:     tx.Timestamp,
		PoolID:        pool.ID,
		Token0:        pool.Token0,
		Token1:        pool.Token1,
		Sender:        ev.Sender,
		Origin:        ev.Origin,
		Amount0:       amount0,
		Amount1:       amount1,
		AmountUSD:     trackedUSD,
		Tick:          ev.Tick,
		SqrtPriceX96:  domain.CloneBig(ev.SqrtPriceX96),
		LogIndex:      ev.Coords.LogIndex,
	})

	if err := p.runSwapRollups(ctx, st, ev.Timestamp, totals); err != nil {
		return err
	}

	return p.commit(ctx, ws, "swap")
}

// runSwapRollups refreshes every period snapshot a swap touches and adds
// the swap's own volume and fee contribution to each period's
// accumulating fields.
func (p *Processor) runSwapRollups(ctx context.Context, st *workingState, ts int64, t ledger.SwapTotals) error {
	gd, err := p.rollups.GlobalDayRollup(ctx, st.ws, st.global, ts)
	if err != nil {
		return err
	}
	gd.VolumeETH = gd.VolumeETH.Add(t.TrackedETH)
	gd.VolumeUSD = gd.VolumeUSD.Add(t.TrackedUSD)
	gd.VolumeUSDUntracked = gd.VolumeUSDUntracked.Add(t.UntrackedUSD)
	gd.FeesUSD = gd.FeesUSD.Add(t.FeesUSD)

	if _, err := p.rollups.HookDayRollup(ctx, st.ws, st.hook, ts); err != nil {
		return err
	}

	for _, g := range []domain.Granularity{domain.GranularityDay, domain.GranularityHour, domain.GranularityMinute} {
		ps, err := p.rollups.PoolRollup(ctx, st.ws, st.pool, g, ts)
		if err != nil {
			return err
		}
		ps.VolumeToken0 = ps.VolumeToken0.Add(t.Amount0Abs)
		ps.VolumeToken1 = ps.VolumeToken1.Add(t.Amount1Abs)
		// Day snapshots carry the cumulative USD volume and fees via
		// copy-through; adding the event on top would count it twice.
		if g != domain.GranularityDay {
			ps.VolumeUSD = ps.VolumeUSD.Add(t.TrackedUSD)
			ps.FeesUSD = ps.FeesUSD.Add(t.FeesUSD)
		}

		t0, err := p.rollups.TokenRollup(ctx, st.ws, st.token0, st.ws.EthPriceUSD, g, ts)
		if err != nil {
			return err
		}
		t0.Volume = t0.Volume.Add(t.Amount0Abs)
		t0.VolumeUSD = t0.VolumeUSD.Add(t.TrackedUSD)
		t0.UntrackedVolumeUSD = t0.UntrackedVolumeUSD.Add(t.UntrackedUSD)
		t0.FeesUSD = t0.FeesUSD.Add(t.FeesUSD)

		t1, err := p.rollups.TokenRollup(ctx, st.ws, st.token1, st.ws.EthPriceUSD, g, ts)
		if err != nil {
			return err
		}
		t1.Volume = t1.Volume.Add(t.Amount1Abs)
		t1.VolumeUSD = t1.VolumeUSD.Add(t.TrackedUSD)
		t1.UntrackedVolumeUSD = t1.UntrackedVolumeUSD.Add(t.UntrackedUSD)
		t1.FeesUSD = t1.FeesUSD.Add(t.FeesUSD)
	}
	return nil
}
