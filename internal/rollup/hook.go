package rollup

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// HookDayRollup updates (or lazily creates) the hook's day snapshot,
// copying through the hook aggregate's running totals, computing growth
// against the previous day's snapshot (sentinel fallback), and
// refreshing the hook's sentinel record.
func (m *Manager) HookDayRollup(ctx context.Context, ws *storage.WorkingSet, hook *domain.HookAggregate, ts int64) (*domain.HookDaySnapshot, error) {
	idx := domain.GranularityDay.PeriodIndex(ts)
	id := domain.SnapshotID(hook.ID, idx)

	snap, ok := ws.HookDaySnapshots[id]
	if !ok {
		loaded, err := m.store.GetHookDaySnapshot(ctx, id)
		switch {
		case err == nil:
			snap = loaded
		case errors.Is(err, storage.ErrNotFound):
			snap = domain.NewHookDaySnapshot(hook.ID, idx)
		default:
			return nil, fmt.Errorf("get hook day snapshot %s: %w", id, err)
		}
		ws.HookDaySnapshots[id] = snap
	}

	snap.PoolCount = domain.CloneBig(hook.PoolCount)
	snap.VolumeUSD = hook.VolumeUSD
	snap.FeesUSD = hook.FeesUSD
	snap.TradingVolumeUSD = hook.TradingVolumeUSD
	snap.UntrackedTradingVolumeUSD = hook.UntrackedTradingVolumeUSD
	snap.TotalValueLockedETH = hook.TotalValueLockedETH
	snap.TotalValueLockedUSD = hook.TotalValueLockedUSD
	snap.UniqueUserCount = domain.CloneBig(hook.UniqueUserCount)
	snap.UniqueLiquidityProviderCount = domain.CloneBig(hook.UniqueLiquidityProviderCount)

	baseline, err := m.hookBaseline(ctx, ws, hook.ID, idx)
	if err != nil {
		return nil, err
	}
	if baseline != nil {
		snap.PoolCountGrowth = domain.SubBig(hook.PoolCount, baseline.PoolCount)
		snap.TotalValueLockedUSDGrowth = hook.TotalValueLockedUSD.Sub(baseline.TotalValueLockedUSD)
		snap.TradingVolumeUSDGrowth = hook.TradingVolumeUSD.Sub(baseline.TradingVolumeUSD)
		snap.UntrackedTradingVolumeUSDGrowth = hook.UntrackedTradingVolumeUSD.Sub(baseline.UntrackedTradingVolumeUSD)
		snap.UniqueUserCountGrowth = domain.SubBig(hook.UniqueUserCount, baseline.UniqueUserCount)
		snap.UniqueLiquidityProviderCountGrowth = domain.SubBig(hook.UniqueLiquidityProviderCount, baseline.UniqueLiquidityProviderCount)
	} else {
		snap.PoolCountGrowth = domain.BigZero()
		snap.TotalValueLockedUSDGrowth = decimal.Zero
		snap.TradingVolumeUSDGrowth = decimal.Zero
		snap.UntrackedTradingVolumeUSDGrowth = decimal.Zero
		snap.UniqueUserCountGrowth = domain.BigZero()
		snap.UniqueLiquidityProviderCountGrowth = domain.BigZero()
	}

	m.refreshHookSentinel(ws, hook, snap)
	return snap, nil
}

// hookBaseline resolves the growth baseline for a hook day snapshot:
// previous day's snapshot, else the hook's sentinel record, else nil.
func (m *Manager) hookBaseline(ctx context.Context, ws *storage.WorkingSet, hookID string, dayIdx int64) (*domain.HookDaySnapshot, error) {
	prevID := domain.SnapshotID(hookID, dayIdx-1)
	prev, err := m.store.GetHookDaySnapshot(ctx, prevID)
	if err == nil {
		return prev, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get previous hook day snapshot %s: %w", prevID, err)
	}

	sentID := domain.SnapshotID(hookID, domain.SentinelPeriodIndex)
	if sent, ok := ws.HookDaySnapshots[sentID]; ok {
		return sent, nil
	}
	sent, err := m.store.GetHookDaySnapshot(ctx, sentID)
	if err == nil {
		return sent, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("get hook sentinel %s: %w", sentID, err)
}

// refreshHookSentinel overwrites the hook's sentinel with the snapshot's
// current values, growth fields zeroed.
func (m *Manager) refreshHookSentinel(ws *storage.WorkingSet, hook *domain.HookAggregate, snap *domain.HookDaySnapshot) {
	sent := *snap
	sent.ID = domain.SnapshotID(hook.ID, domain.SentinelPeriodIndex)
	sent.PeriodIndex = domain.SentinelPeriodIndex
	sent.PeriodStart = 0
	sent.PoolCountGrowth = domain.BigZero()
	sent.TotalValueLockedUSDGrowth = decimal.Zero
	sent.TradingVolumeUSDGrowth = decimal.Zero
	sent.UntrackedTradingVolumeUSDGrowth = decimal.Zero
	sent.UniqueUserCountGrowth = domain.BigZero()
	sent.UniqueLiquidityProviderCountGrowth = domain.BigZero()
	ws.HookDaySnapshots[sent.ID] = &sent
}
