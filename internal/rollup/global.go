package rollup

import (
	"context"
	"errors"
	"fmt"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// GlobalDayRollup updates (or lazily creates) the global day snapshot,
// copying through the current global TVL and transaction count. Volume
// and fee contributions are accumulated by the swap handler.
func (m *Manager) GlobalDayRollup(ctx context.Context, ws *storage.WorkingSet, global *domain.GlobalAggregate, ts int64) (*domain.GlobalDaySnapshot, error) {
	idx := domain.GranularityDay.PeriodIndex(ts)
	id := domain.NewGlobalDaySnapshot(idx).ID

	snap, ok := ws.GlobalDaySnapshots[id]
	if !ok {
		loaded, err := m.store.GetGlobalDaySnapshot(ctx, id)
		switch {
		case err == nil:
			snap = loaded
		case errors.Is(err, storage.ErrNotFound):
			snap = domain.NewGlobalDaySnapshot(idx)
		default:
			return nil, fmt.Errorf("get global day snapshot %s: %w", id, err)
		}
		ws.GlobalDaySnapshots[id] = snap
	}

	snap.TVLUSD = global.TotalValueLockedUSD
	snap.TxCount = domain.CloneBig(global.TxCount)
	return snap, nil
}
