package rollup

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// TokenRollup updates (or lazily creates) the token's snapshot for the
// period containing ts. OHLC tracks the token's USD price derived from
// its native price and the current native asset USD price. Volume and
// fee contributions are accumulated by the pipeline, not here.
func (m *Manager) TokenRollup(ctx context.Context, ws *storage.WorkingSet, token *domain.TokenAggregate, ethPriceUSD decimal.Decimal, g domain.Granularity, ts int64) (*domain.TokenSnapshot, error) {
	idx := g.PeriodIndex(ts)
	id := domain.SnapshotID(token.ID, idx)
	priceUSD := token.DerivedETH.Mul(ethPriceUSD)

	snap := ws.TokenSnapshot(g, id)
	if snap == nil {
		loaded, err := m.store.GetTokenSnapshot(ctx, g, id)
		switch {
		case err == nil:
			snap = loaded
		case errors.Is(err, storage.ErrNotFound):
			snap = domain.NewTokenSnapshot(token.ID, priceUSD, g, idx)
		default:
			return nil, fmt.Errorf("get token snapshot %s/%s: %w", g, id, err)
		}
		ws.PutTokenSnapshot(snap)
	}

	if priceUSD.GreaterThan(snap.High) {
		snap.High = priceUSD
	}
	if priceUSD.LessThan(snap.Low) {
		snap.Low = priceUSD
	}
	snap.Close = priceUSD
	snap.PriceUSD = priceUSD
	snap.TotalValueLocked = token.TotalValueLocked
	snap.TotalValueLockedUSD = token.TotalValueLockedUSD

	return snap, nil
}
