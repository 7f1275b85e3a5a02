package postgres_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
	"dex-hook-stats/internal/storage/postgres"
)

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int " + s)
	}
	return v
}

func TestEntityStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEntityStore(pool)
	ctx := context.Background()

	_, err := store.GetGlobal(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetPool(ctx, "0xmissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetTransaction(ctx, "0xmissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEntityStore_CommitAndReadBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEntityStore(pool)
	ctx := context.Background()

	ws := storage.NewWorkingSet()

	g := domain.NewGlobalAggregate()
	g.TxCount = big.NewInt(42)
	g.TotalVolumeUSD = decimal.RequireFromString("123456.789")
	g.TotalValueLockedETH = decimal.RequireFromString("19.5")
	g.EthPriceUSD = decimal.RequireFromString("1612.34")
	ws.Global = g

	h := domain.NewHookAggregate("0xhook", 1700000000)
	h.PoolCount = big.NewInt(3)
	h.TradingVolumeUSD = decimal.RequireFromString("999.25")
	ws.Hooks[h.ID] = h

	tick := int32(-887)
	p := domain.NewPoolAggregate("0xpool", "0xt0", "0xt1", h.ID, 3000, 1700000000)
	p.Tick = &tick
	p.SqrtPriceX96 = mustBig("79228162514264337593543950336")
	p.Liquidity = mustBig("340282366920938463463374607431768211455")
	p.Token0Price = decimal.RequireFromString("1600.000001")
	p.TotalValueLockedToken1 = decimal.RequireFromString("-14400.5")
	ws.Pools[p.ID] = p

	tok := domain.NewTokenAggregate("0xt0", "WETH", 18)
	tok.DerivedETH = decimal.RequireFromString("1")
	tok.Volume = decimal.RequireFromString("0.000000000000000001")
	ws.Tokens[tok.ID] = tok

	part := domain.NewPoolParticipant(p.ID, "0xalice", 1700000000)
	part.TotalValueLockedToken0 = decimal.RequireFromString("2.5")
	ws.PoolParticipants[part.ID] = part

	hp := domain.NewHookParticipant(h.ID, "0xalice", 1700000000)
	hp.ActivePoolCount = big.NewInt(2)
	ws.HookParticipants[hp.ID] = hp

	tk := domain.NewTick(p.ID, -887, 1700000000, 55)
	tk.LiquidityGross = mustBig("1000000000000000000")
	tk.LiquidityNet = mustBig("-1000000000000000000")
	ws.Ticks[tk.ID] = tk

	ws.Transactions["0xtx"] = &domain.TransactionRecord{ID: "0xtx", BlockNumber: 55, Timestamp: 1700000000}

	require.NoError(t, store.Commit(ctx, ws))

	gotG, err := store.GetGlobal(ctx)
	require.NoError(t, err)
	assert.Zero(t, gotG.TxCount.Cmp(big.NewInt(42)))
	assert.True(t, gotG.TotalVolumeUSD.Equal(decimal.RequireFromString("123456.789")))
	assert.True(t, gotG.EthPriceUSD.Equal(decimal.RequireFromString("1612.34")))

	gotH, err := store.GetHook(ctx, h.ID)
	require.NoError(t, err)
	assert.Zero(t, gotH.PoolCount.Cmp(big.NewInt(3)))
	assert.True(t, gotH.TradingVolumeUSD.Equal(decimal.RequireFromString("999.25")))
	assert.Equal(t, int64(1700000000), gotH.CreatedAtTimestamp)

	gotP, err := store.GetPool(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, gotP.Tick)
	assert.Equal(t, int32(-887), *gotP.Tick)
	assert.Zero(t, gotP.SqrtPriceX96.Cmp(p.SqrtPriceX96))
	assert.Zero(t, gotP.Liquidity.Cmp(p.Liquidity))
	assert.True(t, gotP.Token0Price.Equal(p.Token0Price))
	assert.True(t, gotP.TotalValueLockedToken1.Equal(p.TotalValueLockedToken1))
	assert.Equal(t, int64(3000), gotP.FeeTier)

	gotT, err := store.GetToken(ctx, tok.ID)
	require.NoError(t, err)
	assert.Equal(t, "WETH", gotT.Symbol)
	assert.Equal(t, int32(18), gotT.Decimals)
	assert.True(t, gotT.Volume.Equal(tok.Volume))

	gotPart, err := store.GetPoolParticipant(ctx, part.ID)
	require.NoError(t, err)
	assert.True(t, gotPart.TotalValueLockedToken0.Equal(decimal.RequireFromString("2.5")))

	gotHP, err := store.GetHookParticipant(ctx, hp.ID)
	require.NoError(t, err)
	assert.Zero(t, gotHP.ActivePoolCount.Cmp(big.NewInt(2)))

	gotTick, err := store.GetTick(ctx, tk.ID)
	require.NoError(t, err)
	assert.Zero(t, gotTick.LiquidityNet.Cmp(tk.LiquidityNet))
	assert.Equal(t, int64(55), gotTick.CreatedAtBlock)

	gotTx, err := store.GetTransaction(ctx, "0xtx")
	require.NoError(t, err)
	assert.Equal(t, int64(55), gotTx.BlockNumber)
}

func TestEntityStore_NullTickRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEntityStore(pool)
	ctx := context.Background()

	ws := storage.NewWorkingSet()
	ws.Pools["0xpool"] = domain.NewPoolAggregate("0xpool", "0xt0", "0xt1", domain.ZeroHookID, 500, 1700000000)
	require.NoError(t, store.Commit(ctx, ws))

	got, err := store.GetPool(ctx, "0xpool")
	require.NoError(t, err)
	assert.Nil(t, got.Tick, "an uninitialized pool keeps a NULL tick")
}

func TestEntityStore_UpsertUpdates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEntityStore(pool)
	ctx := context.Background()

	ws := storage.NewWorkingSet()
	tok := domain.NewTokenAggregate("0xt0", "WETH", 18)
	ws.Tokens[tok.ID] = tok
	require.NoError(t, store.Commit(ctx, ws))

	ws2 := storage.NewWorkingSet()
	tok2 := domain.NewTokenAggregate("0xt0", "WETH", 18)
	tok2.Volume = decimal.RequireFromString("77.7")
	tok2.TxCount = big.NewInt(9)
	ws2.Tokens[tok2.ID] = tok2
	require.NoError(t, store.Commit(ctx, ws2))

	got, err := store.GetToken(ctx, "0xt0")
	require.NoError(t, err)
	assert.True(t, got.Volume.Equal(decimal.RequireFromString("77.7")))
	assert.Zero(t, got.TxCount.Cmp(big.NewInt(9)))
}

// A replayed event must abort the whole commit: its swap row hits the
// primary key and no aggregate change from the replay may survive.
func TestEntityStore_ReplayRollsBackAggregates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEntityStore(pool)
	ctx := context.Background()

	ws := storage.NewWorkingSet()
	g := domain.NewGlobalAggregate()
	g.TxCount = big.NewInt(1)
	ws.Global = g
	ws.Swaps = append(ws.Swaps, &domain.SwapRecord{
		ID: "0xtx-0", TransactionID: "0xtx", PoolID: "0xpool",
		Token0: "0xt0", Token1: "0xt1", Sender: "0xs", Origin: "0xo",
		SqrtPriceX96: mustBig("79228162514264337593543950336"),
	})
	require.NoError(t, store.Commit(ctx, ws))

	replay := storage.NewWorkingSet()
	g2 := domain.NewGlobalAggregate()
	g2.TxCount = big.NewInt(2)
	replay.Global = g2
	replay.Swaps = append(replay.Swaps, &domain.SwapRecord{
		ID: "0xtx-0", TransactionID: "0xtx", PoolID: "0xpool",
		Token0: "0xt0", Token1: "0xt1", Sender: "0xs", Origin: "0xo",
	})

	err := store.Commit(ctx, replay)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetGlobal(ctx)
	require.NoError(t, err)
	assert.Zero(t, got.TxCount.Cmp(big.NewInt(1)), "replayed commit must not touch aggregates")
}

func TestEntityStore_SnapshotsKeyedByGranularity(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEntityStore(pool)
	ctx := context.Background()

	p := domain.NewPoolAggregate("0xpool", "0xt0", "0xt1", domain.ZeroHookID, 3000, 1700000000)
	p.Token0Price = decimal.RequireFromString("1600")

	ws := storage.NewWorkingSet()
	day := domain.NewPoolSnapshot(p, domain.GranularityDay, 19675)
	hour := domain.NewPoolSnapshot(p, domain.GranularityHour, 472222)
	ws.PutPoolSnapshot(day)
	ws.PutPoolSnapshot(hour)

	tokSnap := domain.NewTokenSnapshot("0xt0", decimal.RequireFromString("1600"), domain.GranularityDay, 19675)
	ws.PutTokenSnapshot(tokSnap)

	hookSnap := domain.NewHookDaySnapshot(domain.ZeroHookID, 19675)
	hookSnap.TradingVolumeUSD = decimal.RequireFromString("88")
	ws.HookDaySnapshots[hookSnap.ID] = hookSnap

	globalSnap := domain.NewGlobalDaySnapshot(19675)
	globalSnap.VolumeUSD = decimal.RequireFromString("1234.5")
	ws.GlobalDaySnapshots[globalSnap.ID] = globalSnap

	require.NoError(t, store.Commit(ctx, ws))

	gotDay, err := store.GetPoolSnapshot(ctx, domain.GranularityDay, day.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(19675), gotDay.PeriodIndex)
	assert.True(t, gotDay.Open.Equal(decimal.RequireFromString("1600")))

	gotHour, err := store.GetPoolSnapshot(ctx, domain.GranularityHour, hour.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(472222), gotHour.PeriodIndex)

	_, err = store.GetPoolSnapshot(ctx, domain.GranularityMinute, day.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	gotTok, err := store.GetTokenSnapshot(ctx, domain.GranularityDay, tokSnap.ID)
	require.NoError(t, err)
	assert.True(t, gotTok.Close.Equal(decimal.RequireFromString("1600")))

	gotHook, err := store.GetHookDaySnapshot(ctx, hookSnap.ID)
	require.NoError(t, err)
	assert.True(t, gotHook.TradingVolumeUSD.Equal(decimal.RequireFromString("88")))

	gotGlobal, err := store.GetGlobalDaySnapshot(ctx, globalSnap.ID)
	require.NoError(t, err)
	assert.True(t, gotGlobal.VolumeUSD.Equal(decimal.RequireFromString("1234.5")))
}
