package pipeline

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/oracle"
	"dex-hook-stats/internal/oracle/static"
	"dex-hook-stats/internal/storage"
	"dex-hook-stats/internal/storage/memory"
)

const (
	weth  = "0xweth"
	dai   = "0xdai"
	poolA = "0xpoolA"
	poolB = "0xpoolB"
	hookA = "0xhookA"
	hookB = "0xhookB"

	eventTime = int64(1700000000)
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func bigE18(n int64) *big.Int {
	e18 := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), e18)
}

// newFixture seeds two 18-decimal token pools under separate hooks.
// Pool A starts with 10 WETH / 16000 DAI locked (20 ETH of TVL at the
// fixed prices); pool B starts empty.
func newFixture(t *testing.T) (*memory.EntityStore, *static.Oracle, *Processor) {
	t.Helper()
	store := memory.NewEntityStore()

	ws := storage.NewWorkingSet()
	global := domain.NewGlobalAggregate()
	global.EthPriceUSD = dec("1600")
	global.TotalValueLockedETH = dec("20")
	global.TotalValueLockedUSD = dec("32000")
	ws.Global = global
	ws.EthPriceUSD = global.EthPriceUSD

	ha := domain.NewHookAggregate(hookA, eventTime)
	ha.TotalValueLockedETH = dec("20")
	ha.TotalValueLockedUSD = dec("32000")
	ws.Hooks[hookA] = ha
	ws.Hooks[hookB] = domain.NewHookAggregate(hookB, eventTime)

	tick := int32(0)
	pa := domain.NewPoolAggregate(poolA, weth, dai, hookA, 3000, eventTime)
	pa.Tick = &tick
	pa.SqrtPriceX96 = new(big.Int).Lsh(big.NewInt(1), 96)
	pa.TotalValueLockedToken0 = dec("10")
	pa.TotalValueLockedToken1 = dec("16000")
	pa.TotalValueLockedETH = dec("20")
	pa.TotalValueLockedUSD = dec("32000")
	ws.Pools[poolA] = pa

	tickB := int32(0)
	pb := domain.NewPoolAggregate(poolB, weth, dai, hookB, 500, eventTime)
	pb.Tick = &tickB
	pb.SqrtPriceX96 = new(big.Int).Lsh(big.NewInt(1), 96)
	ws.Pools[poolB] = pb

	w := domain.NewTokenAggregate(weth, "WETH", 18)
	w.DerivedETH = dec("1")
	w.TotalValueLocked = dec("10")
	ws.Tokens[weth] = w
	d := domain.NewTokenAggregate(dai, "DAI", 18)
	d.DerivedETH = dec("0.000625")
	d.TotalValueLocked = dec("16000")
	ws.Tokens[dai] = d

	if err := store.Commit(context.Background(), ws); err != nil {
		t.Fatalf("seed: %v", err)
	}

	orc := static.New(dec("1600"))
	orc.SetDerivedETH(weth, dec("1"))
	orc.SetDerivedETH(dai, dec("0.000625"))

	proc := New(Options{
		Store:  store,
		Oracle: orc,
		Pricing: oracle.PricingConfig{
			WhitelistTokens: []string{weth, dai},
		},
	})
	return store, orc, proc
}

// sellWETH is a trader selling 1 WETH into pool A for 1600 DAI. Deltas
// are pool-perspective: positive amounts left the pool.
func sellWETH(block int64, logIdx int) *domain.SwapEvent {
	return &domain.SwapEvent{
		PoolID:       poolA,
		Sender:       "0xtrader",
		Origin:       "0xtrader",
		Amount0:      bigE18(-1),
		Amount1:      bigE18(1600),
		Liquidity:    bigE18(5),
		Tick:         3,
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
		Timestamp:    eventTime,
		Coords: domain.EventCoords{
			BlockNumber: block,
			LogIndex:    logIdx,
			TxHash:      "0xtx" + decimal.NewFromInt(block).String(),
		},
	}
}

func addLiquidity(poolID string, sender string, delta int64, block int64) *domain.ModifyLiquidityEvent {
	return &domain.ModifyLiquidityEvent{
		PoolID:         poolID,
		Sender:         sender,
		Origin:         sender,
		LiquidityDelta: bigE18(delta),
		TickLower:      -60,
		TickUpper:      60,
		Timestamp:      eventTime,
		Coords: domain.EventCoords{
			BlockNumber: block,
			TxHash:      "0xtx" + decimal.NewFromInt(block).String(),
		},
	}
}

func TestProcessSwap_AccumulatesAllLevels(t *testing.T) {
	store, _, proc := newFixture(t)
	ctx := context.Background()

	if err := proc.ProcessSwap(ctx, sellWETH(100, 0)); err != nil {
		t.Fatalf("ProcessSwap: %v", err)
	}

	global, err := store.GetGlobal(ctx)
	if err != nil {
		t.Fatalf("GetGlobal: %v", err)
	}
	if got := global.TxCount.Int64(); got != 1 {
		t.Errorf("global TxCount = %d, want 1", got)
	}
	// Both legs are allow-listed: tracked = (1600 + 1600) / 2.
	if !global.TotalVolumeUSD.Equal(dec("1600")) {
		t.Errorf("global volume USD = %s, want 1600", global.TotalVolumeUSD)
	}
	if !global.TotalVolumeETH.Equal(dec("1")) {
		t.Errorf("global volume ETH = %s, want 1", global.TotalVolumeETH)
	}
	if !global.TotalFeesUSD.Equal(dec("4.8")) {
		t.Errorf("global fees USD = %s, want 4.8 (30 bps of 1600)", global.TotalFeesUSD)
	}

	pool, err := store.GetPool(ctx, poolA)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	// The pool gained 1 WETH and released 1600 DAI.
	if !pool.TotalValueLockedToken0.Equal(dec("11")) {
		t.Errorf("pool TVL token0 = %s, want 11", pool.TotalValueLockedToken0)
	}
	if !pool.TotalValueLockedToken1.Equal(dec("14400")) {
		t.Errorf("pool TVL token1 = %s, want 14400", pool.TotalValueLockedToken1)
	}
	if !pool.TotalValueLockedETH.Equal(dec("20")) {
		t.Errorf("pool TVL ETH = %s, want 20 (value-neutral swap)", pool.TotalValueLockedETH)
	}
	if !pool.VolumeToken0.Equal(dec("1")) || !pool.VolumeToken1.Equal(dec("1600")) {
		t.Errorf("pool token volumes = %s / %s, want 1 / 1600", pool.VolumeToken0, pool.VolumeToken1)
	}
	if pool.Tick == nil || *pool.Tick != 3 {
		t.Errorf("pool tick = %v, want 3", pool.Tick)
	}
	if pool.Liquidity.Cmp(bigE18(5)) != 0 {
		t.Errorf("pool liquidity = %s, want 5e18", pool.Liquidity)
	}
	if got := pool.UniqueUserCount.Int64(); got != 1 {
		t.Errorf("pool UniqueUserCount = %d, want 1", got)
	}

	hook, err := store.GetHook(ctx, hookA)
	if err != nil {
		t.Fatalf("GetHook: %v", err)
	}
	if !hook.VolumeUSD.Equal(dec("1600")) {
		t.Errorf("hook volume USD = %s, want 1600", hook.VolumeUSD)
	}
	if !hook.TotalValueLockedETH.Equal(pool.TotalValueLockedETH) {
		t.Errorf("hook TVL ETH = %s, pool = %s: levels drifted", hook.TotalValueLockedETH, pool.TotalValueLockedETH)
	}
	if !global.TotalValueLockedETH.Equal(hook.TotalValueLockedETH) {
		t.Errorf("global TVL ETH = %s, hook = %s: levels drifted", global.TotalValueLockedETH, hook.TotalValueLockedETH)
	}
	if got := hook.UniqueUserCount.Int64(); got != 1 {
		t.Errorf("hook UniqueUserCount = %d, want 1", got)
	}
	if got := global.HookUniqueUserCount.Int64(); got != 1 {
		t.Errorf("global HookUniqueUserCount = %d, want 1", got)
	}

	if got := store.SwapRecordCount(); got != 1 {
		t.Errorf("swap records = %d, want 1", got)
	}
}

// Day snapshots copy cumulative totals through; sub-day snapshots
// accumulate per event. After any run both views must agree.
func TestProcessSwap_DayAndHourVolumeAgree(t *testing.T) {
	store, _, proc := newFixture(t)
	ctx := context.Background()

	if err := proc.ProcessSwap(ctx, sellWETH(100, 0)); err != nil {
		t.Fatalf("ProcessSwap: %v", err)
	}
	if err := proc.ProcessSwap(ctx, sellWETH(101, 0)); err != nil {
		t.Fatalf("ProcessSwap: %v", err)
	}

	pool, err := store.GetPool(ctx, poolA)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if !pool.VolumeUSD.Equal(dec("3200")) {
		t.Fatalf("pool volume USD = %s, want 3200", pool.VolumeUSD)
	}

	dayIdx := domain.GranularityDay.PeriodIndex(eventTime)
	day, err := store.GetPoolSnapshot(ctx, domain.GranularityDay, domain.SnapshotID(poolA, dayIdx))
	if err != nil {
		t.Fatalf("day snapshot: %v", err)
	}
	hourIdx := domain.GranularityHour.PeriodIndex(eventTime)
	hour, err := store.GetPoolSnapshot(ctx, domain.GranularityHour, domain.SnapshotID(poolA, hourIdx))
	if err != nil {
		t.Fatalf("hour snapshot: %v", err)
	}

	if !day.VolumeUSD.Equal(pool.VolumeUSD) {
		t.Errorf("day volume USD = %s, pool = %s", day.VolumeUSD, pool.VolumeUSD)
	}
	if !hour.VolumeUSD.Equal(pool.VolumeUSD) {
		t.Errorf("hour volume USD = %s, pool = %s", hour.VolumeUSD, pool.VolumeUSD)
	}
	if !day.FeesUSD.Equal(pool.FeesUSD) {
		t.Errorf("day fees USD = %s, pool = %s", day.FeesUSD, pool.FeesUSD)
	}
	if got := day.TxCount.Int64(); got != 2 {
		t.Errorf("day TxCount = %d, want 2", got)
	}

	gd, err := store.GetGlobalDaySnapshot(ctx, domain.NewGlobalDaySnapshot(dayIdx).ID)
	if err != nil {
		t.Fatalf("global day snapshot: %v", err)
	}
	if !gd.VolumeUSD.Equal(dec("3200")) {
		t.Errorf("global day volume USD = %s, want 3200", gd.VolumeUSD)
	}
}

func TestProcessSwap_MissingPoolSkipsWithoutSideEffects(t *testing.T) {
	store, _, proc := newFixture(t)

	ev := sellWETH(100, 0)
	ev.PoolID = "0xunknown"
	err := proc.ProcessSwap(context.Background(), ev)

	var me *MissingEntityError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MissingEntityError", err)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		t.Error("MissingEntityError must unwrap to ErrNotFound")
	}
	if proc.SkippedEvents != 1 {
		t.Errorf("SkippedEvents = %d, want 1", proc.SkippedEvents)
	}
	if got := store.SwapRecordCount(); got != 0 {
		t.Errorf("swap records = %d, want 0", got)
	}

	global, globalErr := store.GetGlobal(context.Background())
	if globalErr != nil {
		t.Fatalf("GetGlobal: %v", globalErr)
	}
	if got := global.TxCount.Int64(); got != 0 {
		t.Errorf("global TxCount = %d, skip must leave no side effects", got)
	}
}

func TestProcessSwap_ReplayRejected(t *testing.T) {
	store, _, proc := newFixture(t)
	ctx := context.Background()

	if err := proc.ProcessSwap(ctx, sellWETH(100, 0)); err != nil {
		t.Fatalf("first ProcessSwap: %v", err)
	}
	err := proc.ProcessSwap(ctx, sellWETH(100, 0))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("replay err = %v, want ErrDuplicateKey", err)
	}
	if got := store.SwapRecordCount(); got != 1 {
		t.Errorf("swap records = %d, want 1", got)
	}
}

func TestProcessModifyLiquidity_EnterThenExit(t *testing.T) {
	store, _, proc := newFixture(t)
	ctx := context.Background()

	// Pool B starts empty; an LP adds liquidity straddling the tick.
	if err := proc.ProcessModifyLiquidity(ctx, addLiquidity(poolB, "0xlp", 2, 200)); err != nil {
		t.Fatalf("add: %v", err)
	}

	pool, err := store.GetPool(ctx, poolB)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	// The static oracle splits a straddling delta evenly: 1e18 per leg.
	if !pool.TotalValueLockedToken0.Equal(dec("1")) || !pool.TotalValueLockedToken1.Equal(dec("1")) {
		t.Errorf("pool TVL legs = %s / %s, want 1 / 1", pool.TotalValueLockedToken0, pool.TotalValueLockedToken1)
	}
	if !pool.TotalValueLockedETH.Equal(dec("1.000625")) {
		t.Errorf("pool TVL ETH = %s, want 1.000625", pool.TotalValueLockedETH)
	}
	if pool.Liquidity.Cmp(bigE18(2)) != 0 {
		t.Errorf("pool liquidity = %s, want 2e18 (range includes current tick)", pool.Liquidity)
	}
	if got := pool.UniqueLiquidityProviderCount.Int64(); got != 1 {
		t.Errorf("pool LP count = %d, want 1", got)
	}

	hook, err := store.GetHook(ctx, hookB)
	if err != nil {
		t.Fatalf("GetHook: %v", err)
	}
	if got := hook.UniqueLiquidityProviderCount.Int64(); got != 1 {
		t.Errorf("hook LP count = %d, want 1", got)
	}

	lower, err := store.GetTick(ctx, domain.TickID(poolB, -60))
	if err != nil {
		t.Fatalf("GetTick lower: %v", err)
	}
	if lower.LiquidityGross.Cmp(bigE18(2)) != 0 || lower.LiquidityNet.Cmp(bigE18(2)) != 0 {
		t.Errorf("lower tick gross/net = %s/%s, want 2e18/2e18", lower.LiquidityGross, lower.LiquidityNet)
	}
	upper, err := store.GetTick(ctx, domain.TickID(poolB, 60))
	if err != nil {
		t.Fatalf("GetTick upper: %v", err)
	}
	if upper.LiquidityNet.Cmp(bigE18(-2)) != 0 {
		t.Errorf("upper tick net = %s, want -2e18", upper.LiquidityNet)
	}

	// Full withdrawal: balances return to zero and membership retires.
	if err := proc.ProcessModifyLiquidity(ctx, addLiquidity(poolB, "0xlp", -2, 201)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	pool, err = store.GetPool(ctx, poolB)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if !pool.TotalValueLockedETH.IsZero() {
		t.Errorf("pool TVL ETH after exit = %s, want 0", pool.TotalValueLockedETH)
	}
	if pool.Liquidity.Sign() != 0 {
		t.Errorf("pool liquidity after exit = %s, want 0", pool.Liquidity)
	}
	if got := pool.UniqueLiquidityProviderCount.Int64(); got != 0 {
		t.Errorf("pool LP count after exit = %d, want 0", got)
	}
	hook, err = store.GetHook(ctx, hookB)
	if err != nil {
		t.Fatalf("GetHook: %v", err)
	}
	if got := hook.UniqueLiquidityProviderCount.Int64(); got != 0 {
		t.Errorf("hook LP count after exit = %d, want 0", got)
	}
	// Unique users are permanent; only LP membership retires.
	if got := pool.UniqueUserCount.Int64(); got != 1 {
		t.Errorf("pool UniqueUserCount = %d, want 1", got)
	}
}

func TestProcessModifyLiquidity_OutOfRangeKeepsActiveLiquidity(t *testing.T) {
	store, _, proc := newFixture(t)
	ctx := context.Background()

	ev := addLiquidity(poolB, "0xlp", 2, 200)
	ev.TickLower = 60
	ev.TickUpper = 120
	if err := proc.ProcessModifyLiquidity(ctx, ev); err != nil {
		t.Fatalf("ProcessModifyLiquidity: %v", err)
	}

	pool, err := store.GetPool(ctx, poolB)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if pool.Liquidity.Sign() != 0 {
		t.Errorf("pool liquidity = %s, want 0 for an out-of-range position", pool.Liquidity)
	}
	// Below the range the whole delta sits in token0.
	if !pool.TotalValueLockedToken0.Equal(dec("2")) || !pool.TotalValueLockedToken1.IsZero() {
		t.Errorf("pool TVL legs = %s / %s, want 2 / 0", pool.TotalValueLockedToken0, pool.TotalValueLockedToken1)
	}
}

func TestProcessModifyLiquidity_UninitializedPoolSkips(t *testing.T) {
	store, _, proc := newFixture(t)
	ctx := context.Background()

	// A pool that never saw an initialization has no current tick.
	seed := storage.NewWorkingSet()
	seed.Pools["0xdark"] = domain.NewPoolAggregate("0xdark", weth, dai, hookA, 3000, eventTime)
	if err := store.Commit(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := proc.ProcessModifyLiquidity(ctx, addLiquidity("0xdark", "0xlp", 2, 200))
	var me *MissingEntityError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MissingEntityError", err)
	}
	if me.Kind != "pool state" {
		t.Errorf("skip kind = %q, want pool state", me.Kind)
	}
	if proc.SkippedEvents != 1 {
		t.Errorf("SkippedEvents = %d, want 1", proc.SkippedEvents)
	}
	if got := store.ModifyRecordCount(); got != 0 {
		t.Errorf("modify records = %d, want 0", got)
	}
}

// Global totals must equal the sum over hooks, which must equal the sum
// over pools, whichever pools and hooks the activity touched.
func TestHierarchy_GlobalEqualsSumOfScopes(t *testing.T) {
	store, _, proc := newFixture(t)
	ctx := context.Background()

	if err := proc.ProcessModifyLiquidity(ctx, addLiquidity(poolA, "0xlp1", 4, 200)); err != nil {
		t.Fatalf("modify pool A: %v", err)
	}
	if err := proc.ProcessModifyLiquidity(ctx, addLiquidity(poolB, "0xlp2", 2, 201)); err != nil {
		t.Fatalf("modify pool B: %v", err)
	}
	if err := proc.ProcessSwap(ctx, sellWETH(202, 0)); err != nil {
		t.Fatalf("swap pool A: %v", err)
	}

	global, err := store.GetGlobal(ctx)
	if err != nil {
		t.Fatalf("GetGlobal: %v", err)
	}
	ha, err := store.GetHook(ctx, hookA)
	if err != nil {
		t.Fatalf("GetHook A: %v", err)
	}
	hb, err := store.GetHook(ctx, hookB)
	if err != nil {
		t.Fatalf("GetHook B: %v", err)
	}
	pa, err := store.GetPool(ctx, poolA)
	if err != nil {
		t.Fatalf("GetPool A: %v", err)
	}
	pb, err := store.GetPool(ctx, poolB)
	if err != nil {
		t.Fatalf("GetPool B: %v", err)
	}

	hookSum := ha.TotalValueLockedETH.Add(hb.TotalValueLockedETH)
	poolSum := pa.TotalValueLockedETH.Add(pb.TotalValueLockedETH)
	if !global.TotalValueLockedETH.Equal(hookSum) {
		t.Errorf("global TVL ETH = %s, hook sum = %s", global.TotalValueLockedETH, hookSum)
	}
	if !global.TotalValueLockedETH.Equal(poolSum) {
		t.Errorf("global TVL ETH = %s, pool sum = %s", global.TotalValueLockedETH, poolSum)
	}

	if got := global.TxCount.Int64(); got != 3 {
		t.Errorf("global TxCount = %d, want 3", got)
	}
}
