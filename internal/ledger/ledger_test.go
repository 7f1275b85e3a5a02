package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testHierarchy() (*domain.GlobalAggregate, *domain.HookAggregate, *domain.PoolAggregate) {
	g := domain.NewGlobalAggregate()
	h := domain.NewHookAggregate("0xhook", 1700000000)
	p := domain.NewPoolAggregate("0xpool", "0xt0", "0xt1", h.ID, 3000, 1700000000)
	return g, h, p
}

func TestSubtractAddPoolTVL_Reconciles(t *testing.T) {
	g, h, p := testHierarchy()
	ethPrice := dec("1600")

	// Pool carries 10 ETH of TVL, already reflected upward.
	p.TotalValueLockedETH = dec("10")
	g.TotalValueLockedETH = dec("10")
	h.TotalValueLockedETH = dec("10")

	alarms := SubtractPoolTVL(g, h, p.TotalValueLockedETH)
	if len(alarms) != 0 {
		t.Fatalf("unexpected alarms on subtract: %v", alarms)
	}
	if !g.TotalValueLockedETH.IsZero() || !h.TotalValueLockedETH.IsZero() {
		t.Fatalf("subtract left global=%s hook=%s, want zero", g.TotalValueLockedETH, h.TotalValueLockedETH)
	}

	// The pool's TVL changes, then is re-added.
	p.TotalValueLockedETH = dec("12.5")
	alarms = AddPoolTVL(g, h, p, ethPrice)
	if len(alarms) != 0 {
		t.Fatalf("unexpected alarms on add: %v", alarms)
	}
	if !g.TotalValueLockedETH.Equal(dec("12.5")) {
		t.Errorf("global TVL = %s, want 12.5", g.TotalValueLockedETH)
	}
	if !h.TotalValueLockedETH.Equal(dec("12.5")) {
		t.Errorf("hook TVL = %s, want 12.5", h.TotalValueLockedETH)
	}
	if !g.TotalValueLockedUSD.Equal(dec("20000")) {
		t.Errorf("global TVL USD = %s, want 20000", g.TotalValueLockedUSD)
	}
	if !h.TotalValueLockedUSD.Equal(dec("20000")) {
		t.Errorf("hook TVL USD = %s, want 20000", h.TotalValueLockedUSD)
	}
}

func TestSubtractPoolTVL_AlarmsOnNegative(t *testing.T) {
	g, h, _ := testHierarchy()
	g.TotalValueLockedETH = dec("3")
	h.TotalValueLockedETH = dec("5")

	alarms := SubtractPoolTVL(g, h, dec("4"))
	if len(alarms) != 1 {
		t.Fatalf("alarms = %v, want one global alarm", alarms)
	}
	if alarms[0].Level != "global" {
		t.Errorf("alarm level = %s, want global", alarms[0].Level)
	}
	// Values stay as computed; the alarm does not clamp.
	if !g.TotalValueLockedETH.Equal(dec("-1")) {
		t.Errorf("global TVL = %s, want -1", g.TotalValueLockedETH)
	}
	if !h.TotalValueLockedETH.Equal(dec("1")) {
		t.Errorf("hook TVL = %s, want 1", h.TotalValueLockedETH)
	}
}

func TestAddPoolTVL_AlarmsOnNegativePool(t *testing.T) {
	g, h, p := testHierarchy()
	p.TotalValueLockedETH = dec("-2")

	alarms := AddPoolTVL(g, h, p, dec("1600"))
	found := map[string]bool{}
	for _, a := range alarms {
		found[a.Level] = true
	}
	if !found["pool"] || !found["global"] || !found["hook"] {
		t.Fatalf("alarms = %v, want pool, global and hook", alarms)
	}
}

func TestRecomputePoolTVL(t *testing.T) {
	_, _, p := testHierarchy()
	token0 := domain.NewTokenAggregate("0xt0", "WETH", 18)
	token0.DerivedETH = dec("1")
	token1 := domain.NewTokenAggregate("0xt1", "USDC", 6)
	token1.DerivedETH = dec("0.000625") // 1/1600

	p.TotalValueLockedToken0 = dec("4")
	p.TotalValueLockedToken1 = dec("6400")

	RecomputePoolTVL(p, token0, token1, dec("1600"))
	if !p.TotalValueLockedETH.Equal(dec("8")) {
		t.Errorf("pool TVL ETH = %s, want 8", p.TotalValueLockedETH)
	}
	if !p.TotalValueLockedUSD.Equal(dec("12800")) {
		t.Errorf("pool TVL USD = %s, want 12800", p.TotalValueLockedUSD)
	}
}

func TestRecomputeTokenTVLUSD(t *testing.T) {
	token := domain.NewTokenAggregate("0xt0", "WETH", 18)
	token.DerivedETH = dec("1")
	token.TotalValueLocked = dec("2.5")

	RecomputeTokenTVLUSD(token, dec("1600"))
	if !token.TotalValueLockedUSD.Equal(dec("4000")) {
		t.Errorf("token TVL USD = %s, want 4000", token.TotalValueLockedUSD)
	}
}

func TestAccumulateSwapTotals_AllLevels(t *testing.T) {
	g, h, p := testHierarchy()
	token0 := domain.NewTokenAggregate("0xt0", "WETH", 18)
	token1 := domain.NewTokenAggregate("0xt1", "USDC", 6)

	totals := SwapTotals{
		Amount0Abs:   dec("1"),
		Amount1Abs:   dec("1600"),
		TrackedETH:   dec("1"),
		TrackedUSD:   dec("1600"),
		UntrackedUSD: dec("1600"),
		FeesETH:      dec("0.003"),
		FeesUSD:      dec("4.8"),
	}
	AccumulateSwapTotals(g, h, p, token0, token1, totals)
	AccumulateSwapTotals(g, h, p, token0, token1, totals)

	if got := g.TxCount.Int64(); got != 2 {
		t.Errorf("global TxCount = %d, want 2", got)
	}
	if !g.TotalVolumeUSD.Equal(dec("3200")) {
		t.Errorf("global volume USD = %s, want 3200", g.TotalVolumeUSD)
	}
	if !g.TotalFeesETH.Equal(dec("0.006")) {
		t.Errorf("global fees ETH = %s, want 0.006", g.TotalFeesETH)
	}
	if !h.VolumeUSD.Equal(dec("3200")) || !h.TradingVolumeUSD.Equal(dec("3200")) {
		t.Errorf("hook volume = %s / %s, want 3200 both", h.VolumeUSD, h.TradingVolumeUSD)
	}
	if !h.UntrackedTradingVolumeUSD.Equal(dec("3200")) {
		t.Errorf("hook untracked volume = %s, want 3200", h.UntrackedTradingVolumeUSD)
	}
	if !p.VolumeToken0.Equal(dec("2")) || !p.VolumeToken1.Equal(dec("3200")) {
		t.Errorf("pool token volumes = %s / %s", p.VolumeToken0, p.VolumeToken1)
	}
	if got := p.TxCount.Int64(); got != 2 {
		t.Errorf("pool TxCount = %d, want 2", got)
	}
	if !token0.Volume.Equal(dec("2")) {
		t.Errorf("token0 volume = %s, want 2", token0.Volume)
	}
	if !token1.Volume.Equal(dec("3200")) {
		t.Errorf("token1 volume = %s, want 3200", token1.Volume)
	}
	if got := token0.TxCount.Int64(); got != 2 {
		t.Errorf("token0 TxCount = %d, want 2", got)
	}
}
