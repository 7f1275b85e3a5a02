package ingestion

import (
	"encoding/json"
	"testing"

	"dex-hook-stats/internal/domain"
)

func TestDecodeFrame_Swap(t *testing.T) {
	payload := `{
		"kind": "swap",
		"pool_id": "0xpool",
		"sender": "0xrouter",
		"origin": "0xtrader",
		"amount0": "-1000000000000000000",
		"amount1": "1600000000",
		"liquidity": "123456789",
		"sqrt_price_x96": "79228162514264337593543950336",
		"tick": 12,
		"timestamp": 1700000000,
		"block_number": 55,
		"tx_index": 3,
		"log_index": 7,
		"tx_hash": "0xabc"
	}`

	var frame eventFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ev, err := decodeFrame(&frame)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if ev.Kind != domain.EventKindSwap || ev.Swap == nil {
		t.Fatalf("decoded wrong variant: %+v", ev)
	}
	sw := ev.Swap
	if sw.PoolID != "0xpool" || sw.Sender != "0xrouter" || sw.Origin != "0xtrader" {
		t.Errorf("addresses = %s/%s/%s", sw.PoolID, sw.Sender, sw.Origin)
	}
	if sw.Amount0.String() != "-1000000000000000000" {
		t.Errorf("Amount0 = %s", sw.Amount0)
	}
	if sw.Amount1.String() != "1600000000" {
		t.Errorf("Amount1 = %s", sw.Amount1)
	}
	if sw.Tick != 12 {
		t.Errorf("Tick = %d", sw.Tick)
	}
	if sw.SqrtPriceX96.String() != "79228162514264337593543950336" {
		t.Errorf("SqrtPriceX96 = %s", sw.SqrtPriceX96)
	}
	want := domain.EventCoords{BlockNumber: 55, TxIndex: 3, LogIndex: 7, TxHash: "0xabc"}
	if sw.Coords != want {
		t.Errorf("Coords = %+v, want %+v", sw.Coords, want)
	}
}

func TestDecodeFrame_ModifyLiquidity(t *testing.T) {
	frame := eventFrame{
		Kind:        string(domain.EventKindModifyLiquidity),
		PoolID:      "0xpool",
		Sender:      "0xmanager",
		Origin:      "0xlp",
		Delta:       "-500",
		TickLower:   -60,
		TickUpper:   60,
		Timestamp:   1700000000,
		BlockNumber: 56,
		TxHash:      "0xdef",
	}

	ev, err := decodeFrame(&frame)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if ev.Kind != domain.EventKindModifyLiquidity || ev.ModifyLiquidity == nil {
		t.Fatalf("decoded wrong variant: %+v", ev)
	}
	ml := ev.ModifyLiquidity
	if ml.LiquidityDelta.String() != "-500" {
		t.Errorf("LiquidityDelta = %s", ml.LiquidityDelta)
	}
	if ml.TickLower != -60 || ml.TickUpper != 60 {
		t.Errorf("tick range = [%d, %d]", ml.TickLower, ml.TickUpper)
	}
}

func TestDecodeFrame_Rejects(t *testing.T) {
	tick := int32(0)
	cases := []struct {
		name  string
		frame eventFrame
	}{
		{"unknown kind", eventFrame{Kind: "donate", PoolID: "0xpool"}},
		{"swap missing tick", eventFrame{
			Kind: "swap", PoolID: "0xpool",
			Amount0: "1", Amount1: "2", Liquidity: "3", SqrtPriceX96: "4",
		}},
		{"swap bad amount", eventFrame{
			Kind: "swap", PoolID: "0xpool", Tick: &tick,
			Amount0: "not-a-number", Amount1: "2", Liquidity: "3", SqrtPriceX96: "4",
		}},
		{"modify missing delta", eventFrame{
			Kind: "modify_liquidity", PoolID: "0xpool",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeFrame(&tc.frame); err == nil {
				t.Errorf("decodeFrame accepted %s", tc.name)
			}
		})
	}
}
