package domain

import "testing"

func TestGranularityPeriodIndex(t *testing.T) {
	ts := int64(1700000000)
	cases := []struct {
		g    Granularity
		want int64
	}{
		{GranularityDay, 19675},
		{GranularityHour, 472222},
		{GranularityMinute, 28333333},
	}
	for _, tc := range cases {
		if got := tc.g.PeriodIndex(ts); got != tc.want {
			t.Errorf("%s.PeriodIndex(%d) = %d, want %d", tc.g, ts, got, tc.want)
		}
	}
}

func TestGranularityPeriodStart(t *testing.T) {
	idx := GranularityDay.PeriodIndex(1700000000)
	start := GranularityDay.PeriodStart(idx)
	if start != 19675*86400 {
		t.Errorf("PeriodStart = %d, want %d", start, 19675*86400)
	}
	if GranularityDay.PeriodIndex(start) != idx {
		t.Error("PeriodStart must land inside the same bucket")
	}
}

func TestSnapshotID(t *testing.T) {
	if got := SnapshotID("0xpool", 19675); got != "0xpool-19675" {
		t.Errorf("SnapshotID = %q", got)
	}
	if got := SnapshotID("0xpool", SentinelPeriodIndex); got != "0xpool-0" {
		t.Errorf("sentinel SnapshotID = %q", got)
	}
}

func TestCompositeIDs(t *testing.T) {
	if got := PoolParticipantID("0xpool", "0xalice"); got != "0xpool-0xalice" {
		t.Errorf("PoolParticipantID = %q", got)
	}
	if got := HookParticipantID("0xhook", "0xalice"); got != "0xhook-0xalice" {
		t.Errorf("HookParticipantID = %q", got)
	}
	if got := TickID("0xpool", -887220); got != "0xpool#-887220" {
		t.Errorf("TickID = %q", got)
	}
	if got := ActivityID("0xtx", 3); got != "0xtx-3" {
		t.Errorf("ActivityID = %q", got)
	}
}
