package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := map[goSession.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	if len(CounterDefs) != int(goSession.MetricValidateLatency) {
		t.Fatalf("expected %d counters, got %d", goSession.MetricValidateLatency, len(CounterDefs))
	}
}

func TestHistogramDefsAreHistograms(t *testing.T) {
	if len(HistogramDefs) != 2 {
		t.Fatalf("expected validate and refresh latency, got %d defs", len(HistogramDefs))
	}
	for _, def := range HistogramDefs {
		if !def.ID.IsHistogram() {
			t.Fatalf("%s is bound to a counter id", def.Name)
		}
		if !strings.HasSuffix(def.Name, "_seconds") {
			t.Fatalf("bad histogram name %s", def.Name)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 0, 3}))
	want := [8]uint64{1, 3, 3, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(HistogramBoundSuffix) != len(HistogramBounds)+1 {
		t.Fatal("suffixes must cover every bound plus +Inf")
	}
}
