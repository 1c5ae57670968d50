package evolve

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func openTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := OpenMetrics(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("OpenMetrics failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestTrack_RollingAverage(t *testing.T) {
	m := openTestMetrics(t)
	ctx := context.Background()

	rate, err := m.Track(ctx, "act/summarize", 1.0, "summarize a report")
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if rate != 1.0 {
		t.Errorf("after one success, rate = %g", rate)
	}

	if _, err := m.Track(ctx, "act/summarize", 0.0, "summarize again"); err != nil {
		t.Fatal(err)
	}
	rate, err = m.Track(ctx, "act/summarize", 0.5, "third run")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rate-0.5) > 1e-9 {
		t.Errorf("after 1.0, 0.0, 0.5 rate = %g, want 0.5", rate)
	}

	stats, ok := m.Stats(ctx, "act/summarize")
	if !ok {
		t.Fatal("Stats missing tracked unit")
	}
	if stats.Runs != 3 || math.Abs(stats.TotalSuccess-1.5) > 1e-9 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.LastUsed.IsZero() {
		t.Error("last_used not recorded")
	}
}

func TestRate_DefaultForUnknown(t *testing.T) {
	m := openTestMetrics(t)
	if rate := m.Rate(context.Background(), "sense/never_seen"); rate != 0.5 {
		t.Errorf("unknown unit rate = %g, want 0.5", rate)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	m := openTestMetrics(t)
	ctx := context.Background()

	for i, success := range []float64{0.1, 0.2, 0.3} {
		if _, err := m.Track(ctx, "feedback/emit", success, "task"); err != nil {
			t.Fatalf("Track %d: %v", i, err)
		}
	}

	events, err := m.History(ctx, "feedback/emit", 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Success != 0.3 || events[1].Success != 0.2 {
		t.Errorf("history order wrong: %+v", events)
	}

	if _, ok := m.Stats(ctx, "feedback/other"); ok {
		t.Error("Stats reported an untracked unit")
	}
}
