package store

import (
	"context"
	"testing"
	"time"
)

func TestKeyLayout(t *testing.T) {
	cases := []struct {
		got  string
		want string
	}{
		{PuzzleKey("42", "2026-08-27", "quote"), "community:42:date:2026-08-27:game:quote"},
		{NamesKey("42", "2026-08-27"), "community:42:date:2026-08-27:names"},
		{MetricsKey("42", "2026-08-27"), "community:42:date:2026-08-27:metrics"},
		{AllowedKey("42", "2026-08-27"), "community:42:date:2026-08-27:allowed_usernames"},
		{LatestDateKey("42"), "community:42:latest_date"},
		{LatestGameKey("42", "quote"), "community:42:latest_game:quote"},
		{StatsKey(GlobalScope(), MetricViews), "stats:global:views"},
		{StatsKey(CommunityScope("42"), MetricViews), "stats:guild:42:views"},
		{StatsKey(CommunityDayScope("42", "2026-08-27"), MetricViews), "stats:guild:42:2026-08-27:views"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("expected key %q, got %q", tc.want, tc.got)
		}
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	if _, err := kv.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := kv.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := kv.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("expected v, got %q (%v)", got, err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	clock := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return clock }

	if err := kv.Set(ctx, "k", "v", time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); err != nil {
		t.Fatalf("expected live entry, got %v", err)
	}

	clock = clock.Add(2 * time.Hour)
	if _, err := kv.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestIncrCounter(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	scope := CommunityScope("42")

	for i := 1; i <= 3; i++ {
		if err := IncrCounter(ctx, kv, scope, MetricGuessedCorrectly); err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
	}

	raw, err := kv.Get(ctx, StatsKey(scope, MetricGuessedCorrectly))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if raw != "3" {
		t.Fatalf("expected counter 3, got %q", raw)
	}
}

func TestIncrCounterRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	key := StatsKey("global", MetricViews)
	if err := kv.Set(ctx, key, "not-a-number", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := IncrCounter(ctx, kv, "global", MetricViews); err == nil {
		t.Fatal("expected an error for a corrupt counter")
	}
}

func TestReadCountersDefaultsAbsentToZero(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	scope := GlobalScope()

	if err := IncrCounter(ctx, kv, scope, MetricViews); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	counters, err := ReadCounters(ctx, kv, scope)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(counters) != len(CounterMetrics) {
		t.Fatalf("expected %d metrics, got %d", len(CounterMetrics), len(counters))
	}
	if counters[MetricViews] != 1 {
		t.Fatalf("expected views 1, got %d", counters[MetricViews])
	}
	for _, metric := range []string{MetricGuessesTotal, MetricGuessedCorrectly, MetricActivePlayers, MetricCompletedGames} {
		if counters[metric] != 0 {
			t.Fatalf("expected %s to default to 0, got %d", metric, counters[metric])
		}
	}
}
