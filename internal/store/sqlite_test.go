package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := openTestSQLite(t)

	if _, err := kv.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := kv.Set(ctx, "k", "v1", TTL); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got, err := kv.Get(ctx, "k"); err != nil || got != "v1" {
		t.Fatalf("expected v1, got %q (%v)", got, err)
	}

	// Second write to the same key is an upsert, not a conflict.
	if err := kv.Set(ctx, "k", "v2", TTL); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if got, _ := kv.Get(ctx, "k"); got != "v2" {
		t.Fatalf("expected v2 after overwrite, got %q", got)
	}
}

func TestSQLiteExpiry(t *testing.T) {
	ctx := context.Background()
	kv := openTestSQLite(t)

	if err := kv.Set(ctx, "k", "v", time.Nanosecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := kv.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expected expired entry to be gone, got %v", err)
	}
}

func TestSQLiteCounters(t *testing.T) {
	ctx := context.Background()
	kv := openTestSQLite(t)
	scope := CommunityDayScope("42", "2026-08-27")

	if err := IncrCounter(ctx, kv, scope, MetricViews); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := IncrCounter(ctx, kv, scope, MetricViews); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	counters, err := ReadCounters(ctx, kv, scope)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if counters[MetricViews] != 2 {
		t.Fatalf("expected views 2, got %d", counters[MetricViews])
	}
}
