package acquire

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrMysteryCode/Friendle/internal/core"
	"github.com/MrMysteryCode/Friendle/internal/registry"
)

// fakeProvider serves a fixed per-channel history, newest first, the way the
// real API pages it.
type fakeProvider struct {
	channels []Channel
	history  map[string][]core.Message // newest first
	errs     map[string]error
	fetches  int
}

func (f *fakeProvider) Channels(context.Context) ([]Channel, error) {
	return f.channels, nil
}

func (f *fakeProvider) MessagesBefore(_ context.Context, channelID, beforeID string, limit int) ([]core.Message, error) {
	f.fetches++
	if err := f.errs[channelID]; err != nil {
		return nil, err
	}
	msgs := f.history[channelID]
	start := 0
	if beforeID != "" {
		start = len(msgs)
		for i, m := range msgs {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	if start >= len(msgs) {
		return nil, nil
	}
	return msgs[start:end], nil
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad timestamp %q: %v", value, err)
	}
	return ts
}

func fixedNow(value time.Time) func() time.Time {
	return func() time.Time { return value }
}

func TestAcquireDailyPrefersYesterday(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		channels: []Channel{{ID: "c1"}},
		history: map[string][]core.Message{
			"c1": {
				{ID: "5", AuthorID: "a", Ts: at(t, "2026-08-28T08:00:00Z"), Content: "today"},
				{ID: "4", AuthorID: "a", Ts: at(t, "2026-08-27T20:00:00Z"), Content: "late yesterday"},
				{ID: "3", AuthorID: "a", Ts: at(t, "2026-08-27T06:00:00Z"), Content: "early yesterday"},
				{ID: "2", AuthorID: "b", Ts: at(t, "2026-08-27T05:00:00Z"), Content: "not opted in"},
				{ID: "1", AuthorID: "a", Ts: at(t, "2026-08-25T12:00:00Z"), Content: "too old"},
			},
		},
	}
	engine := New(provider, registry.NewStatic("a"), Options{Now: fixedNow(now)})

	sample := engine.AcquireDaily(context.Background())
	if sample.Date != "2026-08-27" {
		t.Fatalf("expected yesterday's date, got %q", sample.Date)
	}
	if len(sample.Messages) != 2 {
		t.Fatalf("expected 2 retained messages, got %d", len(sample.Messages))
	}
	for _, msg := range sample.Messages {
		if msg.AuthorID != "a" {
			t.Fatalf("retained message from non-opted-in author %q", msg.AuthorID)
		}
		if msg.ID == "5" {
			t.Fatal("today's message leaked into yesterday's sample")
		}
	}
	if sample.Messages[0].ID != "4" {
		t.Fatalf("expected newest-first order, got %q first", sample.Messages[0].ID)
	}
}

func TestAcquireDailyFallsBackToToday(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		channels: []Channel{{ID: "c1"}},
		history: map[string][]core.Message{
			"c1": {
				{ID: "2", AuthorID: "a", Ts: at(t, "2026-08-28T08:00:00Z"), Content: "today"},
				{ID: "1", AuthorID: "a", Ts: at(t, "2026-08-20T12:00:00Z"), Content: "old"},
			},
		},
	}
	engine := New(provider, registry.NewStatic("a"), Options{Now: fixedNow(now)})

	sample := engine.AcquireDaily(context.Background())
	if sample.Date != "2026-08-28" {
		t.Fatalf("expected today's date, got %q", sample.Date)
	}
	if len(sample.Messages) != 1 || sample.Messages[0].ID != "2" {
		t.Fatalf("unexpected sample: %+v", sample.Messages)
	}
}

func TestAcquireDailyFallbackScanDateIsDataDriven(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		channels: []Channel{
			{ID: "stale", LastActive: at(t, "2026-08-01T00:00:00Z")},
			{ID: "busy", LastActive: at(t, "2026-08-20T00:00:00Z")},
		},
		history: map[string][]core.Message{
			"busy": {
				{ID: "9", AuthorID: "a", Ts: at(t, "2026-08-20T15:00:00Z"), Content: "newest retained"},
				{ID: "8", AuthorID: "a", Ts: at(t, "2026-08-19T10:00:00Z"), Content: "older"},
			},
			"stale": {
				{ID: "1", AuthorID: "a", Ts: at(t, "2026-07-30T10:00:00Z"), Content: "ancient"},
			},
		},
	}
	engine := New(provider, registry.NewStatic("a"), Options{Now: fixedNow(now)})

	sample := engine.AcquireDaily(context.Background())
	if sample.Empty() {
		t.Fatal("expected fallback scan to retain messages")
	}
	if sample.Date != "2026-08-20" {
		t.Fatalf("expected data-driven date 2026-08-20, got %q", sample.Date)
	}
	if sample.Messages[0].ID != "9" {
		t.Fatalf("expected newest message first, got %q", sample.Messages[0].ID)
	}
}

func TestAcquireDailyEmptyCascade(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		channels: []Channel{{ID: "c1"}},
		history:  map[string][]core.Message{},
	}
	engine := New(provider, registry.NewStatic("a"), Options{Now: fixedNow(now)})

	sample := engine.AcquireDaily(context.Background())
	if !sample.Empty() {
		t.Fatalf("expected empty sample, got %d messages", len(sample.Messages))
	}
	if sample.Date != "2026-08-28" {
		t.Fatalf("expected current-day label on empty sample, got %q", sample.Date)
	}
}

func TestFallbackScanStopsAtMinSample(t *testing.T) {
	var history []core.Message
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 400; i++ {
		history = append(history, core.Message{
			ID:       fmt.Sprintf("%04d", 400-i),
			AuthorID: "a",
			Ts:       base.Add(-time.Duration(i) * time.Minute),
			Content:  "hello",
		})
	}
	provider := &fakeProvider{
		channels: []Channel{{ID: "c1"}},
		history:  map[string][]core.Message{"c1": history},
	}
	engine := New(provider, registry.NewStatic("a"), Options{Now: fixedNow(base)})

	sample := engine.fallbackScan(context.Background(), provider.channels, nil, Budget{MinSample: 15})
	if len(sample.Messages) != 15 {
		t.Fatalf("expected scan to stop at 15 retained messages, got %d", len(sample.Messages))
	}
	if provider.fetches != 1 {
		t.Fatalf("expected a single page fetch, got %d", provider.fetches)
	}
}

func TestFallbackScanRespectsMaxScan(t *testing.T) {
	var history []core.Message
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 300; i++ {
		history = append(history, core.Message{
			ID:       fmt.Sprintf("%04d", 300-i),
			AuthorID: "nobody",
			Ts:       base.Add(-time.Duration(i) * time.Minute),
		})
	}
	provider := &fakeProvider{
		channels: []Channel{{ID: "c1"}},
		history:  map[string][]core.Message{"c1": history},
	}
	engine := New(provider, registry.NewStatic("a"), Options{Now: fixedNow(base)})

	sample := engine.fallbackScan(context.Background(), provider.channels, nil, Budget{MaxScan: 150, MinSample: 1})
	if !sample.Empty() {
		t.Fatalf("expected empty sample, got %d messages", len(sample.Messages))
	}
	if provider.fetches != 2 {
		t.Fatalf("expected scan budget to stop after 2 pages, got %d fetches", provider.fetches)
	}
}

func TestEscalateRunsStrategiesInOrder(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		channels: []Channel{{ID: "c1"}},
		history: map[string][]core.Message{
			"c1": {
				{ID: "2", AuthorID: "a", Ts: base, Content: "plain words"},
				{ID: "1", AuthorID: "a", Ts: base.Add(-time.Hour), Content: ""},
			},
		},
	}
	engine := New(provider, registry.NewStatic("a"), Options{Now: fixedNow(base)})

	strategies := []Strategy{
		{
			Name:      "never-matches",
			Predicate: func(core.Message) bool { return false },
			Budget:    Budget{MinSample: 1},
		},
		{
			Name:      "non-empty",
			Predicate: func(m core.Message) bool { return m.Content != "" },
			Budget:    Budget{MinSample: 1},
		},
	}

	sample := engine.Escalate(context.Background(), strategies)
	if sample.Empty() {
		t.Fatal("expected second strategy to produce a sample")
	}
	if len(sample.Messages) != 1 || sample.Messages[0].ID != "2" {
		t.Fatalf("unexpected sample: %+v", sample.Messages)
	}
}

func TestRangeScanSkipsUnreadableChannel(t *testing.T) {
	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		channels: []Channel{{ID: "locked"}, {ID: "open"}},
		history: map[string][]core.Message{
			"open": {
				{ID: "1", AuthorID: "a", Ts: at(t, "2026-08-27T10:00:00Z"), Content: "hi"},
			},
		},
		errs: map[string]error{"locked": errors.New("missing access")},
	}
	engine := New(provider, registry.NewStatic("a"), Options{Now: fixedNow(now)})

	sample := engine.AcquireDaily(context.Background())
	if len(sample.Messages) != 1 || sample.Messages[0].ID != "1" {
		t.Fatalf("expected the readable channel's message, got %+v", sample.Messages)
	}
}
