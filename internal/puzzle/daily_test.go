package puzzle

import (
	"testing"
	"time"

	"github.com/MrMysteryCode/Friendle/internal/activity"
	"github.com/MrMysteryCode/Friendle/internal/core"
)

func TestBuildDailyEveryAuthorReachable(t *testing.T) {
	ts := time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC)
	sample := &core.Sample{
		Date: "2026-08-27",
		Messages: []core.Message{
			{ID: "3", AuthorID: "a", Ts: ts, Content: "afternoon chat"},
			{ID: "2", AuthorID: "b", Ts: ts, Content: "hello"},
			{ID: "1", AuthorID: "c", Ts: ts, Content: "hey"},
		},
	}
	members := []core.Member{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	metrics := activity.Synthesize(members, sample, ts)

	picked := make(map[string]int)
	for seed := int64(0); seed < 1000; seed++ {
		p := BuildDaily(sample, metrics, newSeeded(seed))
		if p == nil {
			t.Fatal("expected a daily puzzle")
		}
		if _, ok := metrics[p.SolutionUserID]; !ok {
			t.Fatalf("seed %d: answer %q is not a sampled author", seed, p.SolutionUserID)
		}
		if p.Degraded {
			t.Fatalf("seed %d: non-degraded build flagged degraded", seed)
		}
		picked[p.SolutionUserID]++
	}
	for _, id := range []string{"a", "b", "c"} {
		if picked[id] == 0 {
			t.Fatalf("author %q never selected across 1000 runs: %v", id, picked)
		}
	}
}

func TestBuildDailyCluesFromMetrics(t *testing.T) {
	ts := time.Date(2026, 8, 27, 8, 0, 0, 0, time.UTC)
	sample := &core.Sample{
		Date: "2026-08-27",
		Messages: []core.Message{
			{ID: "2", AuthorID: "a", Ts: ts.Add(9 * time.Hour), Content: "evening raid tonight", Mentions: 1},
			{ID: "1", AuthorID: "a", Ts: ts, Content: "raid plans"},
		},
	}
	metrics := activity.Synthesize([]core.Member{{ID: "a", CreatedAt: ts.AddDate(-5, 0, 0)}}, sample, ts)

	p := BuildDaily(sample, metrics, newSeeded(0))
	if p == nil {
		t.Fatal("expected a daily puzzle")
	}
	if p.SolutionUserID != "a" {
		t.Fatalf("expected author a, got %q", p.SolutionUserID)
	}
	if p.MessageCount != 2 || p.Mentions != 1 {
		t.Fatalf("unexpected counts: %+v", p)
	}
	if p.TopWord != "raid" {
		t.Fatalf("expected top word raid, got %q", p.TopWord)
	}
	if p.ActiveWindow != "Morning — Evening" {
		t.Fatalf("unexpected window %q", p.ActiveWindow)
	}
	if p.FirstMessageBucket != activity.BucketMorning {
		t.Fatalf("unexpected first bucket %q", p.FirstMessageBucket)
	}
	if p.AccountAgeRange != "4+ years" {
		t.Fatalf("unexpected age range %q", p.AccountAgeRange)
	}
	if p.Game != core.GameDaily || p.Date != "2026-08-27" {
		t.Fatalf("unexpected envelope: game=%q date=%q", p.Game, p.Date)
	}
}

func TestBuildDailyEmptySample(t *testing.T) {
	if p := BuildDaily(&core.Sample{Date: "2026-08-27"}, nil, newSeeded(1)); p != nil {
		t.Fatalf("expected nil puzzle for empty sample, got %+v", p)
	}
}

func TestBuildDailyDegraded(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	metrics := activity.Synthesize([]core.Member{
		{ID: "a", CreatedAt: now.AddDate(-2, 0, -10)},
		{ID: "b", CreatedAt: now.AddDate(0, -3, 0)},
	}, nil, now)

	p := BuildDailyDegraded("2026-08-28", metrics, newSeeded(4))
	if p == nil {
		t.Fatal("expected a degraded daily puzzle")
	}
	if !p.Degraded {
		t.Fatal("expected the degraded flag to be set")
	}
	if p.MessageCount != 0 {
		t.Fatalf("expected zero message count, got %d", p.MessageCount)
	}
	if p.TopWord != "None" || p.FirstMessageBucket != "None" {
		t.Fatalf("expected None clues, got %q / %q", p.TopWord, p.FirstMessageBucket)
	}
	if p.ActiveWindow != activity.NotActive {
		t.Fatalf("expected %q window, got %q", activity.NotActive, p.ActiveWindow)
	}
	if p.AccountAgeRange == "" {
		t.Fatal("expected an account age clue even without messages")
	}
}

func TestBuildDailyDegradedNoMembers(t *testing.T) {
	if p := BuildDailyDegraded("2026-08-28", nil, newSeeded(1)); p != nil {
		t.Fatalf("expected nil puzzle without members, got %+v", p)
	}
}
