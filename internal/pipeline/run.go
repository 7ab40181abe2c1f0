// Package pipeline runs one acquisition-and-synthesis pass for a community:
// shared sample, the four builders with their fallbacks, activity metrics,
// and signed submission.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/MrMysteryCode/Friendle/internal/acquire"
	"github.com/MrMysteryCode/Friendle/internal/activity"
	"github.com/MrMysteryCode/Friendle/internal/core"
	"github.com/MrMysteryCode/Friendle/internal/ingest"
	"github.com/MrMysteryCode/Friendle/internal/puzzle"
	"github.com/MrMysteryCode/Friendle/internal/registry"
)

// MemberSource yields the community's member snapshot.
type MemberSource interface {
	Members(ctx context.Context) ([]core.Member, error)
}

// Submitter is the ingestion surface the runner needs; satisfied by
// *ingest.Client.
type Submitter interface {
	SubmitPuzzle(ctx context.Context, communityID string, p core.Puzzle) error
	SubmitMeta(ctx context.Context, meta ingest.MetaEnvelope) error
}

type Options struct {
	CommunityID string
	QuoteMinLen int
	Source      puzzle.Source    // defaults to puzzle.DefaultSource
	Now         func() time.Time // injectable clock
}

type Runner struct {
	engine   *acquire.Engine
	members  MemberSource
	registry registry.Registry
	ingest   Submitter
	opts     Options
}

func NewRunner(engine *acquire.Engine, members MemberSource, reg registry.Registry, submitter Submitter, opts Options) *Runner {
	if opts.Source == nil {
		opts.Source = puzzle.DefaultSource()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		engine:   engine,
		members:  members,
		registry: reg,
		ingest:   submitter,
		opts:     opts,
	}
}

// Run executes one pipeline pass. Builder failures degrade to "no puzzle for
// that game"; only the member snapshot is load-bearing enough to abort.
func (r *Runner) Run(ctx context.Context) error {
	trace := NewRunTrace(r.opts.CommunityID)

	members, err := r.snapshotMembers(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: member snapshot: %w", err)
	}
	trace.Add(StageMembersTracked, int64(len(members)))

	sample := r.engine.AcquireDaily(ctx)
	trace.Add(StageSampled, int64(len(sample.Messages)))
	runDate := sample.Date

	// The daily-identity puzzle and the metrics map must come from the same
	// sample, so a daily fallback re-acquisition recomputes the metrics.
	metricsSample := sample
	metrics := activity.Synthesize(members, metricsSample, r.opts.Now())
	daily := puzzle.BuildDaily(metricsSample, metrics, r.opts.Source)
	if daily == nil {
		trace.Add(StageFallback, 1)
		private := r.engine.Escalate(ctx, []acquire.Strategy{puzzle.DailyStrategy()})
		if !private.Empty() {
			metricsSample = private
			metrics = activity.Synthesize(members, private, r.opts.Now())
			daily = puzzle.BuildDaily(private, metrics, r.opts.Source)
		}
	}
	if daily == nil {
		// Terminal fallback: synthesize from the metrics map alone.
		daily = puzzle.BuildDailyDegraded(runDate, metrics, r.opts.Source)
	}

	quote := puzzle.BuildQuote(sample, r.opts.Source, r.opts.QuoteMinLen)
	if quote == nil {
		trace.Add(StageFallback, 1)
		private := r.engine.Escalate(ctx, []acquire.Strategy{puzzle.QuoteStrategy(r.opts.QuoteMinLen)})
		quote = puzzle.BuildQuote(private, r.opts.Source, r.opts.QuoteMinLen)
	}

	media := puzzle.BuildMedia(sample, r.opts.Source)
	if media == nil {
		trace.Add(StageFallback, 1)
		private := r.engine.Escalate(ctx, []acquire.Strategy{puzzle.MediaStrategy()})
		media = puzzle.BuildMedia(private, r.opts.Source)
	}

	stat := puzzle.BuildStat(sample, r.opts.Source)
	if stat == nil {
		trace.Add(StageFallback, 1)
		private := r.engine.Escalate(ctx, []acquire.Strategy{puzzle.StatStrategy()})
		stat = puzzle.BuildStat(private, r.opts.Source)
	}

	names := make(map[string]string, len(members))
	allowed := make([]string, 0, len(members))
	for _, member := range members {
		names[member.ID] = member.DisplayName()
		if name := member.DisplayName(); name != "" {
			allowed = append(allowed, name)
		}
	}

	finish := func(base *core.PuzzleBase) {
		// Builder-private samples may carry their own representative date;
		// the stored day must be coherent across all four games.
		base.Date = runDate
		base.SolutionUserName = names[base.SolutionUserID]
	}

	var toSubmit []core.Puzzle
	if daily != nil {
		finish(&daily.PuzzleBase)
		if m, ok := metrics[daily.SolutionUserID]; ok {
			solution := m
			daily.SolutionMetrics = &solution
		}
		toSubmit = append(toSubmit, daily)
	}
	if quote != nil {
		finish(&quote.PuzzleBase)
		toSubmit = append(toSubmit, quote)
	}
	if media != nil {
		finish(&media.PuzzleBase)
		toSubmit = append(toSubmit, media)
	}
	if stat != nil {
		finish(&stat.PuzzleBase)
		toSubmit = append(toSubmit, stat)
	}

	missing := len(core.Games) - len(toSubmit)
	if missing > 0 {
		trace.Add(StageInfeasible, int64(missing))
	}
	trace.Add(StageBuilt, int64(len(toSubmit)))

	// Fire-and-forget per item: one failed submission never blocks siblings.
	for _, p := range toSubmit {
		if err := r.ingest.SubmitPuzzle(ctx, r.opts.CommunityID, p); err != nil {
			log.Printf("pipeline: submit %s puzzle: %v", p.GameID(), err)
			trace.Add(StageSubmitFailed, 1)
			continue
		}
		trace.Add(StageSubmitted, 1)
	}

	meta := ingest.MetaEnvelope{
		CommunityID:      r.opts.CommunityID,
		Date:             runDate,
		Names:            names,
		Metrics:          metrics,
		AllowedUsernames: allowed,
	}
	if err := r.ingest.SubmitMeta(ctx, meta); err != nil {
		log.Printf("pipeline: submit metadata: %v", err)
		trace.Add(StageSubmitFailed, 1)
	} else {
		trace.Add(StageSubmitted, 1)
	}

	trace.Log(slog.Default(), "pipeline run complete")
	return nil
}

// snapshotMembers resolves metadata for every opted-in member. Members that
// left the community keep a bare entry so their metrics stay present.
func (r *Runner) snapshotMembers(ctx context.Context) ([]core.Member, error) {
	all, err := r.members.Members(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]core.Member, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	ids := r.registry.List()
	out := make([]core.Member, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
			continue
		}
		out = append(out, core.Member{ID: id})
	}
	return out, nil
}
