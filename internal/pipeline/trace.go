package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Stage identifies one step of the pipeline for run accounting.
type Stage string

const (
	StageSampled        Stage = "messages_sampled"
	StageBuilt          Stage = "puzzles_built"
	StageFallback       Stage = "builder_fallbacks"
	StageInfeasible     Stage = "builders_infeasible"
	StageSubmitted      Stage = "submissions_ok"
	StageSubmitFailed   Stage = "submissions_failed"
	StageMembersTracked Stage = "members_profiled"
)

// RunTrace accumulates per-stage counters for one pipeline run and logs a
// structured summary at the end.
type RunTrace struct {
	CommunityID string
	RunID       string
	startedAt   time.Time

	mu       sync.Mutex
	counters map[Stage]int64
}

func NewRunTrace(communityID string) *RunTrace {
	startedAt := time.Now()
	return &RunTrace{
		CommunityID: communityID,
		RunID:       computeRunID(communityID, startedAt),
		startedAt:   startedAt,
		counters:    make(map[Stage]int64),
	}
}

// Add bumps a stage counter by n.
func (t *RunTrace) Add(stage Stage, n int64) {
	t.mu.Lock()
	t.counters[stage] += n
	t.mu.Unlock()
}

// Log emits the run summary via structured logging.
func (t *RunTrace) Log(logger *slog.Logger, msg string) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info(msg,
		"run_id", t.RunID,
		"community_id", t.CommunityID,
		"elapsed", time.Since(t.startedAt).Round(time.Millisecond).String(),
		"counters", t.snapshot(),
	)
}

func (t *RunTrace) snapshot() map[Stage]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Stage]int64, len(t.counters))
	for stage, count := range t.counters {
		out[stage] = count
	}
	return out
}

func computeRunID(communityID string, startedAt time.Time) string {
	digest := sha256.Sum256([]byte(communityID + "\x1f" + strconv.FormatInt(startedAt.UnixNano(), 10)))
	return hex.EncodeToString(digest[:8])
}
