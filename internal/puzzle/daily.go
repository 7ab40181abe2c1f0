package puzzle

import (
	"sort"

	"github.com/MrMysteryCode/Friendle/internal/activity"
	"github.com/MrMysteryCode/Friendle/internal/core"
)

// noneClue is rendered when a profile field carries no value.
const noneClue = "None"

// BuildDaily picks a random author with at least one message in the sample
// and exposes their activity profile as clues. The metrics map must be
// computed from the same sample. Nil when the sample is empty.
func BuildDaily(sample *core.Sample, metrics map[string]core.ActivityMetrics, src Source) *core.DailyPuzzle {
	if sample.Empty() {
		return nil
	}

	grouped := sample.ByAuthor()
	candidates := make([]string, 0, len(grouped))
	for author := range grouped {
		candidates = append(candidates, author)
	}
	sort.Strings(candidates)

	author, ok := PickUniform(src, candidates)
	if !ok {
		return nil
	}
	return dailyFromMetrics(author, sample.Date, metrics[author], false)
}

// BuildDailyDegraded synthesizes the terminal-fallback variant straight from
// the metrics map when acquisition found nothing: any opted-in member, even
// one with zero messages.
func BuildDailyDegraded(date string, metrics map[string]core.ActivityMetrics, src Source) *core.DailyPuzzle {
	candidates := make([]string, 0, len(metrics))
	for id := range metrics {
		candidates = append(candidates, id)
	}
	sort.Strings(candidates)

	member, ok := PickUniform(src, candidates)
	if !ok {
		return nil
	}
	return dailyFromMetrics(member, date, metrics[member], true)
}

func dailyFromMetrics(memberID, date string, m core.ActivityMetrics, degraded bool) *core.DailyPuzzle {
	topWord := noneClue
	if m.TopWord != nil {
		topWord = *m.TopWord
	}
	firstBucket := noneClue
	if m.FirstMessageBucket != nil {
		firstBucket = *m.FirstMessageBucket
	}
	window := m.ActiveWindow
	if window == "" {
		window = activity.NotActive
	}

	return &core.DailyPuzzle{
		PuzzleBase: core.PuzzleBase{
			Game:           core.GameDaily,
			Date:           date,
			SolutionUserID: memberID,
		},
		MessageCount:       m.MessageCount,
		TopWord:            topWord,
		ActiveWindow:       window,
		Mentions:           m.Mentions,
		FirstMessageBucket: firstBucket,
		AccountAgeRange:    m.AccountAgeRange,
		Degraded:           degraded,
	}
}
