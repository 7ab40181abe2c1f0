package puzzle

import (
	"github.com/MrMysteryCode/Friendle/internal/activity"
	"github.com/MrMysteryCode/Friendle/internal/core"
)

// uniqueWords returns, in first-seen order, the content words (length >3,
// non-numeric) used by exactly one author across the sample, mapped to that
// author.
func uniqueWords(sample *core.Sample) ([]string, map[string]string) {
	authors := make(map[string]map[string]struct{})
	var order []string

	for _, msg := range sample.Messages {
		for _, token := range activity.Tokenize(msg.Content) {
			if len(token) <= 3 || !activity.ContentWord(token) {
				continue
			}
			set, seen := authors[token]
			if !seen {
				set = make(map[string]struct{})
				authors[token] = set
				order = append(order, token)
			}
			set[msg.AuthorID] = struct{}{}
		}
	}

	var qualifying []string
	owner := make(map[string]string)
	for _, word := range order {
		set := authors[word]
		if len(set) != 1 {
			continue
		}
		qualifying = append(qualifying, word)
		for author := range set {
			owner[word] = author
		}
	}
	return qualifying, owner
}

// BuildStat prefers a word used by a single author; failing that it falls
// back to the author of the single longest message. Nil on an empty sample.
func BuildStat(sample *core.Sample, src Source) *core.StatPuzzle {
	if sample.Empty() {
		return nil
	}
	grouped := sample.ByAuthor()

	words, owner := uniqueWords(sample)
	if word, ok := PickUniform(src, words); ok {
		author := owner[word]
		return &core.StatPuzzle{
			PuzzleBase: core.PuzzleBase{
				Game:           core.GameStat,
				Date:           sample.Date,
				SolutionUserID: author,
			},
			StatType: core.StatUniqueWord,
			Stats: core.StatClues{
				UniqueWord:        word,
				Messages:          len(grouped[author]),
				ReactionsReceived: reactionsFor(grouped[author]),
			},
		}
	}

	longest := sample.Messages[0]
	for _, msg := range sample.Messages {
		if len(msg.Content) > len(longest.Content) {
			longest = msg
		}
	}
	if len(longest.Content) == 0 {
		return nil
	}

	return &core.StatPuzzle{
		PuzzleBase: core.PuzzleBase{
			Game:           core.GameStat,
			Date:           sample.Date,
			SolutionUserID: longest.AuthorID,
		},
		StatType: core.StatLongestMessage,
		Stats: core.StatClues{
			Messages:          len(grouped[longest.AuthorID]),
			LongestLength:     len(longest.Content),
			ReactionsReceived: reactionsFor(grouped[longest.AuthorID]),
		},
	}
}

func reactionsFor(msgs []core.Message) int {
	total := 0
	for _, msg := range msgs {
		total += msg.Reactions
	}
	return total
}
