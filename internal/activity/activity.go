// Package activity turns a per-member message sample into the fixed-shape
// profile served as daily-identity clues.
package activity

import (
	"strings"
	"time"
	"unicode"

	"github.com/MrMysteryCode/Friendle/internal/core"
)

// NotActive is the active-window value for members with no sampled messages.
const NotActive = "Not active"

// Bucket labels anonymize exact timestamps into four UTC time-of-day bands.
const (
	BucketMorning   = "Morning"
	BucketAfternoon = "Afternoon"
	BucketEvening   = "Evening"
	BucketNight     = "Night"
)

// Bucket maps an hour of day (UTC) to its label. Morning 05-12,
// Afternoon 12-17, Evening 17-22, Night otherwise.
func Bucket(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return BucketMorning
	case hour >= 12 && hour < 17:
		return BucketAfternoon
	case hour >= 17 && hour < 22:
		return BucketEvening
	default:
		return BucketNight
	}
}

// AccountAgeRange brackets account age at the 1/2/4-year boundaries.
func AccountAgeRange(createdAt, now time.Time) string {
	if createdAt.IsZero() || !createdAt.Before(now) {
		return "<1 year"
	}
	years := now.Sub(createdAt).Hours() / (24 * 365)
	switch {
	case years < 1:
		return "<1 year"
	case years < 2:
		return "1-2 years"
	case years < 4:
		return "2-4 years"
	default:
		return "4+ years"
	}
}

// Synthesize computes one ActivityMetrics entry for every member in the
// snapshot. Members with no sampled messages get neutral values.
func Synthesize(members []core.Member, sample *core.Sample, now time.Time) map[string]core.ActivityMetrics {
	var grouped map[string][]core.Message
	if sample != nil {
		grouped = sample.ByAuthor()
	}

	out := make(map[string]core.ActivityMetrics, len(members))
	for _, member := range members {
		msgs := grouped[member.ID]
		metrics := core.ActivityMetrics{
			MessageCount:    len(msgs),
			ActiveWindow:    NotActive,
			AccountAgeRange: AccountAgeRange(member.CreatedAt, now),
		}

		if len(msgs) > 0 {
			minHour, maxHour := 23, 0
			earliest := msgs[0]
			for _, msg := range msgs {
				hour := msg.Ts.UTC().Hour()
				if hour < minHour {
					minHour = hour
				}
				if hour > maxHour {
					maxHour = hour
				}
				metrics.Mentions += msg.Mentions
				if msg.Ts.Before(earliest.Ts) {
					earliest = msg
				}
			}
			metrics.ActiveWindow = Bucket(minHour) + " — " + Bucket(maxHour)
			first := Bucket(earliest.Ts.UTC().Hour())
			metrics.FirstMessageBucket = &first
			if word := TopWord(msgs); word != "" {
				w := word
				metrics.TopWord = &w
			}
		}

		out[member.ID] = metrics
	}
	return out
}

// TopWord returns the most frequent content word across the messages, ties
// broken by first appearance. Empty when no token qualifies.
func TopWord(msgs []core.Message) string {
	counts := make(map[string]int)
	var order []string

	for _, msg := range msgs {
		for _, token := range Tokenize(msg.Content) {
			if !ContentWord(token) {
				continue
			}
			if _, seen := counts[token]; !seen {
				order = append(order, token)
			}
			counts[token]++
		}
	}

	best := ""
	bestCount := 0
	for _, token := range order {
		if counts[token] > bestCount {
			best = token
			bestCount = counts[token]
		}
	}
	return best
}

// Tokenize case-folds the text and strips every non-alphanumeric rune,
// splitting on the gaps.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContentWord reports whether a token counts toward word statistics:
// minimum length 3, not a stop word, not purely numeric, and not a long
// digit-bearing token (IDs, timestamps, invite codes).
func ContentWord(token string) bool {
	if len(token) < 3 {
		return false
	}
	if _, stop := stopWords[token]; stop {
		return false
	}
	digits := 0
	for _, r := range token {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits == len(token) {
		return false
	}
	if digits > 0 && len(token) > 6 {
		return false
	}
	return true
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "any",
		"can", "had", "has", "her", "him", "his", "how", "its", "our",
		"out", "she", "they", "this", "that", "was", "were", "what",
		"when", "where", "which", "who", "why", "will", "with", "would",
		"your", "have", "has", "just", "like", "about", "there", "their",
		"then", "than", "them", "been", "being", "from", "into", "only",
		"over", "some", "such", "very", "want", "dont", "cant", "didnt",
		"does", "doing", "done", "get", "got", "going", "gonna", "yeah",
		"yes", "nah", "lol", "lmao", "omg", "idk", "tho", "too", "also",
		"because", "really", "think", "know", "one", "two", "now", "here",
	} {
		stopWords[w] = struct{}{}
	}
}
