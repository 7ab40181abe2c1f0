package puzzle

import (
	"strings"

	"github.com/MrMysteryCode/Friendle/internal/acquire"
	"github.com/MrMysteryCode/Friendle/internal/core"
)

// Per-builder fallback budgets. Stricter predicates get wider searches; the
// media scan is capped tighter because a single hit suffices.
var (
	DailyFallbackBudget = acquire.Budget{PagesPerChannel: 25, MaxFetches: 350, MaxScan: 800, MinSample: 15}
	QuoteFallbackBudget = acquire.Budget{PagesPerChannel: 25, MaxFetches: 350, MaxScan: 800, MinSample: 20}
	StatFallbackBudget  = acquire.Budget{PagesPerChannel: 25, MaxFetches: 350, MaxScan: 800, MinSample: 20}
	MediaFallbackBudget = acquire.Budget{PagesPerChannel: 25, MaxFetches: 350, MaxScan: 200, MinSample: 1}
)

// QuoteStrategy scopes a fallback re-acquisition to quote-eligible messages.
func QuoteStrategy(minLen int) acquire.Strategy {
	return acquire.Strategy{
		Name:      "quote-fallback",
		Predicate: func(msg core.Message) bool { return QuoteEligible(msg, minLen) },
		Budget:    QuoteFallbackBudget,
	}
}

// MediaStrategy scopes a fallback re-acquisition to image-bearing messages.
func MediaStrategy() acquire.Strategy {
	return acquire.Strategy{
		Name:      "media-fallback",
		Predicate: HasImage,
		Budget:    MediaFallbackBudget,
	}
}

// StatStrategy scopes a fallback re-acquisition to messages with real text.
func StatStrategy() acquire.Strategy {
	return acquire.Strategy{
		Name:      "stat-fallback",
		Predicate: func(msg core.Message) bool { return strings.TrimSpace(msg.Content) != "" },
		Budget:    StatFallbackBudget,
	}
}

// DailyStrategy widens the daily-identity search to any opted-in message.
func DailyStrategy() acquire.Strategy {
	return acquire.Strategy{
		Name:   "daily-fallback",
		Budget: DailyFallbackBudget,
	}
}
