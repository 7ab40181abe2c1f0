// Package acquire collects a bounded, privacy-filtered sample of recent
// messages, escalating through strategies of increasing scope when the
// narrower ones come back empty.
package acquire

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/MrMysteryCode/Friendle/internal/core"
	"github.com/MrMysteryCode/Friendle/internal/registry"
)

const pageSize = 100

// Channel is one readable text channel or thread. LastActive is a hint used
// to order fallback scans; zero means "no recent activity known".
type Channel struct {
	ID         string
	Name       string
	LastActive time.Time
}

// Provider yields channels and pages of message history for one community.
// MessagesBefore returns up to limit messages strictly older than beforeID,
// newest first; an empty beforeID starts at the channel head.
type Provider interface {
	Channels(ctx context.Context) ([]Channel, error)
	MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]core.Message, error)
}

// Predicate restricts which opted-in messages a scan retains. A nil
// predicate retains everything.
type Predicate func(core.Message) bool

// Budget bounds a fallback scan. Zero fields fall back to the defaults.
type Budget struct {
	PagesPerChannel int // backward pages fetched per channel
	MaxFetches      int // total page fetches across all channels
	MaxScan         int // total messages examined, 0 = unbounded
	MinSample       int // stop once this many messages are retained
}

// DefaultFallback is the shared-sample fallback budget used when both
// calendar ranges come back empty.
var DefaultFallback = Budget{PagesPerChannel: 25, MaxFetches: 200, MinSample: 15}

func (b Budget) withDefaults() Budget {
	if b.PagesPerChannel <= 0 {
		b.PagesPerChannel = DefaultFallback.PagesPerChannel
	}
	if b.MaxFetches <= 0 {
		b.MaxFetches = DefaultFallback.MaxFetches
	}
	if b.MinSample <= 0 {
		b.MinSample = DefaultFallback.MinSample
	}
	return b
}

// Strategy pairs an inclusion predicate with the budget its scan may spend.
// Builders with stricter predicates use wider budgets.
type Strategy struct {
	Name      string
	Predicate Predicate
	Budget    Budget
}

// Options configures an Engine.
type Options struct {
	Pace time.Duration    // courtesy delay between page fetches
	Now  func() time.Time // injectable clock, defaults to time.Now
}

// Engine drives the cascading acquisition strategies against one provider
// and one opt-in snapshot.
type Engine struct {
	provider Provider
	registry registry.Registry
	pace     time.Duration
	now      func() time.Time
}

func New(provider Provider, reg registry.Registry, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		provider: provider,
		registry: reg,
		pace:     opts.Pace,
		now:      now,
	}
}

// AcquireDaily produces the shared sample for one pipeline run. It tries
// yesterday's UTC calendar day, then today's, then the bounded opted-in
// fallback scan. An exhausted cascade yields an empty sample labelled with
// the current UTC day; callers treat that as "no content", not an error.
func (e *Engine) AcquireDaily(ctx context.Context) *core.Sample {
	channels, err := e.provider.Channels(ctx)
	if err != nil {
		log.Printf("acquire: list channels: %v", err)
		return &core.Sample{Date: e.today()}
	}

	for _, offset := range []int{-1, 0} {
		start, end := e.dayRange(offset)
		msgs := e.rangeScan(ctx, channels, start, end)
		if len(msgs) > 0 {
			sortNewestFirst(msgs)
			return &core.Sample{Messages: msgs, Date: start.Format("2006-01-02")}
		}
	}

	return e.fallbackScan(ctx, channels, nil, DefaultFallback)
}

// Escalate runs the ordered strategy list and returns the first non-empty
// sample. Used by builders whose predicate found nothing in the shared
// sample; the result is builder-private.
func (e *Engine) Escalate(ctx context.Context, strategies []Strategy) *core.Sample {
	channels, err := e.provider.Channels(ctx)
	if err != nil {
		log.Printf("acquire: list channels: %v", err)
		return &core.Sample{Date: e.today()}
	}

	for _, strat := range strategies {
		sample := e.fallbackScan(ctx, channels, strat.Predicate, strat.Budget)
		if !sample.Empty() {
			return sample
		}
		log.Printf("acquire: strategy %q exhausted with no matches", strat.Name)
	}
	return &core.Sample{Date: e.today()}
}

// rangeScan pages each channel backward until a message falls below the
// range's lower bound or the channel is exhausted, retaining opted-in
// messages inside [start, end).
func (e *Engine) rangeScan(ctx context.Context, channels []Channel, start, end time.Time) []core.Message {
	var retained []core.Message

	for _, ch := range channels {
		beforeID := ""
		for {
			page, err := e.provider.MessagesBefore(ctx, ch.ID, beforeID, pageSize)
			if err != nil {
				log.Printf("acquire: channel %s unreadable, skipping: %v", ch.ID, err)
				break
			}
			if len(page) == 0 {
				break
			}

			reachedOlder := false
			for _, msg := range page {
				if msg.Ts.Before(start) {
					reachedOlder = true
					continue
				}
				if msg.Ts.Before(end) && e.registry.IsOptedIn(msg.AuthorID) {
					retained = append(retained, msg)
				}
			}

			oldest := page[len(page)-1]
			if reachedOlder || oldest.ID == beforeID {
				break
			}
			beforeID = oldest.ID

			if !e.sleep(ctx) {
				return retained
			}
		}

		if !e.sleep(ctx) {
			return retained
		}
	}
	return retained
}

// fallbackScan walks channels most-recently-active first, retaining opted-in
// messages that pass the predicate, until the minimum sample size is reached
// or the budgets run out. The sample's date is data-driven: the calendar day
// of the newest retained message.
func (e *Engine) fallbackScan(ctx context.Context, channels []Channel, pred Predicate, budget Budget) *core.Sample {
	budget = budget.withDefaults()
	ordered := append([]Channel(nil), channels...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LastActive.After(ordered[j].LastActive)
	})

	var (
		retained []core.Message
		fetches  int
		scanned  int
	)

scan:
	for _, ch := range ordered {
		beforeID := ""
		for page := 0; page < budget.PagesPerChannel; page++ {
			if fetches >= budget.MaxFetches {
				break scan
			}
			fetches++

			msgs, err := e.provider.MessagesBefore(ctx, ch.ID, beforeID, pageSize)
			if err != nil {
				log.Printf("acquire: channel %s unreadable, skipping: %v", ch.ID, err)
				break
			}
			if len(msgs) == 0 {
				break
			}

			for _, msg := range msgs {
				scanned++
				if e.registry.IsOptedIn(msg.AuthorID) && (pred == nil || pred(msg)) {
					retained = append(retained, msg)
					if len(retained) >= budget.MinSample {
						break scan
					}
				}
				if budget.MaxScan > 0 && scanned >= budget.MaxScan {
					break scan
				}
			}

			oldest := msgs[len(msgs)-1]
			if oldest.ID == beforeID {
				break
			}
			beforeID = oldest.ID

			if !e.sleep(ctx) {
				break scan
			}
		}
	}

	if len(retained) == 0 {
		return &core.Sample{Date: e.today()}
	}
	sortNewestFirst(retained)
	return &core.Sample{
		Messages: retained,
		Date:     retained[0].Ts.UTC().Format("2006-01-02"),
	}
}

// dayRange returns the UTC midnight-to-midnight range offset whole days from
// the current day.
func (e *Engine) dayRange(offsetDays int) (time.Time, time.Time) {
	now := e.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, offsetDays)
	return start, start.AddDate(0, 0, 1)
}

func (e *Engine) today() string {
	return e.now().UTC().Format("2006-01-02")
}

// sleep applies the courtesy pacing delay; returns false when the context is
// cancelled.
func (e *Engine) sleep(ctx context.Context) bool {
	if e.pace <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(e.pace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func sortNewestFirst(msgs []core.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Ts.After(msgs[j].Ts)
	})
}
