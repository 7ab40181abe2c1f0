package store

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

// Counter metric names.
const (
	MetricViews            = "views"
	MetricGuessesTotal     = "guesses_total"
	MetricGuessedCorrectly = "guessed_correctly"
	MetricActivePlayers    = "active_players"
	MetricCompletedGames   = "completed_games"
)

// CounterMetrics lists every engagement metric in response order.
var CounterMetrics = []string{
	MetricViews,
	MetricGuessesTotal,
	MetricGuessedCorrectly,
	MetricActivePlayers,
	MetricCompletedGames,
}

// IncrCounter bumps one counter with a plain read-modify-write. This is not
// atomic: concurrent increments can lose updates, which is accepted at this
// request volume.
func IncrCounter(ctx context.Context, kv KV, scope, metric string) error {
	key := StatsKey(scope, metric)
	current := int64(0)

	raw, err := kv.Get(ctx, key)
	switch {
	case err == nil:
		parsed, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			return errors.Wrapf(perr, "counter %s holds non-integer %q", key, raw)
		}
		current = parsed
	case errors.Is(err, ErrNotFound):
	default:
		return errors.Wrap(err, "read counter")
	}

	return errors.Wrap(kv.Set(ctx, key, strconv.FormatInt(current+1, 10), TTL), "write counter")
}

// ReadCounters returns every engagement metric for one scope, absent
// counters reported as zero.
func ReadCounters(ctx context.Context, kv KV, scope string) (map[string]int64, error) {
	out := make(map[string]int64, len(CounterMetrics))
	for _, metric := range CounterMetrics {
		raw, err := kv.Get(ctx, StatsKey(scope, metric))
		if errors.Is(err, ErrNotFound) {
			out[metric] = 0
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "read counter")
		}
		parsed, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			return nil, errors.Wrapf(perr, "counter %s holds non-integer %q", metric, raw)
		}
		out[metric] = parsed
	}
	return out, nil
}
