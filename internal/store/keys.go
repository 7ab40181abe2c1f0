package store

import (
	"fmt"
	"time"
)

// TTL applied to every stored record; stale days age out on their own.
const TTL = 365 * 24 * time.Hour

// Key layout. Puzzles and day-scoped metadata key on (community, date);
// latest pointers key on the community alone; counters key on (scope, metric).
func PuzzleKey(communityID, date, game string) string {
	return fmt.Sprintf("community:%s:date:%s:game:%s", communityID, date, game)
}

func NamesKey(communityID, date string) string {
	return fmt.Sprintf("community:%s:date:%s:names", communityID, date)
}

func MetricsKey(communityID, date string) string {
	return fmt.Sprintf("community:%s:date:%s:metrics", communityID, date)
}

func AllowedKey(communityID, date string) string {
	return fmt.Sprintf("community:%s:date:%s:allowed_usernames", communityID, date)
}

func LatestDateKey(communityID string) string {
	return fmt.Sprintf("community:%s:latest_date", communityID)
}

func LatestGameKey(communityID, game string) string {
	return fmt.Sprintf("community:%s:latest_game:%s", communityID, game)
}

func StatsKey(scope, metric string) string {
	return fmt.Sprintf("stats:%s:%s", scope, metric)
}

// Counter scopes.
func GlobalScope() string { return "global" }

func CommunityScope(communityID string) string {
	return fmt.Sprintf("guild:%s", communityID)
}

func CommunityDayScope(communityID, date string) string {
	return fmt.Sprintf("guild:%s:%s", communityID, date)
}
