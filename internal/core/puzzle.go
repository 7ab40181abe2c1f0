package core

// Game identifiers for the four puzzle variants.
const (
	GameDaily = "daily-identity"
	GameQuote = "quote"
	GameMedia = "media"
	GameStat  = "stat"
)

// Games lists every puzzle variant in presentation order.
var Games = []string{GameDaily, GameQuote, GameMedia, GameStat}

// Puzzle is implemented by each typed puzzle payload.
type Puzzle interface {
	GameID() string
}

// PuzzleBase carries the fields every variant shares. SolutionUserName and
// SolutionMetrics are attached post-construction, before ingestion.
type PuzzleBase struct {
	Game             string           `json:"game"`
	Date             string           `json:"date"`
	SolutionUserID   string           `json:"solution_user_id"`
	SolutionUserName string           `json:"solution_user_name,omitempty"`
	SolutionMetrics  *ActivityMetrics `json:"solution_metrics,omitempty"`
}

func (b PuzzleBase) GameID() string { return b.Game }

// DailyPuzzle exposes a member's activity profile as indirect clues.
type DailyPuzzle struct {
	PuzzleBase
	MessageCount       int    `json:"message_count"`
	TopWord            string `json:"top_word"`
	ActiveWindow       string `json:"active_window"`
	Mentions           int    `json:"mentions"`
	FirstMessageBucket string `json:"first_message_bucket"`
	AccountAgeRange    string `json:"account_age_range"`
	Degraded           bool   `json:"degraded,omitempty"`
}

// QuotePuzzle scrambles one of the member's messages; the answer is verified
// against a digest of the normalized original, never the plaintext.
type QuotePuzzle struct {
	PuzzleBase
	ScrambledWords []string `json:"scrambled_words"`
	WordCount      int      `json:"word_count"`
	AnswerHash     string   `json:"answer_hash"`
	AnswerLength   int      `json:"answer_length"`
}

// MediaPuzzle points at an image the member posted.
type MediaPuzzle struct {
	PuzzleBase
	ImageURL string   `json:"image_url"`
	Filename string   `json:"filename"`
	Size     int64    `json:"size"`
	Keywords []string `json:"keywords"`
}

// Stat puzzle kinds.
const (
	StatUniqueWord     = "unique_word"
	StatLongestMessage = "longest_message"
)

// StatPuzzle identifies a member through a distinguishing statistic.
type StatPuzzle struct {
	PuzzleBase
	StatType string    `json:"stat_type"`
	Stats    StatClues `json:"stats"`
}

// StatClues holds the per-kind stat fields; unused ones are omitted.
type StatClues struct {
	UniqueWord        string `json:"unique_word,omitempty"`
	Messages          int    `json:"messages"`
	ReactionsReceived int    `json:"reactions_received"`
	LongestLength     int    `json:"longest_length,omitempty"`
}
