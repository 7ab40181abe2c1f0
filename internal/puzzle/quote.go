package puzzle

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"github.com/MrMysteryCode/Friendle/internal/core"
)

// MinNormalizedLen is the floor on the normalized answer text; shorter
// candidates are rejected.
const MinNormalizedLen = 10

// DefaultQuoteMinLen is the default raw-content floor for quote candidates.
const DefaultQuoteMinLen = 40

var (
	mentionPattern = regexp.MustCompile(`<@[!&]?\d+>|<#\d+>`)
	// bareDomainPattern catches link-ish text without an explicit scheme.
	bareDomainPattern = regexp.MustCompile(`(?i)\b[a-z0-9-]+\.(com|net|org|io|gg|tv|me|dev|app|co)\b`)
	spacePattern      = regexp.MustCompile(`\s+`)
)

// URLLike reports whether the text looks like a link, an invite, or a bare
// domain. Such messages make degenerate quote answers and may leak targets.
func URLLike(text string) bool {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "http://") || strings.Contains(lowered, "https://") {
		return true
	}
	if strings.Contains(lowered, "www.") {
		return true
	}
	if strings.Contains(lowered, "discord.gg/") || strings.Contains(lowered, "discord.com/invite") {
		return true
	}
	return bareDomainPattern.MatchString(text)
}

// Scrub replaces mention markup with a placeholder and collapses whitespace,
// so the clue never carries raw member identifiers.
func Scrub(text string) string {
	scrubbed := mentionPattern.ReplaceAllString(text, "@someone")
	return strings.TrimSpace(spacePattern.ReplaceAllString(scrubbed, " "))
}

// Normalize lower-cases, strips punctuation and collapses whitespace. The
// answer digest is computed over this form so guesses can be verified
// without storing the plaintext in the clue.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(spacePattern.ReplaceAllString(b.String(), " "))
}

// AnswerHash is the hex-encoded SHA-256 digest of the normalized answer.
func AnswerHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// QuoteEligible reports whether a message can back a quote puzzle under the
// given raw-length floor.
func QuoteEligible(msg core.Message, minLen int) bool {
	if minLen <= 0 {
		minLen = DefaultQuoteMinLen
	}
	if len(msg.Content) < minLen {
		return false
	}
	if URLLike(msg.Content) {
		return false
	}
	return len(Normalize(Scrub(msg.Content))) >= MinNormalizedLen
}

// BuildQuote picks a random eligible message and emits its word-shuffled
// form plus the answer digest. Nil when no message qualifies.
func BuildQuote(sample *core.Sample, src Source, minLen int) *core.QuotePuzzle {
	if sample.Empty() {
		return nil
	}

	var candidates []core.Message
	for _, msg := range sample.Messages {
		if QuoteEligible(msg, minLen) {
			candidates = append(candidates, msg)
		}
	}

	chosen, ok := PickUniform(src, candidates)
	if !ok {
		return nil
	}

	scrubbed := Scrub(chosen.Content)
	normalized := Normalize(scrubbed)
	words := strings.Fields(scrubbed)

	return &core.QuotePuzzle{
		PuzzleBase: core.PuzzleBase{
			Game:           core.GameQuote,
			Date:           sample.Date,
			SolutionUserID: chosen.AuthorID,
		},
		ScrambledWords: Shuffle(src, words),
		WordCount:      len(words),
		AnswerHash:     AnswerHash(normalized),
		AnswerLength:   len(normalized),
	}
}
