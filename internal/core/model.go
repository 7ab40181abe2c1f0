package core

import "time"

// Member is a snapshot of a community member taken once per pipeline run.
type Member struct {
	ID         string    // platform-native member ID
	Username   string    // account handle
	GlobalName string    // optional global display name
	Nickname   string    // optional per-community nickname
	CreatedAt  time.Time // account creation time
}

// DisplayName resolves the name shown to players: nickname over global name
// over handle.
func (m Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	if m.GlobalName != "" {
		return m.GlobalName
	}
	return m.Username
}

// Attachment is a file carried by a message.
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
	Size        int64
}

// Message is one chat message as acquired from the platform. Immutable;
// fetched fresh each run, never cached across runs.
type Message struct {
	ID          string
	AuthorID    string
	ChannelID   string
	Ts          time.Time
	Content     string
	Attachments []Attachment
	Mentions    int
	Reactions   int
	Category    string // parent channel category, "" when uncategorised
}

// Sample is an ordered, opted-in-only set of messages acquired for one run
// or for one builder's fallback scan. Messages are newest first; Date is the
// calendar day the sample represents.
type Sample struct {
	Messages []Message
	Date     string // ISO calendar day (YYYY-MM-DD, UTC)
}

// ByAuthor groups the sample's messages per author, preserving the sample's
// newest-first order within each author.
func (s *Sample) ByAuthor() map[string][]Message {
	grouped := make(map[string][]Message)
	for _, msg := range s.Messages {
		grouped[msg.AuthorID] = append(grouped[msg.AuthorID], msg)
	}
	return grouped
}

// Empty reports whether the sample holds no messages.
func (s *Sample) Empty() bool {
	return s == nil || len(s.Messages) == 0
}

// ActivityMetrics is the fixed-shape per-member profile computed alongside
// the puzzles. Fields keep neutral values for members with no sampled
// messages.
type ActivityMetrics struct {
	MessageCount       int     `json:"messageCount"`
	TopWord            *string `json:"topWord"`
	ActiveWindow       string  `json:"activeWindow"`
	Mentions           int     `json:"mentions"`
	FirstMessageBucket *string `json:"firstMessageBucket"`
	AccountAgeRange    string  `json:"accountAgeRange"`
}
